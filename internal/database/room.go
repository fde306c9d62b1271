// internal/database/room.go
package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chinchiro-io/chinchiro/internal/models"
)

// CreateRoomWithHost inserts a room and its host player in one transaction;
// a failed player insert rolls the room back.
func (s *Store) CreateRoomWithHost(ctx context.Context, room *models.Room, host *models.Player) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
		INSERT INTO rooms (id, name, join_code, host_id, status, max_players, initial_chips)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		if _, err := tx.Exec(ctx, q,
			room.ID, room.Name, room.JoinCode, room.HostID,
			room.Status, room.MaxPlayers, room.InitialChips,
		); err != nil {
			return translateErr(err)
		}

		q = `
		INSERT INTO players (id, room_id, user_id, name, is_host, chips, turn_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		_, err := tx.Exec(ctx, q,
			host.ID, host.RoomID, host.UserID, host.Name,
			host.IsHost, host.Chips, host.TurnOrder,
		)
		return translateErr(err)
	})
}

// GetRoom fetches a room by ID.
func (s *Store) GetRoom(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	var r models.Room
	q := `
	SELECT id, name, join_code, host_id, status, max_players, initial_chips,
	       created_at, updated_at
	FROM rooms
	WHERE id = $1
	`
	err := s.pool.QueryRow(ctx, q, roomID).Scan(
		&r.ID, &r.Name, &r.JoinCode, &r.HostID, &r.Status,
		&r.MaxPlayers, &r.InitialChips, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, translateErr(err)
	}
	return &r, nil
}
