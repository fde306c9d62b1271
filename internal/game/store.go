// internal/game/store.go
package game

import (
	"context"
	"errors"

	"github.com/chinchiro-io/chinchiro/internal/models"
	"github.com/google/uuid"
)

// Sentinel errors shared between the engine and its stores. Stores translate
// driver-level conditions (no rows, unique violations) into these so the
// engine and handlers never inspect pgx types directly.
var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation failed")
	ErrIntegrity      = errors.New("integrity violation")
	ErrDuplicate      = errors.New("duplicate record")
	ErrAlreadySettled = errors.New("round already settled")
)

// Store is the durable player/room registry and round store the engine runs
// against. *database.Store satisfies it; engine tests use an in-memory fake.
//
// Every method that changes a round's phase, turn pointer, or status is a
// conditional write: it only applies if the row still matches the expected
// prior state, and reports whether it did. That single guarantee is what
// serializes concurrent, possibly duplicated client actions.
type Store interface {
	// Rooms and players.
	GetRoom(ctx context.Context, roomID uuid.UUID) (*models.Room, error)
	CreateRoomWithHost(ctx context.Context, room *models.Room, host *models.Player) error
	GetPlayers(ctx context.Context, roomID uuid.UUID) ([]models.Player, error)
	GetPlayer(ctx context.Context, playerID uuid.UUID) (*models.Player, error)
	InsertPlayer(ctx context.Context, p *models.Player) error
	SetAllChips(ctx context.Context, roomID uuid.UUID, chips int) error

	// ApplyGameStart flips the room from waiting to playing, writes the new
	// turn orders, and inserts round 1, all in one transaction. Returns false
	// without side effects if the room is no longer waiting.
	ApplyGameStart(ctx context.Context, roomID uuid.UUID, orders map[uuid.UUID]int, first *models.Round) (bool, error)

	// Rounds, bets, rolls.
	GetRound(ctx context.Context, roundID uuid.UUID) (*models.Round, error)
	CurrentRound(ctx context.Context, roomID uuid.UUID) (*models.Round, error)
	InsertBet(ctx context.Context, b *models.Bet) error
	GetBets(ctx context.Context, roundID uuid.UUID) ([]models.Bet, error)
	InsertRoll(ctx context.Context, r *models.Roll) error
	GetRolls(ctx context.Context, roundID uuid.UUID) ([]models.Roll, error)

	// BeginParentRolling moves betting -> parent_rolling and hands the turn to
	// the parent. False when the round already left the betting phase.
	BeginParentRolling(ctx context.Context, roundID, parentID uuid.UUID) (bool, error)

	// RecordParentHand stores the parent's finalized hand and moves
	// parent_rolling -> nextPhase with the given turn owner (nil clears it).
	RecordParentHand(ctx context.Context, roundID uuid.UUID, hand Hand, nextPhase string, turn *uuid.UUID) (bool, error)

	// AdvanceChildTurn hands the turn from one child to the next; a nil `to`
	// ends children_rolling and enters settlement. Conditional on the turn
	// still belonging to `from`.
	AdvanceChildTurn(ctx context.Context, roundID, from uuid.UUID, to *uuid.UUID) (bool, error)

	// ApplySettlement applies a settlement plan in one transaction whose
	// first effect is the playing -> finished status flip; returns
	// ErrAlreadySettled without any mutation if the round is already finished.
	ApplySettlement(ctx context.Context, plan *SettlementPlan) error

	// Leave consensus.
	PendingLeaveRequest(ctx context.Context, roomID uuid.UUID) (*models.LeaveRequest, error)
	GetLeaveRequest(ctx context.Context, requestID uuid.UUID) (*models.LeaveRequest, error)
	CreateLeaveRequest(ctx context.Context, req *models.LeaveRequest) error
	UpsertLeaveVote(ctx context.Context, v *models.LeaveVote) error
	GetLeaveVotes(ctx context.Context, requestID uuid.UUID) ([]models.LeaveVote, error)

	// SetLeaveStatus conditionally finalizes a request (pending -> approved or
	// pending -> rejected). False when another voter finalized it first.
	SetLeaveStatus(ctx context.Context, requestID uuid.UUID, from, to string) (bool, error)

	// ApplyRemoval deletes a player and performs the post-removal bookkeeping
	// (host succession, room deletion, forced game over) transactionally.
	ApplyRemoval(ctx context.Context, plan *RemovalPlan) error
}

// BetSettlement records the multiplier to stamp onto one bet at settlement.
type BetSettlement struct {
	BetID      uuid.UUID
	Multiplier int
}

// SettlementPlan is the precomputed, all-or-nothing outcome of one round.
// The engine computes it; the store applies it in a single transaction.
type SettlementPlan struct {
	RoundID uuid.UUID
	RoomID  uuid.UUID

	Bets []BetSettlement

	// NewChips maps every current player to their post-settlement balance
	// (already floored at zero).
	NewChips map[uuid.UUID]int

	// GameOver marks the room finished instead of creating NextRound.
	GameOver  bool
	NextRound *models.Round
}

// RemovalPlan is the bookkeeping for removing one player from a room.
type RemovalPlan struct {
	RoomID   uuid.UUID
	PlayerID uuid.UUID

	// NewHostID promotes a successor when the leaver held the host flag.
	NewHostID *uuid.UUID

	// DeleteRoom removes the room entirely (last player left).
	DeleteRoom bool

	// FinishGame marks any playing round and the room finished (exactly one
	// player would remain mid-game).
	FinishGame bool
}
