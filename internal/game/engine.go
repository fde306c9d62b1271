// internal/game/engine.go
package game

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/chinchiro-io/chinchiro/internal/models"
)

// DefaultInitialChips is each seat's starting balance unless the host
// configures a different value before the game starts.
const DefaultInitialChips = 1000

// NotifyFn pushes a best-effort "something changed" ping to a room's
// subscribers. Delivery is not relied upon; clients reconcile by re-reading
// the authoritative state.
type NotifyFn func(ctx context.Context, roomID uuid.UUID, event string)

// Engine owns the round state machine. It holds no per-room state of its own:
// every call re-derives the current state from the Store, validates the action
// against it, and applies conditional writes, so concurrent and duplicated
// requests resolve against the durable row rather than in-process memory.
type Engine struct {
	Store  Store
	Logger *logrus.Logger

	// RollFn produces one three-die throw. Tests override it with fixed dice.
	RollFn func() (int, int, int)

	// NotifyFn, when set, is invoked after every successful mutation.
	NotifyFn NotifyFn

	// PublishSettlementFn, when set, enqueues a settlement record for the
	// historian after each settled round.
	PublishSettlementFn func(ctx context.Context, rec SettlementRecord)
}

// NewEngine builds an Engine over the given store with the secure dice source.
func NewEngine(store Store, logger *logrus.Logger) *Engine {
	return &Engine{
		Store:  store,
		Logger: logger,
		RollFn: RollThreeDice,
	}
}

func (e *Engine) log() *logrus.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return logrus.StandardLogger()
}

func (e *Engine) notify(ctx context.Context, roomID uuid.UUID, event string) {
	if e.NotifyFn != nil {
		e.NotifyFn(ctx, roomID, event)
	}
}

// CreateRoom creates a waiting room and its host player in one transaction.
// MaxPlayers is clamped to [2,8]; zero means the default of 4.
func (e *Engine) CreateRoom(ctx context.Context, name, playerName string, maxPlayers int, userID *uuid.UUID) (*models.Room, *models.Player, error) {
	name = strings.TrimSpace(name)
	playerName = strings.TrimSpace(playerName)
	if name == "" {
		return nil, nil, fmt.Errorf("room name is required: %w", ErrValidation)
	}
	if playerName == "" {
		return nil, nil, fmt.Errorf("player name is required: %w", ErrValidation)
	}
	if maxPlayers == 0 {
		maxPlayers = 4
	}
	if maxPlayers < 2 {
		maxPlayers = 2
	}
	if maxPlayers > 8 {
		maxPlayers = 8
	}

	room := &models.Room{
		ID:           uuid.New(),
		Name:         name,
		JoinCode:     newJoinCode(),
		Status:       models.RoomStatusWaiting,
		MaxPlayers:   maxPlayers,
		InitialChips: DefaultInitialChips,
	}
	host := &models.Player{
		ID:     uuid.New(),
		RoomID: room.ID,
		UserID: userID,
		Name:   playerName,
		IsHost: true,
		Chips:  room.InitialChips,
	}
	room.HostID = &host.ID

	if err := e.Store.CreateRoomWithHost(ctx, room, host); err != nil {
		return nil, nil, fmt.Errorf("create room: %w", err)
	}
	e.log().WithFields(logrus.Fields{"room": room.ID, "host": host.ID}).Info("room created")
	return room, host, nil
}

// JoinRoom seats a new player in a waiting room. Capacity is checked before
// the player row is created.
func (e *Engine) JoinRoom(ctx context.Context, roomID uuid.UUID, playerName string, userID *uuid.UUID) (*models.Player, error) {
	playerName = strings.TrimSpace(playerName)
	if playerName == "" {
		return nil, fmt.Errorf("player name is required: %w", ErrValidation)
	}

	room, err := e.Store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != models.RoomStatusWaiting {
		return nil, fmt.Errorf("room has already started: %w", ErrValidation)
	}

	players, err := e.Store.GetPlayers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if len(players) >= room.MaxPlayers {
		return nil, fmt.Errorf("room is full: %w", ErrValidation)
	}
	if userID != nil {
		for _, p := range players {
			if p.UserID != nil && *p.UserID == *userID {
				return nil, fmt.Errorf("already seated in this room: %w", ErrValidation)
			}
		}
	}

	player := &models.Player{
		ID:        uuid.New(),
		RoomID:    roomID,
		UserID:    userID,
		Name:      playerName,
		Chips:     room.InitialChips,
		TurnOrder: len(players),
	}
	if err := e.Store.InsertPlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("join room: %w", err)
	}

	e.notify(ctx, roomID, "player_joined")
	return player, nil
}

// SetInitialChips sets every seat's balance, host-only and only while the
// room is still waiting.
func (e *Engine) SetInitialChips(ctx context.Context, roomID, hostID uuid.UUID, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("chip amount must be positive: %w", ErrValidation)
	}
	room, err := e.Store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.Status != models.RoomStatusWaiting {
		return fmt.Errorf("chips can only be changed before the game starts: %w", ErrValidation)
	}
	requester, err := e.Store.GetPlayer(ctx, hostID)
	if err != nil {
		return err
	}
	if requester.RoomID != roomID || !requester.IsHost {
		return fmt.Errorf("only the host can set initial chips: %w", ErrValidation)
	}

	if err := e.Store.SetAllChips(ctx, roomID, amount); err != nil {
		return fmt.Errorf("set initial chips: %w", err)
	}
	e.notify(ctx, roomID, "chips_set")
	return nil
}

// StartGameResult reports the outcome of a start attempt.
type StartGameResult struct {
	Rejected bool          `json:"rejected,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Round    *models.Round `json:"round,omitempty"`
}

// StartGame assigns turn order by join order, makes the host the first
// parent, and creates round 1 in the betting phase. Host-only, room must be
// waiting with at least two players.
func (e *Engine) StartGame(ctx context.Context, roomID, requesterID uuid.UUID) (*StartGameResult, error) {
	room, err := e.Store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	requester, err := e.Store.GetPlayer(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if requester.RoomID != roomID || !requester.IsHost {
		return nil, fmt.Errorf("only the host can start the game: %w", ErrValidation)
	}
	if room.Status != models.RoomStatusWaiting {
		return &StartGameResult{Rejected: true, Reason: "room is not waiting"}, nil
	}

	players, err := e.Store.GetPlayers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if len(players) < 2 {
		return nil, fmt.Errorf("at least two players are required: %w", ErrValidation)
	}

	// GetPlayers returns join order for a waiting room; indices become the
	// fixed turn order for the whole game.
	orders := make(map[uuid.UUID]int, len(players))
	for i, p := range players {
		orders[p.ID] = i
	}

	first := &models.Round{
		ID:          uuid.New(),
		RoomID:      roomID,
		RoundNumber: 1,
		Status:      models.RoundStatusPlaying,
		Phase:       models.PhaseBetting,
		ParentID:    requester.ID,
	}

	ok, err := e.Store.ApplyGameStart(ctx, roomID, orders, first)
	if err != nil {
		return nil, fmt.Errorf("start game: %w", err)
	}
	if !ok {
		return &StartGameResult{Rejected: true, Reason: "room is not waiting"}, nil
	}

	e.log().WithFields(logrus.Fields{"room": roomID, "players": len(players)}).Info("game started")
	e.notify(ctx, roomID, "game_started")
	return &StartGameResult{Round: first}, nil
}

// RoomState is the full authoritative view of a room, served so clients can
// reconcile after any change ping.
type RoomState struct {
	Room         *models.Room         `json:"room"`
	Players      []models.Player      `json:"players"`
	Round        *models.Round        `json:"round,omitempty"`
	Bets         []models.Bet         `json:"bets,omitempty"`
	Rolls        []models.Roll        `json:"rolls,omitempty"`
	LeaveRequest *models.LeaveRequest `json:"leave_request,omitempty"`
	LeaveVotes   []models.LeaveVote   `json:"leave_votes,omitempty"`
}

// GetRoomState loads the room, its players, the current round with bets and
// rolls, and any pending leave request.
func (e *Engine) GetRoomState(ctx context.Context, roomID uuid.UUID) (*RoomState, error) {
	room, err := e.Store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	players, err := e.Store.GetPlayers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	state := &RoomState{Room: room, Players: players}

	round, err := e.Store.CurrentRound(ctx, roomID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if round != nil {
		state.Round = round
		if state.Bets, err = e.Store.GetBets(ctx, round.ID); err != nil {
			return nil, err
		}
		if state.Rolls, err = e.Store.GetRolls(ctx, round.ID); err != nil {
			return nil, err
		}
	}

	req, err := e.Store.PendingLeaveRequest(ctx, roomID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if req != nil {
		state.LeaveRequest = req
		if state.LeaveVotes, err = e.Store.GetLeaveVotes(ctx, req.ID); err != nil {
			return nil, err
		}
	}
	return state, nil
}

// children returns the non-parent players in fixed turn order.
func children(players []models.Player, parentID uuid.UUID) []models.Player {
	out := make([]models.Player, 0, len(players))
	for _, p := range players {
		if p.ID != parentID {
			out = append(out, p)
		}
	}
	return out
}

const joinCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// newJoinCode returns a short random room code, skipping ambiguous glyphs.
func newJoinCode() string {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	for i := range b {
		b[i] = joinCodeAlphabet[int(b[i])%len(joinCodeAlphabet)]
	}
	return string(b[:])
}
