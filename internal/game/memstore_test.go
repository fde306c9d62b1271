// internal/game/memstore_test.go
package game

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/chinchiro-io/chinchiro/internal/models"
)

// memStore is an in-memory Store used by the engine tests. It honors the same
// conditional-write contract the SQL store does, so phase race tests are
// meaningful against it.
type memStore struct {
	mu sync.Mutex

	rooms      map[uuid.UUID]*models.Room
	players    map[uuid.UUID]*models.Player
	rounds     map[uuid.UUID]*models.Round
	bets       map[uuid.UUID][]*models.Bet
	rolls      map[uuid.UUID][]*models.Roll
	leaveReqs  map[uuid.UUID]*models.LeaveRequest
	leaveVotes map[uuid.UUID][]*models.LeaveVote

	clock time.Time
}

func newMemStore() *memStore {
	return &memStore{
		rooms:      make(map[uuid.UUID]*models.Room),
		players:    make(map[uuid.UUID]*models.Player),
		rounds:     make(map[uuid.UUID]*models.Round),
		bets:       make(map[uuid.UUID][]*models.Bet),
		rolls:      make(map[uuid.UUID][]*models.Roll),
		leaveReqs:  make(map[uuid.UUID]*models.LeaveRequest),
		leaveVotes: make(map[uuid.UUID][]*models.LeaveVote),
		clock:      time.Now(),
	}
}

// tick produces strictly increasing timestamps so ORDER BY created_at
// semantics hold.
func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}

func (m *memStore) GetRoom(_ context.Context, roomID uuid.UUID) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) CreateRoomWithHost(_ context.Context, room *models.Room, host *models.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rc := *room
	rc.CreatedAt = m.tick()
	m.rooms[room.ID] = &rc
	hc := *host
	hc.CreatedAt = m.tick()
	m.players[host.ID] = &hc
	return nil
}

func (m *memStore) GetPlayers(_ context.Context, roomID uuid.UUID) ([]models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Player
	for _, p := range m.players {
		if p.RoomID == roomID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TurnOrder != out[j].TurnOrder {
			return out[i].TurnOrder < out[j].TurnOrder
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memStore) GetPlayer(_ context.Context, playerID uuid.UUID) (*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[playerID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) InsertPlayer(_ context.Context, p *models.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	cp.CreatedAt = m.tick()
	m.players[p.ID] = &cp
	return nil
}

func (m *memStore) SetAllChips(_ context.Context, roomID uuid.UUID, chips int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players {
		if p.RoomID == roomID {
			p.Chips = chips
		}
	}
	if r, ok := m.rooms[roomID]; ok {
		r.InitialChips = chips
	}
	return nil
}

func (m *memStore) ApplyGameStart(_ context.Context, roomID uuid.UUID, orders map[uuid.UUID]int, first *models.Round) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return false, ErrNotFound
	}
	if r.Status != models.RoomStatusWaiting {
		return false, nil
	}
	r.Status = models.RoomStatusPlaying
	for playerID, order := range orders {
		if p, ok := m.players[playerID]; ok && p.RoomID == roomID {
			p.TurnOrder = order
		}
	}
	m.insertRoundLocked(first)
	return true, nil
}

func (m *memStore) insertRoundLocked(r *models.Round) {
	cp := *r
	cp.CreatedAt = m.tick()
	m.rounds[r.ID] = &cp
}

func (m *memStore) GetRound(_ context.Context, roundID uuid.UUID) (*models.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rounds[roundID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) CurrentRound(_ context.Context, roomID uuid.UUID) (*models.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.Round
	for _, r := range m.rounds {
		if r.RoomID != roomID || r.Status != models.RoundStatusPlaying {
			continue
		}
		if best == nil || r.RoundNumber > best.RoundNumber {
			best = r
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *memStore) InsertBet(_ context.Context, b *models.Bet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.bets[b.RoundID] {
		if existing.PlayerID == b.PlayerID {
			return ErrDuplicate
		}
	}
	cp := *b
	cp.CreatedAt = m.tick()
	m.bets[b.RoundID] = append(m.bets[b.RoundID], &cp)
	return nil
}

func (m *memStore) GetBets(_ context.Context, roundID uuid.UUID) ([]models.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Bet
	for _, b := range m.bets[roundID] {
		out = append(out, *b)
	}
	return out, nil
}

func (m *memStore) InsertRoll(_ context.Context, r *models.Roll) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	cp.RolledAt = m.tick()
	m.rolls[r.RoundID] = append(m.rolls[r.RoundID], &cp)
	return nil
}

func (m *memStore) GetRolls(_ context.Context, roundID uuid.UUID) ([]models.Roll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Roll
	for _, r := range m.rolls[roundID] {
		out = append(out, *r)
	}
	return out, nil
}

func (m *memStore) BeginParentRolling(_ context.Context, roundID, parentID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rounds[roundID]
	if !ok || r.Phase != models.PhaseBetting {
		return false, nil
	}
	r.Phase = models.PhaseParentRolling
	id := parentID
	r.CurrentTurnPlayerID = &id
	return true, nil
}

func (m *memStore) RecordParentHand(_ context.Context, roundID uuid.UUID, hand Hand, nextPhase string, turn *uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rounds[roundID]
	if !ok || r.Phase != models.PhaseParentRolling {
		return false, nil
	}
	r.Phase = nextPhase
	r.CurrentTurnPlayerID = turn
	class := string(hand.Class)
	value := hand.Value
	r.ParentHandClass = &class
	r.ParentHandValue = &value
	return true, nil
}

func (m *memStore) AdvanceChildTurn(_ context.Context, roundID, from uuid.UUID, to *uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rounds[roundID]
	if !ok || r.Phase != models.PhaseChildrenRolling {
		return false, nil
	}
	if r.CurrentTurnPlayerID == nil || *r.CurrentTurnPlayerID != from {
		return false, nil
	}
	if to == nil {
		r.Phase = models.PhaseSettlement
		r.CurrentTurnPlayerID = nil
	} else {
		r.CurrentTurnPlayerID = to
	}
	return true, nil
}

func (m *memStore) ApplySettlement(_ context.Context, plan *SettlementPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rounds[plan.RoundID]
	if !ok {
		return ErrNotFound
	}
	if r.Status != models.RoundStatusPlaying {
		return ErrAlreadySettled
	}
	r.Status = models.RoundStatusFinished

	for _, bs := range plan.Bets {
		for _, b := range m.bets[plan.RoundID] {
			if b.ID == bs.BetID {
				b.ResultMultiplier = bs.Multiplier
				b.Settled = true
			}
		}
	}
	for playerID, chips := range plan.NewChips {
		if p, ok := m.players[playerID]; ok {
			p.Chips = chips
		}
	}

	if plan.GameOver {
		if room, ok := m.rooms[plan.RoomID]; ok {
			room.Status = models.RoomStatusFinished
		}
		return nil
	}
	m.insertRoundLocked(plan.NextRound)
	return nil
}

func (m *memStore) PendingLeaveRequest(_ context.Context, roomID uuid.UUID) (*models.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.leaveReqs {
		if req.RoomID == roomID && req.Status == models.LeaveStatusPending {
			cp := *req
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) GetLeaveRequest(_ context.Context, requestID uuid.UUID) (*models.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.leaveReqs[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (m *memStore) CreateLeaveRequest(_ context.Context, req *models.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.leaveReqs {
		if existing.RoomID == req.RoomID && existing.Status == models.LeaveStatusPending {
			return ErrDuplicate
		}
	}
	cp := *req
	cp.CreatedAt = m.tick()
	m.leaveReqs[req.ID] = &cp
	return nil
}

func (m *memStore) UpsertLeaveVote(_ context.Context, v *models.LeaveVote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.leaveVotes[v.RequestID] {
		if existing.VoterID == v.VoterID {
			existing.Approved = v.Approved
			return nil
		}
	}
	cp := *v
	cp.CreatedAt = m.tick()
	m.leaveVotes[v.RequestID] = append(m.leaveVotes[v.RequestID], &cp)
	return nil
}

func (m *memStore) GetLeaveVotes(_ context.Context, requestID uuid.UUID) ([]models.LeaveVote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LeaveVote
	for _, v := range m.leaveVotes[requestID] {
		out = append(out, *v)
	}
	return out, nil
}

func (m *memStore) SetLeaveStatus(_ context.Context, requestID uuid.UUID, from, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.leaveReqs[requestID]
	if !ok || req.Status != from {
		return false, nil
	}
	req.Status = to
	return true, nil
}

func (m *memStore) ApplyRemoval(_ context.Context, plan *RemovalPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.players, plan.PlayerID)

	if plan.DeleteRoom {
		delete(m.rooms, plan.RoomID)
		for id, r := range m.rounds {
			if r.RoomID == plan.RoomID {
				delete(m.rounds, id)
			}
		}
		return nil
	}

	room, ok := m.rooms[plan.RoomID]
	if !ok {
		return ErrNotFound
	}
	if plan.NewHostID != nil {
		if p, ok := m.players[*plan.NewHostID]; ok {
			p.IsHost = true
		}
		room.HostID = plan.NewHostID
	}
	if plan.FinishGame {
		for _, r := range m.rounds {
			if r.RoomID == plan.RoomID && r.Status == models.RoundStatusPlaying {
				r.Status = models.RoundStatusFinished
			}
		}
		room.Status = models.RoomStatusFinished
	}
	return nil
}

// notifyRecorder collects change pings instead of publishing to Redis.
type notifyRecorder struct {
	mu     sync.Mutex
	events []string
}

func (n *notifyRecorder) fn(_ context.Context, _ uuid.UUID, event string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *notifyRecorder) has(event string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == event {
			return true
		}
	}
	return false
}

// newTestEngine builds an engine over a fresh memStore with notifications
// recorded.
func newTestEngine(t *testing.T) (*Engine, *memStore, *notifyRecorder) {
	t.Helper()
	store := newMemStore()
	engine := NewEngine(store, nil)
	rec := &notifyRecorder{}
	engine.NotifyFn = rec.fn
	return engine, store, rec
}

// queueDice makes the engine roll a fixed sequence of throws.
func queueDice(e *Engine, throws ...[3]int) {
	i := 0
	e.RollFn = func() (int, int, int) {
		if i >= len(throws) {
			panic("dice queue exhausted")
		}
		d := throws[i]
		i++
		return d[0], d[1], d[2]
	}
}

// setupStartedGame creates a room with n players and starts the game. The
// returned players are in fixed turn order with the host (parent of round 1)
// first.
func setupStartedGame(t *testing.T, e *Engine, n int) (*models.Room, []models.Player, *models.Round) {
	t.Helper()
	ctx := context.Background()

	room, host, err := e.CreateRoom(ctx, "test room", "P0", n, nil)
	require.NoError(t, err)
	for i := 1; i < n; i++ {
		_, err := e.JoinRoom(ctx, room.ID, "P"+string(rune('0'+i)), nil)
		require.NoError(t, err)
	}

	res, err := e.StartGame(ctx, room.ID, host.ID)
	require.NoError(t, err)
	require.False(t, res.Rejected)
	require.NotNil(t, res.Round)

	players, err := e.Store.GetPlayers(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, players, n)
	require.Equal(t, host.ID, players[0].ID)

	return room, players, res.Round
}

// placeAllBets puts the given wager on every child and returns once the round
// has advanced to parent_rolling.
func placeAllBets(t *testing.T, e *Engine, round *models.Round, players []models.Player, amounts map[uuid.UUID]int) {
	t.Helper()
	ctx := context.Background()
	for _, p := range players {
		if p.ID == round.ParentID {
			continue
		}
		amount := amounts[p.ID]
		if amount == 0 {
			amount = 100
		}
		res, err := e.PlaceBet(ctx, round.ID, p.ID, amount)
		require.NoError(t, err)
		require.False(t, res.Rejected, "bet rejected: %s", res.Reason)
	}
	r, err := e.Store.GetRound(ctx, round.ID)
	require.NoError(t, err)
	require.Equal(t, models.PhaseParentRolling, r.Phase)
}
