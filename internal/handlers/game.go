// internal/handlers/game.go
package handlers

import (
	"encoding/json"
	"net/http"
)

type placeBetRequest struct {
	RoundID  string `json:"round_id"`
	PlayerID string `json:"player_id"`
	Amount   int    `json:"amount"`
}

// PlaceBetHandler records a child's wager during the betting phase. When the
// final child's bet lands, the response carries the phase change to parent
// rolling.
func (s *Server) PlaceBetHandler(w http.ResponseWriter, r *http.Request) {
	var req placeBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	roundID, ok := parseUUIDField(w, "round_id", req.RoundID)
	if !ok {
		return
	}
	playerID, ok := parseUUIDField(w, "player_id", req.PlayerID)
	if !ok {
		return
	}

	result, err := s.Engine.PlaceBet(r.Context(), roundID, playerID, req.Amount)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type rollDiceRequest struct {
	RoundID  string `json:"round_id"`
	PlayerID string `json:"player_id"`
}

// RollDiceHandler throws three dice for the player whose turn it is. Dice are
// rolled server-side only; a repeated request for an already-final roll
// replays the recorded result instead of rolling again.
func (s *Server) RollDiceHandler(w http.ResponseWriter, r *http.Request) {
	var req rollDiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	roundID, ok := parseUUIDField(w, "round_id", req.RoundID)
	if !ok {
		return
	}
	playerID, ok := parseUUIDField(w, "player_id", req.PlayerID)
	if !ok {
		return
	}

	result, err := s.Engine.RollDice(r.Context(), roundID, playerID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type settleRequest struct {
	RoundID string `json:"round_id"`
}

// SettleRoundHandler applies chip transfers for a round in the settlement
// phase. Any client may trigger it; settling an already-finished round
// replays the recorded outcome.
func (s *Server) SettleRoundHandler(w http.ResponseWriter, r *http.Request) {
	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	roundID, ok := parseUUIDField(w, "round_id", req.RoundID)
	if !ok {
		return
	}

	result, err := s.Engine.SettleRound(r.Context(), roundID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
