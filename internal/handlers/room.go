// internal/handlers/room.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

type createRoomRequest struct {
	Name       string `json:"name"`
	PlayerName string `json:"player_name"`
	MaxPlayers int    `json:"max_players,omitempty"`
}

// CreateRoomHandler creates a waiting room with the requester seated as host.
func (s *Server) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	userID, err := EnsureEphemeralUser(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	room, host, err := s.Engine.CreateRoom(r.Context(), req.Name, req.PlayerName, req.MaxPlayers, &userID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"room":   room,
		"player": host,
	})
}

type joinRoomRequest struct {
	RoomID     string `json:"room_id"`
	PlayerName string `json:"player_name"`
}

// JoinRoomHandler seats the requester in a waiting room.
func (s *Server) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	roomID, ok := parseUUIDField(w, "room_id", req.RoomID)
	if !ok {
		return
	}

	userID, err := EnsureEphemeralUser(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	player, err := s.Engine.JoinRoom(r.Context(), roomID, req.PlayerName, &userID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"player": player})
}

// RoomStateHandler serves the full authoritative room view. Clients call this
// after every change ping instead of trusting incremental updates.
func (s *Server) RoomStateHandler(w http.ResponseWriter, r *http.Request) {
	roomID, ok := parseUUIDField(w, "room_id", r.URL.Query().Get("room_id"))
	if !ok {
		return
	}
	state, err := s.Engine.GetRoomState(r.Context(), roomID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type roomActionRequest struct {
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
}

func (req *roomActionRequest) parse(w http.ResponseWriter) (roomID, playerID uuid.UUID, ok bool) {
	if roomID, ok = parseUUIDField(w, "room_id", req.RoomID); !ok {
		return
	}
	playerID, ok = parseUUIDField(w, "player_id", req.PlayerID)
	return
}

type setChipsRequest struct {
	roomActionRequest
	Amount int `json:"amount"`
}

// SetChipsHandler lets the host reset every seat's balance before the game
// starts.
func (s *Server) SetChipsHandler(w http.ResponseWriter, r *http.Request) {
	var req setChipsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	roomID, playerID, ok := req.parse(w)
	if !ok {
		return
	}

	if err := s.Engine.SetInitialChips(r.Context(), roomID, playerID, req.Amount); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// StartGameHandler begins round 1 with the host as parent.
func (s *Server) StartGameHandler(w http.ResponseWriter, r *http.Request) {
	var req roomActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	roomID, playerID, ok := req.parse(w)
	if !ok {
		return
	}

	result, err := s.Engine.StartGame(r.Context(), roomID, playerID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// LeaveRoomHandler removes a player immediately when the room is not mid-game;
// otherwise it tells the client to go through the leave-request vote.
func (s *Server) LeaveRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req roomActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	roomID, playerID, ok := req.parse(w)
	if !ok {
		return
	}

	result, err := s.Engine.LeaveRoom(r.Context(), roomID, playerID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
