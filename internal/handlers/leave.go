// internal/handlers/leave.go
package handlers

import (
	"encoding/json"
	"net/http"
)

// RequestLeaveHandler opens a mid-game leave request that the other players
// vote on. Outside a game the player is removed immediately.
func (s *Server) RequestLeaveHandler(w http.ResponseWriter, r *http.Request) {
	var req roomActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	roomID, playerID, ok := req.parse(w)
	if !ok {
		return
	}

	result, err := s.Engine.RequestLeave(r.Context(), roomID, playerID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type voteLeaveRequest struct {
	RequestID string `json:"request_id"`
	VoterID   string `json:"voter_id"`
	Approve   bool   `json:"approve"`
}

// VoteLeaveHandler records one player's vote on a pending leave request. A
// single rejection finalizes the request; unanimous approval removes the
// requester.
func (s *Server) VoteLeaveHandler(w http.ResponseWriter, r *http.Request) {
	var req voteLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	requestID, ok := parseUUIDField(w, "request_id", req.RequestID)
	if !ok {
		return
	}
	voterID, ok := parseUUIDField(w, "voter_id", req.VoterID)
	if !ok {
		return
	}

	result, err := s.Engine.VoteLeave(r.Context(), requestID, voterID, req.Approve)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
