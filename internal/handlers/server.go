// internal/handlers/server.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/chinchiro-io/chinchiro/internal/game"
)

// Server bundles the game engine and logger for the HTTP handlers. Handlers
// hold no game state; everything is re-derived from the store per request.
type Server struct {
	Engine *game.Engine
	Logger *logrus.Logger
}

// NewServer constructs a Server around an engine.
func NewServer(engine *game.Engine, logger *logrus.Logger) *Server {
	return &Server{Engine: engine, Logger: logger}
}

// writeJSON writes v as a JSON response body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeEngineError maps engine sentinel errors to HTTP statuses. Soft
// rejections never reach here; they come back as 200 bodies with a reason.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, game.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, game.ErrDuplicate):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.Logger.WithError(err).Error("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// parseUUIDField parses a required UUID string, writing a 400 on failure.
func parseUUIDField(w http.ResponseWriter, name, value string) (uuid.UUID, bool) {
	id, err := uuid.Parse(value)
	if err != nil {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
