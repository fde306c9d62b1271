// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/chinchiro-io/chinchiro/internal/auth"
	"github.com/chinchiro-io/chinchiro/internal/cache"
	"github.com/chinchiro-io/chinchiro/internal/database"
	"github.com/chinchiro-io/chinchiro/internal/game"
	"github.com/chinchiro-io/chinchiro/internal/handlers"
	"github.com/chinchiro-io/chinchiro/internal/middleware"
)

func main() {
	auth.Init()
	database.ConnectDB()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if err := cache.ConnectRedis(); err != nil {
		log.Fatalf("redis: %v", err)
	}

	store := database.NewStore(database.DB)
	engine := game.NewEngine(store, logger)
	engine.NotifyFn = func(ctx context.Context, roomID uuid.UUID, event string) {
		if err := cache.PublishRoomChange(ctx, roomID, event); err != nil {
			logger.WithError(err).Warn("failed to publish room change")
		}
	}
	engine.PublishSettlementFn = func(ctx context.Context, rec game.SettlementRecord) {
		if err := cache.PublishSettlementRecord(ctx, rec); err != nil {
			logger.WithError(err).Warn("failed to enqueue settlement record")
		}
	}

	srv := handlers.NewServer(engine, logger)
	logged := middleware.LogMiddleware(logger)

	mux := http.NewServeMux()

	// user endpoints
	mux.HandleFunc("/user/create", handlers.CreateUserHandler)
	mux.HandleFunc("/user/login", handlers.LoginHandler)

	// room endpoints
	mux.Handle("/room/create", logged(http.HandlerFunc(srv.CreateRoomHandler)))
	mux.Handle("/room/join", logged(http.HandlerFunc(srv.JoinRoomHandler)))
	mux.Handle("/room/state", logged(http.HandlerFunc(srv.RoomStateHandler)))
	mux.Handle("/room/chips", logged(http.HandlerFunc(srv.SetChipsHandler)))
	mux.Handle("/room/start", logged(http.HandlerFunc(srv.StartGameHandler)))
	mux.Handle("/room/leave", logged(http.HandlerFunc(srv.LeaveRoomHandler)))

	// room change feed
	mux.Handle("/room/ws/", logged(http.HandlerFunc(
		handlers.RoomWSHandler(logger, srv),
	)))

	// round endpoints
	mux.Handle("/game/bet", logged(http.HandlerFunc(srv.PlaceBetHandler)))
	mux.Handle("/game/roll", logged(http.HandlerFunc(srv.RollDiceHandler)))
	mux.Handle("/game/settle", logged(http.HandlerFunc(srv.SettleRoundHandler)))

	// leave consensus
	mux.Handle("/leave/request", logged(http.HandlerFunc(srv.RequestLeaveHandler)))
	mux.Handle("/leave/vote", logged(http.HandlerFunc(srv.VoteLeaveHandler)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
