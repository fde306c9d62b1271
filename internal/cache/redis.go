// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/chinchiro-io/chinchiro/internal/game"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for settlement records.
var DefaultQueueName = "chinchiro_settlements"

// RoomEvent is the payload published on a room's pub/sub channel. It carries
// no game state; clients re-fetch the authoritative room state on receipt.
type RoomEvent struct {
	RoomID    uuid.UUID `json:"room_id"`
	Event     string    `json:"event"`
	Timestamp int64     `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// RoomChannel returns the pub/sub channel name for a room.
func RoomChannel(roomID uuid.UUID) string {
	return "room:" + roomID.String()
}

// PublishRoomChange fans a change ping out to every connection subscribed to
// the room. Best effort; a dropped ping only delays the next reconcile.
func PublishRoomChange(ctx context.Context, roomID uuid.UUID, event string) error {
	data, err := json.Marshal(RoomEvent{
		RoomID:    roomID,
		Event:     event,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal RoomEvent: %w", err)
	}
	if err := Rdb.Publish(ctx, RoomChannel(roomID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish to '%s': %w", RoomChannel(roomID), err)
	}
	return nil
}

// SubscribeRoom opens a pub/sub subscription on the room's channel. The caller
// owns the returned subscription and must Close it.
func SubscribeRoom(ctx context.Context, roomID uuid.UUID) *redis.PubSub {
	return Rdb.Subscribe(ctx, RoomChannel(roomID))
}

// PublishSettlementRecord serializes the record to JSON, then pushes it to the
// historian queue. This does not block the settling request beyond one network
// send.
func PublishSettlementRecord(ctx context.Context, record game.SettlementRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal SettlementRecord: %w", err)
	}

	queueName := getEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
