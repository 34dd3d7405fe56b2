// Package rediscache is a Redis-backed alternative to the in-memory
// room cache, for deployments where summaries must survive restarts.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stephenmkbrady/universal-bot-plugins/internal/domain"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/ports"
)

// Cache stores each room's entries as a Redis list of JSON states,
// newest at the tail. The room key expires TTL after the last write;
// individual entries are additionally checked against their creation
// time on read, matching the in-memory backend's semantics.
type Cache struct {
	client *redis.Client
	max    int
	ttl    time.Duration
	now    func() time.Time
}

var _ ports.VideoCache = (*Cache)(nil)

// New wires a Redis client with the room capacity and entry TTL.
func New(client *redis.Client, maxPerRoom int, ttl time.Duration) *Cache {
	if maxPerRoom <= 0 {
		maxPerRoom = 5
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{client: client, max: maxPerRoom, ttl: ttl, now: time.Now}
}

// Connect dials Redis at the given address.
func Connect(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

func roomKey(room string) string {
	return "videosummary:room:" + room
}

// Put appends the state to the room's list and trims it to capacity.
func (c *Cache) Put(ctx context.Context, state domain.VideoState) error {
	if state.Room == "" || state.VideoID == "" {
		return fmt.Errorf("cache put: missing room or video id: %w", domain.ErrInvalidInput)
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	key := roomKey(state.Room)
	pipe := c.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, int64(-c.max), -1)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache put %s: %w", state.VideoID, err)
	}

	return nil
}

// Latest returns the most recent live entry for the room.
func (c *Cache) Latest(ctx context.Context, room string) (domain.VideoState, error) {
	return c.find(ctx, room, func(domain.VideoState) bool { return true })
}

// ByVideoID returns the most recent live entry for the video in the room.
func (c *Cache) ByVideoID(ctx context.Context, room, videoID string) (domain.VideoState, error) {
	return c.find(ctx, room, func(s domain.VideoState) bool { return s.VideoID == videoID })
}

func (c *Cache) find(ctx context.Context, room string, match func(domain.VideoState) bool) (domain.VideoState, error) {
	entries, err := c.client.LRange(ctx, roomKey(room), 0, -1).Result()
	if err != nil {
		return domain.VideoState{}, fmt.Errorf("cache read %s: %w", room, err)
	}

	now := c.now()
	for i := len(entries) - 1; i >= 0; i-- {
		var state domain.VideoState
		if err := json.Unmarshal([]byte(entries[i]), &state); err != nil {
			continue
		}
		if now.Sub(state.CreatedAt) >= c.ttl {
			continue
		}
		if match(state) {
			return state, nil
		}
	}

	return domain.VideoState{}, domain.ErrNotFound
}
