package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stephenmkbrady/universal-bot-plugins/internal/domain"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/ports"
)

// RoomCache keeps the most recent VideoStates per room in memory.
// Entries expire a TTL after creation and are purged lazily whenever a
// room is touched; capacity eviction removes the oldest entry by
// creation time. Each room has its own lock, so pipelines for different
// rooms never contend.
type RoomCache struct {
	mu    sync.RWMutex
	rooms map[string]*room
	max   int
	ttl   time.Duration
	now   func() time.Time
}

type room struct {
	mu      sync.Mutex
	entries []domain.VideoState // insertion order
}

var _ ports.VideoCache = (*RoomCache)(nil)

// New builds a cache with the given per-room capacity and TTL. The now
// function is injected so expiry is testable without real delays; pass
// nil for time.Now.
func New(maxPerRoom int, ttl time.Duration, now func() time.Time) *RoomCache {
	if maxPerRoom <= 0 {
		maxPerRoom = 5
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &RoomCache{rooms: map[string]*room{}, max: maxPerRoom, ttl: ttl, now: now}
}

// Put inserts a new entry for the state's room, evicting the oldest
// entry by creation timestamp once the room is at capacity. Purge,
// eviction, and insertion happen as one atomic unit under the room lock.
func (c *RoomCache) Put(_ context.Context, state domain.VideoState) error {
	if state.Room == "" || state.VideoID == "" {
		return fmt.Errorf("cache put: missing room or video id: %w", domain.ErrInvalidInput)
	}

	r := c.room(state.Room, true)
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = c.withoutExpired(r.entries)
	for len(r.entries) >= c.max {
		r.entries = removeOldest(r.entries)
	}
	r.entries = append(r.entries, state)
	return nil
}

// Latest returns the most recently inserted non-expired entry for a room.
func (c *RoomCache) Latest(_ context.Context, roomID string) (domain.VideoState, error) {
	r := c.room(roomID, false)
	if r == nil {
		return domain.VideoState{}, fmt.Errorf("cache latest: room %s: %w", roomID, domain.ErrNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = c.withoutExpired(r.entries)
	if len(r.entries) == 0 {
		return domain.VideoState{}, fmt.Errorf("cache latest: room %s: %w", roomID, domain.ErrNotFound)
	}
	return r.entries[len(r.entries)-1], nil
}

// ByVideoID returns a specific non-expired entry for a room.
func (c *RoomCache) ByVideoID(_ context.Context, roomID, videoID string) (domain.VideoState, error) {
	r := c.room(roomID, false)
	if r == nil {
		return domain.VideoState{}, fmt.Errorf("cache lookup: room %s: %w", roomID, domain.ErrNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = c.withoutExpired(r.entries)
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].VideoID == videoID {
			return r.entries[i], nil
		}
	}
	return domain.VideoState{}, fmt.Errorf("cache lookup: video %s in room %s: %w", videoID, roomID, domain.ErrNotFound)
}

// Sweep drops expired entries from every room and returns how many were
// removed. Reads are already expiry-safe; this only bounds memory
// between touches.
func (c *RoomCache) Sweep() int {
	c.mu.RLock()
	rooms := make([]*room, 0, len(c.rooms))
	for _, r := range c.rooms {
		rooms = append(rooms, r)
	}
	c.mu.RUnlock()

	removed := 0
	for _, r := range rooms {
		r.mu.Lock()
		before := len(r.entries)
		r.entries = c.withoutExpired(r.entries)
		removed += before - len(r.entries)
		r.mu.Unlock()
	}
	return removed
}

func (c *RoomCache) room(roomID string, create bool) *room {
	c.mu.RLock()
	r, ok := c.rooms[roomID]
	c.mu.RUnlock()
	if ok || !create {
		return r
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.rooms[roomID]; ok {
		return r
	}
	r = &room{}
	c.rooms[roomID] = r
	return r
}

func (c *RoomCache) expired(state domain.VideoState) bool {
	return c.now().Sub(state.CreatedAt) >= c.ttl
}

func (c *RoomCache) withoutExpired(entries []domain.VideoState) []domain.VideoState {
	kept := entries[:0]
	for _, e := range entries {
		if !c.expired(e) {
			kept = append(kept, e)
		}
	}
	return kept
}

func removeOldest(entries []domain.VideoState) []domain.VideoState {
	if len(entries) == 0 {
		return entries
	}
	oldest := 0
	for i, e := range entries {
		if e.CreatedAt.Before(entries[oldest].CreatedAt) {
			oldest = i
		}
	}
	return append(entries[:oldest], entries[oldest+1:]...)
}
