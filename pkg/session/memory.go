package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/voyagenthq/voyagent/pkg/logger"
)

// memoryStore is the ephemeral backend: a map with per-entry expiry.
// Suitable for single-instance deployments and tests. Entries are
// stored as JSON snapshots so callers get the same isolation as the
// redis and sqlite backends: mutating a returned state changes nothing
// until the next Put.
type memoryStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	sessions map[string]*memoryEntry
}

type memoryEntry struct {
	raw       []byte
	expiresAt time.Time
}

func newMemoryStore(ttl time.Duration) *memoryStore {
	return &memoryStore{
		ttl:      ttl,
		sessions: make(map[string]*memoryEntry),
	}
}

func (s *memoryStore) Get(ctx context.Context, sessionID string) (*ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return nil, nil
	}

	var state ConversationState
	if err := json.Unmarshal(entry.raw, &state); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &state, nil
}

func (s *memoryStore) Put(ctx context.Context, state *ConversationState) error {
	state.UpdatedAt = time.Now()
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", state.SessionID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &memoryEntry{raw: raw}
	if s.ttl > 0 {
		entry.expiresAt = time.Now().Add(s.ttl)
	}
	s.sessions[state.SessionID] = entry
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = nil
	return nil
}

// StartEviction runs the TTL sweep until ctx is cancelled. Expired
// entries are already invisible to Get; the sweep reclaims the memory.
func (s *memoryStore) StartEviction(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				evicted := s.evictExpired()
				if evicted > 0 {
					logger.DebugCF("session", "Evicted expired conversations", map[string]any{
						"count": evicted,
					})
				}
			}
		}
	}()
}

func (s *memoryStore) evictExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	evicted := 0
	for id, entry := range s.sessions {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}
