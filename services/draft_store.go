package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"perfect-slate/slate"

	"github.com/redis/go-redis/v9"
)

// DraftStore persists in-progress slates per (user, contest). Load returns
// nil, nil when no draft exists.
type DraftStore interface {
	Load(ctx context.Context, userID string, contestID int64) (*slate.State, error)
	Save(ctx context.Context, userID string, contestID int64, state slate.State) error
	Delete(ctx context.Context, userID string, contestID int64) error
}

func draftKey(userID string, contestID int64) string {
	return fmt.Sprintf("draft:%s:%d", userID, contestID)
}

// RedisDraftStore keeps drafts as JSON strings with a TTL
type RedisDraftStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDraftStore(client *redis.Client, ttl time.Duration) *RedisDraftStore {
	return &RedisDraftStore{client: client, ttl: ttl}
}

func (s *RedisDraftStore) Load(ctx context.Context, userID string, contestID int64) (*slate.State, error) {
	data, err := s.client.Get(ctx, draftKey(userID, contestID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading draft: %w", err)
	}

	var state slate.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decoding draft: %w", err)
	}
	return &state, nil
}

func (s *RedisDraftStore) Save(ctx context.Context, userID string, contestID int64, state slate.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding draft: %w", err)
	}
	return s.client.Set(ctx, draftKey(userID, contestID), data, s.ttl).Err()
}

func (s *RedisDraftStore) Delete(ctx context.Context, userID string, contestID int64) error {
	return s.client.Del(ctx, draftKey(userID, contestID)).Err()
}

// MemoryDraftStore keeps drafts in process memory, for development without Redis
type MemoryDraftStore struct {
	mu     sync.RWMutex
	drafts map[string]slate.State
}

func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{drafts: make(map[string]slate.State)}
}

func (s *MemoryDraftStore) Load(ctx context.Context, userID string, contestID int64) (*slate.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.drafts[draftKey(userID, contestID)]
	if !ok {
		return nil, nil
	}
	state = copyState(state)
	return &state, nil
}

func (s *MemoryDraftStore) Save(ctx context.Context, userID string, contestID int64, state slate.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[draftKey(userID, contestID)] = copyState(state)
	return nil
}

func copyState(state slate.State) slate.State {
	state.Picks = append(state.Picks[:0:0], state.Picks...)
	state.TokenGames = append(state.TokenGames[:0:0], state.TokenGames...)
	return state
}

func (s *MemoryDraftStore) Delete(ctx context.Context, userID string, contestID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, draftKey(userID, contestID))
	return nil
}
