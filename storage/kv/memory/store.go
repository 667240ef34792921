package memkv

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/prox/core"
)

var nowFunc = time.Now // for tests

type entry struct {
	value     string
	expiresAt time.Time // zero: never
}

// Store is a process-local core.KVStore. Entries are dropped `ttl` after their last Set when ttl > 0.
type Store struct {
	mu   sync.RWMutex
	ttl  time.Duration
	data map[string]entry
}

var _ core.KVStore = (*Store)(nil)

func New(ttl time.Duration) *Store {
	return &Store{ttl: ttl, data: make(map[string]entry)}
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	e := entry{value: value}
	if s.ttl > 0 {
		e.expiresAt = nowFunc().Add(s.ttl)
	}
	s.mu.Lock()
	s.data[key] = e
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if now := nowFunc(); e.expired(now) {
		s.dropExpired(key, now)
		return "", false, nil
	}
	return e.value, true, nil
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// dropExpired removes `key` if it is still expired at `now`: a Set since the read is kept.
func (s *Store) dropExpired(key string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.data[key]; ok && e.expired(now) {
		delete(s.data, key)
	}
}

func (s *Store) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
