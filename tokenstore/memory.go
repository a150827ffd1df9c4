package tokenstore

import (
	"sync"
	"time"
)

// MemoryStore keeps the credential in process memory. Suitable for tests and
// for one-shot CLI invocations where durability across restarts is not needed.
type MemoryStore struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time

	ttl     time.Duration
	nowTime func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryNowTime sets the now time function (primarily for testing).
func WithMemoryNowTime(nowFunc func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.nowTime = nowFunc
	}
}

// WithMemoryTTL overrides the credential window.
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore(options ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		ttl:     DefaultTTL,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Store persists the token with the fixed expiry window.
func (s *MemoryStore) Store(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expiresAt = expiryFor(token, s.nowTime(), s.ttl)
}

// Get returns the token, or the empty string when absent or expired.
func (s *MemoryStore) Get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" || s.nowTime().After(s.expiresAt) {
		return ""
	}
	return s.token
}

// Remove deletes the token unconditionally.
func (s *MemoryStore) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expiresAt = time.Time{}
}
