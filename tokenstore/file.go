package tokenstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// FileStore persists the credential to disk so a portal restart resumes the
// session, the way a browser keeps its cookie across page reloads. The file is
// created 0600; its parent directory 0700.
type FileStore struct {
	mu      sync.Mutex
	path    string
	ttl     time.Duration
	nowTime func() time.Time
	log     zerolog.Logger
}

// storedToken is the on-disk representation.
type storedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithFileNowTime sets the now time function (primarily for testing).
func WithFileNowTime(nowFunc func() time.Time) FileOption {
	return func(s *FileStore) {
		s.nowTime = nowFunc
	}
}

// WithFileTTL overrides the credential window.
func WithFileTTL(ttl time.Duration) FileOption {
	return func(s *FileStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithFileLogger sets the logger used for persistence failures. Store cannot
// fail observably to its caller, so write errors are only ever logged.
func WithFileLogger(log zerolog.Logger) FileOption {
	return func(s *FileStore) {
		s.log = log
	}
}

// NewFileStore creates a credential store backed by the file at path.
func NewFileStore(path string, options ...FileOption) *FileStore {
	s := &FileStore{
		path:    path,
		ttl:     DefaultTTL,
		nowTime: time.Now,
		log:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Store persists the token with the fixed expiry window.
func (s *FileStore) Store(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := storedToken{
		Token:     token,
		ExpiresAt: expiryFor(token, s.nowTime(), s.ttl),
	}
	data, err := json.Marshal(record)
	if err != nil {
		s.log.Debug().Err(err).Msg("tokenstore: marshal failed")
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		s.log.Debug().Err(err).Str("path", s.path).Msg("tokenstore: mkdir failed")
		return
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		s.log.Debug().Err(err).Str("path", s.path).Msg("tokenstore: write failed")
	}
}

// Get returns the token, or the empty string when absent, unreadable,
// corrupt, or expired.
func (s *FileStore) Get() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return ""
	}
	var record storedToken
	if err := json.Unmarshal(data, &record); err != nil {
		s.log.Debug().Err(err).Str("path", s.path).Msg("tokenstore: corrupt token file")
		return ""
	}
	if record.Token == "" || s.nowTime().After(record.ExpiresAt) {
		return ""
	}
	return record.Token
}

// Remove deletes the token file. Idempotent.
func (s *FileStore) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.log.Debug().Err(err).Str("path", s.path).Msg("tokenstore: remove failed")
	}
}
