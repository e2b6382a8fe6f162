package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultAuthSessionTTL bounds how long an authorization round trip may take
// before the stashed state is considered abandoned.
const DefaultAuthSessionTTL = 10 * time.Minute

// MemoryAuthSessionStore keeps CSRF records in process memory, keyed by
// profile so each profile has at most one pending round trip. Records are
// single use: Consume removes the record before the caller inspects it.
type MemoryAuthSessionStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	records map[string]AuthSessionRecord
}

// NewMemoryAuthSessionStore builds an in-memory store with the supplied TTL.
// Non-positive TTLs fall back to DefaultAuthSessionTTL.
func NewMemoryAuthSessionStore(ttl time.Duration) *MemoryAuthSessionStore {
	if ttl <= 0 {
		ttl = DefaultAuthSessionTTL
	}

	return &MemoryAuthSessionStore{
		ttl:     ttl,
		now:     time.Now,
		records: map[string]AuthSessionRecord{},
	}
}

func (s *MemoryAuthSessionStore) Save(ctx context.Context, record AuthSessionRecord) error {
	if s == nil {
		return goerrors.New("core: auth session store is nil", goerrors.CategoryInternal)
	}

	state := strings.TrimSpace(record.State)
	if state == "" {
		return goerrors.New("core: auth session state is required", goerrors.CategoryBadInput)
	}
	profileID := strings.TrimSpace(record.ProfileID)
	if profileID == "" {
		return goerrors.New("core: auth session profile id is required", goerrors.CategoryBadInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	if record.ExpiresAt.IsZero() {
		record.ExpiresAt = record.CreatedAt.Add(s.ttl)
	}

	record.State = state
	record.ProfileID = profileID
	// A repeat Begin for the same profile supersedes the earlier attempt.
	s.records[profileID] = record

	return nil
}

func (s *MemoryAuthSessionStore) Consume(ctx context.Context, profileID string) (AuthSessionRecord, error) {
	if s == nil {
		return AuthSessionRecord{}, goerrors.New("core: auth session store is nil", goerrors.CategoryInternal)
	}

	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return AuthSessionRecord{}, goerrors.New("core: auth session profile id is required", goerrors.CategoryBadInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[profileID]
	if !ok {
		return AuthSessionRecord{}, ErrAuthSessionNotFound
	}

	delete(s.records, profileID)

	if !record.ExpiresAt.IsZero() && s.now().After(record.ExpiresAt) {
		return AuthSessionRecord{}, ErrAuthSessionExpired
	}

	return record, nil
}

// generateAuthState produces an unguessable CSRF state token.
func generateAuthState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "core: generate auth state")
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
