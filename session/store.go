package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is the handle a request uses to read and mutate one browser's
// session. It is bound to a single session ID and performs whole-record
// writes against the Repo, so the token pair is never visible half
// updated. Stores are cheap: any number of them may be bound to the same
// ID at once.
type Store struct {
	repo Repo
	id   string
	ttl  time.Duration
}

// New mints a Store for a brand new session. Nothing is persisted until
// the first Save.
func New(repo Repo, ttl time.Duration) *Store {
	return &Store{repo: repo, id: uuid.New().String(), ttl: ttl}
}

// Open binds a Store to an existing session ID, typically the value of
// the browser's session cookie.
func Open(repo Repo, id string, ttl time.Duration) *Store {
	return &Store{repo: repo, id: id, ttl: ttl}
}

// ID returns the opaque session identifier handed to the browser.
func (s *Store) ID() string {
	return s.id
}

// Save persists both tokens in one write. An existing profile snapshot is
// carried over, so a token rotation never drops the user.
func (s *Store) Save(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken == "" || refreshToken == "" {
		return fmt.Errorf("both tokens are required")
	}

	current, err := s.repo.Get(ctx, s.id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("load session: %w", err)
	}

	now := time.Now()
	next := Session{
		ID:           s.id,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         current.User,
		CreatedAt:    current.CreatedAt,
		ExpiresAt:    now.Add(s.ttl),
	}
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}

	return s.repo.Upsert(ctx, next)
}

// SaveUser persists the profile snapshot without touching the tokens.
// The session must already hold a token pair; a profile with no tokens
// is not a session.
func (s *Store) SaveUser(ctx context.Context, u User) error {
	current, err := s.repo.Get(ctx, s.id)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	current.User = &u
	return s.repo.Upsert(ctx, current)
}

// AccessToken returns the stored access token, when one is present.
func (s *Store) AccessToken(ctx context.Context) (string, bool) {
	sess, err := s.repo.Get(ctx, s.id)
	if err != nil || sess.AccessToken == "" {
		return "", false
	}
	return sess.AccessToken, true
}

// RefreshToken returns the stored refresh token, when one is present.
func (s *Store) RefreshToken(ctx context.Context) (string, bool) {
	sess, err := s.repo.Get(ctx, s.id)
	if err != nil || sess.RefreshToken == "" {
		return "", false
	}
	return sess.RefreshToken, true
}

// User returns the cached profile snapshot, when one is present.
func (s *Store) User(ctx context.Context) (User, bool) {
	sess, err := s.repo.Get(ctx, s.id)
	if err != nil || sess.User == nil {
		return User{}, false
	}
	return *sess.User, true
}

// IsAuthenticated reports whether an access token is stored. This is a
// presence check only: whether the token is still good is decided by the
// backend the next time it is used.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	_, ok := s.AccessToken(ctx)
	return ok
}

// Clear removes the whole session record, tokens and profile together.
// Clearing a session that does not exist is not an error.
func (s *Store) Clear(ctx context.Context) error {
	return s.repo.Delete(ctx, s.id)
}
