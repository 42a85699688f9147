package session

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no live session exists for the ID.
var ErrNotFound = errors.New("session not found")

// Repo persists whole session records. Upsert replaces the record in one
// write so readers never observe a half-updated token pair.
type Repo interface {
	Upsert(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}
