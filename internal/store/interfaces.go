package store

import (
	"context"
	"errors"

	"github.com/YushiOMOTE/buddy/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrConflict is returned by Put when the stored version no longer matches the
// version the log was loaded at. The caller should reload and retry.
var ErrConflict = errors.New("version conflict")

// ConversationStore persists whole conversation logs keyed by conversation id.
type ConversationStore interface {
	// Get returns the stored log or ErrNotFound.
	Get(ctx context.Context, id string) (*model.ConversationLog, error)
	// Put overwrites the stored document for log.ID if its version still
	// equals log.Version, then advances log.Version.
	Put(ctx context.Context, log *model.ConversationLog) error
}
