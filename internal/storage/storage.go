package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a reference does not resolve to a stored file.
var ErrNotFound = errors.New("attachment not found")

// BlobStore persists attachment payloads under unique references. Stored
// payloads are immutable; two stores never overwrite each other even with
// colliding suggested names.
type BlobStore interface {
	// Store persists payload and returns the reference it can be
	// retrieved under. The write is durable before Store returns.
	Store(ctx context.Context, payload []byte, suggestedName string) (string, error)

	// Delete removes the file. Deleting an absent reference is not an
	// error, so cascade deletes can retry safely.
	Delete(ctx context.Context, reference string) error

	// Retrieve returns the stored payload or ErrNotFound.
	Retrieve(ctx context.Context, reference string) ([]byte, error)

	// ListOlderThan returns references whose files were stored before
	// cutoff. Used by the orphan sweep.
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
}
