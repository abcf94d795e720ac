// Package store persists playback resume records. The session treats the
// store as an eventually-consistent key-value collaborator: full-snapshot
// writes, last-write-wins, no versioning.
package store

import (
	"context"

	"oriontv/internal/media"
)

// Store is keyed by (source, contentID). Get returns (nil, nil) when no
// record exists.
type Store interface {
	Get(ctx context.Context, source, contentID string) (*media.PlayRecord, error)
	Save(ctx context.Context, source, contentID string, rec media.PlayRecord) error
	Remove(ctx context.Context, source, contentID string) error
	List(ctx context.Context) ([]ListedRecord, error)
}

// ListedRecord pairs a record with its key, for history listings.
type ListedRecord struct {
	Source    string
	ContentID string
	Record    media.PlayRecord
}
