package storage

import (
	"context"

	"listing-delta/models"
)

// SnapshotStore persists the record set of the previous run. Save replaces
// the stored snapshot as a whole; Load on a store that has never been
// written returns an empty set and no error.
type SnapshotStore interface {
	Load(ctx context.Context) ([]*models.Listing, error)
	Save(ctx context.Context, listings []*models.Listing) error
	Close() error
}

// ListingExporter writes listings to a human-facing output.
type ListingExporter interface {
	Export(listings []*models.Listing) error
	Close() error
}
