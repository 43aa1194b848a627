package repository

import (
	"context"
	"errors"

	"ipnetlab/internal/domain"
)

// ErrNotFound is returned when a snapshot or address does not exist
var ErrNotFound = errors.New("not found")

// Repository defines the interface for snapshot persistence
type Repository interface {
	// Write operations
	SaveSnapshot(ctx context.Context, snap *domain.Snapshot) (int64, error)
	DeleteSnapshot(ctx context.Context, id int64) error

	// Read operations
	GetSnapshot(ctx context.Context, id int64) (*domain.Snapshot, error)
	LatestSnapshot(ctx context.Context) (*domain.Snapshot, error)
	ListSnapshots(ctx context.Context, limit int) ([]domain.SnapshotSummary, error)

	// LookupAddress returns the node owning an address, given bare or in
	// CIDR form, in a snapshot. A zero id means the latest snapshot.
	LookupAddress(ctx context.Context, snapshotID int64, addr string) (string, error)

	// Close releases resources
	Close() error
}
