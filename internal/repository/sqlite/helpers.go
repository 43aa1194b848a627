package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"ipnetlab/internal/domain"
)

// ============================================================================
// Time Helpers
// ============================================================================

// timestamps are stored as RFC 3339 text so that every driver reads them back
// the same way

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

// ============================================================================
// Snapshot Row Scanner
// ============================================================================
//
// CRITICAL: Column order must match between snapshotColumns, scanArgs() and
// snapshotInsertArgs() (minus the id).

const snapshotColumns = `id, topology, created_at, data`

// snapshotRow holds all columns from a snapshot query for scanning
type snapshotRow struct {
	ID        int64
	Topology  string
	CreatedAt string
	Data      []byte
}

// scanArgs returns pointers to all fields for sql.Scan()
func (r *snapshotRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,        // 1
		&r.Topology,  // 2
		&r.CreatedAt, // 3
		&r.Data,      // 4
	}
}

// toDomain converts the scanned row to a domain.Snapshot. The indexed
// columns win over the JSON document.
func (r *snapshotRow) toDomain() (*domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := json.Unmarshal(r.Data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %d: %w", r.ID, err)
	}

	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return nil, err
	}

	snap.ID = r.ID
	snap.Topology = r.Topology
	snap.CreatedAt = created
	return &snap, nil
}

// snapshotInsertArgs returns the arguments of the snapshot INSERT:
// topology, created_at, domain_count, interface_count, data
func snapshotInsertArgs(snap *domain.Snapshot) ([]interface{}, error) {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return []interface{}{
		snap.Topology,
		formatTime(snap.CreatedAt),
		len(snap.Domains),
		len(snap.Interfaces),
		data,
	}, nil
}
