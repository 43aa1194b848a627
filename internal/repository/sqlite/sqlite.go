package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ipnetlab/internal/domain"
	"ipnetlab/internal/repository"

	_ "modernc.org/sqlite"
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

var _ repository.Repository = (*Repository)(nil)

// New opens (creating if needed) the SQLite database at dbPath
func New(dbPath string) (*Repository, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps in-memory databases shared and serialises
	// writers
	db.SetMaxOpenConns(1)

	repo, err := NewWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// NewWithDB wraps an open database and migrates its schema
func NewWithDB(db *sql.DB) (*Repository, error) {
	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		topology TEXT NOT NULL,
		created_at TEXT NOT NULL,
		domain_count INTEGER NOT NULL DEFAULT 0,
		interface_count INTEGER NOT NULL DEFAULT 0,
		data JSON NOT NULL
	);

	CREATE TABLE IF NOT EXISTS addresses (
		snapshot_id INTEGER NOT NULL,
		address TEXT NOT NULL,
		node TEXT NOT NULL,
		PRIMARY KEY (snapshot_id, address),
		FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_topology ON snapshots(topology);
	CREATE INDEX IF NOT EXISTS idx_addresses_node ON addresses(node);
	`

	_, err := r.db.Exec(schema)
	return err
}

// SaveSnapshot stores a snapshot with its address index and returns its id.
// The snapshot's ID field is set on success.
func (r *Repository) SaveSnapshot(ctx context.Context, snap *domain.Snapshot) (int64, error) {
	args, err := snapshotInsertArgs(snap)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (topology, created_at, domain_count, interface_count, data)
		VALUES (?, ?, ?, ?, ?)
	`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read snapshot id: %w", err)
	}

	addrStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO addresses (snapshot_id, address, node) VALUES (?, ?, ?)
		ON CONFLICT(snapshot_id, address) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare address statement: %w", err)
	}
	defer addrStmt.Close()

	for _, e := range snap.Registry {
		if _, err := addrStmt.ExecContext(ctx, id, e.Address, e.Node); err != nil {
			return 0, fmt.Errorf("failed to insert address %s: %w", e.Address, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	snap.ID = id
	return id, nil
}

// GetSnapshot loads a snapshot by id
func (r *Repository) GetSnapshot(ctx context.Context, id int64) (*domain.Snapshot, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM snapshots WHERE id = ?`, id)
	return scanSnapshot(row)
}

// LatestSnapshot loads the most recently saved snapshot
func (r *Repository) LatestSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM snapshots ORDER BY id DESC LIMIT 1`)
	return scanSnapshot(row)
}

func scanSnapshot(row *sql.Row) (*domain.Snapshot, error) {
	var sr snapshotRow
	if err := row.Scan(sr.scanArgs()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}
	return sr.toDomain()
}

// ListSnapshots returns the newest snapshots first. A limit of zero or less
// lists all of them.
func (r *Repository) ListSnapshots(ctx context.Context, limit int) ([]domain.SnapshotSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, topology, created_at, domain_count, interface_count
		FROM snapshots ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []domain.SnapshotSummary
	for rows.Next() {
		var (
			s       domain.SnapshotSummary
			created string
		)
		if err := rows.Scan(&s.ID, &s.Topology, &created, &s.Domains, &s.Interfaces); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if s.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return out, nil
}

// DeleteSnapshot removes a snapshot and its address index
func (r *Repository) DeleteSnapshot(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM addresses WHERE snapshot_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete addresses: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LookupAddress returns the node owning addr in a snapshot, the latest one
// when snapshotID is zero
func (r *Repository) LookupAddress(ctx context.Context, snapshotID int64, addr string) (string, error) {
	if snapshotID == 0 {
		err := r.db.QueryRowContext(ctx, `SELECT id FROM snapshots ORDER BY id DESC LIMIT 1`).Scan(&snapshotID)
		if errors.Is(err, sql.ErrNoRows) {
			return "", repository.ErrNotFound
		}
		if err != nil {
			return "", fmt.Errorf("failed to find latest snapshot: %w", err)
		}
	}

	var node string
	err := r.db.QueryRowContext(ctx, `
		SELECT node FROM addresses WHERE snapshot_id = ? AND address = ?
	`, snapshotID, domain.NormalizeAddress(addr)).Scan(&node)
	if errors.Is(err, sql.ErrNoRows) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up %s: %w", addr, err)
	}
	return node, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
