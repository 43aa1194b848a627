// Package repository defines the data access interfaces for ipnetlab.
//
// Allocation runs are stored as snapshots: the full serialised result plus
// an address index used to answer "which node owns this address" without
// decoding whole snapshots. The actual implementation is in the sqlite
// subpackage.
//
// # SQLite Implementation
//
// The sqlite implementation keeps one row per snapshot, with the snapshot
// as JSON and its identifying fields in indexed columns, and one row per
// registry key. Saving is transactional: a snapshot is stored with its
// whole address index or not at all.
//
// # Testing
//
// The sqlite repository is tested against in-memory databases, and
// against go-sqlmock for driver failures.
package repository
