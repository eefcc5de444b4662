// Package repository implements the metadata store over SQLite.
package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/danjsiegel/ducksync/internal/domain"
)

// Metastore is the SQLite-backed catalog of sources, caches, and cache state.
// Upserts are implemented as delete+insert inside a transaction: SQLite's
// ON CONFLICT would serve for the simple columns, but full-row replacement is
// the contract (old row removed, new row inserted) and the transaction closes
// the race window the two statements would otherwise open.
type Metastore struct {
	db *sql.DB
}

// Compile-time interface check.
var _ domain.MetadataStore = (*Metastore)(nil)

// NewMetastore creates a Metastore over the given SQLite connection. The
// connection must have foreign keys enabled (see Open).
func NewMetastore(db *sql.DB) *Metastore {
	return &Metastore{db: db}
}

// Open opens the SQLite metadata database at path with foreign-key
// enforcement on, so source deletion cascades to caches and state.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open metastore %s: %w", path, err)
	}
	return db, nil
}

// inTx runs fn inside a transaction, committing on nil error.
func (m *Metastore) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := m.db.Begin()
	if err != nil {
		return domain.ErrStorage(err, "begin metastore transaction: %v", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return domain.ErrStorage(err, "commit metastore transaction: %v", err)
	}
	return nil
}

func encodeMonitorTables(tables []string) (string, error) {
	b, err := json.Marshal(tables)
	if err != nil {
		return "", domain.ErrStorage(err, "encode monitor_tables: %v", err)
	}
	return string(b), nil
}

func decodeMonitorTables(raw string) ([]string, error) {
	var tables []string
	if err := json.Unmarshal([]byte(raw), &tables); err != nil {
		return nil, domain.ErrStorage(err, "decode monitor_tables: %v", err)
	}
	return tables, nil
}
