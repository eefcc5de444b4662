package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/danjsiegel/ducksync/internal/domain"
)

// CreateSource upserts a source definition. The existing row, if any, is
// removed first; deleting it cascades to the source's caches and their state.
func (m *Metastore) CreateSource(ctx context.Context, src *domain.SourceDefinition) error {
	if err := src.Validate(); err != nil {
		return err
	}

	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now().UTC()
	}

	return m.inTx(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM sources WHERE source_name = ?`, src.SourceName); err != nil {
			return domain.ErrStorage(err, "delete source %q: %v", src.SourceName, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sources (source_name, driver_kind, credential_ref, passthrough_enabled, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			src.SourceName, src.DriverKind, src.CredentialRef, src.PassthroughEnabled, src.CreatedAt); err != nil {
			return domain.ErrStorage(err, "insert source %q: %v", src.SourceName, err)
		}
		return nil
	})
}

// GetSource loads a source definition by name.
func (m *Metastore) GetSource(ctx context.Context, sourceName string) (*domain.SourceDefinition, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT source_name, driver_kind, credential_ref, passthrough_enabled, created_at
		 FROM sources WHERE source_name = ?`, sourceName)

	var src domain.SourceDefinition
	err := row.Scan(&src.SourceName, &src.DriverKind, &src.CredentialRef, &src.PassthroughEnabled, &src.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound("source %q not found", sourceName)
	}
	if err != nil {
		return nil, domain.ErrStorage(err, "load source %q: %v", sourceName, err)
	}
	return &src, nil
}

// ListSources returns all source definitions ordered by name.
func (m *Metastore) ListSources(ctx context.Context) ([]domain.SourceDefinition, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT source_name, driver_kind, credential_ref, passthrough_enabled, created_at
		 FROM sources ORDER BY source_name`)
	if err != nil {
		return nil, domain.ErrStorage(err, "list sources: %v", err)
	}
	defer rows.Close() //nolint:errcheck

	var sources []domain.SourceDefinition
	for rows.Next() {
		var src domain.SourceDefinition
		if err := rows.Scan(&src.SourceName, &src.DriverKind, &src.CredentialRef, &src.PassthroughEnabled, &src.CreatedAt); err != nil {
			return nil, domain.ErrStorage(err, "scan source row: %v", err)
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrStorage(err, "list sources: %v", err)
	}
	return sources, nil
}

// DeleteSource removes a source; the caches referencing it and their state
// rows go with it via foreign-key cascade.
func (m *Metastore) DeleteSource(ctx context.Context, sourceName string) error {
	res, err := m.db.ExecContext(ctx, `DELETE FROM sources WHERE source_name = ?`, sourceName)
	if err != nil {
		return domain.ErrStorage(err, "delete source %q: %v", sourceName, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("source %q not found", sourceName)
	}
	return nil
}
