package repository

import (
	"context"
	"database/sql"

	"github.com/danjsiegel/ducksync/internal/domain"
)

// InitializeState creates an empty state row for the cache if none exists.
// Idempotent.
func (m *Metastore) InitializeState(ctx context.Context, cacheName string) error {
	_, err := m.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO cache_state (cache_name, refresh_count) VALUES (?, 0)`, cacheName)
	if err != nil {
		return domain.ErrStorage(err, "initialize state for cache %q: %v", cacheName, err)
	}
	return nil
}

// GetState loads the state row for a cache.
func (m *Metastore) GetState(ctx context.Context, cacheName string) (*domain.CacheState, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT cache_name, last_refresh, source_state_hash, expires_at, refresh_count, last_row_count, last_duration_ms
		 FROM cache_state WHERE cache_name = ?`, cacheName)

	state, err := scanState(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound("state for cache %q not found", cacheName)
	}
	if err != nil {
		return nil, domain.ErrStorage(err, "load state for cache %q: %v", cacheName, err)
	}
	return state, nil
}

func scanState(row interface{ Scan(...any) error }) (*domain.CacheState, error) {
	var (
		state       domain.CacheState
		lastRefresh sql.NullTime
		stateHash   sql.NullString
		expiresAt   sql.NullTime
		rowCount    sql.NullInt64
		durationMS  sql.NullFloat64
	)
	if err := row.Scan(&state.CacheName, &lastRefresh, &stateHash, &expiresAt,
		&state.RefreshCount, &rowCount, &durationMS); err != nil {
		return nil, err
	}
	if lastRefresh.Valid {
		state.LastRefresh = &lastRefresh.Time
	}
	if stateHash.Valid {
		state.SourceStateHash = &stateHash.String
	}
	if expiresAt.Valid {
		state.ExpiresAt = &expiresAt.Time
	}
	if rowCount.Valid {
		state.LastRowCount = &rowCount.Int64
	}
	if durationMS.Valid {
		state.LastDurationMS = &durationMS.Float64
	}
	return &state, nil
}

// replaceState deletes and reinserts the state row with the given
// refresh_count inside tx.
func replaceState(ctx context.Context, tx *sql.Tx, state *domain.CacheState, refreshCount int64) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cache_state WHERE cache_name = ?`, state.CacheName); err != nil {
		return domain.ErrStorage(err, "delete state for cache %q: %v", state.CacheName, err)
	}

	var (
		lastRefresh sql.NullTime
		stateHash   sql.NullString
		expiresAt   sql.NullTime
		rowCount    sql.NullInt64
		durationMS  sql.NullFloat64
	)
	if state.LastRefresh != nil {
		lastRefresh = sql.NullTime{Time: *state.LastRefresh, Valid: true}
	}
	if state.SourceStateHash != nil {
		stateHash = sql.NullString{String: *state.SourceStateHash, Valid: true}
	}
	if state.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: *state.ExpiresAt, Valid: true}
	}
	if state.LastRowCount != nil {
		rowCount = sql.NullInt64{Int64: *state.LastRowCount, Valid: true}
	}
	if state.LastDurationMS != nil {
		durationMS = sql.NullFloat64{Float64: *state.LastDurationMS, Valid: true}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cache_state (cache_name, last_refresh, source_state_hash, expires_at, refresh_count, last_row_count, last_duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		state.CacheName, lastRefresh, stateHash, expiresAt, refreshCount, rowCount, durationMS); err != nil {
		return domain.ErrStorage(err, "insert state for cache %q: %v", state.CacheName, err)
	}
	return nil
}

// UpdateState replaces the state row wholesale, incrementing the stored
// refresh_count. A missing row counts as refresh_count zero.
func (m *Metastore) UpdateState(ctx context.Context, state *domain.CacheState) error {
	return m.inTx(func(tx *sql.Tx) error {
		var current int64
		err := tx.QueryRowContext(ctx,
			`SELECT refresh_count FROM cache_state WHERE cache_name = ?`, state.CacheName).Scan(&current)
		if err != nil && err != sql.ErrNoRows {
			return domain.ErrStorage(err, "read refresh_count for cache %q: %v", state.CacheName, err)
		}
		return replaceState(ctx, tx, state, current+1)
	})
}

// UpdateStateIf replaces the state row only when the stored refresh_count
// still equals expectedRefreshCount. Returns false when another writer got
// there first.
func (m *Metastore) UpdateStateIf(ctx context.Context, expectedRefreshCount int64, state *domain.CacheState) (bool, error) {
	applied := false
	err := m.inTx(func(tx *sql.Tx) error {
		var current int64
		err := tx.QueryRowContext(ctx,
			`SELECT refresh_count FROM cache_state WHERE cache_name = ?`, state.CacheName).Scan(&current)
		if err != nil && err != sql.ErrNoRows {
			return domain.ErrStorage(err, "read refresh_count for cache %q: %v", state.CacheName, err)
		}
		if current != expectedRefreshCount {
			return nil
		}
		if err := replaceState(ctx, tx, state, current+1); err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}
