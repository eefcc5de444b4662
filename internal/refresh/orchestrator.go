// Package refresh decides whether a cache needs refreshing and drives the
// refresh: remote metadata probe, full materialization, state update.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/danjsiegel/ducksync/internal/domain"
)

// Orchestrator implements the refresh decision ladder (force → never
// refreshed → TTL → state-hash comparison) and, when a refresh is needed,
// replaces the cache's physical table and state row.
//
// Concurrent Refresh calls for the same cache are coalesced: callers join a
// single in-flight refresh instead of duplicating remote work.
type Orchestrator struct {
	store        domain.MetadataStore
	probe        domain.RemoteMetadataProbe
	writer       domain.CacheWriter
	localCatalog string
	logger       *slog.Logger

	now   func() time.Time
	group singleflight.Group
}

// NewOrchestrator creates a fully-wired refresh orchestrator. localCatalog is
// the catalog part of the {catalog}.{source_name}.{cache_name} destination
// path convention.
func NewOrchestrator(store domain.MetadataStore, probe domain.RemoteMetadataProbe,
	writer domain.CacheWriter, localCatalog string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:        store,
		probe:        probe,
		writer:       writer,
		localCatalog: localCatalog,
		logger:       logger,
		now:          time.Now,
	}
}

// SetNowFunc overrides the clock. Used by tests to cross TTL boundaries.
func (o *Orchestrator) SetNowFunc(now func() time.Time) {
	o.now = now
}

// Refresh refreshes cacheName if needed (always when force is set). Failures
// never escape as errors; they come back as Result=ERROR with a message, and
// the previously committed state stays authoritative.
func (o *Orchestrator) Refresh(ctx context.Context, cacheName string, force bool) domain.RefreshStatus {
	v, _, _ := o.group.Do(cacheName, func() (interface{}, error) {
		return o.refresh(ctx, cacheName, force), nil
	})
	return v.(domain.RefreshStatus)
}

func (o *Orchestrator) refresh(ctx context.Context, cacheName string, force bool) domain.RefreshStatus {
	start := o.now()

	cache, err := o.store.GetCache(ctx, cacheName)
	if err != nil {
		return errorStatus(err)
	}

	source, err := o.store.GetSource(ctx, cache.SourceName)
	if err != nil {
		return errorStatus(err)
	}

	state, err := o.store.GetState(ctx, cacheName)
	if err != nil && !errors.As(err, new(*domain.NotFoundError)) {
		return errorStatus(err)
	}

	needed, err := o.needsRefresh(ctx, cache, source, state, force)
	if err != nil {
		return errorStatus(err)
	}
	if !needed {
		return domain.RefreshStatus{
			Result:  domain.RefreshSkipped,
			Message: "cache is fresh, no refresh needed",
		}
	}

	dest := domain.TablePath{
		Catalog: o.localCatalog,
		Schema:  cache.SourceName,
		Table:   cache.CacheName,
	}
	rows, err := o.writer.Materialize(ctx, source.CredentialRef, cache.SourceQuery, dest)
	if err != nil {
		return errorStatus(err)
	}

	// Hash the remote metadata as observed after the pull, so the next
	// staleness check compares against the state that was materialized.
	metadata, err := o.probe.GetLastModified(ctx, source.CredentialRef, cache.MonitorTables)
	if err != nil {
		return errorStatus(err)
	}
	hash := StateHash(metadata)

	now := o.now()
	duration := float64(now.Sub(start).Milliseconds())

	newState := &domain.CacheState{
		CacheName:       cacheName,
		LastRefresh:     &now,
		SourceStateHash: &hash,
		RefreshCount:    0, // store assigns previous+1
		LastRowCount:    &rows,
		LastDurationMS:  &duration,
	}
	if cache.TTLSeconds != nil {
		expires := now.Add(time.Duration(*cache.TTLSeconds) * time.Second)
		newState.ExpiresAt = &expires
	}

	if err := o.store.UpdateState(ctx, newState); err != nil {
		return errorStatus(err)
	}

	o.logger.Info("cache refreshed",
		"cache", cacheName, "rows", rows, "duration_ms", duration)

	return domain.RefreshStatus{
		Result:     domain.RefreshRefreshed,
		Message:    "cache refreshed successfully",
		Rows:       &rows,
		DurationMS: &duration,
	}
}

// needsRefresh implements the staleness ladder. The state-hash comparison is
// reached only when nothing cheaper already forced a refresh: it trades a
// metadata probe for a full data pull.
func (o *Orchestrator) needsRefresh(ctx context.Context, cache *domain.CacheDefinition,
	source *domain.SourceDefinition, state *domain.CacheState, force bool) (bool, error) {
	if force {
		return true, nil
	}
	if state.NeverRefreshed() {
		return true, nil
	}
	if cache.TTLSeconds != nil {
		if state.ExpiresAt == nil || state.ExpiresAt.Before(o.now()) {
			return true, nil
		}
	}
	if state.SourceStateHash == nil {
		// First validation pass after a refresh that recorded no hash.
		return true, nil
	}

	metadata, err := o.probe.GetLastModified(ctx, source.CredentialRef, cache.MonitorTables)
	if err != nil {
		return false, err
	}
	if StateHash(metadata) != *state.SourceStateHash {
		o.logger.Debug("remote metadata changed", "cache", cache.CacheName)
		return true, nil
	}
	return false, nil
}

func errorStatus(err error) domain.RefreshStatus {
	return domain.RefreshStatus{
		Result:  domain.RefreshError,
		Message: fmt.Sprintf("refresh failed: %v", err),
	}
}
