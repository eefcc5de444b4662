package domain

import "time"

// CacheDefinition declares a cached query: what to run, which remote tables
// signal staleness, and how long the result stays valid.
type CacheDefinition struct {
	CacheName     string
	SourceName    string
	SourceQuery   string
	MonitorTables []string
	// TTLSeconds is nil when the cache never expires once refreshed.
	TTLSeconds *int64
	CreatedAt  time.Time
}

// Validate checks the definition before it is persisted.
func (c *CacheDefinition) Validate() error {
	if c.CacheName == "" {
		return ErrValidation("cache_name is required")
	}
	if c.SourceName == "" {
		return ErrValidation("source_name is required")
	}
	if c.SourceQuery == "" {
		return ErrValidation("source_query is required")
	}
	if len(c.MonitorTables) == 0 {
		return ErrValidation("monitor_tables must not be empty")
	}
	for _, t := range c.MonitorTables {
		if t == "" {
			return ErrValidation("monitor_tables must not contain empty identifiers")
		}
	}
	if c.TTLSeconds != nil && *c.TTLSeconds <= 0 {
		return ErrValidation("ttl_seconds must be strictly positive, got %d", *c.TTLSeconds)
	}
	return nil
}

// CacheState is the mutable runtime status of a cache, one-to-one with its
// CacheDefinition. Created empty at definition time; replaced wholesale by
// the refresh orchestrator after each successful refresh.
type CacheState struct {
	CacheName       string
	LastRefresh     *time.Time
	SourceStateHash *string
	ExpiresAt       *time.Time
	RefreshCount    int64
	LastRowCount    *int64
	LastDurationMS  *float64
}

// NeverRefreshed reports whether the cache has completed a refresh.
func (s *CacheState) NeverRefreshed() bool {
	return s == nil || s.LastRefresh == nil
}
