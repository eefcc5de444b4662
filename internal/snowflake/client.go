// Package snowflake implements the remote warehouse client: passthrough
// query execution and the table-metadata probe used for staleness checks.
package snowflake

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/snowflakedb/gosnowflake"

	"github.com/danjsiegel/ducksync/internal/domain"
)

// Client executes queries against Snowflake. Credential refs are opaque
// handles resolved to DSNs at construction time; one connection pool is kept
// per ref.
type Client struct {
	mu     sync.Mutex
	pools  map[string]*sql.DB
	dsns   map[string]string
	logger *slog.Logger
}

var _ domain.RemoteExecutor = (*Client)(nil)

// NewClient creates a Client resolving credential refs through dsns.
func NewClient(dsns map[string]string, logger *slog.Logger) *Client {
	return &Client{
		pools:  make(map[string]*sql.DB),
		dsns:   dsns,
		logger: logger,
	}
}

// db returns the pooled connection for a credential ref, opening it on first
// use.
func (c *Client) db(credentialRef string) (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if db, ok := c.pools[credentialRef]; ok {
		return db, nil
	}

	dsn, ok := c.dsns[credentialRef]
	if !ok {
		return nil, domain.ErrConfiguration("no DSN configured for credential ref %q", credentialRef)
	}

	if _, err := gosnowflake.ParseDSN(dsn); err != nil {
		return nil, domain.ErrConfiguration("invalid Snowflake DSN for credential ref %q: %v", credentialRef, err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, domain.ErrRemoteQuery(err, "open Snowflake connection for %q: %v", credentialRef, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	c.pools[credentialRef] = db
	return db, nil
}

// QueryContext runs a query against the warehouse identified by credentialRef.
func (c *Client) QueryContext(ctx context.Context, credentialRef, query string) (*sql.Rows, error) {
	db, err := c.db(credentialRef)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, domain.ErrRemoteQuery(err, "remote query via %q failed: %v", credentialRef, err)
	}
	return rows, nil
}

// Close releases all connection pools.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for ref, db := range c.pools {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.pools, ref)
	}
	return firstErr
}
