// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase. This follows the Go convention of a
// shared test utility package (like net/http/httptest).
package testutil

import (
	"context"
	"sync"

	"github.com/danjsiegel/ducksync/internal/domain"
)

// === Remote Metadata Probe Mock ===

// MockProbe implements domain.RemoteMetadataProbe for testing.
type MockProbe struct {
	GetLastModifiedFn func(ctx context.Context, credentialRef string, tableIdents []string) (map[string]string, error)
	// Metadata is returned verbatim when GetLastModifiedFn is nil.
	Metadata map[string]string
	Err      error

	mu    sync.Mutex
	Calls int
}

// GetLastModified implements the interface method for testing.
func (m *MockProbe) GetLastModified(ctx context.Context, credentialRef string, tableIdents []string) (map[string]string, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.GetLastModifiedFn != nil {
		return m.GetLastModifiedFn(ctx, credentialRef, tableIdents)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Metadata, nil
}

var _ domain.RemoteMetadataProbe = (*MockProbe)(nil)

// === Cache Writer Mock ===

// MaterializeCall records one invocation of Materialize.
type MaterializeCall struct {
	CredentialRef string
	SourceQuery   string
	Dest          domain.TablePath
}

// MockWriter implements domain.CacheWriter for testing.
type MockWriter struct {
	MaterializeFn func(ctx context.Context, credentialRef, sourceQuery string, dest domain.TablePath) (int64, error)
	// Rows is returned when MaterializeFn is nil.
	Rows int64
	Err  error

	mu    sync.Mutex
	Calls []MaterializeCall
}

// Materialize implements the interface method for testing.
func (m *MockWriter) Materialize(ctx context.Context, credentialRef, sourceQuery string, dest domain.TablePath) (int64, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MaterializeCall{CredentialRef: credentialRef, SourceQuery: sourceQuery, Dest: dest})
	m.mu.Unlock()
	if m.MaterializeFn != nil {
		return m.MaterializeFn(ctx, credentialRef, sourceQuery, dest)
	}
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Rows, nil
}

// CallCount returns how many times Materialize ran.
func (m *MockWriter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

var _ domain.CacheWriter = (*MockWriter)(nil)
