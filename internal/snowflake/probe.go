package snowflake

import (
	"context"
	"strings"

	"github.com/danjsiegel/ducksync/internal/domain"
)

// Probe answers last-modification queries from Snowflake's
// INFORMATION_SCHEMA, keyed by fully-qualified table identifier.
type Probe struct {
	client *Client
}

var _ domain.RemoteMetadataProbe = (*Probe)(nil)

// NewProbe creates a Probe over the given client.
func NewProbe(client *Client) *Probe {
	return &Probe{client: client}
}

// GetLastModified fetches LAST_ALTERED for the monitored tables. Identifiers
// are matched on the bare table name (the last dotted component); the
// returned map is keyed by the warehouse's catalog.schema.table spelling.
func (p *Probe) GetLastModified(ctx context.Context, credentialRef string, tableIdents []string) (map[string]string, error) {
	if len(tableIdents) == 0 {
		return map[string]string{}, nil
	}

	names := make([]string, len(tableIdents))
	for i, ident := range tableIdents {
		name := ident
		if dot := strings.LastIndex(name, "."); dot >= 0 {
			name = name[dot+1:]
		}
		names[i] = "'" + strings.ReplaceAll(strings.ToUpper(name), "'", "''") + "'"
	}

	query := `SELECT table_catalog || '.' || table_schema || '.' || table_name AS full_name,
		TO_VARCHAR(last_altered) AS last_altered
		FROM INFORMATION_SCHEMA.TABLES
		WHERE table_name IN (` + strings.Join(names, ", ") + `)`

	rows, err := p.client.QueryContext(ctx, credentialRef, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	metadata := make(map[string]string, len(tableIdents))
	for rows.Next() {
		var fullName, lastAltered string
		if err := rows.Scan(&fullName, &lastAltered); err != nil {
			return nil, domain.ErrRemoteQuery(err, "scan metadata row: %v", err)
		}
		metadata[fullName] = lastAltered
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrRemoteQuery(err, "read metadata rows: %v", err)
	}

	return metadata, nil
}
