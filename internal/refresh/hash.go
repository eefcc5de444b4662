package refresh

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// StateHash computes the canonical digest of monitored tables' last-modified
// metadata: a SHA-256 hex digest over `{"table":"last_modified",...}` with
// entries sorted bytewise by table identifier and values embedded verbatim.
// The encoding is part of the cache contract — a stored hash must keep
// matching across releases as long as the remote metadata is unchanged.
func StateHash(metadata map[string]string) string {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(k)
		b.WriteString(`":"`)
		b.WriteString(metadata[k])
		b.WriteByte('"')
	}
	b.WriteByte('}')

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
