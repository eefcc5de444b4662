package domain

import "strings"

// TablePath is a fully-qualified local table address following the layout
// convention {catalog}.{source_name}.{cache_name}.
type TablePath struct {
	Catalog string
	Schema  string
	Table   string
}

// String renders the dotted path with each part quoted.
func (p TablePath) String() string {
	return QuoteIdent(p.Catalog) + "." + QuoteIdent(p.Schema) + "." + QuoteIdent(p.Table)
}

// QuoteIdent quotes a SQL identifier when it contains characters outside the
// safe lowercase-alphanumeric set. Uses double quotes.
func QuoteIdent(s string) string {
	for _, c := range s {
		if !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_') {
			return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
		}
	}
	return s
}
