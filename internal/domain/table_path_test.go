package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, "orders", QuoteIdent("orders"))
	assert.Equal(t, "daily_orders2", QuoteIdent("daily_orders2"))
	assert.Equal(t, `"Daily Orders"`, QuoteIdent("Daily Orders"))
	assert.Equal(t, `"mixedCase"`, QuoteIdent("mixedCase"))
	assert.Equal(t, `"odd""quote"`, QuoteIdent(`odd"quote`))
}

func TestTablePathString(t *testing.T) {
	path := TablePath{Catalog: "ducksync", Schema: "sales", Table: "daily_orders"}
	assert.Equal(t, "ducksync.sales.daily_orders", path.String())

	quoted := TablePath{Catalog: "ducksync", Schema: "Sales", Table: "daily orders"}
	assert.Equal(t, `ducksync."Sales"."daily orders"`, quoted.String())
}
