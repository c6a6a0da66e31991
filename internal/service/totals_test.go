package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raflianugrah/invoice-manager-service/internal/domain"
	"github.com/raflianugrah/invoice-manager-service/internal/model"
)

func TestComputeTotals(t *testing.T) {
	items := []domain.LineItem{
		{Description: "Consulting", Quantity: 2, UnitPrice: 100},
	}

	totals := ComputeTotals(items, 18)

	assert.Equal(t, 200.0, totals.Subtotal)
	assert.Equal(t, 36.0, totals.Tax)
	assert.Equal(t, 236.0, totals.Total)
}

func TestComputeTotalsInvariant(t *testing.T) {
	items := []domain.LineItem{
		{Quantity: 3, UnitPrice: 19.99},
		{Quantity: 1, UnitPrice: 4.5},
		{Quantity: 0.5, UnitPrice: 80},
	}

	totals := ComputeTotals(items, 7.25)

	assert.Equal(t, totals.Subtotal+totals.Tax, totals.Total)
	assert.Equal(t, totals.Subtotal*7.25/100, totals.Tax)
}

func TestComputeTotalsNilItems(t *testing.T) {
	totals := ComputeTotals(nil, 18)

	assert.Equal(t, 0.0, totals.Subtotal)
	assert.Equal(t, 0.0, totals.Tax)
	assert.Equal(t, 0.0, totals.Total)
}

func TestComputeTotalsZeroRate(t *testing.T) {
	items := []domain.LineItem{{Quantity: 4, UnitPrice: 25}}

	totals := ComputeTotals(items, 0)

	assert.Equal(t, 100.0, totals.Subtotal)
	assert.Equal(t, 0.0, totals.Tax)
	assert.Equal(t, 100.0, totals.Total)
}

// Bad input arrives through the DTO layer: null entries are dropped and
// non-numeric values coerce to 0, so the engine sees zeros and degrades
// gracefully.
func TestComputeTotalsCoercedInput(t *testing.T) {
	payload := `{"items":[null,{"qty":"abc","unitPrice":{"nested":true}}],"taxPercent":18}`

	var input model.InvoiceInput
	require.NoError(t, json.Unmarshal([]byte(payload), &input))

	totals := ComputeTotals(input.DomainItems(), float64(input.TaxPercent))

	assert.Equal(t, 0.0, totals.Subtotal)
	assert.Equal(t, 0.0, totals.Tax)
	assert.Equal(t, 0.0, totals.Total)
}
