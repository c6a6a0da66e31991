package service

import (
	"github.com/raflianugrah/invoice-manager-service/internal/domain"
)

// ComputeTotals derives subtotal, tax, and total from the item list and
// tax rate. It never fails: a nil item slice degrades to zeros, and the
// DTO layer has already coerced non-numeric quantities and prices to 0.
// No rounding is applied; currency precision is a presentation concern.
func ComputeTotals(items []domain.LineItem, taxPercent float64) domain.Totals {
	var subtotal float64
	for _, item := range items {
		subtotal += item.Quantity * item.UnitPrice
	}

	tax := subtotal * taxPercent / 100

	return domain.Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal + tax,
	}
}
