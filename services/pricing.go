package services

import (
	"github.com/tabletap/tabletap-api/models"
)

// MaxRateBps is 100% in basis points
const MaxRateBps = 10000

// PricingLine is one cart line as seen by the calculator
type PricingLine struct {
	UnitPriceCents int64
	Quantity       int
	Modifiers      []models.ModifierSnapshot
	Unavailable    bool
}

// Totals is the price breakdown of a cart, in minor currency units
type Totals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	TaxCents      int64 `json:"tax_cents"`
	TipCents      int64 `json:"tip_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// LineTotal is (unit price + modifier deltas) * quantity
func LineTotal(line PricingLine) int64 {
	return effectiveUnitPrice(line) * int64(line.Quantity)
}

func effectiveUnitPrice(line PricingLine) int64 {
	unit := line.UnitPriceCents
	for _, m := range line.Modifiers {
		unit += m.PriceDeltaCents
	}
	return unit
}

// ComputeTotals prices a cart. Tax is applied to the subtotal and tip to the
// post-tax amount; both round half up to the nearest cent.
func ComputeTotals(lines []PricingLine, taxRateBps, tipRateBps int) (Totals, error) {
	if len(lines) == 0 {
		return Totals{}, newError(ErrInvalidCart, "cart is empty")
	}
	if taxRateBps < 0 || taxRateBps > MaxRateBps {
		return Totals{}, newError(ErrInvalidCart, "tax rate %d bps is outside [0, %d]", taxRateBps, MaxRateBps)
	}
	if tipRateBps < 0 || tipRateBps > MaxRateBps {
		return Totals{}, newError(ErrInvalidCart, "tip rate %d bps is outside [0, %d]", tipRateBps, MaxRateBps)
	}

	var subtotal int64
	for i, line := range lines {
		switch {
		case line.Unavailable:
			return Totals{}, newError(ErrInvalidCart, "line %d references an unavailable item", i+1)
		case line.Quantity < 1:
			return Totals{}, newError(ErrInvalidCart, "line %d has quantity %d", i+1, line.Quantity)
		case line.UnitPriceCents < 0:
			return Totals{}, newError(ErrInvalidCart, "line %d has a negative unit price", i+1)
		case effectiveUnitPrice(line) < 0:
			return Totals{}, newError(ErrInvalidCart, "line %d modifiers reduce the price below zero", i+1)
		}
		subtotal += LineTotal(line)
	}

	tax := applyBps(subtotal, taxRateBps)
	tip := applyBps(subtotal+tax, tipRateBps)

	return Totals{
		SubtotalCents: subtotal,
		TaxCents:      tax,
		TipCents:      tip,
		TotalCents:    subtotal + tax + tip,
	}, nil
}

// applyBps returns round-half-up(amount * bps / 10000) for non-negative amount
func applyBps(amount int64, bps int) int64 {
	return (amount*int64(bps) + MaxRateBps/2) / MaxRateBps
}
