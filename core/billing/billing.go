// Package billing computes invoice totals and guards the invoicing
// preconditions. All amounts are integer minor-currency units; rounding
// happens exactly once, per line, at computation time.
package billing

import (
	"errors"
	"fmt"
	"math"

	"github.com/jbleroy/fieldops/core/model"
)

// ErrInvoiceAlreadyExists is returned when a mission already carries an
// invoice.
var ErrInvoiceAlreadyExists = errors.New("invoice already exists")

// ErrNoUnpaidInvoice is returned by mark-paid when the mission has no
// invoice or its invoice is already settled.
var ErrNoUnpaidInvoice = errors.New("no unpaid invoice")

// ErrEmptyInvoice is returned when issuance is attempted without lines.
var ErrEmptyInvoice = errors.New("invoice requires at least one line")

// ComputeTotals derives subtotal, VAT total and grand total from the lines.
// Each line's VAT is rounded half-up to the nearest minor unit before
// summation; the totals are never re-derived afterwards.
func ComputeTotals(lines []model.InvoiceLine) (subtotal, vat, grand int64, err error) {
	if len(lines) == 0 {
		return 0, 0, 0, ErrEmptyInvoice
	}
	for i, l := range lines {
		if l.Quantity <= 0 {
			return 0, 0, 0, fmt.Errorf("line %d: quantity must be positive", i)
		}
		if l.UnitPriceMinor < 0 {
			return 0, 0, 0, fmt.Errorf("line %d: negative unit price", i)
		}
		if l.VATRate < 0 || l.VATRate >= 1 {
			return 0, 0, 0, fmt.Errorf("line %d: vat rate %f out of range", i, l.VATRate)
		}
		lineNet := int64(l.Quantity) * l.UnitPriceMinor
		lineVAT := int64(math.Floor(float64(lineNet)*l.VATRate + 0.5))
		subtotal += lineNet
		vat += lineVAT
	}
	return subtotal, vat, subtotal + vat, nil
}
