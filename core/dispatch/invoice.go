package dispatch

import (
	"context"

	"github.com/google/uuid"

	"github.com/jbleroy/fieldops/core/billing"
	"github.com/jbleroy/fieldops/core/events"
	"github.com/jbleroy/fieldops/core/model"
)

// IssueInvoice creates the mission invoice. The mission must be in the
// billable class and must not already carry an invoice; totals are computed
// once here and never re-derived. The store applies invoice creation and
// the billing transition as one unit.
func (m *Manager) IssueInvoice(ctx context.Context, missionID string, lines []model.InvoiceLine) (model.Invoice, error) {
	sub, vat, grand, err := billing.ComputeTotals(lines)
	if err != nil {
		return model.Invoice{}, err
	}
	inv := model.Invoice{
		ID:              uuid.NewString(),
		MissionID:       missionID,
		Lines:           lines,
		SubtotalMinor:   sub,
		VATTotalMinor:   vat,
		GrandTotalMinor: grand,
		IssuedAt:        m.now(),
	}
	if _, err := m.store.IssueInvoice(ctx, inv); err != nil {
		return model.Invoice{}, err
	}

	m.logger.Infof("mission %s invoiced: %d lines, total %d", missionID, len(lines), grand)
	m.emit("mission_invoiced", events.MissionInvoiced{MissionID: missionID, InvoiceID: inv.ID, TotalMinor: grand})
	return inv, nil
}

// MarkPaid records the settlement of the mission invoice. It requires an
// existing unpaid invoice; there is no un-pay.
func (m *Manager) MarkPaid(ctx context.Context, missionID, method, reference string) error {
	inv, _, err := m.store.MarkInvoicePaid(ctx, missionID, m.now(), method, reference)
	if err != nil {
		return err
	}
	m.emit("mission_paid", events.MissionPaid{MissionID: missionID, InvoiceID: inv.ID, Method: method})
	return nil
}
