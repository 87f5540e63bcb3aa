package lifecycle

import (
	"errors"
	"testing"

	"github.com/jbleroy/fieldops/core/status"
)

func TestNextHappyPath(t *testing.T) {
	steps := []struct {
		from status.Lifecycle
		op   Op
		to   status.Lifecycle
	}{
		{status.Draft, OpPublish, status.Published},
		{status.Published, OpAssign, status.Assigned},
		{status.Assigned, OpSchedule, status.Scheduled},
		{status.Scheduled, OpStartTravel, status.EnRoute},
		{status.EnRoute, OpStartWork, status.InProgress},
		{status.InProgress, OpPause, status.Paused},
		{status.Paused, OpResume, status.InProgress},
		{status.InProgress, OpComplete, status.Completed},
		{status.Completed, OpValidateReport, status.Billable},
		{status.Billable, OpInvoice, status.Invoiced},
		{status.Invoiced, OpMarkPaid, status.Paid},
		{status.Paid, OpClose, status.Closed},
	}
	for _, s := range steps {
		got, err := Next(s.from, s.op)
		if err != nil {
			t.Fatalf("%s from %s: %v", s.op, s.from, err)
		}
		if got != s.to {
			t.Fatalf("%s from %s = %s, want %s", s.op, s.from, got, s.to)
		}
	}
}

func TestNextRejectsWrongPredecessor(t *testing.T) {
	cases := []struct {
		from status.Lifecycle
		op   Op
	}{
		{status.Draft, OpComplete},
		{status.Draft, OpSchedule},
		{status.Published, OpMarkPaid},
		{status.Paused, OpComplete},
		{status.Completed, OpPause},
		{status.Invoiced, OpInvoice},
		{status.Closed, OpPublish},
	}
	for _, c := range cases {
		if _, err := Next(c.from, c.op); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s from %s: want ErrInvalidTransition, got %v", c.op, c.from, err)
		}
	}
}

func TestRepublishAllowed(t *testing.T) {
	if got, err := Next(status.Published, OpPublish); err != nil || got != status.Published {
		t.Fatalf("re-publish: got %v, %v", got, err)
	}
}

func TestRejectReportReturnsToInProgress(t *testing.T) {
	got, err := Next(status.Completed, OpRejectReport)
	if err != nil || got != status.InProgress {
		t.Fatalf("reject_report: got %v, %v", got, err)
	}
}

func TestCancelFromEveryNonTerminalState(t *testing.T) {
	for st := status.Draft; st <= status.Cancelled; st++ {
		got, err := Next(st, OpCancel)
		if st.Terminal() {
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("cancel from terminal %s should fail, got %v", st, err)
			}
			continue
		}
		if err != nil || got != status.Cancelled {
			t.Errorf("cancel from %s: got %v, %v", st, got, err)
		}
	}
}
