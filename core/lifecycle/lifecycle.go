// Package lifecycle defines the mission state machine: the named operations
// and, for each one, the fixed set of states it may be applied from.
package lifecycle

import "github.com/jbleroy/fieldops/core/status"

// Op is a named lifecycle transition.
type Op int

const (
	OpPublish Op = iota
	OpAssign
	OpSchedule
	OpStartTravel
	OpStartWork
	OpPause
	OpResume
	OpComplete
	OpValidateReport
	OpRejectReport
	OpInvoice
	OpMarkPaid
	OpClose
	OpCancel
)

// String returns the operation name used in logs and events.
func (o Op) String() string {
	switch o {
	case OpPublish:
		return "publish"
	case OpAssign:
		return "assign"
	case OpSchedule:
		return "schedule"
	case OpStartTravel:
		return "start_travel"
	case OpStartWork:
		return "start_work"
	case OpPause:
		return "pause"
	case OpResume:
		return "resume"
	case OpComplete:
		return "complete"
	case OpValidateReport:
		return "validate_report"
	case OpRejectReport:
		return "reject_report"
	case OpInvoice:
		return "invoice"
	case OpMarkPaid:
		return "mark_paid"
	case OpClose:
		return "close"
	case OpCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

type rule struct {
	from []status.Lifecycle
	to   status.Lifecycle
}

var rules = map[Op]rule{
	OpPublish:        {from: []status.Lifecycle{status.Draft, status.Published}, to: status.Published},
	OpAssign:         {from: []status.Lifecycle{status.Draft, status.Published}, to: status.Assigned},
	OpSchedule:       {from: []status.Lifecycle{status.Assigned, status.Scheduled}, to: status.Scheduled},
	OpStartTravel:    {from: []status.Lifecycle{status.Assigned, status.Scheduled}, to: status.EnRoute},
	OpStartWork:      {from: []status.Lifecycle{status.Scheduled, status.EnRoute}, to: status.InProgress},
	OpPause:          {from: []status.Lifecycle{status.InProgress}, to: status.Paused},
	OpResume:         {from: []status.Lifecycle{status.Paused}, to: status.InProgress},
	OpComplete:       {from: []status.Lifecycle{status.InProgress}, to: status.Completed},
	OpValidateReport: {from: []status.Lifecycle{status.Completed}, to: status.Billable},
	OpRejectReport:   {from: []status.Lifecycle{status.Completed}, to: status.InProgress},
	OpInvoice:        {from: []status.Lifecycle{status.Completed, status.Billable}, to: status.Invoiced},
	OpMarkPaid:       {from: []status.Lifecycle{status.Invoiced}, to: status.Paid},
	OpClose:          {from: []status.Lifecycle{status.Paid}, to: status.Closed},
}

// Next returns the state reached by applying op from cur. It returns an
// InvalidTransition error when cur is not in the operation's allowed
// predecessor set. Cancel is legal from every non-terminal state.
func Next(cur status.Lifecycle, op Op) (status.Lifecycle, error) {
	if op == OpCancel {
		if cur.Terminal() {
			return cur, invalid(op, cur)
		}
		return status.Cancelled, nil
	}
	r, ok := rules[op]
	if !ok {
		return cur, invalid(op, cur)
	}
	for _, f := range r.from {
		if f == cur {
			return r.to, nil
		}
	}
	return cur, invalid(op, cur)
}

// Allowed reports whether op may be applied from cur.
func Allowed(cur status.Lifecycle, op Op) bool {
	_, err := Next(cur, op)
	return err == nil
}
