package status

// Lifecycle is the fine-grained mission state used by the state machine.
// It drives transition validation, edit locks and billing preconditions.
// Read-side consumers never see it directly; they see Display values.
type Lifecycle int

const (
	Draft Lifecycle = iota
	Published
	Assigned
	Scheduled
	EnRoute
	InProgress
	Paused
	Completed
	Billable
	Invoiced
	Paid
	Closed
	Cancelled
)

// String returns a human-readable representation of the lifecycle state.
func (s Lifecycle) String() string {
	switch s {
	case Draft:
		return "draft"
	case Published:
		return "published"
	case Assigned:
		return "assigned"
	case Scheduled:
		return "scheduled"
	case EnRoute:
		return "en_route"
	case InProgress:
		return "in_progress"
	case Paused:
		return "paused"
	case Completed:
		return "completed"
	case Billable:
		return "billable"
	case Invoiced:
		return "invoiced"
	case Paid:
		return "paid"
	case Closed:
		return "closed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ParseLifecycle maps a stored lifecycle string back to its enum value.
// Unknown input yields Draft.
func ParseLifecycle(s string) Lifecycle {
	for st := Draft; st <= Cancelled; st++ {
		if st.String() == s {
			return st
		}
	}
	return Draft
}

// Terminal reports whether no further transition is possible from s.
func (s Lifecycle) Terminal() bool {
	return s == Closed || s == Cancelled
}

// Assignable reports whether s belongs to the post-acceptance class of
// states, in which a mission must carry an assigned user.
func (s Lifecycle) Assignable() bool {
	switch s {
	case Assigned, Scheduled, EnRoute, InProgress, Paused, Completed, Billable, Invoiced, Paid, Closed:
		return true
	}
	return false
}

// Display returns the coarse read-side status for s.
func (s Lifecycle) Display() Display {
	switch s {
	case Draft:
		return Nouveau
	case Published:
		return Publiee
	case Assigned, Scheduled:
		return Assignee
	case EnRoute, InProgress:
		return EnCours
	case Paused:
		return Bloque
	case Completed, Billable, Invoiced, Paid, Closed, Cancelled:
		return Termine
	default:
		return Nouveau
	}
}

// Billing is the invoicing sub-state of a mission, independent of the work
// lifecycle.
type Billing int

const (
	BillingPending Billing = iota
	BillingInvoiced
	BillingPaid
)

func (b Billing) String() string {
	switch b {
	case BillingPending:
		return "pending"
	case BillingInvoiced:
		return "invoiced"
	case BillingPaid:
		return "paid"
	default:
		return "unknown"
	}
}

// ParseBilling maps a stored billing string back to its enum value.
func ParseBilling(s string) Billing {
	switch s {
	case "invoiced":
		return BillingInvoiced
	case "paid":
		return BillingPaid
	default:
		return BillingPending
	}
}
