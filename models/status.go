package models

// OrderStatus is the wire-visible state of an order
type OrderStatus string

const (
	StatusNew        OrderStatus = "NEW"
	StatusPaid       OrderStatus = "PAID"
	StatusInProgress OrderStatus = "IN_PROGRESS"
	StatusReady      OrderStatus = "READY"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCanceled   OrderStatus = "CANCELED"
)

// AllStatuses lists every status in board order
var AllStatuses = []OrderStatus{
	StatusNew,
	StatusPaid,
	StatusInProgress,
	StatusReady,
	StatusDelivered,
	StatusCanceled,
}

var transitions = map[OrderStatus][]OrderStatus{
	StatusNew:        {StatusPaid, StatusCanceled},
	StatusPaid:       {StatusInProgress, StatusCanceled},
	StatusInProgress: {StatusReady, StatusCanceled},
	StatusReady:      {StatusDelivered, StatusCanceled},
	StatusDelivered:  nil,
	StatusCanceled:   nil,
}

// ParseOrderStatus returns the status named by s. Matching is case-sensitive.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(s)
	_, ok := transitions[st]
	return st, ok
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s
func (s OrderStatus) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// AllowedTransitions returns the statuses reachable from s in one step
func (s OrderStatus) AllowedTransitions() []OrderStatus {
	next := transitions[s]
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

// CanTransitionTo reports whether s -> target is in the transition table
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsPaidOrLater reports whether an order in s has been paid and not canceled
func (s OrderStatus) IsPaidOrLater() bool {
	switch s {
	case StatusPaid, StatusInProgress, StatusReady, StatusDelivered:
		return true
	}
	return false
}
