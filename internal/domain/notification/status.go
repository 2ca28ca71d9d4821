// internal/domain/notification/status.go
package notification

// Status is the lifecycle state of a scheduled notification.
//
//	pending -> processing -> sent | failed
//	pending -> cancelled
//	processing -> cancelled
//	processing -> pending (released unattempted)
//
// sent, failed and cancelled are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusSent, StatusFailed, StatusCancelled, StatusPending},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusSent, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusSent || s == StatusFailed || s == StatusCancelled
}

// CanTransition reports whether the state machine allows moving from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Cancellable reports whether a cancel request is accepted in status s.
// A processing record belongs to the worker that claimed it, so only pending qualifies.
func Cancellable(s Status) bool {
	return s == StatusPending
}

// IsOutcome reports whether s can be recorded as the result of a delivery run.
func IsOutcome(s Status) bool {
	return s == StatusSent || s == StatusFailed
}

// Outcome is the terminal status after a delivery run: sent when at least one recipient got it.
func Outcome(sentCount int) Status {
	if sentCount > 0 {
		return StatusSent
	}
	return StatusFailed
}
