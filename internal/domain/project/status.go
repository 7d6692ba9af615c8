package project

// BaselineStatus tracks where a project is in the baseline acceptance flow
type BaselineStatus string

const (
	StatusPending   BaselineStatus = "pending"
	StatusHandedOff BaselineStatus = "handed_off"
	StatusAccepted  BaselineStatus = "accepted"
	StatusRejected  BaselineStatus = "rejected"
)

var transitions = map[BaselineStatus][]BaselineStatus{
	StatusPending:   {StatusHandedOff},
	StatusHandedOff: {StatusHandedOff, StatusAccepted, StatusRejected},
}

// IsValid returns true if the status is one of the known values
func (s BaselineStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusHandedOff, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether a human decision has been recorded
func (s BaselineStatus) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// CanTransitionTo reports whether next is reachable from s.
// Re-handing off an already handed-off project is allowed so retries and
// term corrections converge.
func (s BaselineStatus) CanTransitionTo(next BaselineStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
