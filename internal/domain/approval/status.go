package approval

// StageStatus represents the lifecycle status of an approval stage
type StageStatus string

const (
	StatusScheduled StageStatus = "scheduled"
	StatusActive    StageStatus = "active"
	StatusApproved  StageStatus = "approved"
	StatusRejected  StageStatus = "rejected"
	StatusEscalated StageStatus = "escalated"
	StatusDelegated StageStatus = "delegated"
)

var validStatuses = map[StageStatus]bool{
	StatusScheduled: true,
	StatusActive:    true,
	StatusApproved:  true,
	StatusRejected:  true,
	StatusEscalated: true,
	StatusDelegated: true,
}

// terminalStatuses are terminal for the stage: once reached, the stage
// never transitions again.
var terminalStatuses = map[StageStatus]bool{
	StatusApproved: true,
	StatusRejected: true,
}

var allowedTransitions = map[StageStatus][]StageStatus{
	StatusScheduled: {StatusActive, StatusRejected},
	StatusActive:    {StatusApproved, StatusRejected, StatusEscalated, StatusActive},
	StatusEscalated: {StatusActive, StatusRejected},
	StatusDelegated: {StatusActive, StatusApproved, StatusRejected},
}

// IsValid returns true if the status is a known stage status
func (s StageStatus) IsValid() bool {
	return validStatuses[s]
}

// IsTerminal returns true if the status is terminal for the stage
func (s StageStatus) IsTerminal() bool {
	return terminalStatuses[s]
}

// String returns the string representation of the status
func (s StageStatus) String() string {
	return string(s)
}

// CanTransition returns true if a stage may move from s to target
func (s StageStatus) CanTransition(target StageStatus) bool {
	for _, t := range allowedTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}
