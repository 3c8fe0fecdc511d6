package approval

import "errors"

var (
	// ErrValidation is returned for missing or invalid input, e.g. an unknown
	// decision action or an empty rejection reason.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a stage or expense does not exist
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the acting approver is not in the
	// stage's required approver set.
	ErrUnauthorized = errors.New("approver not authorized")

	// ErrInvalidState is returned when a stage is not in a status that
	// permits the attempted operation, including when a concurrent decision
	// won the conditional status update.
	ErrInvalidState = errors.New("stage not in a valid state")

	// ErrEscalationTargetUnresolved marks a sweep candidate whose escalation
	// rule resolved to nobody. Non-fatal: logged and skipped.
	ErrEscalationTargetUnresolved = errors.New("escalation target unresolved")
)
