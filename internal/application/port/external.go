package port

import (
	"context"

	"github.com/fisherjoey/SportsManager-sub006/internal/domain/entity"
)

// Directory resolves approver rules against the organization directory.
// It is an external collaborator; the engine only depends on this boundary.
type Directory interface {
	// ResolveApprovers returns the approvers matching a stage's approver rule
	// within an organization. An empty result is an error for workflow
	// creation (a stage must have at least one approver).
	ResolveApprovers(ctx context.Context, organizationID, rule string) ([]entity.Approver, error)

	// ResolveEscalationTarget returns the approver an overdue stage escalates
	// to, or nil (with no error) when the rule resolves to nobody.
	ResolveEscalationTarget(ctx context.Context, organizationID, rule string) (*entity.Approver, error)
}

// Notifier delivers approval notifications. All sends are fire-and-forget:
// failures are logged by callers and never roll back a state transition.
type Notifier interface {
	// NotifyStageAssigned tells a stage's approvers a decision is waiting
	NotifyStageAssigned(ctx context.Context, stage *entity.ApprovalStage, approvers []entity.Approver) error

	// NotifyEscalation tells the escalation target a stage is overdue
	NotifyEscalation(ctx context.Context, stage *entity.ApprovalStage, target entity.Approver) error

	// NotifyDelegation tells the delegate decision rights were reassigned
	NotifyDelegation(ctx context.Context, stage *entity.ApprovalStage, delegate entity.Approver) error

	// NotifyOutcome tells the submitter the expense reached a terminal status
	NotifyOutcome(ctx context.Context, expense *entity.Expense, stage *entity.ApprovalStage) error
}
