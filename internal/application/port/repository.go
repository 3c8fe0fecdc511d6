package port

import (
	"context"
	"time"

	"github.com/fisherjoey/SportsManager-sub006/internal/domain/entity"
)

// PendingFilter narrows pending-approval listings for an approver.
type PendingFilter struct {
	OrganizationID string
	Limit          int
	Offset         int
}

// StageRepository defines persistence operations for ApprovalStage.
//
// The status-guarded mutations (Activate, Decide, Escalate, Delegate) are
// conditional updates: the guard is part of the write, not a prior read, and
// a failed guard surfaces as approval.ErrInvalidState. This closes the race
// between two concurrent decisions and between a decision and the sweeper.
type StageRepository interface {
	// Create inserts a stage together with its required approver set
	Create(ctx context.Context, stage *entity.ApprovalStage) error

	// GetByID retrieves a stage by ID; returns nil, nil when absent
	GetByID(ctx context.Context, id int64) (*entity.ApprovalStage, error)

	// GetByExpenseID retrieves all stages of an expense ordered by stage_number
	GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.ApprovalStage, error)

	// GetByStageNumber retrieves one stage of an expense; returns nil, nil when absent
	GetByStageNumber(ctx context.Context, expenseID int64, stageNumber int) (*entity.ApprovalStage, error)

	// ListPendingForApprover lists active stages whose required approver set
	// contains the given approver.
	ListPendingForApprover(ctx context.Context, approverID string, filter PendingFilter) ([]*entity.ApprovalStage, error)

	// ListOverdue lists active stages whose deadline has passed and that have
	// not been escalated yet.
	ListOverdue(ctx context.Context, now time.Time) ([]*entity.ApprovalStage, error)

	// Activate moves a scheduled stage to active, stamping activation and
	// deadline. Conditional on status = scheduled.
	Activate(ctx context.Context, id int64, activatedAt, deadlineAt time.Time) error

	// Decide atomically transitions an active stage to approved or rejected
	// and records the decision. Conditional on status = active.
	Decide(ctx context.Context, id int64, status string, decision *entity.StageDecision) error

	// Escalate records the escalation target, time, and reason. Conditional
	// on status = active and escalated_at being unset. When reactivate is
	// false the stage moves to escalated; otherwise it stays active.
	Escalate(ctx context.Context, id int64, target string, escalatedAt time.Time, reason string, reactivate bool) error

	// Delegate records the delegation fields and re-arms the stage to active.
	// Conditional on status being active or escalated.
	Delegate(ctx context.Context, id int64, delegateTo, delegatedBy, reason string, delegatedAt time.Time) error

	// AddApprover appends one approver to a stage's required set, ignoring
	// duplicates.
	AddApprover(ctx context.Context, stageID int64, approver entity.Approver) error

	// RejectAllForExpense forces every non-rejected stage of an expense to
	// rejected. Only the status column changes: decision metadata already
	// held by a stage is never overwritten.
	RejectAllForExpense(ctx context.Context, expenseID int64) error
}

// ExpenseRepository defines the engine's view of the expense store.
type ExpenseRepository interface {
	Create(ctx context.Context, expense *entity.Expense) error
	GetByID(ctx context.Context, id int64) (*entity.Expense, error)
	GetAmount(ctx context.Context, id int64) (int64, error)
	SetStatus(ctx context.Context, id int64, status string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
