package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fisherjoey/SportsManager-sub006/internal/application/port"
	"github.com/fisherjoey/SportsManager-sub006/internal/domain/approval"
	"github.com/fisherjoey/SportsManager-sub006/internal/domain/entity"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// WorkflowService decides workflow shape and owns the stage lifecycle:
// creation, activation, advancement, completion, and rejection cascade.
type WorkflowService interface {
	// DetermineWorkflow computes the workflow plan for an amount and payment method
	DetermineWorkflow(ctx context.Context, amountCents int64, method entity.PaymentMethod) (approval.WorkflowPlan, error)

	// SubmitExpense persists a new expense and attaches its approval workflow
	SubmitExpense(ctx context.Context, expense *entity.Expense, method entity.PaymentMethod) ([]*entity.ApprovalStage, error)

	// CreateApprovalWorkflow materializes and persists a plan's stages for an
	// expense in one transaction, activating stage 1 (or auto-approving).
	CreateApprovalWorkflow(ctx context.Context, expenseID int64, plan approval.WorkflowPlan) ([]*entity.ApprovalStage, error)

	// Advance reacts to an approved stage inside the caller's transaction:
	// it completes the workflow on the final stage, otherwise activates the
	// next stage. It returns the newly activated stage, or nil when the
	// workflow completed, so the caller can notify after commit.
	Advance(ctx context.Context, current *entity.ApprovalStage) (*entity.ApprovalStage, error)

	// Complete marks the owning expense approved
	Complete(ctx context.Context, finalStage *entity.ApprovalStage) error

	// RejectAll marks the owning expense rejected and forces every stage of
	// the request to rejected.
	RejectAll(ctx context.Context, rejectedStage *entity.ApprovalStage) error

	// GetPendingApprovalsForApprover lists active stages awaiting the approver
	GetPendingApprovalsForApprover(ctx context.Context, approverID string, filter port.PendingFilter) ([]*entity.ApprovalStage, error)

	// GetApprovalHistory returns all stages of an expense ordered by stage number
	GetApprovalHistory(ctx context.Context, expenseID int64) ([]*entity.ApprovalStage, error)
}

type workflowServiceImpl struct {
	resolver    *approval.ThresholdResolver
	stageRepo   port.StageRepository
	expenseRepo port.ExpenseRepository
	directory   port.Directory
	notifier    port.Notifier
	txManager   port.TransactionManager
	logger      Logger
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(
	resolver *approval.ThresholdResolver,
	stageRepo port.StageRepository,
	expenseRepo port.ExpenseRepository,
	directory port.Directory,
	notifier port.Notifier,
	txManager port.TransactionManager,
	logger Logger,
) WorkflowService {
	return &workflowServiceImpl{
		resolver:    resolver,
		stageRepo:   stageRepo,
		expenseRepo: expenseRepo,
		directory:   directory,
		notifier:    notifier,
		txManager:   txManager,
		logger:      logger,
	}
}

// DetermineWorkflow computes the workflow plan for an amount and payment method
func (s *workflowServiceImpl) DetermineWorkflow(ctx context.Context, amountCents int64, method entity.PaymentMethod) (approval.WorkflowPlan, error) {
	plan, err := s.resolver.Resolve(amountCents, method)
	if err != nil {
		s.logger.Error("Failed to determine workflow", "error", err, "amount_cents", amountCents, "method", method.Type)
		return approval.WorkflowPlan{}, err
	}

	s.logger.Info("Workflow determined",
		"amount_cents", amountCents,
		"method", method.Type,
		"auto_approved", plan.AutoApproved,
		"total_stages", plan.TotalStages())
	return plan, nil
}

// SubmitExpense persists a new expense and attaches its approval workflow.
func (s *workflowServiceImpl) SubmitExpense(ctx context.Context, expense *entity.Expense, method entity.PaymentMethod) ([]*entity.ApprovalStage, error) {
	if expense.OrganizationID == "" {
		return nil, fmt.Errorf("%w: organization is required", approval.ErrValidation)
	}
	if expense.SubmitterID == "" {
		return nil, fmt.Errorf("%w: submitter is required", approval.ErrValidation)
	}

	plan, err := s.DetermineWorkflow(ctx, expense.AmountCents, method)
	if err != nil {
		return nil, err
	}

	expense.PaymentMethod = method.Type
	expense.Status = entity.ExpenseStatusPending

	// Expense row and stages commit or roll back together: a failed stage
	// build never leaves a stage-less pending expense behind.
	var stages []*entity.ApprovalStage
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.expenseRepo.Create(txCtx, expense); err != nil {
			return fmt.Errorf("create expense: %w", err)
		}
		stages, err = s.createWorkflowTx(txCtx, expense, plan)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to submit expense", "error", err, "organization_id", expense.OrganizationID)
		return nil, err
	}

	if plan.AutoApproved {
		expense.Status = entity.ExpenseStatusApproved
	}
	s.logger.Info("Expense submitted",
		"expense_id", expense.ID,
		"auto_approved", plan.AutoApproved,
		"total_stages", len(stages))

	s.notifyWorkflowCreated(ctx, expense, plan, stages)
	return stages, nil
}

// CreateApprovalWorkflow materializes and persists a plan for an expense.
// Approver resolution failure aborts the whole transaction: no partial stage
// set is ever left behind.
func (s *workflowServiceImpl) CreateApprovalWorkflow(ctx context.Context, expenseID int64, plan approval.WorkflowPlan) ([]*entity.ApprovalStage, error) {
	if !plan.AutoApproved && len(plan.Stages) == 0 {
		return nil, fmt.Errorf("%w: workflow plan has no stages", approval.ErrValidation)
	}

	expense, err := s.expenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	if expense == nil {
		return nil, fmt.Errorf("%w: expense %d", approval.ErrNotFound, expenseID)
	}

	var stages []*entity.ApprovalStage
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		stages, err = s.createWorkflowTx(txCtx, expense, plan)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to create approval workflow", "error", err, "expense_id", expenseID)
		return nil, err
	}

	if plan.AutoApproved {
		expense.Status = entity.ExpenseStatusApproved
	}
	s.logger.Info("Approval workflow created",
		"expense_id", expenseID,
		"auto_approved", plan.AutoApproved,
		"total_stages", len(stages))

	s.notifyWorkflowCreated(ctx, expense, plan, stages)
	return stages, nil
}

// createWorkflowTx persists the plan's stages inside the caller's transaction.
// An auto-approved plan becomes a single synthetic approved stage with the
// expense marked approved in the same transaction; otherwise stage 1 is
// activated with its deadline stamped.
func (s *workflowServiceImpl) createWorkflowTx(ctx context.Context, expense *entity.Expense, plan approval.WorkflowPlan) ([]*entity.ApprovalStage, error) {
	now := time.Now()

	if plan.AutoApproved {
		amount := expense.AmountCents
		stage := &entity.ApprovalStage{
			ExpenseID:        expense.ID,
			OrganizationID:   expense.OrganizationID,
			SubmitterID:      expense.SubmitterID,
			StageNumber:      1,
			TotalStages:      1,
			Status:           approval.StatusApproved.String(),
			StageRole:        "system",
			MinimumApprovers: 1,
			Decision: &entity.StageDecision{
				DecidedAt:     now,
				ApprovedCents: &amount,
				Notes:         plan.Reason,
			},
		}
		if err := s.stageRepo.Create(ctx, stage); err != nil {
			return nil, fmt.Errorf("create synthetic stage: %w", err)
		}
		if err := s.expenseRepo.SetStatus(ctx, expense.ID, entity.ExpenseStatusApproved); err != nil {
			return nil, fmt.Errorf("set expense status: %w", err)
		}
		return []*entity.ApprovalStage{stage}, nil
	}

	stages, err := s.buildStages(ctx, expense, plan)
	if err != nil {
		return nil, err
	}

	for _, stage := range stages {
		if stage.StageNumber == 1 {
			stage.Status = approval.StatusActive.String()
			activatedAt := now
			deadlineAt := now.Add(time.Duration(stage.DeadlineHours) * time.Hour)
			stage.ActivatedAt = &activatedAt
			stage.DeadlineAt = &deadlineAt
		}
		if err := s.stageRepo.Create(ctx, stage); err != nil {
			return nil, fmt.Errorf("create stage %d: %w", stage.StageNumber, err)
		}
	}
	return stages, nil
}

// notifyWorkflowCreated runs after commit; failures never surface.
func (s *workflowServiceImpl) notifyWorkflowCreated(ctx context.Context, expense *entity.Expense, plan approval.WorkflowPlan, stages []*entity.ApprovalStage) {
	if len(stages) == 0 {
		return
	}
	if plan.AutoApproved {
		if err := s.notifier.NotifyOutcome(ctx, expense, stages[0]); err != nil {
			s.logger.Warn("Failed to notify auto-approval outcome", "error", err, "expense_id", expense.ID)
		}
		return
	}
	first := stages[0]
	if err := s.notifier.NotifyStageAssigned(ctx, first, first.RequiredApprovers); err != nil {
		s.logger.Warn("Failed to notify stage approvers", "error", err, "stage_id", first.ID)
	}
}

// buildStages resolves each spec's approver set and produces fully-formed
// stage definitions ready for persistence.
func (s *workflowServiceImpl) buildStages(ctx context.Context, expense *entity.Expense, plan approval.WorkflowPlan) ([]*entity.ApprovalStage, error) {
	total := plan.TotalStages()
	stages := make([]*entity.ApprovalStage, 0, total)

	for i, spec := range plan.Stages {
		approvers, err := s.directory.ResolveApprovers(ctx, expense.OrganizationID, spec.ApproverRule)
		if err != nil {
			return nil, fmt.Errorf("resolve approvers for %s stage: %w", spec.Role, err)
		}
		if len(approvers) == 0 {
			return nil, fmt.Errorf("%w: no approvers for rule %q in organization %s",
				approval.ErrValidation, spec.ApproverRule, expense.OrganizationID)
		}

		stages = append(stages, &entity.ApprovalStage{
			ExpenseID:            expense.ID,
			OrganizationID:       expense.OrganizationID,
			SubmitterID:          expense.SubmitterID,
			StageNumber:          i + 1,
			TotalStages:          total,
			Status:               approval.StatusScheduled.String(),
			StageRole:            spec.Role,
			RequiredApprovers:    approvers,
			MinimumApprovers:     1,
			RequiresAllApprovers: false,
			ApprovalLimitCents:   spec.ApprovalLimitCents,
			CanModifyAmount:      spec.CanModifyAmount,
			AllowDelegation:      spec.AllowDelegation,
			DeadlineHours:        spec.DeadlineHours,
			EscalationHours:      spec.EscalationHours,
			EscalationTarget:     spec.EscalateToRule,
			Conditions: entity.StageConditions{
				RequiresBusinessJustification: spec.Conditions.RequiresBusinessJustification,
				RequiresReceiptValidation:     spec.Conditions.RequiresReceiptValidation,
				RequiresBusinessCase:          spec.Conditions.RequiresBusinessCase,
				RequiresCompetitiveQuotes:     spec.Conditions.RequiresCompetitiveQuotes,
			},
		})
	}

	return stages, nil
}

// Advance completes the workflow on the final stage, otherwise activates the
// next stage. Runs inside the caller's transaction.
func (s *workflowServiceImpl) Advance(ctx context.Context, current *entity.ApprovalStage) (*entity.ApprovalStage, error) {
	if current.IsFinal() {
		if err := s.Complete(ctx, current); err != nil {
			return nil, err
		}
		return nil, nil
	}

	next, err := s.stageRepo.GetByStageNumber(ctx, current.ExpenseID, current.StageNumber+1)
	if err != nil {
		return nil, fmt.Errorf("get next stage: %w", err)
	}
	if next == nil {
		return nil, fmt.Errorf("%w: stage %d of expense %d", approval.ErrNotFound, current.StageNumber+1, current.ExpenseID)
	}

	now := time.Now()
	deadline := now.Add(time.Duration(next.DeadlineHours) * time.Hour)
	if err := s.stageRepo.Activate(ctx, next.ID, now, deadline); err != nil {
		return nil, fmt.Errorf("activate stage %d: %w", next.StageNumber, err)
	}

	next.Status = approval.StatusActive.String()
	next.ActivatedAt = &now
	next.DeadlineAt = &deadline

	s.logger.Info("Stage activated",
		"expense_id", current.ExpenseID,
		"stage_number", next.StageNumber,
		"deadline_at", deadline)
	return next, nil
}

// Complete marks the owning expense approved
func (s *workflowServiceImpl) Complete(ctx context.Context, finalStage *entity.ApprovalStage) error {
	if err := s.expenseRepo.SetStatus(ctx, finalStage.ExpenseID, entity.ExpenseStatusApproved); err != nil {
		return fmt.Errorf("set expense status: %w", err)
	}
	s.logger.Info("Workflow completed", "expense_id", finalStage.ExpenseID, "total_stages", finalStage.TotalStages)
	return nil
}

// RejectAll cascades a rejection to the expense and every stage of the request
func (s *workflowServiceImpl) RejectAll(ctx context.Context, rejectedStage *entity.ApprovalStage) error {
	if err := s.expenseRepo.SetStatus(ctx, rejectedStage.ExpenseID, entity.ExpenseStatusRejected); err != nil {
		return fmt.Errorf("set expense status: %w", err)
	}
	if err := s.stageRepo.RejectAllForExpense(ctx, rejectedStage.ExpenseID); err != nil {
		return fmt.Errorf("reject stages: %w", err)
	}
	s.logger.Info("Workflow rejected",
		"expense_id", rejectedStage.ExpenseID,
		"rejected_at_stage", rejectedStage.StageNumber)
	return nil
}

// GetPendingApprovalsForApprover lists active stages awaiting the approver
func (s *workflowServiceImpl) GetPendingApprovalsForApprover(ctx context.Context, approverID string, filter port.PendingFilter) ([]*entity.ApprovalStage, error) {
	if approverID == "" {
		return nil, fmt.Errorf("%w: approver is required", approval.ErrValidation)
	}
	stages, err := s.stageRepo.ListPendingForApprover(ctx, approverID, filter)
	if err != nil {
		s.logger.Error("Failed to list pending approvals", "error", err, "approver_id", approverID)
		return nil, err
	}
	return stages, nil
}

// GetApprovalHistory returns all stages of an expense ordered by stage number
func (s *workflowServiceImpl) GetApprovalHistory(ctx context.Context, expenseID int64) ([]*entity.ApprovalStage, error) {
	stages, err := s.stageRepo.GetByExpenseID(ctx, expenseID)
	if err != nil {
		s.logger.Error("Failed to get approval history", "error", err, "expense_id", expenseID)
		return nil, err
	}
	return stages, nil
}
