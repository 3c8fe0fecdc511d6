package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fisherjoey/SportsManager-sub006/internal/application/port"
	"github.com/fisherjoey/SportsManager-sub006/internal/domain/approval"
	"github.com/fisherjoey/SportsManager-sub006/internal/domain/entity"
)

// Decision action constants
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// DecisionInput carries the approver-supplied fields of a decision.
type DecisionInput struct {
	Action          string
	Notes           string
	ApprovedCents   *int64
	RejectionReason string
}

// DecisionService validates and applies an approver's decision on the
// active stage of a workflow.
type DecisionService interface {
	// ProcessApprovalDecision applies the decision, then advances or rejects
	// the workflow within the same transaction as the status update. The
	// status transition is a conditional write: of two concurrent decisions
	// on one stage, exactly one succeeds and the other fails with
	// approval.ErrInvalidState.
	ProcessApprovalDecision(ctx context.Context, stageID int64, approverID string, input DecisionInput) (*entity.ApprovalStage, error)
}

type decisionServiceImpl struct {
	stageRepo port.StageRepository
	workflow  WorkflowService
	notifier  port.Notifier
	txManager port.TransactionManager
	logger    Logger
}

// NewDecisionService creates a new DecisionService
func NewDecisionService(
	stageRepo port.StageRepository,
	workflow WorkflowService,
	notifier port.Notifier,
	txManager port.TransactionManager,
	logger Logger,
) DecisionService {
	return &decisionServiceImpl{
		stageRepo: stageRepo,
		workflow:  workflow,
		notifier:  notifier,
		txManager: txManager,
		logger:    logger,
	}
}

func (s *decisionServiceImpl) ProcessApprovalDecision(ctx context.Context, stageID int64, approverID string, input DecisionInput) (*entity.ApprovalStage, error) {
	if err := validateDecisionInput(approverID, input); err != nil {
		return nil, err
	}

	stage, err := s.stageRepo.GetByID(ctx, stageID)
	if err != nil {
		return nil, fmt.Errorf("get stage: %w", err)
	}
	if stage == nil {
		return nil, fmt.Errorf("%w: stage %d", approval.ErrNotFound, stageID)
	}

	if stage.Status != approval.StatusActive.String() {
		return nil, fmt.Errorf("%w: stage %d is %s, decisions require an active stage",
			approval.ErrInvalidState, stageID, stage.Status)
	}

	if !stage.HasApprover(approverID) {
		return nil, fmt.Errorf("%w: %s is not a required approver of stage %d",
			approval.ErrUnauthorized, approverID, stageID)
	}

	if input.ApprovedCents != nil && !stage.CanModifyAmount {
		return nil, fmt.Errorf("%w: stage %d does not allow amount modification",
			approval.ErrValidation, stageID)
	}

	newStatus := approval.StatusApproved
	if input.Action == ActionReject {
		newStatus = approval.StatusRejected
	}

	decision := &entity.StageDecision{
		ApproverID:      approverID,
		DecidedAt:       time.Now(),
		Notes:           input.Notes,
		RejectionReason: input.RejectionReason,
	}
	if input.Action == ActionApprove {
		decision.ApprovedCents = input.ApprovedCents
	}

	var next *entity.ApprovalStage
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		// Conditional write: the active-status guard is evaluated at write
		// time, so a concurrent decision or escalation makes this fail.
		if err := s.stageRepo.Decide(txCtx, stageID, newStatus.String(), decision); err != nil {
			return err
		}

		stage.Status = newStatus.String()
		stage.Decision = decision

		switch newStatus {
		case approval.StatusApproved:
			next, err = s.workflow.Advance(txCtx, stage)
			return err
		default:
			return s.workflow.RejectAll(txCtx, stage)
		}
	})
	if err != nil {
		s.logger.Error("Failed to process decision",
			"error", err,
			"stage_id", stageID,
			"approver_id", approverID,
			"action", input.Action)
		return nil, err
	}

	s.logger.Info("Decision processed",
		"stage_id", stageID,
		"approver_id", approverID,
		"action", input.Action,
		"stage_number", stage.StageNumber,
		"total_stages", stage.TotalStages)

	if next != nil {
		if err := s.notifier.NotifyStageAssigned(ctx, next, next.RequiredApprovers); err != nil {
			s.logger.Warn("Failed to notify next stage approvers", "error", err, "stage_id", next.ID)
		}
	}

	return stage, nil
}

func validateDecisionInput(approverID string, input DecisionInput) error {
	if approverID == "" {
		return fmt.Errorf("%w: approver is required", approval.ErrValidation)
	}
	switch input.Action {
	case ActionApprove:
		if input.ApprovedCents != nil && *input.ApprovedCents <= 0 {
			return fmt.Errorf("%w: approved amount must be positive", approval.ErrValidation)
		}
	case ActionReject:
		if input.RejectionReason == "" {
			return fmt.Errorf("%w: rejection requires a reason", approval.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown action %q", approval.ErrValidation, input.Action)
	}
	return nil
}
