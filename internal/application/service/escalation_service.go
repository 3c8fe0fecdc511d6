package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fisherjoey/SportsManager-sub006/internal/application/port"
	"github.com/fisherjoey/SportsManager-sub006/internal/domain/approval"
	"github.com/fisherjoey/SportsManager-sub006/internal/domain/entity"
)

// EscalationService scans for overdue active stages and escalates them to
// the stage's escalation target.
type EscalationService interface {
	// HandleEscalations escalates every overdue, not-yet-escalated active
	// stage. Stages are processed independently: one failure never aborts
	// the batch. Returns the count successfully escalated.
	HandleEscalations(ctx context.Context, now time.Time) (int, error)
}

type escalationServiceImpl struct {
	stageRepo port.StageRepository
	directory port.Directory
	notifier  port.Notifier
	txManager port.TransactionManager
	policy    approval.EscalationPolicy
	logger    Logger
}

// NewEscalationService creates a new EscalationService. The policy decides
// whether an escalated stage is held for explicit delegation or reactivated
// with the target added to its approvers.
func NewEscalationService(
	stageRepo port.StageRepository,
	directory port.Directory,
	notifier port.Notifier,
	txManager port.TransactionManager,
	policy approval.EscalationPolicy,
	logger Logger,
) EscalationService {
	return &escalationServiceImpl{
		stageRepo: stageRepo,
		directory: directory,
		notifier:  notifier,
		txManager: txManager,
		policy:    policy,
		logger:    logger,
	}
}

func (s *escalationServiceImpl) HandleEscalations(ctx context.Context, now time.Time) (int, error) {
	candidates, err := s.stageRepo.ListOverdue(ctx, now)
	if err != nil {
		s.logger.Error("Failed to list overdue stages", "error", err)
		return 0, fmt.Errorf("list overdue stages: %w", err)
	}

	escalated := 0
	for _, stage := range candidates {
		target, err := s.escalateStage(ctx, stage, now)
		if err != nil {
			s.logger.Warn("Stage escalation skipped",
				"error", err,
				"stage_id", stage.ID,
				"expense_id", stage.ExpenseID,
				"stage_number", stage.StageNumber)
			continue
		}
		escalated++

		if err := s.notifier.NotifyEscalation(ctx, stage, *target); err != nil {
			s.logger.Warn("Failed to notify escalation target",
				"error", err,
				"stage_id", stage.ID,
				"target", target.ID)
		}
	}

	if len(candidates) > 0 {
		s.logger.Info("Escalation sweep completed",
			"candidates", len(candidates),
			"escalated", escalated)
	}
	return escalated, nil
}

// escalateStage escalates one overdue stage. The escalated_at-unset guard in
// the repository makes the sweep idempotent per stage.
func (s *escalationServiceImpl) escalateStage(ctx context.Context, stage *entity.ApprovalStage, now time.Time) (*entity.Approver, error) {
	if stage.EscalationTarget == "" {
		return nil, fmt.Errorf("%w: stage %d has no escalation rule", approval.ErrEscalationTargetUnresolved, stage.ID)
	}

	target, err := s.directory.ResolveEscalationTarget(ctx, stage.OrganizationID, stage.EscalationTarget)
	if err != nil {
		return nil, fmt.Errorf("resolve escalation target: %w", err)
	}
	if target == nil {
		return nil, fmt.Errorf("%w: rule %q in organization %s",
			approval.ErrEscalationTargetUnresolved, stage.EscalationTarget, stage.OrganizationID)
	}

	overdue := now.Sub(deadlineOf(stage, now))
	reason := fmt.Sprintf("stage overdue by %s past deadline", overdue.Round(time.Minute))
	reactivate := s.policy == approval.EscalationReactivate

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.stageRepo.Escalate(txCtx, stage.ID, target.ID, now, reason, reactivate); err != nil {
			return err
		}
		if reactivate {
			return s.stageRepo.AddApprover(txCtx, stage.ID, *target)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("escalate stage: %w", err)
	}

	stage.EscalatedTo = target.ID
	stage.EscalatedAt = &now
	stage.EscalationReason = reason
	if reactivate {
		stage.RequiredApprovers = append(stage.RequiredApprovers, *target)
	} else {
		stage.Status = approval.StatusEscalated.String()
	}

	s.logger.Info("Stage escalated",
		"stage_id", stage.ID,
		"expense_id", stage.ExpenseID,
		"target", target.ID,
		"reactivated", reactivate)
	return target, nil
}

func deadlineOf(stage *entity.ApprovalStage, fallback time.Time) time.Time {
	if stage.DeadlineAt != nil {
		return *stage.DeadlineAt
	}
	return fallback
}
