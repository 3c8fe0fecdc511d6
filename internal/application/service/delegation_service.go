package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fisherjoey/SportsManager-sub006/internal/application/port"
	"github.com/fisherjoey/SportsManager-sub006/internal/domain/approval"
	"github.com/fisherjoey/SportsManager-sub006/internal/domain/entity"
)

// DelegationService reassigns an active stage's decision rights to another
// approver. Delegation is also the mechanism that revives a stuck escalated
// stage: it re-arms the stage to active regardless of which of the two
// statuses it held.
type DelegationService interface {
	DelegateApproval(ctx context.Context, stageID int64, delegateTo, delegatedBy, reason string) (*entity.ApprovalStage, error)
}

type delegationServiceImpl struct {
	stageRepo port.StageRepository
	directory port.Directory
	notifier  port.Notifier
	txManager port.TransactionManager
	logger    Logger
}

// NewDelegationService creates a new DelegationService
func NewDelegationService(
	stageRepo port.StageRepository,
	directory port.Directory,
	notifier port.Notifier,
	txManager port.TransactionManager,
	logger Logger,
) DelegationService {
	return &delegationServiceImpl{
		stageRepo: stageRepo,
		directory: directory,
		notifier:  notifier,
		txManager: txManager,
		logger:    logger,
	}
}

func (s *delegationServiceImpl) DelegateApproval(ctx context.Context, stageID int64, delegateTo, delegatedBy, reason string) (*entity.ApprovalStage, error) {
	if delegateTo == "" || delegatedBy == "" {
		return nil, fmt.Errorf("%w: delegate and delegator are required", approval.ErrValidation)
	}

	stage, err := s.stageRepo.GetByID(ctx, stageID)
	if err != nil {
		return nil, fmt.Errorf("get stage: %w", err)
	}
	if stage == nil {
		return nil, fmt.Errorf("%w: stage %d", approval.ErrNotFound, stageID)
	}

	if stage.Status != approval.StatusActive.String() && stage.Status != approval.StatusEscalated.String() {
		return nil, fmt.Errorf("%w: stage %d is %s, delegation requires an active or escalated stage",
			approval.ErrInvalidState, stageID, stage.Status)
	}

	if !stage.AllowDelegation {
		return nil, fmt.Errorf("%w: %s stage does not permit delegation", approval.ErrValidation, stage.StageRole)
	}

	delegate := entity.Approver{ID: delegateTo}

	now := time.Now()
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.stageRepo.Delegate(txCtx, stageID, delegateTo, delegatedBy, reason, now); err != nil {
			return err
		}
		if !stage.HasApprover(delegateTo) {
			if err := s.stageRepo.AddApprover(txCtx, stageID, delegate); err != nil {
				return fmt.Errorf("add delegate approver: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to delegate stage",
			"error", err,
			"stage_id", stageID,
			"delegate_to", delegateTo,
			"delegated_by", delegatedBy)
		return nil, err
	}

	stage.Status = approval.StatusActive.String()
	stage.DelegatedTo = delegateTo
	stage.DelegatedBy = delegatedBy
	stage.DelegatedAt = &now
	stage.DelegationReason = reason
	if !stage.HasApprover(delegateTo) {
		stage.RequiredApprovers = append(stage.RequiredApprovers, delegate)
	}

	s.logger.Info("Stage delegated",
		"stage_id", stageID,
		"delegate_to", delegateTo,
		"delegated_by", delegatedBy)

	if err := s.notifier.NotifyDelegation(ctx, stage, delegate); err != nil {
		s.logger.Warn("Failed to notify delegate", "error", err, "stage_id", stageID, "delegate", delegateTo)
	}

	return stage, nil
}
