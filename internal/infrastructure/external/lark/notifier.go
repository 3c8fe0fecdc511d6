package lark

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fisherjoey/SportsManager-sub006/internal/application/port"
	"github.com/fisherjoey/SportsManager-sub006/internal/domain/entity"
	"github.com/fisherjoey/SportsManager-sub006/pkg/utils"
)

// Notifier delivers approval notifications over Lark IM. Approver IDs are
// used as Lark open_ids; a send failure is reported to the caller, which
// logs it and moves on.
type Notifier struct {
	client *Client
	logger *zap.Logger
}

// NewNotifier creates a Lark-backed notifier.
func NewNotifier(client *Client, logger *zap.Logger) *Notifier {
	return &Notifier{
		client: client,
		logger: logger,
	}
}

var _ port.Notifier = (*Notifier)(nil)

// NotifyStageAssigned tells every required approver that a decision is waiting.
func (n *Notifier) NotifyStageAssigned(ctx context.Context, stage *entity.ApprovalStage, approvers []entity.Approver) error {
	text := fmt.Sprintf("Approval needed: expense %d, stage %d of %d (%s role).",
		stage.ExpenseID, stage.StageNumber, stage.TotalStages, stage.StageRole)
	if stage.DeadlineAt != nil {
		text += fmt.Sprintf(" Deadline: %s.", stage.DeadlineAt.Format("2006-01-02 15:04"))
	}

	var firstErr error
	for _, a := range approvers {
		if err := n.client.SendTextMessage(ctx, a.ID, text); err != nil {
			n.logger.Warn("Failed to notify approver",
				zap.String("approver_id", a.ID),
				zap.Int64("stage_id", stage.ID),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// NotifyEscalation tells the escalation target a stage is overdue.
func (n *Notifier) NotifyEscalation(ctx context.Context, stage *entity.ApprovalStage, target entity.Approver) error {
	text := fmt.Sprintf("Escalated to you: expense %d, stage %d (%s role) passed its response deadline.",
		stage.ExpenseID, stage.StageNumber, stage.StageRole)
	if stage.EscalationReason != "" {
		text += " " + stage.EscalationReason
	}
	return n.client.SendTextMessage(ctx, target.ID, text)
}

// NotifyDelegation tells the delegate they now hold decision rights.
func (n *Notifier) NotifyDelegation(ctx context.Context, stage *entity.ApprovalStage, delegate entity.Approver) error {
	text := fmt.Sprintf("Delegated to you by %s: expense %d, stage %d (%s role).",
		stage.DelegatedBy, stage.ExpenseID, stage.StageNumber, stage.StageRole)
	if stage.DelegationReason != "" {
		text += " Reason: " + stage.DelegationReason
	}
	return n.client.SendTextMessage(ctx, delegate.ID, text)
}

// NotifyOutcome tells the submitter the expense reached a terminal status.
func (n *Notifier) NotifyOutcome(ctx context.Context, expense *entity.Expense, stage *entity.ApprovalStage) error {
	text := fmt.Sprintf("Your expense %d (%s) was %s.",
		expense.ID, utils.FormatCents(expense.AmountCents), expense.Status)
	if stage != nil && stage.Decision != nil && stage.Decision.RejectionReason != "" {
		text += " Reason: " + stage.Decision.RejectionReason
	}
	return n.client.SendTextMessage(ctx, expense.SubmitterID, text)
}
