package lark

import (
	"context"

	"go.uber.org/zap"

	"github.com/fisherjoey/SportsManager-sub006/internal/application/port"
	"github.com/fisherjoey/SportsManager-sub006/internal/domain/entity"
)

// NopNotifier is used when Lark credentials are not configured. It records
// notifications at debug level and always succeeds.
type NopNotifier struct {
	logger *zap.Logger
}

// NewNopNotifier creates a notifier that drops all notifications.
func NewNopNotifier(logger *zap.Logger) *NopNotifier {
	return &NopNotifier{logger: logger}
}

var _ port.Notifier = (*NopNotifier)(nil)

func (n *NopNotifier) NotifyStageAssigned(_ context.Context, stage *entity.ApprovalStage, approvers []entity.Approver) error {
	n.logger.Debug("Notification dropped (Lark disabled)",
		zap.String("kind", "stage_assigned"),
		zap.Int64("stage_id", stage.ID),
		zap.Int("approvers", len(approvers)))
	return nil
}

func (n *NopNotifier) NotifyEscalation(_ context.Context, stage *entity.ApprovalStage, target entity.Approver) error {
	n.logger.Debug("Notification dropped (Lark disabled)",
		zap.String("kind", "escalation"),
		zap.Int64("stage_id", stage.ID),
		zap.String("target_id", target.ID))
	return nil
}

func (n *NopNotifier) NotifyDelegation(_ context.Context, stage *entity.ApprovalStage, delegate entity.Approver) error {
	n.logger.Debug("Notification dropped (Lark disabled)",
		zap.String("kind", "delegation"),
		zap.Int64("stage_id", stage.ID),
		zap.String("delegate_id", delegate.ID))
	return nil
}

func (n *NopNotifier) NotifyOutcome(_ context.Context, expense *entity.Expense, _ *entity.ApprovalStage) error {
	n.logger.Debug("Notification dropped (Lark disabled)",
		zap.String("kind", "outcome"),
		zap.Int64("expense_id", expense.ID))
	return nil
}
