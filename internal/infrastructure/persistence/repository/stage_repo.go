package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fisherjoey/SportsManager-sub006/internal/application/port"
	"github.com/fisherjoey/SportsManager-sub006/internal/domain/approval"
	"github.com/fisherjoey/SportsManager-sub006/internal/domain/entity"
	"github.com/fisherjoey/SportsManager-sub006/internal/infrastructure/persistence/sqlite"
)

const stageColumns = `
	id, expense_id, organization_id, submitter_id,
	stage_number, total_stages, status, stage_role,
	minimum_approvers, requires_all_approvers,
	approval_limit_cents, can_modify_amount, allow_delegation,
	activated_at, deadline_at, deadline_hours, escalation_hours, escalation_target,
	requires_business_justification, requires_receipt_validation,
	requires_business_case, requires_competitive_quotes,
	decided_by, decided_at, approved_cents, decision_notes, rejection_reason,
	escalated_to, escalated_at, escalation_reason,
	delegated_to, delegated_by, delegated_at, delegation_reason,
	created_at, updated_at`

// StageRepository implements port.StageRepository over sqlite.
// Status-guarded mutations are single conditional UPDATE statements; a guard
// miss is reported as approval.ErrInvalidState from RowsAffected.
type StageRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStageRepository creates a new stage repository
func NewStageRepository(db *sql.DB, logger *zap.Logger) port.StageRepository {
	return &StageRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a stage row and its required approver set
func (r *StageRepository) Create(ctx context.Context, stage *entity.ApprovalStage) error {
	query := `
		INSERT INTO approval_stages (
			expense_id, organization_id, submitter_id,
			stage_number, total_stages, status, stage_role,
			minimum_approvers, requires_all_approvers,
			approval_limit_cents, can_modify_amount, allow_delegation,
			activated_at, deadline_at, deadline_hours, escalation_hours, escalation_target,
			requires_business_justification, requires_receipt_validation,
			requires_business_case, requires_competitive_quotes,
			decided_by, decided_at, approved_cents, decision_notes, rejection_reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var approvalLimit sql.NullInt64
	if stage.ApprovalLimitCents != nil {
		approvalLimit = sql.NullInt64{Int64: *stage.ApprovalLimitCents, Valid: true}
	}
	var escalationTarget sql.NullString
	if stage.EscalationTarget != "" {
		escalationTarget = sql.NullString{String: stage.EscalationTarget, Valid: true}
	}
	var activatedAt, deadlineAt sql.NullTime
	if stage.ActivatedAt != nil {
		activatedAt = sql.NullTime{Time: *stage.ActivatedAt, Valid: true}
	}
	if stage.DeadlineAt != nil {
		deadlineAt = sql.NullTime{Time: *stage.DeadlineAt, Valid: true}
	}

	var decidedBy, decisionNotes, rejectionReason sql.NullString
	var decidedAt sql.NullTime
	var approvedCents sql.NullInt64
	if stage.Decision != nil {
		if stage.Decision.ApproverID != "" {
			decidedBy = sql.NullString{String: stage.Decision.ApproverID, Valid: true}
		}
		decidedAt = sql.NullTime{Time: stage.Decision.DecidedAt, Valid: true}
		if stage.Decision.ApprovedCents != nil {
			approvedCents = sql.NullInt64{Int64: *stage.Decision.ApprovedCents, Valid: true}
		}
		if stage.Decision.Notes != "" {
			decisionNotes = sql.NullString{String: stage.Decision.Notes, Valid: true}
		}
		if stage.Decision.RejectionReason != "" {
			rejectionReason = sql.NullString{String: stage.Decision.RejectionReason, Valid: true}
		}
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		stage.ExpenseID,
		stage.OrganizationID,
		stage.SubmitterID,
		stage.StageNumber,
		stage.TotalStages,
		stage.Status,
		stage.StageRole,
		stage.MinimumApprovers,
		stage.RequiresAllApprovers,
		approvalLimit,
		stage.CanModifyAmount,
		stage.AllowDelegation,
		activatedAt,
		deadlineAt,
		stage.DeadlineHours,
		stage.EscalationHours,
		escalationTarget,
		stage.Conditions.RequiresBusinessJustification,
		stage.Conditions.RequiresReceiptValidation,
		stage.Conditions.RequiresBusinessCase,
		stage.Conditions.RequiresCompetitiveQuotes,
		decidedBy,
		decidedAt,
		approvedCents,
		decisionNotes,
		rejectionReason,
	)
	if err != nil {
		r.logger.Error("Failed to create approval stage",
			zap.Int64("expense_id", stage.ExpenseID),
			zap.Int("stage_number", stage.StageNumber),
			zap.Error(err))
		return fmt.Errorf("failed to create approval stage: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	stage.ID = id

	for _, approver := range stage.RequiredApprovers {
		if err := r.AddApprover(ctx, id, approver); err != nil {
			return err
		}
	}

	return nil
}

// GetByID retrieves a stage by ID; returns nil, nil when absent
func (r *StageRepository) GetByID(ctx context.Context, id int64) (*entity.ApprovalStage, error) {
	query := `SELECT` + stageColumns + ` FROM approval_stages WHERE id = ?`

	stage, err := r.scanStage(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get approval stage by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get approval stage: %w", err)
	}

	if err := r.loadApprovers(ctx, stage); err != nil {
		return nil, err
	}
	return stage, nil
}

// GetByExpenseID retrieves all stages of an expense ordered by stage_number
func (r *StageRepository) GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.ApprovalStage, error) {
	query := `SELECT` + stageColumns + ` FROM approval_stages WHERE expense_id = ? ORDER BY stage_number`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, expenseID)
	if err != nil {
		r.logger.Error("Failed to get approval stages by expense ID",
			zap.Int64("expense_id", expenseID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get approval stages: %w", err)
	}
	defer rows.Close()

	return r.scanStages(ctx, rows)
}

// GetByStageNumber retrieves one stage of an expense; returns nil, nil when absent
func (r *StageRepository) GetByStageNumber(ctx context.Context, expenseID int64, stageNumber int) (*entity.ApprovalStage, error) {
	query := `SELECT` + stageColumns + ` FROM approval_stages WHERE expense_id = ? AND stage_number = ?`

	stage, err := r.scanStage(r.getExecutor(ctx).QueryRowContext(ctx, query, expenseID, stageNumber))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get approval stage by number",
			zap.Int64("expense_id", expenseID),
			zap.Int("stage_number", stageNumber),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get approval stage: %w", err)
	}

	if err := r.loadApprovers(ctx, stage); err != nil {
		return nil, err
	}
	return stage, nil
}

// ListPendingForApprover lists active stages awaiting the given approver
func (r *StageRepository) ListPendingForApprover(ctx context.Context, approverID string, filter port.PendingFilter) ([]*entity.ApprovalStage, error) {
	query := `
		SELECT` + stageColumns + `
		FROM approval_stages
		WHERE status = 'active'
		  AND id IN (SELECT stage_id FROM stage_approvers WHERE approver_id = ?)`
	args := []interface{}{approverID}

	if filter.OrganizationID != "" {
		query += ` AND organization_id = ?`
		args = append(args, filter.OrganizationID)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` ORDER BY deadline_at LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list pending stages",
			zap.String("approver_id", approverID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list pending stages: %w", err)
	}
	defer rows.Close()

	return r.scanStages(ctx, rows)
}

// ListOverdue lists active stages past deadline that were never escalated
func (r *StageRepository) ListOverdue(ctx context.Context, now time.Time) ([]*entity.ApprovalStage, error) {
	query := `
		SELECT` + stageColumns + `
		FROM approval_stages
		WHERE status = 'active'
		  AND deadline_at IS NOT NULL
		  AND deadline_at < ?
		  AND escalated_at IS NULL
		ORDER BY deadline_at`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, now)
	if err != nil {
		r.logger.Error("Failed to list overdue stages", zap.Error(err))
		return nil, fmt.Errorf("failed to list overdue stages: %w", err)
	}
	defer rows.Close()

	return r.scanStages(ctx, rows)
}

// Activate moves a scheduled stage to active. Conditional on status = scheduled.
func (r *StageRepository) Activate(ctx context.Context, id int64, activatedAt, deadlineAt time.Time) error {
	query := `
		UPDATE approval_stages
		SET status = 'active', activated_at = ?, deadline_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'scheduled'
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, activatedAt, deadlineAt, id)
	if err != nil {
		r.logger.Error("Failed to activate stage", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to activate stage: %w", err)
	}
	return r.requireRow(result, id, "activate")
}

// Decide transitions an active stage to a terminal status and records the
// decision in one conditional write.
func (r *StageRepository) Decide(ctx context.Context, id int64, status string, decision *entity.StageDecision) error {
	query := `
		UPDATE approval_stages
		SET status = ?, decided_by = ?, decided_at = ?, approved_cents = ?,
			decision_notes = ?, rejection_reason = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'active'
	`

	var decidedBy, notes, rejectionReason sql.NullString
	var approvedCents sql.NullInt64
	if decision.ApproverID != "" {
		decidedBy = sql.NullString{String: decision.ApproverID, Valid: true}
	}
	if decision.ApprovedCents != nil {
		approvedCents = sql.NullInt64{Int64: *decision.ApprovedCents, Valid: true}
	}
	if decision.Notes != "" {
		notes = sql.NullString{String: decision.Notes, Valid: true}
	}
	if decision.RejectionReason != "" {
		rejectionReason = sql.NullString{String: decision.RejectionReason, Valid: true}
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		status, decidedBy, decision.DecidedAt, approvedCents, notes, rejectionReason, id)
	if err != nil {
		r.logger.Error("Failed to decide stage",
			zap.Int64("id", id),
			zap.String("status", status),
			zap.Error(err))
		return fmt.Errorf("failed to decide stage: %w", err)
	}
	return r.requireRow(result, id, "decide")
}

// Escalate records escalation fields. Conditional on the stage still being
// active and never escalated, which makes the sweep idempotent per stage.
func (r *StageRepository) Escalate(ctx context.Context, id int64, target string, escalatedAt time.Time, reason string, reactivate bool) error {
	status := approval.StatusEscalated.String()
	if reactivate {
		status = approval.StatusActive.String()
	}

	query := `
		UPDATE approval_stages
		SET status = ?, escalated_to = ?, escalated_at = ?, escalation_reason = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'active' AND escalated_at IS NULL
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, status, target, escalatedAt, reason, id)
	if err != nil {
		r.logger.Error("Failed to escalate stage",
			zap.Int64("id", id),
			zap.String("target", target),
			zap.Error(err))
		return fmt.Errorf("failed to escalate stage: %w", err)
	}
	return r.requireRow(result, id, "escalate")
}

// Delegate records delegation fields and re-arms the stage to active.
// Conditional on the stage being active or escalated.
func (r *StageRepository) Delegate(ctx context.Context, id int64, delegateTo, delegatedBy, reason string, delegatedAt time.Time) error {
	query := `
		UPDATE approval_stages
		SET status = 'active', delegated_to = ?, delegated_by = ?, delegated_at = ?,
			delegation_reason = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status IN ('active', 'escalated')
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, delegateTo, delegatedBy, delegatedAt, reason, id)
	if err != nil {
		r.logger.Error("Failed to delegate stage",
			zap.Int64("id", id),
			zap.String("delegate_to", delegateTo),
			zap.Error(err))
		return fmt.Errorf("failed to delegate stage: %w", err)
	}
	return r.requireRow(result, id, "delegate")
}

// AddApprover appends one approver to a stage's required set
func (r *StageRepository) AddApprover(ctx context.Context, stageID int64, approver entity.Approver) error {
	query := `INSERT OR IGNORE INTO stage_approvers (stage_id, approver_id, name, role) VALUES (?, ?, ?, ?)`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query, stageID, approver.ID, approver.Name, approver.Role)
	if err != nil {
		r.logger.Error("Failed to add stage approver",
			zap.Int64("stage_id", stageID),
			zap.String("approver_id", approver.ID),
			zap.Error(err))
		return fmt.Errorf("failed to add stage approver: %w", err)
	}
	return nil
}

// RejectAllForExpense forces all non-rejected stages of an expense to
// rejected. Decision columns are untouched, so a stage's own decision
// metadata is never overwritten.
func (r *StageRepository) RejectAllForExpense(ctx context.Context, expenseID int64) error {
	query := `
		UPDATE approval_stages
		SET status = 'rejected', updated_at = CURRENT_TIMESTAMP
		WHERE expense_id = ? AND status != 'rejected'
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query, expenseID)
	if err != nil {
		r.logger.Error("Failed to reject stages",
			zap.Int64("expense_id", expenseID),
			zap.Error(err))
		return fmt.Errorf("failed to reject stages: %w", err)
	}
	return nil
}

// requireRow maps a zero-row conditional update to ErrInvalidState
func (r *StageRepository) requireRow(result sql.Result, id int64, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s stage %d", approval.ErrInvalidState, op, id)
	}
	return nil
}

// loadApprovers fills a stage's required approver set from stage_approvers
func (r *StageRepository) loadApprovers(ctx context.Context, stage *entity.ApprovalStage) error {
	query := `SELECT approver_id, name, role FROM stage_approvers WHERE stage_id = ? ORDER BY approver_id`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, stage.ID)
	if err != nil {
		return fmt.Errorf("failed to load stage approvers: %w", err)
	}
	defer rows.Close()

	var approvers []entity.Approver
	for rows.Next() {
		var a entity.Approver
		var name, role sql.NullString
		if err := rows.Scan(&a.ID, &name, &role); err != nil {
			return fmt.Errorf("failed to scan stage approver: %w", err)
		}
		a.Name = name.String
		a.Role = role.String
		approvers = append(approvers, a)
	}
	stage.RequiredApprovers = approvers
	return rows.Err()
}

// scanStage scans a single stage row
func (r *StageRepository) scanStage(row *sql.Row) (*entity.ApprovalStage, error) {
	var stage entity.ApprovalStage
	dests := stageScanDests(&stage)
	if err := row.Scan(dests.targets...); err != nil {
		return nil, err
	}
	dests.apply(&stage)
	return &stage, nil
}

// scanStages scans multiple stage rows and loads their approver sets
func (r *StageRepository) scanStages(ctx context.Context, rows *sql.Rows) ([]*entity.ApprovalStage, error) {
	var stages []*entity.ApprovalStage
	for rows.Next() {
		var stage entity.ApprovalStage
		dests := stageScanDests(&stage)
		if err := rows.Scan(dests.targets...); err != nil {
			return nil, fmt.Errorf("failed to scan approval stage: %w", err)
		}
		dests.apply(&stage)
		stages = append(stages, &stage)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, stage := range stages {
		if err := r.loadApprovers(ctx, stage); err != nil {
			return nil, err
		}
	}
	return stages, nil
}

// stageDests holds the nullable scan targets for one stage row
type stageDests struct {
	targets []interface{}

	approvalLimit    sql.NullInt64
	activatedAt      sql.NullTime
	deadlineAt       sql.NullTime
	escalationTarget sql.NullString

	decidedBy       sql.NullString
	decidedAt       sql.NullTime
	approvedCents   sql.NullInt64
	decisionNotes   sql.NullString
	rejectionReason sql.NullString

	escalatedTo      sql.NullString
	escalatedAt      sql.NullTime
	escalationReason sql.NullString

	delegatedTo      sql.NullString
	delegatedBy      sql.NullString
	delegatedAt      sql.NullTime
	delegationReason sql.NullString
}

func stageScanDests(stage *entity.ApprovalStage) *stageDests {
	d := &stageDests{}
	d.targets = []interface{}{
		&stage.ID,
		&stage.ExpenseID,
		&stage.OrganizationID,
		&stage.SubmitterID,
		&stage.StageNumber,
		&stage.TotalStages,
		&stage.Status,
		&stage.StageRole,
		&stage.MinimumApprovers,
		&stage.RequiresAllApprovers,
		&d.approvalLimit,
		&stage.CanModifyAmount,
		&stage.AllowDelegation,
		&d.activatedAt,
		&d.deadlineAt,
		&stage.DeadlineHours,
		&stage.EscalationHours,
		&d.escalationTarget,
		&stage.Conditions.RequiresBusinessJustification,
		&stage.Conditions.RequiresReceiptValidation,
		&stage.Conditions.RequiresBusinessCase,
		&stage.Conditions.RequiresCompetitiveQuotes,
		&d.decidedBy,
		&d.decidedAt,
		&d.approvedCents,
		&d.decisionNotes,
		&d.rejectionReason,
		&d.escalatedTo,
		&d.escalatedAt,
		&d.escalationReason,
		&d.delegatedTo,
		&d.delegatedBy,
		&d.delegatedAt,
		&d.delegationReason,
		&stage.CreatedAt,
		&stage.UpdatedAt,
	}
	return d
}

// apply maps the nullable scan targets onto the entity
func (d *stageDests) apply(stage *entity.ApprovalStage) {
	if d.approvalLimit.Valid {
		stage.ApprovalLimitCents = &d.approvalLimit.Int64
	}
	if d.activatedAt.Valid {
		stage.ActivatedAt = &d.activatedAt.Time
	}
	if d.deadlineAt.Valid {
		stage.DeadlineAt = &d.deadlineAt.Time
	}
	stage.EscalationTarget = d.escalationTarget.String

	if d.decidedAt.Valid {
		decision := &entity.StageDecision{
			ApproverID:      d.decidedBy.String,
			DecidedAt:       d.decidedAt.Time,
			Notes:           d.decisionNotes.String,
			RejectionReason: d.rejectionReason.String,
		}
		if d.approvedCents.Valid {
			decision.ApprovedCents = &d.approvedCents.Int64
		}
		stage.Decision = decision
	}

	stage.EscalatedTo = d.escalatedTo.String
	if d.escalatedAt.Valid {
		stage.EscalatedAt = &d.escalatedAt.Time
	}
	stage.EscalationReason = d.escalationReason.String

	stage.DelegatedTo = d.delegatedTo.String
	stage.DelegatedBy = d.delegatedBy.String
	if d.delegatedAt.Valid {
		stage.DelegatedAt = &d.delegatedAt.Time
	}
	stage.DelegationReason = d.delegationReason.String
}

// getExecutor returns appropriate executor based on context
func (r *StageRepository) getExecutor(ctx context.Context) executor {
	if tx, ok := sqlite.TxFromContext(ctx); ok {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.StageRepository = (*StageRepository)(nil)
