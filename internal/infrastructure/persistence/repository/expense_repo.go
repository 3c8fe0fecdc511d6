package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/fisherjoey/SportsManager-sub006/internal/application/port"
	"github.com/fisherjoey/SportsManager-sub006/internal/domain/approval"
	"github.com/fisherjoey/SportsManager-sub006/internal/domain/entity"
	"github.com/fisherjoey/SportsManager-sub006/internal/infrastructure/persistence/sqlite"
)

// ExpenseRepository implements port.ExpenseRepository
type ExpenseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sql.DB, logger *zap.Logger) port.ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new expense
func (r *ExpenseRepository) Create(ctx context.Context, expense *entity.Expense) error {
	query := `
		INSERT INTO expenses (organization_id, submitter_id, description, amount_cents, payment_method, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	var description sql.NullString
	if expense.Description != "" {
		description = sql.NullString{String: expense.Description, Valid: true}
	}

	status := expense.Status
	if status == "" {
		status = entity.ExpenseStatusPending
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		expense.OrganizationID,
		expense.SubmitterID,
		description,
		expense.AmountCents,
		expense.PaymentMethod,
		status,
	)
	if err != nil {
		r.logger.Error("Failed to create expense",
			zap.String("organization_id", expense.OrganizationID),
			zap.Error(err))
		return fmt.Errorf("failed to create expense: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	expense.ID = id
	expense.Status = status
	return nil
}

// GetByID retrieves an expense by ID; returns nil, nil when absent
func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*entity.Expense, error) {
	query := `
		SELECT id, organization_id, submitter_id, description, amount_cents, payment_method, status, created_at, updated_at
		FROM expenses
		WHERE id = ?
	`

	var expense entity.Expense
	var description sql.NullString
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, id).Scan(
		&expense.ID,
		&expense.OrganizationID,
		&expense.SubmitterID,
		&description,
		&expense.AmountCents,
		&expense.PaymentMethod,
		&expense.Status,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get expense", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	expense.Description = description.String
	return &expense, nil
}

// GetAmount returns the expense amount in cents
func (r *ExpenseRepository) GetAmount(ctx context.Context, id int64) (int64, error) {
	query := `SELECT amount_cents FROM expenses WHERE id = ?`

	var amount int64
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, id).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: expense %d", approval.ErrNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get expense amount", zap.Int64("id", id), zap.Error(err))
		return 0, fmt.Errorf("failed to get expense amount: %w", err)
	}
	return amount, nil
}

// SetStatus updates the expense status
func (r *ExpenseRepository) SetStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE expenses SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to set expense status",
			zap.Int64("id", id),
			zap.String("status", status),
			zap.Error(err))
		return fmt.Errorf("failed to set expense status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: expense %d", approval.ErrNotFound, id)
	}
	return nil
}

// getExecutor returns appropriate executor based on context
func (r *ExpenseRepository) getExecutor(ctx context.Context) executor {
	if tx, ok := sqlite.TxFromContext(ctx); ok {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.ExpenseRepository = (*ExpenseRepository)(nil)
