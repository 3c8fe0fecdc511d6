package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/fisherjoey/SportsManager-sub006/internal/application/port"
	"github.com/fisherjoey/SportsManager-sub006/internal/domain/entity"
	"github.com/fisherjoey/SportsManager-sub006/internal/infrastructure/persistence/sqlite"
)

// DirectoryRepository implements port.Directory over the org_roles table.
// It is the shipped implementation of the directory collaborator; any other
// directory service can be substituted at the port.
type DirectoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDirectoryRepository creates a new directory repository
func NewDirectoryRepository(db *sql.DB, logger *zap.Logger) port.Directory {
	return &DirectoryRepository{
		db:     db,
		logger: logger,
	}
}

// ResolveApprovers returns all members holding a role in an organization
func (r *DirectoryRepository) ResolveApprovers(ctx context.Context, organizationID, rule string) ([]entity.Approver, error) {
	query := `
		SELECT member_id, member_name, role
		FROM org_roles
		WHERE organization_id = ? AND role = ?
		ORDER BY member_id
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, organizationID, rule)
	if err != nil {
		r.logger.Error("Failed to resolve approvers",
			zap.String("organization_id", organizationID),
			zap.String("rule", rule),
			zap.Error(err))
		return nil, fmt.Errorf("failed to resolve approvers: %w", err)
	}
	defer rows.Close()

	var approvers []entity.Approver
	for rows.Next() {
		var a entity.Approver
		var name sql.NullString
		if err := rows.Scan(&a.ID, &name, &a.Role); err != nil {
			return nil, fmt.Errorf("failed to scan approver: %w", err)
		}
		a.Name = name.String
		approvers = append(approvers, a)
	}
	return approvers, rows.Err()
}

// ResolveEscalationTarget returns the first member holding the escalation
// role, or nil with no error when nobody holds it.
func (r *DirectoryRepository) ResolveEscalationTarget(ctx context.Context, organizationID, rule string) (*entity.Approver, error) {
	query := `
		SELECT member_id, member_name, role
		FROM org_roles
		WHERE organization_id = ? AND role = ?
		ORDER BY member_id
		LIMIT 1
	`

	var a entity.Approver
	var name sql.NullString
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, organizationID, rule).Scan(&a.ID, &name, &a.Role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to resolve escalation target",
			zap.String("organization_id", organizationID),
			zap.String("rule", rule),
			zap.Error(err))
		return nil, fmt.Errorf("failed to resolve escalation target: %w", err)
	}

	a.Name = name.String
	return &a, nil
}

// getExecutor returns appropriate executor based on context
func (r *DirectoryRepository) getExecutor(ctx context.Context) executor {
	if tx, ok := sqlite.TxFromContext(ctx); ok {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.Directory = (*DirectoryRepository)(nil)
