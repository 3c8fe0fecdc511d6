package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fisherjoey/SportsManager-sub006/internal/application/port"
	"github.com/fisherjoey/SportsManager-sub006/internal/domain/approval"
	"github.com/fisherjoey/SportsManager-sub006/internal/domain/entity"
	"github.com/fisherjoey/SportsManager-sub006/pkg/utils"
)

// ExportService renders an expense's approval audit trail to an Excel
// workbook for finance archiving.
type ExportService interface {
	ExportApprovalHistory(ctx context.Context, expenseID int64, outputPath string) error
}

type exportServiceImpl struct {
	stageRepo   port.StageRepository
	expenseRepo port.ExpenseRepository
	logger      Logger
}

// NewExportService creates a new ExportService
func NewExportService(stageRepo port.StageRepository, expenseRepo port.ExpenseRepository, logger Logger) ExportService {
	return &exportServiceImpl{
		stageRepo:   stageRepo,
		expenseRepo: expenseRepo,
		logger:      logger,
	}
}

func (s *exportServiceImpl) ExportApprovalHistory(ctx context.Context, expenseID int64, outputPath string) error {
	expense, err := s.expenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		return fmt.Errorf("get expense: %w", err)
	}
	if expense == nil {
		return fmt.Errorf("%w: expense %d", approval.ErrNotFound, expenseID)
	}

	stages, err := s.stageRepo.GetByExpenseID(ctx, expenseID)
	if err != nil {
		return fmt.Errorf("get stages: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	s.setCell(f, sheet, "A1", "Expense")
	s.setCell(f, sheet, "B1", fmt.Sprintf("%d", expense.ID))
	s.setCell(f, sheet, "A2", "Submitter")
	s.setCell(f, sheet, "B2", expense.SubmitterID)
	s.setCell(f, sheet, "A3", "Amount")
	s.setCell(f, sheet, "B3", utils.FormatCents(expense.AmountCents))
	s.setCell(f, sheet, "A4", "Payment method")
	s.setCell(f, sheet, "B4", expense.PaymentMethod)
	s.setCell(f, sheet, "A5", "Status")
	s.setCell(f, sheet, "B5", expense.Status)

	headers := []string{"Stage", "Role", "Status", "Approvers", "Decided by", "Decided at", "Approved amount", "Notes", "Rejection reason", "Escalated to", "Delegated to"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 7)
		s.setCell(f, sheet, cell, h)
	}

	for row, stage := range stages {
		values := stageRow(stage)
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+8)
			s.setCell(f, sheet, cell, v)
		}
	}

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	s.logger.Info("Approval history exported",
		"expense_id", expenseID,
		"stages", len(stages),
		"output_path", outputPath)
	return nil
}

func (s *exportServiceImpl) setCell(f *excelize.File, sheet, cell, value string) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		s.logger.Warn("Failed to set cell value", "sheet", sheet, "cell", cell, "error", err)
	}
}

func stageRow(stage *entity.ApprovalStage) []string {
	names := make([]string, 0, len(stage.RequiredApprovers))
	for _, a := range stage.RequiredApprovers {
		names = append(names, a.ID)
	}

	decidedBy, decidedAt, approvedAmount, notes, rejectionReason := "", "", "", "", ""
	if stage.Decision != nil {
		decidedBy = stage.Decision.ApproverID
		if decidedBy == "" {
			decidedBy = "system"
		}
		decidedAt = stage.Decision.DecidedAt.Format(time.RFC3339)
		if stage.Decision.ApprovedCents != nil {
			approvedAmount = utils.FormatCents(*stage.Decision.ApprovedCents)
		}
		notes = stage.Decision.Notes
		rejectionReason = stage.Decision.RejectionReason
	}

	return []string{
		fmt.Sprintf("%d/%d", stage.StageNumber, stage.TotalStages),
		stage.StageRole,
		stage.Status,
		strings.Join(names, ", "),
		decidedBy,
		decidedAt,
		approvedAmount,
		notes,
		rejectionReason,
		stage.EscalatedTo,
		stage.DelegatedTo,
	}
}
