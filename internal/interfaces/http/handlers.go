package http

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fisherjoey/SportsManager-sub006/internal/application/port"
	"github.com/fisherjoey/SportsManager-sub006/internal/application/service"
	"github.com/fisherjoey/SportsManager-sub006/internal/domain/approval"
	"github.com/fisherjoey/SportsManager-sub006/internal/domain/entity"
	"github.com/fisherjoey/SportsManager-sub006/pkg/utils"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	workflowService   service.WorkflowService
	decisionService   service.DecisionService
	delegationService service.DelegationService
	escalationService service.EscalationService
	exportService     service.ExportService
	exportDir         string
	logger            Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	workflowService service.WorkflowService,
	decisionService service.DecisionService,
	delegationService service.DelegationService,
	escalationService service.EscalationService,
	exportService service.ExportService,
	exportDir string,
	logger Logger,
) *Handlers {
	return &Handlers{
		workflowService:   workflowService,
		decisionService:   decisionService,
		delegationService: delegationService,
		escalationService: escalationService,
		exportService:     exportService,
		exportDir:         exportDir,
		logger:            logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// SubmitExpenseRequest represents the expense submission payload. Amounts
// are decimal strings ("1000.01"); they are converted to cents at this
// boundary so routing never touches floats.
type SubmitExpenseRequest struct {
	OrganizationID   string `json:"organization_id" binding:"required"`
	SubmitterID      string `json:"submitter_id" binding:"required"`
	Description      string `json:"description"`
	Amount           string `json:"amount" binding:"required"`
	PaymentMethod    string `json:"payment_method" binding:"required"`
	RequiresApproval bool   `json:"requires_approval"`
}

// DecisionRequest represents an approver's decision payload
type DecisionRequest struct {
	ApproverID      string `json:"approver_id" binding:"required"`
	Action          string `json:"action" binding:"required"`
	Notes           string `json:"notes"`
	ApprovedAmount  string `json:"approved_amount"`
	RejectionReason string `json:"rejection_reason"`
}

// DelegationRequest represents a delegation payload
type DelegationRequest struct {
	DelegateTo  string `json:"delegate_to" binding:"required"`
	DelegatedBy string `json:"delegated_by" binding:"required"`
	Reason      string `json:"reason"`
}

// ExpenseResponse represents an expense in API responses
type ExpenseResponse struct {
	ID             int64  `json:"id"`
	OrganizationID string `json:"organization_id"`
	SubmitterID    string `json:"submitter_id"`
	Description    string `json:"description,omitempty"`
	Amount         string `json:"amount"`
	PaymentMethod  string `json:"payment_method"`
	Status         string `json:"status"`
}

// SubmitExpenseResponse bundles the created expense with its workflow
type SubmitExpenseResponse struct {
	Expense ExpenseResponse         `json:"expense"`
	Stages  []*entity.ApprovalStage `json:"stages"`
}

// EscalationRunResponse reports a manual escalation sweep
type EscalationRunResponse struct {
	Escalated int `json:"escalated"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// SubmitExpense handles POST /api/v1/expenses
func (h *Handlers) SubmitExpense(c *gin.Context) {
	var req SubmitExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	amountCents, err := utils.ParseAmountToCents(req.Amount)
	if err != nil {
		h.badRequest(c, "invalid amount: "+err.Error())
		return
	}

	expense := &entity.Expense{
		OrganizationID: req.OrganizationID,
		SubmitterID:    req.SubmitterID,
		Description:    req.Description,
		AmountCents:    amountCents,
	}
	method := entity.PaymentMethod{
		Type:             req.PaymentMethod,
		RequiresApproval: req.RequiresApproval,
	}

	stages, err := h.workflowService.SubmitExpense(c.Request.Context(), expense, method)
	if err != nil {
		h.respondError(c, err, "failed to submit expense")
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data: SubmitExpenseResponse{
			Expense: toExpenseResponse(expense),
			Stages:  stages,
		},
	})
}

// ProcessDecision handles POST /api/v1/stages/:id/decision
func (h *Handlers) ProcessDecision(c *gin.Context) {
	stageID, ok := h.stageIDParam(c)
	if !ok {
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	input := service.DecisionInput{
		Action:          req.Action,
		Notes:           req.Notes,
		RejectionReason: req.RejectionReason,
	}
	if req.ApprovedAmount != "" {
		cents, err := utils.ParseAmountToCents(req.ApprovedAmount)
		if err != nil {
			h.badRequest(c, "invalid approved_amount: "+err.Error())
			return
		}
		input.ApprovedCents = &cents
	}

	stage, err := h.decisionService.ProcessApprovalDecision(c.Request.Context(), stageID, req.ApproverID, input)
	if err != nil {
		h.respondError(c, err, "failed to process decision")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: stage})
}

// DelegateApproval handles POST /api/v1/stages/:id/delegate
func (h *Handlers) DelegateApproval(c *gin.Context) {
	stageID, ok := h.stageIDParam(c)
	if !ok {
		return
	}

	var req DelegationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	stage, err := h.delegationService.DelegateApproval(c.Request.Context(), stageID, req.DelegateTo, req.DelegatedBy, req.Reason)
	if err != nil {
		h.respondError(c, err, "failed to delegate approval")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: stage})
}

// ListPendingApprovals handles GET /api/v1/approvals/pending/:approver
func (h *Handlers) ListPendingApprovals(c *gin.Context) {
	approverID := c.Param("approver")

	filter := port.PendingFilter{
		OrganizationID: c.Query("organization_id"),
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filter.Offset = n
		}
	}

	stages, err := h.workflowService.GetPendingApprovalsForApprover(c.Request.Context(), approverID, filter)
	if err != nil {
		h.respondError(c, err, "failed to list pending approvals")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: stages})
}

// GetApprovalHistory handles GET /api/v1/expenses/:id/history
func (h *Handlers) GetApprovalHistory(c *gin.Context) {
	expenseID, ok := h.expenseIDParam(c)
	if !ok {
		return
	}

	stages, err := h.workflowService.GetApprovalHistory(c.Request.Context(), expenseID)
	if err != nil {
		h.respondError(c, err, "failed to get approval history")
		return
	}
	if len(stages) == 0 {
		c.JSON(http.StatusNotFound, Response{
			Success: false,
			Error:   "no approval history for expense",
		})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: stages})
}

// ExportApprovalHistory handles GET /api/v1/expenses/:id/export
func (h *Handlers) ExportApprovalHistory(c *gin.Context) {
	expenseID, ok := h.expenseIDParam(c)
	if !ok {
		return
	}

	fileName := fmt.Sprintf("approval_history_%d_%s.xlsx", expenseID, time.Now().UTC().Format("20060102T150405"))
	outputPath := filepath.Join(h.exportDir, fileName)

	if err := h.exportService.ExportApprovalHistory(c.Request.Context(), expenseID, outputPath); err != nil {
		h.respondError(c, err, "failed to export approval history")
		return
	}

	c.FileAttachment(outputPath, fileName)
}

// RunEscalations handles POST /api/v1/escalations/run. The periodic sweeper
// covers normal operation; this endpoint exists for operators.
func (h *Handlers) RunEscalations(c *gin.Context) {
	count, err := h.escalationService.HandleEscalations(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.respondError(c, err, "escalation sweep failed")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    EscalationRunResponse{Escalated: count},
	})
}

func (h *Handlers) stageIDParam(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.badRequest(c, "invalid stage ID")
		return 0, false
	}
	return id, true
}

func (h *Handlers) expenseIDParam(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.badRequest(c, "invalid expense ID")
		return 0, false
	}
	return id, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// respondError maps sentinel errors to HTTP status codes.
func (h *Handlers) respondError(c *gin.Context, err error, logMsg string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, approval.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, approval.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, approval.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, approval.ErrInvalidState):
		status = http.StatusConflict
	}

	h.logger.Error(logMsg, "error", err, "status", status, "path", c.Request.URL.Path)
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

func toExpenseResponse(e *entity.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:             e.ID,
		OrganizationID: e.OrganizationID,
		SubmitterID:    e.SubmitterID,
		Description:    e.Description,
		Amount:         utils.FormatCents(e.AmountCents),
		PaymentMethod:  e.PaymentMethod,
		Status:         e.Status,
	}
}
