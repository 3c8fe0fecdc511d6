package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fisherjoey/SportsManager-sub006/internal/application/port"
	"github.com/fisherjoey/SportsManager-sub006/internal/application/service"
	"github.com/fisherjoey/SportsManager-sub006/internal/domain/approval"
	"github.com/fisherjoey/SportsManager-sub006/internal/domain/entity"
)

type stubWorkflowService struct {
	submitExpenseFn func(ctx context.Context, expense *entity.Expense, method entity.PaymentMethod) ([]*entity.ApprovalStage, error)
	getPendingFn    func(ctx context.Context, approverID string, filter port.PendingFilter) ([]*entity.ApprovalStage, error)
	getHistoryFn    func(ctx context.Context, expenseID int64) ([]*entity.ApprovalStage, error)
}

func (s *stubWorkflowService) DetermineWorkflow(ctx context.Context, amountCents int64, method entity.PaymentMethod) (approval.WorkflowPlan, error) {
	return approval.WorkflowPlan{}, nil
}

func (s *stubWorkflowService) SubmitExpense(ctx context.Context, expense *entity.Expense, method entity.PaymentMethod) ([]*entity.ApprovalStage, error) {
	if s.submitExpenseFn != nil {
		return s.submitExpenseFn(ctx, expense, method)
	}
	return nil, nil
}

func (s *stubWorkflowService) CreateApprovalWorkflow(ctx context.Context, expenseID int64, plan approval.WorkflowPlan) ([]*entity.ApprovalStage, error) {
	return nil, nil
}

func (s *stubWorkflowService) Advance(ctx context.Context, current *entity.ApprovalStage) (*entity.ApprovalStage, error) {
	return nil, nil
}

func (s *stubWorkflowService) Complete(ctx context.Context, finalStage *entity.ApprovalStage) error {
	return nil
}

func (s *stubWorkflowService) RejectAll(ctx context.Context, rejectedStage *entity.ApprovalStage) error {
	return nil
}

func (s *stubWorkflowService) GetPendingApprovalsForApprover(ctx context.Context, approverID string, filter port.PendingFilter) ([]*entity.ApprovalStage, error) {
	if s.getPendingFn != nil {
		return s.getPendingFn(ctx, approverID, filter)
	}
	return nil, nil
}

func (s *stubWorkflowService) GetApprovalHistory(ctx context.Context, expenseID int64) ([]*entity.ApprovalStage, error) {
	if s.getHistoryFn != nil {
		return s.getHistoryFn(ctx, expenseID)
	}
	return nil, nil
}

type stubDecisionService struct {
	processFn func(ctx context.Context, stageID int64, approverID string, input service.DecisionInput) (*entity.ApprovalStage, error)
}

func (s *stubDecisionService) ProcessApprovalDecision(ctx context.Context, stageID int64, approverID string, input service.DecisionInput) (*entity.ApprovalStage, error) {
	if s.processFn != nil {
		return s.processFn(ctx, stageID, approverID, input)
	}
	return &entity.ApprovalStage{ID: stageID}, nil
}

type stubDelegationService struct {
	delegateFn func(ctx context.Context, stageID int64, delegateTo, delegatedBy, reason string) (*entity.ApprovalStage, error)
}

func (s *stubDelegationService) DelegateApproval(ctx context.Context, stageID int64, delegateTo, delegatedBy, reason string) (*entity.ApprovalStage, error) {
	if s.delegateFn != nil {
		return s.delegateFn(ctx, stageID, delegateTo, delegatedBy, reason)
	}
	return &entity.ApprovalStage{ID: stageID}, nil
}

type stubEscalationService struct {
	handleFn func(ctx context.Context, now time.Time) (int, error)
}

func (s *stubEscalationService) HandleEscalations(ctx context.Context, now time.Time) (int, error) {
	if s.handleFn != nil {
		return s.handleFn(ctx, now)
	}
	return 0, nil
}

type stubExportService struct {
	exportFn func(ctx context.Context, expenseID int64, outputPath string) error
}

func (s *stubExportService) ExportApprovalHistory(ctx context.Context, expenseID int64, outputPath string) error {
	if s.exportFn != nil {
		return s.exportFn(ctx, expenseID, outputPath)
	}
	return nil
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

func newTestServer(t *testing.T, workflow *stubWorkflowService, decision *stubDecisionService, delegation *stubDelegationService, escalation *stubEscalationService, export *stubExportService) *Server {
	t.Helper()
	if workflow == nil {
		workflow = &stubWorkflowService{}
	}
	if decision == nil {
		decision = &stubDecisionService{}
	}
	if delegation == nil {
		delegation = &stubDelegationService{}
	}
	if escalation == nil {
		escalation = &stubEscalationService{}
	}
	if export == nil {
		export = &stubExportService{}
	}
	cfg := DefaultServerConfig()
	cfg.ExportDir = t.TempDir()
	return NewServer(cfg, workflow, decision, delegation, escalation, export, nopLogger{})
}

func doRequest(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	server := newTestServer(t, nil, nil, nil, nil, nil)
	rec := doRequest(t, server, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestSubmitExpense(t *testing.T) {
	workflow := &stubWorkflowService{
		submitExpenseFn: func(ctx context.Context, expense *entity.Expense, method entity.PaymentMethod) ([]*entity.ApprovalStage, error) {
			assert.Equal(t, int64(150_050), expense.AmountCents)
			assert.Equal(t, "credit_card", method.Type)
			expense.ID = 42
			expense.PaymentMethod = method.Type
			expense.Status = entity.ExpenseStatusPending
			return []*entity.ApprovalStage{{ID: 1, ExpenseID: 42, StageNumber: 1, TotalStages: 2}}, nil
		},
	}
	server := newTestServer(t, workflow, nil, nil, nil, nil)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/expenses", map[string]interface{}{
		"organization_id": "org-1",
		"submitter_id":    "user-1",
		"amount":          "1500.50",
		"payment_method":  "credit_card",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Expense ExpenseResponse `json:"expense"`
			Stages  []struct {
				ID int64 `json:"id"`
			} `json:"stages"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, int64(42), resp.Data.Expense.ID)
	assert.Equal(t, "1500.50", resp.Data.Expense.Amount)
	require.Len(t, resp.Data.Stages, 1)
}

func TestSubmitExpenseBadAmount(t *testing.T) {
	server := newTestServer(t, nil, nil, nil, nil, nil)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/expenses", map[string]interface{}{
		"organization_id": "org-1",
		"submitter_id":    "user-1",
		"amount":          "12.345",
		"payment_method":  "credit_card",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitExpenseMissingFields(t *testing.T) {
	server := newTestServer(t, nil, nil, nil, nil, nil)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/expenses", map[string]interface{}{
		"amount": "10.00",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessDecisionParsesApprovedAmount(t *testing.T) {
	var gotInput service.DecisionInput
	decision := &stubDecisionService{
		processFn: func(ctx context.Context, stageID int64, approverID string, input service.DecisionInput) (*entity.ApprovalStage, error) {
			assert.Equal(t, int64(5), stageID)
			assert.Equal(t, "mgr-1", approverID)
			gotInput = input
			return &entity.ApprovalStage{ID: stageID}, nil
		},
	}
	server := newTestServer(t, nil, decision, nil, nil, nil)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/stages/5/decision", map[string]interface{}{
		"approver_id":     "mgr-1",
		"action":          "approve",
		"approved_amount": "1400.00",
		"notes":           "trimmed",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "approve", gotInput.Action)
	require.NotNil(t, gotInput.ApprovedCents)
	assert.Equal(t, int64(140_000), *gotInput.ApprovedCents)
	assert.Equal(t, "trimmed", gotInput.Notes)
}

func TestProcessDecisionBadApprovedAmount(t *testing.T) {
	server := newTestServer(t, nil, nil, nil, nil, nil)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/stages/5/decision", map[string]interface{}{
		"approver_id":     "mgr-1",
		"action":          "approve",
		"approved_amount": "1.234",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDelegateErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", fmt.Errorf("%w: bad input", approval.ErrValidation), http.StatusBadRequest},
		{"not found", fmt.Errorf("%w: stage 9", approval.ErrNotFound), http.StatusNotFound},
		{"unauthorized", fmt.Errorf("%w: not an approver", approval.ErrUnauthorized), http.StatusForbidden},
		{"invalid state", fmt.Errorf("%w: already decided", approval.ErrInvalidState), http.StatusConflict},
		{"internal", fmt.Errorf("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delegation := &stubDelegationService{
				delegateFn: func(ctx context.Context, stageID int64, delegateTo, delegatedBy, reason string) (*entity.ApprovalStage, error) {
					return nil, tt.err
				},
			}
			server := newTestServer(t, nil, nil, delegation, nil, nil)

			rec := doRequest(t, server, http.MethodPost, "/api/v1/stages/9/delegate", map[string]interface{}{
				"delegate_to":  "mgr-2",
				"delegated_by": "mgr-1",
			})

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestListPendingApprovalsForwardsFilter(t *testing.T) {
	var gotApprover string
	var gotFilter port.PendingFilter
	workflow := &stubWorkflowService{
		getPendingFn: func(ctx context.Context, approverID string, filter port.PendingFilter) ([]*entity.ApprovalStage, error) {
			gotApprover = approverID
			gotFilter = filter
			return []*entity.ApprovalStage{{ID: 3}}, nil
		},
	}
	server := newTestServer(t, workflow, nil, nil, nil, nil)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/approvals/pending/mgr-1?organization_id=org-1&limit=10&offset=5", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mgr-1", gotApprover)
	assert.Equal(t, "org-1", gotFilter.OrganizationID)
	assert.Equal(t, 10, gotFilter.Limit)
	assert.Equal(t, 5, gotFilter.Offset)
}

func TestGetApprovalHistoryEmpty(t *testing.T) {
	server := newTestServer(t, &stubWorkflowService{}, nil, nil, nil, nil)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/expenses/77/history", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetApprovalHistoryBadID(t *testing.T) {
	server := newTestServer(t, nil, nil, nil, nil, nil)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/expenses/abc/history", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunEscalations(t *testing.T) {
	escalation := &stubEscalationService{
		handleFn: func(ctx context.Context, now time.Time) (int, error) {
			return 3, nil
		},
	}
	server := newTestServer(t, nil, nil, nil, escalation, nil)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/escalations/run", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"escalated":3`)
}
