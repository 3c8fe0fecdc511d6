package service

import (
	"context"
	"time"

	"github.com/fisherjoey/SportsManager-sub006/internal/application/port"
	"github.com/fisherjoey/SportsManager-sub006/internal/domain/entity"
)

// Hand-rolled mocks with overridable function fields. Unset fields return
// zero values so each test only wires what it exercises.

type mockStageRepo struct {
	createFn        func(ctx context.Context, stage *entity.ApprovalStage) error
	getByIDFn       func(ctx context.Context, id int64) (*entity.ApprovalStage, error)
	getByExpenseFn  func(ctx context.Context, expenseID int64) ([]*entity.ApprovalStage, error)
	getByNumberFn   func(ctx context.Context, expenseID int64, stageNumber int) (*entity.ApprovalStage, error)
	listPendingFn   func(ctx context.Context, approverID string, filter port.PendingFilter) ([]*entity.ApprovalStage, error)
	listOverdueFn   func(ctx context.Context, now time.Time) ([]*entity.ApprovalStage, error)
	activateFn      func(ctx context.Context, id int64, activatedAt, deadlineAt time.Time) error
	decideFn        func(ctx context.Context, id int64, status string, decision *entity.StageDecision) error
	escalateFn      func(ctx context.Context, id int64, target string, escalatedAt time.Time, reason string, reactivate bool) error
	delegateFn      func(ctx context.Context, id int64, delegateTo, delegatedBy, reason string, delegatedAt time.Time) error
	addApproverFn   func(ctx context.Context, stageID int64, approver entity.Approver) error
	rejectAllFn     func(ctx context.Context, expenseID int64) error
}

func (m *mockStageRepo) Create(ctx context.Context, stage *entity.ApprovalStage) error {
	if m.createFn != nil {
		return m.createFn(ctx, stage)
	}
	return nil
}

func (m *mockStageRepo) GetByID(ctx context.Context, id int64) (*entity.ApprovalStage, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockStageRepo) GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.ApprovalStage, error) {
	if m.getByExpenseFn != nil {
		return m.getByExpenseFn(ctx, expenseID)
	}
	return nil, nil
}

func (m *mockStageRepo) GetByStageNumber(ctx context.Context, expenseID int64, stageNumber int) (*entity.ApprovalStage, error) {
	if m.getByNumberFn != nil {
		return m.getByNumberFn(ctx, expenseID, stageNumber)
	}
	return nil, nil
}

func (m *mockStageRepo) ListPendingForApprover(ctx context.Context, approverID string, filter port.PendingFilter) ([]*entity.ApprovalStage, error) {
	if m.listPendingFn != nil {
		return m.listPendingFn(ctx, approverID, filter)
	}
	return nil, nil
}

func (m *mockStageRepo) ListOverdue(ctx context.Context, now time.Time) ([]*entity.ApprovalStage, error) {
	if m.listOverdueFn != nil {
		return m.listOverdueFn(ctx, now)
	}
	return nil, nil
}

func (m *mockStageRepo) Activate(ctx context.Context, id int64, activatedAt, deadlineAt time.Time) error {
	if m.activateFn != nil {
		return m.activateFn(ctx, id, activatedAt, deadlineAt)
	}
	return nil
}

func (m *mockStageRepo) Decide(ctx context.Context, id int64, status string, decision *entity.StageDecision) error {
	if m.decideFn != nil {
		return m.decideFn(ctx, id, status, decision)
	}
	return nil
}

func (m *mockStageRepo) Escalate(ctx context.Context, id int64, target string, escalatedAt time.Time, reason string, reactivate bool) error {
	if m.escalateFn != nil {
		return m.escalateFn(ctx, id, target, escalatedAt, reason, reactivate)
	}
	return nil
}

func (m *mockStageRepo) Delegate(ctx context.Context, id int64, delegateTo, delegatedBy, reason string, delegatedAt time.Time) error {
	if m.delegateFn != nil {
		return m.delegateFn(ctx, id, delegateTo, delegatedBy, reason, delegatedAt)
	}
	return nil
}

func (m *mockStageRepo) AddApprover(ctx context.Context, stageID int64, approver entity.Approver) error {
	if m.addApproverFn != nil {
		return m.addApproverFn(ctx, stageID, approver)
	}
	return nil
}

func (m *mockStageRepo) RejectAllForExpense(ctx context.Context, expenseID int64) error {
	if m.rejectAllFn != nil {
		return m.rejectAllFn(ctx, expenseID)
	}
	return nil
}

type mockExpenseRepo struct {
	createFn    func(ctx context.Context, expense *entity.Expense) error
	getByIDFn   func(ctx context.Context, id int64) (*entity.Expense, error)
	getAmountFn func(ctx context.Context, id int64) (int64, error)
	setStatusFn func(ctx context.Context, id int64, status string) error

	statuses map[int64]string
}

func (m *mockExpenseRepo) Create(ctx context.Context, expense *entity.Expense) error {
	if m.createFn != nil {
		return m.createFn(ctx, expense)
	}
	return nil
}

func (m *mockExpenseRepo) GetByID(ctx context.Context, id int64) (*entity.Expense, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockExpenseRepo) GetAmount(ctx context.Context, id int64) (int64, error) {
	if m.getAmountFn != nil {
		return m.getAmountFn(ctx, id)
	}
	return 0, nil
}

func (m *mockExpenseRepo) SetStatus(ctx context.Context, id int64, status string) error {
	if m.setStatusFn != nil {
		return m.setStatusFn(ctx, id, status)
	}
	if m.statuses == nil {
		m.statuses = make(map[int64]string)
	}
	m.statuses[id] = status
	return nil
}

type mockDirectory struct {
	resolveApproversFn func(ctx context.Context, organizationID, rule string) ([]entity.Approver, error)
	resolveTargetFn    func(ctx context.Context, organizationID, rule string) (*entity.Approver, error)
}

func (m *mockDirectory) ResolveApprovers(ctx context.Context, organizationID, rule string) ([]entity.Approver, error) {
	if m.resolveApproversFn != nil {
		return m.resolveApproversFn(ctx, organizationID, rule)
	}
	return []entity.Approver{{ID: "approver-" + rule, Role: rule}}, nil
}

func (m *mockDirectory) ResolveEscalationTarget(ctx context.Context, organizationID, rule string) (*entity.Approver, error) {
	if m.resolveTargetFn != nil {
		return m.resolveTargetFn(ctx, organizationID, rule)
	}
	return &entity.Approver{ID: "target-" + rule, Role: rule}, nil
}

type mockNotifier struct {
	stageAssigned []int64
	escalations   []int64
	delegations   []int64
	outcomes      []int64
	err           error
}

func (m *mockNotifier) NotifyStageAssigned(_ context.Context, stage *entity.ApprovalStage, _ []entity.Approver) error {
	m.stageAssigned = append(m.stageAssigned, stage.ID)
	return m.err
}

func (m *mockNotifier) NotifyEscalation(_ context.Context, stage *entity.ApprovalStage, _ entity.Approver) error {
	m.escalations = append(m.escalations, stage.ID)
	return m.err
}

func (m *mockNotifier) NotifyDelegation(_ context.Context, stage *entity.ApprovalStage, _ entity.Approver) error {
	m.delegations = append(m.delegations, stage.ID)
	return m.err
}

func (m *mockNotifier) NotifyOutcome(_ context.Context, expense *entity.Expense, _ *entity.ApprovalStage) error {
	m.outcomes = append(m.outcomes, expense.ID)
	return m.err
}

// mockTxManager runs the function directly; the repositories under test are
// mocks, so there is nothing transactional to coordinate. It marks the
// context so tests can assert a call happened inside a transaction.
type mockTxManager struct {
	calls int
}

type mockTxKey struct{}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(context.WithValue(ctx, mockTxKey{}, true))
}

func inMockTx(ctx context.Context) bool {
	v, _ := ctx.Value(mockTxKey{}).(bool)
	return v
}

type testLogger struct{}

func (testLogger) Info(msg string, keysAndValues ...interface{})  {}
func (testLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (testLogger) Error(msg string, keysAndValues ...interface{}) {}
