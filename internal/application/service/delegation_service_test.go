package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fisherjoey/SportsManager-sub006/internal/domain/approval"
	"github.com/fisherjoey/SportsManager-sub006/internal/domain/entity"
)

type delegationFixture struct {
	stageRepo *mockStageRepo
	notifier  *mockNotifier
	service   DelegationService
}

func newDelegationFixture() *delegationFixture {
	f := &delegationFixture{
		stageRepo: &mockStageRepo{},
		notifier:  &mockNotifier{},
	}
	f.service = NewDelegationService(f.stageRepo, &mockDirectory{}, f.notifier, &mockTxManager{}, testLogger{})
	return f
}

func TestDelegateApprovalValidation(t *testing.T) {
	f := newDelegationFixture()

	_, err := f.service.DelegateApproval(context.Background(), 1, "", "mgr-1", "vacation")
	assert.True(t, errors.Is(err, approval.ErrValidation))

	_, err = f.service.DelegateApproval(context.Background(), 1, "mgr-3", "", "vacation")
	assert.True(t, errors.Is(err, approval.ErrValidation))
}

func TestDelegateApprovalStageNotFound(t *testing.T) {
	f := newDelegationFixture()

	_, err := f.service.DelegateApproval(context.Background(), 404, "mgr-3", "mgr-1", "vacation")
	assert.True(t, errors.Is(err, approval.ErrNotFound))
}

func TestDelegateApprovalFromActiveStage(t *testing.T) {
	f := newDelegationFixture()
	stage := activeStage(1, 2)
	f.stageRepo.getByIDFn = func(_ context.Context, id int64) (*entity.ApprovalStage, error) {
		return stage, nil
	}

	var added []entity.Approver
	f.stageRepo.addApproverFn = func(_ context.Context, _ int64, approver entity.Approver) error {
		added = append(added, approver)
		return nil
	}

	got, err := f.service.DelegateApproval(context.Background(), stage.ID, "mgr-3", "mgr-1", "out of office")
	require.NoError(t, err)

	assert.Equal(t, approval.StatusActive.String(), got.Status)
	assert.Equal(t, "mgr-3", got.DelegatedTo)
	assert.Equal(t, "mgr-1", got.DelegatedBy)
	assert.Equal(t, "out of office", got.DelegationReason)
	assert.NotNil(t, got.DelegatedAt)

	// The delegate joins the required set and can now decide
	require.Len(t, added, 1)
	assert.Equal(t, "mgr-3", added[0].ID)
	assert.True(t, got.HasApprover("mgr-3"))

	assert.Equal(t, []int64{stage.ID}, f.notifier.delegations)
}

func TestDelegateApprovalRevivesEscalatedStage(t *testing.T) {
	f := newDelegationFixture()
	stage := activeStage(1, 2)
	stage.Status = approval.StatusEscalated.String()
	f.stageRepo.getByIDFn = func(_ context.Context, id int64) (*entity.ApprovalStage, error) {
		return stage, nil
	}

	got, err := f.service.DelegateApproval(context.Background(), stage.ID, "senior-1", "mgr-1", "escalation handoff")
	require.NoError(t, err)

	// Delegation re-arms the stage for decisions
	assert.Equal(t, approval.StatusActive.String(), got.Status)
	assert.True(t, got.HasApprover("senior-1"))
}

func TestDelegateApprovalRejectsTerminalStage(t *testing.T) {
	f := newDelegationFixture()
	stage := activeStage(1, 2)
	stage.Status = approval.StatusApproved.String()
	f.stageRepo.getByIDFn = func(_ context.Context, id int64) (*entity.ApprovalStage, error) {
		return stage, nil
	}

	_, err := f.service.DelegateApproval(context.Background(), stage.ID, "mgr-3", "mgr-1", "")
	assert.True(t, errors.Is(err, approval.ErrInvalidState))
}

func TestDelegateApprovalDisallowedByStage(t *testing.T) {
	f := newDelegationFixture()
	stage := activeStage(1, 2)
	stage.AllowDelegation = false
	f.stageRepo.getByIDFn = func(_ context.Context, id int64) (*entity.ApprovalStage, error) {
		return stage, nil
	}

	_, err := f.service.DelegateApproval(context.Background(), stage.ID, "mgr-3", "mgr-1", "")
	assert.True(t, errors.Is(err, approval.ErrValidation))
}

func TestDelegateApprovalExistingApproverNotDuplicated(t *testing.T) {
	f := newDelegationFixture()
	stage := activeStage(1, 2)
	f.stageRepo.getByIDFn = func(_ context.Context, id int64) (*entity.ApprovalStage, error) {
		return stage, nil
	}

	addApproverCalls := 0
	f.stageRepo.addApproverFn = func(_ context.Context, _ int64, _ entity.Approver) error {
		addApproverCalls++
		return nil
	}

	// mgr-2 is already in the required set
	got, err := f.service.DelegateApproval(context.Background(), stage.ID, "mgr-2", "mgr-1", "")
	require.NoError(t, err)
	assert.Zero(t, addApproverCalls)
	assert.Equal(t, "mgr-2", got.DelegatedTo)
	assert.Len(t, got.RequiredApprovers, 2)
}
