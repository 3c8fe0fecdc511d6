package approval

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fisherjoey/SportsManager-sub006/internal/domain/entity"
)

func newResolver(t *testing.T) *ThresholdResolver {
	t.Helper()
	resolver, err := NewThresholdResolver(DefaultRoutingConfig())
	require.NoError(t, err)
	return resolver
}

func method(methodType string) entity.PaymentMethod {
	return entity.PaymentMethod{Type: methodType}
}

func TestResolveAutoApproval(t *testing.T) {
	resolver := newResolver(t)

	tests := []struct {
		name        string
		amountCents int64
		method      entity.PaymentMethod
		auto        bool
	}{
		{"reimbursement at limit", 5_000, method(entity.PaymentPersonReimbursement), true},
		{"reimbursement one cent over", 5_001, method(entity.PaymentPersonReimbursement), false},
		{"credit card at limit", 20_000, method(entity.PaymentCreditCard), true},
		{"credit card over limit", 20_001, method(entity.PaymentCreditCard), false},
		{"purchase order never auto-approves", 1, method(entity.PaymentPurchaseOrder), false},
		{"direct vendor at limit", 10_000, method(entity.PaymentDirectVendor), true},
		{"direct vendor over limit", 10_001, method(entity.PaymentDirectVendor), false},
		{
			"method forcing approval beats amount",
			100,
			entity.PaymentMethod{Type: entity.PaymentPersonReimbursement, RequiresApproval: true},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := resolver.Resolve(tt.amountCents, tt.method)
			require.NoError(t, err)
			assert.Equal(t, tt.auto, plan.AutoApproved)
			if tt.auto {
				assert.Empty(t, plan.Stages)
				assert.NotEmpty(t, plan.Reason)
			} else {
				assert.NotEmpty(t, plan.Stages)
			}
		})
	}
}

func TestResolveStageBoundaries(t *testing.T) {
	resolver := newResolver(t)

	tests := []struct {
		name        string
		amountCents int64
		wantRoles   []string
	}{
		{"manager only below finance threshold", 50_000, []string{RoleManager}},
		{"exactly 1000.00 stays manager only", 100_000, []string{RoleManager}},
		{"1000.01 adds finance", 100_001, []string{RoleManager, RoleFinance}},
		{"exactly 5000.00 stays two stages", 500_000, []string{RoleManager, RoleFinance}},
		{"5000.01 adds executive", 500_001, []string{RoleManager, RoleFinance, RoleExecutive}},
		{"far above all thresholds", 2_000_000, []string{RoleManager, RoleFinance, RoleExecutive}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := resolver.Resolve(tt.amountCents, method(entity.PaymentCreditCard))
			require.NoError(t, err)
			require.False(t, plan.AutoApproved)
			require.Len(t, plan.Stages, len(tt.wantRoles))
			for i, role := range tt.wantRoles {
				assert.Equal(t, role, plan.Stages[i].Role, "stage %d", i+1)
			}
		})
	}
}

func TestResolveManagerLimits(t *testing.T) {
	resolver := newResolver(t)

	plan, err := resolver.Resolve(60_000, method(entity.PaymentPersonReimbursement))
	require.NoError(t, err)
	require.NotEmpty(t, plan.Stages)
	require.NotNil(t, plan.Stages[0].ApprovalLimitCents)
	assert.Equal(t, int64(50_000), *plan.Stages[0].ApprovalLimitCents)

	plan, err = resolver.Resolve(60_000, method(entity.PaymentCreditCard))
	require.NoError(t, err)
	require.NotNil(t, plan.Stages[0].ApprovalLimitCents)
	assert.Equal(t, int64(100_000), *plan.Stages[0].ApprovalLimitCents)
}

func TestResolveStageConditions(t *testing.T) {
	resolver := newResolver(t)

	t.Run("finance stage conditions", func(t *testing.T) {
		plan, err := resolver.Resolve(150_000, method(entity.PaymentCreditCard))
		require.NoError(t, err)
		require.Len(t, plan.Stages, 2)

		finance := plan.Stages[1]
		assert.True(t, finance.Conditions.RequiresBusinessJustification)
		assert.True(t, finance.Conditions.RequiresReceiptValidation)
		assert.True(t, finance.CanModifyAmount)
		assert.True(t, finance.AllowDelegation)
	})

	t.Run("executive stage below quotes threshold", func(t *testing.T) {
		plan, err := resolver.Resolve(600_000, method(entity.PaymentCreditCard))
		require.NoError(t, err)
		require.Len(t, plan.Stages, 3)

		executive := plan.Stages[2]
		assert.True(t, executive.Conditions.RequiresBusinessCase)
		assert.False(t, executive.Conditions.RequiresCompetitiveQuotes)
		assert.False(t, executive.CanModifyAmount)
		assert.False(t, executive.AllowDelegation)
	})

	t.Run("competitive quotes above 10000.00", func(t *testing.T) {
		plan, err := resolver.Resolve(1_000_001, method(entity.PaymentCreditCard))
		require.NoError(t, err)
		require.Len(t, plan.Stages, 3)
		assert.True(t, plan.Stages[2].Conditions.RequiresCompetitiveQuotes)

		plan, err = resolver.Resolve(1_000_000, method(entity.PaymentCreditCard))
		require.NoError(t, err)
		assert.False(t, plan.Stages[2].Conditions.RequiresCompetitiveQuotes)
	})
}

func TestResolveStageTimings(t *testing.T) {
	resolver := newResolver(t)

	plan, err := resolver.Resolve(600_000, method(entity.PaymentCreditCard))
	require.NoError(t, err)
	require.Len(t, plan.Stages, 3)

	assert.Equal(t, 48, plan.Stages[0].DeadlineHours)
	assert.Equal(t, 24, plan.Stages[0].EscalationHours)
	assert.Equal(t, 72, plan.Stages[1].DeadlineHours)
	assert.Equal(t, 48, plan.Stages[1].EscalationHours)
	assert.Equal(t, 120, plan.Stages[2].DeadlineHours)
	assert.Equal(t, 72, plan.Stages[2].EscalationHours)
}

func TestResolveEscalationTargets(t *testing.T) {
	resolver := newResolver(t)

	plan, err := resolver.Resolve(600_000, method(entity.PaymentCreditCard))
	require.NoError(t, err)
	require.Len(t, plan.Stages, 3)

	assert.Equal(t, RoleSeniorManager, plan.Stages[0].EscalateToRule)
	assert.Equal(t, RoleFinanceDirector, plan.Stages[1].EscalateToRule)
	assert.Equal(t, RoleCEO, plan.Stages[2].EscalateToRule)
}

func TestResolveInvalidInput(t *testing.T) {
	resolver := newResolver(t)

	_, err := resolver.Resolve(0, method(entity.PaymentCreditCard))
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = resolver.Resolve(-100, method(entity.PaymentCreditCard))
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = resolver.Resolve(1_000, method("wire_transfer"))
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestRoutingConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RoutingConfig)
		wantErr bool
	}{
		{"default config valid", func(c *RoutingConfig) {}, false},
		{"empty auto-approval limits", func(c *RoutingConfig) {
			c.AutoApprovalLimitCents = nil
		}, true},
		{"negative auto-approval limit", func(c *RoutingConfig) {
			c.AutoApprovalLimitCents[entity.PaymentCreditCard] = -1
		}, true},
		{"executive below finance", func(c *RoutingConfig) {
			c.ExecutiveThresholdCents = c.FinanceThresholdCents
		}, true},
		{"quotes below executive", func(c *RoutingConfig) {
			c.CompetitiveQuotesThresholdCents = c.ExecutiveThresholdCents
		}, true},
		{"zero deadline hours", func(c *RoutingConfig) {
			c.FinanceTiming.DeadlineHours = 0
		}, true},
		{"unknown escalation policy", func(c *RoutingConfig) {
			c.Policy = "defer"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRoutingConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
