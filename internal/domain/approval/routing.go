package approval

import (
	"fmt"

	"github.com/fisherjoey/SportsManager-sub006/internal/domain/entity"
)

// EscalationPolicy names what happens to a stage once the sweeper escalates it.
type EscalationPolicy string

const (
	// EscalationHold leaves an escalated stage undecidable until an explicit
	// delegation re-arms it. This is the default behavior.
	EscalationHold EscalationPolicy = "hold"

	// EscalationReactivate adds the escalation target to the required
	// approvers and returns the stage to active in the same update.
	EscalationReactivate EscalationPolicy = "reactivate"
)

// StageTiming bundles the deadline and escalation windows for one stage role.
type StageTiming struct {
	DeadlineHours   int
	EscalationHours int
}

// RoutingConfig holds every threshold and timing the resolver routes on.
// It is an immutable value constructed once (from configuration) and passed
// into the engine; alternate thresholds make tests deterministic.
type RoutingConfig struct {
	// AutoApprovalLimitCents maps payment method type to the inclusive
	// amount limit under which no human approval is needed.
	AutoApprovalLimitCents map[string]int64

	// Manager stage approval limits: person reimbursements cap lower.
	ManagerLimitReimbursementCents int64
	ManagerLimitDefaultCents       int64

	// Strict-greater-than thresholds for appending stages and conditions.
	FinanceThresholdCents           int64
	ExecutiveThresholdCents         int64
	CompetitiveQuotesThresholdCents int64

	ManagerTiming   StageTiming
	FinanceTiming   StageTiming
	ExecutiveTiming StageTiming

	Policy EscalationPolicy
}

// DefaultRoutingConfig returns the standard routing thresholds.
func DefaultRoutingConfig() RoutingConfig {
	return RoutingConfig{
		AutoApprovalLimitCents: map[string]int64{
			entity.PaymentPersonReimbursement: 5_000,
			entity.PaymentCreditCard:          20_000,
			entity.PaymentPurchaseOrder:       0,
			entity.PaymentDirectVendor:        10_000,
		},
		ManagerLimitReimbursementCents:  50_000,
		ManagerLimitDefaultCents:        100_000,
		FinanceThresholdCents:           100_000,
		ExecutiveThresholdCents:         500_000,
		CompetitiveQuotesThresholdCents: 1_000_000,
		ManagerTiming:                   StageTiming{DeadlineHours: 48, EscalationHours: 24},
		FinanceTiming:                   StageTiming{DeadlineHours: 72, EscalationHours: 48},
		ExecutiveTiming:                 StageTiming{DeadlineHours: 120, EscalationHours: 72},
		Policy:                          EscalationHold,
	}
}

// Validate ensures the routing configuration is internally consistent.
func (c RoutingConfig) Validate() error {
	if len(c.AutoApprovalLimitCents) == 0 {
		return fmt.Errorf("auto-approval limits must not be empty")
	}
	for method, limit := range c.AutoApprovalLimitCents {
		if limit < 0 {
			return fmt.Errorf("auto-approval limit for %s must not be negative, got %d", method, limit)
		}
	}
	if c.FinanceThresholdCents <= 0 || c.ExecutiveThresholdCents <= 0 {
		return fmt.Errorf("stage thresholds must be positive")
	}
	if c.ExecutiveThresholdCents <= c.FinanceThresholdCents {
		return fmt.Errorf("executive threshold (%d) must exceed finance threshold (%d)",
			c.ExecutiveThresholdCents, c.FinanceThresholdCents)
	}
	if c.CompetitiveQuotesThresholdCents <= c.ExecutiveThresholdCents {
		return fmt.Errorf("competitive-quotes threshold (%d) must exceed executive threshold (%d)",
			c.CompetitiveQuotesThresholdCents, c.ExecutiveThresholdCents)
	}
	for _, t := range []StageTiming{c.ManagerTiming, c.FinanceTiming, c.ExecutiveTiming} {
		if t.DeadlineHours <= 0 || t.EscalationHours <= 0 {
			return fmt.Errorf("stage timings must be positive")
		}
	}
	switch c.Policy {
	case EscalationHold, EscalationReactivate:
	default:
		return fmt.Errorf("unknown escalation policy: %q", c.Policy)
	}
	return nil
}

// ThresholdResolver decides the workflow shape (auto-approve vs. N stages)
// for an amount and payment method.
type ThresholdResolver struct {
	cfg RoutingConfig
}

// NewThresholdResolver creates a resolver over a validated routing config.
func NewThresholdResolver(cfg RoutingConfig) (*ThresholdResolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid routing config: %w", err)
	}
	return &ThresholdResolver{cfg: cfg}, nil
}

// Resolve computes the workflow plan. Boundaries are exact: auto-approval is
// inclusive (amount <= limit), stage additions are strict (amount > threshold),
// so 1000.00 does not add a Finance stage and 1000.01 does.
func (r *ThresholdResolver) Resolve(amountCents int64, method entity.PaymentMethod) (WorkflowPlan, error) {
	if amountCents <= 0 {
		return WorkflowPlan{}, fmt.Errorf("%w: amount must be positive, got %d cents", ErrValidation, amountCents)
	}

	limit, ok := r.cfg.AutoApprovalLimitCents[method.Type]
	if !ok {
		return WorkflowPlan{}, fmt.Errorf("%w: unknown payment method type %q", ErrValidation, method.Type)
	}

	if amountCents <= limit && !method.RequiresApproval {
		return WorkflowPlan{
			AutoApproved: true,
			Reason: fmt.Sprintf("amount %d cents within auto-approval limit %d cents for %s",
				amountCents, limit, method.Type),
		}, nil
	}

	managerLimit := r.cfg.ManagerLimitDefaultCents
	if method.Type == entity.PaymentPersonReimbursement {
		managerLimit = r.cfg.ManagerLimitReimbursementCents
	}

	stages := []StageSpec{{
		Role:               RoleManager,
		ApproverRule:       RoleManager,
		ApprovalLimitCents: &managerLimit,
		DeadlineHours:      r.cfg.ManagerTiming.DeadlineHours,
		EscalationHours:    r.cfg.ManagerTiming.EscalationHours,
		EscalateToRule:     RoleSeniorManager,
		CanModifyAmount:    true,
		AllowDelegation:    true,
	}}

	if amountCents > r.cfg.FinanceThresholdCents {
		stages = append(stages, StageSpec{
			Role:            RoleFinance,
			ApproverRule:    RoleFinance,
			DeadlineHours:   r.cfg.FinanceTiming.DeadlineHours,
			EscalationHours: r.cfg.FinanceTiming.EscalationHours,
			EscalateToRule:  RoleFinanceDirector,
			CanModifyAmount: true,
			AllowDelegation: true,
			Conditions: StageConditionFlags{
				RequiresBusinessJustification: true,
				RequiresReceiptValidation:     true,
			},
		})
	}

	if amountCents > r.cfg.ExecutiveThresholdCents {
		stages = append(stages, StageSpec{
			Role:            RoleExecutive,
			ApproverRule:    RoleExecutive,
			DeadlineHours:   r.cfg.ExecutiveTiming.DeadlineHours,
			EscalationHours: r.cfg.ExecutiveTiming.EscalationHours,
			EscalateToRule:  RoleCEO,
			CanModifyAmount: false,
			AllowDelegation: false,
			Conditions: StageConditionFlags{
				RequiresBusinessCase:      true,
				RequiresCompetitiveQuotes: amountCents > r.cfg.CompetitiveQuotesThresholdCents,
			},
		})
	}

	return WorkflowPlan{
		Reason: fmt.Sprintf("amount %d cents requires %d approval stage(s)", amountCents, len(stages)),
		Stages: stages,
	}, nil
}
