package approval

// Stage role constants
const (
	RoleManager   = "manager"
	RoleFinance   = "finance"
	RoleExecutive = "executive"
)

// Escalation target role constants
const (
	RoleSeniorManager   = "senior_manager"
	RoleFinanceDirector = "finance_director"
	RoleCEO             = "ceo"
)

// StageConditionFlags mirrors the structured condition flags a stage spec
// attaches before persistence.
type StageConditionFlags struct {
	RequiresBusinessJustification bool
	RequiresReceiptValidation     bool
	RequiresBusinessCase          bool
	RequiresCompetitiveQuotes     bool
}

// StageSpec is one ordered entry of a workflow plan: everything needed to
// materialize a stage except the resolved approver set.
type StageSpec struct {
	Role               string
	ApproverRule       string
	ApprovalLimitCents *int64
	DeadlineHours      int
	EscalationHours    int
	EscalateToRule     string
	CanModifyAmount    bool
	AllowDelegation    bool
	Conditions         StageConditionFlags
}

// WorkflowPlan is the ordered list of stage specifications computed for a
// given amount and payment method, before any persistence occurs. An
// auto-approved plan carries no stage specs.
type WorkflowPlan struct {
	AutoApproved bool
	Reason       string
	Stages       []StageSpec
}

// TotalStages returns the number of stages the plan materializes
func (p WorkflowPlan) TotalStages() int {
	return len(p.Stages)
}
