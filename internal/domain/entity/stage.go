package entity

import "time"

// Approver identifies a person eligible to decide an approval stage,
// with display metadata resolved from the organization directory.
type Approver struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// StageConditions are structured flags a stage imposes on the decision.
type StageConditions struct {
	RequiresBusinessJustification bool `json:"requires_business_justification"`
	RequiresReceiptValidation     bool `json:"requires_receipt_validation"`
	RequiresBusinessCase          bool `json:"requires_business_case"`
	RequiresCompetitiveQuotes     bool `json:"requires_competitive_quotes"`
}

// StageDecision records the terminal per-stage decision. ApproverID is empty
// for system-made decisions (auto-approval).
type StageDecision struct {
	ApproverID      string    `json:"approver_id,omitempty"`
	DecidedAt       time.Time `json:"decided_at"`
	ApprovedCents   *int64    `json:"approved_cents,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
}

// ApprovalStage is one approval step of an expense's approval request.
// All stages of one request share the expense reference; total_stages is
// fixed at creation and stage numbers form a contiguous 1..N sequence.
// Stages are never deleted; they remain as the audit trail of the expense.
type ApprovalStage struct {
	ID             int64  `json:"id"`
	ExpenseID      int64  `json:"expense_id"`
	OrganizationID string `json:"organization_id"`
	SubmitterID    string `json:"submitter_id"`

	StageNumber int `json:"stage_number"`
	TotalStages int `json:"total_stages"`

	Status string `json:"status"`

	StageRole         string     `json:"stage_role"`
	RequiredApprovers []Approver `json:"required_approvers"`

	// Quorum rule. The sequential engine decides on any single required
	// approver; the fields are persisted for the parallel extension point.
	MinimumApprovers     int  `json:"minimum_approvers"`
	RequiresAllApprovers bool `json:"requires_all_approvers"`

	// ApprovalLimitCents is the monetary cap this stage may approve without
	// further stages. Informational: routing already accounts for it.
	ApprovalLimitCents *int64 `json:"approval_limit_cents,omitempty"`
	CanModifyAmount    bool   `json:"can_modify_amount"`
	AllowDelegation    bool   `json:"allow_delegation"`

	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	DeadlineAt  *time.Time `json:"deadline_at,omitempty"`

	DeadlineHours    int    `json:"deadline_hours"`
	EscalationHours  int    `json:"escalation_hours"`
	EscalationTarget string `json:"escalation_target,omitempty"`

	Conditions StageConditions `json:"conditions"`

	Decision *StageDecision `json:"decision,omitempty"`

	EscalatedTo      string     `json:"escalated_to,omitempty"`
	EscalatedAt      *time.Time `json:"escalated_at,omitempty"`
	EscalationReason string     `json:"escalation_reason,omitempty"`

	DelegatedTo      string     `json:"delegated_to,omitempty"`
	DelegatedBy      string     `json:"delegated_by,omitempty"`
	DelegatedAt      *time.Time `json:"delegated_at,omitempty"`
	DelegationReason string     `json:"delegation_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsFinal reports whether this is the last stage of its request.
func (s *ApprovalStage) IsFinal() bool {
	return s.StageNumber == s.TotalStages
}

// HasApprover reports whether the given approver is in the required set.
func (s *ApprovalStage) HasApprover(approverID string) bool {
	for _, a := range s.RequiredApprovers {
		if a.ID == approverID {
			return true
		}
	}
	return false
}
