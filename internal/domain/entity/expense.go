package entity

import "time"

// Expense status constants
const (
	ExpenseStatusPending  = "pending"
	ExpenseStatusApproved = "approved"
	ExpenseStatusRejected = "rejected"
)

// Payment method type constants
const (
	PaymentPersonReimbursement = "person_reimbursement"
	PaymentCreditCard          = "credit_card"
	PaymentPurchaseOrder       = "purchase_order"
	PaymentDirectVendor        = "direct_vendor"
)

// PaymentMethod describes how an expense is paid and whether the method
// itself forces human review regardless of amount.
type PaymentMethod struct {
	Type             string `json:"type"`
	RequiresApproval bool   `json:"requires_approval"`
}

// Expense is the record an approval workflow is attached to. Only the
// fields the engine needs are modeled here; the rest of the expense
// lives behind the store boundary.
type Expense struct {
	ID             int64     `json:"id"`
	OrganizationID string    `json:"organization_id"`
	SubmitterID    string    `json:"submitter_id"`
	Description    string    `json:"description,omitempty"`
	AmountCents    int64     `json:"amount_cents"`
	PaymentMethod  string    `json:"payment_method"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
