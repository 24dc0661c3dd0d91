package domain

// ExecutionStatus is the outcome of handing an opportunity to the
// execution layer.
type ExecutionStatus string

const (
	ExecutionPending       ExecutionStatus = "pending"
	ExecutionSuccess       ExecutionStatus = "success"
	ExecutionError         ExecutionStatus = "error"
	ExecutionNeedsApproval ExecutionStatus = "needs-approval"
)

// ExecutionResult is the execution layer's answer for one opportunity.
type ExecutionResult struct {
	OpportunityID string          `json:"opportunityId"`
	Status        ExecutionStatus `json:"status"`
	TxRef         string          `json:"txRef,omitempty"`
	Message       string          `json:"message,omitempty"`
}
