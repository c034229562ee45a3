package dto

import (
	"time"
)

// CreateConsultationRequest payload. Admins may file on behalf of a
// subscriber by setting SubscriberID.
type CreateConsultationRequest struct {
	SubscriberID string `json:"subscriber_id"`
	Urgency      string `json:"urgency"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Jurisdiction string `json:"jurisdiction"`
}

// CreateLitigationRequest payload.
type CreateLitigationRequest struct {
	CreateConsultationRequest
	CaseType  string `json:"case_type"`
	CourtName string `json:"court_name"`
}

// AssignRequest names the provider for a manual assignment.
type AssignRequest struct {
	ProviderID string `json:"provider_id"`
}

// AutoAssignRequest optionally narrows matching to a region.
type AutoAssignRequest struct {
	Region string `json:"region"`
}

// ReasonRequest carries an optional free-text reason.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// RateRequest payload.
type RateRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

// SLAOverrideRequest stores an externally computed SLA verbatim.
type SLAOverrideRequest struct {
	Deadline *time.Time `json:"deadline"`
	Status   string     `json:"status"`
}

// QuoteRequest payload.
type QuoteRequest struct {
	Amount     string    `json:"amount"`
	Currency   string    `json:"currency"`
	ValidUntil time.Time `json:"valid_until"`
	Details    string    `json:"details"`
}

// PaymentRequest confirms a captured payment.
type PaymentRequest struct {
	Reference string `json:"reference"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

// RefundRequest payload.
type RefundRequest struct {
	Reference string `json:"reference"`
	Reason    string `json:"reason"`
}

// MoneyResponse renders an amount as a decimal string.
type MoneyResponse struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// QuoteResponse describes the current fee offer.
type QuoteResponse struct {
	Amount     MoneyResponse `json:"amount"`
	ValidUntil time.Time     `json:"valid_until"`
	Details    string        `json:"details"`
}

// RequestResponse holds the fields both request families share.
type RequestResponse struct {
	ID           string     `json:"id"`
	Number       string     `json:"number"`
	Status       string     `json:"status"`
	SubscriberID string     `json:"subscriber_id"`
	ProviderID   *string    `json:"provider_id"`
	Urgency      string     `json:"urgency"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	Jurisdiction string     `json:"jurisdiction,omitempty"`
	SubmittedAt  time.Time  `json:"submitted_at"`
	AssignedAt   *time.Time `json:"assigned_at"`
	SLADeadline  *time.Time `json:"sla_deadline"`
	SLAStatus    string     `json:"sla_status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ConsultationResponse response.
type ConsultationResponse struct {
	RequestResponse
	RespondedAt *time.Time `json:"responded_at"`
	CompletedAt *time.Time `json:"completed_at"`
	ClosedAt    *time.Time `json:"closed_at"`
	Rating      *int       `json:"rating"`
	Feedback    string     `json:"feedback,omitempty"`
	RatedAt     *time.Time `json:"rated_at"`
}

// LitigationResponse response.
type LitigationResponse struct {
	RequestResponse
	CaseType         string         `json:"case_type"`
	CourtName        string         `json:"court_name,omitempty"`
	Quote            *QuoteResponse `json:"quote"`
	QuoteSentAt      *time.Time     `json:"quote_sent_at"`
	QuoteAcceptedAt  *time.Time     `json:"quote_accepted_at"`
	PaymentStatus    string         `json:"payment_status"`
	PaymentReference *string        `json:"payment_reference"`
	PaidAmount       *MoneyResponse `json:"paid_amount"`
	PaidAt           *time.Time     `json:"paid_at"`
	RefundReference  *string        `json:"refund_reference"`
	RefundedAt       *time.Time     `json:"refunded_at"`
	ActivatedAt      *time.Time     `json:"activated_at"`
	ClosedAt         *time.Time     `json:"closed_at"`
}

// AssignmentResponse reports the outcome of auto assignment.
type AssignmentResponse struct {
	Assigned bool `json:"assigned"`
	Request  any  `json:"request"`
}

// StatusHistoryResponse is one audit row.
type StatusHistoryResponse struct {
	ID         string         `json:"id"`
	FromStatus *string        `json:"from_status"`
	ToStatus   string         `json:"to_status"`
	Reason     *string        `json:"reason"`
	ChangedBy  *string        `json:"changed_by"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	ChangedAt  time.Time      `json:"changed_at"`
}
