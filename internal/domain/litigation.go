package domain

import (
	"strings"
	"time"

	apperrors "github.com/spec-kit/legal-service/pkg/util/errorutil"
)

// Quote is the provider's fee offer for a litigation case.
type Quote struct {
	Amount     Money
	ValidUntil time.Time
	Details    string
}

// LitigationCase is the aggregate for court representation.
//
// Invariants:
//   - status only moves along the edges declared in litigationTransitions
//   - a quote can only be sent once a provider is assigned
//   - activation requires a captured payment; cancellation requires none
//   - closedAt is set iff the case reached closed or cancelled
type LitigationCase struct {
	requestCore
	status           LitigationStatus
	caseType         string
	courtName        string
	quote            *Quote
	paymentStatus    PaymentStatus
	paymentReference *PaymentReference
	paidAmount       *Money
	paidAt           *time.Time
	refundReference  *PaymentReference
	refundedAt       *time.Time
	quoteSentAt      *time.Time
	quoteAcceptedAt  *time.Time
	activatedAt      *time.Time
	closedAt         *time.Time
}

// LitigationDetails is the litigation-specific creation input.
type LitigationDetails struct {
	RequestDetails
	CaseType  string
	CourtName string
}

// NewLitigationCase validates and creates a pending litigation case.
func NewLitigationCase(details LitigationDetails, policy SLAPolicy, now time.Time) (*LitigationCase, error) {
	caseType, err := boundedText("case_type", details.CaseType, 2, 64)
	if err != nil {
		return nil, err
	}
	core, err := newRequestCore(details.RequestDetails, policy, now)
	if err != nil {
		return nil, err
	}
	return &LitigationCase{
		requestCore:   core,
		status:        LitigationPending,
		caseType:      caseType,
		courtName:     strings.TrimSpace(details.CourtName),
		paymentStatus: PaymentUnpaid,
	}, nil
}

func (l *LitigationCase) Status() LitigationStatus        { return l.status }
func (l *LitigationCase) CaseType() string                { return l.caseType }
func (l *LitigationCase) CourtName() string               { return l.courtName }
func (l *LitigationCase) PaymentStatus() PaymentStatus    { return l.paymentStatus }
func (l *LitigationCase) PaidAt() *time.Time              { return copyTime(l.paidAt) }
func (l *LitigationCase) RefundedAt() *time.Time          { return copyTime(l.refundedAt) }
func (l *LitigationCase) QuoteSentAt() *time.Time         { return copyTime(l.quoteSentAt) }
func (l *LitigationCase) QuoteAcceptedAt() *time.Time     { return copyTime(l.quoteAcceptedAt) }
func (l *LitigationCase) ActivatedAt() *time.Time         { return copyTime(l.activatedAt) }
func (l *LitigationCase) ClosedAt() *time.Time            { return copyTime(l.closedAt) }
func (l *LitigationCase) IsPaymentCaptured() bool         { return l.paymentStatus == PaymentPaid }
func (l *LitigationCase) PaymentReference() *PaymentReference {
	return copyRef(l.paymentReference)
}
func (l *LitigationCase) RefundReference() *PaymentReference {
	return copyRef(l.refundReference)
}
func (l *LitigationCase) PaidAmount() *Money {
	if l.paidAmount == nil {
		return nil
	}
	m := *l.paidAmount
	return &m
}
func (l *LitigationCase) Quote() *Quote {
	if l.quote == nil {
		return nil
	}
	q := *l.quote
	return &q
}

// Assign sets the handling provider. Litigation has no assigned status, so the
// case stays pending.
func (l *LitigationCase) Assign(provider ProviderID, policy SLAPolicy, now time.Time) error {
	if l.status != LitigationPending {
		return apperrors.NewInvalidTransition(string(l.status), "assign")
	}
	if l.providerID != nil {
		return apperrors.NewInvalidTransition(string(l.status), "assign")
	}
	if _, err := NewProviderID(string(provider)); err != nil {
		return err
	}
	l.setProvider(provider, now)
	l.refreshSLA(policy, now)
	l.updatedAt = now
	return nil
}

// SendQuote offers a fee valid until validUntil.
func (l *LitigationCase) SendQuote(amount Money, validUntil time.Time, details string, now time.Time) error {
	if amount.IsZero() {
		return apperrors.NewValidationError("quote amount is required", map[string]any{"field": "amount"})
	}
	if !validUntil.After(now) {
		return apperrors.NewValidationError("quote must be valid until a future time", map[string]any{"valid_until": validUntil.UTC()})
	}
	if l.providerID == nil {
		return apperrors.NewPreconditionFailed("no provider assigned", map[string]any{"operation": "send quote"})
	}
	if err := l.guardEdge(LitigationQuoteSent, "send quote"); err != nil {
		return err
	}
	l.quote = &Quote{Amount: amount, ValidUntil: validUntil, Details: strings.TrimSpace(details)}
	l.status = LitigationQuoteSent
	l.quoteSentAt = timePtr(now)
	l.updatedAt = now
	return nil
}

// AcceptQuote is the subscriber agreeing to the current quote.
func (l *LitigationCase) AcceptQuote(now time.Time) error {
	if l.status != LitigationQuoteSent {
		return apperrors.NewInvalidTransition(string(l.status), "accept quote")
	}
	if l.quote == nil {
		return apperrors.NewPreconditionFailed("no quote on case", nil)
	}
	if now.After(l.quote.ValidUntil) {
		return apperrors.NewPreconditionFailed("quote has expired", map[string]any{"valid_until": l.quote.ValidUntil.UTC()})
	}
	if err := l.guardEdge(LitigationQuoteAccepted, "accept quote"); err != nil {
		return err
	}
	l.status = LitigationQuoteAccepted
	l.quoteAcceptedAt = timePtr(now)
	l.updatedAt = now
	return nil
}

// MarkAsPaid records a captured payment. A supplied amount must match the quote exactly.
func (l *LitigationCase) MarkAsPaid(reference PaymentReference, amount *Money, now time.Time) error {
	if _, err := NewPaymentReference(string(reference)); err != nil {
		return err
	}
	if l.status != LitigationQuoteAccepted {
		return apperrors.NewInvalidTransition(string(l.status), "mark as paid")
	}
	if l.paymentStatus == PaymentPaid {
		return apperrors.NewConflictingState("payment already captured", map[string]any{"id": l.id})
	}
	if l.quote == nil {
		return apperrors.NewPreconditionFailed("no quote on case", nil)
	}
	paid := l.quote.Amount
	if amount != nil {
		if !amount.Equal(l.quote.Amount) {
			return apperrors.NewConflictingState("paid amount does not match quote", map[string]any{
				"quoted": l.quote.Amount.String(),
				"paid":   amount.String(),
			})
		}
		paid = *amount
	}
	l.paymentStatus = PaymentPaid
	l.paymentReference = &reference
	l.paidAmount = &paid
	l.paidAt = timePtr(now)
	l.refundReference = nil
	l.refundedAt = nil
	l.updatedAt = now
	return nil
}

// ProcessRefund reverses a captured payment before activation.
func (l *LitigationCase) ProcessRefund(reference PaymentReference, now time.Time) error {
	if _, err := NewPaymentReference(string(reference)); err != nil {
		return err
	}
	if l.paymentStatus != PaymentPaid {
		return apperrors.NewConflictingState("no captured payment to refund", map[string]any{"payment_status": l.paymentStatus})
	}
	if l.status != LitigationQuoteAccepted {
		return apperrors.NewInvalidTransition(string(l.status), "process refund")
	}
	l.paymentStatus = PaymentRefunded
	l.refundReference = &reference
	l.refundedAt = timePtr(now)
	l.updatedAt = now
	return nil
}

// Activate opens the case for work once it is paid.
func (l *LitigationCase) Activate(now time.Time) error {
	if l.status != LitigationQuoteAccepted {
		return apperrors.NewInvalidTransition(string(l.status), "activate")
	}
	if l.paymentStatus != PaymentPaid {
		return apperrors.NewPreconditionFailed("payment not captured", map[string]any{"payment_status": l.paymentStatus})
	}
	if err := l.guardEdge(LitigationActive, "activate"); err != nil {
		return err
	}
	l.status = LitigationActive
	l.activatedAt = timePtr(now)
	l.updatedAt = now
	return nil
}

// Close finishes an active case. SLA standing is frozen at this point.
func (l *LitigationCase) Close(policy SLAPolicy, now time.Time) error {
	if l.status != LitigationActive {
		return apperrors.NewInvalidTransition(string(l.status), "close")
	}
	if l.paymentStatus != PaymentPaid {
		return apperrors.NewPreconditionFailed("payment not captured", map[string]any{"payment_status": l.paymentStatus})
	}
	if err := l.guardEdge(LitigationClosed, "close"); err != nil {
		return err
	}
	l.refreshSLA(policy, now)
	l.status = LitigationClosed
	l.closedAt = timePtr(now)
	l.updatedAt = now
	return nil
}

// Cancel withdraws the case. A captured payment must be refunded first.
func (l *LitigationCase) Cancel(now time.Time) error {
	switch l.status {
	case LitigationPending, LitigationQuoteSent, LitigationQuoteAccepted:
	default:
		return apperrors.NewInvalidTransition(string(l.status), "cancel")
	}
	if l.paymentStatus == PaymentPaid {
		return apperrors.NewConflictingState("refund the captured payment before cancelling", map[string]any{"id": l.id})
	}
	if err := l.guardEdge(LitigationCancelled, "cancel"); err != nil {
		return err
	}
	l.status = LitigationCancelled
	l.closedAt = timePtr(now)
	l.updatedAt = now
	return nil
}

// RefreshSLA re-evaluates standing for open cases and reports a change.
func (l *LitigationCase) RefreshSLA(policy SLAPolicy, now time.Time) bool {
	if l.status.IsTerminal() {
		return false
	}
	if !l.refreshSLA(policy, now) {
		return false
	}
	l.updatedAt = now
	return true
}

func (l *LitigationCase) OverrideSLA(deadline *time.Time, status SLAStatus, now time.Time) error {
	return l.overrideSLA(deadline, status, now)
}

func (l *LitigationCase) SoftDelete(now time.Time) bool {
	return l.softDelete(now)
}

func (l *LitigationCase) guardEdge(next LitigationStatus, operation string) error {
	if !l.status.CanTransitionTo(next) {
		return apperrors.NewInvalidTransition(string(l.status), operation)
	}
	return nil
}

func copyRef(r *PaymentReference) *PaymentReference {
	if r == nil {
		return nil
	}
	v := *r
	return &v
}
