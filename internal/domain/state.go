package domain

import (
	"time"
)

// RequestState is the flat storage shape of the shared request fields.
type RequestState struct {
	ID           RequestID
	Number       HumanNumber
	SubscriberID SubscriberID
	ProviderID   *ProviderID
	Urgency      Urgency
	Title        Title
	Description  Description
	Category     Category
	Jurisdiction string
	SubmittedAt  time.Time
	AssignedAt   *time.Time
	SLADeadline  *time.Time
	SLAStatus    SLAStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// ConsultationState is what repositories read and write for a consultation.
type ConsultationState struct {
	RequestState
	Status      ConsultationStatus
	RespondedAt *time.Time
	CompletedAt *time.Time
	ClosedAt    *time.Time
	Rating      *Rating
	Feedback    string
	RatedAt     *time.Time
}

// LitigationState is what repositories read and write for a litigation case.
type LitigationState struct {
	RequestState
	Status           LitigationStatus
	CaseType         string
	CourtName        string
	Quote            *Quote
	PaymentStatus    PaymentStatus
	PaymentReference *PaymentReference
	PaidAmount       *Money
	PaidAt           *time.Time
	RefundReference  *PaymentReference
	RefundedAt       *time.Time
	QuoteSentAt      *time.Time
	QuoteAcceptedAt  *time.Time
	ActivatedAt      *time.Time
	ClosedAt         *time.Time
}

func (c *requestCore) state() RequestState {
	var provider *ProviderID
	if c.providerID != nil {
		p := *c.providerID
		provider = &p
	}
	return RequestState{
		ID:           c.id,
		Number:       c.number,
		SubscriberID: c.subscriberID,
		ProviderID:   provider,
		Urgency:      c.urgency,
		Title:        c.title,
		Description:  c.description,
		Category:     c.category,
		Jurisdiction: c.jurisdiction,
		SubmittedAt:  c.submittedAt,
		AssignedAt:   copyTime(c.assignedAt),
		SLADeadline:  copyTime(c.slaDeadline),
		SLAStatus:    c.slaStatus,
		CreatedAt:    c.createdAt,
		UpdatedAt:    c.updatedAt,
		DeletedAt:    copyTime(c.deletedAt),
	}
}

func restoreCore(s RequestState) requestCore {
	var provider *ProviderID
	if s.ProviderID != nil {
		p := *s.ProviderID
		provider = &p
	}
	return requestCore{
		id:           s.ID,
		number:       s.Number,
		subscriberID: s.SubscriberID,
		providerID:   provider,
		urgency:      s.Urgency,
		title:        s.Title,
		description:  s.Description,
		category:     s.Category,
		jurisdiction: s.Jurisdiction,
		submittedAt:  s.SubmittedAt,
		assignedAt:   copyTime(s.AssignedAt),
		slaDeadline:  copyTime(s.SLADeadline),
		slaStatus:    s.SLAStatus,
		createdAt:    s.CreatedAt,
		updatedAt:    s.UpdatedAt,
		deletedAt:    copyTime(s.DeletedAt),
	}
}

// State returns a detached copy of the aggregate's fields.
func (c *ConsultationRequest) State() ConsultationState {
	return ConsultationState{
		RequestState: c.requestCore.state(),
		Status:       c.status,
		RespondedAt:  copyTime(c.respondedAt),
		CompletedAt:  copyTime(c.completedAt),
		ClosedAt:     copyTime(c.closedAt),
		Rating:       c.Rating(),
		Feedback:     c.feedback,
		RatedAt:      copyTime(c.ratedAt),
	}
}

// RestoreConsultation rebuilds an aggregate from stored state without re-running
// creation rules.
func RestoreConsultation(s ConsultationState) *ConsultationRequest {
	var rating *Rating
	if s.Rating != nil {
		r := *s.Rating
		rating = &r
	}
	return &ConsultationRequest{
		requestCore: restoreCore(s.RequestState),
		status:      s.Status,
		respondedAt: copyTime(s.RespondedAt),
		completedAt: copyTime(s.CompletedAt),
		closedAt:    copyTime(s.ClosedAt),
		rating:      rating,
		feedback:    s.Feedback,
		ratedAt:     copyTime(s.RatedAt),
	}
}

func (l *LitigationCase) State() LitigationState {
	return LitigationState{
		RequestState:     l.requestCore.state(),
		Status:           l.status,
		CaseType:         l.caseType,
		CourtName:        l.courtName,
		Quote:            l.Quote(),
		PaymentStatus:    l.paymentStatus,
		PaymentReference: copyRef(l.paymentReference),
		PaidAmount:       l.PaidAmount(),
		PaidAt:           copyTime(l.paidAt),
		RefundReference:  copyRef(l.refundReference),
		RefundedAt:       copyTime(l.refundedAt),
		QuoteSentAt:      copyTime(l.quoteSentAt),
		QuoteAcceptedAt:  copyTime(l.quoteAcceptedAt),
		ActivatedAt:      copyTime(l.activatedAt),
		ClosedAt:         copyTime(l.closedAt),
	}
}

func RestoreLitigation(s LitigationState) *LitigationCase {
	var quote *Quote
	if s.Quote != nil {
		q := *s.Quote
		quote = &q
	}
	var paid *Money
	if s.PaidAmount != nil {
		m := *s.PaidAmount
		paid = &m
	}
	payment := s.PaymentStatus
	if payment == "" {
		payment = PaymentUnpaid
	}
	return &LitigationCase{
		requestCore:      restoreCore(s.RequestState),
		status:           s.Status,
		caseType:         s.CaseType,
		courtName:        s.CourtName,
		quote:            quote,
		paymentStatus:    payment,
		paymentReference: copyRef(s.PaymentReference),
		paidAmount:       paid,
		paidAt:           copyTime(s.PaidAt),
		refundReference:  copyRef(s.RefundReference),
		refundedAt:       copyTime(s.RefundedAt),
		quoteSentAt:      copyTime(s.QuoteSentAt),
		quoteAcceptedAt:  copyTime(s.QuoteAcceptedAt),
		activatedAt:      copyTime(s.ActivatedAt),
		closedAt:         copyTime(s.ClosedAt),
	}
}
