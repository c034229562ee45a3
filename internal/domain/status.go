package domain

import (
	"strings"

	apperrors "github.com/spec-kit/legal-service/pkg/util/errorutil"
)

// AggregateType distinguishes the two request families.
type AggregateType string

const (
	AggregateConsultation AggregateType = "consultation"
	AggregateLitigation   AggregateType = "litigation"
)

func (t AggregateType) Valid() bool {
	return t == AggregateConsultation || t == AggregateLitigation
}

// Urgency drives the SLA deadline.
type Urgency string

const (
	UrgencyUrgent Urgency = "urgent"
	UrgencyHigh   Urgency = "high"
	UrgencyNormal Urgency = "normal"
	UrgencyLow    Urgency = "low"
)

// ParseUrgency validates enum membership. Blank input defaults to normal.
func ParseUrgency(raw string) (Urgency, error) {
	v := Urgency(strings.ToLower(strings.TrimSpace(raw)))
	switch v {
	case "":
		return UrgencyNormal, nil
	case UrgencyUrgent, UrgencyHigh, UrgencyNormal, UrgencyLow:
		return v, nil
	}
	return "", apperrors.NewValidationError("unknown urgency", map[string]any{"urgency": raw})
}

// SLAStatus is the standing of a request against its deadline.
type SLAStatus string

const (
	SLAOnTime        SLAStatus = "on_time"
	SLAAtRisk        SLAStatus = "at_risk"
	SLABreached      SLAStatus = "breached"
	SLANotApplicable SLAStatus = "not_applicable"
)

func ParseSLAStatus(raw string) (SLAStatus, error) {
	v := SLAStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch v {
	case SLAOnTime, SLAAtRisk, SLABreached, SLANotApplicable:
		return v, nil
	}
	return "", apperrors.NewValidationError("unknown sla status", map[string]any{"sla_status": raw})
}

// ConsultationStatus enumerates lifecycle states for consultations.
type ConsultationStatus string

const (
	ConsultationPending      ConsultationStatus = "pending"
	ConsultationAssigned     ConsultationStatus = "assigned"
	ConsultationInProgress   ConsultationStatus = "in_progress"
	ConsultationAwaitingInfo ConsultationStatus = "awaiting_info"
	ConsultationResponded    ConsultationStatus = "responded"
	ConsultationCompleted    ConsultationStatus = "completed"
	ConsultationDisputed     ConsultationStatus = "disputed"
	ConsultationCancelled    ConsultationStatus = "cancelled"
)

var consultationTransitions = map[ConsultationStatus][]ConsultationStatus{
	ConsultationPending:      {ConsultationAssigned, ConsultationCancelled},
	ConsultationAssigned:     {ConsultationInProgress, ConsultationAwaitingInfo, ConsultationResponded, ConsultationCompleted, ConsultationCancelled},
	ConsultationInProgress:   {ConsultationAwaitingInfo, ConsultationResponded, ConsultationCompleted, ConsultationCancelled},
	ConsultationAwaitingInfo: {ConsultationInProgress, ConsultationResponded, ConsultationCancelled},
	ConsultationResponded:    {ConsultationAwaitingInfo, ConsultationCompleted, ConsultationCancelled},
	ConsultationCompleted:    {ConsultationDisputed},
	ConsultationDisputed:     {},
	ConsultationCancelled:    {},
}

func ParseConsultationStatus(raw string) (ConsultationStatus, error) {
	v := ConsultationStatus(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := consultationTransitions[v]; !ok {
		return "", apperrors.NewValidationError("unknown consultation status", map[string]any{"status": raw})
	}
	return v, nil
}

// CanTransitionTo reports whether the lifecycle graph declares current -> next.
func (s ConsultationStatus) CanTransitionTo(next ConsultationStatus) bool {
	for _, candidate := range consultationTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further work happens in this state.
func (s ConsultationStatus) IsTerminal() bool {
	return s == ConsultationCompleted || s == ConsultationDisputed || s == ConsultationCancelled
}

// NonTerminalConsultationStatuses lists states the SLA sweep visits.
func NonTerminalConsultationStatuses() []ConsultationStatus {
	return []ConsultationStatus{
		ConsultationPending,
		ConsultationAssigned,
		ConsultationInProgress,
		ConsultationAwaitingInfo,
		ConsultationResponded,
	}
}

// LitigationStatus enumerates lifecycle states for litigation cases.
type LitigationStatus string

const (
	LitigationPending       LitigationStatus = "pending"
	LitigationQuoteSent     LitigationStatus = "quote_sent"
	LitigationQuoteAccepted LitigationStatus = "quote_accepted"
	LitigationActive        LitigationStatus = "active"
	LitigationClosed        LitigationStatus = "closed"
	LitigationCancelled     LitigationStatus = "cancelled"
)

var litigationTransitions = map[LitigationStatus][]LitigationStatus{
	LitigationPending:       {LitigationQuoteSent, LitigationCancelled},
	LitigationQuoteSent:     {LitigationQuoteAccepted, LitigationCancelled},
	LitigationQuoteAccepted: {LitigationActive, LitigationCancelled},
	LitigationActive:        {LitigationClosed},
	LitigationClosed:        {},
	LitigationCancelled:     {},
}

func ParseLitigationStatus(raw string) (LitigationStatus, error) {
	v := LitigationStatus(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := litigationTransitions[v]; !ok {
		return "", apperrors.NewValidationError("unknown litigation status", map[string]any{"status": raw})
	}
	return v, nil
}

func (s LitigationStatus) CanTransitionTo(next LitigationStatus) bool {
	for _, candidate := range litigationTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

func (s LitigationStatus) IsTerminal() bool {
	return s == LitigationClosed || s == LitigationCancelled
}

func NonTerminalLitigationStatuses() []LitigationStatus {
	return []LitigationStatus{
		LitigationPending,
		LitigationQuoteSent,
		LitigationQuoteAccepted,
		LitigationActive,
	}
}

// PaymentStatus tracks the litigation fee capture.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	v := PaymentStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch v {
	case PaymentUnpaid, PaymentPaid, PaymentRefunded:
		return v, nil
	}
	return "", apperrors.NewValidationError("unknown payment status", map[string]any{"payment_status": raw})
}
