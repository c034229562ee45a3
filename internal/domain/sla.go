package domain

import (
	"time"

	apperrors "github.com/spec-kit/legal-service/pkg/util/errorutil"
)

// DefaultRiskThreshold is the remaining time below which a request is at risk.
const DefaultRiskThreshold = 2 * time.Hour

// SLAPolicy maps urgency to a response window.
type SLAPolicy struct {
	Hours         map[Urgency]int
	RiskThreshold time.Duration
}

// DefaultSLAPolicy returns the stock urgency table.
func DefaultSLAPolicy() SLAPolicy {
	return SLAPolicy{
		Hours: map[Urgency]int{
			UrgencyUrgent: 4,
			UrgencyHigh:   12,
			UrgencyNormal: 24,
			UrgencyLow:    48,
		},
		RiskThreshold: DefaultRiskThreshold,
	}
}

// Validate checks that every urgency has a positive window.
func (p SLAPolicy) Validate() error {
	for _, u := range []Urgency{UrgencyUrgent, UrgencyHigh, UrgencyNormal, UrgencyLow} {
		if p.Hours[u] <= 0 {
			return apperrors.NewValidationError("sla policy missing window", map[string]any{"urgency": u})
		}
	}
	if p.RiskThreshold < 0 {
		return apperrors.NewValidationError("sla risk threshold must not be negative", nil)
	}
	return nil
}

// ComputeDeadline adds the urgency's window to reference.
func (p SLAPolicy) ComputeDeadline(urgency Urgency, reference time.Time) (time.Time, error) {
	hours, ok := p.Hours[urgency]
	if !ok || hours <= 0 {
		return time.Time{}, apperrors.NewValidationError("no sla window for urgency", map[string]any{"urgency": urgency})
	}
	return reference.Add(time.Duration(hours) * time.Hour), nil
}

// Classify places now relative to deadline. It has no side effects.
func (p SLAPolicy) Classify(deadline, now time.Time) SLAStatus {
	if now.After(deadline) {
		return SLABreached
	}
	if deadline.Sub(now) < p.RiskThreshold {
		return SLAAtRisk
	}
	return SLAOnTime
}

// ClassifyOptional returns not_applicable when there is no deadline.
func (p SLAPolicy) ClassifyOptional(deadline *time.Time, now time.Time) SLAStatus {
	if deadline == nil {
		return SLANotApplicable
	}
	return p.Classify(*deadline, now)
}
