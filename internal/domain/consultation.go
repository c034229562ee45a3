package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/spec-kit/legal-service/pkg/util/errorutil"
)

// DisputeWindow is how long after completion a subscriber may dispute.
const DisputeWindow = 48 * time.Hour

const maxFeedbackLength = 2000

// ConsultationRequest is the aggregate for advisory consultations.
//
// Invariants:
//   - status only moves along the edges declared in consultationTransitions
//   - a provider is set iff the request has been assigned
//   - completedAt is set iff the request reached completed (and stays set when disputed)
//   - slaDeadline moves only through OverrideSLA
type ConsultationRequest struct {
	requestCore
	status      ConsultationStatus
	respondedAt *time.Time
	completedAt *time.Time
	closedAt    *time.Time
	rating      *Rating
	feedback    string
	ratedAt     *time.Time
}

// NewConsultationRequest validates and creates a pending consultation.
func NewConsultationRequest(details RequestDetails, policy SLAPolicy, now time.Time) (*ConsultationRequest, error) {
	core, err := newRequestCore(details, policy, now)
	if err != nil {
		return nil, err
	}
	return &ConsultationRequest{requestCore: core, status: ConsultationPending}, nil
}

func (c *ConsultationRequest) Status() ConsultationStatus { return c.status }
func (c *ConsultationRequest) RespondedAt() *time.Time    { return copyTime(c.respondedAt) }
func (c *ConsultationRequest) CompletedAt() *time.Time    { return copyTime(c.completedAt) }
func (c *ConsultationRequest) ClosedAt() *time.Time       { return copyTime(c.closedAt) }
func (c *ConsultationRequest) Feedback() string           { return c.feedback }
func (c *ConsultationRequest) RatedAt() *time.Time        { return copyTime(c.ratedAt) }
func (c *ConsultationRequest) Rating() *Rating {
	if c.rating == nil {
		return nil
	}
	r := *c.rating
	return &r
}

// Assign hands a pending consultation to a provider.
func (c *ConsultationRequest) Assign(provider ProviderID, policy SLAPolicy, now time.Time) error {
	if c.status != ConsultationPending {
		return apperrors.NewInvalidTransition(string(c.status), "assign")
	}
	if _, err := NewProviderID(string(provider)); err != nil {
		return err
	}
	if err := c.guardEdge(ConsultationAssigned, "assign"); err != nil {
		return err
	}
	c.setProvider(provider, now)
	c.status = ConsultationAssigned
	c.refreshSLA(policy, now)
	c.updatedAt = now
	return nil
}

// MarkInProgress starts or resumes work.
func (c *ConsultationRequest) MarkInProgress(now time.Time) error {
	if c.status != ConsultationAssigned && c.status != ConsultationAwaitingInfo {
		return apperrors.NewInvalidTransition(string(c.status), "mark in progress")
	}
	if err := c.requireProvider("mark in progress"); err != nil {
		return err
	}
	if err := c.guardEdge(ConsultationInProgress, "mark in progress"); err != nil {
		return err
	}
	c.status = ConsultationInProgress
	c.updatedAt = now
	return nil
}

// MarkResponded records that the provider answered.
func (c *ConsultationRequest) MarkResponded(policy SLAPolicy, now time.Time) error {
	if c.status.IsTerminal() {
		return apperrors.NewInvalidTransition(string(c.status), "mark responded")
	}
	if err := c.guardEdge(ConsultationResponded, "mark responded"); err != nil {
		return err
	}
	if err := c.requireProvider("mark responded"); err != nil {
		return err
	}
	c.status = ConsultationResponded
	if c.respondedAt == nil {
		c.respondedAt = timePtr(now)
	}
	c.refreshSLA(policy, now)
	c.updatedAt = now
	return nil
}

// RequestAdditionalInfo parks the consultation until the subscriber replies.
func (c *ConsultationRequest) RequestAdditionalInfo(now time.Time) error {
	if c.status.IsTerminal() {
		return apperrors.NewInvalidTransition(string(c.status), "request additional info")
	}
	if err := c.guardEdge(ConsultationAwaitingInfo, "request additional info"); err != nil {
		return err
	}
	if err := c.requireProvider("request additional info"); err != nil {
		return err
	}
	c.status = ConsultationAwaitingInfo
	c.updatedAt = now
	return nil
}

// Complete closes out the consultation. SLA standing is frozen at this point.
func (c *ConsultationRequest) Complete(policy SLAPolicy, now time.Time) error {
	switch c.status {
	case ConsultationAssigned, ConsultationInProgress, ConsultationResponded:
	default:
		return apperrors.NewInvalidTransition(string(c.status), "complete")
	}
	if err := c.guardEdge(ConsultationCompleted, "complete"); err != nil {
		return err
	}
	c.refreshSLA(policy, now)
	c.status = ConsultationCompleted
	c.completedAt = timePtr(now)
	c.updatedAt = now
	return nil
}

// Cancel withdraws the consultation. The reason lives in the history record only.
func (c *ConsultationRequest) Cancel(now time.Time) error {
	if c.status.IsTerminal() {
		return apperrors.NewInvalidTransition(string(c.status), "cancel")
	}
	if err := c.guardEdge(ConsultationCancelled, "cancel"); err != nil {
		return err
	}
	c.status = ConsultationCancelled
	c.closedAt = timePtr(now)
	c.updatedAt = now
	return nil
}

// Dispute contests a completed consultation within DisputeWindow.
func (c *ConsultationRequest) Dispute(reason string, now time.Time) error {
	if strings.TrimSpace(reason) == "" {
		return apperrors.NewValidationError("dispute reason is required", map[string]any{"field": "reason"})
	}
	if _, err := NewReason(reason); err != nil {
		return err
	}
	if c.status != ConsultationCompleted {
		return apperrors.NewInvalidTransition(string(c.status), "dispute")
	}
	if c.completedAt == nil {
		return apperrors.NewPreconditionFailed("completion time missing", map[string]any{"id": c.id})
	}
	deadline := c.completedAt.Add(DisputeWindow)
	if now.After(deadline) {
		return apperrors.NewDisputeWindowExpired(map[string]any{
			"completed_at": c.completedAt.UTC(),
			"window_ends":  deadline.UTC(),
		})
	}
	if err := c.guardEdge(ConsultationDisputed, "dispute"); err != nil {
		return err
	}
	c.status = ConsultationDisputed
	c.updatedAt = now
	return nil
}

// Rate stores the subscriber's score once the consultation is finished.
func (c *ConsultationRequest) Rate(rating Rating, feedback string, now time.Time) error {
	if _, err := NewRating(int(rating)); err != nil {
		return err
	}
	feedback = strings.TrimSpace(feedback)
	if utf8.RuneCountInString(feedback) > maxFeedbackLength {
		return apperrors.NewValidationError("feedback is too long", map[string]any{"max": maxFeedbackLength})
	}
	if c.status != ConsultationCompleted && c.status != ConsultationDisputed {
		return apperrors.NewInvalidTransition(string(c.status), "rate")
	}
	if c.rating != nil {
		return apperrors.NewConflictingState("consultation already rated", map[string]any{"id": c.id})
	}
	c.rating = &rating
	c.feedback = feedback
	c.ratedAt = timePtr(now)
	c.updatedAt = now
	return nil
}

// RefreshSLA re-evaluates standing for open consultations and reports a change.
func (c *ConsultationRequest) RefreshSLA(policy SLAPolicy, now time.Time) bool {
	if c.status.IsTerminal() {
		return false
	}
	if !c.refreshSLA(policy, now) {
		return false
	}
	c.updatedAt = now
	return true
}

// OverrideSLA stores an externally computed deadline and standing verbatim.
func (c *ConsultationRequest) OverrideSLA(deadline *time.Time, status SLAStatus, now time.Time) error {
	return c.overrideSLA(deadline, status, now)
}

// SoftDelete marks the consultation deleted. It reports false if already deleted.
func (c *ConsultationRequest) SoftDelete(now time.Time) bool {
	return c.softDelete(now)
}

func (c *ConsultationRequest) requireProvider(operation string) error {
	if c.providerID == nil {
		return apperrors.NewPreconditionFailed("no provider assigned", map[string]any{"operation": operation})
	}
	return nil
}

func (c *ConsultationRequest) guardEdge(next ConsultationStatus, operation string) error {
	if !c.status.CanTransitionTo(next) {
		return apperrors.NewInvalidTransition(string(c.status), operation)
	}
	return nil
}
