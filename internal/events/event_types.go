package events

import (
	"time"

	"github.com/spec-kit/legal-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated       EventType = "request_created"
	EventRequestStatusChanged EventType = "request_status_changed"
	EventRequestAssigned      EventType = "request_assigned"
	EventRequestSLAAtRisk     EventType = "request_sla_at_risk"
	EventRequestSLABreached   EventType = "request_sla_breached"
)

// AllEventTypes lists every event the services publish.
func AllEventTypes() []EventType {
	return []EventType{
		EventRequestCreated,
		EventRequestStatusChanged,
		EventRequestAssigned,
		EventRequestSLAAtRisk,
		EventRequestSLABreached,
	}
}

// Actor identifies who caused an event. An empty ID means the system.
type Actor struct {
	Role string `json:"role,omitempty"`
	ID   string `json:"id,omitempty"`
}

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID            string               `json:"id"`
	Type          EventType            `json:"type"`
	AggregateType domain.AggregateType `json:"aggregate_type"`
	RequestID     string               `json:"request_id"`
	Number        string               `json:"number"`
	Actor         Actor                `json:"actor"`
	Timestamp     time.Time            `json:"timestamp"`
	Payload       any                  `json:"payload"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	SubscriberID string           `json:"subscriber_id"`
	Urgency      domain.Urgency   `json:"urgency"`
	Category     string           `json:"category"`
	SLADeadline  *time.Time       `json:"sla_deadline,omitempty"`
	SLAStatus    domain.SLAStatus `json:"sla_status"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	Reason    string `json:"reason,omitempty"`
}

// AssignedPayload payload.
type AssignedPayload struct {
	ProviderID   string `json:"provider_id"`
	AutoAssigned bool   `json:"auto_assigned"`
}

// SLAChangedPayload payload.
type SLAChangedPayload struct {
	OldStatus   domain.SLAStatus `json:"old_status"`
	NewStatus   domain.SLAStatus `json:"new_status"`
	SLADeadline *time.Time       `json:"sla_deadline,omitempty"`
}
