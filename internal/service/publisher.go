package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/legal-service/internal/domain"
	"github.com/spec-kit/legal-service/internal/events"
	"github.com/spec-kit/legal-service/internal/observability"
	"github.com/spec-kit/legal-service/internal/repository"
)

// requestRef identifies the request an event is about.
type requestRef struct {
	kind   domain.AggregateType
	id     domain.RequestID
	number domain.HumanNumber
}

// publisher emits domain events once the surrounding transaction, if any,
// commits. Failures are logged and counted, never returned.
type publisher struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

func (p publisher) publish(ctx context.Context, ref requestRef, actor Actor, eventType events.EventType, payload any) {
	if p.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		AggregateType: ref.kind,
		RequestID:     string(ref.id),
		Number:        string(ref.number),
		Actor:         actor.event(),
		Timestamp:     p.now(),
		Payload:       payload,
	}
	repository.AfterCommit(ctx, func(ctx context.Context) {
		if err := p.dispatcher.Publish(ctx, event); err != nil {
			p.metrics.RecordCollaboratorFailure("dispatcher")
			p.logger.Warn("publish event failed",
				zap.String("event_type", string(eventType)),
				zap.String("request_id", string(ref.id)),
				zap.Error(err))
		}
	})
}

func (p publisher) statusChanged(ctx context.Context, ref requestRef, actor Actor, from, to string, reason *domain.Reason) {
	payload := events.StatusChangedPayload{OldStatus: from, NewStatus: to}
	if reason != nil {
		payload.Reason = reason.String()
	}
	p.publish(ctx, ref, actor, events.EventRequestStatusChanged, payload)
}

// slaChanged announces a move into at_risk or breached. Other moves are silent.
func (p publisher) slaChanged(ctx context.Context, ref requestRef, actor Actor, from, to domain.SLAStatus, deadline *time.Time) {
	if from == to {
		return
	}
	repository.AfterCommit(ctx, func(context.Context) {
		p.metrics.RecordSLAChange(string(ref.kind), string(to))
	})
	var eventType events.EventType
	switch to {
	case domain.SLAAtRisk:
		eventType = events.EventRequestSLAAtRisk
	case domain.SLABreached:
		eventType = events.EventRequestSLABreached
	default:
		return
	}
	p.publish(ctx, ref, actor, eventType, events.SLAChangedPayload{
		OldStatus:   from,
		NewStatus:   to,
		SLADeadline: deadline,
	})
}
