package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/legal-service/internal/domain"
	"github.com/spec-kit/legal-service/internal/events"
	"github.com/spec-kit/legal-service/internal/observability"
	"github.com/spec-kit/legal-service/internal/repository"
	apperrors "github.com/spec-kit/legal-service/pkg/util/errorutil"
)

// ConsultationPrefix starts every consultation number.
const ConsultationPrefix = "CON"

// ConsultationService coordinates consultation workflows.
type ConsultationService struct {
	requestBase
}

// ConsultationDependencies bundles collaborators for the consultation service.
type ConsultationDependencies struct {
	UnitOfWork  repository.UnitOfWork
	Numbers     NumberGenerator
	Membership  MembershipService
	SLAPolicies SLAPolicyService
	Matcher     ProviderMatcher
	Policy      domain.SLAPolicy
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Clock       func() time.Time
}

// NewConsultationService constructs the service.
func NewConsultationService(deps ConsultationDependencies) *ConsultationService {
	return &ConsultationService{requestBase: newRequestBase(domain.AggregateConsultation, ConsultationPrefix, baseDependencies(deps))}
}

// Create files a consultation for a subscriber and writes its first history row.
func (s *ConsultationService) Create(ctx context.Context, actor Actor, input RequestInput) (*domain.ConsultationRequest, error) {
	details, err := s.details(actor, input)
	if err != nil {
		return nil, s.finish("create", err)
	}
	if err := s.admit(ctx, &details); err != nil {
		return nil, s.finish("create", err)
	}

	now := s.now()
	c, err := domain.NewConsultationRequest(details, s.policy, now)
	if err != nil {
		return nil, s.finish("create", err)
	}
	if deadline, status, ok := s.externalSLA(ctx, details.Urgency, now); ok {
		if err := c.OverrideSLA(deadline, status, now); err != nil {
			return nil, s.finish("create", err)
		}
	}

	err = s.uow.Transaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Consultations.Create(ctx, c); err != nil {
			return err
		}
		return s.appendHistory(ctx, repos, c.ID(), nil, string(c.Status()), actor, Transition{Operation: "create"}, now)
	})
	if err != nil {
		return nil, s.finish("create", err)
	}
	s.finish("create", nil)

	s.events.publish(ctx, s.ref(c), actor, events.EventRequestCreated, events.RequestCreatedPayload{
		SubscriberID: string(c.SubscriberID()),
		Urgency:      c.Urgency(),
		Category:     string(c.Category()),
		SLADeadline:  c.SLADeadline(),
		SLAStatus:    c.SLAStatus(),
	})
	s.recordUsage(ctx, c.SubscriberID(), c.ID())
	return c, nil
}

// Get returns a consultation visible to the actor.
func (s *ConsultationService) Get(ctx context.Context, actor Actor, id string) (*domain.ConsultationRequest, error) {
	requestID, err := domain.ParseRequestID(id)
	if err != nil {
		return nil, err
	}
	c, err := s.uow.Repositories().Consultations.FindByID(ctx, requestID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := requireParticipant(actor, c.SubscriberID(), c.AssignedProviderID()); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns consultations matching the filter within the actor's scope.
func (s *ConsultationService) List(ctx context.Context, actor Actor, input ListInput) ([]*domain.ConsultationRequest, error) {
	filter, err := s.listFilter(actor, input, func(raw string) (string, error) {
		status, err := domain.ParseConsultationStatus(raw)
		return string(status), err
	})
	if err != nil {
		return nil, err
	}
	items, err := s.uow.Repositories().Consultations.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// Assign hands a pending consultation to the given provider.
func (s *ConsultationService) Assign(ctx context.Context, actor Actor, id, providerID string) (*domain.ConsultationRequest, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, s.finish("assign", err)
	}
	provider, err := domain.NewProviderID(providerID)
	if err != nil {
		return nil, s.finish("assign", err)
	}
	return s.assign(ctx, actor, id, provider, false)
}

// AutoAssign asks the matcher for a provider. With no match the consultation
// stays pending and the second return value is false.
func (s *ConsultationService) AutoAssign(ctx context.Context, actor Actor, id, region string) (*domain.ConsultationRequest, bool, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, false, s.finish("auto_assign", err)
	}
	if s.matcher == nil {
		return nil, false, s.finish("auto_assign", apperrors.NewPreconditionFailed("no provider matcher configured", nil))
	}
	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, false, s.finish("auto_assign", err)
	}
	if current.Status() != domain.ConsultationPending {
		return nil, false, s.finish("auto_assign", apperrors.NewInvalidTransition(string(current.Status()), "assign"))
	}
	provider, ok, err := s.matcher.Match(ctx, domain.MatchCriteria{
		Kind:     domain.AggregateConsultation,
		Category: current.Category(),
		Urgency:  current.Urgency(),
		Region:   region,
	})
	if err != nil {
		return nil, false, s.finish("auto_assign", err)
	}
	if !ok {
		s.logger.Info("no provider matched", zap.String("request_id", id))
		return current, false, nil
	}
	c, err := s.assign(ctx, actor, id, provider, true)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

func (s *ConsultationService) assign(ctx context.Context, actor Actor, id string, provider domain.ProviderID, auto bool) (*domain.ConsultationRequest, error) {
	t := Transition{Operation: "assign", Metadata: map[string]any{"provider_id": string(provider), "auto_assigned": auto}}
	c, err := s.transition(ctx, actor, id, t, func(c *domain.ConsultationRequest, now time.Time) error {
		return c.Assign(provider, s.policy, now)
	})
	if err != nil {
		return nil, err
	}
	s.events.publish(ctx, s.ref(c), actor, events.EventRequestAssigned, events.AssignedPayload{
		ProviderID:   string(provider),
		AutoAssigned: auto,
	})
	return c, nil
}

// MarkInProgress starts or resumes work on the consultation.
func (s *ConsultationService) MarkInProgress(ctx context.Context, actor Actor, id string) (*domain.ConsultationRequest, error) {
	return s.transition(ctx, actor, id, Transition{Operation: "start"}, func(c *domain.ConsultationRequest, now time.Time) error {
		if err := requireAssignee(actor, c.AssignedProviderID()); err != nil {
			return err
		}
		return c.MarkInProgress(now)
	})
}

// MarkResponded records the provider's answer.
func (s *ConsultationService) MarkResponded(ctx context.Context, actor Actor, id string) (*domain.ConsultationRequest, error) {
	return s.transition(ctx, actor, id, Transition{Operation: "respond"}, func(c *domain.ConsultationRequest, now time.Time) error {
		if err := requireAssignee(actor, c.AssignedProviderID()); err != nil {
			return err
		}
		return c.MarkResponded(s.policy, now)
	})
}

// RequestAdditionalInfo parks the consultation until the subscriber replies.
func (s *ConsultationService) RequestAdditionalInfo(ctx context.Context, actor Actor, id, reason string) (*domain.ConsultationRequest, error) {
	r, err := domain.OptionalReason(reason)
	if err != nil {
		return nil, s.finish("request_info", err)
	}
	return s.transition(ctx, actor, id, Transition{Operation: "request_info", Reason: r}, func(c *domain.ConsultationRequest, now time.Time) error {
		if err := requireAssignee(actor, c.AssignedProviderID()); err != nil {
			return err
		}
		return c.RequestAdditionalInfo(now)
	})
}

// Complete finishes the consultation and opens the dispute window.
func (s *ConsultationService) Complete(ctx context.Context, actor Actor, id string) (*domain.ConsultationRequest, error) {
	return s.transition(ctx, actor, id, Transition{Operation: "complete"}, func(c *domain.ConsultationRequest, now time.Time) error {
		if err := requireParticipant(actor, c.SubscriberID(), c.AssignedProviderID()); err != nil {
			return err
		}
		return c.Complete(s.policy, now)
	})
}

// Cancel withdraws the consultation. The reason lands in the history row only.
func (s *ConsultationService) Cancel(ctx context.Context, actor Actor, id, reason string) (*domain.ConsultationRequest, error) {
	r, err := domain.OptionalReason(reason)
	if err != nil {
		return nil, s.finish("cancel", err)
	}
	return s.transition(ctx, actor, id, Transition{Operation: "cancel", Reason: r}, func(c *domain.ConsultationRequest, now time.Time) error {
		if err := requireOwner(actor, c.SubscriberID()); err != nil {
			return err
		}
		return c.Cancel(now)
	})
}

// Dispute contests a completed consultation inside the dispute window.
func (s *ConsultationService) Dispute(ctx context.Context, actor Actor, id, reason string) (*domain.ConsultationRequest, error) {
	var r *domain.Reason
	if v, err := domain.NewReason(reason); err == nil {
		r = &v
	}
	return s.transition(ctx, actor, id, Transition{Operation: "dispute", Reason: r}, func(c *domain.ConsultationRequest, now time.Time) error {
		if err := requireOwner(actor, c.SubscriberID()); err != nil {
			return err
		}
		return c.Dispute(reason, now)
	})
}

// Rate stores the subscriber's score. It is not a status change and writes no
// history row.
func (s *ConsultationService) Rate(ctx context.Context, actor Actor, id string, rating int, feedback string) (*domain.ConsultationRequest, error) {
	value, err := domain.NewRating(rating)
	if err != nil {
		return nil, s.finish("rate", err)
	}
	c, err := s.mutate(ctx, id, func(c *domain.ConsultationRequest, now time.Time) error {
		if err := requireOwner(actor, c.SubscriberID()); err != nil {
			return err
		}
		return c.Rate(value, feedback, now)
	})
	return c, s.finish("rate", err)
}

// OverrideSLA stores an externally supplied deadline and standing.
func (s *ConsultationService) OverrideSLA(ctx context.Context, actor Actor, id string, deadline *time.Time, status string) (*domain.ConsultationRequest, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, s.finish("override_sla", err)
	}
	parsed, err := domain.ParseSLAStatus(status)
	if err != nil {
		return nil, s.finish("override_sla", err)
	}
	var before domain.SLAStatus
	c, err := s.mutate(ctx, id, func(c *domain.ConsultationRequest, now time.Time) error {
		before = c.SLAStatus()
		return c.OverrideSLA(deadline, parsed, now)
	})
	if err != nil {
		return nil, s.finish("override_sla", err)
	}
	s.finish("override_sla", nil)
	s.events.slaChanged(ctx, s.ref(c), actor, before, c.SLAStatus(), c.SLADeadline())
	return c, nil
}

// Delete soft-deletes the consultation.
func (s *ConsultationService) Delete(ctx context.Context, actor Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return s.finish("delete", err)
	}
	_, err := s.mutate(ctx, id, func(c *domain.ConsultationRequest, now time.Time) error {
		if !c.SoftDelete(now) {
			return apperrors.NewNotFound("consultation", map[string]any{"id": id})
		}
		return nil
	})
	return s.finish("delete", err)
}

// History returns the audit timeline, oldest first.
func (s *ConsultationService) History(ctx context.Context, actor Actor, id string) ([]*domain.StatusHistory, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.timeline(ctx, c.ID())
}

// LatestHistory returns the most recent audit row.
func (s *ConsultationService) LatestHistory(ctx context.Context, actor Actor, id string) (*domain.StatusHistory, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.latest(ctx, c.ID())
}

// CountHistory returns how many audit rows the consultation has.
func (s *ConsultationService) CountHistory(ctx context.Context, actor Actor, id string) (int, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return 0, err
	}
	return s.count(ctx, c.ID())
}

// transition loads the consultation, applies the change and writes the
// aggregate and its history row in one transaction. Events follow the commit.
func (s *ConsultationService) transition(ctx context.Context, actor Actor, id string, t Transition, apply func(*domain.ConsultationRequest, time.Time) error) (*domain.ConsultationRequest, error) {
	requestID, err := domain.ParseRequestID(id)
	if err != nil {
		return nil, s.finish(t.Operation, err)
	}
	var (
		updated   *domain.ConsultationRequest
		from      string
		slaBefore domain.SLAStatus
	)
	err = s.uow.Transaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		c, err := repos.Consultations.FindByID(ctx, requestID)
		if err != nil {
			return err
		}
		from = string(c.Status())
		slaBefore = c.SLAStatus()
		now := s.now()
		if err := apply(c, now); err != nil {
			return err
		}
		if err := repos.Consultations.Update(ctx, c); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, repos, c.ID(), statusPtr(from), string(c.Status()), actor, t, now); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, s.finish(t.Operation, err)
	}
	s.finish(t.Operation, nil)

	ref := s.ref(updated)
	if to := string(updated.Status()); to != from {
		s.events.statusChanged(ctx, ref, actor, from, to, t.Reason)
	}
	s.events.slaChanged(ctx, ref, actor, slaBefore, updated.SLAStatus(), updated.SLADeadline())
	return updated, nil
}

// mutate persists a change that is not a status transition.
func (s *ConsultationService) mutate(ctx context.Context, id string, apply func(*domain.ConsultationRequest, time.Time) error) (*domain.ConsultationRequest, error) {
	requestID, err := domain.ParseRequestID(id)
	if err != nil {
		return nil, err
	}
	var updated *domain.ConsultationRequest
	err = s.uow.Transaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		c, err := repos.Consultations.FindByID(ctx, requestID)
		if err != nil {
			return err
		}
		if err := apply(c, s.now()); err != nil {
			return err
		}
		if err := repos.Consultations.Update(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	return updated, err
}

func (s *ConsultationService) ref(c *domain.ConsultationRequest) requestRef {
	return requestRef{kind: domain.AggregateConsultation, id: c.ID(), number: c.Number()}
}
