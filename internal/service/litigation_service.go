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

// LitigationPrefix starts every litigation case number.
const LitigationPrefix = "LIT"

// LitigationService coordinates litigation workflows.
type LitigationService struct {
	requestBase
}

// LitigationDependencies bundles collaborators for the litigation service.
type LitigationDependencies struct {
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

// LitigationCreateInput describes a new case.
type LitigationCreateInput struct {
	RequestInput
	CaseType  string
	CourtName string
}

// QuoteInput is the provider's fee offer.
type QuoteInput struct {
	Amount     string
	Currency   string
	ValidUntil time.Time
	Details    string
}

// PaymentInput confirms a captured payment. Amount is optional; when given it
// must equal the quote.
type PaymentInput struct {
	Reference string
	Amount    string
	Currency  string
}

// NewLitigationService constructs the service.
func NewLitigationService(deps LitigationDependencies) *LitigationService {
	return &LitigationService{requestBase: newRequestBase(domain.AggregateLitigation, LitigationPrefix, baseDependencies(deps))}
}

// Create files a litigation case and writes its first history row.
func (s *LitigationService) Create(ctx context.Context, actor Actor, input LitigationCreateInput) (*domain.LitigationCase, error) {
	details, err := s.details(actor, input.RequestInput)
	if err != nil {
		return nil, s.finish("create", err)
	}
	if err := s.admit(ctx, &details); err != nil {
		return nil, s.finish("create", err)
	}

	now := s.now()
	l, err := domain.NewLitigationCase(domain.LitigationDetails{
		RequestDetails: details,
		CaseType:       input.CaseType,
		CourtName:      input.CourtName,
	}, s.policy, now)
	if err != nil {
		return nil, s.finish("create", err)
	}
	if deadline, status, ok := s.externalSLA(ctx, details.Urgency, now); ok {
		if err := l.OverrideSLA(deadline, status, now); err != nil {
			return nil, s.finish("create", err)
		}
	}

	err = s.uow.Transaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Litigations.Create(ctx, l); err != nil {
			return err
		}
		return s.appendHistory(ctx, repos, l.ID(), nil, string(l.Status()), actor, Transition{Operation: "create"}, now)
	})
	if err != nil {
		return nil, s.finish("create", err)
	}
	s.finish("create", nil)

	s.events.publish(ctx, s.ref(l), actor, events.EventRequestCreated, events.RequestCreatedPayload{
		SubscriberID: string(l.SubscriberID()),
		Urgency:      l.Urgency(),
		Category:     string(l.Category()),
		SLADeadline:  l.SLADeadline(),
		SLAStatus:    l.SLAStatus(),
	})
	s.recordUsage(ctx, l.SubscriberID(), l.ID())
	return l, nil
}

// Get returns a case visible to the actor.
func (s *LitigationService) Get(ctx context.Context, actor Actor, id string) (*domain.LitigationCase, error) {
	requestID, err := domain.ParseRequestID(id)
	if err != nil {
		return nil, err
	}
	l, err := s.uow.Repositories().Litigations.FindByID(ctx, requestID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := requireParticipant(actor, l.SubscriberID(), l.AssignedProviderID()); err != nil {
		return nil, err
	}
	return l, nil
}

// List returns cases matching the filter within the actor's scope.
func (s *LitigationService) List(ctx context.Context, actor Actor, input ListInput) ([]*domain.LitigationCase, error) {
	filter, err := s.listFilter(actor, input, func(raw string) (string, error) {
		status, err := domain.ParseLitigationStatus(raw)
		return string(status), err
	})
	if err != nil {
		return nil, err
	}
	items, err := s.uow.Repositories().Litigations.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// Assign sets the handling provider. The case stays pending.
func (s *LitigationService) Assign(ctx context.Context, actor Actor, id, providerID string) (*domain.LitigationCase, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, s.finish("assign", err)
	}
	provider, err := domain.NewProviderID(providerID)
	if err != nil {
		return nil, s.finish("assign", err)
	}
	return s.assign(ctx, actor, id, provider, false)
}

// AutoAssign asks the matcher for a provider. With no match the case is left
// untouched and the second return value is false.
func (s *LitigationService) AutoAssign(ctx context.Context, actor Actor, id, region string) (*domain.LitigationCase, bool, error) {
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
	if current.Status() != domain.LitigationPending || current.HasProvider() {
		return nil, false, s.finish("auto_assign", apperrors.NewInvalidTransition(string(current.Status()), "assign"))
	}
	provider, ok, err := s.matcher.Match(ctx, domain.MatchCriteria{
		Kind:     domain.AggregateLitigation,
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
	l, err := s.assign(ctx, actor, id, provider, true)
	if err != nil {
		return nil, false, err
	}
	return l, true, nil
}

func (s *LitigationService) assign(ctx context.Context, actor Actor, id string, provider domain.ProviderID, auto bool) (*domain.LitigationCase, error) {
	t := Transition{Operation: "assign", Metadata: map[string]any{"provider_id": string(provider), "auto_assigned": auto}}
	l, err := s.transition(ctx, actor, id, t, func(l *domain.LitigationCase, now time.Time) error {
		return l.Assign(provider, s.policy, now)
	})
	if err != nil {
		return nil, err
	}
	s.events.publish(ctx, s.ref(l), actor, events.EventRequestAssigned, events.AssignedPayload{
		ProviderID:   string(provider),
		AutoAssigned: auto,
	})
	return l, nil
}

// SendQuote offers a fee to the subscriber.
func (s *LitigationService) SendQuote(ctx context.Context, actor Actor, id string, input QuoteInput) (*domain.LitigationCase, error) {
	amount, err := domain.ParseMoney(input.Amount, input.Currency)
	if err != nil {
		return nil, s.finish("send_quote", err)
	}
	t := Transition{Operation: "send_quote", Metadata: map[string]any{
		"amount":      amount.Amount().StringFixed(2),
		"currency":    amount.Currency(),
		"valid_until": input.ValidUntil.UTC().Format(time.RFC3339),
	}}
	return s.transition(ctx, actor, id, t, func(l *domain.LitigationCase, now time.Time) error {
		if err := requireAssignee(actor, l.AssignedProviderID()); err != nil {
			return err
		}
		return l.SendQuote(amount, input.ValidUntil, input.Details, now)
	})
}

// AcceptQuote records the subscriber's agreement to the quote.
func (s *LitigationService) AcceptQuote(ctx context.Context, actor Actor, id string) (*domain.LitigationCase, error) {
	return s.transition(ctx, actor, id, Transition{Operation: "accept_quote"}, func(l *domain.LitigationCase, now time.Time) error {
		if err := requireOwner(actor, l.SubscriberID()); err != nil {
			return err
		}
		return l.AcceptQuote(now)
	})
}

// MarkAsPaid confirms the captured payment. The status is unchanged but the
// audit row is still written.
func (s *LitigationService) MarkAsPaid(ctx context.Context, actor Actor, id string, input PaymentInput) (*domain.LitigationCase, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, s.finish("mark_paid", err)
	}
	reference, err := domain.NewPaymentReference(input.Reference)
	if err != nil {
		return nil, s.finish("mark_paid", err)
	}
	var amount *domain.Money
	if input.Amount != "" {
		m, err := domain.ParseMoney(input.Amount, input.Currency)
		if err != nil {
			return nil, s.finish("mark_paid", err)
		}
		amount = &m
	}
	t := Transition{Operation: "mark_paid", Metadata: map[string]any{
		"payment_status":    string(domain.PaymentPaid),
		"payment_reference": reference.String(),
	}}
	return s.transition(ctx, actor, id, t, func(l *domain.LitigationCase, now time.Time) error {
		return l.MarkAsPaid(reference, amount, now)
	})
}

// ProcessRefund reverses a captured payment before activation.
func (s *LitigationService) ProcessRefund(ctx context.Context, actor Actor, id, reference, reason string) (*domain.LitigationCase, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, s.finish("refund", err)
	}
	ref, err := domain.NewPaymentReference(reference)
	if err != nil {
		return nil, s.finish("refund", err)
	}
	r, err := domain.OptionalReason(reason)
	if err != nil {
		return nil, s.finish("refund", err)
	}
	t := Transition{Operation: "refund", Reason: r, Metadata: map[string]any{
		"payment_status":   string(domain.PaymentRefunded),
		"refund_reference": ref.String(),
	}}
	return s.transition(ctx, actor, id, t, func(l *domain.LitigationCase, now time.Time) error {
		return l.ProcessRefund(ref, now)
	})
}

// Activate opens a paid case for work.
func (s *LitigationService) Activate(ctx context.Context, actor Actor, id string) (*domain.LitigationCase, error) {
	return s.transition(ctx, actor, id, Transition{Operation: "activate"}, func(l *domain.LitigationCase, now time.Time) error {
		if err := requireAssignee(actor, l.AssignedProviderID()); err != nil {
			return err
		}
		return l.Activate(now)
	})
}

// Close completes an active case.
func (s *LitigationService) Close(ctx context.Context, actor Actor, id, reason string) (*domain.LitigationCase, error) {
	r, err := domain.OptionalReason(reason)
	if err != nil {
		return nil, s.finish("close", err)
	}
	return s.transition(ctx, actor, id, Transition{Operation: "close", Reason: r}, func(l *domain.LitigationCase, now time.Time) error {
		if err := requireAssignee(actor, l.AssignedProviderID()); err != nil {
			return err
		}
		return l.Close(s.policy, now)
	})
}

// Cancel withdraws the case.
func (s *LitigationService) Cancel(ctx context.Context, actor Actor, id, reason string) (*domain.LitigationCase, error) {
	r, err := domain.OptionalReason(reason)
	if err != nil {
		return nil, s.finish("cancel", err)
	}
	return s.transition(ctx, actor, id, Transition{Operation: "cancel", Reason: r}, func(l *domain.LitigationCase, now time.Time) error {
		if err := requireOwner(actor, l.SubscriberID()); err != nil {
			return err
		}
		return l.Cancel(now)
	})
}

// OverrideSLA stores an externally supplied deadline and standing.
func (s *LitigationService) OverrideSLA(ctx context.Context, actor Actor, id string, deadline *time.Time, status string) (*domain.LitigationCase, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, s.finish("override_sla", err)
	}
	parsed, err := domain.ParseSLAStatus(status)
	if err != nil {
		return nil, s.finish("override_sla", err)
	}
	var before domain.SLAStatus
	l, err := s.mutate(ctx, id, func(l *domain.LitigationCase, now time.Time) error {
		before = l.SLAStatus()
		return l.OverrideSLA(deadline, parsed, now)
	})
	if err != nil {
		return nil, s.finish("override_sla", err)
	}
	s.finish("override_sla", nil)
	s.events.slaChanged(ctx, s.ref(l), actor, before, l.SLAStatus(), l.SLADeadline())
	return l, nil
}

// Delete soft-deletes the case.
func (s *LitigationService) Delete(ctx context.Context, actor Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return s.finish("delete", err)
	}
	_, err := s.mutate(ctx, id, func(l *domain.LitigationCase, now time.Time) error {
		if !l.SoftDelete(now) {
			return apperrors.NewNotFound("litigation case", map[string]any{"id": id})
		}
		return nil
	})
	return s.finish("delete", err)
}

// History returns the audit timeline, oldest first.
func (s *LitigationService) History(ctx context.Context, actor Actor, id string) ([]*domain.StatusHistory, error) {
	l, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.timeline(ctx, l.ID())
}

// LatestHistory returns the most recent audit row.
func (s *LitigationService) LatestHistory(ctx context.Context, actor Actor, id string) (*domain.StatusHistory, error) {
	l, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.latest(ctx, l.ID())
}

func (s *LitigationService) transition(ctx context.Context, actor Actor, id string, t Transition, apply func(*domain.LitigationCase, time.Time) error) (*domain.LitigationCase, error) {
	requestID, err := domain.ParseRequestID(id)
	if err != nil {
		return nil, s.finish(t.Operation, err)
	}
	var (
		updated   *domain.LitigationCase
		from      string
		slaBefore domain.SLAStatus
	)
	err = s.uow.Transaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		l, err := repos.Litigations.FindByID(ctx, requestID)
		if err != nil {
			return err
		}
		from = string(l.Status())
		slaBefore = l.SLAStatus()
		now := s.now()
		if err := apply(l, now); err != nil {
			return err
		}
		if err := repos.Litigations.Update(ctx, l); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, repos, l.ID(), statusPtr(from), string(l.Status()), actor, t, now); err != nil {
			return err
		}
		updated = l
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

func (s *LitigationService) mutate(ctx context.Context, id string, apply func(*domain.LitigationCase, time.Time) error) (*domain.LitigationCase, error) {
	requestID, err := domain.ParseRequestID(id)
	if err != nil {
		return nil, err
	}
	var updated *domain.LitigationCase
	err = s.uow.Transaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		l, err := repos.Litigations.FindByID(ctx, requestID)
		if err != nil {
			return err
		}
		if err := apply(l, s.now()); err != nil {
			return err
		}
		if err := repos.Litigations.Update(ctx, l); err != nil {
			return err
		}
		updated = l
		return nil
	})
	return updated, err
}

func (s *LitigationService) ref(l *domain.LitigationCase) requestRef {
	return requestRef{kind: domain.AggregateLitigation, id: l.ID(), number: l.Number()}
}
