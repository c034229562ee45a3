package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/legal-service/internal/domain"
	"github.com/spec-kit/legal-service/internal/events"
	"github.com/spec-kit/legal-service/internal/observability"
	"github.com/spec-kit/legal-service/internal/repository"
	apperrors "github.com/spec-kit/legal-service/pkg/util/errorutil"
)

var errNoNumberGenerator = errors.New("no number generator configured")

// RequestInput carries the creation fields both request families share.
type RequestInput struct {
	SubscriberID string
	Urgency      string
	Title        string
	Description  string
	Category     string
	Jurisdiction string
}

// ListInput describes listing filters. Subscribers and providers are always
// narrowed to their own requests.
type ListInput struct {
	SubscriberID string
	ProviderID   string
	Statuses     []string
	Urgencies    []string
	Category     string
	Limit        int
	Offset       int
}

// Transition describes one committed status change.
type Transition struct {
	Operation string
	Reason    *domain.Reason
	Metadata  map[string]any
}

// requestBase holds what both request services share: the unit of work,
// policy, collaborators and the after-commit side effects.
type requestBase struct {
	kind        domain.AggregateType
	prefix      string
	uow         repository.UnitOfWork
	numbers     NumberGenerator
	membership  MembershipService
	slaPolicies SLAPolicyService
	matcher     ProviderMatcher
	policy      domain.SLAPolicy
	events      publisher
	logger      *zap.Logger
	metrics     *observability.Metrics
	now         func() time.Time
}

type baseDependencies struct {
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

func newRequestBase(kind domain.AggregateType, prefix string, deps baseDependencies) requestBase {
	b := requestBase{
		kind:        kind,
		prefix:      prefix,
		uow:         deps.UnitOfWork,
		numbers:     deps.Numbers,
		membership:  deps.Membership,
		slaPolicies: deps.SLAPolicies,
		matcher:     deps.Matcher,
		policy:      deps.Policy,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		now:         deps.Clock,
	}
	if b.membership == nil {
		b.membership = NoopMembership{}
	}
	if b.policy.Hours == nil {
		b.policy = domain.DefaultSLAPolicy()
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	if b.now == nil {
		b.now = utcNow
	}
	b.events = publisher{
		dispatcher: deps.Dispatcher,
		logger:     b.logger,
		metrics:    b.metrics,
		now:        b.now,
	}
	return b
}

// details validates creation input. The number is filled in later, once the
// quota check has passed.
func (b *requestBase) details(actor Actor, in RequestInput) (domain.RequestDetails, error) {
	subscriber, err := b.subscriberFor(actor, in.SubscriberID)
	if err != nil {
		return domain.RequestDetails{}, err
	}
	urgency, err := domain.ParseUrgency(in.Urgency)
	if err != nil {
		return domain.RequestDetails{}, err
	}
	title, err := domain.NewTitle(in.Title)
	if err != nil {
		return domain.RequestDetails{}, err
	}
	description, err := domain.NewDescription(in.Description)
	if err != nil {
		return domain.RequestDetails{}, err
	}
	category, err := domain.NewCategory(in.Category)
	if err != nil {
		return domain.RequestDetails{}, err
	}
	return domain.RequestDetails{
		SubscriberID: subscriber,
		Urgency:      urgency,
		Title:        title,
		Description:  description,
		Category:     category,
		Jurisdiction: in.Jurisdiction,
	}, nil
}

func (b *requestBase) subscriberFor(actor Actor, requested string) (domain.SubscriberID, error) {
	if err := requireActor(actor); err != nil {
		return "", err
	}
	switch {
	case actor.Role == RoleSubscriber:
		if requested != "" && requested != actor.ID {
			return "", apperrors.NewForbidden("subscribers may only file their own requests")
		}
		return domain.NewSubscriberID(actor.ID)
	case actor.privileged():
		return domain.NewSubscriberID(requested)
	}
	return "", apperrors.NewForbidden("providers cannot file requests")
}

// admit runs the quota check and allocates a number. Nothing is persisted
// when either step fails.
func (b *requestBase) admit(ctx context.Context, details *domain.RequestDetails) error {
	if err := b.membership.EnsureQuota(ctx, details.SubscriberID, b.kind); err != nil {
		return apperrors.MapError(err)
	}
	if b.numbers == nil {
		return apperrors.NewInternalError(errNoNumberGenerator)
	}
	number, err := b.numbers.Next(ctx, b.prefix, b.now())
	if err != nil {
		return apperrors.MapError(err)
	}
	details.Number = number
	return nil
}

// externalSLA asks the policy service for an override. Failures fall back to
// the local computation.
func (b *requestBase) externalSLA(ctx context.Context, urgency domain.Urgency, submittedAt time.Time) (*time.Time, domain.SLAStatus, bool) {
	if b.slaPolicies == nil {
		return nil, "", false
	}
	deadline, status, ok, err := b.slaPolicies.Resolve(ctx, b.kind, urgency, submittedAt)
	if err != nil {
		b.metrics.RecordCollaboratorFailure("sla_policy")
		b.logger.Warn("sla policy lookup failed, using local policy", zap.String("kind", string(b.kind)), zap.Error(err))
		return nil, "", false
	}
	if !ok {
		return nil, "", false
	}
	return &deadline, status, true
}

func (b *requestBase) recordUsage(ctx context.Context, subscriber domain.SubscriberID, id domain.RequestID) {
	if err := b.membership.RecordUsage(ctx, subscriber, b.kind, id); err != nil {
		b.metrics.RecordCollaboratorFailure("membership")
		b.logger.Warn("record usage failed",
			zap.String("kind", string(b.kind)),
			zap.String("request_id", string(id)),
			zap.Error(err))
	}
}

// appendHistory writes the audit row for a committed change.
func (b *requestBase) appendHistory(ctx context.Context, repos repository.Repositories, id domain.RequestID, from *string, to string, actor Actor, t Transition, now time.Time) error {
	h, err := domain.NewStatusHistory(domain.StatusChange{
		AggregateType: b.kind,
		AggregateID:   id,
		From:          from,
		To:            to,
		Reason:        t.Reason,
		ChangedBy:     actor.changedBy(),
		Metadata:      t.Metadata,
	}, now)
	if err != nil {
		return err
	}
	return repos.History.Create(ctx, h)
}

func (b *requestBase) listFilter(actor Actor, in ListInput, parseStatus func(string) (string, error)) (repository.RequestFilter, error) {
	sub, prov, err := scopeFilter(actor, &in.SubscriberID, &in.ProviderID)
	if err != nil {
		return repository.RequestFilter{}, err
	}
	filter := repository.RequestFilter{
		SubscriberID: sub,
		ProviderID:   prov,
		Limit:        in.Limit,
		Offset:       in.Offset,
	}
	for _, raw := range in.Statuses {
		status, err := parseStatus(raw)
		if err != nil {
			return repository.RequestFilter{}, err
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, raw := range in.Urgencies {
		urgency, err := domain.ParseUrgency(raw)
		if err != nil {
			return repository.RequestFilter{}, err
		}
		filter.Urgencies = append(filter.Urgencies, urgency)
	}
	if in.Category != "" {
		category, err := domain.NewCategory(in.Category)
		if err != nil {
			return repository.RequestFilter{}, err
		}
		filter.Category = &category
	}
	return filter, nil
}

func (b *requestBase) timeline(ctx context.Context, id domain.RequestID) ([]*domain.StatusHistory, error) {
	entries, err := b.uow.Repositories().History.ListByAggregate(ctx, b.kind, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (b *requestBase) latest(ctx context.Context, id domain.RequestID) (*domain.StatusHistory, error) {
	entry, err := b.uow.Repositories().History.Latest(ctx, b.kind, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entry, nil
}

func (b *requestBase) count(ctx context.Context, id domain.RequestID) (int, error) {
	n, err := b.uow.Repositories().History.Count(ctx, b.kind, id)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return n, nil
}

func (b *requestBase) finish(operation string, err error) error {
	b.metrics.RecordTransition(string(b.kind), operation, err)
	return apperrors.MapError(err)
}

func statusPtr(s string) *string {
	return &s
}
