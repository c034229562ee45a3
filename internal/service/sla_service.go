package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/legal-service/internal/domain"
	"github.com/spec-kit/legal-service/internal/events"
	"github.com/spec-kit/legal-service/internal/observability"
	"github.com/spec-kit/legal-service/internal/repository"
	apperrors "github.com/spec-kit/legal-service/pkg/util/errorutil"
)

const sweepConcurrency = 4

// SLAService re-classifies open requests and reports on SLA standing.
type SLAService struct {
	uow      repository.UnitOfWork
	policies map[domain.AggregateType]domain.SLAPolicy
	events   publisher
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

// SLADependencies bundles collaborators for the SLA service.
type SLADependencies struct {
	UnitOfWork         repository.UnitOfWork
	ConsultationPolicy domain.SLAPolicy
	LitigationPolicy   domain.SLAPolicy
	Dispatcher         events.Dispatcher
	Logger             *zap.Logger
	Metrics            *observability.Metrics
	Clock              func() time.Time
}

// SweepResult summarises one sweep.
type SweepResult struct {
	Scanned  int `json:"scanned"`
	Changed  int `json:"changed"`
	AtRisk   int `json:"at_risk"`
	Breached int `json:"breached"`
}

// SLAReport counts open requests per standing, classified at GeneratedAt.
type SLAReport struct {
	Kind        domain.AggregateType     `json:"kind"`
	GeneratedAt time.Time                `json:"generated_at"`
	Open        int                      `json:"open"`
	Counts      map[domain.SLAStatus]int `json:"counts"`
}

// NewSLAService constructs the service.
func NewSLAService(deps SLADependencies) *SLAService {
	s := &SLAService{
		uow: deps.UnitOfWork,
		policies: map[domain.AggregateType]domain.SLAPolicy{
			domain.AggregateConsultation: deps.ConsultationPolicy,
			domain.AggregateLitigation:   deps.LitigationPolicy,
		},
		logger:  deps.Logger,
		metrics: deps.Metrics,
		now:     deps.Clock,
	}
	for kind, policy := range s.policies {
		if policy.Hours == nil {
			s.policies[kind] = domain.DefaultSLAPolicy()
		}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = utcNow
	}
	s.events = publisher{dispatcher: deps.Dispatcher, logger: s.logger, metrics: s.metrics, now: s.now}
	return s
}

type slaChange struct {
	ref      requestRef
	from, to domain.SLAStatus
	deadline *time.Time
}

// Sweep loads every open request of both families, persists changed
// standings and emits at-risk and breached events for them.
func (s *SLAService) Sweep(ctx context.Context) (SweepResult, error) {
	defer s.metrics.ObserveSweep(time.Now())
	now := s.now()
	repos := s.uow.Repositories()

	var (
		consultations []*domain.ConsultationRequest
		litigations   []*domain.LitigationCase
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		consultations, err = repos.Consultations.ListOpen(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		litigations, err = repos.Litigations.ListOpen(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return SweepResult{}, apperrors.MapError(err)
	}

	var (
		mu      sync.Mutex
		changes []slaChange
	)
	collect := func(c *slaChange) {
		if c == nil {
			return
		}
		mu.Lock()
		changes = append(changes, *c)
		mu.Unlock()
	}

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	consultationPolicy := s.policies[domain.AggregateConsultation]
	for _, c := range consultations {
		if c.CurrentSLAStatus(consultationPolicy, now) == c.SLAStatus() {
			continue
		}
		id := c.ID()
		g.Go(func() error {
			change, err := s.refreshConsultation(gctx, id, now)
			collect(change)
			return err
		})
	}
	litigationPolicy := s.policies[domain.AggregateLitigation]
	for _, l := range litigations {
		if l.CurrentSLAStatus(litigationPolicy, now) == l.SLAStatus() {
			continue
		}
		id := l.ID()
		g.Go(func() error {
			change, err := s.refreshLitigation(gctx, id, now)
			collect(change)
			return err
		})
	}
	err := g.Wait()

	result := SweepResult{Scanned: len(consultations) + len(litigations), Changed: len(changes)}
	for _, c := range changes {
		switch c.to {
		case domain.SLAAtRisk:
			result.AtRisk++
		case domain.SLABreached:
			result.Breached++
		}
		s.events.slaChanged(ctx, c.ref, SystemActor(), c.from, c.to, c.deadline)
	}
	s.metrics.SetOpenBySLA(string(domain.AggregateConsultation), countConsultations(consultations, consultationPolicy, now))
	s.metrics.SetOpenBySLA(string(domain.AggregateLitigation), countLitigations(litigations, litigationPolicy, now))

	if err != nil {
		s.logger.Error("sla sweep incomplete", zap.Int("changed", result.Changed), zap.Error(err))
		return result, apperrors.MapError(err)
	}
	s.logger.Info("sla sweep finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("changed", result.Changed),
		zap.Int("at_risk", result.AtRisk),
		zap.Int("breached", result.Breached))
	return result, nil
}

func (s *SLAService) refreshConsultation(ctx context.Context, id domain.RequestID, now time.Time) (*slaChange, error) {
	var change *slaChange
	err := s.uow.Transaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		c, err := repos.Consultations.FindByID(ctx, id)
		if err != nil {
			return err
		}
		from := c.SLAStatus()
		if !c.RefreshSLA(s.policies[domain.AggregateConsultation], now) {
			return nil
		}
		if err := repos.Consultations.Update(ctx, c); err != nil {
			return err
		}
		change = &slaChange{
			ref:      requestRef{kind: domain.AggregateConsultation, id: c.ID(), number: c.Number()},
			from:     from,
			to:       c.SLAStatus(),
			deadline: c.SLADeadline(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

func (s *SLAService) refreshLitigation(ctx context.Context, id domain.RequestID, now time.Time) (*slaChange, error) {
	var change *slaChange
	err := s.uow.Transaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		l, err := repos.Litigations.FindByID(ctx, id)
		if err != nil {
			return err
		}
		from := l.SLAStatus()
		if !l.RefreshSLA(s.policies[domain.AggregateLitigation], now) {
			return nil
		}
		if err := repos.Litigations.Update(ctx, l); err != nil {
			return err
		}
		change = &slaChange{
			ref:      requestRef{kind: domain.AggregateLitigation, id: l.ID(), number: l.Number()},
			from:     from,
			to:       l.SLAStatus(),
			deadline: l.SLADeadline(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// Report classifies every open request of kind live; stored standings are
// not consulted.
func (s *SLAService) Report(ctx context.Context, kind domain.AggregateType) (SLAReport, error) {
	if !kind.Valid() {
		return SLAReport{}, apperrors.NewValidationError("unknown request kind", map[string]any{"kind": kind})
	}
	now := s.now()
	policy := s.policies[kind]
	report := SLAReport{Kind: kind, GeneratedAt: now}
	repos := s.uow.Repositories()

	var counts map[string]int
	switch kind {
	case domain.AggregateConsultation:
		items, err := repos.Consultations.ListOpen(ctx)
		if err != nil {
			return SLAReport{}, apperrors.MapError(err)
		}
		report.Open = len(items)
		counts = countConsultations(items, policy, now)
	case domain.AggregateLitigation:
		items, err := repos.Litigations.ListOpen(ctx)
		if err != nil {
			return SLAReport{}, apperrors.MapError(err)
		}
		report.Open = len(items)
		counts = countLitigations(items, policy, now)
	}
	report.Counts = make(map[domain.SLAStatus]int, len(counts))
	for status, n := range counts {
		report.Counts[domain.SLAStatus(status)] = n
	}
	return report, nil
}

func countConsultations(items []*domain.ConsultationRequest, policy domain.SLAPolicy, now time.Time) map[string]int {
	counts := emptyCounts()
	for _, c := range items {
		counts[string(c.CurrentSLAStatus(policy, now))]++
	}
	return counts
}

func countLitigations(items []*domain.LitigationCase, policy domain.SLAPolicy, now time.Time) map[string]int {
	counts := emptyCounts()
	for _, l := range items {
		counts[string(l.CurrentSLAStatus(policy, now))]++
	}
	return counts
}

func emptyCounts() map[string]int {
	return map[string]int{
		string(domain.SLAOnTime):        0,
		string(domain.SLAAtRisk):        0,
		string(domain.SLABreached):      0,
		string(domain.SLANotApplicable): 0,
	}
}
