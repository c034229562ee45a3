package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/legal-service/internal/domain"
	"github.com/spec-kit/legal-service/internal/events"
	"github.com/spec-kit/legal-service/internal/repository"
	"github.com/spec-kit/legal-service/internal/repository/memory"
	"github.com/spec-kit/legal-service/internal/service"
	apperrors "github.com/spec-kit/legal-service/pkg/util/errorutil"
)

type ConsultationServiceSuite struct {
	suite.Suite
	ctx        context.Context
	clock      *fakeClock
	uow        *memory.UnitOfWork
	numbers    *memory.NumberSequence
	dispatcher *recordingDispatcher
	logs       *observer.ObservedLogs
	logger     *zap.Logger
	membership *membershipMock
	svc        *service.ConsultationService
}

func TestConsultationServiceSuite(t *testing.T) {
	suite.Run(t, new(ConsultationServiceSuite))
}

func (s *ConsultationServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = newFakeClock(t0)
	s.uow = memory.NewUnitOfWork(time.Second)
	s.numbers = memory.NewNumberSequence()
	s.dispatcher = &recordingDispatcher{}
	core, logs := observer.New(zap.DebugLevel)
	s.logs = logs
	s.logger = zap.New(core)
	s.membership = new(membershipMock)
	s.membership.On("EnsureQuota", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	s.membership.On("RecordUsage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	s.svc = s.build(service.ConsultationDependencies{Membership: s.membership})
}

func (s *ConsultationServiceSuite) build(deps service.ConsultationDependencies) *service.ConsultationService {
	deps.UnitOfWork = s.uow
	deps.Numbers = s.numbers
	deps.Logger = s.logger
	deps.Clock = s.clock.Now
	if deps.Dispatcher == nil {
		deps.Dispatcher = s.dispatcher
	}
	return service.NewConsultationService(deps)
}

func (s *ConsultationServiceSuite) create(urgency string) *domain.ConsultationRequest {
	c, err := s.svc.Create(s.ctx, subscriber, consultationInput(urgency))
	s.Require().NoError(err)
	return c
}

func (s *ConsultationServiceSuite) historyCount(id domain.RequestID) int {
	n, err := s.svc.CountHistory(s.ctx, admin, id.String())
	s.Require().NoError(err)
	return n
}

func (s *ConsultationServiceSuite) TestCreateWritesFirstHistoryRow() {
	c := s.create("urgent")

	s.Equal(domain.ConsultationPending, c.Status())
	s.Equal("CON-20260302-0001", c.Number().String())
	s.Equal(domain.SubscriberID("sub-1"), c.SubscriberID())
	s.Equal(domain.Category("employment"), c.Category())
	s.Require().NotNil(c.SLADeadline())
	s.Equal(t0.Add(4*time.Hour), *c.SLADeadline())
	s.Equal(domain.SLAOnTime, c.SLAStatus())

	latest, err := s.svc.LatestHistory(s.ctx, subscriber, c.ID().String())
	s.Require().NoError(err)
	s.Nil(latest.FromStatus())
	s.Equal("pending", latest.ToStatus())
	s.Equal(domain.ActorID("sub-1"), *latest.ChangedBy())
	s.Equal(1, s.historyCount(c.ID()))

	s.Equal([]events.EventType{events.EventRequestCreated}, s.dispatcher.types())
	s.membership.AssertCalled(s.T(), "RecordUsage", mock.Anything, domain.SubscriberID("sub-1"), domain.AggregateConsultation, c.ID())
}

func (s *ConsultationServiceSuite) TestAssignWritesOneHistoryRow() {
	c := s.create("normal")
	s.clock.Advance(10 * time.Minute)
	s.dispatcher.reset()

	assigned, err := s.svc.Assign(s.ctx, admin, c.ID().String(), "prov-1")
	s.Require().NoError(err)
	s.Equal(domain.ConsultationAssigned, assigned.Status())
	s.Equal(domain.ProviderID("prov-1"), *assigned.AssignedProviderID())
	s.Equal(t0.Add(10*time.Minute), *assigned.AssignedAt())

	timeline, err := s.svc.History(s.ctx, admin, c.ID().String())
	s.Require().NoError(err)
	s.Require().Len(timeline, 2)
	s.Nil(timeline[0].FromStatus())
	s.Equal("pending", timeline[0].ToStatus())
	s.Require().NotNil(timeline[1].FromStatus())
	s.Equal("pending", *timeline[1].FromStatus())
	s.Equal("assigned", timeline[1].ToStatus())
	s.Equal(domain.ActorID("admin-1"), *timeline[1].ChangedBy())
	s.Equal("prov-1", timeline[1].Metadata()["provider_id"])

	s.Equal([]events.EventType{events.EventRequestStatusChanged, events.EventRequestAssigned}, s.dispatcher.types())
	changed := s.dispatcher.ofType(events.EventRequestStatusChanged)[0]
	s.Equal(events.StatusChangedPayload{OldStatus: "pending", NewStatus: "assigned"}, changed.Payload)
	s.Equal(c.Number().String(), changed.Number)
}

func (s *ConsultationServiceSuite) TestAssignRefreshesSLA() {
	c := s.create("urgent")
	s.clock.Advance(3 * time.Hour)

	assigned, err := s.svc.Assign(s.ctx, admin, c.ID().String(), "prov-1")
	s.Require().NoError(err)
	s.Equal(domain.SLAAtRisk, assigned.SLAStatus())
	s.Len(s.dispatcher.ofType(events.EventRequestSLAAtRisk), 1)
}

func (s *ConsultationServiceSuite) TestQuotaRejectionPersistsNothing() {
	membership := new(membershipMock)
	membership.On("EnsureQuota", mock.Anything, domain.SubscriberID("sub-1"), domain.AggregateConsultation).
		Return(apperrors.NewQuotaExceeded("monthly consultation quota used", nil))
	svc := s.build(service.ConsultationDependencies{Membership: membership})

	_, err := svc.Create(s.ctx, subscriber, consultationInput("normal"))
	s.True(apperrors.HasCode(err, apperrors.CodeQuotaExceeded))
	membership.AssertNotCalled(s.T(), "RecordUsage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	listed, err := s.svc.List(s.ctx, admin, service.ListInput{})
	s.Require().NoError(err)
	s.Empty(listed)
	s.Empty(s.dispatcher.types())

	// the rejected request did not consume a number
	c := s.create("normal")
	s.Equal("CON-20260302-0001", c.Number().String())
}

func (s *ConsultationServiceSuite) TestValidationRunsBeforeQuota() {
	membership := new(membershipMock)
	svc := s.build(service.ConsultationDependencies{Membership: membership})

	input := consultationInput("normal")
	input.Title = "no"
	_, err := svc.Create(s.ctx, subscriber, input)
	s.True(apperrors.HasCode(err, apperrors.CodeValidation))
	membership.AssertNotCalled(s.T(), "EnsureQuota", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ConsultationServiceSuite) TestHistoryFailureRollsBackTransition() {
	c := s.create("normal")
	s.dispatcher.reset()

	s.uow.FailHistoryWrites(errors.New("disk full"))
	_, err := s.svc.Assign(s.ctx, admin, c.ID().String(), "prov-1")
	s.Require().Error(err)
	s.uow.FailHistoryWrites(nil)

	found, err := s.svc.Get(s.ctx, admin, c.ID().String())
	s.Require().NoError(err)
	s.Equal(domain.ConsultationPending, found.Status())
	s.False(found.HasProvider())
	s.Equal(1, s.historyCount(c.ID()))
	s.Empty(s.dispatcher.types())
}

func (s *ConsultationServiceSuite) TestFailedTransitionWritesNothing() {
	c := s.create("normal")
	s.clock.Advance(time.Minute)

	_, err := s.svc.MarkInProgress(s.ctx, admin, c.ID().String())
	s.True(apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	found, err := s.svc.Get(s.ctx, admin, c.ID().String())
	s.Require().NoError(err)
	s.Equal(domain.ConsultationPending, found.Status())
	s.Equal(t0, found.UpdatedAt())
	s.Equal(1, s.historyCount(c.ID()))
}

func (s *ConsultationServiceSuite) TestLifecycleAndDispute() {
	c := s.create("high")
	id := c.ID().String()

	_, err := s.svc.Assign(s.ctx, admin, id, "prov-1")
	s.Require().NoError(err)
	s.clock.Advance(time.Hour)
	_, err = s.svc.MarkInProgress(s.ctx, provider, id)
	s.Require().NoError(err)
	_, err = s.svc.RequestAdditionalInfo(s.ctx, provider, id, "Please upload the signed contract")
	s.Require().NoError(err)
	_, err = s.svc.MarkInProgress(s.ctx, provider, id)
	s.Require().NoError(err)
	responded, err := s.svc.MarkResponded(s.ctx, provider, id)
	s.Require().NoError(err)
	s.Equal(domain.ConsultationResponded, responded.Status())
	s.NotNil(responded.RespondedAt())

	completed, err := s.svc.Complete(s.ctx, provider, id)
	s.Require().NoError(err)
	s.Equal(domain.ConsultationCompleted, completed.Status())

	s.Run("strangers cannot dispute", func() {
		_, err := s.svc.Dispute(s.ctx, stranger, id, "The advice was wrong")
		s.True(apperrors.HasCode(err, apperrors.CodeForbidden))
	})

	s.clock.Advance(47*time.Hour + 59*time.Minute)
	disputed, err := s.svc.Dispute(s.ctx, subscriber, id, "The advice ignored the governing law clause")
	s.Require().NoError(err)
	s.Equal(domain.ConsultationDisputed, disputed.Status())

	latest, err := s.svc.LatestHistory(s.ctx, subscriber, id)
	s.Require().NoError(err)
	s.Equal("disputed", latest.ToStatus())
	s.Equal(domain.Reason("The advice ignored the governing law clause"), *latest.Reason())
	// create, assign, start, request info, start, respond, complete, dispute
	s.Equal(8, s.historyCount(c.ID()))
}

func (s *ConsultationServiceSuite) TestDisputeWindowExpired() {
	c := s.create("normal")
	id := c.ID().String()
	_, err := s.svc.Assign(s.ctx, admin, id, "prov-1")
	s.Require().NoError(err)
	_, err = s.svc.Complete(s.ctx, provider, id)
	s.Require().NoError(err)

	s.clock.Advance(48*time.Hour + time.Minute)
	_, err = s.svc.Dispute(s.ctx, subscriber, id, "Too late but trying anyway")
	s.True(apperrors.HasCode(err, apperrors.CodeDisputeWindowExpired))

	found, err := s.svc.Get(s.ctx, subscriber, id)
	s.Require().NoError(err)
	s.Equal(domain.ConsultationCompleted, found.Status())
	s.Equal(3, s.historyCount(c.ID()))
}

func (s *ConsultationServiceSuite) TestCancelKeepsReasonInHistory() {
	c := s.create("low")
	cancelled, err := s.svc.Cancel(s.ctx, subscriber, c.ID().String(), "Resolved with the employer directly")
	s.Require().NoError(err)
	s.Equal(domain.ConsultationCancelled, cancelled.Status())
	s.NotNil(cancelled.ClosedAt())

	latest, err := s.svc.LatestHistory(s.ctx, subscriber, c.ID().String())
	s.Require().NoError(err)
	s.Equal(domain.Reason("Resolved with the employer directly"), *latest.Reason())

	changed := s.dispatcher.ofType(events.EventRequestStatusChanged)
	s.Require().Len(changed, 1)
	s.Equal("Resolved with the employer directly", changed[0].Payload.(events.StatusChangedPayload).Reason)

	_, err = s.svc.Cancel(s.ctx, subscriber, c.ID().String(), "")
	s.True(apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func (s *ConsultationServiceSuite) TestAutoAssign() {
	s.Run("match", func() {
		matcher := new(matcherMock)
		matcher.On("Match", mock.Anything, mock.MatchedBy(func(c domain.MatchCriteria) bool {
			return c.Kind == domain.AggregateConsultation && c.Category == "employment" && c.Region == "riyadh"
		})).Return(domain.ProviderID("prov-2"), true, nil).Once()
		svc := s.build(service.ConsultationDependencies{Matcher: matcher})

		c := s.create("normal")
		assigned, ok, err := svc.AutoAssign(s.ctx, admin, c.ID().String(), "riyadh")
		s.Require().NoError(err)
		s.True(ok)
		s.Equal(domain.ProviderID("prov-2"), *assigned.AssignedProviderID())
		s.True(s.dispatcher.ofType(events.EventRequestAssigned)[0].Payload.(events.AssignedPayload).AutoAssigned)
		matcher.AssertExpectations(s.T())
	})

	s.Run("no match leaves the request pending", func() {
		matcher := new(matcherMock)
		matcher.On("Match", mock.Anything, mock.Anything).Return(domain.ProviderID(""), false, nil).Once()
		svc := s.build(service.ConsultationDependencies{Matcher: matcher})

		c := s.create("normal")
		current, ok, err := svc.AutoAssign(s.ctx, admin, c.ID().String(), "")
		s.Require().NoError(err)
		s.False(ok)
		s.Equal(domain.ConsultationPending, current.Status())
		s.Equal(1, s.historyCount(c.ID()))
	})

	s.Run("matcher errors surface", func() {
		matcher := new(matcherMock)
		matcher.On("Match", mock.Anything, mock.Anything).Return(domain.ProviderID(""), false, errors.New("directory offline")).Once()
		svc := s.build(service.ConsultationDependencies{Matcher: matcher})

		c := s.create("normal")
		_, _, err := svc.AutoAssign(s.ctx, admin, c.ID().String(), "")
		s.True(apperrors.HasCode(err, apperrors.CodeInternal))
	})
}

func (s *ConsultationServiceSuite) TestCollaboratorFailuresAreSwallowed() {
	membership := new(membershipMock)
	membership.On("EnsureQuota", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	membership.On("RecordUsage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("billing unavailable"))
	s.dispatcher.err = errors.New("broker down")
	svc := s.build(service.ConsultationDependencies{Membership: membership})

	c, err := svc.Create(s.ctx, subscriber, consultationInput("normal"))
	s.Require().NoError(err)
	s.Equal(domain.ConsultationPending, c.Status())
	s.Equal(1, s.logs.FilterMessage("publish event failed").Len())
	s.Equal(1, s.logs.FilterMessage("record usage failed").Len())
	membership.AssertExpectations(s.T())

	s.Run("failing notification handler", func() {
		dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
		dispatcher.Subscribe(events.EventRequestStatusChanged, func(context.Context, events.Event) error {
			return errors.New("smtp down")
		})
		svc := s.build(service.ConsultationDependencies{Dispatcher: dispatcher})

		assigned, err := svc.Assign(s.ctx, admin, c.ID().String(), "prov-1")
		s.Require().NoError(err)
		s.Equal(domain.ConsultationAssigned, assigned.Status())
	})
}

func (s *ConsultationServiceSuite) TestNestedInOuterTransaction() {
	c := s.create("normal")
	s.dispatcher.reset()

	err := s.uow.Transaction(s.ctx, func(ctx context.Context, _ repository.Repositories) error {
		_, err := s.svc.Assign(ctx, admin, c.ID().String(), "prov-1")
		s.Require().NoError(err)
		return errors.New("outer step failed")
	})
	s.Require().Error(err)

	found, err := s.svc.Get(s.ctx, admin, c.ID().String())
	s.Require().NoError(err)
	s.Equal(domain.ConsultationPending, found.Status())
	s.Equal(1, s.historyCount(c.ID()))
	s.Empty(s.dispatcher.types())
}

func (s *ConsultationServiceSuite) TestNestedEventsWaitForOuterCommit() {
	c := s.create("normal")
	s.dispatcher.reset()

	err := s.uow.Transaction(s.ctx, func(ctx context.Context, _ repository.Repositories) error {
		_, err := s.svc.Assign(ctx, admin, c.ID().String(), "prov-1")
		s.Require().NoError(err)
		s.Empty(s.dispatcher.types())
		return nil
	})
	s.Require().NoError(err)

	s.Len(s.dispatcher.ofType(events.EventRequestAssigned), 1)
	s.Len(s.dispatcher.ofType(events.EventRequestStatusChanged), 1)
}

func (s *ConsultationServiceSuite) TestAccessControl() {
	c := s.create("normal")
	id := c.ID().String()

	_, err := s.svc.Create(s.ctx, provider, consultationInput("normal"))
	s.True(apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = s.svc.Create(s.ctx, service.Actor{}, consultationInput("normal"))
	s.True(apperrors.HasCode(err, apperrors.CodeUnauthorized))

	_, err = s.svc.Get(s.ctx, stranger, id)
	s.True(apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = s.svc.Assign(s.ctx, subscriber, id, "prov-1")
	s.True(apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = s.svc.Assign(s.ctx, admin, id, "prov-1")
	s.Require().NoError(err)

	_, err = s.svc.MarkInProgress(s.ctx, service.Actor{ID: "prov-9", Role: service.RoleProvider}, id)
	s.True(apperrors.HasCode(err, apperrors.CodeForbidden))
	s.Equal(2, s.historyCount(c.ID()))

	_, err = s.svc.Get(s.ctx, provider, id)
	s.Require().NoError(err)

	s.Run("listings are scoped to the caller", func() {
		_, err := s.svc.Create(s.ctx, admin, service.RequestInput{
			SubscriberID: "sub-2",
			Urgency:      "low",
			Title:        "Lease termination",
			Description:  "Landlord is withholding the deposit after move out.",
			Category:     "property",
		})
		s.Require().NoError(err)

		mine, err := s.svc.List(s.ctx, subscriber, service.ListInput{SubscriberID: "sub-2"})
		s.Require().NoError(err)
		s.Require().Len(mine, 1)
		s.Equal(c.ID(), mine[0].ID())

		all, err := s.svc.List(s.ctx, admin, service.ListInput{})
		s.Require().NoError(err)
		s.Len(all, 2)

		assignedToMe, err := s.svc.List(s.ctx, provider, service.ListInput{Statuses: []string{"assigned"}})
		s.Require().NoError(err)
		s.Len(assignedToMe, 1)

		_, err = s.svc.List(s.ctx, admin, service.ListInput{Statuses: []string{"archived"}})
		s.True(apperrors.HasCode(err, apperrors.CodeValidation))
	})
}

func (s *ConsultationServiceSuite) TestRateDoesNotWriteHistory() {
	c := s.create("normal")
	id := c.ID().String()
	_, err := s.svc.Assign(s.ctx, admin, id, "prov-1")
	s.Require().NoError(err)
	_, err = s.svc.Complete(s.ctx, subscriber, id)
	s.Require().NoError(err)

	rated, err := s.svc.Rate(s.ctx, subscriber, id, 5, "Clear and fast")
	s.Require().NoError(err)
	s.Equal(domain.Rating(5), *rated.Rating())
	s.Equal(3, s.historyCount(c.ID()))

	_, err = s.svc.Rate(s.ctx, subscriber, id, 4, "")
	s.True(apperrors.HasCode(err, apperrors.CodeConflictingState))

	_, err = s.svc.Rate(s.ctx, subscriber, id, 6, "")
	s.True(apperrors.HasCode(err, apperrors.CodeValidation))
}

func (s *ConsultationServiceSuite) TestOverrideSLAAndDelete() {
	c := s.create("normal")
	id := c.ID().String()

	deadline := t0.Add(30 * time.Minute)
	overridden, err := s.svc.OverrideSLA(s.ctx, admin, id, &deadline, "breached")
	s.Require().NoError(err)
	s.Equal(deadline, *overridden.SLADeadline())
	s.Equal(domain.SLABreached, overridden.SLAStatus())
	s.Len(s.dispatcher.ofType(events.EventRequestSLABreached), 1)

	_, err = s.svc.OverrideSLA(s.ctx, admin, id, nil, "late")
	s.True(apperrors.HasCode(err, apperrors.CodeValidation))

	s.Require().NoError(s.svc.Delete(s.ctx, admin, id))
	_, err = s.svc.Get(s.ctx, admin, id)
	s.True(apperrors.HasCode(err, apperrors.CodeNotFound))
	s.True(apperrors.HasCode(s.svc.Delete(s.ctx, admin, id), apperrors.CodeNotFound))
}

func (s *ConsultationServiceSuite) TestExternalSLAPolicyOverridesDefault() {
	deadline := t0.Add(90 * time.Minute)
	svc := s.build(service.ConsultationDependencies{
		SLAPolicies: fixedSLAPolicy{deadline: deadline, status: domain.SLAAtRisk},
	})

	c, err := svc.Create(s.ctx, subscriber, consultationInput("low"))
	s.Require().NoError(err)
	s.Equal(deadline, *c.SLADeadline())
	s.Equal(domain.SLAAtRisk, c.SLAStatus())
}

func (s *ConsultationServiceSuite) TestUnknownIDs() {
	_, err := s.svc.Get(s.ctx, admin, "not-a-uuid")
	s.True(apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = s.svc.Assign(s.ctx, admin, domain.NewRequestID().String(), "prov-1")
	s.True(apperrors.HasCode(err, apperrors.CodeNotFound))
}
