package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/spec-kit/legal-service/internal/domain"
	"github.com/spec-kit/legal-service/internal/events"
	"github.com/spec-kit/legal-service/internal/service"
)

var (
	t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	admin      = service.Actor{ID: "admin-1", Role: service.RoleAdmin}
	subscriber = service.Actor{ID: "sub-1", Role: service.RoleSubscriber}
	stranger   = service.Actor{ID: "sub-2", Role: service.RoleSubscriber}
	provider   = service.Actor{ID: "prov-1", Role: service.RoleProvider}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingDispatcher keeps every published event and can be told to fail.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return d.err
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

func (d *recordingDispatcher) ofType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (d *recordingDispatcher) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = nil
}

type membershipMock struct {
	mock.Mock
}

func (m *membershipMock) EnsureQuota(ctx context.Context, subscriber domain.SubscriberID, kind domain.AggregateType) error {
	args := m.Called(ctx, subscriber, kind)
	return args.Error(0)
}

func (m *membershipMock) RecordUsage(ctx context.Context, subscriber domain.SubscriberID, kind domain.AggregateType, requestID domain.RequestID) error {
	args := m.Called(ctx, subscriber, kind, requestID)
	return args.Error(0)
}

type matcherMock struct {
	mock.Mock
}

func (m *matcherMock) Match(ctx context.Context, criteria domain.MatchCriteria) (domain.ProviderID, bool, error) {
	args := m.Called(ctx, criteria)
	return args.Get(0).(domain.ProviderID), args.Bool(1), args.Error(2)
}

type fixedSLAPolicy struct {
	deadline time.Time
	status   domain.SLAStatus
}

func (p fixedSLAPolicy) Resolve(context.Context, domain.AggregateType, domain.Urgency, time.Time) (time.Time, domain.SLAStatus, bool, error) {
	return p.deadline, p.status, true, nil
}

func consultationInput(urgency string) service.RequestInput {
	return service.RequestInput{
		Urgency:     urgency,
		Title:       "Employment contract review",
		Description: "Please review the non-compete clause in my employment contract.",
		Category:    "Employment",
	}
}

func litigationInput(urgency string) service.LitigationCreateInput {
	return service.LitigationCreateInput{
		RequestInput: service.RequestInput{
			Urgency:     urgency,
			Title:       "Unpaid invoice claim",
			Description: "Supplier refuses to pay three outstanding invoices totalling 40k.",
			Category:    "commercial",
		},
		CaseType:  "civil",
		CourtName: "Riyadh Commercial Court",
	}
}
