package service

import (
	"context"
	"time"

	"github.com/spec-kit/legal-service/internal/domain"
	"github.com/spec-kit/legal-service/internal/events"
)

// MembershipService guards subscription quotas. EnsureQuota runs before any
// persistence; RecordUsage runs after commit and is best effort.
type MembershipService interface {
	EnsureQuota(ctx context.Context, subscriber domain.SubscriberID, kind domain.AggregateType) error
	RecordUsage(ctx context.Context, subscriber domain.SubscriberID, kind domain.AggregateType, requestID domain.RequestID) error
}

// SLAPolicyService lets an external policy engine dictate the deadline of a
// new request. ok=false means the default computation stands.
type SLAPolicyService interface {
	Resolve(ctx context.Context, kind domain.AggregateType, urgency domain.Urgency, submittedAt time.Time) (deadline time.Time, status domain.SLAStatus, ok bool, err error)
}

// NumberGenerator allocates human readable request numbers.
type NumberGenerator interface {
	Next(ctx context.Context, prefix string, now time.Time) (domain.HumanNumber, error)
}

// ProviderDirectory lists providers eligible for a request.
type ProviderDirectory interface {
	ListCandidates(ctx context.Context, criteria domain.MatchCriteria) ([]domain.ProviderProfile, error)
}

// ProviderMatcher picks a provider for a request. ok=false means no match.
type ProviderMatcher interface {
	Match(ctx context.Context, criteria domain.MatchCriteria) (domain.ProviderID, bool, error)
}

// NoopMembership accepts every request and records nothing.
type NoopMembership struct{}

func (NoopMembership) EnsureQuota(context.Context, domain.SubscriberID, domain.AggregateType) error {
	return nil
}

func (NoopMembership) RecordUsage(context.Context, domain.SubscriberID, domain.AggregateType, domain.RequestID) error {
	return nil
}

// Role is the caller's role as established by authentication.
type Role string

const (
	RoleSubscriber Role = "subscriber"
	RoleProvider   Role = "provider"
	RoleAdmin      Role = "admin"
	RoleSystem     Role = "system"
)

// Actor is the caller of a use case.
type Actor struct {
	ID   string
	Role Role
}

// SystemActor is used by background jobs.
func SystemActor() Actor {
	return Actor{Role: RoleSystem}
}

func (a Actor) privileged() bool {
	return a.Role == RoleAdmin || a.Role == RoleSystem
}

func (a Actor) changedBy() *domain.ActorID {
	id, err := domain.NewActorID(a.ID)
	if err != nil {
		return nil
	}
	return &id
}

func (a Actor) event() events.Actor {
	return events.Actor{Role: string(a.Role), ID: a.ID}
}

func utcNow() time.Time {
	return time.Now().UTC()
}
