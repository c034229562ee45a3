package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/legal-service/internal/config"
	"github.com/spec-kit/legal-service/internal/domain"
	"github.com/spec-kit/legal-service/internal/events"
	"github.com/spec-kit/legal-service/internal/repository/memory"
	"github.com/spec-kit/legal-service/internal/service"
)

func seed(id string, available bool, rating float64, kinds ...domain.AggregateType) memory.ProviderSeed {
	return memory.ProviderSeed{
		Profile: domain.ProviderProfile{ID: domain.ProviderID(id), DisplayName: id, Available: available, Rating: rating},
		Kinds:   kinds,
	}
}

func TestWorkloadMatcher(t *testing.T) {
	ctx := context.Background()
	criteria := domain.MatchCriteria{Kind: domain.AggregateConsultation, Category: "employment"}

	t.Run("prefers the least loaded provider", func(t *testing.T) {
		uow := memory.NewUnitOfWork(time.Second)
		directory := memory.NewProviderDirectory(uow,
			seed("prov-a", true, 4.9),
			seed("prov-b", true, 3.0),
		)
		svc := service.NewConsultationService(service.ConsultationDependencies{
			UnitOfWork: uow,
			Numbers:    memory.NewNumberSequence(),
			Clock:      newFakeClock(t0).Now,
		})
		c, err := svc.Create(ctx, subscriber, consultationInput("normal"))
		require.NoError(t, err)
		_, err = svc.Assign(ctx, admin, c.ID().String(), "prov-a")
		require.NoError(t, err)

		matcher := service.NewWorkloadMatcher(directory, 0)
		id, ok, err := matcher.Match(ctx, criteria)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, domain.ProviderID("prov-b"), id)
	})

	t.Run("breaks ties by rating then id", func(t *testing.T) {
		directory := memory.NewProviderDirectory(nil,
			seed("prov-c", true, 4.0),
			seed("prov-b", true, 4.5),
			seed("prov-a", true, 4.5),
		)
		id, ok, err := service.NewWorkloadMatcher(directory, 0).Match(ctx, criteria)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, domain.ProviderID("prov-a"), id)
	})

	t.Run("skips unavailable, full and out of scope providers", func(t *testing.T) {
		uow := memory.NewUnitOfWork(time.Second)
		directory := memory.NewProviderDirectory(uow,
			seed("prov-off", false, 5),
			seed("prov-lit", true, 5, domain.AggregateLitigation),
			seed("prov-full", true, 5),
		)
		svc := service.NewConsultationService(service.ConsultationDependencies{
			UnitOfWork: uow,
			Numbers:    memory.NewNumberSequence(),
			Clock:      newFakeClock(t0).Now,
		})
		c, err := svc.Create(ctx, subscriber, consultationInput("normal"))
		require.NoError(t, err)
		_, err = svc.Assign(ctx, admin, c.ID().String(), "prov-full")
		require.NoError(t, err)

		_, ok, err := service.NewWorkloadMatcher(directory, 1).Match(ctx, criteria)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("wired into auto assignment", func(t *testing.T) {
		uow := memory.NewUnitOfWork(time.Second)
		directory := memory.NewProviderDirectory(uow, seed("prov-lit", true, 4.2, domain.AggregateLitigation))
		svc := service.NewLitigationService(service.LitigationDependencies{
			UnitOfWork: uow,
			Numbers:    memory.NewNumberSequence(),
			Matcher:    service.NewWorkloadMatcher(directory, 0),
			Clock:      newFakeClock(t0).Now,
		})
		l, err := svc.Create(ctx, subscriber, litigationInput("normal"))
		require.NoError(t, err)

		assigned, ok, err := svc.AutoAssign(ctx, admin, l.ID().String(), "")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, domain.ProviderID("prov-lit"), *assigned.AssignedProviderID())
	})
}

func TestNotificationServiceLogsEvents(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	notifier := service.NewNotificationService(dispatcher, zap.New(core), config.NotificationConfig{
		EmailFrom:  "noreply@example.com",
		WebhookURL: "https://hooks.example.com/legal",
	})
	notifier.RegisterHandlers()

	svc := service.NewConsultationService(service.ConsultationDependencies{
		UnitOfWork: memory.NewUnitOfWork(time.Second),
		Numbers:    memory.NewNumberSequence(),
		Dispatcher: dispatcher,
		Clock:      newFakeClock(t0).Now,
	})
	c, err := svc.Create(context.Background(), subscriber, consultationInput("normal"))
	require.NoError(t, err)
	_, err = svc.Assign(context.Background(), admin, c.ID().String(), "prov-1")
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("RequestCreated").Len())
	assert.Equal(t, 1, logs.FilterMessage("RequestStatusChanged").Len())
	assert.Equal(t, 1, logs.FilterMessage("RequestAssigned").Len())
	assert.Equal(t, 2, logs.FilterMessage("email notification queued").Len())
	assert.Equal(t, 2, logs.FilterMessage("webhook notification queued").Len())
}
