package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/legal-service/internal/api/http"
	"github.com/spec-kit/legal-service/internal/api/http/handlers"
	"github.com/spec-kit/legal-service/internal/auth"
	"github.com/spec-kit/legal-service/internal/config"
	"github.com/spec-kit/legal-service/internal/events"
	"github.com/spec-kit/legal-service/internal/observability"
	"github.com/spec-kit/legal-service/internal/persistence"
	"github.com/spec-kit/legal-service/internal/repository"
	"github.com/spec-kit/legal-service/internal/repository/memory"
	"github.com/spec-kit/legal-service/internal/service"
	"github.com/spec-kit/legal-service/internal/worker"
)

const sweepLockKey = "legal:lock:sla-sweep"

// Options lets callers replace infrastructure, mostly in tests.
type Options struct {
	Registry  *prometheus.Registry
	Clock     func() time.Time
	Providers []memory.ProviderSeed
}

// Container holds the wired application.
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	Registry      *prometheus.Registry
	Metrics       *observability.Metrics
	Postgres      *persistence.Postgres
	Redis         *persistence.Redis
	Kafka         *events.KafkaPublisher
	Dispatcher    events.Dispatcher
	Tokens        *auth.TokenManager
	Consultations *service.ConsultationService
	Litigation    *service.LitigationService
	SLA           *service.SLAService
	Sweeper       *worker.SLASweeper
}

// New connects to the configured infrastructure and wires the services.
// Postgres, Redis and Kafka are optional; without them the service runs on
// in-process stores, which suits development and tests.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*Container, error) {
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	c := &Container{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Metrics:  observability.NewMetrics(registry),
	}

	policies, err := config.LoadSLAPolicies(cfg.SLA)
	if err != nil {
		return nil, err
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	c.Postgres = pg

	var (
		uow       repository.UnitOfWork
		directory service.ProviderDirectory
	)
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
				c.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		uow = repository.NewUnitOfWork(pg.Pool, cfg.UnitOfWork.TxTimeout())
		directory = repository.NewProviderRepository(pg.Pool)
	} else {
		memUOW := memory.NewUnitOfWork(cfg.UnitOfWork.TxTimeout())
		uow = memUOW
		directory = memory.NewProviderDirectory(memUOW, opts.Providers...)
	}

	c.Redis = persistence.NewRedis(cfg.Redis, logger)
	var (
		numbers service.NumberGenerator = memory.NewNumberSequence()
		lock    worker.Locker
	)
	if c.Redis.Enabled() {
		numbers = persistence.NewRedisNumberSequence(c.Redis.Client)
		lock = persistence.NewRedisLock(c.Redis.Client, sweepLockKey)
	}

	c.Dispatcher = events.NewInMemoryDispatcher(logger)
	if cfg.Kafka.Enabled() {
		c.Kafka, err = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, nil, logger.Named("kafka"))
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
	}
	notifier := service.NewNotificationService(c.Dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(c.Dispatcher, notifier, c.Kafka)

	matcher := service.NewWorkloadMatcher(directory, cfg.Assignment.MaxActivePerProvider)
	c.Consultations = service.NewConsultationService(service.ConsultationDependencies{
		UnitOfWork: uow,
		Numbers:    numbers,
		Matcher:    matcher,
		Policy:     policies.Consultation,
		Dispatcher: c.Dispatcher,
		Logger:     logger.Named("consultations"),
		Metrics:    c.Metrics,
		Clock:      opts.Clock,
	})
	c.Litigation = service.NewLitigationService(service.LitigationDependencies{
		UnitOfWork: uow,
		Numbers:    numbers,
		Matcher:    matcher,
		Policy:     policies.Litigation,
		Dispatcher: c.Dispatcher,
		Logger:     logger.Named("litigation"),
		Metrics:    c.Metrics,
		Clock:      opts.Clock,
	})
	c.SLA = service.NewSLAService(service.SLADependencies{
		UnitOfWork:         uow,
		ConsultationPolicy: policies.Consultation,
		LitigationPolicy:   policies.Litigation,
		Dispatcher:         c.Dispatcher,
		Logger:             logger.Named("sla"),
		Metrics:            c.Metrics,
		Clock:              opts.Clock,
	})
	c.Sweeper = worker.NewSLASweeper(c.SLA, lock, worker.SLASweeperConfig{
		Interval: cfg.SLA.SweepInterval(),
		LockTTL:  cfg.SLA.SweepLockTTL(),
		Timeout:  cfg.SLA.SweepTimeout(),
	}, logger.Named("sla-sweeper"))

	c.Tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTLMinutes)
	return c, nil
}

// HTTP builds the fiber application.
func (c *Container) HTTP() *fiber.App {
	server := fiber.New(fiber.Config{
		AppName:               c.Config.App.Name,
		DisableStartupMessage: true,
		ErrorHandler:          httptransport.ErrorHandler(c.Logger),
	})
	httptransport.RegisterMiddlewares(server, c.Logger, c.Metrics, c.Config.App.RequestTimeout())
	httptransport.RegisterRoutes(server, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(c.Config.App.Name, c.Config.App.Version, c.Postgres, c.Redis),
		Consultations:  handlers.NewConsultationsHandler(c.Consultations),
		Litigation:     handlers.NewLitigationHandler(c.Litigation),
		SLA:            handlers.NewSLAHandler(c.SLA),
		AuthMiddleware: auth.NewAuthMiddleware(c.Tokens),
		Gatherer:       c.Registry,
	})
	return server
}

// Close releases infrastructure in reverse order of acquisition.
func (c *Container) Close() {
	if c.Kafka != nil {
		if err := c.Kafka.Close(); err != nil {
			c.Logger.Warn("close kafka publisher", zap.Error(err))
		}
	}
	c.Redis.Close()
	c.Postgres.Close()
}
