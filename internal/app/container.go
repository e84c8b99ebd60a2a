// Package app wires repositories, services and transports for the binaries.
package app

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/notify"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	"github.com/spec-kit/helpdesk/internal/service"
)

// Repositories is the storage backend chosen at startup.
type Repositories struct {
	Tx            repository.TxManager
	Tickets       repository.TicketRepository
	Audit         repository.AuditRepository
	Assignments   repository.AssignmentRepository
	Rules         repository.RuleRepository
	Comments      repository.CommentRepository
	Attachments   repository.AttachmentRepository
	Notifications repository.NotificationRepository
	Users         repository.UserRepository
	Catalog       repository.CatalogRepository
}

// PostgresRepositories builds repositories over a pgx pool.
func PostgresRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Tx:            repository.NewPgTxManager(pool),
		Tickets:       repository.NewTicketRepository(pool),
		Audit:         repository.NewAuditRepository(pool),
		Assignments:   repository.NewAssignmentRepository(pool),
		Rules:         repository.NewRuleRepository(pool),
		Comments:      repository.NewCommentRepository(pool),
		Attachments:   repository.NewAttachmentRepository(pool),
		Notifications: repository.NewNotificationRepository(pool),
		Users:         repository.NewUserRepository(pool),
		Catalog:       repository.NewCatalogRepository(pool),
	}
}

// MemoryRepositories builds repositories over an in-memory store.
func MemoryRepositories(store *memory.Store) Repositories {
	return Repositories{
		Tx:            store,
		Tickets:       store.Tickets(),
		Audit:         store.Audit(),
		Assignments:   store.Assignments(),
		Rules:         store.Rules(),
		Comments:      store.Comments(),
		Attachments:   store.Attachments(),
		Notifications: store.Notifications(),
		Users:         store.Users(),
		Catalog:       store.Catalog(),
	}
}

// Container holds the wired services.
type Container struct {
	Config        *config.Config
	Repos         Repositories
	Logger        *zap.Logger
	Metrics       *observability.Metrics
	Dispatcher    events.Dispatcher
	Notifier      notify.Dispatcher
	Tokens        *auth.TokenManager
	Audit         *service.AuditRecorder
	AutoAssign    *service.AutoAssigner
	Critical      *service.CriticalClassifier
	Tickets       *service.TicketService
	Assignments   *service.AssignmentService
	SLA           *service.SLAService
	Alerts        *service.AlertService
	Notifications *service.NotificationService
	Locker        persistence.Locker
}

// Options tweak container construction; tests inject a clock and notifier.
type Options struct {
	Redis    *persistence.Redis
	Metrics  *observability.Metrics
	Notifier notify.Dispatcher
	Clock    func() time.Time
}

// NewContainer wires every service over repos.
func NewContainer(cfg *config.Config, repos Repositories, logger *zap.Logger, opts Options) *Container {
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = buildNotifier(cfg, repos, opts.Redis, logger)
	}

	dispatcher := events.NewInMemoryDispatcher()
	audit := service.NewAuditRecorder(repos.Audit)
	autoAssign := service.NewAutoAssigner(service.AutoAssignDependencies{
		Tx:             repos.Tx,
		RuleRepo:       repos.Rules,
		TicketRepo:     repos.Tickets,
		AssignmentRepo: repos.Assignments,
		UserRepo:       repos.Users,
		CatalogRepo:    repos.Catalog,
		Audit:          audit,
		Logger:         logger.Named("autoassign"),
		Clock:          opts.Clock,
	})
	critical := service.NewCriticalClassifier(service.CriticalDependencies{
		UserRepo:    repos.Users,
		CatalogRepo: repos.Catalog,
		Notifier:    notifier,
		Weights:     cfg.Critical,
		Metrics:     opts.Metrics,
		Logger:      logger.Named("critical"),
	})

	c := &Container{
		Config:     cfg,
		Repos:      repos,
		Logger:     logger,
		Metrics:    opts.Metrics,
		Dispatcher: dispatcher,
		Notifier:   notifier,
		Tokens:     auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTLMinutes),
		Audit:      audit,
		AutoAssign: autoAssign,
		Critical:   critical,
		Locker:     opts.Redis.NewLocker(logger.Named("lock")),
	}
	c.Tickets = service.NewTicketService(service.TicketDependencies{
		Tx:             repos.Tx,
		TicketRepo:     repos.Tickets,
		CommentRepo:    repos.Comments,
		AttachmentRepo: repos.Attachments,
		AssignmentRepo: repos.Assignments,
		CatalogRepo:    repos.Catalog,
		Audit:          audit,
		AutoAssign:     autoAssign,
		Critical:       critical,
		Dispatcher:     dispatcher,
		Metrics:        opts.Metrics,
		Logger:         logger.Named("tickets"),
		Attachments:    cfg.Attachment,
		Clock:          opts.Clock,
	})
	c.Assignments = service.NewAssignmentService(service.AssignmentDependencies{
		Tx:             repos.Tx,
		TicketRepo:     repos.Tickets,
		UserRepo:       repos.Users,
		AssignmentRepo: repos.Assignments,
		Audit:          audit,
		Critical:       critical,
		Dispatcher:     dispatcher,
		Logger:         logger.Named("assignments"),
		Clock:          opts.Clock,
	})
	c.SLA = service.NewSLAService(service.SLADependencies{
		TicketRepo:  repos.Tickets,
		CatalogRepo: repos.Catalog,
		UserRepo:    repos.Users,
		Audit:       audit,
		Checkpoint:  opts.Redis.NewCheckpoint(cfg.SLA.CheckpointKey, 24*time.Hour),
		Notifier:    notifier,
		Dispatcher:  dispatcher,
		Metrics:     opts.Metrics,
		Logger:      logger.Named("sla"),
		ChunkSize:   cfg.SLA.SweepChunkSize,
		Clock:       opts.Clock,
	})
	c.Alerts = service.NewAlertService(repos.Tickets, repos.Catalog, opts.Clock)
	c.Notifications = service.NewNotificationService(dispatcher, notifier, opts.Metrics, logger.Named("notify"))
	c.Notifications.RegisterHandlers()
	return c
}

func buildNotifier(cfg *config.Config, repos Repositories, redis *persistence.Redis, logger *zap.Logger) notify.Dispatcher {
	dispatchers := notify.Multi{notify.NewStoreDispatcher(repos.Notifications)}
	if redis.Enabled() && cfg.Notification.RedisChannel != "" {
		dispatchers = append(dispatchers, notify.NewRedisDispatcher(redis.Client, cfg.Notification.RedisChannel))
		logger.Info("notification fan-out enabled", zap.String("channel", cfg.Notification.RedisChannel))
	}
	return dispatchers
}

// HTTPDeps are the infrastructure handles the HTTP app reports on.
type HTTPDeps struct {
	Postgres *persistence.Postgres
	Redis    *persistence.Redis
}

// NewHTTPApp builds the fiber app with middlewares and routes.
func (c *Container) NewHTTPApp(deps HTTPDeps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               c.Config.App.Name,
		DisableStartupMessage: true,
	})
	sweepLock := handlers.SweepLock{Locker: c.Locker, Key: c.Config.SLA.LockKey, TTL: c.Config.SLA.LockTTL()}
	httptransport.RegisterMiddlewares(app, c.Logger.Named("http"), c.Metrics, c.Config.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(c.Config.App.Name, c.Config.App.Version, deps.Postgres, deps.Redis),
		Tickets:        handlers.NewTicketsHandler(c.Tickets, c.Assignments),
		SLA:            handlers.NewSLAHandler(c.SLA, c.Alerts, c.Config.SLA.WarnRatio, sweepLock),
		Rules:          handlers.NewRulesHandler(c.AutoAssign),
		AuthMiddleware: auth.NewAuthMiddleware(c.Tokens, c.Repos.Users),
		Metrics:        c.Metrics,
	})
	return app
}
