package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/app"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
)

// runtime holds the handles a command needs; close releases them.
type runtime struct {
	cfg       *config.Config
	logger    *zap.Logger
	pg        *persistence.Postgres
	redis     *persistence.Redis
	container *app.Container
}

func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	redis := persistence.NewRedis(cfg.Redis, logger)

	var repos app.Repositories
	if pg.Enabled() {
		repos = app.PostgresRepositories(pg.Pool)
	} else {
		store := memory.NewStore()
		app.SeedDemo(store)
		repos = app.MemoryRepositories(store)
	}
	return &runtime{
		cfg:       cfg,
		logger:    logger,
		pg:        pg,
		redis:     redis,
		container: app.NewContainer(cfg, repos, logger, app.Options{Redis: redis}),
	}, nil
}

func (r *runtime) close() {
	r.redis.Close()
	r.pg.Close()
	_ = r.logger.Sync()
}

func newSLACheckCmd() *cobra.Command {
	var (
		warnRatio float64
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "sla-check",
		Short: "Record SLA warnings and breaches for open tickets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			if !cmd.Flags().Changed("warn-ratio") {
				warnRatio = rt.cfg.SLA.WarnRatio
			}
			release, ok, err := rt.container.Locker.TryLock(cmd.Context(), rt.cfg.SLA.LockKey, rt.cfg.SLA.LockTTL())
			if err != nil {
				return fmt.Errorf("acquire sla lock: %w", err)
			}
			if !ok {
				return errors.New("another sla check is running")
			}
			defer release()

			result, err := rt.container.SLA.RunSLACheck(cmd.Context(), warnRatio, dryRun)
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("Warnings: %d | Breaches: %d", result.Warnings, result.Breaches)
			if dryRun {
				msg += " (dry-run)"
			}
			cmd.Println(msg)
			return nil
		},
	}
	cmd.Flags().Float64Var(&warnRatio, "warn-ratio", domain.DefaultWarnRatio, "Fraction of the SLA after which a warning is raised (0,1]")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute counts without writing audit entries or notifying")
	return cmd
}

func newDueSummaryCmd() *cobra.Command {
	var (
		within int
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "due-summary",
		Short: "Send technicians and admins a summary of tickets about to expire",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			summary, err := rt.container.SLA.ExpiringSummary(cmd.Context(), within, dryRun)
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("Tickets: %d | Recipients: %d", summary.Tickets, summary.Recipients)
			if dryRun {
				msg += " (dry-run)"
			}
			cmd.Println(msg)
			return nil
		},
	}
	cmd.Flags().IntVar(&within, "within-hours", 24, "Window in hours for tickets about to expire")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute the summary without notifying")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a directory user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			user, err := rt.container.Repos.Users.GetByID(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("load user %s: %w", userID, err)
			}
			if !user.Active {
				return fmt.Errorf("user %s is inactive", userID)
			}
			token, expiresAt, err := rt.container.Tokens.GenerateToken(user.ID, user.Role)
			if err != nil {
				return err
			}
			cmd.Println(token)
			cmd.PrintErrf("role %s, expires %s\n", user.Role, expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL migrations to the configured database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := observability.NewLogger(cfg.Logger)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			cfg.Postgres.RunMigrations = false
			pg, err := persistence.NewPostgres(cmd.Context(), cfg.Postgres, logger)
			if err != nil {
				return err
			}
			defer pg.Close()
			if !pg.Enabled() {
				return errors.New("POSTGRES_DSN is required")
			}
			return persistence.RunMigrations(cmd.Context(), pg.Pool, cfg.Postgres.MigrationsDir, logger)
		},
	}
}
