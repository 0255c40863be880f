// Command auditd runs the assessment ledger audit daemon: it connects the
// durable stores, wires the command and query handlers, and drives the
// periodic verification sweep over every anchored report.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/veritas-school/assessment-ledger/config"
	"github.com/veritas-school/assessment-ledger/internal/application/command"
	"github.com/veritas-school/assessment-ledger/internal/application/query"
	"github.com/veritas-school/assessment-ledger/internal/domain/competency"
	"github.com/veritas-school/assessment-ledger/internal/domain/ledger"
	"github.com/veritas-school/assessment-ledger/internal/domain/report"
	"github.com/veritas-school/assessment-ledger/internal/infrastructure/persistence/memory"
	"github.com/veritas-school/assessment-ledger/internal/infrastructure/persistence/postgres"
	"github.com/veritas-school/assessment-ledger/internal/infrastructure/persistence/redis"
	"github.com/veritas-school/assessment-ledger/internal/infrastructure/scheduler"
	"github.com/veritas-school/assessment-ledger/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "auditd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.App.Debug,
	}).With(
		logger.String("app", cfg.App.Name),
		logger.String("version", cfg.App.Version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting audit daemon",
		logger.String("environment", string(cfg.App.Environment)),
	)

	// Durable stores. Development without a DATABASE_URL falls back to the
	// in-memory stores so the daemon can run against an empty ledger.
	var (
		events  ledger.EventStore
		anchors report.AnchorStore
	)
	if cfg.Database.URL != "" {
		conn, err := postgres.NewConnection(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer conn.Close()

		if err := conn.Migrate(ctx); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}

		events = postgres.NewLedgerRepository(conn)
		anchors = postgres.NewAnchorRepository(conn)
		log.Info("postgres stores ready")
	} else {
		if cfg.IsProduction() {
			return fmt.Errorf("DATABASE_URL is required in production")
		}
		events = memory.NewLedgerStore()
		anchors = memory.NewAnchorStore()
		log.Warn("no DATABASE_URL set, using in-memory stores")
	}

	// Snapshot cache is optional; the read path recomputes on any miss.
	var snapshots *redis.CompetencyCache
	if !cfg.Redis.Disabled {
		cache, err := redis.NewCache(redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			log.Warn("redis unavailable, snapshot cache disabled", logger.Err(err))
		} else {
			defer cache.Close()
			snapshots = redis.NewCompetencyCache(cache, cfg.Redis.SnapshotTTL)
			log.Info("snapshot cache ready")
		}
	}

	var invalidator command.SnapshotInvalidator
	if snapshots != nil {
		invalidator = snapshots
	}

	appendEvent := command.NewAppendEvent(events, invalidator, log)
	verifyReport := query.NewVerifyReport(events, anchors, log)

	engine := competency.NewEngine(cfg.CPI.DriftWindow, cfg.CPI.DriftThreshold)
	computeCPI := query.NewComputeCPI(events, engine)

	if !cfg.Audit.Enabled {
		log.Info("verification sweep disabled, exiting")
		return nil
	}

	sweeper := scheduler.NewSweeper(anchors, verifyReport, appendEvent, scheduler.SweeperConfig{
		Interval:      cfg.Audit.SweepInterval,
		Timeout:       cfg.Audit.SweepTimeout,
		RecordResults: cfg.Audit.RecordResults,
	}, log).WithDriftCheck(computeCPI)

	sweeper.Run(ctx)

	log.Info("audit daemon stopped")
	return nil
}
