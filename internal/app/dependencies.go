package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restbucks/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/restbucks/internal/health"
	"github.com/vladislavdragonenkov/restbucks/internal/storage/memory"
	"github.com/vladislavdragonenkov/restbucks/internal/storage/postgres"
)

// runtimeDependencies: хранилища, выбранные по StorageDriver.
type runtimeDependencies struct {
	repo         domain.OrderRepository
	outboxRepo   domain.OutboxRepository
	timelineRepo domain.TimelineRepository

	storageChecker healthcheck.Checker
	closeFn        func() error
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		logger.Info("using in-memory storage")
		return &runtimeDependencies{
			repo:         memory.NewOrderRepository(),
			outboxRepo:   memory.NewOutboxRepository(),
			timelineRepo: memory.NewTimelineRepository(),
			storageChecker: healthcheck.NewSimpleChecker("storage", func(context.Context) error {
				return nil
			}),
		}, nil
	case StorageDriverPostgres:
		return initPostgresDependencies(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func initPostgresDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("postgres storage driver requires dsn")
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	if cfg.PostgresAutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		state, err := store.MigrationStatus(ctx)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("read migration status: %w", err)
		}
		logger.WithFields(log.Fields{
			"schema_version": state.Version,
			"applied":        state.Applied,
		}).Info("postgres schema is up to date")
	}

	logger.Info("using postgres storage")
	return &runtimeDependencies{
		repo:           postgres.NewOrderRepository(store),
		outboxRepo:     postgres.NewOutboxRepository(store),
		timelineRepo:   postgres.NewTimelineRepository(store),
		storageChecker: healthcheck.NewPingChecker("storage", store, 0),
		closeFn:        store.Close,
	}, nil
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	if d == nil || d.closeFn == nil {
		return
	}
	if err := d.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
	}
}
