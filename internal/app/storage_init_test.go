package app

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/restbucks/internal/health"
)

func TestInitRuntimeDependencies_Memory(t *testing.T) {
	t.Parallel()

	deps, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverMemory,
	}, log.WithField("test", "memory-storage"))
	if err != nil {
		t.Fatalf("initRuntimeDependencies(memory) failed: %v", err)
	}
	if deps.repo == nil {
		t.Fatal("repo should not be nil for memory storage")
	}
	if deps.outboxRepo == nil {
		t.Fatal("outboxRepo should not be nil for memory storage")
	}
	if deps.timelineRepo == nil {
		t.Fatal("timelineRepo should not be nil for memory storage")
	}
	if deps.closeFn != nil {
		t.Fatal("memory storage has nothing to close")
	}
	if check := deps.storageChecker.Check(context.Background()); check.Status != healthcheck.StatusHealthy {
		t.Fatalf("memory storage must be healthy, got %+v", check)
	}

	// close на пустом closeFn не должен паниковать
	deps.close(log.WithField("test", "memory-storage"))
}

func TestInitRuntimeDependencies_IndependentInstances(t *testing.T) {
	t.Parallel()

	logger := log.WithField("test", "independent")
	first, err := initRuntimeDependencies(context.Background(), Config{StorageDriver: StorageDriverMemory}, logger)
	if err != nil {
		t.Fatal(err)
	}
	second, err := initRuntimeDependencies(context.Background(), Config{StorageDriver: StorageDriverMemory}, logger)
	if err != nil {
		t.Fatal(err)
	}

	order := newTestOrder()
	if err := first.repo.Create(context.Background(), order); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := second.repo.FindByID(context.Background(), order.ID); err == nil {
		t.Fatal("repositories must not share state")
	}
}

func TestInitRuntimeDependencies_PostgresRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverPostgres,
	}, log.WithField("test", "postgres-missing-dsn"))
	if err == nil {
		t.Fatal("expected error when postgres driver is selected without DSN")
	}
}

func TestInitRuntimeDependencies_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: "sqlite",
	}, log.WithField("test", "unsupported-driver"))
	if err == nil {
		t.Fatal("expected error for unsupported storage driver")
	}
}
