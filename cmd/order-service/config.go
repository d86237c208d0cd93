package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/restbucks/internal/app"
)

const (
	envGRPCAddr            = "RESTBUCKS_GRPC_ADDR"
	envMetricsAddr         = "RESTBUCKS_METRICS_ADDR"
	envStorageDriver       = "RESTBUCKS_STORAGE_DRIVER"
	envPostgresDSN         = "RESTBUCKS_POSTGRES_DSN"
	envPostgresAutoMigrate = "RESTBUCKS_POSTGRES_AUTO_MIGRATE"
	envKafkaBrokers        = "RESTBUCKS_KAFKA_BROKERS"
	envKafkaTopic          = "RESTBUCKS_KAFKA_TOPIC"
	envKafkaDLQTopic       = "RESTBUCKS_KAFKA_DLQ_TOPIC"
	envOutboxPollInterval  = "RESTBUCKS_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize     = "RESTBUCKS_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts   = "RESTBUCKS_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay    = "RESTBUCKS_OUTBOX_RETRY_DELAY"
	envSeedDemoOrders      = "RESTBUCKS_SEED_DEMO_ORDERS"
	envShutdownTimeout     = "RESTBUCKS_SHUTDOWN_TIMEOUT"
)

// envLookup совпадает по сигнатуре с os.LookupEnv и подменяется в тестах.
type envLookup func(key string) (string, bool)

// readConfig читает конфигурацию из окружения процесса.
func readConfig() (app.Config, []string) {
	return readConfigFromEnv(os.LookupEnv)
}

// readConfigFromEnv накладывает переменные окружения на app.DefaultConfig.
// Некорректные значения не прерывают запуск: остаётся значение по умолчанию,
// а в warnings добавляется описание проблемы.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	warn := func(key, raw string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s=%q ignored: %v", key, raw, err))
	}

	if v, ok := lookupTrimmed(lookup, envGRPCAddr); ok {
		cfg.GRPCAddr = v
	}
	if v, ok := lookupTrimmed(lookup, envMetricsAddr); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := lookupTrimmed(lookup, envStorageDriver); ok {
		cfg.StorageDriver = strings.ToLower(v)
	}
	if v, ok := lookupTrimmed(lookup, envPostgresDSN); ok {
		cfg.PostgresDSN = v
	}
	if v, ok := lookupTrimmed(lookup, envPostgresAutoMigrate); ok {
		if parsed, err := parseBool(v); err != nil {
			warn(envPostgresAutoMigrate, v, err)
		} else {
			cfg.PostgresAutoMigrate = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envKafkaBrokers); ok {
		cfg.KafkaBrokers = v
	}
	if v, ok := lookupTrimmed(lookup, envKafkaTopic); ok {
		cfg.KafkaTopic = v
	}
	if v, ok := lookupTrimmed(lookup, envKafkaDLQTopic); ok {
		cfg.KafkaDLQTopic = v
	}

	positive := func(v int) bool { return v > 0 }
	nonNegative := func(v int) bool { return v >= 0 }

	if v, ok := lookupTrimmed(lookup, envOutboxPollInterval); ok {
		if parsed, err := parseDuration(v, func(d time.Duration) bool { return d > 0 }, "must be > 0"); err != nil {
			warn(envOutboxPollInterval, v, err)
		} else {
			cfg.OutboxPollInterval = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envOutboxBatchSize); ok {
		if parsed, err := parseInt(v, positive, "must be > 0"); err != nil {
			warn(envOutboxBatchSize, v, err)
		} else {
			cfg.OutboxBatchSize = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envOutboxMaxAttempts); ok {
		if parsed, err := parseInt(v, positive, "must be > 0"); err != nil {
			warn(envOutboxMaxAttempts, v, err)
		} else {
			cfg.OutboxMaxAttempts = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envOutboxRetryDelay); ok {
		if parsed, err := parseDuration(v, func(d time.Duration) bool { return d >= 0 }, "must be >= 0"); err != nil {
			warn(envOutboxRetryDelay, v, err)
		} else {
			cfg.OutboxRetryDelay = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envSeedDemoOrders); ok {
		if parsed, err := parseInt(v, nonNegative, "must be >= 0"); err != nil {
			warn(envSeedDemoOrders, v, err)
		} else {
			cfg.SeedDemoOrders = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envShutdownTimeout); ok {
		if parsed, err := parseDuration(v, func(d time.Duration) bool { return d > 0 }, "must be > 0"); err != nil {
			warn(envShutdownTimeout, v, err)
		} else {
			cfg.ShutdownTimeout = parsed
		}
	}

	return cfg, warnings
}

func lookupTrimmed(lookup envLookup, key string) (string, bool) {
	raw, ok := lookup(key)
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, msg string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %w", err)
	}
	if !valid(value) {
		return 0, fmt.Errorf("%d %s", value, msg)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, msg string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %w", err)
	}
	if !valid(value) {
		return 0, fmt.Errorf("%s %s", value, msg)
	}
	return value, nil
}
