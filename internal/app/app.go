package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/vladislavdragonenkov/restbucks/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/restbucks/internal/health"
	"github.com/vladislavdragonenkov/restbucks/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/restbucks/internal/metrics"
	grpcsvc "github.com/vladislavdragonenkov/restbucks/internal/service/grpc"
	"github.com/vladislavdragonenkov/restbucks/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/restbucks/internal/service/outbox"
	"github.com/vladislavdragonenkov/restbucks/internal/version"
)

// Run поднимает gRPC API, HTTP с метриками и health, outbox worker
// и блокируется до отмены ctx или ошибки gRPC-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	if err := cfg.Validate(); err != nil {
		return err
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger.WithField("layer", "storage"))
	if err != nil {
		return err
	}
	defer deps.close(logger)

	if _, err := seedDemoOrders(ctx, deps.repo, cfg.SeedDemoOrders, logger); err != nil {
		return err
	}

	lifecycleMetrics := metrics.NewLifecycleMetrics()
	recorder := outbox.NewRecorder(deps.timelineRepo, deps.outboxRepo, lifecycleMetrics, logger.WithField("layer", "recorder"))
	lifecycleSvc := lifecycle.NewService(
		deps.repo,
		lifecycle.WithLogger(logger.WithField("layer", "lifecycle")),
		lifecycle.WithMetrics(lifecycleMetrics),
		lifecycle.WithListeners(recorder),
	)

	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokerList(), logger)
	defer closeKafkaProducer(kafkaProducer, logger)

	outboxCancel, outboxDone := startOutboxWorker(ctx, cfg, deps.outboxRepo, kafkaProducer, logger)
	defer shutdownOutboxWorker(outboxCancel, outboxDone, logger)

	orderService := grpcsvc.NewOrderService(lifecycleSvc, deps.repo, deps.timelineRepo, logger.WithField("layer", "grpc"))
	server := grpcsvc.NewServer(orderService, prometheus.DefaultRegisterer, logger)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", deps.storageChecker)

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		shutdownHTTP(metricsSrv, logger)
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("gRPC сервер слушает %s", lis.Addr())
		errCh <- server.GRPC.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем gRPC сервер")
		stopGRPC(server, cfg.ShutdownTimeout, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		server.Shutdown()
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// startOutboxWorker запускает публикацию outbox в Kafka. Без producer
// события копятся в outbox до появления брокера.
func startOutboxWorker(
	ctx context.Context,
	cfg Config,
	repo domain.OutboxRepository,
	producer *kafka.Producer,
	logger *log.Entry,
) (context.CancelFunc, <-chan struct{}) {
	if producer == nil {
		logger.Info("kafka is not configured, outbox worker is disabled")
		return nil, nil
	}

	worker := outbox.NewWorker(
		repo,
		kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
		outbox.WithLogger(logger.WithField("layer", "outbox")),
		outbox.WithDLQPublisher(kafka.NewDeadLetterPublisher(producer, cfg.KafkaDLQTopic)),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	)

	workerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(workerCtx)
	}()
	return cancel, done
}

// shutdownOutboxWorker останавливает worker и ждёт завершения текущего цикла.
func shutdownOutboxWorker(cancel context.CancelFunc, done <-chan struct{}, logger *log.Entry) {
	if cancel == nil {
		return
	}
	cancel()
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info("outbox worker stopped")
	case <-time.After(5 * time.Second):
		logger.Warn("outbox worker did not stop in time")
	}
}

func stopGRPC(server *grpcsvc.Server, timeout time.Duration, logger *log.Entry) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	server.Shutdown()

	stoppedCh := make(chan struct{})
	go func() {
		server.GRPC.GracefulStop()
		close(stoppedCh)
	}()
	select {
	case <-stoppedCh:
	case <-time.After(timeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		server.GRPC.Stop()
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus и health-пробы.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
