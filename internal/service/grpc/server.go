package grpcsvc

import (
	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Server объединяет gRPC-сервер и его health-сервис.
type Server struct {
	GRPC   *grpc.Server
	Health *health.Server
}

// NewServer собирает gRPC-сервер: метрики go-grpc-prometheus, health и reflection.
func NewServer(orders OrderLifecycleServer, registerer prometheus.Registerer, logger *log.Entry) *Server {
	if logger == nil {
		logger = log.WithField("component", "grpc-server")
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	grpcMetrics := promgrpc.NewServerMetrics()
	if err := registerer.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	server := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	RegisterOrderLifecycleServer(server, orders)
	grpcMetrics.InitializeMetrics(server)

	reflection.Register(server)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return &Server{GRPC: server, Health: healthServer}
}

// Shutdown переводит health в NOT_SERVING, чтобы балансировщик перестал слать запросы.
func (s *Server) Shutdown() {
	if s == nil || s.Health == nil {
		return
	}
	s.Health.Shutdown()
}
