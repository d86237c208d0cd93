package lifecycle

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restbucks/internal/domain"
	"github.com/vladislavdragonenkov/restbucks/internal/metrics"
)

// Options задаёт необязательные зависимости сервиса.
type Options struct {
	Logger    *log.Entry
	Metrics   *metrics.LifecycleMetrics
	Listeners []domain.TransitionListener
	Clock     func() time.Time
}

// Option настраивает Service.
type Option func(*Options)

// WithLogger задаёт logger для сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithMetrics включает prometheus-метрики переходов.
func WithMetrics(m *metrics.LifecycleMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithListeners добавляет слушателей успешных переходов.
func WithListeners(listeners ...domain.TransitionListener) Option {
	return func(opts *Options) {
		opts.Listeners = append(opts.Listeners, listeners...)
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(clock func() time.Time) Option {
	return func(opts *Options) {
		opts.Clock = clock
	}
}

// Service управляет переходами статусов заказа.
//
// Каждый переход: это один цикл load-check-mutate-save: допустимость
// проверяется один раз до записи, затем выполняется ровно одна запись в
// хранилище. Сервис не берёт блокировок: атомарность обеспечивает Save
// репозитория (compare-and-swap по Version), поэтому вызовы для разных
// заказов можно выполнять параллельно без координации.
type Service struct {
	repo      domain.OrderRepository
	listeners []domain.TransitionListener
	metrics   *metrics.LifecycleMetrics
	logger    *log.Entry
	now       func() time.Time
}

// NewService создаёт сервис жизненного цикла поверх репозитория заказов.
func NewService(repo domain.OrderRepository, options ...Option) *Service {
	var opts Options
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "order-lifecycle")
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Service{
		repo:      repo,
		listeners: opts.Listeners,
		metrics:   opts.Metrics,
		logger:    logger,
		now:       clock,
	}
}

// FindOrdersByStatus возвращает все заказы в статусе status. Порядок: естественный порядок хранилища.
func (s *Service) FindOrdersByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	orders, err := s.repo.FindByStatus(ctx, status)
	if err != nil {
		s.logger.WithError(err).WithField("status", status).Warn("failed to find orders by status")
		return nil, err
	}

	s.metrics.RecordStatusQuery(string(status), len(orders))
	return orders, nil
}

// MarkPaid переводит заказ из PAYMENT_EXPECTED в PAID и сохраняет его.
func (s *Service) MarkPaid(ctx context.Context, order domain.Order) (domain.Order, error) {
	return s.apply(ctx, order, domain.OrderStatusPaid, domain.Order.MarkPaid)
}

// MarkInPreparation находит заказ по id и переводит его из PAID в IN_PREPARATION.
func (s *Service) MarkInPreparation(ctx context.Context, id string) (domain.Order, error) {
	started := time.Now()

	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": id,
			"target":   domain.OrderStatusInPreparation,
		}).Warn("failed to load order for transition")
		s.metrics.RecordTransition(string(domain.OrderStatusInPreparation), resultOf(err), time.Since(started))
		return domain.Order{}, err
	}

	return s.apply(ctx, order, domain.OrderStatusInPreparation, domain.Order.MarkInPreparation)
}

// MarkPrepared переводит заказ из IN_PREPARATION в PREPARED и сохраняет его.
func (s *Service) MarkPrepared(ctx context.Context, order domain.Order) (domain.Order, error) {
	return s.apply(ctx, order, domain.OrderStatusPrepared, domain.Order.MarkPrepared)
}

// MarkTaken переводит заказ из PREPARED в TAKEN и сохраняет его.
func (s *Service) MarkTaken(ctx context.Context, order domain.Order) (domain.Order, error) {
	return s.apply(ctx, order, domain.OrderStatusTaken, domain.Order.MarkTaken)
}

func (s *Service) apply(
	ctx context.Context,
	order domain.Order,
	target domain.OrderStatus,
	mark func(domain.Order, time.Time) (domain.Order, error),
) (domain.Order, error) {
	started := time.Now()
	entry := s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"from":     order.Status,
		"target":   target,
	})

	next, err := mark(order, s.now())
	if err != nil {
		entry.WithError(err).Info("order transition rejected")
		s.metrics.RecordTransition(string(target), resultOf(err), time.Since(started))
		return domain.Order{}, err
	}

	saved, err := s.repo.Save(ctx, next)
	if err != nil {
		entry.WithError(err).Warn("failed to save order transition")
		s.metrics.RecordTransition(string(target), resultOf(err), time.Since(started))
		return domain.Order{}, err
	}

	s.metrics.RecordTransition(string(target), metrics.ResultOK, time.Since(started))
	entry.WithField("version", saved.Version).Debug("order transition saved")

	s.notify(ctx, domain.TransitionEvent{
		OrderID:  saved.ID,
		From:     order.Status,
		To:       saved.Status,
		Version:  saved.Version,
		Occurred: saved.UpdatedAt,
	})

	return saved, nil
}

// notify не возвращает ошибку: переход уже сохранён и откатывать его нельзя.
func (s *Service) notify(ctx context.Context, event domain.TransitionEvent) {
	for _, listener := range s.listeners {
		if err := listener.OnTransition(ctx, event); err != nil {
			s.metrics.RecordListenerFailure(string(event.To))
			s.logger.WithError(err).WithFields(log.Fields{
				"order_id": event.OrderID,
				"to":       event.To,
			}).Warn("transition listener failed")
		}
	}
}

func resultOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidStateTransition):
		return metrics.ResultInvalid
	case errors.Is(err, domain.ErrOrderNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, domain.ErrOrderVersionConflict):
		return metrics.ResultConflict
	default:
		return metrics.ResultStoreError
	}
}
