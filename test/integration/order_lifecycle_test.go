package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/restbucks/internal/domain"
	"github.com/vladislavdragonenkov/restbucks/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/restbucks/internal/metrics"
	"github.com/vladislavdragonenkov/restbucks/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/restbucks/internal/service/outbox"
	"github.com/vladislavdragonenkov/restbucks/internal/storage/memory"
)

const testTopic = "restbucks.order.events.test"

// OrderLifecycleTestSuite прогоняет заказ через все статусы и проверяет,
// что каждый переход попадает в timeline и доходит до Kafka через outbox.
type OrderLifecycleTestSuite struct {
	suite.Suite

	repo     domain.OrderRepository
	timeline domain.TimelineRepository
	outbox   *memory.OutboxRepository
	service  *lifecycle.Service
	logger   *log.Entry
}

func (suite *OrderLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel) // Уменьшаем шум в тестах
	suite.logger = baseLogger.WithField("component", "integration-test")

	suite.repo = memory.NewOrderRepository()
	suite.timeline = memory.NewTimelineRepository()
	suite.outbox = memory.NewOutboxRepository()

	lifecycleMetrics := metrics.NewLifecycleMetricsWithRegisterer(prometheus.NewRegistry())
	recorder := outbox.NewRecorder(suite.timeline, suite.outbox, lifecycleMetrics, suite.logger)

	suite.service = lifecycle.NewService(
		suite.repo,
		lifecycle.WithLogger(suite.logger),
		lifecycle.WithMetrics(lifecycleMetrics),
		lifecycle.WithListeners(recorder),
	)
}

func (suite *OrderLifecycleTestSuite) newOrder() domain.Order {
	order := domain.NewOrder(domain.LocationTakeAway, "USD", []domain.LineItem{
		{Name: "latte", Qty: 2, Milk: domain.MilkWhole, Size: domain.SizeLarge, PriceMinor: 450},
		{Name: "espresso", Qty: 1, Size: domain.SizeSmall, PriceMinor: 250},
	}, time.Now())
	suite.Require().Empty(order.ValidateInvariants())
	suite.Require().NoError(suite.repo.Create(context.Background(), order))
	return order
}

func (suite *OrderLifecycleTestSuite) newWorker(producer sarama.SyncProducer) *outbox.Worker {
	return outbox.NewWorker(
		suite.outbox,
		kafka.NewOutboxPublisher(kafka.NewProducerFromSync(producer), testTopic),
		outbox.WithLogger(suite.logger),
		outbox.WithMetrics(metrics.NewOutboxMetricsWithRegisterer(prometheus.NewRegistry())),
		outbox.WithMaxAttempts(1),
		outbox.WithRetryBaseDelay(0),
	)
}

func (suite *OrderLifecycleTestSuite) TestFullLifecycle() {
	ctx := context.Background()
	order := suite.newOrder()

	paid, err := suite.service.MarkPaid(ctx, order)
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusPaid, paid.Status)

	inPreparation, err := suite.service.MarkInPreparation(ctx, order.ID)
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusInPreparation, inPreparation.Status)

	prepared, err := suite.service.MarkPrepared(ctx, inPreparation)
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusPrepared, prepared.Status)

	taken, err := suite.service.MarkTaken(ctx, prepared)
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusTaken, taken.Status)
	suite.Equal(int64(4), taken.Version)

	stored, err := suite.repo.FindByID(ctx, order.ID)
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusTaken, stored.Status)
	suite.Equal(order.AmountMinor, stored.AmountMinor)

	events, err := suite.timeline.List(ctx, order.ID)
	suite.Require().NoError(err)
	suite.Require().Len(events, 4)

	expected := []domain.OrderStatus{
		domain.OrderStatusPaid,
		domain.OrderStatusInPreparation,
		domain.OrderStatusPrepared,
		domain.OrderStatusTaken,
	}
	for i, event := range events {
		suite.Equal(expected[i], event.To)
		suite.Equal(domain.TimelineEventStatusChanged, event.Type)
		suite.Less(event.From.Rank(), event.To.Rank(), "status rank must grow")
	}
}

func (suite *OrderLifecycleTestSuite) TestOutboxDeliversEveryTransition() {
	ctx := context.Background()
	order := suite.newOrder()

	paid, err := suite.service.MarkPaid(ctx, order)
	suite.Require().NoError(err)
	_, err = suite.service.MarkInPreparation(ctx, paid.ID)
	suite.Require().NoError(err)
	suite.Require().Len(suite.outbox.AllPending(), 2)

	producer := mocks.NewSyncProducer(suite.T(), nil)
	var published []kafka.OrderStatusChangedEvent
	collect := func(val []byte) error {
		var envelope struct {
			Payload kafka.OrderStatusChangedEvent `json:"payload"`
		}
		if err := json.Unmarshal(val, &envelope); err != nil {
			return err
		}
		published = append(published, envelope.Payload)
		return nil
	}
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(collect)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(collect)

	sent := suite.newWorker(producer).ProcessOnce(ctx)
	suite.Equal(2, sent)
	suite.Empty(suite.outbox.AllPending())

	suite.Require().Len(published, 2)
	suite.Equal(domain.OrderStatusPaid.String(), published[0].To)
	suite.Equal(domain.OrderStatusInPreparation.String(), published[1].To)
	for _, event := range published {
		suite.Equal(order.ID, event.OrderID)
	}
}

func (suite *OrderLifecycleTestSuite) TestFailedPublishKeepsOrderState() {
	ctx := context.Background()
	order := suite.newOrder()

	paid, err := suite.service.MarkPaid(ctx, order)
	suite.Require().NoError(err)

	producer := mocks.NewSyncProducer(suite.T(), nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	sent := suite.newWorker(producer).ProcessOnce(ctx)
	suite.Equal(0, sent)

	stored, err := suite.repo.FindByID(ctx, order.ID)
	suite.Require().NoError(err)
	suite.Equal(paid.Status, stored.Status)
	suite.Equal(paid.Version, stored.Version)
}

func (suite *OrderLifecycleTestSuite) TestFindOrdersByStatus() {
	ctx := context.Background()
	first := suite.newOrder()
	second := suite.newOrder()
	suite.newOrder()

	_, err := suite.service.MarkPaid(ctx, first)
	suite.Require().NoError(err)
	_, err = suite.service.MarkPaid(ctx, second)
	suite.Require().NoError(err)

	paid, err := suite.service.FindOrdersByStatus(ctx, domain.OrderStatusPaid)
	suite.Require().NoError(err)
	suite.Len(paid, 2)
	for _, order := range paid {
		suite.Equal(domain.OrderStatusPaid, order.Status)
	}

	waiting, err := suite.service.FindOrdersByStatus(ctx, domain.OrderStatusPaymentExpected)
	suite.Require().NoError(err)
	suite.Len(waiting, 1)
}

func (suite *OrderLifecycleTestSuite) TestIllegalTransitionsLeaveNoTrace() {
	ctx := context.Background()
	order := suite.newOrder()

	_, err := suite.service.MarkPrepared(ctx, order)
	suite.Require().Error(err)
	suite.True(domain.IsInvalidTransition(err))

	_, err = suite.service.MarkInPreparation(ctx, "missing-order")
	suite.Require().Error(err)
	suite.True(domain.IsNotFound(err))

	paid, err := suite.service.MarkPaid(ctx, order)
	suite.Require().NoError(err)

	// повторная оплата по устаревшей копии запрещена
	_, err = suite.service.MarkPaid(ctx, order)
	suite.True(domain.IsInvalidTransition(err) || domain.IsVersionConflict(err))

	stored, err := suite.repo.FindByID(ctx, order.ID)
	suite.Require().NoError(err)
	suite.Equal(paid.Version, stored.Version)

	events, err := suite.timeline.List(ctx, order.ID)
	suite.Require().NoError(err)
	suite.Len(events, 1)
	suite.Len(suite.outbox.AllPending(), 1)
}

func TestOrderLifecycleTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("integration suite skipped in short mode")
	}
	suite.Run(t, new(OrderLifecycleTestSuite))
}

func TestOrderLifecycle_ConcurrentTransitionsSingleWinner(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	service := lifecycle.NewService(repo, lifecycle.WithMetrics(metrics.NewLifecycleMetricsWithRegisterer(prometheus.NewRegistry())))

	order := domain.NewOrder(domain.LocationToGo, "USD", []domain.LineItem{
		{Name: "mocha", Qty: 1, Size: domain.SizeMedium, PriceMinor: 400},
	}, time.Now())
	require.NoError(t, repo.Create(ctx, order))

	const workers = 8
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := service.MarkPaid(ctx, order)
			results <- err
		}()
	}

	succeeded := 0
	for i := 0; i < workers; i++ {
		if err := <-results; err == nil {
			succeeded++
		} else {
			require.True(t, domain.IsVersionConflict(err) || domain.IsInvalidTransition(err), "unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded)
}
