package grpcsvc

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/vladislavdragonenkov/restbucks/internal/domain"
	"github.com/vladislavdragonenkov/restbucks/internal/service/lifecycle"
)

// OrderService реализует gRPC API поверх сервиса жизненного цикла.
type OrderService struct {
	lifecycle *lifecycle.Service
	repo      domain.OrderRepository
	timeline  domain.TimelineRepository
	logger    *log.Entry
}

// NewOrderService конструирует сервис с зависимостями. timeline может быть nil,
// тогда GetOrder возвращает пустую историю.
func NewOrderService(
	svc *lifecycle.Service,
	repo domain.OrderRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *OrderService {
	if logger == nil {
		logger = log.WithField("component", "order-grpc")
	}
	return &OrderService{
		lifecycle: svc,
		repo:      repo,
		timeline:  timeline,
		logger:    logger,
	}
}

// FindOrdersByStatus возвращает {"orders": [...]} для статуса из запроса.
func (s *OrderService) FindOrdersByStatus(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req == nil || strings.TrimSpace(req.GetValue()) == "" {
		return nil, status.Error(codes.InvalidArgument, "status is required")
	}
	orderStatus, err := domain.ParseOrderStatus(req.GetValue())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "unknown status %q", req.GetValue())
	}

	orders, err := s.lifecycle.FindOrdersByStatus(ctx, orderStatus)
	if err != nil {
		return nil, s.toStatusError(err, methodFindOrdersByStatus, "")
	}

	list := make([]any, 0, len(orders))
	for _, order := range orders {
		list = append(list, orderFields(order))
	}
	return newStruct(map[string]any{
		"status": orderStatus.String(),
		"orders": list,
	})
}

// MarkPaid загружает заказ и подтверждает его оплату.
func (s *OrderService) MarkPaid(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	return s.transitionLoaded(ctx, req, methodMarkPaid, s.lifecycle.MarkPaid)
}

// MarkInPreparation передаёт заказ бариста.
func (s *OrderService) MarkInPreparation(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	orderID, err := requireOrderID(req)
	if err != nil {
		return nil, err
	}

	updated, err := s.lifecycle.MarkInPreparation(ctx, orderID)
	if err != nil {
		return nil, s.toStatusError(err, methodMarkInPreparation, orderID)
	}
	return newStruct(orderFields(updated))
}

// MarkPrepared отмечает, что напитки готовы.
func (s *OrderService) MarkPrepared(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	return s.transitionLoaded(ctx, req, methodMarkPrepared, s.lifecycle.MarkPrepared)
}

// MarkTaken закрывает заказ.
func (s *OrderService) MarkTaken(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	return s.transitionLoaded(ctx, req, methodMarkTaken, s.lifecycle.MarkTaken)
}

// GetOrder возвращает заказ вместе с историей статусов.
func (s *OrderService) GetOrder(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	orderID, err := requireOrderID(req)
	if err != nil {
		return nil, err
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, s.toStatusError(err, methodGetOrder, orderID)
	}

	fields := orderFields(order)
	timeline := make([]any, 0)
	if s.timeline != nil {
		events, err := s.timeline.List(ctx, orderID)
		if err != nil {
			return nil, s.toStatusError(err, methodGetOrder, orderID)
		}
		for _, event := range events {
			timeline = append(timeline, map[string]any{
				"type":     event.Type,
				"from":     event.From.String(),
				"to":       event.To.String(),
				"occurred": event.Occurred.UTC().Format(time.RFC3339Nano),
			})
		}
	}
	fields["timeline"] = timeline

	return newStruct(fields)
}

type orderTransition func(ctx context.Context, order domain.Order) (domain.Order, error)

// transitionLoaded читает текущую версию заказа и передаёт её в сервис:
// сервис принимает заказ целиком, а клиент знает только идентификатор.
func (s *OrderService) transitionLoaded(ctx context.Context, req *wrapperspb.StringValue, method string, mark orderTransition) (*structpb.Struct, error) {
	orderID, err := requireOrderID(req)
	if err != nil {
		return nil, err
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, s.toStatusError(err, method, orderID)
	}

	updated, err := mark(ctx, order)
	if err != nil {
		return nil, s.toStatusError(err, method, orderID)
	}
	return newStruct(orderFields(updated))
}

func requireOrderID(req *wrapperspb.StringValue) (string, error) {
	orderID := strings.TrimSpace(req.GetValue())
	if orderID == "" {
		return "", status.Error(codes.InvalidArgument, "order_id is required")
	}
	return orderID, nil
}

// toStatusError переводит доменные ошибки в коды gRPC. Внутренние ошибки
// логируются, клиенту уходит только общее сообщение.
func (s *OrderService) toStatusError(err error, method, orderID string) error {
	switch {
	case domain.IsNotFound(err):
		return status.Error(codes.NotFound, domain.ErrOrderNotFound.Error())
	case domain.IsInvalidTransition(err):
		return status.Error(codes.FailedPrecondition, err.Error())
	case domain.IsVersionConflict(err):
		return status.Error(codes.Aborted, domain.ErrOrderVersionConflict.Error())
	case errors.Is(err, domain.ErrInvalidStatus):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}

	s.logger.WithError(err).WithFields(log.Fields{
		"method":   method,
		"order_id": orderID,
	}).Error("order lifecycle call failed")
	return status.Error(codes.Internal, "internal error")
}

func orderFields(order domain.Order) map[string]any {
	items := make([]any, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, map[string]any{
			"id":          item.ID,
			"name":        item.Name,
			"qty":         item.Qty,
			"milk":        string(item.Milk),
			"size":        string(item.Size),
			"price_minor": item.PriceMinor,
		})
	}

	return map[string]any{
		"id":           order.ID,
		"status":       order.Status.String(),
		"location":     string(order.Location),
		"currency":     order.Currency,
		"amount_minor": order.AmountMinor,
		"version":      order.Version,
		"ordered_at":   order.OrderedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":   order.UpdatedAt.UTC().Format(time.RFC3339Nano),
		"items":        items,
	}
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	result, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return result, nil
}

var _ OrderLifecycleServer = (*OrderService)(nil)
