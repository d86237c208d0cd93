package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/restbucks/internal/domain"
)

// orderRepositoryInMemory: in-memory реализация OrderRepository.
// Порядок вставки сохраняется, он же «естественный» порядок для FindByStatus.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Order
	order []string
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[string]domain.Order),
	}
}

// Create сохраняет новый заказ, если ID ещё не занят.
func (r *orderRepositoryInMemory) Create(ctx context.Context, order domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.ErrOrderVersionConflict
	}
	// Храним копию, чтобы вызывающий код не мог изменить позиции снаружи.
	r.items[order.ID] = cloneOrder(order)
	r.order = append(r.order, order.ID)
	return nil
}

// FindByID возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) FindByID(ctx context.Context, id string) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// FindByStatus возвращает заказы в статусе status в порядке создания.
func (r *orderRepositoryInMemory) FindByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, id := range r.order {
		order := r.items[id]
		if order.Status != status {
			continue
		}
		result = append(result, cloneOrder(order))
	}
	return result, nil
}

// Save перезаписывает заказ, проверяя версию (optimistic locking) и то,
// что сохранённый статус предшествует новому.
func (r *orderRepositoryInMemory) Save(ctx context.Context, order domain.Order) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[order.ID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.Order{}, domain.ErrOrderVersionConflict
	}
	if !current.Status.CanTransitionTo(order.Status) {
		return domain.Order{}, &domain.InvalidStateTransitionError{OrderID: order.ID, From: current.Status, To: order.Status}
	}

	stored := cloneOrder(order)
	stored.Version++
	r.items[order.ID] = stored
	return cloneOrder(stored), nil
}

func cloneOrder(order domain.Order) domain.Order {
	order.Items = append([]domain.LineItem(nil), order.Items...)
	return order
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
