package domain

import "context"

// OrderRepository описывает требования к хранилищу заказов.
//
// Save обязан выполнять атомарный compare-and-swap по Version: если запись
// изменилась после чтения, возвращается ErrOrderVersionConflict и ничего не
// записывается. Так два конкурентных перехода одного заказа не перемешиваются.
// Кроме того, сохранённый статус обязан быть непосредственным предшественником
// order.Status, иначе возвращается *InvalidStateTransitionError: хранилище не
// пропускает стадии, даже если статус в переданном заказе подменён.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ErrOrderVersionConflict, если ID уже занят.
	Create(ctx context.Context, order Order) error
	// FindByID возвращает заказ по идентификатору или ErrOrderNotFound.
	FindByID(ctx context.Context, id string) (Order, error)
	// FindByStatus возвращает все заказы в статусе status в естественном порядке хранилища.
	FindByStatus(ctx context.Context, status OrderStatus) ([]Order, error)
	// Save записывает заказ и возвращает сохранённую копию с увеличенной версией.
	Save(ctx context.Context, order Order) (Order, error)
}
