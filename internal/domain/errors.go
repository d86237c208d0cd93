package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего идентификатора заказа.
	ErrOrderIDRequired = errors.New("order_id is required")
	// Ошибка отсутствующего кода валюты.
	ErrCurrencyRequired = errors.New("currency is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка пустого названия напитка.
	ErrItemNameRequired = errors.New("item name is required")
	// Ошибка при некорректном количестве (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order amount does not match items sum")
	// Ошибка неизвестного значения location.
	ErrLocationInvalid = errors.New("location must be TAKE_AWAY or TO_GO")
	// ErrInvalidStatus возвращается для статуса вне жизненного цикла.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidStateTransition сигнализирует о недопустимом переходе статуса.
	ErrInvalidStateTransition = errors.New("invalid order state transition")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrOutboxPublish: ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// InvalidStateTransitionError описывает, какой переход был запрошен.
// errors.Is(err, ErrInvalidStateTransition) возвращает true.
type InvalidStateTransitionError struct {
	OrderID string
	From    OrderStatus
	To      OrderStatus
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("%s: order %s cannot move from %s to %s", ErrInvalidStateTransition, e.OrderID, e.From, e.To)
}

func (e *InvalidStateTransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}

// IsNotFound проверяет, что заказ отсутствует.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound)
}

// IsInvalidTransition проверяет, что переход статуса запрещён.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidStateTransition)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}
