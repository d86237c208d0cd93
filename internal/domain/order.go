package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderStatus описывает стадию жизненного цикла заказа в кофейне.
type OrderStatus string

const (
	// OrderStatusPaymentExpected: заказ принят, ожидается оплата.
	OrderStatusPaymentExpected OrderStatus = "PAYMENT_EXPECTED"
	// OrderStatusPaid: оплата получена, заказ ждёт бариста.
	OrderStatusPaid OrderStatus = "PAID"
	// OrderStatusInPreparation: бариста готовит напитки.
	OrderStatusInPreparation OrderStatus = "IN_PREPARATION"
	// OrderStatusPrepared: заказ готов к выдаче.
	OrderStatusPrepared OrderStatus = "PREPARED"
	// OrderStatusTaken: клиент забрал заказ, цикл завершён.
	OrderStatusTaken OrderStatus = "TAKEN"
)

// lifecycle задаёт единственный допустимый порядок статусов.
var lifecycle = []OrderStatus{
	OrderStatusPaymentExpected,
	OrderStatusPaid,
	OrderStatusInPreparation,
	OrderStatusPrepared,
	OrderStatusTaken,
}

// OrderStatuses возвращает все статусы в порядке жизненного цикла.
func OrderStatuses() []OrderStatus {
	result := make([]OrderStatus, len(lifecycle))
	copy(result, lifecycle)
	return result
}

// ParseOrderStatus разбирает строковое представление статуса (регистр не важен).
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	return s.Rank() >= 0
}

// Rank возвращает позицию статуса в жизненном цикле или -1 для неизвестного статуса.
func (s OrderStatus) Rank() int {
	for i, status := range lifecycle {
		if status == s {
			return i
		}
	}
	return -1
}

// Next возвращает следующий статус. Для TAKEN и неизвестных статусов ok=false.
func (s OrderStatus) Next() (OrderStatus, bool) {
	rank := s.Rank()
	if rank < 0 || rank+1 >= len(lifecycle) {
		return "", false
	}
	return lifecycle[rank+1], true
}

// Previous возвращает статус, из которого допустим переход в s.
// Для PAYMENT_EXPECTED и неизвестных статусов ok=false.
func (s OrderStatus) Previous() (OrderStatus, bool) {
	rank := s.Rank()
	if rank <= 0 {
		return "", false
	}
	return lifecycle[rank-1], true
}

// CanTransitionTo разрешает только переход на непосредственно следующий статус.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	next, ok := s.Next()
	return ok && next == target
}

// Terminal сообщает, что из статуса нет переходов.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusTaken
}

func (s OrderStatus) String() string {
	return string(s)
}

// Location: где клиент будет пить кофе.
type Location string

const (
	LocationTakeAway Location = "TAKE_AWAY"
	LocationToGo     Location = "TO_GO"
)

// Valid проверяет значение Location.
func (l Location) Valid() bool {
	return l == LocationTakeAway || l == LocationToGo
}

// Milk: тип молока в напитке.
type Milk string

const (
	MilkNone  Milk = ""
	MilkSkim  Milk = "SKIM"
	MilkSemi  Milk = "SEMI"
	MilkWhole Milk = "WHOLE"
	MilkSoy   Milk = "SOY"
)

// Size: объём напитка.
type Size string

const (
	SizeSmall  Size = "SMALL"
	SizeMedium Size = "MEDIUM"
	SizeLarge  Size = "LARGE"
)

// LineItem представляет одну позицию заказа.
type LineItem struct {
	ID   string
	Name string
	Qty  int32
	Milk Milk
	Size Size
	// PriceMinor: цена за единицу в минимальных денежных единицах (центы).
	PriceMinor int64
}

// Order агрегирует состояние заказа. Status меняется только через Mark*-методы.
type Order struct {
	ID          string
	Status      OrderStatus
	Location    Location
	Currency    string
	AmountMinor int64
	Items       []LineItem
	// Version используется для optimistic locking в хранилище.
	Version   int64
	OrderedAt time.Time
	UpdatedAt time.Time
}

// NewOrder создаёт заказ в статусе PAYMENT_EXPECTED и считает его сумму.
func NewOrder(location Location, currency string, items []LineItem, now time.Time) Order {
	now = now.UTC()
	copied := make([]LineItem, 0, len(items))
	var amount int64
	for _, item := range items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		amount += int64(item.Qty) * item.PriceMinor
		copied = append(copied, item)
	}

	return Order{
		ID:          uuid.NewString(),
		Status:      OrderStatusPaymentExpected,
		Location:    location,
		Currency:    currency,
		AmountMinor: amount,
		Items:       copied,
		OrderedAt:   now,
		UpdatedAt:   now,
	}
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.ID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrInvalidStatus)
	}
	if !o.Location.Valid() {
		errs = append(errs, ErrLocationInvalid)
	}
	if o.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}

	var calc int64
	for _, item := range o.Items {
		if item.Name == "" {
			errs = append(errs, ErrItemNameRequired)
		}
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc += int64(item.Qty) * item.PriceMinor
	}
	if calc != o.AmountMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}

// MarkPaid переводит заказ из PAYMENT_EXPECTED в PAID.
func (o Order) MarkPaid(now time.Time) (Order, error) {
	return o.transition(OrderStatusPaid, now)
}

// MarkInPreparation переводит заказ из PAID в IN_PREPARATION.
func (o Order) MarkInPreparation(now time.Time) (Order, error) {
	return o.transition(OrderStatusInPreparation, now)
}

// MarkPrepared переводит заказ из IN_PREPARATION в PREPARED.
func (o Order) MarkPrepared(now time.Time) (Order, error) {
	return o.transition(OrderStatusPrepared, now)
}

// MarkTaken переводит заказ из PREPARED в TAKEN.
func (o Order) MarkTaken(now time.Time) (Order, error) {
	return o.transition(OrderStatusTaken, now)
}

// transition не трогает исходный заказ: позиции копируются, чтобы
// вызывающий код не увидел частично применённый переход.
func (o Order) transition(target OrderStatus, now time.Time) (Order, error) {
	if !o.Status.CanTransitionTo(target) {
		return o, &InvalidStateTransitionError{OrderID: o.ID, From: o.Status, To: target}
	}

	next := o
	next.Items = append([]LineItem(nil), o.Items...)
	next.Status = target
	next.UpdatedAt = now.UTC()
	return next, nil
}
