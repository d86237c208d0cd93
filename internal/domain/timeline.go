package domain

import "time"

// TimelineEventStatusChanged: тип записи о смене статуса.
const TimelineEventStatusChanged = "OrderStatusChanged"

// TimelineEvent описывает событие в жизненном цикле заказа.
type TimelineEvent struct {
	OrderID  string
	Type     string
	From     OrderStatus
	To       OrderStatus
	Occurred time.Time
}
