package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restbucks/internal/domain"
)

// demoMenu: позиции, из которых собираются демонстрационные заказы.
var demoMenu = []domain.LineItem{
	{Name: "latte", Qty: 1, Milk: domain.MilkWhole, Size: domain.SizeMedium, PriceMinor: 420},
	{Name: "cappuccino", Qty: 1, Milk: domain.MilkSemi, Size: domain.SizeSmall, PriceMinor: 380},
	{Name: "espresso", Qty: 2, Size: domain.SizeSmall, PriceMinor: 250},
	{Name: "flat white", Qty: 1, Milk: domain.MilkSoy, Size: domain.SizeLarge, PriceMinor: 460},
}

// seedDemoOrders создаёт count заказов в статусе PAYMENT_EXPECTED и возвращает их.
func seedDemoOrders(ctx context.Context, repo domain.OrderRepository, count int, logger *log.Entry) ([]domain.Order, error) {
	orders := make([]domain.Order, 0, count)
	for i := 0; i < count; i++ {
		location := domain.LocationTakeAway
		if i%2 == 1 {
			location = domain.LocationToGo
		}
		item := demoMenu[i%len(demoMenu)]

		order := domain.NewOrder(location, "USD", []domain.LineItem{item}, time.Now())
		if errs := order.ValidateInvariants(); len(errs) > 0 {
			return nil, fmt.Errorf("demo order is invalid: %v", errs)
		}
		if err := repo.Create(ctx, order); err != nil {
			return nil, fmt.Errorf("create demo order: %w", err)
		}
		orders = append(orders, order)
	}

	if count > 0 {
		logger.WithField("count", count).Info("demo orders created")
	}
	return orders, nil
}
