package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/restbucks/internal/domain"
)

const pgUniqueViolation = "23505"

const selectOrderColumns = `
	SELECT id, status, location, currency, amount_minor, version, ordered_at, updated_at
	FROM orders
`

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO orders (
				id, status, location, currency, amount_minor, version, ordered_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`,
			order.ID, string(order.Status), string(order.Location), order.Currency,
			order.AmountMinor, order.Version, order.OrderedAt, order.UpdatedAt,
		); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrOrderVersionConflict
			}
			return fmt.Errorf("insert order: %w", err)
		}

		for pos, item := range order.Items {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (
					id, order_id, position, name, qty, milk, size, price_minor
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			`,
				item.ID, order.ID, pos, item.Name, item.Qty, string(item.Milk), string(item.Size), item.PriceMinor,
			); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := scanOrder(r.db.QueryRowContext(ctx, selectOrderColumns+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items[order.ID]
	if order.Items == nil {
		order.Items = make([]domain.LineItem, 0)
	}

	return order, nil
}

// FindByStatus отдаёт заказы в порядке оформления: это и есть естественный порядок хранилища.
func (r *orderRepository) FindByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, selectOrderColumns+`
		WHERE status = $1
		ORDER BY ordered_at ASC, id ASC
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list orders by status: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	items, err := r.loadItems(ctx, ids...)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = make([]domain.LineItem, 0)
		}
	}

	return orders, nil
}

// Save обновляет заказ только если версия в базе совпадает с order.Version,
// а статус в базе является предшественником order.Status.
// Позиции заказа после создания не меняются, поэтому пишется только строка orders.
func (r *orderRepository) Save(ctx context.Context, order domain.Order) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// Для статуса без предшественника условие по status не совпадёт ни с одной строкой.
	from, _ := order.Status.Previous()

	var newVersion int64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			UPDATE orders
			SET status = $1,
			    location = $2,
			    currency = $3,
			    amount_minor = $4,
			    version = version + 1,
			    updated_at = $5
			WHERE id = $6
			  AND version = $7
			  AND status = $8
			RETURNING version
		`,
			string(order.Status),
			string(order.Location),
			order.Currency,
			order.AmountMinor,
			order.UpdatedAt,
			order.ID,
			order.Version,
			string(from),
		).Scan(&newVersion)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("update order: %w", err)
		}
		return rejectedSaveError(ctx, tx, order)
	})
	if err != nil {
		return domain.Order{}, err
	}

	order.Version = newVersion
	order.Items = append([]domain.LineItem(nil), order.Items...)
	return order, nil
}

// rejectedSaveError объясняет, почему UPDATE не затронул ни одной строки.
func rejectedSaveError(ctx context.Context, tx *sql.Tx, order domain.Order) error {
	var (
		version int64
		status  string
	)
	err := tx.QueryRowContext(ctx, `SELECT version, status FROM orders WHERE id = $1`, order.ID).Scan(&version, &status)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrOrderNotFound
	case err != nil:
		return fmt.Errorf("load order state: %w", err)
	case version != order.Version:
		return domain.ErrOrderVersionConflict
	default:
		return &domain.InvalidStateTransitionError{
			OrderID: order.ID,
			From:    domain.OrderStatus(status),
			To:      order.Status,
		}
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order    domain.Order
		status   string
		location string
	)
	if err := row.Scan(
		&order.ID, &status, &location, &order.Currency,
		&order.AmountMinor, &order.Version, &order.OrderedAt, &order.UpdatedAt,
	); err != nil {
		return domain.Order{}, err
	}
	order.Status = domain.OrderStatus(status)
	order.Location = domain.Location(location)
	order.OrderedAt = order.OrderedAt.UTC()
	order.UpdatedAt = order.UpdatedAt.UTC()
	return order, nil
}

// loadItems загружает позиции нескольких заказов одним запросом.
func (r *orderRepository) loadItems(ctx context.Context, orderIDs ...string) (map[string][]domain.LineItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, id, name, qty, milk, size, price_minor
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id ASC, position ASC
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]domain.LineItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID string
			item    domain.LineItem
			milk    string
			size    string
		)
		if err := rows.Scan(&orderID, &item.ID, &item.Name, &item.Qty, &milk, &size, &item.PriceMinor); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.Milk = domain.Milk(milk)
		item.Size = domain.Size(size)
		items[orderID] = append(items[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
