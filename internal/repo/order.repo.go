package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"stitchkart/internal/domain"
)

type OrderRepo interface {
	CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	CreateOrderItem(ctx context.Context, tx *sql.Tx, item *domain.OrderItem) error

	FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindByCustomerEmail(ctx context.Context, email string) ([]domain.Order, error)
	Search(ctx context.Context, filter domain.OrderFilter, page domain.Pagination) ([]domain.Order, int64, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.OrderStatus) error

	// Delete removes the order and its items inside the caller's transaction.
	Delete(ctx context.Context, tx *sql.Tx, id uuid.UUID) error
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

const orderColumns = `id, customer_id, customer_name, customer_email, delivery_charge,
	payment_mode, total_amount, shipping_info, order_status, created_at, updated_at`

func (r *orderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	query := `
		INSERT INTO orders (customer_id, customer_name, customer_email, delivery_charge,
			payment_mode, total_amount, shipping_info, order_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	var customerID uuid.NullUUID
	if order.CustomerID != nil {
		customerID = uuid.NullUUID{UUID: *order.CustomerID, Valid: true}
	}

	shippingInfo := order.ShippingInfo
	if shippingInfo == nil {
		shippingInfo = json.RawMessage(`{}`)
	}

	err := tx.QueryRowContext(ctx, query,
		customerID,
		order.CustomerName,
		order.CustomerEmail,
		order.DeliveryCharge,
		order.PaymentMode,
		order.TotalAmount,
		[]byte(shippingInfo),
		domain.OrderPending,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("tx.QueryRowContext: %w", err)
	}

	order.OrderStatus = domain.OrderPending
	return nil
}

func (r *orderRepo) CreateOrderItem(ctx context.Context, tx *sql.Tx, item *domain.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, quantity, price, name, image, color, sizes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	sizes, err := json.Marshal(item.Sizes)
	if err != nil {
		return fmt.Errorf("json.Marshal sizes: %w", err)
	}

	err = tx.QueryRowContext(ctx, query,
		item.OrderID,
		item.ProductID,
		item.Quantity,
		item.Price,
		item.Name,
		item.Image,
		item.Color,
		sizes,
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return fmt.Errorf("tx.QueryRowContext: %w", err)
	}

	return nil
}

func (r *orderRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order[%s]: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanOrder: %w", err)
	}

	items, err := r.findItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("r.findItems: %w", err)
	}
	order.Items = items

	return order, nil
}

// findItems loads the order's item snapshots joined with the current product
// rows, so callers see both the price at order time and the catalog as it is
// now.
func (r *orderRepo) findItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	query := `
		SELECT i.id, i.order_id, i.product_id, i.quantity, i.price, i.name, i.image, i.color, i.sizes, i.created_at,
		       p.id, p.name, p.image, p.color, p.price, p.stock, p.created_at, p.updated_at
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = $1
		ORDER BY i.created_at
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("db.QueryContext: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var (
			item    domain.OrderItem
			product domain.Product
			sizes   []byte
		)
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price,
			&item.Name, &item.Image, &item.Color, &sizes, &item.CreatedAt,
			&product.ID, &product.Name, &product.Image, &product.Color,
			&product.Price, &product.Stock, &product.CreatedAt, &product.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}

		if err := json.Unmarshal(sizes, &item.Sizes); err != nil {
			return nil, fmt.Errorf("json.Unmarshal sizes: %w", err)
		}

		item.Product = &product
		items = append(items, item)
	}

	return items, rows.Err()
}

func (r *orderRepo) FindByCustomerEmail(ctx context.Context, email string) ([]domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE customer_email = $1 ORDER BY created_at DESC`, orderColumns)

	rows, err := r.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("db.QueryContext: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

// sortColumns whitelists client-supplied sort keys.
var sortColumns = map[string]string{
	"createdAt":    "created_at",
	"totalAmount":  "total_amount",
	"customerName": "customer_name",
	"orderStatus":  "order_status",
}

func (r *orderRepo) Search(ctx context.Context, filter domain.OrderFilter, page domain.Pagination) ([]domain.Order, int64, error) {
	page = page.Normalize()

	where := "TRUE"
	var args []any

	if filter.SearchTerm != "" {
		args = append(args, "%"+filter.SearchTerm+"%")
		where += fmt.Sprintf(" AND (customer_name ILIKE $%d OR customer_email ILIKE $%d)", len(args), len(args))
	}
	if filter.OrderStatus != nil {
		args = append(args, *filter.OrderStatus)
		where += fmt.Sprintf(" AND order_status = $%d", len(args))
	}
	if filter.CustomerEmail != "" {
		args = append(args, filter.CustomerEmail)
		where += fmt.Sprintf(" AND customer_email = $%d", len(args))
	}

	var total int64
	countQuery := fmt.Sprintf(`SELECT count(*) FROM orders WHERE %s`, where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	sortColumn, ok := sortColumns[page.SortBy]
	if !ok {
		sortColumn = "created_at"
	}
	direction := "DESC"
	if page.SortOrder == domain.SortAsc {
		direction = "ASC"
	}

	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		orderColumns, where, sortColumn, direction, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("db.QueryContext: %w", err)
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("collectOrders: %w", err)
	}

	return orders, total, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	return r.updateStatus(ctx, r.db, id, status)
}

func (r *orderRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.OrderStatus) error {
	return r.updateStatus(ctx, tx, id, status)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *orderRepo) updateStatus(ctx context.Context, ex execer, id uuid.UUID, status domain.OrderStatus) error {
	query := `UPDATE orders SET order_status = $2, updated_at = now() WHERE id = $1`

	res, err := ex.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("ExecContext: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("res.RowsAffected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("order[%s]: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (r *orderRepo) Delete(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return fmt.Errorf("delete order_items: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("res.RowsAffected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("order[%s]: %w", id, domain.ErrNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order        domain.Order
		customerID   uuid.NullUUID
		shippingInfo []byte
		status       string
	)

	err := row.Scan(
		&order.ID,
		&customerID,
		&order.CustomerName,
		&order.CustomerEmail,
		&order.DeliveryCharge,
		&order.PaymentMode,
		&order.TotalAmount,
		&shippingInfo,
		&status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if customerID.Valid {
		id := customerID.UUID
		order.CustomerID = &id
	}
	order.ShippingInfo = shippingInfo

	order.OrderStatus, err = domain.ToOrderStatus(status)
	if err != nil {
		return nil, err
	}

	return &order, nil
}

func collectOrders(rows *sql.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanOrder: %w", err)
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}
