package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stitchkart/internal/domain"
)

type PaymentRepo interface {
	Create(ctx context.Context, tx *sql.Tx, payment *domain.Payment) error

	FindByOrderId(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error)
	FindByTransactionId(ctx context.Context, transactionID string) (*domain.Payment, error)
	// FindUnpaidBefore lists UNPAID payments created before the given time,
	// used by the reconciliation sweep.
	FindUnpaidBefore(ctx context.Context, before time.Time, limit int) ([]domain.Payment, error)

	SetTransactionId(ctx context.Context, paymentID uuid.UUID, transactionID string) error
	// MarkPaid settles the payment identified by the gateway transaction id
	// inside the caller's transaction and returns the owning order id.
	MarkPaid(ctx context.Context, tx *sql.Tx, transactionID string, gatewayData []byte) (uuid.UUID, error)
	MarkFailed(ctx context.Context, tx *sql.Tx, paymentID uuid.UUID, gatewayData []byte) error

	Delete(ctx context.Context, tx *sql.Tx, paymentID uuid.UUID) error
}

type paymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) PaymentRepo {
	return &paymentRepo{db: db}
}

const paymentColumns = `id, order_id, amount, status, transaction_id, payment_gateway_data, created_at, updated_at`

func (r *paymentRepo) Create(ctx context.Context, tx *sql.Tx, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (order_id, amount, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRowContext(ctx, query,
		payment.OrderID,
		payment.Amount,
		payment.Status,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("tx.QueryRowContext: %w", err)
	}

	return nil
}

func (r *paymentRepo) FindByOrderId(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE order_id = $1`, paymentColumns)
	return r.findOne(ctx, query, orderID)
}

func (r *paymentRepo) FindByTransactionId(ctx context.Context, transactionID string) (*domain.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE transaction_id = $1`, paymentColumns)
	return r.findOne(ctx, query, transactionID)
}

func (r *paymentRepo) findOne(ctx context.Context, query string, arg any) (*domain.Payment, error) {
	payment, err := scanPayment(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment[%v]: %w", arg, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanPayment: %w", err)
	}
	return payment, nil
}

func (r *paymentRepo) FindUnpaidBefore(ctx context.Context, before time.Time, limit int) ([]domain.Payment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM payments
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3
	`, paymentColumns)

	rows, err := r.db.QueryContext(ctx, query, domain.PaymentUnpaid, before, limit)
	if err != nil {
		return nil, fmt.Errorf("db.QueryContext: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanPayment: %w", err)
		}
		payments = append(payments, *payment)
	}

	return payments, rows.Err()
}

func (r *paymentRepo) SetTransactionId(ctx context.Context, paymentID uuid.UUID, transactionID string) error {
	query := `UPDATE payments SET transaction_id = $2, updated_at = now() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, paymentID, transactionID)
	if err != nil {
		return fmt.Errorf("db.ExecContext: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("res.RowsAffected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("payment[%s]: %w", paymentID, domain.ErrNotFound)
	}

	return nil
}

func (r *paymentRepo) MarkPaid(ctx context.Context, tx *sql.Tx, transactionID string, gatewayData []byte) (uuid.UUID, error) {
	query := `
		UPDATE payments
		SET status = $2,
		    payment_gateway_data = $3,
		    updated_at = now()
		WHERE transaction_id = $1
		RETURNING order_id
	`

	var orderID uuid.UUID
	err := tx.QueryRowContext(ctx, query, transactionID, domain.PaymentPaid, gatewayData).Scan(&orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("payment[%s]: %w", transactionID, domain.ErrNotFound)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("tx.QueryRowContext: %w", err)
	}

	return orderID, nil
}

func (r *paymentRepo) MarkFailed(ctx context.Context, tx *sql.Tx, paymentID uuid.UUID, gatewayData []byte) error {
	query := `
		UPDATE payments
		SET status = $2,
		    payment_gateway_data = $3,
		    updated_at = now()
		WHERE id = $1
	`

	if _, err := tx.ExecContext(ctx, query, paymentID, domain.PaymentFailed, gatewayData); err != nil {
		return fmt.Errorf("tx.ExecContext: %w", err)
	}

	return nil
}

func (r *paymentRepo) Delete(ctx context.Context, tx *sql.Tx, paymentID uuid.UUID) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, paymentID)
	if err != nil {
		return fmt.Errorf("tx.ExecContext: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("res.RowsAffected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("payment[%s]: %w", paymentID, domain.ErrNotFound)
	}

	return nil
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var (
		payment       domain.Payment
		transactionID sql.NullString
		gatewayData   []byte
	)

	err := row.Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.Amount,
		&payment.Status,
		&transactionID,
		&gatewayData,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if transactionID.Valid {
		payment.TransactionID = &transactionID.String
	}
	payment.GatewayData = gatewayData

	return &payment, nil
}
