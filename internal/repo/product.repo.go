package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"stitchkart/internal/domain"
)

type ProductRepo interface {
	FindById(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	// DecrementStock subtracts quantity from the product's stock inside the
	// caller's transaction. The decrement is conditional: it fails with
	// domain.ErrInsufficientStock rather than driving stock negative.
	DecrementStock(ctx context.Context, tx *sql.Tx, productID uuid.UUID, quantity int32) error
}

type productRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) ProductRepo {
	return &productRepo{db: db}
}

func (r *productRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT id, name, image, color, price, stock, created_at, updated_at FROM products WHERE id = $1`

	var p domain.Product
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Image,
		&p.Color,
		&p.Price,
		&p.Stock,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product[%s]: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("row.Scan: %w", err)
	}

	return &p, nil
}

func (r *productRepo) DecrementStock(ctx context.Context, tx *sql.Tx, productID uuid.UUID, quantity int32) error {
	query := `
		UPDATE products
		SET stock = stock - $2,
		    updated_at = now()
		WHERE id = $1 AND stock >= $2
	`

	res, err := tx.ExecContext(ctx, query, productID, quantity)
	if err != nil {
		return fmt.Errorf("tx.ExecContext: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("res.RowsAffected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Distinguish a missing product from a guarded decrement.
	var stock int32
	err = tx.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("product[%s]: %w", productID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("row.Scan: %w", err)
	}

	return fmt.Errorf("product[%s] stock %d < %d: %w", productID, stock, quantity, domain.ErrInsufficientStock)
}
