package service_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"stitchkart/internal/domain"
)

func startPostgres(ctx context.Context) (testcontainers.Container, string, error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithInitScripts(filepath.Join("..", "..", "db", "schema.sql")),
		postgres.WithDatabase("stitchkart"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return container, "", err
	}

	return container, connStr, nil
}

type requireT interface {
	require.TestingT
	Helper()
	Context() context.Context
}

func insertProduct(t requireT, db *sql.DB, stock int32) domain.Product {
	t.Helper()

	product := domain.Product{
		ID:    uuid.New(),
		Name:  gofakeit.ProductName(),
		Image: gofakeit.URL(),
		Color: gofakeit.Color(),
		Price: decimal.NewFromInt(250),
		Stock: stock,
	}

	_, err := db.ExecContext(t.Context(),
		`INSERT INTO products (id, name, image, color, price, stock) VALUES ($1, $2, $3, $4, $5, $6)`,
		product.ID, product.Name, product.Image, product.Color, product.Price, product.Stock,
	)
	require.NoError(t, err)

	return product
}

func productStock(t requireT, db *sql.DB, productID uuid.UUID) int32 {
	t.Helper()

	var stock int32
	err := db.QueryRowContext(t.Context(), `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock)
	require.NoError(t, err)

	return stock
}
