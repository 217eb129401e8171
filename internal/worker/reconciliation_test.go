package worker_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"stitchkart/internal/database"
	"stitchkart/internal/domain"
	"stitchkart/internal/repo"
	"stitchkart/internal/service"
	"stitchkart/internal/worker"
)

type reconciliationSuite struct {
	suite.Suite

	container testcontainers.Container
	db        *sql.DB

	orders   repo.OrderRepo
	payments repo.PaymentRepo
}

func TestReconciliationSuite(t *testing.T) {
	suite.Run(t, new(reconciliationSuite))
}

func (s *reconciliationSuite) SetupSuite() {
	ctx := s.T().Context()

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
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.db, err = database.NewPostgres(connStr)
	s.Require().NoError(err)

	s.orders = repo.NewOrderRepo(s.db)
	s.payments = repo.NewPaymentRepo(s.db)
}

func (s *reconciliationSuite) TearDownSuite() {
	ctx := context.Background()

	if s.db != nil {
		s.NoError(s.db.Close())
	}
	if s.container != nil {
		s.NoError(s.container.Terminate(ctx))
	}
}

// unpaidPayment persists a PENDING order with an UNPAID payment whose
// created_at lies the given duration in the past.
func (s *reconciliationSuite) unpaidPayment(age time.Duration) (domain.Order, domain.Payment) {
	s.T().Helper()
	ctx := s.T().Context()

	order := domain.Order{
		CustomerName:   gofakeit.Name(),
		CustomerEmail:  gofakeit.Email(),
		DeliveryCharge: decimal.NewFromInt(60),
		PaymentMode:    domain.PaymentModeFull,
		TotalAmount:    decimal.NewFromInt(500),
		ShippingInfo:   json.RawMessage(`{"city":"Dhaka"}`),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	s.Require().NoError(err)
	defer tx.Rollback()

	s.Require().NoError(s.orders.CreateOrder(ctx, tx, &order))

	pay := domain.Payment{
		OrderID: order.ID,
		Amount:  decimal.NewFromInt(500),
		Status:  domain.PaymentUnpaid,
	}
	s.Require().NoError(s.payments.Create(ctx, tx, &pay))
	s.Require().NoError(tx.Commit())

	if age > 0 {
		_, err = s.db.ExecContext(ctx,
			`UPDATE payments SET created_at = now() - $2::interval WHERE id = $1`,
			pay.ID, age.String())
		s.Require().NoError(err)
	}

	return order, pay
}

// run starts the worker and returns a stop function that cancels it and
// waits for Run to return.
func (s *reconciliationSuite) run(policy service.CompensationPolicy) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	w := worker.NewReconciliationWorker(
		s.db, s.orders, s.payments, policy,
		20*time.Millisecond, 30*time.Minute, zap.NewNop(),
	)

	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			s.T().Fatal("worker did not stop after cancel")
		}
	}
}

func (s *reconciliationSuite) TestSweepDeletesAbandoned() {
	t := s.T()
	ctx := t.Context()
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	abandonedOrder, abandoned := s.unpaidPayment(time.Hour)
	freshOrder, _ := s.unpaidPayment(0)

	stop := s.run(service.CompensationDelete)
	defer stop()

	require.Eventually(t, func() bool {
		_, err := s.payments.FindByOrderId(ctx, abandonedOrder.ID)
		return errors.Is(err, domain.ErrNotFound)
	}, 5*time.Second, 25*time.Millisecond, "abandoned payment %s not swept", abandoned.ID)

	_, err := s.orders.FindById(ctx, abandonedOrder.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// A payment still inside the cutoff window is untouched.
	fresh, err := s.payments.FindByOrderId(ctx, freshOrder.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentUnpaid, fresh.Status)
}

func (s *reconciliationSuite) TestSweepCancelPolicy() {
	t := s.T()
	ctx := t.Context()

	order, _ := s.unpaidPayment(time.Hour)

	stop := s.run(service.CompensationCancel)
	defer stop()

	require.Eventually(t, func() bool {
		pay, err := s.payments.FindByOrderId(ctx, order.ID)
		return err == nil && pay.Status == domain.PaymentFailed
	}, 5*time.Second, 25*time.Millisecond)

	got, err := s.orders.FindById(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, got.OrderStatus)
}
