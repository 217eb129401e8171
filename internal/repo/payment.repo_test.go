package repo_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"

	"stitchkart/internal/database"
	"stitchkart/internal/domain"
	"stitchkart/internal/repo"
)

type paymentRepoSuite struct {
	suite.Suite

	container testcontainers.Container
	db        *sql.DB

	orders   repo.OrderRepo
	payments repo.PaymentRepo
}

func TestPaymentRepoSuite(t *testing.T) {
	suite.Run(t, new(paymentRepoSuite))
}

func (s *paymentRepoSuite) SetupSuite() {
	ctx := s.T().Context()

	var (
		connStr string
		err     error
	)
	s.container, connStr, err = startPostgres(ctx)
	s.Require().NoError(err)

	s.db, err = database.NewPostgres(connStr)
	s.Require().NoError(err)

	s.orders = repo.NewOrderRepo(s.db)
	s.payments = repo.NewPaymentRepo(s.db)
}

func (s *paymentRepoSuite) TearDownSuite() {
	ctx := context.Background()

	if s.db != nil {
		s.NoError(s.db.Close())
	}
	if s.container != nil {
		s.NoError(s.container.Terminate(ctx))
	}
}

// createPayment persists an order with an UNPAID payment and returns both.
func (s *paymentRepoSuite) createPayment(amount decimal.Decimal) (domain.Order, domain.Payment) {
	s.T().Helper()
	ctx := s.T().Context()

	order := randomOrder()

	tx, err := s.db.BeginTx(ctx, nil)
	s.Require().NoError(err)
	defer tx.Rollback()

	s.Require().NoError(s.orders.CreateOrder(ctx, tx, &order))

	payment := domain.Payment{
		OrderID: order.ID,
		Amount:  amount,
		Status:  domain.PaymentUnpaid,
	}
	s.Require().NoError(s.payments.Create(ctx, tx, &payment))
	s.Require().NoError(tx.Commit())

	return order, payment
}

func (s *paymentRepoSuite) TestCreateAndFindByOrderId() {
	t := s.T()
	ctx := t.Context()

	order, payment := s.createPayment(decimal.NewFromInt(500))

	got, err := s.payments.FindByOrderId(ctx, order.ID)
	require.NoError(t, err)

	assert.Equal(t, payment.ID, got.ID)
	assert.Equal(t, order.ID, got.OrderID)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, domain.PaymentUnpaid, got.Status)
	assert.Nil(t, got.TransactionID)

	_, err = s.payments.FindByOrderId(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func (s *paymentRepoSuite) TestSetTransactionId() {
	t := s.T()
	ctx := t.Context()

	_, payment := s.createPayment(decimal.NewFromInt(100))

	require.NoError(t, s.payments.SetTransactionId(ctx, payment.ID, "TNI-1-42"))

	got, err := s.payments.FindByTransactionId(ctx, "TNI-1-42")
	require.NoError(t, err)
	assert.Equal(t, payment.ID, got.ID)

	err = s.payments.SetTransactionId(ctx, uuid.New(), "TNI-1-43")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func (s *paymentRepoSuite) TestMarkPaid() {
	t := s.T()
	ctx := t.Context()

	order, payment := s.createPayment(decimal.NewFromInt(250))
	require.NoError(t, s.payments.SetTransactionId(ctx, payment.ID, "TNI-2-7"))

	payload := json.RawMessage(`{"tran_id":"TNI-2-7","status":"VALID","card_type":"VISA"}`)

	tx, err := s.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	gotOrderID, err := s.payments.MarkPaid(ctx, tx, "TNI-2-7", payload)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, order.ID, gotOrderID)

	got, err := s.payments.FindByTransactionId(ctx, "TNI-2-7")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, got.Status)
	assert.JSONEq(t, string(payload), string(got.GatewayData))

	// unknown transaction id
	tx, err = s.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()
	_, err = s.payments.MarkPaid(ctx, tx, "TNI-none", payload)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func (s *paymentRepoSuite) TestMarkFailed() {
	t := s.T()
	ctx := t.Context()

	order, payment := s.createPayment(decimal.NewFromInt(80))

	tx, err := s.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, s.payments.MarkFailed(ctx, tx, payment.ID, json.RawMessage(`{"status":"FAILED"}`)))
	require.NoError(t, tx.Commit())

	got, err := s.payments.FindByOrderId(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentFailed, got.Status)
}

func (s *paymentRepoSuite) TestDelete() {
	t := s.T()
	ctx := t.Context()

	order, payment := s.createPayment(decimal.NewFromInt(75))

	tx, err := s.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, s.payments.Delete(ctx, tx, payment.ID))
	require.NoError(t, tx.Commit())

	_, err = s.payments.FindByOrderId(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	tx, err = s.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()
	err = s.payments.Delete(ctx, tx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func (s *paymentRepoSuite) TestFindUnpaidBefore() {
	t := s.T()
	ctx := t.Context()

	_, payment := s.createPayment(decimal.NewFromInt(10))

	unpaid, err := s.payments.FindUnpaidBefore(ctx, time.Now().Add(time.Minute), 100)
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(unpaid))
	for _, p := range unpaid {
		ids = append(ids, p.ID)
	}
	assert.Contains(t, ids, payment.ID)

	unpaid, err = s.payments.FindUnpaidBefore(ctx, time.Now().Add(-time.Hour), 100)
	require.NoError(t, err)
	assert.Empty(t, unpaid)
}
