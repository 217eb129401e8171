package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stitchkart/internal/domain"
	"stitchkart/internal/infrastructure/payment"
	"stitchkart/internal/metrics"
	"stitchkart/internal/repo"
)

// CompensationPolicy decides what a failed settlement does to the tentative
// order: remove it outright, or keep it with FAILED/CANCELLED statuses.
type CompensationPolicy string

const (
	CompensationDelete CompensationPolicy = "delete"
	CompensationCancel CompensationPolicy = "cancel"
)

func ToCompensationPolicy(s string) CompensationPolicy {
	if CompensationPolicy(s) == CompensationCancel {
		return CompensationCancel
	}
	return CompensationDelete
}

// gatewayStatusValid is the only callback status the gateway vocabulary
// defines as success; anything else, including absent, is failure.
const gatewayStatusValid = "VALID"

// CallbackResult is the informational reply for the validate endpoint. The
// failure branches deliberately reply with a message instead of an error so
// the gateway does not retry.
type CallbackResult struct {
	Message string `json:"message"`
}

type PaymentService interface {
	// InitPayment creates a hosted gateway session for the order's unpaid
	// payment and returns the page URL the customer is redirected to.
	InitPayment(ctx context.Context, orderID uuid.UUID) (string, error)
	// Validate reconciles an asynchronous gateway callback against
	// payment/order state.
	Validate(ctx context.Context, payload json.RawMessage) (CallbackResult, error)
}

type paymentService struct {
	db           *sql.DB
	orderRepo    repo.OrderRepo
	paymentRepo  repo.PaymentRepo
	gateway      payment.Gateway
	compensation CompensationPolicy
	metrics      *metrics.Metrics
	log          *zap.Logger
}

func NewPaymentService(
	db *sql.DB,
	orderRepo repo.OrderRepo,
	paymentRepo repo.PaymentRepo,
	gateway payment.Gateway,
	compensation CompensationPolicy,
	m *metrics.Metrics,
	log *zap.Logger,
) PaymentService {
	return &paymentService{
		db:           db,
		orderRepo:    orderRepo,
		paymentRepo:  paymentRepo,
		gateway:      gateway,
		compensation: compensation,
		metrics:      m,
		log:          log,
	}
}

// newTransactionID builds the caller-side correlation token handed to the
// gateway before the session starts.
func newTransactionID() string {
	return fmt.Sprintf("TNI-%d-%d", time.Now().UnixMilli(), rand.IntN(1000))
}

func (s *paymentService) InitPayment(ctx context.Context, orderID uuid.UUID) (string, error) {
	pay, err := s.paymentRepo.FindByOrderId(ctx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.ErrPaymentMissing
	}
	if err != nil {
		return "", fmt.Errorf("paymentRepo.FindByOrderId: %w", err)
	}

	if pay.Status == domain.PaymentPaid {
		return "", domain.ErrAlreadyPaid
	}

	order, err := s.orderRepo.FindById(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("orderRepo.FindById: %w", err)
	}

	transactionID := newTransactionID()
	if err := s.paymentRepo.SetTransactionId(ctx, pay.ID, transactionID); err != nil {
		return "", fmt.Errorf("paymentRepo.SetTransactionId: %w", err)
	}

	session, err := s.gateway.InitSession(ctx, payment.SessionRequest{
		Amount:        pay.Amount,
		TransactionID: transactionID,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
	})
	if err != nil {
		s.metrics.GatewaySession("error")
		return "", fmt.Errorf("gateway.InitSession: %w", err)
	}

	s.metrics.GatewaySession("ok")
	s.log.Info("payment session initiated",
		zap.String("order_id", orderID.String()),
		zap.String("transaction_id", transactionID),
	)

	return session.GatewayPageURL, nil
}

// callbackFields is the portion of the gateway payload the state machine
// depends on; the rest is stored opaquely.
type callbackFields struct {
	TranID string `json:"tran_id"`
	Status string `json:"status"`
}

func (s *paymentService) Validate(ctx context.Context, payload json.RawMessage) (CallbackResult, error) {
	var fields callbackFields
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &fields); err != nil {
			return CallbackResult{Message: "Invalid Payment Payload"}, nil
		}
	}

	if fields.TranID == "" {
		return CallbackResult{Message: "Invalid Payment Payload"}, nil
	}

	if fields.Status != gatewayStatusValid {
		return s.compensate(ctx, fields.TranID, payload)
	}

	return s.settle(ctx, fields.TranID, payload)
}

func (s *paymentService) settle(ctx context.Context, transactionID string, payload json.RawMessage) (CallbackResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return CallbackResult{}, fmt.Errorf("db.BeginTx: %w", err)
	}
	defer tx.Rollback()

	orderID, err := s.paymentRepo.MarkPaid(ctx, tx, transactionID, payload)
	if errors.Is(err, domain.ErrNotFound) {
		// Unknown transaction on the success path: nothing to settle.
		return CallbackResult{Message: "Invalid Payment!"}, nil
	}
	if err != nil {
		return CallbackResult{}, fmt.Errorf("paymentRepo.MarkPaid: %w", err)
	}

	if err := s.orderRepo.UpdateStatusTx(ctx, tx, orderID, domain.OrderConfirmed); err != nil {
		return CallbackResult{}, fmt.Errorf("orderRepo.UpdateStatusTx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return CallbackResult{}, fmt.Errorf("tx.Commit: %w", err)
	}

	s.metrics.PaymentSettled("paid")
	s.log.Info("payment settled",
		zap.String("transaction_id", transactionID),
		zap.String("order_id", orderID.String()),
	)

	return CallbackResult{Message: "Payment Success"}, nil
}

// compensate reverses the tentative order after a failed or cancelled
// payment. The reply is the same whether or not a matching payment exists;
// gateway retries of an already-compensated transaction stay idempotent.
func (s *paymentService) compensate(ctx context.Context, transactionID string, payload json.RawMessage) (CallbackResult, error) {
	result := CallbackResult{Message: "Payment failed or cancelled, order removed"}

	pay, err := s.paymentRepo.FindByTransactionId(ctx, transactionID)
	if errors.Is(err, domain.ErrNotFound) {
		return result, nil
	}
	if err != nil {
		return CallbackResult{}, fmt.Errorf("paymentRepo.FindByTransactionId: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return CallbackResult{}, fmt.Errorf("db.BeginTx: %w", err)
	}
	defer tx.Rollback()

	switch s.compensation {
	case CompensationCancel:
		if err := s.paymentRepo.MarkFailed(ctx, tx, pay.ID, payload); err != nil {
			return CallbackResult{}, fmt.Errorf("paymentRepo.MarkFailed: %w", err)
		}
		if err := s.orderRepo.UpdateStatusTx(ctx, tx, pay.OrderID, domain.OrderCancelled); err != nil {
			return CallbackResult{}, fmt.Errorf("orderRepo.UpdateStatusTx: %w", err)
		}
	default:
		if err := s.paymentRepo.Delete(ctx, tx, pay.ID); err != nil {
			return CallbackResult{}, fmt.Errorf("paymentRepo.Delete: %w", err)
		}
		if err := s.orderRepo.Delete(ctx, tx, pay.OrderID); err != nil {
			return CallbackResult{}, fmt.Errorf("orderRepo.Delete: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return CallbackResult{}, fmt.Errorf("tx.Commit: %w", err)
	}

	s.metrics.PaymentSettled("compensated")
	s.log.Info("payment compensated",
		zap.String("transaction_id", transactionID),
		zap.String("order_id", pay.OrderID.String()),
		zap.String("policy", string(s.compensation)),
	)

	return result, nil
}
