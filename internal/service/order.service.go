package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stitchkart/internal/domain"
	"stitchkart/internal/metrics"
	"stitchkart/internal/repo"
)

// CreateOrderInput is the validated cart submission. TotalAmount is trusted
// from the caller and not re-derived from the items.
type CreateOrderInput struct {
	CustomerID     *uuid.UUID
	CustomerName   string
	CustomerEmail  string
	DeliveryCharge decimal.Decimal
	PaymentMode    domain.PaymentMode
	TotalAmount    decimal.Decimal
	ShippingInfo   json.RawMessage
	Items          []CreateOrderItemInput
}

type CreateOrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int32
	Price     decimal.Decimal
	Name      string
	Image     string
	Color     string
	Sizes     domain.Sizes
}

type OrderService interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetCustomerOrders(ctx context.Context, email string) ([]domain.Order, error)
	SearchOrders(ctx context.Context, filter domain.OrderFilter, page domain.Pagination) ([]domain.Order, int64, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

type orderService struct {
	db          *sql.DB
	orderRepo   repo.OrderRepo
	paymentRepo repo.PaymentRepo
	productRepo repo.ProductRepo
	metrics     *metrics.Metrics
	log         *zap.Logger
}

func NewOrderService(
	db *sql.DB,
	orderRepo repo.OrderRepo,
	paymentRepo repo.PaymentRepo,
	productRepo repo.ProductRepo,
	m *metrics.Metrics,
	log *zap.Logger,
) OrderService {
	return &orderService{
		db:          db,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		productRepo: productRepo,
		metrics:     m,
		log:         log,
	}
}

// upfrontAmount is the portion collected immediately via the gateway. COD
// collects nothing upfront and gets no payment row at all.
func upfrontAmount(mode domain.PaymentMode, total, deliveryCharge decimal.Decimal) decimal.Decimal {
	switch mode {
	case domain.PaymentModeFull:
		return total
	case domain.PaymentModeDeliveryOnly:
		return deliveryCharge
	default:
		return decimal.Zero
	}
}

// CreateOrder persists the order, its item snapshots, the payment obligation
// for non-COD modes, and the stock decrements in a single transaction. Any
// failure rolls the whole aggregate back.
func (s *orderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	if len(input.Items) == 0 {
		return nil, errors.New("no items in order")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("db.BeginTx: %w", err)
	}
	defer tx.Rollback()

	order := &domain.Order{
		CustomerID:     input.CustomerID,
		CustomerName:   input.CustomerName,
		CustomerEmail:  input.CustomerEmail,
		DeliveryCharge: input.DeliveryCharge,
		PaymentMode:    input.PaymentMode,
		TotalAmount:    input.TotalAmount,
		ShippingInfo:   input.ShippingInfo,
	}

	if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("orderRepo.CreateOrder: %w", err)
	}

	for _, in := range input.Items {
		item := &domain.OrderItem{
			OrderID:   order.ID,
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			Price:     in.Price,
			Name:      in.Name,
			Image:     in.Image,
			Color:     in.Color,
			Sizes:     in.Sizes,
		}
		if err := s.orderRepo.CreateOrderItem(ctx, tx, item); err != nil {
			return nil, fmt.Errorf("orderRepo.CreateOrderItem: %w", err)
		}
	}

	if input.PaymentMode != domain.PaymentModeCOD {
		payment := &domain.Payment{
			OrderID: order.ID,
			Amount:  upfrontAmount(input.PaymentMode, input.TotalAmount, input.DeliveryCharge),
			Status:  domain.PaymentUnpaid,
		}
		if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
			return nil, fmt.Errorf("paymentRepo.Create: %w", err)
		}
	}

	for _, in := range input.Items {
		if err := s.productRepo.DecrementStock(ctx, tx, in.ProductID, in.Quantity); err != nil {
			return nil, fmt.Errorf("productRepo.DecrementStock: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("tx.Commit: %w", err)
	}

	s.metrics.OrderCreated()
	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_mode", string(order.PaymentMode)),
	)

	return s.GetOrder(ctx, order.ID)
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindById(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("orderRepo.FindById: %w", err)
	}

	payment, err := s.paymentRepo.FindByOrderId(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("paymentRepo.FindByOrderId: %w", err)
	}
	order.Payment = payment

	return order, nil
}

func (s *orderService) GetCustomerOrders(ctx context.Context, email string) ([]domain.Order, error) {
	orders, err := s.orderRepo.FindByCustomerEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("orderRepo.FindByCustomerEmail: %w", err)
	}
	return orders, nil
}

func (s *orderService) SearchOrders(ctx context.Context, filter domain.OrderFilter, page domain.Pagination) ([]domain.Order, int64, error) {
	orders, total, err := s.orderRepo.Search(ctx, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("orderRepo.Search: %w", err)
	}
	return orders, total, nil
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	if err := s.orderRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("orderRepo.UpdateStatus: %w", err)
	}
	return s.GetOrder(ctx, id)
}

// DeleteOrder removes the order and its items. The payment row, if any, goes
// first to satisfy the foreign key. Stock is not restored.
func (s *orderService) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db.BeginTx: %w", err)
	}
	defer tx.Rollback()

	payment, err := s.paymentRepo.FindByOrderId(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("paymentRepo.FindByOrderId: %w", err)
	}
	if payment != nil {
		if err := s.paymentRepo.Delete(ctx, tx, payment.ID); err != nil {
			return fmt.Errorf("paymentRepo.Delete: %w", err)
		}
	}

	if err := s.orderRepo.Delete(ctx, tx, id); err != nil {
		return fmt.Errorf("orderRepo.Delete: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx.Commit: %w", err)
	}

	s.metrics.OrderDeleted()
	s.log.Info("order deleted", zap.String("order_id", id.String()))

	return nil
}
