package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderShipped   OrderStatus = "SHIPPED"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCancelled OrderStatus = "CANCELLED"
)

var validOrderStatuses = map[OrderStatus]struct{}{
	OrderPending:   {},
	OrderConfirmed: {},
	OrderShipped:   {},
	OrderDelivered: {},
	OrderCancelled: {},
}

func ToOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := validOrderStatuses[status]; ok {
		return status, nil
	}
	return "", fmt.Errorf("invalid order status: %q", s)
}

type PaymentMode string

const (
	PaymentModeFull         PaymentMode = "FULL_PAYMENT"
	PaymentModeDeliveryOnly PaymentMode = "DELIVERY_ONLY"
	PaymentModeCOD          PaymentMode = "COD"
)

var validPaymentModes = map[PaymentMode]struct{}{
	PaymentModeFull:         {},
	PaymentModeDeliveryOnly: {},
	PaymentModeCOD:          {},
}

func ToPaymentMode(s string) (PaymentMode, error) {
	mode := PaymentMode(s)
	if _, ok := validPaymentModes[mode]; ok {
		return mode, nil
	}
	return "", fmt.Errorf("invalid payment mode: %q", s)
}

// Order is the aggregate root: an order row together with its items and, for
// non-COD orders, exactly one payment.
type Order struct {
	ID             uuid.UUID       `json:"id"`
	CustomerID     *uuid.UUID      `json:"customerId"` // nil for guest checkout
	CustomerName   string          `json:"customerName"`
	CustomerEmail  string          `json:"customerEmail"`
	DeliveryCharge decimal.Decimal `json:"deliveryCharge"`
	PaymentMode    PaymentMode     `json:"paymentMode"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	ShippingInfo   json.RawMessage `json:"shippingInfo"`
	OrderStatus    OrderStatus     `json:"orderStatus"`
	Items          []OrderItem     `json:"items"`
	Payment        *Payment        `json:"payment"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// OrderItem snapshots product data at order time so later catalog edits do not
// rewrite order history. Immutable once created.
type OrderItem struct {
	ID        uuid.UUID       `json:"id"`
	OrderID   uuid.UUID       `json:"orderId"`
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int32           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Color     string          `json:"color"`
	Sizes     Sizes           `json:"sizes"`
	Product   *Product        `json:"product,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Sizes accepts either a JSON array of strings or a single scalar string,
// which is wrapped into a one-element slice.
type Sizes []string

func (s *Sizes) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*s = many
		return nil
	}

	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return errors.New("sizes must be a string or an array of strings")
	}

	*s = Sizes{one}
	return nil
}
