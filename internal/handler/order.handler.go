package handler

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stitchkart/internal/domain"
	"stitchkart/internal/service"
)

var errMissingEmail = errors.New("email is required")

type OrderHandler struct {
	orders service.OrderService
}

func NewOrderHandler(orders service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

func (h *OrderHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/orders", h.create)
	r.GET("/orders", h.list)
	r.GET("/orders/my", h.myOrders)
	r.GET("/orders/:id", h.getById)
	r.PATCH("/orders/status/:id", h.updateStatus)
	r.DELETE("/orders/:id", h.delete)
}

type createOrderItemRequest struct {
	ProductID string          `json:"productId" binding:"required,uuid"`
	Quantity  int32           `json:"quantity" binding:"required,gt=0"`
	Price     decimal.Decimal `json:"price"`
	Name      string          `json:"name" binding:"required"`
	Image     string          `json:"image"`
	Color     string          `json:"color"`
	Sizes     domain.Sizes    `json:"sizes" binding:"required,min=1"`
}

type createOrderRequest struct {
	CustomerName   string                   `json:"customerName" binding:"required"`
	CustomerEmail  string                   `json:"customerEmail" binding:"required,email"`
	CustomerID     *string                  `json:"customerId" binding:"omitempty,uuid"`
	DeliveryCharge decimal.Decimal          `json:"deliveryCharge"`
	PaymentMode    string                   `json:"paymentMode" binding:"required"`
	TotalAmount    decimal.Decimal          `json:"totalAmount"`
	ShippingInfo   json.RawMessage          `json:"shippingInfo"`
	Items          []createOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

func (h *OrderHandler) create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendValidationError(c, err)
		return
	}

	mode, err := domain.ToPaymentMode(req.PaymentMode)
	if err != nil {
		sendValidationError(c, err)
		return
	}

	input := service.CreateOrderInput{
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		DeliveryCharge: req.DeliveryCharge,
		PaymentMode:    mode,
		TotalAmount:    req.TotalAmount,
		ShippingInfo:   req.ShippingInfo,
	}

	if req.CustomerID != nil {
		id, err := uuid.Parse(*req.CustomerID)
		if err != nil {
			sendValidationError(c, err)
			return
		}
		input.CustomerID = &id
	}

	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			sendValidationError(c, err)
			return
		}
		input.Items = append(input.Items, service.CreateOrderItemInput{
			ProductID: productID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Name:      item.Name,
			Image:     item.Image,
			Color:     item.Color,
			Sizes:     item.Sizes,
		})
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), input)
	if err != nil {
		sendError(c, err)
		return
	}

	sendData(c, "Order created successfully", order)
}

func (h *OrderHandler) list(c *gin.Context) {
	var filter domain.OrderFilter
	filter.SearchTerm = c.Query("searchTerm")
	filter.CustomerEmail = c.Query("customerEmail")

	if raw := c.Query("orderStatus"); raw != "" {
		status, err := domain.ToOrderStatus(raw)
		if err != nil {
			sendValidationError(c, err)
			return
		}
		filter.OrderStatus = &status
	}

	page := domain.Pagination{
		Page:      atoiOr(c.Query("page"), 1),
		Limit:     atoiOr(c.Query("limit"), 10),
		SortBy:    c.Query("sortBy"),
		SortOrder: domain.SortOrder(c.Query("sortOrder")),
	}.Normalize()

	orders, total, err := h.orders.SearchOrders(c.Request.Context(), filter, page)
	if err != nil {
		sendError(c, err)
		return
	}

	sendPage(c, "All orders retrieved successfully", meta{
		Page:  page.Page,
		Limit: page.Limit,
		Total: total,
	}, orders)
}

// myOrders returns the authenticated customer's orders. Authentication itself
// lives in the routing layer; the principal's email arrives as a query
// parameter here.
func (h *OrderHandler) myOrders(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		sendValidationError(c, errMissingEmail)
		return
	}

	orders, err := h.orders.GetCustomerOrders(c.Request.Context(), email)
	if err != nil {
		sendError(c, err)
		return
	}

	sendData(c, "Orders retrieved successfully", orders)
}

func (h *OrderHandler) getById(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		sendValidationError(c, err)
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		sendError(c, err)
		return
	}

	sendData(c, "Order retrieved successfully", order)
}

type updateOrderStatusRequest struct {
	OrderStatus string `json:"orderStatus" binding:"required"`
}

func (h *OrderHandler) updateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		sendValidationError(c, err)
		return
	}

	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendValidationError(c, err)
		return
	}

	status, err := domain.ToOrderStatus(req.OrderStatus)
	if err != nil {
		sendValidationError(c, err)
		return
	}

	order, err := h.orders.UpdateOrderStatus(c.Request.Context(), id, status)
	if err != nil {
		sendError(c, err)
		return
	}

	sendData(c, "Order updated successfully!", order)
}

func (h *OrderHandler) delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		sendValidationError(c, err)
		return
	}

	if err := h.orders.DeleteOrder(c.Request.Context(), id); err != nil {
		sendError(c, err)
		return
	}

	sendData(c, "Order deleted successfully!", nil)
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
