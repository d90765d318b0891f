// internal/services/order_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/elianhardyy/clothing-marketplace/internal/apperrors"
	"github.com/elianhardyy/clothing-marketplace/internal/config"
	"github.com/elianhardyy/clothing-marketplace/internal/models"
	"github.com/elianhardyy/clothing-marketplace/internal/utils"
)

// OrderService orchestrates the order lifecycle: placement with stock
// reservation, status transitions with their compensations, and payment
// processing against the transaction ledger.
type OrderService struct {
	db                 *gorm.DB
	config             *config.Config
	transactionService *TransactionService
	gatewayService     *GatewayService

	shippingPrice decimal.Decimal
	newNumber     func(prefix string) string
}

type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddress string             `json:"shipping_address" validate:"required,max=255"`
	ShippingCity    string             `json:"shipping_city" validate:"required,max=64"`
	ShippingState   string             `json:"shipping_state" validate:"required,max=64"`
	ShippingZip     string             `json:"shipping_zip" validate:"required,max=20"`
	ShippingCountry string             `json:"shipping_country" validate:"required,max=64"`
	PaymentMethod   string             `json:"payment_method" validate:"required,max=50"`
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" validate:"required"`
}

// OrderStatusResult is the partial projection returned by status updates.
type OrderStatusResult struct {
	ID          uuid.UUID          `json:"id"`
	Status      models.OrderStatus `json:"status"`
	IsDelivered bool               `json:"is_delivered"`
	DeliveredAt *time.Time         `json:"delivered_at"`
}

type ProcessPaymentRequest struct {
	PaymentMethod  string            `json:"payment_method,omitempty" validate:"omitempty,max=50"`
	Currency       string            `json:"currency,omitempty" validate:"omitempty,currency"`
	PaymentDetails map[string]string `json:"payment_details,omitempty"`
}

type OrderStats struct {
	ByStatus    []OrderStatsRow `json:"by_status"`
	TotalOrders int64           `json:"total_orders"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type OrderStatsRow struct {
	Status models.OrderStatus `json:"status"`
	Count  int64              `json:"count"`
	Total  decimal.Decimal    `json:"total"`
}

func NewOrderService(db *gorm.DB, config *config.Config, transactionService *TransactionService, gatewayService *GatewayService) (*OrderService, error) {
	shippingPrice, err := decimal.NewFromString(config.Order.ShippingPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid shipping price %q: %w", config.Order.ShippingPrice, err)
	}

	return &OrderService{
		db:                 db,
		config:             config,
		transactionService: transactionService,
		gatewayService:     gatewayService,
		shippingPrice:      shippingPrice,
		newNumber:          utils.GenerateReferenceNumber,
	}, nil
}

// CreateOrder places an order: snapshots unit prices, reserves stock, and
// writes the order header plus its items as one atomic unit. A stock check
// failing on any item rolls the whole placement back.
func (s *OrderService) CreateOrder(userID uuid.UUID, req *CreateOrderRequest) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "Validation failed", err)
	}
	if len(req.Items) == 0 {
		return nil, apperrors.Validation("Order must contain at least one item")
	}

	var order *models.Order

	err := s.db.Transaction(func(tx *gorm.DB) error {
		totalAmount := decimal.Zero
		items := make([]models.OrderItem, 0, len(req.Items))
		stockUpdates := make(map[uuid.UUID]int, len(req.Items))

		for _, item := range req.Items {
			productID, err := uuid.Parse(item.ProductID)
			if err != nil {
				return apperrors.Validation("Invalid product id")
			}

			var product models.Product
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&product, productID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.NotFound(fmt.Sprintf("Product %s not found", productID))
				}
				return apperrors.Internal("database error", err)
			}

			// The same product may appear on several request lines; the
			// check must cover the accumulated quantity, not just this line.
			requested := stockUpdates[productID] + item.Quantity
			if product.Stock < requested {
				return apperrors.InsufficientStock(
					fmt.Sprintf("Insufficient stock for product %s: %d available, %d requested",
						product.Name, product.Stock, requested))
			}

			unitPrice := product.Price
			itemTotal := unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
			totalAmount = totalAmount.Add(itemTotal)

			items = append(items, models.OrderItem{
				ProductID:  productID,
				Quantity:   item.Quantity,
				UnitPrice:  unitPrice,
				TotalPrice: itemTotal,
			})
			stockUpdates[productID] = requested
		}

		order = &models.Order{
			UserID:          userID,
			OrderNumber:     s.newNumber("ORD"),
			Status:          models.OrderStatusPending,
			TotalAmount:     totalAmount,
			ShippingAddress: req.ShippingAddress,
			ShippingCity:    req.ShippingCity,
			ShippingState:   req.ShippingState,
			ShippingZip:     req.ShippingZip,
			ShippingCountry: req.ShippingCountry,
			PaymentMethod:   req.PaymentMethod,
			ShippingPrice:   s.shippingPrice,
		}

		if err := tx.Create(order).Error; err != nil {
			return apperrors.Internal("failed to create order", err)
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return apperrors.Internal("failed to create order items", err)
		}

		for productID, quantity := range stockUpdates {
			if err := tx.Model(&models.Product{}).
				Where("id = ?", productID).
				Update("stock", gorm.Expr("stock - ?", quantity)).Error; err != nil {
				return apperrors.Internal("failed to reserve stock", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetOrderByID(order.ID)
}

// UpdateOrderStatus writes a status transition. Delivery stamps the delivered
// flags; cancellation restocks every item atomically with the status write.
func (s *OrderService) UpdateOrderStatus(orderID uuid.UUID, req *UpdateOrderStatusRequest) (*OrderStatusResult, error) {
	if !req.Status.ValidTransition() {
		return nil, apperrors.Validation(fmt.Sprintf("Invalid order status %q", req.Status))
	}

	var result *OrderStatusResult

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("OrderItems").
			First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("Order not found")
			}
			return apperrors.Internal("database error", err)
		}

		if req.Status == models.OrderStatusCancelled && order.Status == models.OrderStatusCancelled {
			return apperrors.Conflict("Order is already cancelled")
		}

		order.Status = req.Status

		if req.Status == models.OrderStatusDelivered {
			now := time.Now()
			order.IsDelivered = true
			order.DeliveredAt = &now
		}

		if req.Status == models.OrderStatusCancelled {
			for _, item := range order.OrderItems {
				if err := tx.Model(&models.Product{}).
					Where("id = ?", item.ProductID).
					Update("stock", gorm.Expr("stock + ?", item.Quantity)).Error; err != nil {
					return apperrors.Internal("failed to restore stock", err)
				}
			}
		}

		if err := tx.Save(&order).Error; err != nil {
			return apperrors.Internal("failed to update order", err)
		}

		result = &OrderStatusResult{
			ID:          order.ID,
			Status:      order.Status,
			IsDelivered: order.IsDelivered,
			DeliveredAt: order.DeliveredAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ProcessOrderPayment records a payment for the caller's order: it creates
// the payment transaction and marks the order paid in one atomic unit. The
// order is never marked paid before the transaction row exists.
func (s *OrderService) ProcessOrderPayment(userID, orderID uuid.UUID, req *ProcessPaymentRequest) (*models.Transaction, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "Validation failed", err)
	}

	var transaction *models.Transaction

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("Order not found")
			}
			return apperrors.Internal("database error", err)
		}

		if order.UserID != userID {
			return apperrors.Forbidden("You do not own this order")
		}
		if order.IsPaid {
			return apperrors.Conflict("Order is already paid")
		}

		amount := order.TotalAmount.Add(order.ShippingPrice)

		paymentMethod := req.PaymentMethod
		if paymentMethod == "" {
			paymentMethod = order.PaymentMethod
		}

		// Copied so the gateway reference never leaks into the caller's map.
		details := make(map[string]string, len(req.PaymentDetails)+1)
		for k, v := range req.PaymentDetails {
			details[k] = v
		}
		if s.gatewayService.Enabled() {
			intent, err := s.gatewayService.CreatePaymentIntent(amount, req.Currency, map[string]string{
				"order_id": order.ID.String(),
				"user_id":  userID.String(),
			})
			if err != nil {
				return apperrors.Internal("payment gateway error", err)
			}
			details[models.DetailKeyExternalReference] = intent.ID
		}

		var err error
		transaction, err = s.transactionService.createPaymentTx(tx, userID, &CreatePaymentTransactionRequest{
			OrderID:        order.ID.String(),
			Amount:         amount.StringFixed(2),
			PaymentMethod:  paymentMethod,
			Currency:       req.Currency,
			PaymentDetails: details,
		})
		if err != nil {
			return err
		}

		now := time.Now()
		order.IsPaid = true
		order.PaidAt = &now
		if err := tx.Save(&order).Error; err != nil {
			return apperrors.Internal("failed to mark order paid", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.transactionService.GetTransactionByID(transaction.ID)
}

func (s *OrderService) GetOrderByID(orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.Preload("OrderItems.Product").Preload("User").
		First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Order not found")
		}
		return nil, apperrors.Internal("database error", err)
	}
	return &order, nil
}

func (s *OrderService) GetUserOrders(userID uuid.UUID, params utils.PaginationParams, status models.OrderStatus) ([]models.Order, int64, error) {
	return s.listOrders(s.db.Model(&models.Order{}).Where("user_id = ?", userID), params, status)
}

func (s *OrderService) GetAllOrders(params utils.PaginationParams, status models.OrderStatus) ([]models.Order, int64, error) {
	return s.listOrders(s.db.Model(&models.Order{}), params, status)
}

func (s *OrderService) listOrders(query *gorm.DB, params utils.PaginationParams, status models.OrderStatus) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal("database error", err)
	}

	query = query.Preload("OrderItems.Product")
	query = utils.ApplySort(query, params, []string{"created_at", "total_amount", "status"})
	query = utils.ApplyPagination(query, params)

	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, apperrors.Internal("database error", err)
	}

	return orders, total, nil
}

func (s *OrderService) GetOrderStats(startDate, endDate *time.Time) (*OrderStats, error) {
	query := s.db.Model(&models.Order{})
	if startDate != nil {
		query = query.Where("created_at >= ?", *startDate)
	}
	if endDate != nil {
		query = query.Where("created_at <= ?", *endDate)
	}

	var rows []OrderStatsRow
	if err := query.
		Select("status, COUNT(*) as count, COALESCE(SUM(total_amount), 0) as total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, apperrors.Internal("database error", err)
	}

	stats := &OrderStats{
		ByStatus:    rows,
		TotalAmount: decimal.Zero,
	}

	for _, row := range rows {
		stats.TotalOrders += row.Count
		stats.TotalAmount = stats.TotalAmount.Add(row.Total)
	}

	return stats, nil
}
