// internal/handlers/order.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/elianhardyy/clothing-marketplace/internal/models"
	"github.com/elianhardyy/clothing-marketplace/internal/services"
	"github.com/elianhardyy/clothing-marketplace/internal/utils"
)

type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	order, err := h.orderService.CreateOrder(userID, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Order created successfully", order)
}

// GET /orders/my-orders
func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	status := models.OrderStatus(c.Query("status"))

	orders, total, err := h.orderService.GetUserOrders(userID, params, status)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.PaginatedResponse(c, "Orders retrieved successfully", orders,
		utils.NewPaginationData(total, params))
}

// GET /orders
func (h *OrderHandler) GetAllOrders(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	status := models.OrderStatus(c.Query("status"))

	orders, total, err := h.orderService.GetAllOrders(params, status)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.PaginatedResponse(c, "Orders retrieved successfully", orders,
		utils.NewPaginationData(total, params))
}

// GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order id", nil)
		return
	}

	order, err := h.orderService.GetOrderByID(orderID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	// Owners see their own orders; merchants see every order.
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	if order.UserID != userID && !hasRole(c, models.RoleMerchant) {
		utils.ForbiddenResponse(c, "")
		return
	}

	utils.SuccessResponse(c, "Order retrieved successfully", order)
}

// PUT /orders/:id/status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order id", nil)
		return
	}

	var req services.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	result, err := h.orderService.UpdateOrderStatus(orderID, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Order status updated successfully", result)
}

// POST /orders/:id/pay
func (h *OrderHandler) PayOrder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order id", nil)
		return
	}

	var req services.ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	transaction, err := h.orderService.ProcessOrderPayment(userID, orderID, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Order payment processed successfully", transaction)
}

// GET /orders/stats/overview
func (h *OrderHandler) GetOrderStats(c *gin.Context) {
	startDate, endDate := parseDateRange(c)

	stats, err := h.orderService.GetOrderStats(startDate, endDate)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Order statistics retrieved successfully", stats)
}

func hasRole(c *gin.Context, role models.RoleName) bool {
	roles, ok := utils.GetRolesFromContext(c)
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == string(role) {
			return true
		}
	}
	return false
}

func parseDateRange(c *gin.Context) (*time.Time, *time.Time) {
	var startDate, endDate *time.Time

	if raw := c.Query("start_date"); raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			startDate = &parsed
		}
	}
	if raw := c.Query("end_date"); raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			end := parsed.Add(24*time.Hour - time.Nanosecond)
			endDate = &end
		}
	}

	return startDate, endDate
}
