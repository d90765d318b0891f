// internal/handlers/transaction.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/elianhardyy/clothing-marketplace/internal/models"
	"github.com/elianhardyy/clothing-marketplace/internal/services"
	"github.com/elianhardyy/clothing-marketplace/internal/utils"
)

type TransactionHandler struct {
	transactionService *services.TransactionService
}

func NewTransactionHandler(transactionService *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
	}
}

// POST /api/transactions/payment
func (h *TransactionHandler) CreatePaymentTransaction(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreatePaymentTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	transaction, err := h.transactionService.CreatePaymentTransaction(userID, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Payment transaction created successfully", transaction)
}

// POST /api/transactions/refund
func (h *TransactionHandler) CreateRefundTransaction(c *gin.Context) {
	var req services.CreateRefundTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	transaction, err := h.transactionService.CreateRefundTransaction(&req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Refund transaction created successfully", transaction)
}

// PATCH /api/transactions/:id/status
func (h *TransactionHandler) UpdateTransactionStatus(c *gin.Context) {
	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid transaction id", nil)
		return
	}

	var req services.UpdateTransactionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	transaction, err := h.transactionService.UpdateTransactionStatus(transactionID, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Transaction status updated successfully", transaction)
}

// PATCH /api/transactions/:id/complete-refund
func (h *TransactionHandler) CompleteRefundTransaction(c *gin.Context) {
	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid transaction id", nil)
		return
	}

	transaction, err := h.transactionService.CompleteRefundTransaction(transactionID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Refund transaction completed successfully", transaction)
}

// GET /api/transactions/:id
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid transaction id", nil)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(transactionID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	if transaction.UserID != userID && !hasRole(c, models.RoleMerchant) {
		utils.ForbiddenResponse(c, "")
		return
	}

	utils.SuccessResponse(c, "Transaction retrieved successfully", transaction)
}

// GET /api/transactions/number/:number
func (h *TransactionHandler) GetTransactionByNumber(c *gin.Context) {
	number := c.Param("number")
	if number == "" {
		utils.BadRequestResponse(c, "Invalid transaction number", nil)
		return
	}

	transaction, err := h.transactionService.GetTransactionByNumber(number)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	if transaction.UserID != userID && !hasRole(c, models.RoleMerchant) {
		utils.ForbiddenResponse(c, "")
		return
	}

	utils.SuccessResponse(c, "Transaction retrieved successfully", transaction)
}

// GET /api/transactions/order/:orderId
func (h *TransactionHandler) GetOrderTransactions(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order id", nil)
		return
	}

	transactions, err := h.transactionService.GetOrderTransactions(orderID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Order transactions retrieved successfully", transactions)
}

// GET /api/transactions/user/:userId
func (h *TransactionHandler) GetUserTransactions(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user id", nil)
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	if targetID != userID && !hasRole(c, models.RoleMerchant) {
		utils.ForbiddenResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	txType := models.TransactionType(c.Query("type"))

	transactions, total, err := h.transactionService.GetUserTransactions(targetID, params, txType)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.PaginatedResponse(c, "User transactions retrieved successfully", transactions,
		utils.NewPaginationData(total, params))
}

// GET /api/transactions/stats
func (h *TransactionHandler) GetTransactionStats(c *gin.Context) {
	startDate, endDate := parseDateRange(c)

	stats, err := h.transactionService.GetTransactionStats(startDate, endDate)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Transaction statistics retrieved successfully", stats)
}
