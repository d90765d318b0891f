// internal/services/transaction_service.go
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

// TransactionService owns payment and refund bookkeeping: transaction rows,
// their detail rows, loyalty points, and the order-side effects of status
// transitions. Every multi-write operation runs in a single database
// transaction with row locks on the contended User and Order rows.
type TransactionService struct {
	db             *gorm.DB
	config         *config.Config
	gatewayService *GatewayService

	// newNumber generates reference numbers; swappable for deterministic
	// values in tests.
	newNumber func(prefix string) string
}

type CreatePaymentTransactionRequest struct {
	OrderID        string            `json:"order_id" validate:"required,uuid"`
	Amount         string            `json:"amount" validate:"required"`
	PaymentMethod  string            `json:"payment_method" validate:"required,max=50"`
	Currency       string            `json:"currency,omitempty" validate:"omitempty,currency"`
	Notes          string            `json:"notes,omitempty"`
	PaymentDetails map[string]string `json:"payment_details,omitempty"`
}

type CreateRefundTransactionRequest struct {
	OrderID               string `json:"order_id" validate:"required,uuid"`
	Amount                string `json:"amount" validate:"required"`
	Reason                string `json:"reason" validate:"required"`
	OriginalTransactionID string `json:"original_transaction_id,omitempty" validate:"omitempty,uuid"`
}

type UpdateTransactionStatusRequest struct {
	Status            models.TransactionStatus `json:"status" validate:"required"`
	ExternalReference string                   `json:"external_reference,omitempty"`
}

type TransactionStats struct {
	ByTypeAndStatus []TransactionStatsRow `json:"by_type_and_status"`
	CompletedCount  int64                 `json:"completed_count"`
	CompletedTotal  decimal.Decimal       `json:"completed_total"`
}

type TransactionStatsRow struct {
	Type   models.TransactionType   `json:"type"`
	Status models.TransactionStatus `json:"status"`
	Count  int64                    `json:"count"`
	Total  decimal.Decimal          `json:"total"`
}

func NewTransactionService(db *gorm.DB, config *config.Config, gatewayService *GatewayService) *TransactionService {
	return &TransactionService{
		db:             db,
		config:         config,
		gatewayService: gatewayService,
		newNumber:      utils.GenerateReferenceNumber,
	}
}

// CreatePaymentTransaction records a pending payment against an order,
// together with its detail rows, as one atomic unit.
func (s *TransactionService) CreatePaymentTransaction(userID uuid.UUID, req *CreatePaymentTransactionRequest) (*models.Transaction, error) {
	var transaction *models.Transaction

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		transaction, err = s.createPaymentTx(tx, userID, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.GetTransactionByID(transaction.ID)
}

// createPaymentTx is the transactional body of CreatePaymentTransaction, so
// callers holding their own database transaction can compose with it.
func (s *TransactionService) createPaymentTx(tx *gorm.DB, userID uuid.UUID, req *CreatePaymentTransactionRequest) (*models.Transaction, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "Validation failed", err)
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, apperrors.Validation("Invalid order id")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, apperrors.Validation("Invalid payment amount")
	}

	// The order must exist and belong to the paying user, even when the
	// caller is already authenticated as that user.
	var order models.Order
	if err := tx.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Validation("Order not found for this payment")
		}
		return nil, apperrors.Internal("database error", err)
	}
	if order.UserID != userID {
		return nil, apperrors.Validation("Order does not belong to this user")
	}

	currency := req.Currency
	if currency == "" {
		currency = s.config.Payment.DefaultCurrency
	}

	notes := req.Notes
	if notes == "" {
		notes = "Payment for order"
	}

	// One point per 10 currency units, rounded down.
	pointsEarned := int(amount.Div(decimal.NewFromInt(10)).IntPart())

	transaction := &models.Transaction{
		TransactionNumber: s.newNumber("PAY"),
		UserID:            userID,
		OrderID:           orderID,
		Type:              models.TransactionTypePayment,
		Amount:            amount,
		PaymentMethod:     req.PaymentMethod,
		Status:            models.TransactionStatusPending,
		Currency:          currency,
		PointsEarned:      pointsEarned,
		Notes:             notes,
		ExternalReference: req.PaymentDetails[models.DetailKeyExternalReference],
	}

	if err := tx.Create(transaction).Error; err != nil {
		return nil, apperrors.Internal("failed to create transaction", err)
	}

	for key, value := range req.PaymentDetails {
		if key == models.DetailKeyNotes || key == models.DetailKeyExternalReference {
			continue
		}
		if value == "" {
			continue
		}

		detail := &models.TransactionDetail{
			TransactionID: transaction.ID,
			Key:           key,
			Value:         value,
		}
		if err := tx.Create(detail).Error; err != nil {
			return nil, apperrors.Internal("failed to create transaction detail", err)
		}
	}

	return transaction, nil
}

// UpdateTransactionStatus writes a new status and applies its side effects
// atomically: completion marks the order paid and credits points; moving a
// completed payment to cancelled or failed claws the points back.
func (s *TransactionService) UpdateTransactionStatus(transactionID uuid.UUID, req *UpdateTransactionStatusRequest) (*models.Transaction, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "Validation failed", err)
	}

	switch req.Status {
	case models.TransactionStatusPending, models.TransactionStatusCompleted,
		models.TransactionStatusFailed, models.TransactionStatusCancelled:
	default:
		return nil, apperrors.Validation(fmt.Sprintf("Invalid transaction status %q", req.Status))
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var transaction models.Transaction
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&transaction, transactionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("Transaction not found")
			}
			return apperrors.Internal("database error", err)
		}

		previousStatus := transaction.Status

		transaction.Status = req.Status
		if req.ExternalReference != "" {
			transaction.ExternalReference = req.ExternalReference
		}

		if err := tx.Save(&transaction).Error; err != nil {
			return apperrors.Internal("failed to update transaction", err)
		}

		// The previousStatus comparison makes repeated identical updates
		// side-effect free.
		switch {
		case previousStatus != models.TransactionStatusCompleted &&
			req.Status == models.TransactionStatusCompleted:
			now := time.Now()
			if err := tx.Model(&models.Order{}).
				Where("id = ?", transaction.OrderID).
				Updates(map[string]interface{}{"is_paid": true, "paid_at": now}).Error; err != nil {
				return apperrors.Internal("failed to mark order paid", err)
			}
			if transaction.PointsEarned > 0 {
				if err := s.adjustUserPoints(tx, transaction.UserID, transaction.PointsEarned); err != nil {
					return err
				}
			}

		case previousStatus == models.TransactionStatusCompleted &&
			(req.Status == models.TransactionStatusCancelled || req.Status == models.TransactionStatusFailed) &&
			transaction.PointsEarned > 0:
			if err := s.adjustUserPoints(tx, transaction.UserID, -transaction.PointsEarned); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetTransactionByID(transactionID)
}

// CreateRefundTransaction records a refund linked to an original payment.
// The refund amount is stored negative. A full refund claws the original
// payment's points back immediately, even though the refund row itself stays
// pending until CompleteRefundTransaction. When the payment gateway is
// configured and the original payment carries an external reference, the
// refund is passed through to the gateway as well.
func (s *TransactionService) CreateRefundTransaction(req *CreateRefundTransactionRequest) (*models.Transaction, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "Validation failed", err)
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, apperrors.Validation("Invalid order id")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, apperrors.Validation("Invalid refund amount")
	}

	var refund *models.Transaction

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		var original models.Transaction

		if req.OriginalTransactionID != "" {
			originalID, err := uuid.Parse(req.OriginalTransactionID)
			if err != nil {
				return apperrors.Validation("Invalid original transaction id")
			}
			if err := tx.First(&original, originalID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.Validation("Original transaction not found")
				}
				return apperrors.Internal("database error", err)
			}
			if original.OrderID != orderID {
				return apperrors.Validation("Original transaction does not belong to this order")
			}
		} else {
			if err := tx.Where("order_id = ? AND type = ? AND status = ?",
				orderID, models.TransactionTypePayment, models.TransactionStatusCompleted).
				First(&original).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.Validation("No completed payment found for this order")
				}
				return apperrors.Internal("database error", err)
			}
		}

		if amount.GreaterThan(original.Amount) {
			return apperrors.Validation("Refund amount cannot exceed the original payment amount")
		}

		externalReference := original.ExternalReference
		if s.gatewayService.Enabled() && original.ExternalReference != "" {
			gatewayRefund, err := s.gatewayService.CreateRefund(original.ExternalReference, amount)
			if err != nil {
				return apperrors.Internal("payment gateway error", err)
			}
			externalReference = gatewayRefund.ID
		}

		refund = &models.Transaction{
			TransactionNumber: s.newNumber("REF"),
			UserID:            original.UserID,
			OrderID:           orderID,
			Type:              models.TransactionTypeRefund,
			Amount:            amount.Neg(),
			PaymentMethod:     original.PaymentMethod,
			Status:            models.TransactionStatusPending,
			Currency:          original.Currency,
			PointsEarned:      0,
			Notes:             fmt.Sprintf("Refund for order: %s", req.Reason),
			ExternalReference: externalReference,
		}

		if err := tx.Create(refund).Error; err != nil {
			return apperrors.Internal("failed to create refund transaction", err)
		}

		details := []models.TransactionDetail{
			{TransactionID: refund.ID, Key: models.DetailKeyOriginalTransaction, Value: original.ID.String()},
			{TransactionID: refund.ID, Key: models.DetailKeyReason, Value: req.Reason},
		}
		if err := tx.Create(&details).Error; err != nil {
			return apperrors.Internal("failed to create refund details", err)
		}

		// Full refunds claw back the original payment's points right away;
		// partial refunds leave the balance untouched.
		if amount.Equal(original.Amount) && original.PointsEarned > 0 {
			if err := s.adjustUserPoints(tx, original.UserID, -original.PointsEarned); err != nil {
				return err
			}
		}

		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	return s.GetTransactionByID(refund.ID)
}

// CompleteRefundTransaction marks a pending refund completed. A full refund
// also cancels the linked order. Inventory is not restocked on this path;
// cancelled stock stays sold unless the order is cancelled through the order
// status endpoint instead.
func (s *TransactionService) CompleteRefundTransaction(transactionID uuid.UUID) (*models.Transaction, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var refund models.Transaction
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Details").
			First(&refund, transactionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Validation("Refund transaction not found")
			}
			return apperrors.Internal("database error", err)
		}

		if refund.Type != models.TransactionTypeRefund {
			return apperrors.Validation("Transaction is not a refund")
		}
		if refund.Status != models.TransactionStatusPending {
			return apperrors.Validation("Refund transaction is not pending")
		}

		if err := tx.Model(&refund).
			Update("status", models.TransactionStatusCompleted).Error; err != nil {
			return apperrors.Internal("failed to complete refund", err)
		}

		originalID, ok := refund.DetailValue(models.DetailKeyOriginalTransaction)
		if !ok {
			return nil
		}

		parsedID, err := uuid.Parse(originalID)
		if err != nil {
			return nil
		}

		var original models.Transaction
		if err := tx.First(&original, parsedID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return apperrors.Internal("database error", err)
		}

		if refund.Amount.Abs().Equal(original.Amount) {
			if err := tx.Model(&models.Order{}).
				Where("id = ?", refund.OrderID).
				Update("status", models.OrderStatusCancelled).Error; err != nil {
				return apperrors.Internal("failed to cancel order", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetTransactionByID(transactionID)
}

func (s *TransactionService) GetTransactionByID(transactionID uuid.UUID) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Preload("Details").Preload("Order").
		First(&transaction, transactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Transaction not found")
		}
		return nil, apperrors.Internal("database error", err)
	}
	return &transaction, nil
}

func (s *TransactionService) GetTransactionByNumber(number string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Preload("Details").Preload("Order").
		Where("transaction_number = ?", number).
		First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Transaction not found")
		}
		return nil, apperrors.Internal("database error", err)
	}
	return &transaction, nil
}

func (s *TransactionService) GetOrderTransactions(orderID uuid.UUID) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := s.db.Preload("Details").
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Internal("database error", err)
	}
	return transactions, nil
}

func (s *TransactionService) GetUserTransactions(userID uuid.UUID, params utils.PaginationParams, txType models.TransactionType) ([]models.Transaction, int64, error) {
	var transactions []models.Transaction
	var total int64

	query := s.db.Model(&models.Transaction{}).Preload("Details").
		Where("user_id = ?", userID)

	if txType != "" {
		query = query.Where("type = ?", txType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal("database error", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "amount", "status"})
	query = utils.ApplyPagination(query, params)

	if err := query.Find(&transactions).Error; err != nil {
		return nil, 0, apperrors.Internal("database error", err)
	}

	return transactions, total, nil
}

func (s *TransactionService) GetTransactionStats(startDate, endDate *time.Time) (*TransactionStats, error) {
	query := s.db.Model(&models.Transaction{})
	if startDate != nil {
		query = query.Where("created_at >= ?", *startDate)
	}
	if endDate != nil {
		query = query.Where("created_at <= ?", *endDate)
	}

	var rows []TransactionStatsRow
	if err := query.
		Select("type, status, COUNT(*) as count, COALESCE(SUM(amount), 0) as total").
		Group("type, status").
		Scan(&rows).Error; err != nil {
		return nil, apperrors.Internal("database error", err)
	}

	stats := &TransactionStats{
		ByTypeAndStatus: rows,
		CompletedTotal:  decimal.Zero,
	}

	for _, row := range rows {
		if row.Status == models.TransactionStatusCompleted {
			stats.CompletedCount += row.Count
			stats.CompletedTotal = stats.CompletedTotal.Add(row.Total)
		}
	}

	return stats, nil
}

// adjustUserPoints applies a points delta under a row lock, flooring the
// balance at zero.
func (s *TransactionService) adjustUserPoints(tx *gorm.DB, userID uuid.UUID, delta int) error {
	var user models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, userID).Error; err != nil {
		return apperrors.Internal("failed to load user for points adjustment", err)
	}

	points := user.Points + delta
	if points < 0 {
		points = 0
	}

	if err := tx.Model(&user).Update("points", points).Error; err != nil {
		return apperrors.Internal("failed to adjust user points", err)
	}

	return nil
}
