package services

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/elianhardyy/clothing-marketplace/internal/apperrors"
	"github.com/elianhardyy/clothing-marketplace/internal/models"
	"github.com/elianhardyy/clothing-marketplace/internal/utils"
)

// payOrder records a payment for the order and returns the transaction.
func (s *ServiceTestSuite) payOrder(user *models.User, order *models.Order) *models.Transaction {
	transaction, err := s.orders.ProcessOrderPayment(user.ID, order.ID, &ProcessPaymentRequest{})
	s.Require().NoError(err)
	return transaction
}

// completePayment drives the payment transaction to completed, crediting
// points.
func (s *ServiceTestSuite) completePayment(transaction *models.Transaction) *models.Transaction {
	updated, err := s.transactions.UpdateTransactionStatus(transaction.ID, &UpdateTransactionStatusRequest{
		Status: models.TransactionStatusCompleted,
	})
	s.Require().NoError(err)
	return updated
}

func (s *ServiceTestSuite) TestCreatePaymentTransactionWritesDetails() {
	user := s.createCustomer("paula")
	product := s.createProduct("Corduroy Skirt", "30.00", 5)
	order := s.placeOrder(user, OrderItemRequest{ProductID: product.ID.String(), Quantity: 1})

	transaction, err := s.transactions.CreatePaymentTransaction(user.ID, &CreatePaymentTransactionRequest{
		OrderID:       order.ID.String(),
		Amount:        "59.99",
		PaymentMethod: "credit_card",
		PaymentDetails: map[string]string{
			"cardLast4":         "4242",
			"cardBrand":         "visa",
			"gatewayBatch":      "",
			"externalReference": "pi_12345",
		},
	})
	s.Require().NoError(err)

	// floor(59.99 / 10)
	s.Equal(5, transaction.PointsEarned)
	s.Equal("Payment for order", transaction.Notes)
	s.Equal("pi_12345", transaction.ExternalReference)

	// Reserved and empty keys never become detail rows
	s.Require().Len(transaction.Details, 2)
	last4, ok := transaction.DetailValue("cardLast4")
	s.True(ok)
	s.Equal("4242", last4)
	brand, ok := transaction.DetailValue("cardBrand")
	s.True(ok)
	s.Equal("visa", brand)
	_, ok = transaction.DetailValue("externalReference")
	s.False(ok)
}

func (s *ServiceTestSuite) TestCreatePaymentTransactionRejectsForeignOrder() {
	owner := s.createCustomer("quinn")
	other := s.createCustomer("rosa")
	product := s.createProduct("Bomber Jacket", "90.00", 5)
	order := s.placeOrder(owner, OrderItemRequest{ProductID: product.ID.String(), Quantity: 1})

	_, err := s.transactions.CreatePaymentTransaction(other.ID, &CreatePaymentTransactionRequest{
		OrderID:       order.ID.String(),
		Amount:        "100.00",
		PaymentMethod: "credit_card",
	})
	s.Require().Error(err)
	s.Equal(apperrors.KindValidation, apperrors.KindOf(err))
}

func (s *ServiceTestSuite) TestCompletionCreditsPointsExactlyOnce() {
	user := s.createCustomer("sara")
	product := s.createProduct("Slip Dress", "25.00", 5)
	order := s.placeOrder(user, OrderItemRequest{ProductID: product.ID.String(), Quantity: 2})

	transaction := s.payOrder(user, order)
	s.Equal(6, transaction.PointsEarned)

	s.completePayment(transaction)
	s.Equal(6, s.reloadUser(user).Points)

	// A second identical update is a no-op for side effects
	s.completePayment(transaction)
	s.Equal(6, s.reloadUser(user).Points)
}

func (s *ServiceTestSuite) TestCancellingCompletedPaymentClawsBackPoints() {
	user := s.createCustomer("tina")
	product := s.createProduct("Peacoat", "100.00", 5)
	order := s.placeOrder(user, OrderItemRequest{ProductID: product.ID.String(), Quantity: 1})

	transaction := s.completePayment(s.payOrder(user, order))
	s.Equal(11, s.reloadUser(user).Points)

	_, err := s.transactions.UpdateTransactionStatus(transaction.ID, &UpdateTransactionStatusRequest{
		Status: models.TransactionStatusCancelled,
	})
	s.Require().NoError(err)
	s.Equal(0, s.reloadUser(user).Points)
}

func (s *ServiceTestSuite) TestClawbackFloorsPointsAtZero() {
	user := s.createCustomer("uma")
	product := s.createProduct("Trench Coat", "120.00", 5)
	order := s.placeOrder(user, OrderItemRequest{ProductID: product.ID.String(), Quantity: 1})

	transaction := s.completePayment(s.payOrder(user, order))
	s.Equal(13, s.reloadUser(user).Points)

	// Simulate points having been spent elsewhere before the claw-back
	s.Require().NoError(s.db.Model(&models.User{}).
		Where("id = ?", user.ID).Update("points", 4).Error)

	_, err := s.transactions.UpdateTransactionStatus(transaction.ID, &UpdateTransactionStatusRequest{
		Status: models.TransactionStatusFailed,
	})
	s.Require().NoError(err)
	s.Equal(0, s.reloadUser(user).Points)
}

func (s *ServiceTestSuite) TestRefundCannotExceedOriginalPayment() {
	user := s.createCustomer("vern")
	product := s.createProduct("Ankle Boots", "50.00", 5)
	order := s.placeOrder(user, OrderItemRequest{ProductID: product.ID.String(), Quantity: 1})

	payment := s.completePayment(s.payOrder(user, order))

	_, err := s.transactions.CreateRefundTransaction(&CreateRefundTransactionRequest{
		OrderID:               order.ID.String(),
		Amount:                "75.00",
		Reason:                "damaged item",
		OriginalTransactionID: payment.ID.String(),
	})
	s.Require().Error(err)
	s.Equal(apperrors.KindValidation, apperrors.KindOf(err))
}

func (s *ServiceTestSuite) TestPartialRefundKeepsPointsAndLinksOriginal() {
	user := s.createCustomer("wade")
	product := s.createProduct("Cargo Shorts", "30.00", 5)
	order := s.placeOrder(user, OrderItemRequest{ProductID: product.ID.String(), Quantity: 2})

	payment := s.completePayment(s.payOrder(user, order))
	s.Equal(7, s.reloadUser(user).Points)

	refund, err := s.transactions.CreateRefundTransaction(&CreateRefundTransactionRequest{
		OrderID:               order.ID.String(),
		Amount:                "20.00",
		Reason:                "one item returned",
		OriginalTransactionID: payment.ID.String(),
	})
	s.Require().NoError(err)

	s.Equal(models.TransactionTypeRefund, refund.Type)
	s.Equal(models.TransactionStatusPending, refund.Status)
	s.True(refund.Amount.Equal(decimal.RequireFromString("-20.00")))
	s.Equal(0, refund.PointsEarned)
	s.Equal(payment.PaymentMethod, refund.PaymentMethod)
	s.Equal(payment.Currency, refund.Currency)
	s.True(strings.HasPrefix(refund.TransactionNumber, "REF-"))

	originalID, ok := refund.DetailValue(models.DetailKeyOriginalTransaction)
	s.True(ok)
	s.Equal(payment.ID.String(), originalID)
	reason, ok := refund.DetailValue(models.DetailKeyReason)
	s.True(ok)
	s.Equal("one item returned", reason)

	// Partial refunds never touch the points balance
	s.Equal(7, s.reloadUser(user).Points)
}

func (s *ServiceTestSuite) TestFullRefundClawsBackPointsImmediately() {
	user := s.createCustomer("xena")
	product := s.createProduct("Maxi Dress", "25.00", 5)
	order := s.placeOrder(user, OrderItemRequest{ProductID: product.ID.String(), Quantity: 2})

	payment := s.completePayment(s.payOrder(user, order))
	s.Equal(6, s.reloadUser(user).Points)

	refund, err := s.transactions.CreateRefundTransaction(&CreateRefundTransactionRequest{
		OrderID:               order.ID.String(),
		Amount:                "60.00",
		Reason:                "order cancelled",
		OriginalTransactionID: payment.ID.String(),
	})
	s.Require().NoError(err)

	// The claw-back happens at creation time while the refund is still pending
	s.Equal(models.TransactionStatusPending, refund.Status)
	s.Equal(0, s.reloadUser(user).Points)
}

func (s *ServiceTestSuite) TestRefundResolvesOriginalByOrderLookup() {
	user := s.createCustomer("yara")
	product := s.createProduct("Henley Tee", "20.00", 5)
	order := s.placeOrder(user, OrderItemRequest{ProductID: product.ID.String(), Quantity: 1})

	s.completePayment(s.payOrder(user, order))

	refund, err := s.transactions.CreateRefundTransaction(&CreateRefundTransactionRequest{
		OrderID: order.ID.String(),
		Amount:  "10.00",
		Reason:  "price adjustment",
	})
	s.Require().NoError(err)
	s.True(refund.Amount.Equal(decimal.RequireFromString("-10.00")))
}

func (s *ServiceTestSuite) TestRefundWithoutCompletedPaymentFails() {
	user := s.createCustomer("zack")
	product := s.createProduct("Board Shorts", "35.00", 5)
	order := s.placeOrder(user, OrderItemRequest{ProductID: product.ID.String(), Quantity: 1})

	// Payment exists but is still pending
	s.payOrder(user, order)

	_, err := s.transactions.CreateRefundTransaction(&CreateRefundTransactionRequest{
		OrderID: order.ID.String(),
		Amount:  "10.00",
		Reason:  "change of mind",
	})
	s.Require().Error(err)
	s.Equal(apperrors.KindValidation, apperrors.KindOf(err))
}

func (s *ServiceTestSuite) TestCompleteFullRefundCancelsOrderWithoutRestock() {
	user := s.createCustomer("abby")
	product := s.createProduct("Quilted Vest", "25.00", 10)
	order := s.placeOrder(user, OrderItemRequest{ProductID: product.ID.String(), Quantity: 2})
	s.Equal(8, s.reloadProduct(product).Stock)

	payment := s.completePayment(s.payOrder(user, order))

	refund, err := s.transactions.CreateRefundTransaction(&CreateRefundTransactionRequest{
		OrderID:               order.ID.String(),
		Amount:                "60.00",
		Reason:                "full return",
		OriginalTransactionID: payment.ID.String(),
	})
	s.Require().NoError(err)

	completed, err := s.transactions.CompleteRefundTransaction(refund.ID)
	s.Require().NoError(err)
	s.Equal(models.TransactionStatusCompleted, completed.Status)

	s.Equal(models.OrderStatusCancelled, s.reloadOrder(order).Status)
	// Refund-triggered cancellation leaves inventory alone
	s.Equal(8, s.reloadProduct(product).Stock)
}

func (s *ServiceTestSuite) TestCompletePartialRefundLeavesOrderStatus() {
	user := s.createCustomer("bree")
	product := s.createProduct("Pleated Skirt", "40.00", 5)
	order := s.placeOrder(user, OrderItemRequest{ProductID: product.ID.String(), Quantity: 1})

	payment := s.completePayment(s.payOrder(user, order))

	refund, err := s.transactions.CreateRefundTransaction(&CreateRefundTransactionRequest{
		OrderID:               order.ID.String(),
		Amount:                "15.00",
		Reason:                "late delivery credit",
		OriginalTransactionID: payment.ID.String(),
	})
	s.Require().NoError(err)

	_, err = s.transactions.CompleteRefundTransaction(refund.ID)
	s.Require().NoError(err)

	s.Equal(models.OrderStatusPending, s.reloadOrder(order).Status)
}

func (s *ServiceTestSuite) TestCompleteRefundRequiresPendingRefund() {
	user := s.createCustomer("cleo")
	product := s.createProduct("Halter Top", "18.00", 5)
	order := s.placeOrder(user, OrderItemRequest{ProductID: product.ID.String(), Quantity: 1})

	payment := s.completePayment(s.payOrder(user, order))

	// A payment transaction is not completable as a refund
	_, err := s.transactions.CompleteRefundTransaction(payment.ID)
	s.Require().Error(err)
	s.Equal(apperrors.KindValidation, apperrors.KindOf(err))

	refund, err := s.transactions.CreateRefundTransaction(&CreateRefundTransactionRequest{
		OrderID:               order.ID.String(),
		Amount:                "28.00",
		Reason:                "full return",
		OriginalTransactionID: payment.ID.String(),
	})
	s.Require().NoError(err)

	_, err = s.transactions.CompleteRefundTransaction(refund.ID)
	s.Require().NoError(err)

	// Completing an already-completed refund fails
	_, err = s.transactions.CompleteRefundTransaction(refund.ID)
	s.Require().Error(err)
	s.Equal(apperrors.KindValidation, apperrors.KindOf(err))
}

func (s *ServiceTestSuite) TestRefundInheritsExternalReferenceWithoutGateway() {
	user := s.createCustomer("cora")
	product := s.createProduct("Wrap Dress", "45.00", 5)
	order := s.placeOrder(user, OrderItemRequest{ProductID: product.ID.String(), Quantity: 1})

	payment, err := s.transactions.CreatePaymentTransaction(user.ID, &CreatePaymentTransactionRequest{
		OrderID:       order.ID.String(),
		Amount:        "55.00",
		PaymentMethod: "credit_card",
		PaymentDetails: map[string]string{
			"externalReference": "pi_refund_check",
		},
	})
	s.Require().NoError(err)
	s.completePayment(payment)

	// With no gateway configured the refund carries the original's reference
	refund, err := s.transactions.CreateRefundTransaction(&CreateRefundTransactionRequest{
		OrderID:               order.ID.String(),
		Amount:                "55.00",
		Reason:                "full return",
		OriginalTransactionID: payment.ID.String(),
	})
	s.Require().NoError(err)
	s.Equal("pi_refund_check", refund.ExternalReference)
}

func (s *ServiceTestSuite) TestGetTransactionByNumber() {
	user := s.createCustomer("dina")
	product := s.createProduct("Wool Cardigan", "60.00", 5)
	order := s.placeOrder(user, OrderItemRequest{ProductID: product.ID.String(), Quantity: 1})

	payment := s.payOrder(user, order)

	found, err := s.transactions.GetTransactionByNumber(payment.TransactionNumber)
	s.Require().NoError(err)
	s.Equal(payment.ID, found.ID)

	_, err = s.transactions.GetTransactionByNumber("PAY-0-missing")
	s.Require().Error(err)
	s.Equal(apperrors.KindNotFound, apperrors.KindOf(err))
}

func (s *ServiceTestSuite) TestGetUserTransactionsFiltersByType() {
	user := s.createCustomer("dora")
	product := s.createProduct("Varsity Jacket", "80.00", 5)
	order := s.placeOrder(user, OrderItemRequest{ProductID: product.ID.String(), Quantity: 1})

	payment := s.completePayment(s.payOrder(user, order))
	_, err := s.transactions.CreateRefundTransaction(&CreateRefundTransactionRequest{
		OrderID:               order.ID.String(),
		Amount:                "20.00",
		Reason:                "discount honored",
		OriginalTransactionID: payment.ID.String(),
	})
	s.Require().NoError(err)

	params := utils.PaginationParams{Page: 1, Limit: 10, Sort: "created_at", Order: "desc"}

	refunds, total, err := s.transactions.GetUserTransactions(user.ID, params, models.TransactionTypeRefund)
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Require().Len(refunds, 1)
	s.Equal(models.TransactionTypeRefund, refunds[0].Type)

	all, total, err := s.transactions.GetUserTransactions(user.ID, params, "")
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Len(all, 2)
}

func (s *ServiceTestSuite) TestGetTransactionStats() {
	user := s.createCustomer("elle")
	product := s.createProduct("Hooded Parka", "100.00", 5)
	order := s.placeOrder(user, OrderItemRequest{ProductID: product.ID.String(), Quantity: 1})

	s.completePayment(s.payOrder(user, order))

	stats, err := s.transactions.GetTransactionStats(nil, nil)
	s.Require().NoError(err)
	s.Equal(int64(1), stats.CompletedCount)
	s.True(stats.CompletedTotal.Equal(decimal.RequireFromString("110.00")))
}

// Full lifecycle: place, pay, complete, fully refund, complete the refund.
func (s *ServiceTestSuite) TestPaymentRefundLifecycle() {
	user := s.createCustomer("faye")
	product := s.createProduct("Oxford Shirt", "25.00", 10)

	order := s.placeOrder(user, OrderItemRequest{ProductID: product.ID.String(), Quantity: 2})
	s.True(order.TotalAmount.Equal(decimal.RequireFromString("50.00")))
	s.Equal(8, s.reloadProduct(product).Stock)

	payment := s.payOrder(user, order)
	s.True(payment.Amount.Equal(decimal.RequireFromString("60.00")))
	s.Equal(6, payment.PointsEarned)
	s.Equal(models.TransactionStatusPending, payment.Status)

	s.completePayment(payment)
	s.True(s.reloadOrder(order).IsPaid)
	s.Equal(6, s.reloadUser(user).Points)

	refund, err := s.transactions.CreateRefundTransaction(&CreateRefundTransactionRequest{
		OrderID:               order.ID.String(),
		Amount:                "60.00",
		Reason:                "order returned",
		OriginalTransactionID: payment.ID.String(),
	})
	s.Require().NoError(err)
	s.True(refund.Amount.Equal(decimal.RequireFromString("-60.00")))
	s.Equal(0, s.reloadUser(user).Points)

	_, err = s.transactions.CompleteRefundTransaction(refund.ID)
	s.Require().NoError(err)

	final := s.reloadOrder(order)
	s.Equal(models.OrderStatusCancelled, final.Status)
	s.Equal(8, s.reloadProduct(product).Stock)
}

func (s *ServiceTestSuite) TestTransactionNumberGenerationIsInjectable() {
	user := s.createCustomer("gwen")
	product := s.createProduct("Twill Trousers", "30.00", 5)
	order := s.placeOrder(user, OrderItemRequest{ProductID: product.ID.String(), Quantity: 1})

	s.transactions.newNumber = func(prefix string) string { return prefix + "-FIXED-0002" }
	defer func() { s.transactions.newNumber = utils.GenerateReferenceNumber }()

	transaction := s.payOrder(user, order)
	s.Equal("PAY-FIXED-0002", transaction.TransactionNumber)
}
