// internal/services/gateway_service.go
package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/refund"

	"github.com/elianhardyy/clothing-marketplace/internal/config"
)

// GatewayService is a thin Stripe wrapper. When no secret key is configured
// the service is disabled and payments are recorded without an external
// reference.
type GatewayService struct {
	config  *config.Config
	enabled bool
}

func NewGatewayService(config *config.Config) *GatewayService {
	enabled := config.Payment.StripeSecretKey != ""
	if enabled {
		stripe.Key = config.Payment.StripeSecretKey
	}

	return &GatewayService{
		config:  config,
		enabled: enabled,
	}
}

func (s *GatewayService) Enabled() bool {
	return s != nil && s.enabled
}

func (s *GatewayService) CreatePaymentIntent(amount decimal.Decimal, currency string, metadata map[string]string) (*stripe.PaymentIntent, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("payment gateway is not configured")
	}

	if currency == "" {
		currency = s.config.Payment.DefaultCurrency
	}

	// Stripe wants the smallest currency unit.
	amountInCents := amount.Mul(decimal.NewFromInt(100)).IntPart()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountInCents),
		Currency: stripe.String(strings.ToLower(currency)),
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return intent, nil
}

func (s *GatewayService) CreateRefund(paymentIntentID string, amount decimal.Decimal) (*stripe.Refund, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("payment gateway is not configured")
	}

	amountInCents := amount.Mul(decimal.NewFromInt(100)).IntPart()

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Amount:        stripe.Int64(amountInCents),
	}

	r, err := refund.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create refund: %w", err)
	}

	return r, nil
}
