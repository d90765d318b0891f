// internal/models/transaction.go
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is a bookkeeping row for a payment, refund, or payout against
// an order. Refund amounts are stored negative; payments positive. Amount,
// type, and order linkage are immutable once created.
type Transaction struct {
	BaseModel
	TransactionNumber string            `json:"transaction_number" gorm:"size:64;uniqueIndex;not null"`
	UserID            uuid.UUID         `json:"user_id" gorm:"type:uuid;not null;index"`
	OrderID           uuid.UUID         `json:"order_id" gorm:"type:uuid;not null;index"`
	Type              TransactionType   `json:"type" gorm:"type:varchar(20);not null;index"`
	Amount            decimal.Decimal   `json:"amount" gorm:"type:decimal(10,2);not null"`
	PaymentMethod     string            `json:"payment_method" gorm:"size:50;not null"`
	Status            TransactionStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	Currency          string            `json:"currency" gorm:"size:3;default:'USD'"`
	PointsEarned      int               `json:"points_earned" gorm:"not null;default:0"`
	Notes             string            `json:"notes,omitempty" gorm:"type:text"`
	ExternalReference string            `json:"external_reference,omitempty" gorm:"size:255"`

	// Relationships
	User    User                `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Order   Order               `json:"order,omitempty" gorm:"foreignKey:OrderID"`
	Details []TransactionDetail `json:"details,omitempty" gorm:"foreignKey:TransactionID"`
}

// TransactionDetail is an append-only key/value side table for gateway
// metadata ("originalTransactionId", "reason", card fields, ...).
type TransactionDetail struct {
	BaseModel
	TransactionID uuid.UUID `json:"transaction_id" gorm:"type:uuid;not null;index"`
	Key           string    `json:"key" gorm:"size:100;not null;index"`
	Value         string    `json:"value" gorm:"type:text;not null"`

	// Relationships
	Transaction Transaction `json:"transaction,omitempty" gorm:"foreignKey:TransactionID"`
}

// Detail keys with dedicated columns on Transaction; everything else in a
// payment-details map becomes a TransactionDetail row.
const (
	DetailKeyOriginalTransaction = "originalTransactionId"
	DetailKeyReason              = "reason"
	DetailKeyNotes               = "notes"
	DetailKeyExternalReference   = "externalReference"
)

// DetailValue returns the value of the named detail row, if loaded.
func (t *Transaction) DetailValue(key string) (string, bool) {
	for _, d := range t.Details {
		if d.Key == key {
			return d.Value, true
		}
	}
	return "", false
}
