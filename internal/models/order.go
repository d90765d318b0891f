// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	BaseModel
	UserID          uuid.UUID       `json:"user_id" gorm:"type:uuid;not null;index"`
	OrderNumber     string          `json:"order_number" gorm:"size:64;uniqueIndex;not null"`
	Status          OrderStatus     `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	TotalAmount     decimal.Decimal `json:"total_amount" gorm:"type:decimal(10,2);not null"`
	ShippingAddress string          `json:"shipping_address" gorm:"size:255;not null"`
	ShippingCity    string          `json:"shipping_city" gorm:"size:64;not null"`
	ShippingState   string          `json:"shipping_state" gorm:"size:64;not null"`
	ShippingZip     string          `json:"shipping_zip" gorm:"size:20;not null"`
	ShippingCountry string          `json:"shipping_country" gorm:"size:64;not null"`
	PaymentMethod   string          `json:"payment_method" gorm:"size:50;not null"`
	ShippingPrice   decimal.Decimal `json:"shipping_price" gorm:"type:decimal(10,2);not null;default:0"`
	IsPaid          bool            `json:"is_paid" gorm:"default:false"`
	PaidAt          *time.Time      `json:"paid_at"`
	IsDelivered     bool            `json:"is_delivered" gorm:"default:false"`
	DeliveredAt     *time.Time      `json:"delivered_at"`

	// Relationships
	User         User          `json:"user,omitempty" gorm:"foreignKey:UserID"`
	OrderItems   []OrderItem   `json:"order_items,omitempty" gorm:"foreignKey:OrderID"`
	Transactions []Transaction `json:"transactions,omitempty" gorm:"foreignKey:OrderID"`
}

type OrderItem struct {
	BaseModel
	OrderID   uuid.UUID       `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `json:"product_id" gorm:"type:uuid;not null;index"`
	Quantity  int             `json:"quantity" gorm:"not null;default:1"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(10,2);not null"`
	// Snapshot of unit_price * quantity at order time; catalog price changes
	// never alter it.
	TotalPrice decimal.Decimal `json:"total_price" gorm:"type:decimal(10,2);not null"`

	// Relationships
	Order   Order   `json:"order,omitempty" gorm:"foreignKey:OrderID"`
	Product Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}
