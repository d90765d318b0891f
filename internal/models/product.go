// internal/models/product.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Category struct {
	BaseModel
	Name        string `json:"name" gorm:"size:100;uniqueIndex;not null"`
	Description string `json:"description" gorm:"type:text"`

	// Relationships
	Products []Product `json:"products,omitempty" gorm:"foreignKey:CategoryID"`
}

type Product struct {
	BaseModel
	Name        string          `json:"name" gorm:"size:100;not null"`
	Description string          `json:"description" gorm:"type:text"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Stock       int             `json:"stock" gorm:"not null;default:0;check:stock >= 0"`
	Images      pq.StringArray  `json:"images" gorm:"type:text[]"`
	CategoryID  uuid.UUID       `json:"category_id" gorm:"type:uuid;not null;index"`
	Sizes       pq.StringArray  `json:"sizes" gorm:"type:text[]"`
	Colors      pq.StringArray  `json:"colors" gorm:"type:text[]"`
	Brand       string          `json:"brand" gorm:"size:50;index"`
	Featured    bool            `json:"featured" gorm:"default:false"`
	Ratings     float64         `json:"ratings" gorm:"type:decimal(3,2);default:0"`
	NumReviews  int             `json:"num_reviews" gorm:"default:0"`

	// Relationships
	Category   Category    `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	OrderItems []OrderItem `json:"order_items,omitempty" gorm:"foreignKey:ProductID"`
}
