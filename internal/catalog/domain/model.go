package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Product struct {
	ID             snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	SupplierID     snowflake.ID `gorm:"column:supplier_id" json:"supplier_id"`
	Name           string       `gorm:"column:name" json:"name"`
	Category       *string      `gorm:"column:category" json:"category,omitempty"`
	Price          float64      `gorm:"column:price" json:"price"`
	CommissionRate *float64     `gorm:"column:commission_rate" json:"commission_rate,omitempty"`
	Active         bool         `gorm:"column:active" json:"active"`
	CreatedAt      time.Time    `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"column:updated_at" json:"updated_at"`
}

func (Product) TableName() string { return "products" }

type Supplier struct {
	ID                    snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	Name                  string       `gorm:"column:name" json:"name"`
	Status                string       `gorm:"column:status" json:"status"`
	DefaultCommissionRate *float64     `gorm:"column:default_commission_rate" json:"default_commission_rate,omitempty"`
	CreatedAt             time.Time    `gorm:"column:created_at" json:"created_at"`
	UpdatedAt             time.Time    `gorm:"column:updated_at" json:"updated_at"`
}

func (Supplier) TableName() string { return "suppliers" }

// The catalog is owned by an external management surface; the tracking
// pipeline only ever reads it.
type ProductRepository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Product, error)
}

type SupplierRepository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Supplier, error)
}
