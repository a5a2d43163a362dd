package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	policydomain "github.com/neturelabs/affiliate/internal/policy/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "pending"
	CommissionStatusConfirmed CommissionStatus = "confirmed"
	CommissionStatusCancelled CommissionStatus = "cancelled"
)

// AppliedSnapshot freezes exactly what was applied to one order line. It is
// written once alongside the commission and never recomputed, even if the
// source policy changes later.
type AppliedSnapshot struct {
	PolicyID         *snowflake.ID                `json:"policy_id,omitempty"`
	PolicyCode       string                       `json:"policy_code,omitempty"`
	PolicyType       policydomain.PolicyType      `json:"policy_type,omitempty"`
	Mechanism        policydomain.Mechanism       `json:"mechanism,omitempty"`
	Rate             *float64                     `json:"rate,omitempty"`
	Amount           *float64                     `json:"amount,omitempty"`
	MinCommission    *float64                     `json:"min_commission,omitempty"`
	MaxCommission    *float64                     `json:"max_commission,omitempty"`
	ResolutionLevel  policydomain.ResolutionLevel `json:"resolution_level"`
	CalculatedAmount float64                      `json:"calculated_amount"`
	AppliedAt        time.Time                    `json:"applied_at"`
}

// Calculation is the outcome of applying a resolved policy to an order line.
type Calculation struct {
	Amount   float64
	Rate     float64
	Snapshot AppliedSnapshot
}

type Commission struct {
	ID           snowflake.ID     `gorm:"column:id;primaryKey" json:"id"`
	PartnerID    snowflake.ID     `gorm:"column:partner_id" json:"partner_id"`
	ConversionID snowflake.ID     `gorm:"column:conversion_id" json:"conversion_id"`
	OrderID      string           `gorm:"column:order_id" json:"order_id"`
	ProductID    snowflake.ID     `gorm:"column:product_id" json:"product_id"`
	Amount       float64          `gorm:"column:amount" json:"amount"`
	Rate         float64          `gorm:"column:rate" json:"rate"`
	Status       CommissionStatus `gorm:"column:status" json:"status"`
	AppliedSnap  datatypes.JSON   `gorm:"column:applied_snapshot" json:"applied_snapshot"`
	CreatedAt    time.Time        `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"column:updated_at" json:"updated_at"`
}

func (Commission) TableName() string { return "commissions" }

type Service interface {
	// ProcessConversion resolves the governing policy for a persisted
	// conversion and writes the commission record for it.
	ProcessConversion(ctx context.Context, conversionID snowflake.ID) (*Commission, error)
	GetByConversion(ctx context.Context, conversionID snowflake.ID) (*Commission, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, c *Commission) error
	FindByConversion(ctx context.Context, db *gorm.DB, conversionID snowflake.ID) (*Commission, error)
}

var ErrCommissionNotFound = errors.New("commission_not_found")
