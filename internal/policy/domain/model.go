package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PolicyType string

const (
	PolicyTypeDefault         PolicyType = "default"
	PolicyTypeTierBased       PolicyType = "tier_based"
	PolicyTypeProductSpecific PolicyType = "product_specific"
	PolicyTypeCategory        PolicyType = "category"
	PolicyTypePromotional     PolicyType = "promotional"
	PolicyTypePartnerSpecific PolicyType = "partner_specific"
)

type PolicyStatus string

const (
	PolicyStatusActive    PolicyStatus = "active"
	PolicyStatusInactive  PolicyStatus = "inactive"
	PolicyStatusScheduled PolicyStatus = "scheduled"
	PolicyStatusExpired   PolicyStatus = "expired"
)

type Mechanism string

const (
	MechanismPercentage Mechanism = "percentage"
	MechanismFixed      Mechanism = "fixed"
	MechanismTiered     Mechanism = "tiered"
)

// ResolutionLevel records which priority tier supplied the applied policy.
type ResolutionLevel string

const (
	LevelProduct  ResolutionLevel = "product"
	LevelSupplier ResolutionLevel = "supplier"
	LevelTier     ResolutionLevel = "tier"
	LevelDefault  ResolutionLevel = "default"
	LevelSafeMode ResolutionLevel = "safe_mode"
)

// Bracket is one row of a tiered mechanism. MinAmount is inclusive,
// MaxAmount exclusive; a nil MaxAmount is open-ended.
type Bracket struct {
	MinAmount float64  `json:"min_amount"`
	MaxAmount *float64 `json:"max_amount,omitempty"`
	Rate      *float64 `json:"rate,omitempty"`
	Amount    *float64 `json:"amount,omitempty"`
}

type CommissionPolicy struct {
	ID                snowflake.ID   `gorm:"column:id;primaryKey" json:"id"`
	Code              string         `gorm:"column:code" json:"code"`
	Name              string         `gorm:"column:name" json:"name"`
	PolicyType        PolicyType     `gorm:"column:policy_type" json:"policy_type"`
	Status            PolicyStatus   `gorm:"column:status" json:"status"`
	Priority          int            `gorm:"column:priority" json:"priority"`
	PartnerID         *snowflake.ID  `gorm:"column:partner_id" json:"partner_id,omitempty"`
	PartnerTier       *string        `gorm:"column:partner_tier" json:"partner_tier,omitempty"`
	ProductID         *snowflake.ID  `gorm:"column:product_id" json:"product_id,omitempty"`
	SupplierID        *snowflake.ID  `gorm:"column:supplier_id" json:"supplier_id,omitempty"`
	Category          *string        `gorm:"column:category" json:"category,omitempty"`
	Mechanism         Mechanism      `gorm:"column:mechanism" json:"mechanism"`
	Rate              *float64       `gorm:"column:rate" json:"rate,omitempty"`
	Amount            *float64       `gorm:"column:amount" json:"amount,omitempty"`
	Brackets          datatypes.JSON `gorm:"column:brackets" json:"brackets,omitempty"`
	MinCommission     *float64       `gorm:"column:min_commission" json:"min_commission,omitempty"`
	MaxCommission     *float64       `gorm:"column:max_commission" json:"max_commission,omitempty"`
	ValidFrom         *time.Time     `gorm:"column:valid_from" json:"valid_from,omitempty"`
	ValidUntil        *time.Time     `gorm:"column:valid_until" json:"valid_until,omitempty"`
	MaxUsageTotal     int            `gorm:"column:max_usage_total" json:"max_usage_total"`
	CurrentUsageCount int            `gorm:"column:current_usage_count" json:"current_usage_count"`
	Stackable         bool           `gorm:"column:stackable" json:"stackable"`
	CreatedAt         time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (CommissionPolicy) TableName() string { return "commission_policies" }

// Acceptable reports whether the policy may govern an order placed at the
// given time: active, inside its validity window, under its usage cap.
func (p *CommissionPolicy) Acceptable(orderDate time.Time) bool {
	if p.Status != PolicyStatusActive {
		return false
	}
	if p.ValidFrom != nil && orderDate.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidUntil != nil && orderDate.After(*p.ValidUntil) {
		return false
	}
	if p.MaxUsageTotal > 0 && p.CurrentUsageCount >= p.MaxUsageTotal {
		return false
	}
	return true
}

// Resolved pairs an accepted policy with the level that produced it. A nil
// Policy with LevelSafeMode means no policy governs the line and commission
// is zero.
type Resolved struct {
	Policy *CommissionPolicy
	Level  ResolutionLevel
}

func (r Resolved) SafeMode() bool { return r.Policy == nil }

type ResolveRequest struct {
	ProductID  snowflake.ID
	SupplierID snowflake.ID
	PartnerID  *snowflake.ID
	OrderDate  time.Time
}

type Service interface {
	Resolve(ctx context.Context, req ResolveRequest) Resolved
	RecordUsage(ctx context.Context, db *gorm.DB, policyID snowflake.ID) error
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, p *CommissionPolicy) error
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*CommissionPolicy, error)
	ListByProduct(ctx context.Context, db *gorm.DB, productID snowflake.ID) ([]CommissionPolicy, error)
	ListBySupplier(ctx context.Context, db *gorm.DB, supplierID snowflake.ID) ([]CommissionPolicy, error)
	ListDefaults(ctx context.Context, db *gorm.DB) ([]CommissionPolicy, error)
	IncrementUsage(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
