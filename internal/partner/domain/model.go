package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type PartnerStatus string

const (
	PartnerStatusPending   PartnerStatus = "pending"
	PartnerStatusActive    PartnerStatus = "active"
	PartnerStatusSuspended PartnerStatus = "suspended"
	PartnerStatusRejected  PartnerStatus = "rejected"
)

type PartnerTier string

const (
	TierBronze   PartnerTier = "bronze"
	TierSilver   PartnerTier = "silver"
	TierGold     PartnerTier = "gold"
	TierPlatinum PartnerTier = "platinum"
)

// Monthly confirmed-commission thresholds for automatic tier promotion.
const (
	TierSilverThreshold   = 200_000.0
	TierGoldThreshold     = 500_000.0
	TierPlatinumThreshold = 1_000_000.0
)

type Partner struct {
	ID             snowflake.ID  `gorm:"column:id;primaryKey" json:"id"`
	UserID         snowflake.ID  `gorm:"column:user_id" json:"user_id"`
	ReferralCode   string        `gorm:"column:referral_code" json:"referral_code"`
	Status         PartnerStatus `gorm:"column:status" json:"status"`
	Tier           PartnerTier   `gorm:"column:tier" json:"tier"`
	CommissionRate *float64      `gorm:"column:commission_rate" json:"commission_rate,omitempty"`
	TotalClicks    int64         `gorm:"column:total_clicks" json:"total_clicks"`
	TotalOrders    int64         `gorm:"column:total_orders" json:"total_orders"`
	ConversionRate float64       `gorm:"column:conversion_rate" json:"conversion_rate"`
	LastActiveAt   *time.Time    `gorm:"column:last_active_at" json:"last_active_at,omitempty"`
	CreatedAt      time.Time     `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"column:updated_at" json:"updated_at"`
}

func (Partner) TableName() string { return "partners" }

// TierFor maps a 30-day confirmed commission volume to a tier.
func TierFor(monthlyCommissions float64) PartnerTier {
	switch {
	case monthlyCommissions >= TierPlatinumThreshold:
		return TierPlatinum
	case monthlyCommissions >= TierGoldThreshold:
		return TierGold
	case monthlyCommissions >= TierSilverThreshold:
		return TierSilver
	default:
		return TierBronze
	}
}

// ConversionRateOf recomputes orders/clicks as a percentage.
func ConversionRateOf(orders, clicks int64) float64 {
	if clicks <= 0 {
		return 0
	}
	return float64(orders) / float64(clicks) * 100
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, p *Partner) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Partner, error)
	FindByReferralCode(ctx context.Context, db *gorm.DB, code string) (*Partner, error)
	ReferralCodeExists(ctx context.Context, db *gorm.DB, code string) (bool, error)
	RecordClick(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	RecordOrder(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	UpdateTier(ctx context.Context, db *gorm.DB, id snowflake.ID, tier PartnerTier, at time.Time) error
	ListActive(ctx context.Context, db *gorm.DB) ([]Partner, error)
	SumConfirmedCommissions(ctx context.Context, db *gorm.DB, id snowflake.ID, since time.Time) (float64, error)
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Partner, error)
	GetByReferralCode(ctx context.Context, code string) (*Partner, error)
	RecomputeTiers(ctx context.Context) error
}

type RegisterRequest struct {
	UserID string `json:"user_id"`
}

var (
	ErrPartnerNotFound     = errors.New("partner_not_found")
	ErrPartnerInactive     = errors.New("partner_inactive")
	ErrInvalidUser         = errors.New("invalid_user")
	ErrReferralCodeExhaust = errors.New("referral_code_generation_exhausted")
)
