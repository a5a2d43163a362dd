package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ConversionType string

const (
	TypeDirectPurchase   ConversionType = "direct_purchase"
	TypeAssistedPurchase ConversionType = "assisted_purchase"
	TypeRepeatPurchase   ConversionType = "repeat_purchase"
	TypeCancelled        ConversionType = "cancelled"
)

type ConversionStatus string

const (
	StatusPending       ConversionStatus = "pending"
	StatusConfirmed     ConversionStatus = "confirmed"
	StatusCancelled     ConversionStatus = "cancelled"
	StatusRefunded      ConversionStatus = "refunded"
	StatusPartialRefund ConversionStatus = "partial_refund"
)

type AttributionModel string

const (
	ModelLastTouch     AttributionModel = "last_touch"
	ModelFirstTouch    AttributionModel = "first_touch"
	ModelLinear        AttributionModel = "linear"
	ModelTimeDecay     AttributionModel = "time_decay"
	ModelPositionBased AttributionModel = "position_based"
)

func ParseAttributionModel(raw string) (AttributionModel, bool) {
	switch AttributionModel(raw) {
	case ModelLastTouch, ModelFirstTouch, ModelLinear, ModelTimeDecay, ModelPositionBased:
		return AttributionModel(raw), true
	}
	return "", false
}

// PathEntry is one credited click in the attribution path.
type PathEntry struct {
	ClickID   snowflake.ID `json:"click_id"`
	Timestamp time.Time    `json:"timestamp"`
	Weight    float64      `json:"weight"`
}

type ConversionEvent struct {
	ID                    snowflake.ID     `gorm:"column:id;primaryKey" json:"id"`
	PartnerID             snowflake.ID     `gorm:"column:partner_id" json:"partner_id"`
	OrderID               string           `gorm:"column:order_id" json:"order_id"`
	ProductID             snowflake.ID     `gorm:"column:product_id" json:"product_id"`
	ReferralClickID       snowflake.ID     `gorm:"column:referral_click_id" json:"referral_click_id"`
	ReferralCode          string           `gorm:"column:referral_code" json:"referral_code"`
	ConversionType        ConversionType   `gorm:"column:conversion_type" json:"conversion_type"`
	AttributionModel      AttributionModel `gorm:"column:attribution_model" json:"attribution_model"`
	Status                ConversionStatus `gorm:"column:status" json:"status"`
	OrderAmount           float64          `gorm:"column:order_amount" json:"order_amount"`
	ProductPrice          float64          `gorm:"column:product_price" json:"product_price"`
	Quantity              int              `gorm:"column:quantity" json:"quantity"`
	AttributionWeight     float64          `gorm:"column:attribution_weight" json:"attribution_weight"`
	AttributionPath       datatypes.JSON   `gorm:"column:attribution_path" json:"attribution_path"`
	ClickedAt             time.Time        `gorm:"column:clicked_at" json:"clicked_at"`
	ConvertedAt           time.Time        `gorm:"column:converted_at" json:"converted_at"`
	AttributionWindowDays int              `gorm:"column:attribution_window_days" json:"attribution_window_days"`
	WithinWindow          bool             `gorm:"column:within_window" json:"within_window"`
	RefundedAmount        float64          `gorm:"column:refunded_amount" json:"refunded_amount"`
	RefundedQuantity      int              `gorm:"column:refunded_quantity" json:"refunded_quantity"`
	IdempotencyKey        string           `gorm:"column:idempotency_key" json:"-"`
	CreatedAt             time.Time        `gorm:"column:created_at" json:"created_at"`
	UpdatedAt             time.Time        `gorm:"column:updated_at" json:"updated_at"`
}

func (ConversionEvent) TableName() string { return "conversion_events" }

// BuildIdempotencyKey derives the deterministic dedup key for one logical
// purchase event.
func BuildIdempotencyKey(orderID string, productID snowflake.ID, referralCode string) string {
	return fmt.Sprintf("%s:%s:%s", orderID, productID.String(), referralCode)
}

type CreateConversionRequest struct {
	OrderID               string  `json:"order_id"`
	ProductID             string  `json:"product_id"`
	ReferralCode          string  `json:"referral_code"`
	OrderAmount           float64 `json:"order_amount"`
	ProductPrice          float64 `json:"product_price"`
	Quantity              int     `json:"quantity,omitempty"`
	AttributionModel      string  `json:"attribution_model,omitempty"`
	AttributionWindowDays int     `json:"attribution_window_days,omitempty"`
	IsNewCustomer         *bool   `json:"is_new_customer,omitempty"`
}

type RefundRequest struct {
	ConversionID string  `json:"-"`
	Amount       float64 `json:"amount"`
	Quantity     int     `json:"quantity,omitempty"`
}

type Service interface {
	CreateConversion(ctx context.Context, req CreateConversionRequest) (*ConversionEvent, error)
	Confirm(ctx context.Context, id string) (*ConversionEvent, error)
	Cancel(ctx context.Context, id string) (*ConversionEvent, error)
	Refund(ctx context.Context, req RefundRequest) (*ConversionEvent, error)
	GetByID(ctx context.Context, id string) (*ConversionEvent, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, c *ConversionEvent) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ConversionEvent, error)
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*ConversionEvent, error)
	UpdateState(ctx context.Context, db *gorm.DB, c *ConversionEvent) error
}

var (
	ErrNoAttributableClick = errors.New("no_attributable_click")
	ErrConversionNotFound  = errors.New("conversion_not_found")
	ErrInvalidOrder        = errors.New("invalid_order")
	ErrInvalidProduct      = errors.New("invalid_product")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidModel        = errors.New("invalid_attribution_model")
	ErrInvalidTransition   = errors.New("invalid_status_transition")
	ErrInvalidRefund       = errors.New("invalid_refund")
)
