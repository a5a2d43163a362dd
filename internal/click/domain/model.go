package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ClickStatus string

const (
	ClickStatusValid       ClickStatus = "valid"
	ClickStatusDuplicate   ClickStatus = "duplicate"
	ClickStatusBot         ClickStatus = "bot"
	ClickStatusInternal    ClickStatus = "internal"
	ClickStatusRateLimited ClickStatus = "rate_limited"
)

// IsValid reports whether the click may ever be consumed by attribution.
func (s ClickStatus) IsValid() bool { return s == ClickStatusValid }

// ReferralClick is one observed, classified visit attributable to a partner.
// Session id and fingerprint are stored only as one-way truncated digests;
// the IP address is anonymized before it reaches this struct.
type ReferralClick struct {
	ID              snowflake.ID  `gorm:"column:id;primaryKey" json:"id"`
	PartnerID       snowflake.ID  `gorm:"column:partner_id" json:"partner_id"`
	ProductID       *snowflake.ID `gorm:"column:product_id" json:"product_id,omitempty"`
	ReferralCode    string        `gorm:"column:referral_code" json:"referral_code"`
	Status          ClickStatus   `gorm:"column:status" json:"status"`
	SessionHash     string        `gorm:"column:session_hash" json:"-"`
	FingerprintHash string        `gorm:"column:fingerprint_hash" json:"-"`
	IPAddress       string        `gorm:"column:ip_address" json:"ip_address,omitempty"`
	Device          string        `gorm:"column:device" json:"device,omitempty"`
	OS              string        `gorm:"column:os" json:"os,omitempty"`
	Browser         string        `gorm:"column:browser" json:"browser,omitempty"`
	Country         string        `gorm:"column:country" json:"country,omitempty"`
	Source          string        `gorm:"column:source" json:"source,omitempty"`
	Medium          string        `gorm:"column:medium" json:"medium,omitempty"`
	Campaign        string        `gorm:"column:campaign" json:"campaign,omitempty"`
	Referer         string        `gorm:"column:referer" json:"referer,omitempty"`
	HasConverted    bool          `gorm:"column:has_converted" json:"has_converted"`
	ConversionID    *snowflake.ID `gorm:"column:conversion_id" json:"conversion_id,omitempty"`
	ConvertedAt     *time.Time    `gorm:"column:converted_at" json:"converted_at,omitempty"`
	OriginalClickID *snowflake.ID `gorm:"column:original_click_id" json:"original_click_id,omitempty"`
	ClickCount      int           `gorm:"column:click_count" json:"click_count"`
	CreatedAt       time.Time     `gorm:"column:created_at" json:"created_at"`
}

func (ReferralClick) TableName() string { return "referral_clicks" }

type RecordClickRequest struct {
	ReferralCode string `json:"referral_code"`
	ProductID    string `json:"product_id,omitempty"`
	Campaign     string `json:"campaign,omitempty"`
	Medium       string `json:"medium,omitempty"`
	Source       string `json:"source,omitempty"`

	// Request metadata, supplied by the transport layer.
	IPAddress   string `json:"ip_address,omitempty"`
	UserAgent   string `json:"user_agent,omitempty"`
	Referer     string `json:"referer,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

type Service interface {
	RecordClick(ctx context.Context, req RecordClickRequest) (*ReferralClick, error)
}

// DuplicateQuery scopes the 24h duplicate lookback. Product scoping is
// optional: a nil ProductID matches clicks for any product.
type DuplicateQuery struct {
	PartnerID       snowflake.ID
	SessionHash     string
	FingerprintHash string
	ProductID       *snowflake.ID
	Since           time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, click *ReferralClick) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ReferralClick, error)
	FindDuplicate(ctx context.Context, db *gorm.DB, q DuplicateQuery) (*ReferralClick, error)
	IncrementClickCount(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	// ListAttributable returns valid, unconsumed clicks for partner+code
	// created at or after the window start, ascending by creation time.
	ListAttributable(ctx context.Context, db *gorm.DB, partnerID snowflake.ID, referralCode string, since time.Time) ([]ReferralClick, error)

	// MarkConverted consumes a click, conditional on it not having been
	// consumed by a racing conversion. Returns false when the click was
	// already consumed.
	MarkConverted(ctx context.Context, db *gorm.DB, id, conversionID snowflake.ID, at time.Time) (bool, error)
}

var (
	ErrInvalidReferralCode = errors.New("invalid_referral_code")
	ErrMissingReferralCode = errors.New("missing_referral_code")
	ErrInvalidProduct      = errors.New("invalid_product")
)
