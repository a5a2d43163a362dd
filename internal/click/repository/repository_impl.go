package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	clickdomain "github.com/neturelabs/affiliate/internal/click/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() clickdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, click *clickdomain.ReferralClick) error {
	return db.WithContext(ctx).Create(click).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*clickdomain.ReferralClick, error) {
	var click clickdomain.ReferralClick
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM referral_clicks WHERE id = ?`, id,
	).Scan(&click).Error
	if err != nil {
		return nil, err
	}
	if click.ID == 0 {
		return nil, nil
	}
	return &click, nil
}

func (r *repo) FindDuplicate(ctx context.Context, db *gorm.DB, q clickdomain.DuplicateQuery) (*clickdomain.ReferralClick, error) {
	stmt := db.WithContext(ctx).
		Model(&clickdomain.ReferralClick{}).
		Where("partner_id = ?", q.PartnerID).
		Where("created_at >= ?", q.Since)

	switch {
	case q.SessionHash != "" && q.FingerprintHash != "":
		stmt = stmt.Where("session_hash = ? OR fingerprint_hash = ?", q.SessionHash, q.FingerprintHash)
	case q.SessionHash != "":
		stmt = stmt.Where("session_hash = ?", q.SessionHash)
	case q.FingerprintHash != "":
		stmt = stmt.Where("fingerprint_hash = ?", q.FingerprintHash)
	default:
		return nil, nil
	}

	if q.ProductID != nil {
		stmt = stmt.Where("product_id = ?", *q.ProductID)
	}

	var clicks []clickdomain.ReferralClick
	if err := stmt.Order("created_at asc").Limit(1).Find(&clicks).Error; err != nil {
		return nil, err
	}
	if len(clicks) == 0 {
		return nil, nil
	}
	return &clicks[0], nil
}

func (r *repo) IncrementClickCount(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE referral_clicks SET click_count = click_count + 1 WHERE id = ?`, id,
	).Error
}

func (r *repo) ListAttributable(ctx context.Context, db *gorm.DB, partnerID snowflake.ID, referralCode string, since time.Time) ([]clickdomain.ReferralClick, error) {
	var clicks []clickdomain.ReferralClick
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM referral_clicks
		 WHERE partner_id = ? AND referral_code = ? AND status = ?
		   AND has_converted = ? AND created_at >= ?
		 ORDER BY created_at ASC`,
		partnerID, referralCode, clickdomain.ClickStatusValid, false, since,
	).Scan(&clicks).Error
	return clicks, err
}

func (r *repo) MarkConverted(ctx context.Context, db *gorm.DB, id, conversionID snowflake.ID, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE referral_clicks
		 SET has_converted = ?, conversion_id = ?, converted_at = ?
		 WHERE id = ? AND has_converted = ?`,
		true, conversionID, at, id, false,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
