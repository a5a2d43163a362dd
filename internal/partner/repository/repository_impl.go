package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	partnerdomain "github.com/neturelabs/affiliate/internal/partner/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() partnerdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *partnerdomain.Partner) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO partners (id, user_id, referral_code, status, tier, commission_rate,
		                       total_clicks, total_orders, conversion_rate, last_active_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.ReferralCode, p.Status, p.Tier, p.CommissionRate,
		p.TotalClicks, p.TotalOrders, p.ConversionRate, p.LastActiveAt, p.CreatedAt, p.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*partnerdomain.Partner, error) {
	var p partnerdomain.Partner
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM partners WHERE id = ?`, id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) FindByReferralCode(ctx context.Context, db *gorm.DB, code string) (*partnerdomain.Partner, error) {
	var p partnerdomain.Partner
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM partners WHERE referral_code = ?`, code,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) ReferralCodeExists(ctx context.Context, db *gorm.DB, code string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM partners WHERE referral_code = ?`, code,
	).Scan(&count).Error
	return count > 0, err
}

func (r *repo) RecordClick(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE partners
		 SET total_clicks = total_clicks + 1, last_active_at = ?, updated_at = ?
		 WHERE id = ?`,
		at, at, id,
	).Error
}

func (r *repo) RecordOrder(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE partners
		 SET total_orders = total_orders + 1,
		     conversion_rate = CASE WHEN total_clicks > 0
		                            THEN (total_orders + 1) * 100.0 / total_clicks
		                            ELSE 0 END,
		     updated_at = ?
		 WHERE id = ?`,
		at, id,
	).Error
}

func (r *repo) UpdateTier(ctx context.Context, db *gorm.DB, id snowflake.ID, tier partnerdomain.PartnerTier, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE partners SET tier = ?, updated_at = ? WHERE id = ?`,
		tier, at, id,
	).Error
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB) ([]partnerdomain.Partner, error) {
	var partners []partnerdomain.Partner
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM partners WHERE status = ?`, partnerdomain.PartnerStatusActive,
	).Scan(&partners).Error
	return partners, err
}

func (r *repo) SumConfirmedCommissions(ctx context.Context, db *gorm.DB, id snowflake.ID, since time.Time) (float64, error) {
	var total float64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM commissions
		 WHERE partner_id = ? AND status = 'confirmed' AND created_at >= ?`,
		id, since,
	).Scan(&total).Error
	return total, err
}
