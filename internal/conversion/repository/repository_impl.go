package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	conversiondomain "github.com/neturelabs/affiliate/internal/conversion/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() conversiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *conversiondomain.ConversionEvent) error {
	return db.WithContext(ctx).Create(c).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*conversiondomain.ConversionEvent, error) {
	var event conversiondomain.ConversionEvent
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM conversion_events WHERE id = ?`, id,
	).Scan(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, nil
	}
	return &event, nil
}

func (r *repo) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*conversiondomain.ConversionEvent, error) {
	var event conversiondomain.ConversionEvent
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM conversion_events WHERE idempotency_key = ?`, key,
	).Scan(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, nil
	}
	return &event, nil
}

func (r *repo) UpdateState(ctx context.Context, db *gorm.DB, c *conversiondomain.ConversionEvent) error {
	return db.WithContext(ctx).Exec(
		`UPDATE conversion_events
		 SET status = ?, conversion_type = ?, refunded_amount = ?, refunded_quantity = ?, updated_at = ?
		 WHERE id = ?`,
		c.Status, c.ConversionType, c.RefundedAmount, c.RefundedQuantity, c.UpdatedAt, c.ID,
	).Error
}
