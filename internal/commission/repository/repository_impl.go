package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	commissiondomain "github.com/neturelabs/affiliate/internal/commission/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() commissiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *commissiondomain.Commission) error {
	return db.WithContext(ctx).Create(c).Error
}

func (r *repo) FindByConversion(ctx context.Context, db *gorm.DB, conversionID snowflake.ID) (*commissiondomain.Commission, error) {
	var commission commissiondomain.Commission
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM commissions WHERE conversion_id = ?`, conversionID,
	).Scan(&commission).Error
	if err != nil {
		return nil, err
	}
	if commission.ID == 0 {
		return nil, nil
	}
	return &commission, nil
}
