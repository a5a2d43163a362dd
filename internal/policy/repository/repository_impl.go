package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	policydomain "github.com/neturelabs/affiliate/internal/policy/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() policydomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *policydomain.CommissionPolicy) error {
	return db.WithContext(ctx).Create(p).Error
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*policydomain.CommissionPolicy, error) {
	var policy policydomain.CommissionPolicy
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM commission_policies WHERE code = ?`, code,
	).Scan(&policy).Error
	if err != nil {
		return nil, err
	}
	if policy.ID == 0 {
		return nil, nil
	}
	return &policy, nil
}

func (r *repo) ListByProduct(ctx context.Context, db *gorm.DB, productID snowflake.ID) ([]policydomain.CommissionPolicy, error) {
	var policies []policydomain.CommissionPolicy
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM commission_policies
		 WHERE product_id = ? AND status = ?
		 ORDER BY priority ASC, created_at ASC`,
		productID, policydomain.PolicyStatusActive,
	).Scan(&policies).Error
	return policies, err
}

func (r *repo) ListBySupplier(ctx context.Context, db *gorm.DB, supplierID snowflake.ID) ([]policydomain.CommissionPolicy, error) {
	var policies []policydomain.CommissionPolicy
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM commission_policies
		 WHERE supplier_id = ? AND product_id IS NULL AND status = ?
		 ORDER BY priority ASC, created_at ASC`,
		supplierID, policydomain.PolicyStatusActive,
	).Scan(&policies).Error
	return policies, err
}

func (r *repo) ListDefaults(ctx context.Context, db *gorm.DB) ([]policydomain.CommissionPolicy, error) {
	var policies []policydomain.CommissionPolicy
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM commission_policies
		 WHERE policy_type = ? AND product_id IS NULL AND supplier_id IS NULL AND status = ?
		 ORDER BY priority ASC, created_at ASC`,
		policydomain.PolicyTypeDefault, policydomain.PolicyStatusActive,
	).Scan(&policies).Error
	return policies, err
}

func (r *repo) IncrementUsage(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE commission_policies
		 SET current_usage_count = current_usage_count + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, id,
	).Error
}
