package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/neturelabs/affiliate/internal/catalog/domain"
	"gorm.io/gorm"
)

type productRepo struct{}

func ProvideProduct() catalogdomain.ProductRepository {
	return &productRepo{}
}

func (r *productRepo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*catalogdomain.Product, error) {
	var p catalogdomain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM products WHERE id = ?`, id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

type supplierRepo struct{}

func ProvideSupplier() catalogdomain.SupplierRepository {
	return &supplierRepo{}
}

func (r *supplierRepo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*catalogdomain.Supplier, error) {
	var s catalogdomain.Supplier
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM suppliers WHERE id = ?`, id,
	).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}
	return &s, nil
}
