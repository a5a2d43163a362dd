package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	catalogdomain "github.com/neturelabs/affiliate/internal/catalog/domain"
	catalogrepository "github.com/neturelabs/affiliate/internal/catalog/repository"
	"github.com/neturelabs/affiliate/internal/clock"
	commissiondomain "github.com/neturelabs/affiliate/internal/commission/domain"
	commissionrepository "github.com/neturelabs/affiliate/internal/commission/repository"
	"github.com/neturelabs/affiliate/internal/config"
	conversiondomain "github.com/neturelabs/affiliate/internal/conversion/domain"
	conversionrepository "github.com/neturelabs/affiliate/internal/conversion/repository"
	"github.com/neturelabs/affiliate/internal/metrics"
	policydomain "github.com/neturelabs/affiliate/internal/policy/domain"
	policyrepository "github.com/neturelabs/affiliate/internal/policy/repository"
	policyservice "github.com/neturelabs/affiliate/internal/policy/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type commissionFixture struct {
	svc        *Service
	db         *gorm.DB
	node       *snowflake.Node
	product    *catalogdomain.Product
	supplierID snowflake.ID
	now        time.Time
}

func newCommissionFixture(t *testing.T) *commissionFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&catalogdomain.Product{},
		&catalogdomain.Supplier{},
		&conversiondomain.ConversionEvent{},
		&policydomain.CommissionPolicy{},
		&commissiondomain.Commission{},
	))
	require.NoError(t, db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_commissions_conversion
		 ON commissions(conversion_id)`,
	).Error)

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	now := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	cfg := config.Config{Commission: config.CommissionConfig{DefaultRate: 10.0}}

	supplierID := node.Generate()
	require.NoError(t, db.Create(&catalogdomain.Supplier{
		ID:        supplierID,
		Name:      "Acme Supply",
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)

	product := &catalogdomain.Product{
		ID:         node.Generate(),
		SupplierID: supplierID,
		Name:       "Standing desk",
		Price:      100_000,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, db.Create(product).Error)

	m := metrics.NewForTest()
	policySvc := policyservice.NewService(policyservice.ServiceParam{
		DB:      db,
		Log:     zap.NewNop(),
		Config:  cfg,
		Metrics: m,
		Repo:    policyrepository.Provide(),
	})

	svc := &Service{
		db:             db,
		log:            zap.NewNop(),
		genID:          node,
		clock:          clock.Fixed{T: now},
		cfg:            cfg.Commission,
		metrics:        m,
		repo:           commissionrepository.Provide(),
		conversionRepo: conversionrepository.Provide(),
		productRepo:    catalogrepository.ProvideProduct(),
		supplierRepo:   catalogrepository.ProvideSupplier(),
		policies:       policySvc,
	}

	return &commissionFixture{svc: svc, db: db, node: node, product: product, supplierID: supplierID, now: now}
}

func (f *commissionFixture) seedConversion(t *testing.T) *conversiondomain.ConversionEvent {
	t.Helper()
	event := &conversiondomain.ConversionEvent{
		ID:               f.node.Generate(),
		PartnerID:        f.node.Generate(),
		OrderID:          "ORD-2001",
		ProductID:        f.product.ID,
		ReferralCode:     "REF123",
		ConversionType:   conversiondomain.TypeDirectPurchase,
		AttributionModel: conversiondomain.ModelLastTouch,
		Status:           conversiondomain.StatusConfirmed,
		OrderAmount:      100_000,
		ProductPrice:     100_000,
		Quantity:         1,
		ConvertedAt:      f.now,
		IdempotencyKey:   "ORD-2001:" + f.product.ID.String() + ":REF123",
		CreatedAt:        f.now,
		UpdatedAt:        f.now,
	}
	require.NoError(t, f.svc.conversionRepo.Insert(context.Background(), f.db, event))
	return event
}

func (f *commissionFixture) seedSupplierPolicy(t *testing.T, rate float64) *policydomain.CommissionPolicy {
	t.Helper()
	policy := &policydomain.CommissionPolicy{
		ID:         f.node.Generate(),
		Code:       "SUPPLIER_STD",
		Name:       "Supplier standard",
		PolicyType: policydomain.PolicyTypePartnerSpecific,
		Status:     policydomain.PolicyStatusActive,
		SupplierID: &f.supplierID,
		Mechanism:  policydomain.MechanismPercentage,
		Rate:       &rate,
		CreatedAt:  f.now,
		UpdatedAt:  f.now,
	}
	require.NoError(t, f.db.Create(policy).Error)
	return policy
}

func TestProcessConversionSupplierPolicy(t *testing.T) {
	f := newCommissionFixture(t)
	ctx := context.Background()
	event := f.seedConversion(t)
	policy := f.seedSupplierPolicy(t, 15)

	commission, err := f.svc.ProcessConversion(ctx, event.ID)
	require.NoError(t, err)

	assert.Equal(t, 15_000.0, commission.Amount)
	assert.Equal(t, 15.0, commission.Rate)
	assert.Equal(t, commissiondomain.CommissionStatusPending, commission.Status)

	var snap commissiondomain.AppliedSnapshot
	require.NoError(t, json.Unmarshal(commission.AppliedSnap, &snap))
	assert.Equal(t, policydomain.LevelSupplier, snap.ResolutionLevel)
	assert.Equal(t, "SUPPLIER_STD", snap.PolicyCode)
	assert.Equal(t, 15_000.0, snap.CalculatedAmount)

	// Usage moved on the applied policy.
	var usage int
	require.NoError(t, f.db.Raw(
		`SELECT current_usage_count FROM commission_policies WHERE id = ?`, policy.ID,
	).Scan(&usage).Error)
	assert.Equal(t, 1, usage)
}

func TestProcessConversionIdempotent(t *testing.T) {
	f := newCommissionFixture(t)
	ctx := context.Background()
	event := f.seedConversion(t)
	f.seedSupplierPolicy(t, 15)

	first, err := f.svc.ProcessConversion(ctx, event.ID)
	require.NoError(t, err)

	second, err := f.svc.ProcessConversion(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(1) FROM commissions`).Scan(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestProcessConversionSafeMode(t *testing.T) {
	f := newCommissionFixture(t)
	event := f.seedConversion(t)

	commission, err := f.svc.ProcessConversion(context.Background(), event.ID)
	require.NoError(t, err)

	assert.Equal(t, 0.0, commission.Amount)
	assert.Equal(t, 0.0, commission.Rate)

	var snap commissiondomain.AppliedSnapshot
	require.NoError(t, json.Unmarshal(commission.AppliedSnap, &snap))
	assert.Equal(t, policydomain.LevelSafeMode, snap.ResolutionLevel)
}

func TestProcessConversionUnknownConversion(t *testing.T) {
	f := newCommissionFixture(t)

	_, err := f.svc.ProcessConversion(context.Background(), f.node.Generate())
	assert.ErrorIs(t, err, conversiondomain.ErrConversionNotFound)
}
