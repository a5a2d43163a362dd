package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	catalogdomain "github.com/neturelabs/affiliate/internal/catalog/domain"
	catalogrepository "github.com/neturelabs/affiliate/internal/catalog/repository"
	clickdomain "github.com/neturelabs/affiliate/internal/click/domain"
	clickrepository "github.com/neturelabs/affiliate/internal/click/repository"
	"github.com/neturelabs/affiliate/internal/clock"
	"github.com/neturelabs/affiliate/internal/config"
	conversiondomain "github.com/neturelabs/affiliate/internal/conversion/domain"
	conversionrepository "github.com/neturelabs/affiliate/internal/conversion/repository"
	"github.com/neturelabs/affiliate/internal/metrics"
	partnerdomain "github.com/neturelabs/affiliate/internal/partner/domain"
	partnerrepository "github.com/neturelabs/affiliate/internal/partner/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type conversionFixture struct {
	svc     *Service
	db      *gorm.DB
	node    *snowflake.Node
	partner *partnerdomain.Partner
	product *catalogdomain.Product
	now     time.Time
}

func newConversionFixture(t *testing.T) *conversionFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&partnerdomain.Partner{},
		&catalogdomain.Product{},
		&clickdomain.ReferralClick{},
		&conversiondomain.ConversionEvent{},
	))
	require.NoError(t, db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_conversion_events_idempotency
		 ON conversion_events(idempotency_key)`,
	).Error)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

	partner := &partnerdomain.Partner{
		ID:           node.Generate(),
		UserID:       node.Generate(),
		ReferralCode: "REF123",
		Status:       partnerdomain.PartnerStatusActive,
		Tier:         partnerdomain.TierBronze,
		TotalClicks:  4,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	partnerRepo := partnerrepository.Provide()
	require.NoError(t, partnerRepo.Insert(context.Background(), db, partner))

	product := &catalogdomain.Product{
		ID:         node.Generate(),
		SupplierID: node.Generate(),
		Name:       "Ceramic mug",
		Price:      25_000,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, db.Create(product).Error)

	svc := &Service{
		db:          db,
		log:         zap.NewNop(),
		genID:       node,
		clock:       clock.Fixed{T: now},
		cfg:         config.AttributionConfig{WindowDays: 30, DefaultModel: "last_touch"},
		metrics:     metrics.NewForTest(),
		repo:        conversionrepository.Provide(),
		clickRepo:   clickrepository.Provide(),
		partnerRepo: partnerRepo,
		productRepo: catalogrepository.ProvideProduct(),
	}

	return &conversionFixture{svc: svc, db: db, node: node, partner: partner, product: product, now: now}
}

func (f *conversionFixture) seedClick(t *testing.T, age time.Duration) *clickdomain.ReferralClick {
	t.Helper()
	click := &clickdomain.ReferralClick{
		ID:           f.node.Generate(),
		PartnerID:    f.partner.ID,
		ReferralCode: f.partner.ReferralCode,
		Status:       clickdomain.ClickStatusValid,
		SessionHash:  "sess" + click8(f.node.Generate()),
		ClickCount:   1,
		CreatedAt:    f.now.Add(-age),
	}
	require.NoError(t, f.svc.clickRepo.Insert(context.Background(), f.db, click))
	return click
}

func click8(id snowflake.ID) string { return id.String()[:8] }

func (f *conversionFixture) createRequest() conversiondomain.CreateConversionRequest {
	return conversiondomain.CreateConversionRequest{
		OrderID:      "ORD-1001",
		ProductID:    f.product.ID.String(),
		ReferralCode: "REF123",
		OrderAmount:  50_000,
		ProductPrice: 25_000,
		Quantity:     2,
	}
}

func TestCreateConversionDirectPurchase(t *testing.T) {
	f := newConversionFixture(t)
	ctx := context.Background()
	click := f.seedClick(t, 48*time.Hour)

	event, err := f.svc.CreateConversion(ctx, f.createRequest())
	require.NoError(t, err)

	assert.Equal(t, conversiondomain.TypeDirectPurchase, event.ConversionType)
	assert.Equal(t, conversiondomain.StatusPending, event.Status)
	assert.Equal(t, conversiondomain.ModelLastTouch, event.AttributionModel)
	assert.Equal(t, click.ID, event.ReferralClickID)
	assert.Equal(t, 1.0, event.AttributionWeight)
	assert.True(t, event.WithinWindow)

	consumed, err := f.svc.clickRepo.FindByID(ctx, f.db, click.ID)
	require.NoError(t, err)
	assert.True(t, consumed.HasConverted)
	require.NotNil(t, consumed.ConversionID)
	assert.Equal(t, event.ID, *consumed.ConversionID)

	p, err := f.svc.partnerRepo.FindByID(ctx, f.db, f.partner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.TotalOrders)
	assert.InDelta(t, 25.0, p.ConversionRate, 1e-9)
}

func TestCreateConversionIdempotent(t *testing.T) {
	f := newConversionFixture(t)
	ctx := context.Background()
	f.seedClick(t, 48*time.Hour)

	first, err := f.svc.CreateConversion(ctx, f.createRequest())
	require.NoError(t, err)

	second, err := f.svc.CreateConversion(ctx, f.createRequest())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(1) FROM conversion_events`).Scan(&count).Error)
	assert.Equal(t, int64(1), count)

	// Side effects ran once.
	p, err := f.svc.partnerRepo.FindByID(ctx, f.db, f.partner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.TotalOrders)
}

func TestCreateConversionNoAttributableClick(t *testing.T) {
	f := newConversionFixture(t)

	_, err := f.svc.CreateConversion(context.Background(), f.createRequest())
	assert.ErrorIs(t, err, conversiondomain.ErrNoAttributableClick)
}

func TestCreateConversionIgnoresStaleClicks(t *testing.T) {
	f := newConversionFixture(t)
	// Forty days old, outside the thirty-day window.
	f.seedClick(t, 40*24*time.Hour)

	_, err := f.svc.CreateConversion(context.Background(), f.createRequest())
	assert.ErrorIs(t, err, conversiondomain.ErrNoAttributableClick)
}

func TestCreateConversionAssistedLinear(t *testing.T) {
	f := newConversionFixture(t)
	ctx := context.Background()
	f.seedClick(t, 72*time.Hour)
	f.seedClick(t, 48*time.Hour)
	last := f.seedClick(t, 2*time.Hour)

	req := f.createRequest()
	req.AttributionModel = "linear"
	event, err := f.svc.CreateConversion(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, conversiondomain.TypeAssistedPurchase, event.ConversionType)
	assert.Equal(t, last.ID, event.ReferralClickID)
	assert.InDelta(t, 1.0/3.0, event.AttributionWeight, 1e-9)
}

func TestCreateConversionRepeatCustomer(t *testing.T) {
	f := newConversionFixture(t)
	f.seedClick(t, 2*time.Hour)

	returning := false
	req := f.createRequest()
	req.IsNewCustomer = &returning

	event, err := f.svc.CreateConversion(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, conversiondomain.TypeRepeatPurchase, event.ConversionType)
}

func TestCreateConversionRejectsUnknownModel(t *testing.T) {
	f := newConversionFixture(t)
	f.seedClick(t, 2*time.Hour)

	req := f.createRequest()
	req.AttributionModel = "psychic"

	_, err := f.svc.CreateConversion(context.Background(), req)
	assert.ErrorIs(t, err, conversiondomain.ErrInvalidModel)
}

func TestConversionLifecycle(t *testing.T) {
	f := newConversionFixture(t)
	ctx := context.Background()
	f.seedClick(t, 2*time.Hour)

	event, err := f.svc.CreateConversion(ctx, f.createRequest())
	require.NoError(t, err)

	confirmed, err := f.svc.Confirm(ctx, event.ID.String())
	require.NoError(t, err)
	assert.Equal(t, conversiondomain.StatusConfirmed, confirmed.Status)

	partial, err := f.svc.Refund(ctx, conversiondomain.RefundRequest{
		ConversionID: event.ID.String(),
		Amount:       20_000,
		Quantity:     1,
	})
	require.NoError(t, err)
	assert.Equal(t, conversiondomain.StatusPartialRefund, partial.Status)

	full, err := f.svc.Refund(ctx, conversiondomain.RefundRequest{
		ConversionID: event.ID.String(),
		Amount:       30_000,
		Quantity:     1,
	})
	require.NoError(t, err)
	assert.Equal(t, conversiondomain.StatusRefunded, full.Status)
	assert.Equal(t, 50_000.0, full.RefundedAmount)

	_, err = f.svc.Confirm(ctx, event.ID.String())
	assert.ErrorIs(t, err, conversiondomain.ErrInvalidTransition)
}

func TestGetByIDNotFound(t *testing.T) {
	f := newConversionFixture(t)

	_, err := f.svc.GetByID(context.Background(), "999999999")
	assert.ErrorIs(t, err, conversiondomain.ErrConversionNotFound)
}
