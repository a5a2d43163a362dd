package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/neturelabs/affiliate/internal/catalog/domain"
	"github.com/neturelabs/affiliate/internal/clock"
	commissiondomain "github.com/neturelabs/affiliate/internal/commission/domain"
	"github.com/neturelabs/affiliate/internal/config"
	conversiondomain "github.com/neturelabs/affiliate/internal/conversion/domain"
	"github.com/neturelabs/affiliate/internal/metrics"
	policydomain "github.com/neturelabs/affiliate/internal/policy/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Config         config.Config
	Metrics        *metrics.Metrics
	Repo           commissiondomain.Repository
	ConversionRepo conversiondomain.Repository
	ProductRepo    catalogdomain.ProductRepository
	SupplierRepo   catalogdomain.SupplierRepository
	Policies       policydomain.Service
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	cfg            config.CommissionConfig
	metrics        *metrics.Metrics
	repo           commissiondomain.Repository
	conversionRepo conversiondomain.Repository
	productRepo    catalogdomain.ProductRepository
	supplierRepo   catalogdomain.SupplierRepository
	policies       policydomain.Service
}

func NewService(p ServiceParam) commissiondomain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("commission.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		cfg:            p.Config.Commission,
		metrics:        p.Metrics,
		repo:           p.Repo,
		conversionRepo: p.ConversionRepo,
		productRepo:    p.ProductRepo,
		supplierRepo:   p.SupplierRepo,
		policies:       p.Policies,
	}
}

// ProcessConversion resolves the governing policy for a conversion and
// persists the commission with its applied snapshot. A conversion gets at
// most one commission; reprocessing returns the stored record.
func (s *Service) ProcessConversion(ctx context.Context, conversionID snowflake.ID) (*commissiondomain.Commission, error) {
	conv, err := s.conversionRepo.FindByID(ctx, s.db, conversionID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, conversiondomain.ErrConversionNotFound
	}

	if existing, err := s.repo.FindByConversion(ctx, s.db, conv.ID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	product, err := s.productRepo.FindByID(ctx, s.db, conv.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, conversiondomain.ErrInvalidProduct
	}

	resolved := s.policies.Resolve(ctx, policydomain.ResolveRequest{
		ProductID:  conv.ProductID,
		SupplierID: product.SupplierID,
		PartnerID:  &conv.PartnerID,
		OrderDate:  conv.ConvertedAt,
	})

	now := s.clock.Now(ctx)
	calc := Calculate(resolved, conv.ProductPrice, conv.Quantity, now)

	if s.cfg.ShadowCompare {
		s.shadowCompare(ctx, conv, product, calc.Amount)
	}

	snapJSON, err := json.Marshal(calc.Snapshot)
	if err != nil {
		return nil, err
	}

	commission := &commissiondomain.Commission{
		ID:           s.genID.Generate(),
		PartnerID:    conv.PartnerID,
		ConversionID: conv.ID,
		OrderID:      conv.OrderID,
		ProductID:    conv.ProductID,
		Amount:       calc.Amount,
		Rate:         calc.Rate,
		Status:       commissiondomain.CommissionStatusPending,
		AppliedSnap:  datatypes.JSON(snapJSON),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, commission); err != nil {
			return err
		}
		if !resolved.SafeMode() {
			return s.policies.RecordUsage(ctx, tx, resolved.Policy.ID)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.repo.FindByConversion(ctx, s.db, conv.ID)
		}
		return nil, err
	}

	s.log.Info("commission calculated",
		zap.String("commission_id", commission.ID.String()),
		zap.String("conversion_id", conv.ID.String()),
		zap.String("level", string(calc.Snapshot.ResolutionLevel)),
		zap.Float64("amount", commission.Amount),
	)

	return commission, nil
}

func (s *Service) GetByConversion(ctx context.Context, conversionID snowflake.ID) (*commissiondomain.Commission, error) {
	commission, err := s.repo.FindByConversion(ctx, s.db, conversionID)
	if err != nil {
		return nil, err
	}
	if commission == nil {
		return nil, commissiondomain.ErrCommissionNotFound
	}
	return commission, nil
}

// shadowCompare reruns the legacy flat-rate calculation next to the policy
// result and records divergence. It must never affect the primary outcome,
// so every failure path is swallowed.
func (s *Service) shadowCompare(ctx context.Context, conv *conversiondomain.ConversionEvent, product *catalogdomain.Product, primary float64) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.ShadowFailures.Inc()
			s.log.Warn("shadow comparison panicked", zap.Any("cause", r))
		}
	}()

	rate := s.cfg.DefaultRate
	switch {
	case product.CommissionRate != nil:
		rate = *product.CommissionRate
	default:
		supplier, err := s.supplierRepo.FindByID(ctx, s.db, product.SupplierID)
		if err != nil {
			s.metrics.ShadowFailures.Inc()
			s.log.Warn("shadow supplier lookup failed", zap.Error(err))
			return
		}
		if supplier != nil && supplier.DefaultCommissionRate != nil {
			rate = *supplier.DefaultCommissionRate
		}
	}

	legacy := round2(conv.ProductPrice * float64(conv.Quantity) * rate / 100)
	if math.Abs(legacy-primary) > 0.01 {
		s.metrics.ShadowMismatches.Inc()
		s.log.Info("shadow commission mismatch",
			zap.String("conversion_id", conv.ID.String()),
			zap.Float64("primary", primary),
			zap.Float64("legacy", legacy),
		)
	}
}
