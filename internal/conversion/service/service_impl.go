package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/neturelabs/affiliate/internal/catalog/domain"
	clickdomain "github.com/neturelabs/affiliate/internal/click/domain"
	"github.com/neturelabs/affiliate/internal/clock"
	"github.com/neturelabs/affiliate/internal/config"
	conversiondomain "github.com/neturelabs/affiliate/internal/conversion/domain"
	"github.com/neturelabs/affiliate/internal/metrics"
	partnerdomain "github.com/neturelabs/affiliate/internal/partner/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Config      config.Config
	Metrics     *metrics.Metrics
	Repo        conversiondomain.Repository
	ClickRepo   clickdomain.Repository
	PartnerRepo partnerdomain.Repository
	ProductRepo catalogdomain.ProductRepository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	cfg         config.AttributionConfig
	metrics     *metrics.Metrics
	repo        conversiondomain.Repository
	clickRepo   clickdomain.Repository
	partnerRepo partnerdomain.Repository
	productRepo catalogdomain.ProductRepository
}

func NewService(p ServiceParam) conversiondomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("conversion.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		cfg:         p.Config.Attribution,
		metrics:     p.Metrics,
		repo:        p.Repo,
		clickRepo:   p.ClickRepo,
		partnerRepo: p.PartnerRepo,
		productRepo: p.ProductRepo,
	}
}

// CreateConversion attributes a purchase to the partner's prior clicks and
// persists an immutable conversion record. Resubmitting the same
// order+product+referral triple returns the stored record without side
// effects.
func (s *Service) CreateConversion(ctx context.Context, req conversiondomain.CreateConversionRequest) (*conversiondomain.ConversionEvent, error) {
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return nil, conversiondomain.ErrInvalidOrder
	}
	productID, err := snowflake.ParseString(strings.TrimSpace(req.ProductID))
	if err != nil {
		return nil, conversiondomain.ErrInvalidProduct
	}
	code := strings.TrimSpace(req.ReferralCode)
	if code == "" {
		return nil, clickdomain.ErrMissingReferralCode
	}
	if req.OrderAmount <= 0 || req.ProductPrice < 0 {
		return nil, conversiondomain.ErrInvalidAmount
	}

	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	model := conversiondomain.AttributionModel(s.cfg.DefaultModel)
	if raw := strings.TrimSpace(req.AttributionModel); raw != "" {
		parsed, ok := conversiondomain.ParseAttributionModel(raw)
		if !ok {
			return nil, conversiondomain.ErrInvalidModel
		}
		model = parsed
	}

	windowDays := s.cfg.WindowDays
	if req.AttributionWindowDays > 0 {
		windowDays = req.AttributionWindowDays
	}

	key := conversiondomain.BuildIdempotencyKey(orderID, productID, code)
	if existing, err := s.repo.FindByIdempotencyKey(ctx, s.db, key); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	partner, err := s.partnerRepo.FindByReferralCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if partner == nil || partner.Status != partnerdomain.PartnerStatusActive {
		return nil, clickdomain.ErrInvalidReferralCode
	}

	product, err := s.productRepo.FindByID(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, conversiondomain.ErrInvalidProduct
	}

	now := s.clock.Now(ctx)
	since := now.Add(-time.Duration(windowDays) * 24 * time.Hour)
	candidates, err := s.clickRepo.ListAttributable(ctx, s.db, partner.ID, code, since)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, conversiondomain.ErrNoAttributableClick
	}

	path, primaryIdx := distributeWeights(model, candidates, now)
	primary := candidates[primaryIdx]

	pathJSON, err := json.Marshal(path)
	if err != nil {
		return nil, err
	}

	event := &conversiondomain.ConversionEvent{
		ID:                    s.genID.Generate(),
		PartnerID:             partner.ID,
		OrderID:               orderID,
		ProductID:             productID,
		ReferralClickID:       primary.ID,
		ReferralCode:          code,
		ConversionType:        classify(req.IsNewCustomer, len(candidates)),
		AttributionModel:      model,
		Status:                conversiondomain.StatusPending,
		OrderAmount:           req.OrderAmount,
		ProductPrice:          req.ProductPrice,
		Quantity:              quantity,
		AttributionWeight:     path[primaryIdx].Weight,
		AttributionPath:       datatypes.JSON(pathJSON),
		ClickedAt:             primary.CreatedAt,
		ConvertedAt:           now,
		AttributionWindowDays: windowDays,
		WithinWindow:          now.Sub(primary.CreatedAt) <= time.Duration(windowDays)*24*time.Hour,
		IdempotencyKey:        key,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, event); err != nil {
			return err
		}
		claimed, err := s.clickRepo.MarkConverted(ctx, tx, primary.ID, event.ID, now)
		if err != nil {
			return err
		}
		if !claimed {
			return conversiondomain.ErrNoAttributableClick
		}
		return s.partnerRepo.RecordOrder(ctx, tx, partner.ID, now)
	})
	if err != nil {
		// A concurrent submission of the same key won the insert race.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.repo.FindByIdempotencyKey(ctx, s.db, key)
		}
		return nil, err
	}

	s.metrics.ConversionsTotal.WithLabelValues(string(model)).Inc()
	s.log.Info("conversion created",
		zap.String("conversion_id", event.ID.String()),
		zap.String("partner_id", partner.ID.String()),
		zap.String("order_id", orderID),
		zap.String("type", string(event.ConversionType)),
		zap.Int("path_length", len(path)),
	)

	return event, nil
}

func classify(isNewCustomer *bool, candidateCount int) conversiondomain.ConversionType {
	if isNewCustomer != nil && !*isNewCustomer {
		return conversiondomain.TypeRepeatPurchase
	}
	if candidateCount == 1 {
		return conversiondomain.TypeDirectPurchase
	}
	return conversiondomain.TypeAssistedPurchase
}

func (s *Service) Confirm(ctx context.Context, id string) (*conversiondomain.ConversionEvent, error) {
	return s.transition(ctx, id, conversiondomain.ConfirmEvent)
}

func (s *Service) Cancel(ctx context.Context, id string) (*conversiondomain.ConversionEvent, error) {
	return s.transition(ctx, id, conversiondomain.CancelEvent)
}

// Refund accumulates refunded amounts onto a confirmed conversion. Once the
// running total reaches the order amount the conversion becomes refunded,
// otherwise it stays partially refunded.
func (s *Service) Refund(ctx context.Context, req conversiondomain.RefundRequest) (*conversiondomain.ConversionEvent, error) {
	return s.transition(ctx, req.ConversionID, func(c conversiondomain.ConversionEvent) (conversiondomain.ConversionEvent, error) {
		return conversiondomain.ApplyRefund(c, req.Amount, req.Quantity)
	})
}

func (s *Service) GetByID(ctx context.Context, id string) (*conversiondomain.ConversionEvent, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, conversiondomain.ErrConversionNotFound
	}
	event, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, conversiondomain.ErrConversionNotFound
	}
	return event, nil
}

func (s *Service) transition(ctx context.Context, id string, apply func(conversiondomain.ConversionEvent) (conversiondomain.ConversionEvent, error)) (*conversiondomain.ConversionEvent, error) {
	event, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := apply(*event)
	if err != nil {
		return nil, err
	}
	next.UpdatedAt = s.clock.Now(ctx)
	if err := s.repo.UpdateState(ctx, s.db, &next); err != nil {
		return nil, err
	}
	s.log.Info("conversion state updated",
		zap.String("conversion_id", next.ID.String()),
		zap.String("status", string(next.Status)),
	)
	return &next, nil
}
