package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/neturelabs/affiliate/internal/catalog/domain"
	clickdomain "github.com/neturelabs/affiliate/internal/click/domain"
	"github.com/neturelabs/affiliate/internal/clock"
	"github.com/neturelabs/affiliate/internal/config"
	"github.com/neturelabs/affiliate/internal/metrics"
	partnerdomain "github.com/neturelabs/affiliate/internal/partner/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Redis       *redis.Client
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Config      config.Config
	Metrics     *metrics.Metrics
	Repo        clickdomain.Repository
	PartnerRepo partnerdomain.Repository
	ProductRepo catalogdomain.ProductRepository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	cfg         config.TrackingConfig
	metrics     *metrics.Metrics
	limiter     *RateLimiter
	repo        clickdomain.Repository
	partnerRepo partnerdomain.Repository
	productRepo catalogdomain.ProductRepository
}

func NewService(p ServiceParam) clickdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("click.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		cfg:         p.Config.Tracking,
		metrics:     p.Metrics,
		limiter:     NewRateLimiter(p.Redis, p.Log, p.Config.Tracking.RateLimitWindow, p.Config.Tracking.RateLimitMax),
		repo:        p.Repo,
		partnerRepo: p.PartnerRepo,
		productRepo: p.ProductRepo,
	}
}

// RecordClick validates, classifies, anonymizes and persists one referral
// click. Only an unknown or inactive referral code rejects outright: every
// other condition degrades to a non-valid status so the record still exists
// for fraud analysis.
func (s *Service) RecordClick(ctx context.Context, req clickdomain.RecordClickRequest) (*clickdomain.ReferralClick, error) {
	code := strings.TrimSpace(req.ReferralCode)
	if code == "" {
		return nil, clickdomain.ErrMissingReferralCode
	}

	partner, err := s.partnerRepo.FindByReferralCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if partner == nil || partner.Status != partnerdomain.PartnerStatusActive {
		return nil, clickdomain.ErrInvalidReferralCode
	}

	var productID *snowflake.ID
	if raw := strings.TrimSpace(req.ProductID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, clickdomain.ErrInvalidProduct
		}
		productID = &id
	}

	now := s.clock.Now(ctx)
	sessionHash := HashIdentifier(req.SessionID)
	fingerprintHash := HashIdentifier(req.Fingerprint)

	click := &clickdomain.ReferralClick{
		ID:              s.genID.Generate(),
		PartnerID:       partner.ID,
		ProductID:       productID,
		ReferralCode:    code,
		Status:          clickdomain.ClickStatusValid,
		SessionHash:     sessionHash,
		FingerprintHash: fingerprintHash,
		IPAddress:       AnonymizeIP(req.IPAddress),
		Source:          strings.TrimSpace(req.Source),
		Medium:          strings.TrimSpace(req.Medium),
		Campaign:        strings.TrimSpace(req.Campaign),
		Referer:         strings.TrimSpace(req.Referer),
		ClickCount:      1,
		CreatedAt:       now,
	}

	info := parseUserAgent(req.UserAgent)
	click.Device = info.Device
	click.OS = info.OS
	click.Browser = info.Browser

	// Classification precedence is fixed: duplicate, bot, internal,
	// rate-limited. The first hit wins.
	original, err := s.findDuplicate(ctx, click, now)
	if err != nil {
		s.log.Warn("duplicate lookup failed", zap.Error(err))
	}
	switch {
	case original != nil:
		click.Status = clickdomain.ClickStatusDuplicate
		click.OriginalClickID = &original.ID
		click.ClickCount = original.ClickCount + 1
	case IsBotUserAgent(req.UserAgent):
		click.Status = clickdomain.ClickStatusBot
	case IsInternalIP(req.IPAddress):
		click.Status = clickdomain.ClickStatusInternal
	case !s.limiter.Allow(ctx, partner.ID.String(), s.rateLimitIdentifier(click)):
		click.Status = clickdomain.ClickStatusRateLimited
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, click); err != nil {
			return err
		}
		if click.OriginalClickID != nil {
			if err := s.repo.IncrementClickCount(ctx, tx, *click.OriginalClickID); err != nil {
				return err
			}
		}
		if click.Status == clickdomain.ClickStatusValid {
			return s.partnerRepo.RecordClick(ctx, tx, partner.ID, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ClicksRecorded.WithLabelValues(string(click.Status)).Inc()
	s.log.Info("click recorded",
		zap.String("click_id", click.ID.String()),
		zap.String("partner_id", partner.ID.String()),
		zap.String("status", string(click.Status)),
	)

	return click, nil
}

func (s *Service) findDuplicate(ctx context.Context, click *clickdomain.ReferralClick, now time.Time) (*clickdomain.ReferralClick, error) {
	if click.SessionHash == "" && click.FingerprintHash == "" {
		return nil, nil
	}
	return s.repo.FindDuplicate(ctx, s.db, clickdomain.DuplicateQuery{
		PartnerID:       click.PartnerID,
		SessionHash:     click.SessionHash,
		FingerprintHash: click.FingerprintHash,
		ProductID:       click.ProductID,
		Since:           now.Add(-s.cfg.DuplicateLookback),
	})
}

func (s *Service) rateLimitIdentifier(click *clickdomain.ReferralClick) string {
	if click.SessionHash != "" {
		return click.SessionHash
	}
	if click.FingerprintHash != "" {
		return click.FingerprintHash
	}
	return click.IPAddress
}
