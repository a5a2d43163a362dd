package service

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/neturelabs/affiliate/internal/clock"
	partnerdomain "github.com/neturelabs/affiliate/internal/partner/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referralCodeLength   = 8
	referralCodeAttempts = 10
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  partnerdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  partnerdomain.Repository
}

func NewService(p ServiceParam) partnerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("partner.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Register(ctx context.Context, req partnerdomain.RegisterRequest) (*partnerdomain.Partner, error) {
	userID, err := snowflake.ParseString(strings.TrimSpace(req.UserID))
	if err != nil {
		return nil, partnerdomain.ErrInvalidUser
	}

	code, err := s.generateUniqueReferralCode(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now(ctx)
	partner := &partnerdomain.Partner{
		ID:           s.genID.Generate(),
		UserID:       userID,
		ReferralCode: code,
		Status:       partnerdomain.PartnerStatusPending,
		Tier:         partnerdomain.TierBronze,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, partner); err != nil {
		return nil, err
	}

	s.log.Info("partner registered",
		zap.String("partner_id", partner.ID.String()),
		zap.String("referral_code", partner.ReferralCode),
	)
	return partner, nil
}

func (s *Service) GetByReferralCode(ctx context.Context, code string) (*partnerdomain.Partner, error) {
	partner, err := s.repo.FindByReferralCode(ctx, s.db, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return nil, partnerdomain.ErrPartnerNotFound
	}
	return partner, nil
}

// RecomputeTiers promotes or demotes every active partner based on the
// confirmed commission volume of the trailing 30 days.
func (s *Service) RecomputeTiers(ctx context.Context) error {
	partners, err := s.repo.ListActive(ctx, s.db)
	if err != nil {
		return err
	}

	now := s.clock.Now(ctx)
	since := now.AddDate(0, 0, -30)

	for _, partner := range partners {
		total, err := s.repo.SumConfirmedCommissions(ctx, s.db, partner.ID, since)
		if err != nil {
			s.log.Warn("tier recompute skipped",
				zap.String("partner_id", partner.ID.String()), zap.Error(err))
			continue
		}

		tier := partnerdomain.TierFor(total)
		if tier == partner.Tier {
			continue
		}
		if err := s.repo.UpdateTier(ctx, s.db, partner.ID, tier, now); err != nil {
			return err
		}
		s.log.Info("partner tier updated",
			zap.String("partner_id", partner.ID.String()),
			zap.String("tier", string(tier)),
		)
	}

	return nil
}

func (s *Service) generateUniqueReferralCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		code, err := randomReferralCode()
		if err != nil {
			return "", err
		}
		exists, err := s.repo.ReferralCodeExists(ctx, s.db, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", partnerdomain.ErrReferralCodeExhaust
}

func randomReferralCode() (string, error) {
	var b strings.Builder
	for i := 0; i < referralCodeLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referralCodeAlphabet))))
		if err != nil {
			return "", err
		}
		b.WriteByte(referralCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
