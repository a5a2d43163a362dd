package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/neturelabs/affiliate/internal/config"
	"github.com/neturelabs/affiliate/internal/metrics"
	policydomain "github.com/neturelabs/affiliate/internal/policy/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Config  config.Config
	Metrics *metrics.Metrics
	Repo    policydomain.Repository
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	cfg     config.CommissionConfig
	metrics *metrics.Metrics
	repo    policydomain.Repository
}

func NewService(p ServiceParam) policydomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("policy.service"),
		cfg:     p.Config.Commission,
		metrics: p.Metrics,
		repo:    p.Repo,
	}
}

type level struct {
	name    policydomain.ResolutionLevel
	attempt func(ctx context.Context, req policydomain.ResolveRequest) (*policydomain.CommissionPolicy, error)
}

// Resolve walks the priority chain product > supplier > tier > default and
// stops at the first acceptable policy. Lookup failures downgrade to the
// next level; exhausting the chain yields safe mode, never an error.
func (s *Service) Resolve(ctx context.Context, req policydomain.ResolveRequest) policydomain.Resolved {
	for _, lvl := range s.levels() {
		policy, err := lvl.attempt(ctx, req)
		if err != nil {
			s.log.Warn("policy lookup failed, downgrading",
				zap.String("level", string(lvl.name)),
				zap.Error(err),
			)
			continue
		}
		if policy != nil {
			s.metrics.PolicyResolutions.WithLabelValues(string(lvl.name)).Inc()
			return policydomain.Resolved{Policy: policy, Level: lvl.name}
		}
	}

	s.metrics.PolicyResolutions.WithLabelValues(string(policydomain.LevelSafeMode)).Inc()
	return policydomain.Resolved{Level: policydomain.LevelSafeMode}
}

func (s *Service) levels() []level {
	levels := make([]level, 0, 4)
	// The rollout toggle skips scoped lookups entirely and resolves at the
	// default level only.
	if !s.cfg.DefaultOnly {
		levels = append(levels,
			level{name: policydomain.LevelProduct, attempt: s.attemptProduct},
			level{name: policydomain.LevelSupplier, attempt: s.attemptSupplier},
			level{name: policydomain.LevelTier, attempt: s.attemptTier},
		)
	}
	return append(levels, level{name: policydomain.LevelDefault, attempt: s.attemptDefault})
}

func (s *Service) attemptProduct(ctx context.Context, req policydomain.ResolveRequest) (*policydomain.CommissionPolicy, error) {
	candidates, err := s.repo.ListByProduct(ctx, s.db, req.ProductID)
	if err != nil {
		return nil, err
	}
	return firstAcceptable(candidates, req), nil
}

func (s *Service) attemptSupplier(ctx context.Context, req policydomain.ResolveRequest) (*policydomain.CommissionPolicy, error) {
	candidates, err := s.repo.ListBySupplier(ctx, s.db, req.SupplierID)
	if err != nil {
		return nil, err
	}
	return firstAcceptable(candidates, req), nil
}

// attemptTier is reserved for partner-tier scoped policies. No tier policies
// are written yet, so it never matches.
func (s *Service) attemptTier(ctx context.Context, req policydomain.ResolveRequest) (*policydomain.CommissionPolicy, error) {
	return nil, nil
}

func (s *Service) attemptDefault(ctx context.Context, req policydomain.ResolveRequest) (*policydomain.CommissionPolicy, error) {
	candidates, err := s.repo.ListDefaults(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return firstAcceptable(candidates, req), nil
}

func firstAcceptable(candidates []policydomain.CommissionPolicy, req policydomain.ResolveRequest) *policydomain.CommissionPolicy {
	for i := range candidates {
		if candidates[i].Acceptable(req.OrderDate) {
			return &candidates[i]
		}
	}
	return nil
}

func (s *Service) RecordUsage(ctx context.Context, db *gorm.DB, policyID snowflake.ID) error {
	return s.repo.IncrementUsage(ctx, db, policyID)
}
