package seed

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/neturelabs/affiliate/internal/clock"
	"github.com/neturelabs/affiliate/internal/config"
	policydomain "github.com/neturelabs/affiliate/internal/policy/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultPolicyCode = "DEFAULT_GLOBAL"

type Param struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Config config.Config
	Repo   policydomain.Repository
}

// EnsureDefaultPolicy creates the global default commission policy on first
// boot. Without it every order line resolves to safe mode.
func EnsureDefaultPolicy(ctx context.Context, p Param) error {
	existing, err := p.Repo.FindByCode(ctx, p.DB, defaultPolicyCode)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	now := p.Clock.Now(ctx)
	rate := p.Config.Commission.DefaultRate
	policy := &policydomain.CommissionPolicy{
		ID:         p.GenID.Generate(),
		Code:       defaultPolicyCode,
		Name:       "Global default commission",
		PolicyType: policydomain.PolicyTypeDefault,
		Status:     policydomain.PolicyStatusActive,
		Mechanism:  policydomain.MechanismPercentage,
		Rate:       &rate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := p.Repo.Insert(ctx, p.DB, policy); err != nil {
		return err
	}

	p.Log.Info("seeded default commission policy",
		zap.String("code", defaultPolicyCode),
		zap.Float64("rate", rate),
	)
	return nil
}

var Module = fx.Module("seed",
	fx.Invoke(func(p Param) error {
		return EnsureDefaultPolicy(context.Background(), p)
	}),
)
