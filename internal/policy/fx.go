package policy

import (
	"github.com/neturelabs/affiliate/internal/policy/repository"
	"github.com/neturelabs/affiliate/internal/policy/service"
	"go.uber.org/fx"
)

var Module = fx.Module("policy",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
