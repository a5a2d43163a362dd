package commission

import (
	"github.com/neturelabs/affiliate/internal/commission/repository"
	"github.com/neturelabs/affiliate/internal/commission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("commission",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
