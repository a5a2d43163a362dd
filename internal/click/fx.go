package click

import (
	"github.com/neturelabs/affiliate/internal/click/repository"
	"github.com/neturelabs/affiliate/internal/click/service"
	"go.uber.org/fx"
)

var Module = fx.Module("click",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
