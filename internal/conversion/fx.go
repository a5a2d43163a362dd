package conversion

import (
	"github.com/neturelabs/affiliate/internal/conversion/repository"
	"github.com/neturelabs/affiliate/internal/conversion/service"
	"go.uber.org/fx"
)

var Module = fx.Module("conversion",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
