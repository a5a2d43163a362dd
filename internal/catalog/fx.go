package catalog

import (
	"github.com/neturelabs/affiliate/internal/catalog/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog",
	fx.Provide(repository.ProvideProduct),
	fx.Provide(repository.ProvideSupplier),
)
