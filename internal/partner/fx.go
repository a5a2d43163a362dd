package partner

import (
	"github.com/neturelabs/affiliate/internal/partner/repository"
	"github.com/neturelabs/affiliate/internal/partner/service"
	"go.uber.org/fx"
)

var Module = fx.Module("partner",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
