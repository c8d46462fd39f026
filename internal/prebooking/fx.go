package prebooking

import (
	"github.com/sentrilane/visitgate/internal/prebooking/repository"
	"github.com/sentrilane/visitgate/internal/prebooking/service"
	"go.uber.org/fx"
)

var Module = fx.Module("prebooking.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
