package identity

import (
	"github.com/sentrilane/visitgate/internal/identity/repository"
	"github.com/sentrilane/visitgate/internal/identity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
