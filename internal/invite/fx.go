package invite

import (
	"github.com/sentrilane/visitgate/internal/invite/repository"
	"github.com/sentrilane/visitgate/internal/invite/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invite.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
