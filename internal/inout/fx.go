package inout

import (
	"github.com/sentrilane/visitgate/internal/inout/repository"
	"github.com/sentrilane/visitgate/internal/inout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("inout.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
