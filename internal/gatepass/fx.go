package gatepass

import (
	"github.com/sentrilane/visitgate/internal/gatepass/repository"
	"github.com/sentrilane/visitgate/internal/gatepass/service"
	"go.uber.org/fx"
)

var Module = fx.Module("gatepass.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
