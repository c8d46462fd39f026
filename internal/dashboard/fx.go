package dashboard

import (
	"github.com/sentrilane/visitgate/internal/dashboard/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dashboard.service",
	fx.Provide(service.New),
)
