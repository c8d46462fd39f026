package notification

import (
	"github.com/sentrilane/visitgate/internal/notification/live"
	"github.com/sentrilane/visitgate/internal/notification/repository"
	"github.com/sentrilane/visitgate/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(live.NewHub),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
