package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/sentrilane/visitgate/internal/clock"
	"github.com/sentrilane/visitgate/internal/config"
	"github.com/sentrilane/visitgate/internal/migration"
	"github.com/sentrilane/visitgate/internal/observability"
	"github.com/sentrilane/visitgate/internal/seed"
	"github.com/sentrilane/visitgate/internal/server"
	"github.com/sentrilane/visitgate/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		seed.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
