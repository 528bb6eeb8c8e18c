package main

import (
	"github.com/accordly/accordly/internal/clock"
	"github.com/accordly/accordly/internal/config"
	"github.com/accordly/accordly/internal/migration"
	"github.com/accordly/accordly/internal/observability"
	"github.com/accordly/accordly/internal/scheduler"
	"github.com/accordly/accordly/internal/server"
	"github.com/accordly/accordly/pkg/db"
	"github.com/bwmarrin/snowflake"
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
		server.Module,
		scheduler.Module,
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
