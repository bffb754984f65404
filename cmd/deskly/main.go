package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/desklyhq/deskly/internal/config"
	"github.com/desklyhq/deskly/internal/migration"
	"github.com/desklyhq/deskly/internal/observability"
	"github.com/desklyhq/deskly/internal/server"
	"github.com/desklyhq/deskly/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
