package auth

import (
	"go.uber.org/fx"

	"github.com/desklyhq/deskly/internal/auth/service"
	"github.com/desklyhq/deskly/internal/auth/session"
)

var Module = fx.Module("auth.service",
	fx.Provide(session.NewManager),
	fx.Provide(service.New),
)
