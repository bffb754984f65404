package subscription

import (
	"go.uber.org/fx"

	"github.com/desklyhq/deskly/internal/subscription/repository"
	"github.com/desklyhq/deskly/internal/subscription/service"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
