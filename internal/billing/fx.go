package billing

import (
	"go.uber.org/fx"

	"github.com/desklyhq/deskly/internal/billing/repository"
	"github.com/desklyhq/deskly/internal/billing/service"
)

var Module = fx.Module("billing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
