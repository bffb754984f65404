package deliveryorder

import (
	"go.uber.org/fx"

	"github.com/desklyhq/deskly/internal/deliveryorder/repository"
	"github.com/desklyhq/deskly/internal/deliveryorder/service"
)

var Module = fx.Module("deliveryorder.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
