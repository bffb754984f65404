package customer

import (
	"github.com/desklyhq/deskly/internal/customer/repository"
	"github.com/desklyhq/deskly/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
