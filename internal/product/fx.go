package product

import (
	"github.com/desklyhq/deskly/internal/product/repository"
	"github.com/desklyhq/deskly/internal/product/service"
	"go.uber.org/fx"
)

var Module = fx.Module("product.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
