package payment

import "go.uber.org/fx"

var Module = fx.Module("providers.payment",
	fx.Provide(func(p *HTTPProvider) Provider { return p }),
	fx.Provide(NewHTTPProvider),
)
