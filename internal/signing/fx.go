package signing

import (
	"github.com/accordly/accordly/internal/signing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("signing.service",
	fx.Provide(service.New),
)
