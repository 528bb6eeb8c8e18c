package usage

import (
	"github.com/accordly/accordly/internal/usage/repository"
	"github.com/accordly/accordly/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
