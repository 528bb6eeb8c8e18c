package quota

import (
	"github.com/accordly/accordly/internal/quota/repository"
	"github.com/accordly/accordly/internal/quota/service"
	"go.uber.org/fx"
)

var Module = fx.Module("quota.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
