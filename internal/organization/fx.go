package organization

import (
	"github.com/accordly/accordly/internal/organization/repository"
	"github.com/accordly/accordly/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
