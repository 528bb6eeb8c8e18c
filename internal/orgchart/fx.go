package orgchart

import (
	"github.com/accordly/accordly/internal/orgchart/repository"
	"github.com/accordly/accordly/internal/orgchart/service"
	"go.uber.org/fx"
)

var Module = fx.Module("orgchart.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
