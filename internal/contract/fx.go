package contract

import (
	"github.com/accordly/accordly/internal/contract/repository"
	"github.com/accordly/accordly/internal/contract/service"
	"go.uber.org/fx"
)

var Module = fx.Module("contract.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
