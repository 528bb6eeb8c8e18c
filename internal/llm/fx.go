package llm

import (
	"github.com/accordly/accordly/internal/llm/providers"
	"github.com/accordly/accordly/internal/llm/repository"
	"github.com/accordly/accordly/internal/llm/service"
	"go.uber.org/fx"
)

var Module = fx.Module("llm.service",
	fx.Provide(repository.Provide),
	fx.Provide(providers.NewRegistry),
	fx.Provide(service.New),
)
