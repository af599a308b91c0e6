package config

import (
	"context"

	"github.com/tendermint/naivechain/libs/log"
	"github.com/tendermint/naivechain/libs/service"
)

// ServiceProvider takes a config and a logger and returns a ready to go Node.
type ServiceProvider func(context.Context, *Config, log.Logger) (service.Service, error)
