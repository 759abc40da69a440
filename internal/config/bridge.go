package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/convkeep/pkg/log"
)

// BridgeConfig configures the WebSocket endpoint the browser shim talks to.
// The default binds loopback only; captured pages live in the browser on the
// same machine.
type BridgeConfig struct {
	ListenAddr string `env:"CONVKEEP_LISTEN_ADDR" envDefault:"127.0.0.1:8377"`
}

func NewBridgeConfig(ctx context.Context) *BridgeConfig {
	c := &BridgeConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Bridge config")
	}
	return c
}
