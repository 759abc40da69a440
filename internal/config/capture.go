package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/convkeep/pkg/log"
)

// CaptureConfig tunes the per-page capture loop. The defaults track how chat
// UIs actually render: a settle delay for client-side hydration, debounce to
// avoid scanning mid-stream, and a throttle to bound staleness.
type CaptureConfig struct {
	SettleDelay      time.Duration `env:"CONVKEEP_SETTLE_DELAY" envDefault:"1s"`
	DebounceInterval time.Duration `env:"CONVKEEP_DEBOUNCE_INTERVAL" envDefault:"2s"`
	ScanThrottle     time.Duration `env:"CONVKEEP_SCAN_THROTTLE" envDefault:"3s"`
	InterRecordDelay time.Duration `env:"CONVKEEP_INTER_RECORD_DELAY" envDefault:"100ms"`
}

func NewCaptureConfig(ctx context.Context) *CaptureConfig {
	c := &CaptureConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Capture config")
	}
	return c
}
