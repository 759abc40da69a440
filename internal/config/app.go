package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/convkeep/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"CONVKEEP_RUNTIME_PATH" envDefault:".convkeep"`

	// MaxStorageBytes caps the total serialized size of stored records;
	// submissions past it are rejected. Default is 100 MB.
	MaxStorageBytes int64 `env:"CONVKEEP_MAX_STORAGE_BYTES" envDefault:"104857600"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}

	// A relative runtime path lives under the user's home directory.
	if !filepath.IsAbs(c.RuntimePath) {
		home, _ := os.UserHomeDir()
		c.RuntimePath = filepath.Join(home, c.RuntimePath)
	}
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "convkeep.db")
}

func (c AppConfig) GetDomainsPath() string {
	return filepath.Join(c.RuntimePath, "domains.json")
}
