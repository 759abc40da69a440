package domains

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sandevgo/convkeep/pkg/log"
)

type FileStorage struct {
	path string
	mu   sync.RWMutex
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{
		path: path,
	}
}

// Load reads the domain list. If the file is missing, it creates one with
// the built-in defaults.
func (c *FileStorage) Load(ctx context.Context) (*Config, error) {
	c.mu.RLock()
	data, err := os.ReadFile(c.path)
	c.mu.RUnlock()

	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create config directory: %w", err)
			}

			log.FromCtx(ctx).Info().Str("path", c.path).Msg("domains file not found, creating defaults")

			config := DefaultConfig()
			if err = c.Save(ctx, config); err != nil {
				return nil, fmt.Errorf("failed to create default domains file: %w", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read domains file: %w", err)
	}

	config := &Config{}
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse domains file: %w", err)
	}

	if config.Domains == nil {
		config.Domains = make(map[string]DomainConfig)
	}

	return config, nil
}

func (c *FileStorage) Save(ctx context.Context, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal domains: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write domains file: %w", err)
	}

	return nil
}

// Watch polls the file's mtime and emits the parsed config on each external
// edit. The channel closes when ctx is done.
func (c *FileStorage) Watch(ctx context.Context) (<-chan Config, error) {
	updates := make(chan Config)

	info, err := os.Stat(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat domains file: %w", err)
	}
	lastMod := info.ModTime()

	go func() {
		defer close(updates)

		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// Read file directly - this is atomic
				c.mu.RLock()
				data, err := os.ReadFile(c.path)
				c.mu.RUnlock()

				if err != nil {
					lastMod = time.Time{}
					continue
				}

				info, err = os.Stat(c.path)
				if err != nil {
					lastMod = time.Time{}
					continue
				}

				if !info.ModTime().After(lastMod) {
					continue
				}

				var config Config
				if err := json.Unmarshal(data, &config); err != nil {
					log.FromCtx(ctx).Error().Err(err).Msg("failed to parse domains file")
					continue
				}

				if config.Domains == nil {
					config.Domains = make(map[string]DomainConfig)
				}

				lastMod = info.ModTime()

				select {
				case updates <- config:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return updates, nil
}
