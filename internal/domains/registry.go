package domains

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type Storage interface {
	Load(ctx context.Context) (*Config, error)
	Save(ctx context.Context, cfg *Config) error
	Watch(ctx context.Context) (<-chan Config, error)
}

// Registry is the in-memory view of the tracked-domain list. It implements
// core.DomainAllowlist for the capture pipeline and exposes the management
// operations the CLI uses.
type Registry struct {
	storage Storage
	mu      sync.RWMutex
	domains map[string]DomainConfig
}

func NewRegistry(storage Storage) *Registry {
	return &Registry{
		storage: storage,
		domains: make(map[string]DomainConfig),
	}
}

func (r *Registry) Load(ctx context.Context) error {
	cfg, err := r.storage.Load(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.domains = cfg.Domains
	r.mu.Unlock()
	return nil
}

// IsTracked reports whether any enabled domain matches the hostname.
// Matching is by substring containment so subdomains of a tracked domain
// count as tracked.
func (r *Registry) IsTracked(_ context.Context, hostname string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for domain, cfg := range r.domains {
		if cfg.Enabled && strings.Contains(hostname, domain) {
			return true, nil
		}
	}
	return false, nil
}

func (r *Registry) Add(ctx context.Context, domain string, cfg DomainConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Create new state
	newDomains := make(map[string]DomainConfig, len(r.domains)+1)
	for k, v := range r.domains {
		newDomains[k] = v
	}
	newDomains[domain] = cfg

	// Try to save first
	if err := r.storage.Save(ctx, &Config{Domains: newDomains}); err != nil {
		return err
	}

	// Only update in-memory state if save succeeded
	r.domains = newDomains
	return nil
}

func (r *Registry) Remove(ctx context.Context, domain string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	newDomains := make(map[string]DomainConfig, len(r.domains))
	for k, v := range r.domains {
		if k != domain {
			newDomains[k] = v
		}
	}

	if err := r.storage.Save(ctx, &Config{Domains: newDomains}); err != nil {
		return err
	}

	r.domains = newDomains
	return nil
}

// SetEnabled flips tracking for an existing domain.
func (r *Registry) SetEnabled(ctx context.Context, domain string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.domains[domain]
	if !ok {
		return fmt.Errorf("unknown domain %q", domain)
	}
	cfg.Enabled = enabled

	newDomains := make(map[string]DomainConfig, len(r.domains))
	for k, v := range r.domains {
		newDomains[k] = v
	}
	newDomains[domain] = cfg

	if err := r.storage.Save(ctx, &Config{Domains: newDomains}); err != nil {
		return err
	}

	r.domains = newDomains
	return nil
}

func (r *Registry) List() map[string]DomainConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Return copy
	result := make(map[string]DomainConfig, len(r.domains))
	for k, v := range r.domains {
		result[k] = v
	}
	return result
}

// Watch follows external edits to the backing file, applying each update to
// the in-memory view before forwarding it.
func (r *Registry) Watch(ctx context.Context) (<-chan Config, error) {
	ch, err := r.storage.Watch(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan Config)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case cfg, ok := <-ch:
				if !ok {
					return
				}

				r.mu.Lock()
				if cfg.Domains == nil {
					r.domains = make(map[string]DomainConfig)
				} else {
					r.domains = cfg.Domains
				}
				r.mu.Unlock()

				select {
				case out <- cfg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
