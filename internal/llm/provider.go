// Package llm provides LLM client with multi-provider failover support
package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gmsas95/healthplan/internal/config"
	apperrors "github.com/gmsas95/healthplan/internal/errors"
	"go.uber.org/zap"
)

// ProviderManager manages multiple LLM providers with failover
type ProviderManager struct {
	providers []ProviderConfig
	current   int
	mu        sync.RWMutex
	logger    *zap.Logger
}

// ProviderConfig holds provider configuration with priority
type ProviderConfig struct {
	Name     string
	Client   *Client
	Priority int // Lower = higher priority
	Enabled  bool
	LastErr  error
	LastUsed time.Time
}

// NewProviderManager creates a new provider manager
func NewProviderManager(logger *zap.Logger) *ProviderManager {
	return &ProviderManager{
		providers: make([]ProviderConfig, 0),
		logger:    logger,
	}
}

// NewFromConfig registers every provider that has an API key. The default
// provider wins ties on priority.
func NewFromConfig(cfg *config.Config, logger *zap.Logger) (*ProviderManager, error) {
	pm := NewProviderManager(logger)

	names := make([]string, 0, len(cfg.LLM.Providers))
	for name := range cfg.LLM.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := cfg.LLM.Providers[name]
		if p.APIKey == "" || p.BaseURL == "" {
			continue
		}
		priority := p.Priority * 2
		if name != cfg.LLM.DefaultProvider {
			priority++
		}
		pm.AddProvider(name, NewClient(name, p), priority)
		if p.Disabled {
			pm.DisableProvider(name)
		}
	}

	if pm.Len() == 0 {
		return nil, apperrors.ErrProviderNotConfigured
	}
	return pm, nil
}

// AddProvider adds a provider to the manager
func (pm *ProviderManager) AddProvider(name string, client *Client, priority int) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.providers = append(pm.providers, ProviderConfig{
		Name:     name,
		Client:   client,
		Priority: priority,
		Enabled:  true,
	})

	sort.SliceStable(pm.providers, func(i, j int) bool {
		return pm.providers[i].Priority < pm.providers[j].Priority
	})
	pm.current = 0
}

// Len returns the number of registered providers
func (pm *ProviderManager) Len() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.providers)
}

// ChatCompletion sends a request with automatic failover
func (pm *ProviderManager) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	pm.mu.RLock()
	startIdx := pm.current
	n := len(pm.providers)
	pm.mu.RUnlock()

	if n == 0 {
		return nil, apperrors.ErrProviderNotConfigured
	}

	var lastErr error

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		idx := (startIdx + i) % n

		pm.mu.RLock()
		provider := pm.providers[idx]
		pm.mu.RUnlock()

		if !provider.Enabled {
			continue
		}

		// The model belongs to the provider, not the caller.
		attempt := req
		attempt.Model = ""

		resp, err := provider.Client.ChatCompletion(ctx, attempt)
		if err == nil {
			pm.mu.Lock()
			pm.current = idx
			pm.providers[idx].LastUsed = time.Now()
			pm.providers[idx].LastErr = nil
			pm.mu.Unlock()

			if i > 0 {
				pm.logger.Info("Failover successful",
					zap.String("provider", provider.Name),
					zap.Int("attempt", i+1),
				)
			}

			return resp, nil
		}

		pm.mu.Lock()
		pm.providers[idx].LastErr = err
		pm.mu.Unlock()

		lastErr = err
		pm.logger.Warn("Provider failed, trying next",
			zap.String("provider", provider.Name),
			zap.Error(err),
		)
	}

	if lastErr == nil {
		return nil, apperrors.ErrProviderNotConfigured
	}
	return nil, apperrors.WrapAs(apperrors.ErrProviderUnavailable,
		fmt.Errorf("all providers failed, last error: %w", lastErr))
}

// SimpleChat sends a simple chat with failover
func (pm *ProviderManager) SimpleChat(ctx context.Context, systemPrompt, userMessage string, opts ...ChatOption) (string, error) {
	resp, err := pm.ChatCompletion(ctx, buildRequest(systemPrompt, userMessage, opts))
	if err != nil {
		return "", err
	}
	return resp.Content(), nil
}

// GetProviderStatus returns status of all providers
func (pm *ProviderManager) GetProviderStatus() []map[string]interface{} {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	status := make([]map[string]interface{}, 0, len(pm.providers))
	for _, p := range pm.providers {
		status = append(status, map[string]interface{}{
			"name":     p.Name,
			"model":    p.Client.GetModel(),
			"enabled":  p.Enabled,
			"priority": p.Priority,
			"healthy":  p.LastErr == nil,
			"lastUsed": p.LastUsed,
		})
	}
	return status
}

// DisableProvider disables a provider by name
func (pm *ProviderManager) DisableProvider(name string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	for i := range pm.providers {
		if pm.providers[i].Name == name {
			pm.providers[i].Enabled = false
			break
		}
	}
}

// EnableProvider enables a provider by name
func (pm *ProviderManager) EnableProvider(name string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	for i := range pm.providers {
		if pm.providers[i].Name == name {
			pm.providers[i].Enabled = true
			pm.providers[i].LastErr = nil
			break
		}
	}
}

// ApplyConfig enables or disables registered providers to match cfg. A
// provider that was removed from cfg or lost its key is disabled. Providers
// added after start need a restart.
func (pm *ProviderManager) ApplyConfig(cfg config.LLMConfig) {
	pm.mu.RLock()
	names := make([]string, 0, len(pm.providers))
	enabled := make(map[string]bool, len(pm.providers))
	for _, p := range pm.providers {
		names = append(names, p.Name)
		enabled[p.Name] = p.Enabled
	}
	pm.mu.RUnlock()

	for _, name := range names {
		p, ok := cfg.Providers[name]
		want := ok && !p.Disabled && p.APIKey != ""
		if want == enabled[name] {
			continue
		}
		if want {
			pm.EnableProvider(name)
		} else {
			pm.DisableProvider(name)
		}
		pm.logger.Info("Provider state changed by config",
			zap.String("provider", name),
			zap.Bool("enabled", want),
		)
	}
}
