package providers

import (
	"fmt"
	"log/slog"
	"sync"
)

// ProviderConfig configures one provider entry.
type ProviderConfig struct {
	Type      string  `mapstructure:"type" yaml:"type"` // "openai-vision"
	Model     string  `mapstructure:"model" yaml:"model"`
	APIKey    string  `mapstructure:"api_key" yaml:"api_key"`
	BaseURL   string  `mapstructure:"base_url" yaml:"base_url"`
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per second
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
}

// RegistryConfig is the provider section of the application config.
type RegistryConfig struct {
	Providers map[string]ProviderConfig
}

// Registry holds configured providers and their rate limiters. It is
// hot-reloadable: Reload swaps the provider set in place.
type Registry struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	ocr      map[string]OCRProvider
	llm      map[string]LLMClient
	limiters map[string]*RateLimiter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:   slog.Default(),
		ocr:      make(map[string]OCRProvider),
		llm:      make(map[string]LLMClient),
		limiters: make(map[string]*RateLimiter),
	}
}

// SetLogger sets the registry's logger.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if logger != nil {
		r.logger = logger
	}
}

// Reload replaces the provider set from config. Unknown provider types
// are skipped with a warning rather than failing the reload.
func (r *Registry) Reload(cfg RegistryConfig) {
	ocr := make(map[string]OCRProvider)
	llm := make(map[string]LLMClient)
	limiters := make(map[string]*RateLimiter)

	for name, pc := range cfg.Providers {
		if !pc.Enabled {
			continue
		}
		switch pc.Type {
		case "openai-vision":
			client := NewOpenAIVisionClient(OpenAIVisionConfig{
				APIKey:    pc.APIKey,
				BaseURL:   pc.BaseURL,
				Model:     pc.Model,
				RateLimit: pc.RateLimit,
			})
			ocr[name] = client
			llm[name] = client
			limiters[name] = NewRateLimiter(int(client.RequestsPerSecond() * 60))
		default:
			r.logger.Warn("skipping provider with unknown type", "name", name, "type", pc.Type)
		}
	}

	r.mu.Lock()
	r.ocr = ocr
	r.llm = llm
	r.limiters = limiters
	r.mu.Unlock()

	r.logger.Info("provider registry reloaded", "ocr", len(ocr), "llm", len(llm))
}

// RegisterOCR adds an OCR provider directly. Used by tests.
func (r *Registry) RegisterOCR(name string, p OCRProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ocr[name] = p
	r.limiters[name] = NewRateLimiter(int(p.RequestsPerSecond() * 60))
}

// RegisterLLM adds an LLM client directly. Used by tests.
func (r *Registry) RegisterLLM(name string, c LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[name] = c
}

// OCR returns the named OCR provider.
func (r *Registry) OCR(name string) (OCRProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.ocr[name]
	if !ok {
		return nil, fmt.Errorf("ocr provider %q not configured", name)
	}
	return p, nil
}

// LLM returns the named LLM client.
func (r *Registry) LLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.llm[name]
	if !ok {
		return nil, fmt.Errorf("llm provider %q not configured", name)
	}
	return c, nil
}

// LimiterFor returns the rate limiter for a provider, creating a
// permissive one if the provider was registered without a limiter.
func (r *Registry) LimiterFor(name string) *RateLimiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[name]; ok {
		return l
	}
	l := NewRateLimiter(6000)
	r.limiters[name] = l
	return l
}

// Status reports limiter state per provider.
func (r *Registry) Status() map[string]RateLimiterStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]RateLimiterStatus, len(r.limiters))
	for name, l := range r.limiters {
		out[name] = l.Status()
	}
	return out
}
