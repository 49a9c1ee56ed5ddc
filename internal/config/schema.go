package config

import (
	"time"

	"github.com/heavyclick/autoballoon-sub001/internal/providers"
)

// Config holds autoballoon configuration.
// Stored at: {storage_root}/config.yaml
type Config struct {
	Providers map[string]providers.ProviderConfig `mapstructure:"providers" yaml:"providers"`
	Defaults  DefaultsCfg                         `mapstructure:"defaults" yaml:"defaults"`
	Ingest    IngestCfg                           `mapstructure:"ingest" yaml:"ingest"`
	Extract   ExtractCfg                          `mapstructure:"extract" yaml:"extract"`
	Parser    ParserCfg                           `mapstructure:"parser" yaml:"parser"`
	EditSync  EditSyncCfg                         `mapstructure:"editsync" yaml:"editsync"`
	Crop      CropCfg                             `mapstructure:"crop" yaml:"crop"`
	Sampling  SamplingCfg                         `mapstructure:"sampling" yaml:"sampling"`
	Server    ServerCfg                           `mapstructure:"server" yaml:"server"`
}

// DefaultsCfg specifies default provider selections.
type DefaultsCfg struct {
	OCRProvider string `mapstructure:"ocr_provider" yaml:"ocr_provider"` // Provider used for raster extraction
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider"` // Provider used for subtype classification
}

// IngestCfg configures document ingestion.
type IngestCfg struct {
	RenderDPI int   `mapstructure:"render_dpi" yaml:"render_dpi"` // PDF page render resolution
	MaxPages  int   `mapstructure:"max_pages" yaml:"max_pages"`
	MaxPixels int   `mapstructure:"max_pixels" yaml:"max_pixels"` // Raster decode ceiling
	MaxBytes  int64 `mapstructure:"max_bytes" yaml:"max_bytes"`   // Upload size ceiling
}

// ExtractCfg configures the extraction pipeline.
type ExtractCfg struct {
	CoverageThreshold float64       `mapstructure:"coverage_threshold" yaml:"coverage_threshold"` // Vector-layer coverage below this falls back to OCR
	IoUThreshold      float64       `mapstructure:"iou_threshold" yaml:"iou_threshold"`
	OCRTimeout        time.Duration `mapstructure:"ocr_timeout" yaml:"ocr_timeout"`
	Workers           int           `mapstructure:"workers" yaml:"workers"` // Concurrent page workers
}

// ParserCfg configures dimension parsing.
type ParserCfg struct {
	DefaultUnits string `mapstructure:"default_units" yaml:"default_units"` // "in" or "mm"
}

// EditSyncCfg configures edit reconciliation.
type EditSyncCfg struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"` // Recompute delay after an edit
}

// CropCfg configures crop preview extraction.
type CropCfg struct {
	MarginFraction float64 `mapstructure:"margin_fraction" yaml:"margin_fraction"` // Padding around the dimension's region
}

// SamplingCfg configures sampling plan lookup.
type SamplingCfg struct {
	RemoteURL     string        `mapstructure:"remote_url" yaml:"remote_url"` // Optional remote planner; empty uses the built-in tables
	RemoteTimeout time.Duration `mapstructure:"remote_timeout" yaml:"remote_timeout"`
	RemoteRetries int           `mapstructure:"remote_retries" yaml:"remote_retries"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Port string `mapstructure:"port" yaml:"port"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Providers: map[string]providers.ProviderConfig{
			"openai": {
				Type:      "openai-vision",
				Model:     "gpt-4o",
				APIKey:    "${OPENAI_API_KEY}",
				RateLimit: 2.0,
				Enabled:   true,
			},
		},
		Defaults: DefaultsCfg{
			OCRProvider: "openai",
			LLMProvider: "openai",
		},
		Ingest: IngestCfg{
			RenderDPI: 300,
			MaxPages:  50,
			MaxPixels: 64 << 20,
			MaxBytes:  100 << 20,
		},
		Extract: ExtractCfg{
			CoverageThreshold: 0.02,
			IoUThreshold:      0.5,
			OCRTimeout:        2 * time.Minute,
			Workers:           4,
		},
		Parser: ParserCfg{
			DefaultUnits: "in",
		},
		EditSync: EditSyncCfg{
			Debounce: 500 * time.Millisecond,
		},
		Crop: CropCfg{
			MarginFraction: 0.15,
		},
		Sampling: SamplingCfg{
			RemoteTimeout: 10 * time.Second,
			RemoteRetries: 3,
		},
		Server: ServerCfg{
			Port: "8080",
		},
	}
}

// GetProvider returns a provider config by name.
func (c *Config) GetProvider(name string) (providers.ProviderConfig, bool) {
	cfg, ok := c.Providers[name]
	return cfg, ok
}

// EnabledProviders returns all enabled providers.
func (c *Config) EnabledProviders() map[string]providers.ProviderConfig {
	result := make(map[string]providers.ProviderConfig)
	for name, cfg := range c.Providers {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
