// Package config loads the exporter configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Environment variables recognized as overrides.
const (
	EnvDOAJAPIURL        = "DOAJ_API_URL"
	EnvDOAJAPIKey        = "DOAJ_API_KEY"
	EnvArticleMetaDomain = "ARTICLEMETA_DOMAIN"
	EnvRunRetries        = "EXPORT_RUN_RETRIES"
)

// DOAJ holds the DOAJ API settings.
type DOAJ struct {
	APIURL string `yaml:"api_url"`
	APIKey string `yaml:"api_key"`
}

// Validate implements validation.Validatable.
func (d DOAJ) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.APIURL, validation.Required),
		validation.Field(&d.APIKey, validation.Required),
	)
}

// ArticleMeta holds the document source settings.
type ArticleMeta struct {
	Domain string `yaml:"domain"`
}

// Config is the full exporter configuration.
type Config struct {
	DOAJ        DOAJ        `yaml:"doaj"`
	ArticleMeta ArticleMeta `yaml:"articlemeta"`

	// Retries is the HTTP attempt budget for transient transport failures.
	Retries int `yaml:"retries"`

	// MaxWorkers bounds the job executor pool.
	MaxWorkers int `yaml:"max_workers"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DOAJ:       DOAJ{APIURL: "https://doaj.org/api/"},
		Retries:    3,
		MaxWorkers: 4,
	}
}

// Load builds the configuration: defaults, then the YAML file at path (when
// non-empty), then environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvDOAJAPIURL); ok {
		c.DOAJ.APIURL = v
	}
	if v, ok := os.LookupEnv(EnvDOAJAPIKey); ok {
		c.DOAJ.APIKey = v
	}
	if v, ok := os.LookupEnv(EnvArticleMetaDomain); ok {
		c.ArticleMeta.Domain = v
	}
	if v, ok := os.LookupEnv(EnvRunRetries); ok {
		if retries, err := strconv.Atoi(v); err == nil {
			c.Retries = retries
		}
	}
}

// Validate implements validation.Validatable.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DOAJ),
		validation.Field(&c.Retries, validation.Min(1)),
		validation.Field(&c.MaxWorkers, validation.Min(1)),
	)
}
