// Package config loads the daemon configuration from TOML or YAML and layers
// IDEACAPITAL_* environment overrides on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "IDEACAPITAL_"

type Config struct {
	Environment   string `toml:"Environment" yaml:"environment" env:"ENVIRONMENT"`
	ListenAddress string `toml:"ListenAddress" yaml:"listenAddress" env:"LISTEN_ADDRESS"`
	DataDir       string `toml:"DataDir" yaml:"dataDir" env:"DATA_DIR"`
	// Operator owns the protocol singletons created at bootstrap.
	Operator string `toml:"Operator" yaml:"operator" env:"OPERATOR"`

	Bootstrap    Bootstrap    `toml:"bootstrap" yaml:"bootstrap" envPrefix:"BOOTSTRAP_"`
	Auth         Auth         `toml:"auth" yaml:"auth" envPrefix:"AUTH_"`
	RateLimit    RateLimit    `toml:"rate_limit" yaml:"rateLimit" envPrefix:"RATE_LIMIT_"`
	CORS         CORS         `toml:"cors" yaml:"cors" envPrefix:"CORS_"`
	Archive      Archive      `toml:"archive" yaml:"archive" envPrefix:"ARCHIVE_"`
	Distribution Distribution `toml:"distribution" yaml:"distribution" envPrefix:"DISTRIBUTION_"`
	Logging      Logging      `toml:"logging" yaml:"logging" envPrefix:"LOG_"`
	Telemetry    Telemetry    `toml:"telemetry" yaml:"telemetry" envPrefix:"OTEL_"`
}

type Bootstrap struct {
	PaymentName   string `toml:"PaymentName" yaml:"paymentName" env:"PAYMENT_NAME"`
	PaymentSymbol string `toml:"PaymentSymbol" yaml:"paymentSymbol" env:"PAYMENT_SYMBOL"`
	// ProposalThreshold is a decimal base-unit amount of reputation.
	ProposalThreshold string `toml:"ProposalThreshold" yaml:"proposalThreshold" env:"PROPOSAL_THRESHOLD"`
	MarketplaceFeeBps uint32 `toml:"MarketplaceFeeBps" yaml:"marketplaceFeeBps" env:"MARKETPLACE_FEE_BPS"`
}

type Auth struct {
	Enabled        bool          `toml:"Enabled" yaml:"enabled" env:"ENABLED"`
	HMACSecret     string        `toml:"HMACSecret" yaml:"hmacSecret" env:"HMAC_SECRET"`
	Issuer         string        `toml:"Issuer" yaml:"issuer" env:"ISSUER"`
	Audience       string        `toml:"Audience" yaml:"audience" env:"AUDIENCE"`
	AllowAnonymous bool          `toml:"AllowAnonymous" yaml:"allowAnonymous" env:"ALLOW_ANONYMOUS"`
	ClockSkew      time.Duration `toml:"ClockSkew" yaml:"clockSkew" env:"CLOCK_SKEW"`
}

type RateLimit struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond" yaml:"requestsPerSecond" env:"RPS"`
	Burst             int     `toml:"Burst" yaml:"burst" env:"BURST"`
}

type CORS struct {
	AllowedOrigins []string `toml:"AllowedOrigins" yaml:"allowedOrigins" env:"ALLOWED_ORIGINS" envSeparator:","`
}

// Archive selects the event archive database. An empty DSN disables the relay.
type Archive struct {
	DSN          string        `toml:"DSN" yaml:"dsn" env:"DSN"`
	BatchSize    int           `toml:"BatchSize" yaml:"batchSize" env:"BATCH_SIZE"`
	PollInterval time.Duration `toml:"PollInterval" yaml:"pollInterval" env:"POLL_INTERVAL"`
}

type Distribution struct {
	ClaimStorePath string `toml:"ClaimStorePath" yaml:"claimStorePath" env:"CLAIM_STORE"`
	ExportDir      string `toml:"ExportDir" yaml:"exportDir" env:"EXPORT_DIR"`
}

type Logging struct {
	Level      string `toml:"Level" yaml:"level" env:"LEVEL"`
	File       string `toml:"File" yaml:"file" env:"FILE"`
	MaxSizeMB  int    `toml:"MaxSizeMB" yaml:"maxSizeMB" env:"MAX_SIZE_MB"`
	MaxBackups int    `toml:"MaxBackups" yaml:"maxBackups" env:"MAX_BACKUPS"`
	MaxAgeDays int    `toml:"MaxAgeDays" yaml:"maxAgeDays" env:"MAX_AGE_DAYS"`
}

type Telemetry struct {
	Endpoint    string  `toml:"Endpoint" yaml:"endpoint" env:"ENDPOINT"`
	Insecure    bool    `toml:"Insecure" yaml:"insecure" env:"INSECURE"`
	Headers     string  `toml:"Headers" yaml:"headers" env:"HEADERS"`
	Traces      bool    `toml:"Traces" yaml:"traces" env:"TRACES"`
	Metrics     bool    `toml:"Metrics" yaml:"metrics" env:"METRICS"`
	SampleRatio float64 `toml:"SampleRatio" yaml:"sampleRatio" env:"SAMPLE_RATIO"`
}

// Default returns the configuration written for a fresh install.
func Default() *Config {
	return &Config{
		Environment:   "local",
		ListenAddress: ":8080",
		DataDir:       "./ideacapital-data",
		Bootstrap: Bootstrap{
			PaymentName:       "Mock USDC",
			PaymentSymbol:     "USDC",
			MarketplaceFeeBps: 250,
		},
		Auth:      Auth{ClockSkew: 2 * time.Minute},
		RateLimit: RateLimit{RequestsPerSecond: 20, Burst: 40},
		Archive: Archive{
			BatchSize:    256,
			PollInterval: 5 * time.Second,
		},
		Distribution: Distribution{
			ClaimStorePath: "claims.db",
			ExportDir:      "exports",
		},
		Logging: Logging{Level: "info", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 28},
	}
}

// Load reads path, creating it with defaults when absent, then applies
// environment overrides and validates the result. Files ending in .yaml or
// .yml are YAML; anything else is TOML.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := persist(path, cfg); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	} else if err != nil {
		return nil, err
	} else if err := decodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	cfg.resolvePaths()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
			return fmt.Errorf("decode config: %w", err)
		}
		return nil
	default:
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return fmt.Errorf("decode config: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
		}
		return nil
	}
}

// resolvePaths anchors relative store paths under DataDir.
func (c *Config) resolvePaths() {
	anchor := func(p string) string {
		if p == "" || p == ":memory:" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(c.DataDir, p)
	}
	c.Distribution.ClaimStorePath = anchor(c.Distribution.ClaimStorePath)
	c.Distribution.ExportDir = anchor(c.Distribution.ExportDir)
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
