package config

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"ideacapital/crypto"
)

var (
	ErrSecretRequired = errors.New("auth.HMACSecret is required when auth is enabled")
	ErrAuthRequired   = errors.New("auth must be enabled outside local and test environments")
)

const maxFeeBps = 10_000

// Validate checks the settings the daemon cannot start without.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.ListenAddress) == "" {
		return errors.New("ListenAddress is required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("DataDir is required")
	}
	if c.Operator != "" {
		if _, err := crypto.ParseAddress(c.Operator); err != nil {
			return fmt.Errorf("Operator: %w", err)
		}
	}
	if c.Bootstrap.MarketplaceFeeBps > maxFeeBps {
		return fmt.Errorf("bootstrap.MarketplaceFeeBps %d exceeds %d", c.Bootstrap.MarketplaceFeeBps, maxFeeBps)
	}
	if raw := strings.TrimSpace(c.Bootstrap.ProposalThreshold); raw != "" {
		v, ok := new(big.Int).SetString(raw, 10)
		if !ok || v.Sign() < 0 {
			return fmt.Errorf("bootstrap.ProposalThreshold %q is not a base-unit amount", raw)
		}
	}
	if c.isSensitive() && !c.Auth.Enabled {
		return ErrAuthRequired
	}
	if c.Auth.Enabled && strings.TrimSpace(c.Auth.HMACSecret) == "" {
		return ErrSecretRequired
	}
	if c.Auth.ClockSkew < 0 {
		return errors.New("auth.ClockSkew cannot be negative")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rate_limit values cannot be negative")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.SampleRatio %v outside [0,1]", c.Telemetry.SampleRatio)
	}
	return nil
}

// ProposalThresholdAmount parses the configured threshold. Nil means the protocol
// default.
func (b Bootstrap) ProposalThresholdAmount() *big.Int {
	raw := strings.TrimSpace(b.ProposalThreshold)
	if raw == "" {
		return nil
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil
	}
	return v
}

func (c *Config) isSensitive() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "", "local", "dev", "development", "test":
		return false
	}
	return true
}
