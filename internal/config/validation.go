package config

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// ratioTolerance is how far the configured native ratios may drift from
// summing to exactly 1.
const ratioTolerance = 0.01

func validate(c *Config) error {
	if err := c.Payout.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Networks.Moonbeam.validate("networks.moonbeam"); err != nil {
		return err
	}
	if err := c.Networks.Moonriver.validate("networks.moonriver"); err != nil {
		return err
	}
	if err := c.Stable.validate(); err != nil {
		return err
	}
	return nil
}

func (p *PayoutConfig) validate() error {
	if p.GlmrRatio < 0 || p.MovrRatio < 0 {
		return fmt.Errorf("payout ratios must not be negative")
	}
	if math.Abs(p.GlmrRatio+p.MovrRatio-1.0) > ratioTolerance {
		return fmt.Errorf("payout.glmr_ratio and payout.movr_ratio must sum to 100%%")
	}
	if p.CouncilThreshold < 1 {
		return fmt.Errorf("payout.council_threshold must be >= 1")
	}
	if p.CouncilLengthBound < 1 {
		return fmt.Errorf("payout.council_length_bound must be >= 1")
	}
	return nil
}

func (m *MarketConfig) validate() error {
	if m.BlockLag < 0 {
		return fmt.Errorf("market.block_lag must be >= 0")
	}
	return nil
}

func (n *NetworkConfig) validate(key string) error {
	if strings.TrimSpace(n.WS) == "" {
		return fmt.Errorf("%s.ws must not be empty", key)
	}
	if strings.TrimSpace(n.Subscan) == "" {
		return fmt.Errorf("%s.subscan must not be empty", key)
	}
	if n.Decimals < 0 {
		return fmt.Errorf("%s.decimals must be >= 0", key)
	}
	return nil
}

func (s *StableConfig) validate() error {
	if _, ok := new(big.Int).SetString(strings.TrimSpace(s.AssetID), 10); !ok {
		return fmt.Errorf("stable.asset_id is not a valid integer: %q", s.AssetID)
	}
	if s.Decimals < 0 {
		return fmt.Errorf("stable.decimals must be >= 0")
	}
	return nil
}
