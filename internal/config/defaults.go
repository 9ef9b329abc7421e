package config

import "strings"

const (
	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"
	defaultAppHTTPAddr = ":9992"

	defaultGlmrRatio          = 0.5
	defaultMovrRatio          = 0.5
	defaultCouncilThreshold   = 3
	defaultCouncilLengthBound = 10000
	defaultSignature          = "yaron"

	// Price reference: ~200 blocks behind head, 30-period EMA. Policy values
	// carried over from the treasury workflow, kept configurable.
	defaultBlockLag       = 200
	defaultMarketTimeout  = 15
	defaultChainTimeout   = 30
	defaultHistoryPath    = "data/payouts.db"
	defaultMoonbeamWS     = "wss://wss.api.moonbeam.network"
	defaultMoonriverWS    = "wss://wss.api.moonriver.moonbeam.network"
	defaultMoonbeamScan   = "https://moonbeam.subscan.io"
	defaultMoonriverScan  = "https://moonriver.subscan.io"
	defaultStableToken    = "USDC"
	defaultStableAssetID  = "166377000701797186346254371275954761085"
	defaultStableDecimals = 6
	defaultNativeDecimals = 18

	// modlpy/trsry pallet account, identical on both networks.
	defaultTreasuryAddress = "0x6d6f646c70792f74727372790000000000000000"
)

func (c *Config) applyDefaults() {
	c.App.applyDefaults()
	c.Payout.applyDefaults()
	c.Market.applyDefaults()
	c.Chain.applyDefaults()
	c.Networks.applyDefaults()
	c.Stable.applyDefaults()
	c.Treasury.applyDefaults()
	c.History.applyDefaults()
}

func (a *AppConfig) applyDefaults() {
	if strings.TrimSpace(a.Env) == "" {
		a.Env = defaultAppEnv
	}
	if strings.TrimSpace(a.LogLevel) == "" {
		a.LogLevel = defaultAppLogLevel
	}
	if strings.TrimSpace(a.HTTPAddr) == "" {
		a.HTTPAddr = defaultAppHTTPAddr
	}
}

func (p *PayoutConfig) applyDefaults() {
	if p.GlmrRatio == 0 && p.MovrRatio == 0 {
		p.GlmrRatio = defaultGlmrRatio
		p.MovrRatio = defaultMovrRatio
	}
	if p.CouncilThreshold == 0 {
		p.CouncilThreshold = defaultCouncilThreshold
	}
	if p.CouncilLengthBound == 0 {
		p.CouncilLengthBound = defaultCouncilLengthBound
	}
	if strings.TrimSpace(p.Signature) == "" {
		p.Signature = defaultSignature
	}
}

func (m *MarketConfig) applyDefaults() {
	if m.BlockLag == 0 {
		m.BlockLag = defaultBlockLag
	}
	if m.TimeoutSeconds == 0 {
		m.TimeoutSeconds = defaultMarketTimeout
	}
}

func (c *ChainConfig) applyDefaults() {
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = defaultChainTimeout
	}
}

func (n *NetworksConfig) applyDefaults() {
	n.Moonbeam.applyDefaults("moonbeam", defaultMoonbeamWS, defaultMoonbeamScan, "GLMR")
	n.Moonriver.applyDefaults("moonriver", defaultMoonriverWS, defaultMoonriverScan, "MOVR")
}

func (n *NetworkConfig) applyDefaults(name, ws, subscan, token string) {
	if strings.TrimSpace(n.WS) == "" {
		n.WS = ws
	}
	if strings.TrimSpace(n.Subscan) == "" {
		n.Subscan = subscan
	}
	if strings.TrimSpace(n.Token) == "" {
		n.Token = token
	}
	if n.Decimals == 0 {
		n.Decimals = defaultNativeDecimals
	}
}

func (s *StableConfig) applyDefaults() {
	if strings.TrimSpace(s.Token) == "" {
		s.Token = defaultStableToken
	}
	if strings.TrimSpace(s.AssetID) == "" {
		s.AssetID = defaultStableAssetID
	}
	if s.Decimals == 0 {
		s.Decimals = defaultStableDecimals
	}
}

func (t *TreasuryConfig) applyDefaults() {
	if strings.TrimSpace(t.MoonbeamAddress) == "" {
		t.MoonbeamAddress = defaultTreasuryAddress
	}
	if strings.TrimSpace(t.MoonriverAddress) == "" {
		t.MoonriverAddress = defaultTreasuryAddress
	}
}

func (h *HistoryConfig) applyDefaults() {
	if strings.TrimSpace(h.Path) == "" {
		h.Path = defaultHistoryPath
	}
}
