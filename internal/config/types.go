package config

// Config is the top-level configuration for the payout assistant.
type Config struct {
	App      AppConfig      `toml:"app"`
	Payout   PayoutConfig   `toml:"payout"`
	Market   MarketConfig   `toml:"market"`
	Chain    ChainConfig    `toml:"chain"`
	Networks NetworksConfig `toml:"networks"`
	Stable   StableConfig   `toml:"stable"`
	Treasury TreasuryConfig `toml:"treasury"`
	History  HistoryConfig  `toml:"history"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// PayoutConfig carries the governance policy defaults applied when a request
// omits them. Ratios are fractions of the USD total.
type PayoutConfig struct {
	GlmrRatio          float64 `toml:"glmr_ratio"`
	MovrRatio          float64 `toml:"movr_ratio"`
	CouncilThreshold   uint32  `toml:"council_threshold"`
	CouncilLengthBound uint32  `toml:"council_length_bound"`
	Signature          string  `toml:"signature"`
}

// MarketConfig tunes the price feed. BlockLag is how far behind the chain
// head the price reference block sits; the lag smooths out short-term price
// movement ahead of a council vote.
type MarketConfig struct {
	BlockLag       int64 `toml:"block_lag"`
	TimeoutSeconds int   `toml:"timeout_seconds"`
}

type ChainConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

type NetworksConfig struct {
	Moonbeam  NetworkConfig `toml:"moonbeam"`
	Moonriver NetworkConfig `toml:"moonriver"`
}

// NetworkConfig describes one target chain.
type NetworkConfig struct {
	WS       string `toml:"ws"`
	Subscan  string `toml:"subscan"`
	Token    string `toml:"token"`
	Decimals int32  `toml:"decimals"`
}

// StableConfig describes the USD-pegged asset used for single-token payouts.
// AssetID is the on-chain fungible asset identifier (a u128, kept as a
// string because it exceeds uint64).
type StableConfig struct {
	Token    string `toml:"token"`
	AssetID  string `toml:"asset_id"`
	Decimals int32  `toml:"decimals"`
}

type TreasuryConfig struct {
	MoonbeamAddress  string `toml:"moonbeam_address"`
	MoonriverAddress string `toml:"moonriver_address"`
}

type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}
