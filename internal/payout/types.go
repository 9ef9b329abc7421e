package payout

import (
	"math/big"
	"time"

	"payoutor/internal/chain"

	"github.com/shopspring/decimal"
)

// Kind tags the shape of a payout result so consumers can branch on it
// instead of probing for missing fields.
type Kind string

const (
	KindNative Kind = "native"
	KindStable Kind = "stable"
)

// NetworkTarget identifies one chain a payout touches.
type NetworkTarget struct {
	Name     string
	Token    string
	Endpoint string
	Subscan  string
	Decimals int32
	Ratio    decimal.Decimal
}

// FXInfo annotates a payout whose total was entered in a non-USD currency
// and converted before calculation. Display only; the engine always works
// in USD.
type FXInfo struct {
	InputAmount decimal.Decimal
	Currency    string
	Rate        decimal.Decimal
	Date        string
	Source      string
}

// NativeRequest asks for a dual-token payout: the USD total is ratio-split
// across two networks' native coins.
type NativeRequest struct {
	USDAmount    decimal.Decimal
	Recipient    string
	Targets      []NetworkTarget
	Threshold    uint32
	LengthBound  uint32
	ProxyAddress string
	FX           *FXInfo
}

// StableRequest asks for a single-network payout in the USD-pegged asset.
// No market lookup happens; the peg is taken at face value.
type StableRequest struct {
	USDAmount    decimal.Decimal
	Recipient    string
	Target       NetworkTarget
	AssetID      *big.Int
	Threshold    uint32
	LengthBound  uint32
	ProxyAddress string
}

// NetworkPayout is everything produced for one network: the quote and
// counter state the calls were derived from, and every encoded call.
type NetworkPayout struct {
	Network       string          `json:"network"`
	Token         string          `json:"token"`
	Ratio         decimal.Decimal `json:"ratio"`
	USDShare      decimal.Decimal `json:"usdShare"`
	Price         decimal.Decimal `json:"price"`
	UnitAmount    decimal.Decimal `json:"unitAmount"`
	SmallestUnit  string          `json:"smallestUnit"`
	Block         int64           `json:"block"`
	ProposalIndex uint32          `json:"proposalIndex"`
	SpendIndex    uint32          `json:"spendIndex"`
	Spend         chain.CallData  `json:"spend"`
	Propose       chain.CallData  `json:"propose"`
	ProxyPropose  *chain.CallData `json:"proxyPropose,omitempty"`
	Vote          chain.CallHex   `json:"vote"`
	Close         chain.CallHex   `json:"close"`
	Payout        chain.CallHex   `json:"payout"`
	ReadmeRow     string          `json:"readmeRow"`

	endpoint string
	subscan  string
}

// Result is the immutable outcome of one calculation. It is assembled once,
// returned to the caller, and never persisted by the engine itself.
type Result struct {
	RequestID    string          `json:"requestId"`
	Kind         Kind            `json:"kind"`
	USDAmount    decimal.Decimal `json:"usdAmount"`
	Recipient    string          `json:"recipient"`
	ProxyAddress string          `json:"proxyAddress,omitempty"`
	Networks     []NetworkPayout `json:"networks"`
	Summary      string          `json:"summary"`
	ForumReply   string          `json:"forumReply"`
	Warnings     []string        `json:"warnings"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Network returns the payout entry for the named network, or nil.
func (r *Result) Network(name string) *NetworkPayout {
	if r == nil {
		return nil
	}
	for i := range r.Networks {
		if r.Networks[i].Network == name {
			return &r.Networks[i]
		}
	}
	return nil
}
