package payout

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Allocation is one token's slice of a payout.
type Allocation struct {
	USDShare   decimal.Decimal
	UnitAmount decimal.Decimal
}

// Allocate splits a USD amount across tokens by ratio and converts each
// share into token units at the given price. Pure arithmetic, no I/O; ratio
// validation is the caller's job. Tokens without a price are skipped.
func Allocate(usdAmount decimal.Decimal, ratios, prices map[string]decimal.Decimal) map[string]Allocation {
	out := make(map[string]Allocation, len(ratios))
	for token, ratio := range ratios {
		price, ok := prices[token]
		if !ok || price.Sign() <= 0 {
			continue
		}
		share := usdAmount.Mul(ratio)
		out[token] = Allocation{
			USDShare:   share,
			UnitAmount: share.Div(price),
		}
	}
	return out
}

// ToSmallestUnit converts a token amount into the chain's integer base unit
// (e.g. Planck-style 10^18 for the native coin, 10^6 for the stablecoin).
// Fractional base units are floored away, never rounded up: an encoded spend
// may pay out marginally less than computed, but never more.
func ToSmallestUnit(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Floor().BigInt()
}
