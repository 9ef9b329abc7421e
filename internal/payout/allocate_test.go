package payout

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAllocateSplitsUSDByRatio(t *testing.T) {
	allocs := Allocate(dec("1000"),
		map[string]decimal.Decimal{"GLMR": dec("0.5"), "MOVR": dec("0.5")},
		map[string]decimal.Decimal{"GLMR": dec("0.10"), "MOVR": dec("0.20")},
	)

	require.Len(t, allocs, 2)
	assert.True(t, allocs["GLMR"].USDShare.Equal(dec("500")))
	assert.True(t, allocs["GLMR"].UnitAmount.Equal(dec("5000")))
	assert.True(t, allocs["MOVR"].USDShare.Equal(dec("500")))
	assert.True(t, allocs["MOVR"].UnitAmount.Equal(dec("2500")))
}

func TestAllocateSharesSumToTotal(t *testing.T) {
	ratios := map[string]decimal.Decimal{"GLMR": dec("0.37"), "MOVR": dec("0.63")}
	prices := map[string]decimal.Decimal{"GLMR": dec("0.1034"), "MOVR": dec("7.91")}
	total := dec("1234.56")

	allocs := Allocate(total, ratios, prices)
	sum := decimal.Zero
	for _, alloc := range allocs {
		sum = sum.Add(alloc.USDShare)
	}
	assert.True(t, sum.Equal(total), "shares sum to %s, want %s", sum, total)
}

func TestAllocateUnitAmountRoundTrips(t *testing.T) {
	price := dec("0.1034")
	allocs := Allocate(dec("500"),
		map[string]decimal.Decimal{"GLMR": dec("1")},
		map[string]decimal.Decimal{"GLMR": price},
	)

	back := allocs["GLMR"].UnitAmount.Mul(price)
	diff := back.Sub(allocs["GLMR"].USDShare).Abs()
	assert.True(t, diff.LessThan(dec("0.0000000001")), "round-trip drift %s", diff)
}

func TestAllocateSkipsUnpricedTokens(t *testing.T) {
	allocs := Allocate(dec("100"),
		map[string]decimal.Decimal{"GLMR": dec("0.5"), "MOVR": dec("0.5")},
		map[string]decimal.Decimal{"GLMR": dec("0.10")},
	)
	require.Len(t, allocs, 1)
	_, ok := allocs["MOVR"]
	assert.False(t, ok)
}

func TestToSmallestUnitFloorsNeverRoundsUp(t *testing.T) {
	got := ToSmallestUnit(decimal.NewFromFloat(1.9999999999999998), 18)
	limit, _ := new(big.Int).SetString("1999999999999999800", 10)
	assert.LessOrEqual(t, got.Cmp(limit), 0, "got %s", got)
	assert.Equal(t, "1999999999999999800", got.String())
}

func TestToSmallestUnitStable(t *testing.T) {
	got := ToSmallestUnit(dec("250"), 6)
	assert.Equal(t, "250000000", got.String())
}

func TestToSmallestUnitDropsFraction(t *testing.T) {
	got := ToSmallestUnit(dec("1.0000005"), 6)
	assert.Equal(t, "1000000", got.String())
}
