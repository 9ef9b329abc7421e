package payout

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"payoutor/internal/chain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRecipient = "0x1234567890abcdef1234567890abcdef12345678"

type fakeMarket struct {
	mu         sync.Mutex
	blocks     map[string]int64
	prices     map[string]decimal.Decimal // keyed by token
	priceErrs  map[string]error           // keyed by token
	blockCalls int
	priceCalls int
}

func (m *fakeMarket) RecentBlock(ctx context.Context, network string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blockCalls++
	block, ok := m.blocks[network]
	if !ok {
		return 0, fmt.Errorf("unknown network %s", network)
	}
	return block, nil
}

func (m *fakeMarket) EMA30Price(ctx context.Context, network, token string, block int64) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.priceCalls++
	if err := m.priceErrs[token]; err != nil {
		return decimal.Zero, err
	}
	price, ok := m.prices[token]
	if !ok {
		return decimal.Zero, fmt.Errorf("no price for %s", token)
	}
	return price, nil
}

type fakeConn struct {
	endpoint      string
	proposalIndex uint32
	spendIndex    uint32
	encodeErr     error
	voteErr       error

	mu     sync.Mutex
	closed bool
	spends []chain.SpendParams
}

func (c *fakeConn) ProposalCount(ctx context.Context) (uint32, error) { return c.proposalIndex, nil }
func (c *fakeConn) SpendCount(ctx context.Context) (uint32, error)    { return c.spendIndex, nil }

func (c *fakeConn) EncodeSpendAndPropose(p chain.SpendParams) (chain.SpendCalls, error) {
	c.mu.Lock()
	c.spends = append(c.spends, p)
	c.mu.Unlock()
	if c.encodeErr != nil {
		return chain.SpendCalls{}, c.encodeErr
	}
	asset := "native"
	if p.AssetID != nil {
		asset = p.AssetID.String()
	}
	calls := chain.SpendCalls{
		Spend: chain.CallData{
			Hex:  fmt.Sprintf("0xspend-%s-%s", asset, p.Amount),
			Hash: fmt.Sprintf("0xspendhash-%s-%s", asset, p.Amount),
		},
		Propose: chain.CallData{
			Hex:  fmt.Sprintf("0xpropose-%d-%d-%s", p.Threshold, p.LengthBound, p.Amount),
			Hash: fmt.Sprintf("0xproposehash-%d-%d-%s", p.Threshold, p.LengthBound, p.Amount),
		},
	}
	if p.ProxyAddress != "" {
		calls.ProxyPropose = &chain.CallData{
			Hex:  fmt.Sprintf("0xproxy-%s-%s", p.ProxyAddress, p.Amount),
			Hash: fmt.Sprintf("0xproxyhash-%s-%s", p.ProxyAddress, p.Amount),
		}
	}
	return calls, nil
}

func (c *fakeConn) EncodeVote(index uint32) (chain.CallHex, error) {
	if c.voteErr != nil {
		return chain.CallHex{}, c.voteErr
	}
	return chain.CallHex{Hex: fmt.Sprintf("0xvote-%d", index)}, nil
}

func (c *fakeConn) EncodeClose(index uint32) (chain.CallHex, error) {
	return chain.CallHex{Hex: fmt.Sprintf("0xclose-%d", index)}, nil
}

func (c *fakeConn) EncodePayout(index uint32) (chain.CallHex, error) {
	return chain.CallHex{Hex: fmt.Sprintf("0xpayout-%d", index)}, nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

type fakeDialer struct {
	mu       sync.Mutex
	conns    map[string]*fakeConn // template per endpoint
	dialed   []*fakeConn
	dialErrs map[string]error
}

func (d *fakeDialer) dial(ctx context.Context, endpoint string) (ChainConn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.dialErrs[endpoint]; err != nil {
		return nil, err
	}
	tpl, ok := d.conns[endpoint]
	if !ok {
		return nil, fmt.Errorf("unknown endpoint %s", endpoint)
	}
	conn := &fakeConn{
		endpoint:      endpoint,
		proposalIndex: tpl.proposalIndex,
		spendIndex:    tpl.spendIndex,
		encodeErr:     tpl.encodeErr,
		voteErr:       tpl.voteErr,
	}
	d.dialed = append(d.dialed, conn)
	return conn, nil
}

func (d *fakeDialer) allClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, conn := range d.dialed {
		conn.mu.Lock()
		closed := conn.closed
		conn.mu.Unlock()
		if !closed {
			return false
		}
	}
	return true
}

func nativeTargets() []NetworkTarget {
	return []NetworkTarget{
		{Name: "moonbeam", Token: "GLMR", Endpoint: "ws://moonbeam", Subscan: "https://moonbeam.subscan.io", Decimals: 18, Ratio: dec("0.5")},
		{Name: "moonriver", Token: "MOVR", Endpoint: "ws://moonriver", Subscan: "https://moonriver.subscan.io", Decimals: 18, Ratio: dec("0.5")},
	}
}

func newNativeFixture() (*fakeMarket, *fakeDialer, *Service) {
	market := &fakeMarket{
		blocks: map[string]int64{"moonbeam": 5_000_000, "moonriver": 6_000_000},
		prices: map[string]decimal.Decimal{"GLMR": dec("0.10"), "MOVR": dec("0.20")},
	}
	dialer := &fakeDialer{conns: map[string]*fakeConn{
		"ws://moonbeam":  {proposalIndex: 42, spendIndex: 7},
		"ws://moonriver": {proposalIndex: 13, spendIndex: 3},
	}}
	svc := NewService(market, dialer.dial, Options{Signature: "yaron"})
	return market, dialer, svc
}

func TestCalculateNativeDualToken(t *testing.T) {
	_, dialer, svc := newNativeFixture()

	res, err := svc.CalculateNative(context.Background(), NativeRequest{
		USDAmount:   dec("1000"),
		Recipient:   testRecipient,
		Targets:     nativeTargets(),
		Threshold:   3,
		LengthBound: 10000,
	})
	require.NoError(t, err)
	require.Len(t, res.Networks, 2)
	assert.Equal(t, KindNative, res.Kind)
	assert.NotEmpty(t, res.RequestID)

	glmr := res.Network("moonbeam")
	require.NotNil(t, glmr)
	assert.True(t, glmr.USDShare.Equal(dec("500")))
	assert.True(t, glmr.UnitAmount.Equal(dec("5000")))
	assert.Equal(t, "5000000000000000000000", glmr.SmallestUnit)
	assert.Equal(t, int64(5_000_000), glmr.Block)
	assert.Equal(t, uint32(42), glmr.ProposalIndex)
	assert.Equal(t, uint32(7), glmr.SpendIndex)
	assert.Equal(t, "0xvote-42", glmr.Vote.Hex)
	assert.Equal(t, "0xclose-42", glmr.Close.Hex)
	assert.Equal(t, "0xpayout-7", glmr.Payout.Hex)
	assert.Nil(t, glmr.ProxyPropose)

	movr := res.Network("moonriver")
	require.NotNil(t, movr)
	assert.True(t, movr.USDShare.Equal(dec("500")))
	assert.True(t, movr.UnitAmount.Equal(dec("2500")))
	assert.Equal(t, "0xvote-13", movr.Vote.Hex)
	assert.Equal(t, "0xpayout-3", movr.Payout.Hex)

	assert.True(t, dialer.allClosed(), "all connections must be released")
	assert.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Summary, "PAYOUT CALCULATION RESULTS")
	assert.Contains(t, res.Summary, glmr.Propose.Hex)
	assert.Contains(t, res.ForumReply, "50:50 ratio")
	assert.Contains(t, res.ForumReply, "yaron")
}

func TestCalculateNativeWithProxyWrapsPropose(t *testing.T) {
	_, _, svc := newNativeFixture()
	proxy := "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"

	res, err := svc.CalculateNative(context.Background(), NativeRequest{
		USDAmount:    dec("1000"),
		Recipient:    testRecipient,
		Targets:      nativeTargets(),
		Threshold:    3,
		LengthBound:  10000,
		ProxyAddress: proxy,
	})
	require.NoError(t, err)
	for _, np := range res.Networks {
		require.NotNil(t, np.ProxyPropose, np.Network)
		assert.NotEqual(t, np.Propose.Hex, np.ProxyPropose.Hex)
	}
	assert.Contains(t, res.Summary, "Proxy Council Proposal")
}

func TestCalculateNativeRejectsBadRatiosBeforeAnyFetch(t *testing.T) {
	market, dialer, svc := newNativeFixture()
	targets := nativeTargets()
	targets[1].Ratio = dec("0.4")

	_, err := svc.CalculateNative(context.Background(), NativeRequest{
		USDAmount:   dec("1000"),
		Recipient:   testRecipient,
		Targets:     targets,
		Threshold:   3,
		LengthBound: 10000,
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "ratios must sum to 100%")
	assert.Zero(t, market.blockCalls)
	assert.Zero(t, market.priceCalls)
	assert.Empty(t, dialer.dialed)
}

func TestCalculateNativeValidation(t *testing.T) {
	_, _, svc := newNativeFixture()
	base := NativeRequest{
		USDAmount:   dec("1000"),
		Recipient:   testRecipient,
		Targets:     nativeTargets(),
		Threshold:   3,
		LengthBound: 10000,
	}

	cases := []struct {
		name    string
		mutate  func(*NativeRequest)
		message string
	}{
		{"zero usd", func(r *NativeRequest) { r.USDAmount = decimal.Zero }, "usdAmount"},
		{"negative usd", func(r *NativeRequest) { r.USDAmount = dec("-5") }, "usdAmount"},
		{"bad recipient", func(r *NativeRequest) { r.Recipient = "0x123" }, "recipient"},
		{"one target", func(r *NativeRequest) { r.Targets = r.Targets[:1] }, "two networks"},
		{"zero threshold", func(r *NativeRequest) { r.Threshold = 0 }, "councilThreshold"},
		{"zero length bound", func(r *NativeRequest) { r.LengthBound = 0 }, "councilLengthBound"},
		{"bad proxy", func(r *NativeRequest) { r.ProxyAddress = "nope" }, "proxyAddress"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			req.Targets = nativeTargets()
			tc.mutate(&req)
			_, err := svc.CalculateNative(context.Background(), req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Error(), tc.message)
		})
	}
}

func TestCalculateNativeFailsWhenPriceUnparseable(t *testing.T) {
	market, _, svc := newNativeFixture()
	market.priceErrs = map[string]error{"MOVR": errors.New("no ema30 price")}

	res, err := svc.CalculateNative(context.Background(), NativeRequest{
		USDAmount:   dec("1000"),
		Recipient:   testRecipient,
		Targets:     nativeTargets(),
		Threshold:   3,
		LengthBound: 10000,
	})
	require.Nil(t, res, "no partial result on fetch failure")
	var perr *PriceUnavailableError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "MOVR", perr.Token)
	assert.Equal(t, "moonriver", perr.Network)
}

func TestCalculateNativeFailsWhenChainUnreachable(t *testing.T) {
	_, dialer, svc := newNativeFixture()
	dialer.dialErrs = map[string]error{"ws://moonriver": errors.New("connection refused")}

	_, err := svc.CalculateNative(context.Background(), NativeRequest{
		USDAmount:   dec("1000"),
		Recipient:   testRecipient,
		Targets:     nativeTargets(),
		Threshold:   3,
		LengthBound: 10000,
	})
	var cerr *ChainUnavailableError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "moonriver", cerr.Network)
	assert.Equal(t, "connect", cerr.Kind)
	assert.True(t, dialer.allClosed())
}

func TestCalculateNativeSurfacesEncodingFailure(t *testing.T) {
	_, dialer, svc := newNativeFixture()
	dialer.conns["ws://moonbeam"].voteErr = errors.New("schema mismatch")

	_, err := svc.CalculateNative(context.Background(), NativeRequest{
		USDAmount:   dec("1000"),
		Recipient:   testRecipient,
		Targets:     nativeTargets(),
		Threshold:   3,
		LengthBound: 10000,
	})
	var eerr *EncodingFailedError
	require.ErrorAs(t, err, &eerr)
	assert.Equal(t, "moonbeam", eerr.Network)
	assert.Equal(t, "vote", eerr.Call)
	assert.True(t, dialer.allClosed())
}

func TestCalculateStable(t *testing.T) {
	market := &fakeMarket{blocks: map[string]int64{"moonbeam": 5_000_000}}
	dialer := &fakeDialer{conns: map[string]*fakeConn{
		"ws://moonbeam": {proposalIndex: 42, spendIndex: 7},
	}}
	svc := NewService(market, dialer.dial, Options{Signature: "yaron"})
	assetID, ok := new(big.Int).SetString("166377000701797186346254371275954761085", 10)
	require.True(t, ok)

	res, err := svc.CalculateStable(context.Background(), StableRequest{
		USDAmount:   dec("250"),
		Recipient:   testRecipient,
		Target:      NetworkTarget{Name: "moonbeam", Token: "USDC", Endpoint: "ws://moonbeam", Subscan: "https://moonbeam.subscan.io", Decimals: 6},
		AssetID:     assetID,
		Threshold:   3,
		LengthBound: 10000,
	})
	require.NoError(t, err)
	assert.Equal(t, KindStable, res.Kind)
	require.Len(t, res.Networks, 1)

	usdc := res.Networks[0]
	assert.True(t, usdc.UnitAmount.Equal(dec("250")))
	assert.Equal(t, "250000000", usdc.SmallestUnit)
	assert.True(t, usdc.Price.Equal(dec("1")))
	assert.Equal(t, "0xvote-42", usdc.Vote.Hex)
	assert.Equal(t, "0xpayout-7", usdc.Payout.Hex)
	assert.Zero(t, market.priceCalls, "stablecoin must not be market-priced")

	// the encoded spend must carry the asset id, not the native variant
	require.Len(t, dialer.dialed, 2)
	encConn := dialer.dialed[len(dialer.dialed)-1]
	require.Len(t, encConn.spends, 1)
	require.NotNil(t, encConn.spends[0].AssetID)
	assert.Equal(t, assetID.String(), encConn.spends[0].AssetID.String())
	assert.True(t, dialer.allClosed())
}

func TestResultNetworkLookup(t *testing.T) {
	res := &Result{Networks: []NetworkPayout{{Network: "moonbeam"}, {Network: "moonriver"}}}
	require.NotNil(t, res.Network("moonriver"))
	assert.Nil(t, res.Network("kusama"))
}
