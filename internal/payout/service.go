package payout

import (
	"context"
	"math/big"
	"regexp"
	"time"

	"payoutor/internal/chain"
	"payoutor/internal/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ratioTolerance is how far the token ratios may drift from summing to 1
// before the request is rejected.
var ratioTolerance = decimal.NewFromFloat(0.01)

var account20Pattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// MarketSource yields the price reference data for a network.
type MarketSource interface {
	RecentBlock(ctx context.Context, network string) (int64, error)
	EMA30Price(ctx context.Context, network, token string, block int64) (decimal.Decimal, error)
}

// ChainConn is one live connection to a network, able to read governance
// counters and encode the payout call set. Close must be called on every
// exit path.
type ChainConn interface {
	ProposalCount(ctx context.Context) (uint32, error)
	SpendCount(ctx context.Context) (uint32, error)
	EncodeSpendAndPropose(p chain.SpendParams) (chain.SpendCalls, error)
	EncodeVote(index uint32) (chain.CallHex, error)
	EncodeClose(index uint32) (chain.CallHex, error)
	EncodePayout(index uint32) (chain.CallHex, error)
	Close()
}

// DialFunc opens a ChainConn to an endpoint.
type DialFunc func(ctx context.Context, endpoint string) (ChainConn, error)

// Options tunes a payout Service.
type Options struct {
	// Signature signs off the generated forum reply.
	Signature string
	// ChainTimeout bounds each dial-query or dial-encode scope.
	ChainTimeout time.Duration
}

// Service orchestrates one payout calculation: fetch fresh market and chain
// state, allocate, encode, assemble. Requests share nothing; every call
// re-fetches live data so the encoded calls are correct at build time.
type Service struct {
	market       MarketSource
	dial         DialFunc
	signature    string
	chainTimeout time.Duration
}

func NewService(market MarketSource, dial DialFunc, opts Options) *Service {
	timeout := opts.ChainTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		market:       market,
		dial:         dial,
		signature:    opts.Signature,
		chainTimeout: timeout,
	}
}

type networkState struct {
	block         int64
	price         decimal.Decimal
	proposalIndex uint32
	spendIndex    uint32
}

// CalculateNative produces a dual-token payout: the USD total ratio-split
// across the targets' native coins, with the full governance call set per
// network.
func (s *Service) CalculateNative(ctx context.Context, req NativeRequest) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	states := make([]networkState, len(req.Targets))
	group, gctx := errgroup.WithContext(ctx)
	for i := range req.Targets {
		i := i
		target := req.Targets[i]
		group.Go(func() error {
			block, err := s.market.RecentBlock(gctx, target.Name)
			if err != nil {
				return &PriceUnavailableError{Network: target.Name, Token: target.Token, Err: err}
			}
			price, err := s.market.EMA30Price(gctx, target.Name, target.Token, block)
			if err != nil {
				return &PriceUnavailableError{Network: target.Name, Token: target.Token, Err: err}
			}
			states[i].block = block
			states[i].price = price
			return nil
		})
		group.Go(func() error {
			return s.fetchCounters(gctx, target, &states[i])
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	ratios := make(map[string]decimal.Decimal, len(req.Targets))
	prices := make(map[string]decimal.Decimal, len(req.Targets))
	for i, target := range req.Targets {
		ratios[target.Token] = target.Ratio
		prices[target.Token] = states[i].price
	}
	allocs := Allocate(req.USDAmount, ratios, prices)

	result := &Result{
		RequestID:    uuid.NewString(),
		Kind:         KindNative,
		USDAmount:    req.USDAmount,
		Recipient:    req.Recipient,
		ProxyAddress: req.ProxyAddress,
		Warnings:     resultWarnings(),
		CreatedAt:    time.Now().UTC(),
	}
	for i, target := range req.Targets {
		np, err := s.encodeNetwork(ctx, target, states[i], allocs[target.Token], encodeSpec{
			assetID:      nil,
			threshold:    req.Threshold,
			lengthBound:  req.LengthBound,
			recipient:    req.Recipient,
			proxyAddress: req.ProxyAddress,
		})
		if err != nil {
			return nil, err
		}
		result.Networks = append(result.Networks, np)
	}

	result.Summary = buildSummary(result, req.FX)
	result.ForumReply = buildForumReply(result, req.FX, s.signature)
	logger.Infof("native payout calculated: usd=%s recipient=%s id=%s",
		req.USDAmount.StringFixed(2), req.Recipient, result.RequestID)
	return result, nil
}

// CalculateStable produces a single-network stablecoin payout. The peg is
// assumed: ratio and price are fixed at 1 and no market quote is taken for
// the token; the reference block is still fetched for the audit trail.
func (s *Service) CalculateStable(ctx context.Context, req StableRequest) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	target := req.Target
	var state networkState
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		block, err := s.market.RecentBlock(gctx, target.Name)
		if err != nil {
			return &PriceUnavailableError{Network: target.Name, Token: target.Token, Err: err}
		}
		state.block = block
		return nil
	})
	group.Go(func() error {
		return s.fetchCounters(gctx, target, &state)
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}
	state.price = decimal.NewFromInt(1)

	one := decimal.NewFromInt(1)
	allocs := Allocate(req.USDAmount,
		map[string]decimal.Decimal{target.Token: one},
		map[string]decimal.Decimal{target.Token: one},
	)

	result := &Result{
		RequestID:    uuid.NewString(),
		Kind:         KindStable,
		USDAmount:    req.USDAmount,
		Recipient:    req.Recipient,
		ProxyAddress: req.ProxyAddress,
		Warnings:     resultWarnings(),
		CreatedAt:    time.Now().UTC(),
	}
	target.Ratio = one
	np, err := s.encodeNetwork(ctx, target, state, allocs[target.Token], encodeSpec{
		assetID:      req.AssetID,
		threshold:    req.Threshold,
		lengthBound:  req.LengthBound,
		recipient:    req.Recipient,
		proxyAddress: req.ProxyAddress,
	})
	if err != nil {
		return nil, err
	}
	result.Networks = append(result.Networks, np)

	result.Summary = buildSummary(result, nil)
	result.ForumReply = buildForumReply(result, nil, s.signature)
	logger.Infof("stable payout calculated: usd=%s recipient=%s id=%s",
		req.USDAmount.StringFixed(2), req.Recipient, result.RequestID)
	return result, nil
}

// fetchCounters reads both governance counters over a short-lived
// connection. The values predict the indices the next proposal and spend
// will occupy; they go stale the moment someone else submits.
func (s *Service) fetchCounters(ctx context.Context, target NetworkTarget, state *networkState) error {
	cctx, cancel := context.WithTimeout(ctx, s.chainTimeout)
	defer cancel()
	conn, err := s.dial(cctx, target.Endpoint)
	if err != nil {
		return &ChainUnavailableError{Network: target.Name, Kind: "connect", Err: err}
	}
	defer conn.Close()
	proposals, err := conn.ProposalCount(cctx)
	if err != nil {
		return &ChainUnavailableError{Network: target.Name, Kind: "proposal count", Err: err}
	}
	spends, err := conn.SpendCount(cctx)
	if err != nil {
		return &ChainUnavailableError{Network: target.Name, Kind: "spend count", Err: err}
	}
	state.proposalIndex = proposals
	state.spendIndex = spends
	return nil
}

type encodeSpec struct {
	assetID      *big.Int
	threshold    uint32
	lengthBound  uint32
	recipient    string
	proxyAddress string
}

// encodeNetwork opens one connection to the target and encodes the full
// call set for it: spend + propose (+ proxy wrapper), vote, close, payout.
func (s *Service) encodeNetwork(ctx context.Context, target NetworkTarget, state networkState, alloc Allocation, spec encodeSpec) (NetworkPayout, error) {
	np := NetworkPayout{
		Network:       target.Name,
		Token:         target.Token,
		Ratio:         target.Ratio,
		USDShare:      alloc.USDShare,
		Price:         state.price,
		UnitAmount:    alloc.UnitAmount,
		Block:         state.block,
		ProposalIndex: state.proposalIndex,
		SpendIndex:    state.spendIndex,
		endpoint:      target.Endpoint,
		subscan:       target.Subscan,
	}

	smallest := ToSmallestUnit(alloc.UnitAmount, target.Decimals)
	np.SmallestUnit = smallest.String()

	cctx, cancel := context.WithTimeout(ctx, s.chainTimeout)
	defer cancel()
	conn, err := s.dial(cctx, target.Endpoint)
	if err != nil {
		return np, &ChainUnavailableError{Network: target.Name, Kind: "connect", Err: err}
	}
	defer conn.Close()

	calls, err := conn.EncodeSpendAndPropose(chain.SpendParams{
		Recipient:    spec.recipient,
		Amount:       smallest,
		AssetID:      spec.assetID,
		Threshold:    spec.threshold,
		LengthBound:  spec.lengthBound,
		ProxyAddress: spec.proxyAddress,
	})
	if err != nil {
		return np, &EncodingFailedError{Network: target.Name, Call: "propose", Err: err}
	}
	np.Spend = calls.Spend
	np.Propose = calls.Propose
	np.ProxyPropose = calls.ProxyPropose

	if np.Vote, err = conn.EncodeVote(state.proposalIndex); err != nil {
		return np, &EncodingFailedError{Network: target.Name, Call: "vote", Err: err}
	}
	if np.Close, err = conn.EncodeClose(state.proposalIndex); err != nil {
		return np, &EncodingFailedError{Network: target.Name, Call: "close", Err: err}
	}
	if np.Payout, err = conn.EncodePayout(state.spendIndex); err != nil {
		return np, &EncodingFailedError{Network: target.Name, Call: "payout", Err: err}
	}

	np.ReadmeRow = buildReadmeRow(&np)
	return np, nil
}

func (r NativeRequest) validate() error {
	if r.USDAmount.Sign() <= 0 {
		return validationErrorf("usdAmount must be positive")
	}
	if !account20Pattern.MatchString(r.Recipient) {
		return validationErrorf("recipient must be a 0x-prefixed 20-byte address")
	}
	if len(r.Targets) != 2 {
		return validationErrorf("native payout requires exactly two networks, got %d", len(r.Targets))
	}
	sum := decimal.Zero
	for _, target := range r.Targets {
		if target.Ratio.Sign() < 0 {
			return validationErrorf("%s ratio must not be negative", target.Token)
		}
		if target.Endpoint == "" {
			return validationErrorf("missing RPC endpoint for %s", target.Name)
		}
		sum = sum.Add(target.Ratio)
	}
	if sum.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(ratioTolerance) {
		return validationErrorf("token ratios must sum to 100%%")
	}
	return validateCouncil(r.Threshold, r.LengthBound, r.ProxyAddress)
}

func (r StableRequest) validate() error {
	if r.USDAmount.Sign() <= 0 {
		return validationErrorf("usdAmount must be positive")
	}
	if !account20Pattern.MatchString(r.Recipient) {
		return validationErrorf("recipient must be a 0x-prefixed 20-byte address")
	}
	if r.Target.Endpoint == "" {
		return validationErrorf("missing RPC endpoint for %s", r.Target.Name)
	}
	if r.AssetID == nil || r.AssetID.Sign() <= 0 {
		return validationErrorf("stable asset id must be a positive integer")
	}
	return validateCouncil(r.Threshold, r.LengthBound, r.ProxyAddress)
}

func validateCouncil(threshold, lengthBound uint32, proxy string) error {
	if threshold < 1 {
		return validationErrorf("councilThreshold must be >= 1")
	}
	if lengthBound < 1 {
		return validationErrorf("councilLengthBound must be >= 1")
	}
	if proxy != "" && !account20Pattern.MatchString(proxy) {
		return validationErrorf("proxyAddress must be a 0x-prefixed 20-byte address")
	}
	return nil
}

// resultWarnings states the two operational gaps every result carries: the
// predicted indices race other governance activity, and the vote/close
// calls embed a placeholder hash until the proposal is on chain.
func resultWarnings() []string {
	return []string{
		"proposal and spend indices are predictions read before submission; any governance activity in between shifts them",
		"vote and close calls reference the all-zero placeholder hash " + chain.PlaceholderProposalHash + " and must be re-pointed at the real proposal hash after submission",
	}
}
