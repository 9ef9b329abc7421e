package chain

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/centrifuge/go-substrate-rpc-api/v4/types"
	"github.com/centrifuge/go-substrate-rpc-api/v4/types/codec"
	"golang.org/x/crypto/blake2b"
)

// PlaceholderProposalHash stands in for a council proposal's real hash in
// vote and close calls: the true hash only exists once the proposal is on
// chain, so the operator has to substitute it before broadcasting.
const PlaceholderProposalHash = "0x0000000000000000000000000000000000000000000000000000000000000000"

// Weight and length budget for the close call. These are generous fixed
// estimates rather than measured values.
const (
	CloseRefTime     = 5_000_000_000
	CloseProofSize   = 100_000
	CloseLengthBound = 10_000
)

// CallData is one encoded governance call: SCALE bytes as hex plus the
// blake2b-256 hash other calls reference it by.
type CallData struct {
	Hex  string `json:"hex"`
	Hash string `json:"hash"`
}

// CallHex is an encoded call that nothing references by hash.
type CallHex struct {
	Hex string `json:"hex"`
}

// SpendParams describes one treasury spend and the council proposal that
// wraps it. A nil AssetID spends the native coin; otherwise the identified
// fungible asset. ProxyAddress, when set, additionally wraps the proposal in
// a proxy call so the proxied account appears as proposer.
type SpendParams struct {
	Recipient    string
	Amount       *big.Int
	AssetID      *big.Int
	Threshold    uint32
	LengthBound  uint32
	ProxyAddress string
}

// SpendCalls is the encoded spend plus its council wrapper(s).
type SpendCalls struct {
	Spend        CallData  `json:"spend"`
	Propose      CallData  `json:"propose"`
	ProxyPropose *CallData `json:"proxyPropose,omitempty"`
}

// EncodeSpendAndPropose builds treasury.spend, wraps it in
// treasuryCouncilCollective.propose, and optionally wraps that in
// proxy.proxy. Encoding is a pure function of the params and the metadata
// cached at dial time.
func (c *Conn) EncodeSpendAndPropose(p SpendParams) (SpendCalls, error) {
	var out SpendCalls
	beneficiary, err := parseAccount20(p.Recipient)
	if err != nil {
		return out, fmt.Errorf("recipient: %w", err)
	}
	if p.Amount == nil || p.Amount.Sign() <= 0 {
		return out, fmt.Errorf("spend amount must be positive")
	}
	kind := nativeAsset()
	if p.AssetID != nil {
		kind = assetWithID(types.NewU128(*p.AssetID))
	}
	spend, err := types.NewCall(c.meta, "Treasury.spend",
		kind,
		types.NewU128(*p.Amount),
		beneficiary,
		types.NewOptionU32Empty(),
	)
	if err != nil {
		return out, fmt.Errorf("building treasury.spend: %w", err)
	}
	if out.Spend, err = encodeCall(spend); err != nil {
		return out, fmt.Errorf("encoding treasury.spend: %w", err)
	}

	propose, err := types.NewCall(c.meta, "TreasuryCouncilCollective.propose",
		types.NewUCompactFromUInt(uint64(p.Threshold)),
		spend,
		types.NewUCompactFromUInt(uint64(p.LengthBound)),
	)
	if err != nil {
		return out, fmt.Errorf("building council propose: %w", err)
	}
	if out.Propose, err = encodeCall(propose); err != nil {
		return out, fmt.Errorf("encoding council propose: %w", err)
	}

	if strings.TrimSpace(p.ProxyAddress) != "" {
		real, err := parseAccount20(p.ProxyAddress)
		if err != nil {
			return out, fmt.Errorf("proxy address: %w", err)
		}
		wrapped, err := types.NewCall(c.meta, "Proxy.proxy", real, noneProxyType{}, propose)
		if err != nil {
			return out, fmt.Errorf("building proxy wrapper: %w", err)
		}
		pd, err := encodeCall(wrapped)
		if err != nil {
			return out, fmt.Errorf("encoding proxy wrapper: %w", err)
		}
		out.ProxyPropose = &pd
	}
	return out, nil
}

// EncodeVote builds an AYE vote for the proposal expected at index. The
// proposal hash is the all-zero placeholder; see PlaceholderProposalHash.
func (c *Conn) EncodeVote(index uint32) (CallHex, error) {
	call, err := types.NewCall(c.meta, "TreasuryCouncilCollective.vote",
		placeholderHash(),
		types.NewUCompactFromUInt(uint64(index)),
		types.NewBool(true),
	)
	if err != nil {
		return CallHex{}, fmt.Errorf("building council vote: %w", err)
	}
	return encodeCallHex(call)
}

// EncodeClose builds the close call for the proposal expected at index,
// with the fixed weight budget and the placeholder hash.
func (c *Conn) EncodeClose(index uint32) (CallHex, error) {
	call, err := types.NewCall(c.meta, "TreasuryCouncilCollective.close",
		placeholderHash(),
		types.NewUCompactFromUInt(uint64(index)),
		weight{
			RefTime:   types.NewUCompactFromUInt(CloseRefTime),
			ProofSize: types.NewUCompactFromUInt(CloseProofSize),
		},
		types.NewUCompactFromUInt(CloseLengthBound),
	)
	if err != nil {
		return CallHex{}, fmt.Errorf("building council close: %w", err)
	}
	return encodeCallHex(call)
}

// EncodePayout builds the claim call for the spend expected at index.
func (c *Conn) EncodePayout(index uint32) (CallHex, error) {
	call, err := types.NewCall(c.meta, "Treasury.payout", types.NewU32(index))
	if err != nil {
		return CallHex{}, fmt.Errorf("building treasury.payout: %w", err)
	}
	return encodeCallHex(call)
}

func encodeCall(call types.Call) (CallData, error) {
	raw, err := codec.Encode(call)
	if err != nil {
		return CallData{}, err
	}
	sum := blake2b.Sum256(raw)
	return CallData{
		Hex:  "0x" + hex.EncodeToString(raw),
		Hash: "0x" + hex.EncodeToString(sum[:]),
	}, nil
}

func encodeCallHex(call types.Call) (CallHex, error) {
	raw, err := codec.Encode(call)
	if err != nil {
		return CallHex{}, err
	}
	return CallHex{Hex: "0x" + hex.EncodeToString(raw)}, nil
}

func placeholderHash() types.Hash {
	return types.NewHash(make([]byte, 32))
}

// parseAccount20 parses a 0x-prefixed 20-byte hex account (Moonbeam's
// AccountId20 address format).
func parseAccount20(addr string) (types.H160, error) {
	trimmed := strings.TrimSpace(addr)
	hexPart := strings.TrimPrefix(trimmed, "0x")
	if hexPart == trimmed {
		return types.H160{}, fmt.Errorf("address %q missing 0x prefix", addr)
	}
	raw, err := hex.DecodeString(hexPart)
	if err != nil {
		return types.H160{}, fmt.Errorf("address %q is not valid hex", addr)
	}
	if len(raw) != 20 {
		return types.H160{}, fmt.Errorf("address %q must be 20 bytes, got %d", addr, len(raw))
	}
	return types.NewH160(raw), nil
}
