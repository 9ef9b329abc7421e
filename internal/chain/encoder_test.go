package chain

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/centrifuge/go-substrate-rpc-api/v4/scale"
	"github.com/centrifuge/go-substrate-rpc-api/v4/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scaleBytes(t *testing.T, value any) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := scale.NewEncoder(&buf)
	require.NoError(t, enc.Encode(value))
	return buf.Bytes()
}

func TestAssetKindNativeEncodesToSingleZeroByte(t *testing.T) {
	got := scaleBytes(t, nativeAsset())
	assert.Equal(t, []byte{0x00}, got)
}

func TestAssetKindWithIDEncodesVariantThenU128(t *testing.T) {
	id := types.NewU128(*big.NewInt(5))
	got := scaleBytes(t, assetWithID(id))

	require.Len(t, got, 17)
	assert.Equal(t, byte(0x01), got[0])
	// u128 is little-endian
	assert.Equal(t, byte(0x05), got[1])
	for _, b := range got[2:] {
		assert.Equal(t, byte(0x00), b)
	}
}

func TestNoneProxyTypeEncodesToNone(t *testing.T) {
	assert.Equal(t, []byte{0x00}, scaleBytes(t, noneProxyType{}))
}

func TestWeightEncodesBothFieldsCompact(t *testing.T) {
	w := weight{
		RefTime:   types.NewUCompactFromUInt(CloseRefTime),
		ProofSize: types.NewUCompactFromUInt(CloseProofSize),
	}
	want := append(
		scaleBytes(t, types.NewUCompactFromUInt(CloseRefTime)),
		scaleBytes(t, types.NewUCompactFromUInt(CloseProofSize))...,
	)
	assert.Equal(t, want, scaleBytes(t, w))
}

func TestEncodeCallIsDeterministic(t *testing.T) {
	call := types.Call{
		CallIndex: types.CallIndex{SectionIndex: 0x11, MethodIndex: 0x03},
		Args:      types.Args{0x01, 0x02, 0x03},
	}
	first, err := encodeCall(call)
	require.NoError(t, err)
	second, err := encodeCall(call)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "0x1103010203", first.Hex)
	assert.Len(t, first.Hash, 2+64)
}

func TestEncodeCallHashChangesWithArgs(t *testing.T) {
	base := types.Call{
		CallIndex: types.CallIndex{SectionIndex: 0x11, MethodIndex: 0x03},
		Args:      types.Args{0x01},
	}
	other := base
	other.Args = types.Args{0x02}

	a, err := encodeCall(base)
	require.NoError(t, err)
	b, err := encodeCall(other)
	require.NoError(t, err)
	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestPlaceholderHashIsAllZero(t *testing.T) {
	h := placeholderHash()
	assert.Equal(t, PlaceholderProposalHash, h.Hex())
}

func TestParseAccount20(t *testing.T) {
	valid := "0x1234567890abcdef1234567890abcdef12345678"
	h, err := parseAccount20(valid)
	require.NoError(t, err)
	assert.Equal(t, byte(0x12), h[0])
	assert.Equal(t, byte(0x78), h[19])

	cases := []string{
		"1234567890abcdef1234567890abcdef12345678", // no prefix
		"0x1234",     // too short
		"0xzz345678", // not hex
		"0x1234567890abcdef1234567890abcdef1234567890", // too long
	}
	for _, addr := range cases {
		_, err := parseAccount20(addr)
		assert.Error(t, err, addr)
	}
}
