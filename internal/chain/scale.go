package chain

import (
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-api/v4/scale"
	"github.com/centrifuge/go-substrate-rpc-api/v4/types"
)

// assetKind mirrors the runtime's treasury AssetKind enum:
// Native | WithId(u128).
type assetKind struct {
	IsWithID bool
	AssetID  types.U128
}

func nativeAsset() assetKind {
	return assetKind{}
}

func assetWithID(id types.U128) assetKind {
	return assetKind{IsWithID: true, AssetID: id}
}

func (a assetKind) Encode(encoder scale.Encoder) error {
	if !a.IsWithID {
		return encoder.PushByte(0)
	}
	if err := encoder.PushByte(1); err != nil {
		return err
	}
	return encoder.Encode(a.AssetID)
}

func (a *assetKind) Decode(decoder scale.Decoder) error {
	b, err := decoder.ReadOneByte()
	if err != nil {
		return err
	}
	switch b {
	case 0:
		a.IsWithID = false
		return nil
	case 1:
		a.IsWithID = true
		return decoder.Decode(&a.AssetID)
	default:
		return fmt.Errorf("unknown asset kind variant %d", b)
	}
}

// noneProxyType encodes Option<ProxyType>::None. The proxy wrapper never
// forces a specific proxy type, matching the manual workflow.
type noneProxyType struct{}

func (noneProxyType) Encode(encoder scale.Encoder) error {
	return encoder.PushByte(0)
}

// weight is the runtime Weight struct; both fields are compact-encoded.
type weight struct {
	RefTime   types.UCompact
	ProofSize types.UCompact
}
