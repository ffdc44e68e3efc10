package mempool

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/xbucks-network/diplomat-node/internal/xmif"
)

type xmifFrame struct {
	MC        string `cbor:"1,keyasint"`
	Signature []byte `cbor:"2,keyasint"`
}

func encodeTx(tx xmif.Xmif) ([]byte, error) {
	return cbor.Marshal(xmifFrame{MC: tx.MC, Signature: tx.Signature})
}

func decodeTx(data []byte) (xmif.Xmif, error) {
	var f xmifFrame
	if err := cbor.Unmarshal(data, &f); err != nil {
		return xmif.Xmif{}, err
	}
	return xmif.Xmif{MC: f.MC, Signature: f.Signature}, nil
}
