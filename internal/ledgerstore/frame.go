package ledgerstore

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/xbucks-network/diplomat-node/internal/xmif"
)

// confirmationFrame and blockFrame mirror Block/Confirmation but carry CBOR
// keyasint tags, the wire-compactness convention the P2P message set in the
// pack uses for every framed type.
type confirmationFrame struct {
	Validator  string `cbor:"1,keyasint"`
	Nonce      uint64 `cbor:"2,keyasint"`
	Difficulty int    `cbor:"3,keyasint"`
	Timestamp  int64  `cbor:"4,keyasint"`
	Hash       string `cbor:"5,keyasint"`
}

type xmifFrame struct {
	MC        string `cbor:"1,keyasint"`
	Signature []byte `cbor:"2,keyasint"`
}

type blockFrame struct {
	Index         int64               `cbor:"1,keyasint"`
	PrevHash      string              `cbor:"2,keyasint"`
	Transactions  []xmifFrame         `cbor:"3,keyasint"`
	MerkleRoot    string              `cbor:"4,keyasint"`
	Hash          string              `cbor:"5,keyasint"`
	Confirmations []confirmationFrame `cbor:"6,keyasint"`
}

func toFrame(b Block) blockFrame {
	txs := make([]xmifFrame, len(b.Transactions))
	for i, tx := range b.Transactions {
		txs[i] = xmifFrame{MC: tx.MC, Signature: tx.Signature}
	}
	confs := make([]confirmationFrame, len(b.Confirmations))
	for i, c := range b.Confirmations {
		confs[i] = confirmationFrame{
			Validator:  c.Validator,
			Nonce:      c.Nonce,
			Difficulty: c.Difficulty,
			Timestamp:  c.Timestamp,
			Hash:       c.Hash,
		}
	}
	return blockFrame{
		Index:         b.Index,
		PrevHash:      b.PrevHash,
		Transactions:  txs,
		MerkleRoot:    b.MerkleRoot,
		Hash:          b.Hash,
		Confirmations: confs,
	}
}

func fromFrame(f blockFrame) Block {
	txs := make([]xmif.Xmif, len(f.Transactions))
	for i, tx := range f.Transactions {
		txs[i] = xmif.Xmif{MC: tx.MC, Signature: tx.Signature}
	}
	confs := make([]Confirmation, len(f.Confirmations))
	for i, c := range f.Confirmations {
		confs[i] = Confirmation{
			Validator:  c.Validator,
			Nonce:      c.Nonce,
			Difficulty: c.Difficulty,
			Timestamp:  c.Timestamp,
			Hash:       c.Hash,
		}
	}
	return Block{
		Index:         f.Index,
		PrevHash:      f.PrevHash,
		Transactions:  txs,
		MerkleRoot:    f.MerkleRoot,
		Hash:          f.Hash,
		Confirmations: confs,
	}
}

// encodeBlock serializes a block to its CBOR wire form.
func encodeBlock(b Block) ([]byte, error) {
	return cbor.Marshal(toFrame(b))
}

// decodeBlock parses a block from its CBOR wire form.
func decodeBlock(data []byte) (Block, error) {
	var f blockFrame
	if err := cbor.Unmarshal(data, &f); err != nil {
		return Block{}, err
	}
	return fromFrame(f), nil
}
