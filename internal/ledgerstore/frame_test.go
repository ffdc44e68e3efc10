package ledgerstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xbucks-network/diplomat-node/internal/xmif"
)

func TestEncodeDecodeBlockRoundTrip(t *testing.T) {
	b := Block{
		Index:      3,
		PrevHash:   "prev",
		Hash:       "hash",
		MerkleRoot: "root",
		Transactions: []xmif.Xmif{
			{MC: "payload", Signature: []byte{1, 2, 3}},
		},
		Confirmations: []Confirmation{
			{Validator: "v", Nonce: 9, Difficulty: 2, Timestamp: 123, Hash: "ch"},
		},
	}

	data, err := encodeBlock(b)
	require.NoError(t, err)

	got, err := decodeBlock(data)
	require.NoError(t, err)
	require.Equal(t, b, got)
}
