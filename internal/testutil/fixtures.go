// Package testutil provides sample transactions, blocks, and a loopback
// signing identity shared across the node's package tests.
package testutil

import (
	"fmt"

	"github.com/xbucks-network/diplomat-node/internal/hashutil"
	"github.com/xbucks-network/diplomat-node/internal/ledgerstore"
	"github.com/xbucks-network/diplomat-node/internal/xmif"
)

// SampleMC returns a well-formed microformat string for amount, using a
// fixed sender/receiver/timestamp so callers that only care about amount
// get a deterministic, parseable transaction.
func SampleMC(amount string) string {
	return fmt.Sprintf(`123456789012|987654321098|{"amount":%q,"currency":"NGN","owner":"treasury"}|31/07/2026, 10:30:00|0.0001`, amount)
}

// SampleTransaction returns an Xmif carrying SampleMC(amount) with an empty
// (unverified) signature, suitable wherever a test only exercises the
// ledger/mempool/PoD layers rather than signature verification.
func SampleTransaction(amount string) xmif.Xmif {
	return xmif.Xmif{MC: SampleMC(amount)}
}

// SampleTransactions returns n sample transactions of equal amount.
func SampleTransactions(n int, amount string) []xmif.Xmif {
	out := make([]xmif.Xmif, n)
	for i := range out {
		out[i] = SampleTransaction(amount)
	}
	return out
}

// GenesisBlock returns an unconfirmed candidate block extending the
// all-zero genesis hash at index 0, with merkle root and hash already
// computed from txs.
func GenesisBlock(txs []xmif.Xmif) (ledgerstore.Block, error) {
	merkleRoot, err := ledgerstore.ComputeMerkleRoot(txs)
	if err != nil {
		return ledgerstore.Block{}, err
	}
	hash := ledgerstore.ComputeBlockHash(hashutil.ZeroHash, merkleRoot, 0)
	return ledgerstore.Block{
		Index:        0,
		PrevHash:     hashutil.ZeroHash,
		Transactions: txs,
		MerkleRoot:   merkleRoot,
		Hash:         hash,
	}, nil
}
