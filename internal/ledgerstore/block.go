// Package ledgerstore implements the block and confirmation data model and
// the durable, append-only ledger file that stores committed blocks.
package ledgerstore

import (
	"encoding/json"
	"fmt"

	"github.com/xbucks-network/diplomat-node/internal/hashutil"
	"github.com/xbucks-network/diplomat-node/internal/xmif"
)

// Confirmation is one confirmer's hashcash solution over a block id.
type Confirmation struct {
	Validator  string `json:"validator"`
	Nonce      uint64 `json:"nonce"`
	Difficulty int    `json:"difficulty"`
	Timestamp  int64  `json:"timestamp"`
	Hash       string `json:"hash"`
}

// Preimage returns the exact string hashed to produce this confirmation's
// solution, given the owning block's id.
func (c Confirmation) Preimage(blockHash string) string {
	return fmt.Sprintf("%s:%s:%d:%d:%d", blockHash, c.Validator, c.Nonce, c.Difficulty, c.Timestamp)
}

// Verify recomputes this confirmation's hash from its claimed fields and
// checks it matches Hash and meets Difficulty.
func (c Confirmation) Verify(blockHash string) bool {
	recomputed := hashutil.Sha256Hex([]byte(c.Preimage(blockHash)))
	if recomputed != c.Hash {
		return false
	}
	return hashutil.LeadingZeroBits(c.Hash) >= c.Difficulty
}

// Block is one entry in the append-only ledger.
type Block struct {
	Index         int64          `json:"index"`
	PrevHash      string         `json:"prev_hash"`
	Transactions  []xmif.Xmif    `json:"transactions"`
	MerkleRoot    string         `json:"merkle_root"`
	Hash          string         `json:"hash"`
	Confirmations []Confirmation `json:"confirmations"`
}

// CanonicalTransactionsJSON returns the canonical JSON serialization of txs:
// keys sorted within each record, stable field order across records. Xmif's
// two fields (mc, signature) are already alphabetical, so struct-order
// json.Marshal is the canonical form.
func CanonicalTransactionsJSON(txs []xmif.Xmif) ([]byte, error) {
	if txs == nil {
		txs = []xmif.Xmif{}
	}
	return json.Marshal(txs)
}

// ComputeMerkleRoot hashes the canonical JSON serialization of txs. Despite
// the name, this is a flat hash, not a tree; the name is kept for
// on-disk/wire compatibility with the system this was distilled from.
func ComputeMerkleRoot(txs []xmif.Xmif) (string, error) {
	canon, err := CanonicalTransactionsJSON(txs)
	if err != nil {
		return "", fmt.Errorf("canonicalize transactions: %w", err)
	}
	return hashutil.Sha256Hex(canon), nil
}

// ComputeBlockHash computes the block id from its linkage fields.
func ComputeBlockHash(prevHash, merkleRoot string, index int64) string {
	preimage := fmt.Sprintf("%s:%s:%d", prevHash, merkleRoot, index)
	return hashutil.Sha256Hex([]byte(preimage))
}

// TransactionSizeBytes returns the length of txs' canonical JSON
// serialization, the block_size_bytes input to the PoD confirmation count.
func TransactionSizeBytes(txs []xmif.Xmif) (int, error) {
	canon, err := CanonicalTransactionsJSON(txs)
	if err != nil {
		return 0, err
	}
	return len(canon), nil
}

// TotalAmount sums the amount fields across all transactions' money_json,
// per the canonical field fixed by the specification (not the fragile
// substring extraction the prior implementation used).
func TotalAmount(txs []xmif.Xmif) (float64, error) {
	var total float64
	for _, tx := range txs {
		fields, err := xmif.Parse(tx.MC)
		if err != nil {
			return 0, fmt.Errorf("parse transaction for total amount: %w", err)
		}
		total += fields.Money.AmountDecimal()
	}
	return total, nil
}

// StrictlyOrderedByTimestamp reports whether cs is already in non-decreasing
// timestamp order, as required for block finality.
func StrictlyOrderedByTimestamp(cs []Confirmation) bool {
	for i := 1; i < len(cs); i++ {
		if cs[i].Timestamp < cs[i-1].Timestamp {
			return false
		}
	}
	return true
}
