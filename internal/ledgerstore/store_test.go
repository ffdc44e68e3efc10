package ledgerstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xbucks-network/diplomat-node/internal/hashutil"
	"github.com/xbucks-network/diplomat-node/internal/xmif"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "ledger.data"), filepath.Join(dir, "ledger.idx"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func sealedBlock(t *testing.T, index int64, prevHash string) Block {
	t.Helper()
	txs := []xmif.Xmif{{MC: "123456789012|addr|{\"amount\":\"1\",\"currency\":\"NGN\",\"owner\":\"o\"}|31/07/2026, 10:30:00|0.01"}}
	root, err := ComputeMerkleRoot(txs)
	require.NoError(t, err)
	hash := ComputeBlockHash(prevHash, root, index)
	return Block{
		Index:      index,
		PrevHash:   prevHash,
		MerkleRoot: root,
		Hash:       hash,
		Transactions: txs,
		Confirmations: []Confirmation{
			{Validator: "v1", Nonce: 1, Difficulty: 1, Timestamp: 1, Hash: hashutil.Sha256Hex([]byte("x"))},
		},
	}
}

func TestAppendRejectsGaps(t *testing.T) {
	s := openTestStore(t)
	b := sealedBlock(t, 1, hashutil.ZeroHash)
	err := s.Append(b)
	require.Error(t, err)
}

func TestAppendAndTail(t *testing.T) {
	s := openTestStore(t)
	require.Equal(t, hashutil.ZeroHash, s.TailHash())

	b0 := sealedBlock(t, 0, hashutil.ZeroHash)
	require.NoError(t, s.Append(b0))

	tail, ok := s.Tail()
	require.True(t, ok)
	require.Equal(t, b0.Hash, tail.Hash)
	require.Equal(t, int64(1), s.Height())

	b1 := sealedBlock(t, 1, b0.Hash)
	require.NoError(t, s.Append(b1))
	require.Equal(t, int64(2), s.Height())
	require.Equal(t, b1.Hash, s.TailHash())
}

func TestGetByHash(t *testing.T) {
	s := openTestStore(t)
	b0 := sealedBlock(t, 0, hashutil.ZeroHash)
	require.NoError(t, s.Append(b0))

	got, ok := s.GetByHash(b0.Hash)
	require.True(t, ok)
	require.Equal(t, b0.Index, got.Index)

	_, ok = s.GetByHash("does-not-exist")
	require.False(t, ok)
}

func TestReopenReplaysLedger(t *testing.T) {
	dir := t.TempDir()
	ledgerPath := filepath.Join(dir, "ledger.data")
	idxPath := filepath.Join(dir, "ledger.idx")

	s1, err := Open(ledgerPath, idxPath)
	require.NoError(t, err)
	b0 := sealedBlock(t, 0, hashutil.ZeroHash)
	require.NoError(t, s1.Append(b0))
	require.NoError(t, s1.Close())

	s2, err := Open(ledgerPath, idxPath)
	require.NoError(t, err)
	defer s2.Close()

	require.Equal(t, int64(1), s2.Height())
	got, ok := s2.GetByHash(b0.Hash)
	require.True(t, ok)
	require.Equal(t, b0.MerkleRoot, got.MerkleRoot)
}
