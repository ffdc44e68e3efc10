package assembler

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xbucks-network/diplomat-node/internal/ledgerstore"
	"github.com/xbucks-network/diplomat-node/internal/logging"
	"github.com/xbucks-network/diplomat-node/internal/mempool"
	"github.com/xbucks-network/diplomat-node/internal/pod"
	"github.com/xbucks-network/diplomat-node/internal/signer"
	"github.com/xbucks-network/diplomat-node/internal/xmif"
)

const smallTxMC = `123456789012|addr|{"amount":"1000","currency":"NGN","owner":"o"}|31/07/2026, 10:30:00|0.0001`

func newTestAssembler(t *testing.T) (*Assembler, *ledgerstore.Store, *mempool.Pool) {
	t.Helper()
	dir := t.TempDir()

	ledger, err := ledgerstore.Open(filepath.Join(dir, "ledger.data"), filepath.Join(dir, "ledger.idx"))
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })

	mp, err := mempool.Open(filepath.Join(dir, "mempool.bin"))
	require.NoError(t, err)
	t.Cleanup(func() { mp.Close() })

	id, err := signer.LoadOrCreateEd25519Identity(dir, "node")
	require.NoError(t, err)

	engine := pod.New(pod.Params{K: 40, BaseDifficulty: 1, RepeatIncrement: 4}, nil)
	logger := logging.NewDevelopment()

	return New(ledger, mp, engine, id, nil, logger), ledger, mp
}

func TestMineOnceYieldsNothingWhenMempoolEmpty(t *testing.T) {
	a, _, _ := newTestAssembler(t)
	block, err := a.MineOnce(context.Background())
	require.NoError(t, err)
	require.Nil(t, block)
}

func TestMineOnceSealsBlockAndDrainsMempool(t *testing.T) {
	a, ledger, mp := newTestAssembler(t)
	require.NoError(t, mp.Submit(xmif.Xmif{MC: smallTxMC}))

	block, err := a.MineOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, block)
	require.Equal(t, int64(0), block.Index)
	require.GreaterOrEqual(t, len(block.Confirmations), 3)
	require.Equal(t, 0, mp.Len())
	require.Equal(t, int64(1), ledger.Height())

	tail, ok := ledger.Tail()
	require.True(t, ok)
	require.Equal(t, block.Hash, tail.Hash)
}

func TestMineOnceEscalatesDifficultyAcrossConfirmations(t *testing.T) {
	a, _, mp := newTestAssembler(t)
	require.NoError(t, mp.Submit(xmif.Xmif{MC: smallTxMC}))

	block, err := a.MineOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, block.Confirmations[0].Difficulty)
	require.Equal(t, 5, block.Confirmations[1].Difficulty)
	require.Equal(t, 9, block.Confirmations[2].Difficulty)
}
