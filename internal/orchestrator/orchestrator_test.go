package orchestrator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/xbucks-network/diplomat-node/internal/ledgerstore"
	"github.com/xbucks-network/diplomat-node/internal/logging"
	"github.com/xbucks-network/diplomat-node/internal/mempool"
	"github.com/xbucks-network/diplomat-node/internal/peerstore"
	"github.com/xbucks-network/diplomat-node/internal/pod"
	"github.com/xbucks-network/diplomat-node/internal/rpc"
	"github.com/xbucks-network/diplomat-node/internal/rpcauth"
	"github.com/xbucks-network/diplomat-node/internal/testutil"
)

func newTestNode(t *testing.T) *Node {
	t.Helper()
	dir := t.TempDir()

	ledger, err := ledgerstore.Open(filepath.Join(dir, "ledger.data"), filepath.Join(dir, "ledger.idx"))
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })

	mp, err := mempool.Open(filepath.Join(dir, "mempool.bin"))
	require.NoError(t, err)
	t.Cleanup(func() { mp.Close() })

	peers, err := peerstore.Open(filepath.Join(dir, "peers.db"), clock.NewMock())
	require.NoError(t, err)
	t.Cleanup(func() { peers.Close() })

	podEngine := pod.New(pod.Params{K: 40, BaseDifficulty: 1, RepeatIncrement: 4}, clock.NewMock())
	identity := testutil.NewLoopbackIdentity("validator-a")
	signer := rpcauth.NewSigner([]byte("secret"), nil)
	rpcClient := rpc.NewClient(0, signer)

	return New(Config{Host: "127.0.0.1", Port: 0}, ledger, mp, peers, podEngine, identity, rpcClient, logging.NewDevelopment())
}

func TestValidateAndAppendAcceptsFinalGenesisBlock(t *testing.T) {
	node := newTestNode(t)

	txs := testutil.SampleTransactions(1, "1000000")
	block, err := testutil.GenesisBlock(txs)
	require.NoError(t, err)

	for _, v := range []string{"validator-a", "validator-b", "validator-c"} {
		conf, err := node.pod.Solve(context.Background(), block.Hash, v, 1)
		require.NoError(t, err)
		block.Confirmations = append(block.Confirmations, conf)
	}

	require.NoError(t, node.ValidateAndAppend(context.Background(), block))
	require.Equal(t, int64(1), node.ledger.Height())
}

func TestValidateAndAppendRejectsShortOfQuorum(t *testing.T) {
	node := newTestNode(t)

	txs := testutil.SampleTransactions(1, "10")
	block, err := testutil.GenesisBlock(txs)
	require.NoError(t, err)

	conf, err := node.pod.Solve(context.Background(), block.Hash, "validator-a", 1)
	require.NoError(t, err)
	block.Confirmations = []ledgerstore.Confirmation{conf}

	err = node.ValidateAndAppend(context.Background(), block)
	require.Error(t, err)
	require.Equal(t, int64(0), node.ledger.Height())
}

func TestValidateAndAppendRejectsChainMismatch(t *testing.T) {
	node := newTestNode(t)

	txs := testutil.SampleTransactions(1, "10")
	block, err := testutil.GenesisBlock(txs)
	require.NoError(t, err)
	block.Index = 5 // does not extend empty ledger's expected index 0

	for i := 0; i < 3; i++ {
		conf, err := node.pod.Solve(context.Background(), block.Hash, "validator-a", 1)
		require.NoError(t, err)
		block.Confirmations = append(block.Confirmations, conf)
	}

	err = node.ValidateAndAppend(context.Background(), block)
	require.Error(t, err)
}
