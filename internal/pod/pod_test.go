package pod

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/xbucks-network/diplomat-node/internal/ledgerstore"
)

func TestRequiredConfirmationsFloor(t *testing.T) {
	e := New(DefaultParams(), nil)
	require.Equal(t, MinRequiredConfirmations, e.RequiredConfirmations(1, 1_000_000))
}

func TestRequiredConfirmationsCoercesNonPositiveAmountToOne(t *testing.T) {
	e := New(Params{K: 40, BaseDifficulty: 1, RepeatIncrement: 4}, nil)
	// amount <= 0 is coerced to 1, not short-circuited to the floor: a
	// large zero/negative-value block must still demand many
	// confirmations, or N would be trivial to satisfy for free.
	require.Equal(t, 400, e.RequiredConfirmations(10, 0))
	require.Equal(t, 400, e.RequiredConfirmations(10, -5))
}

func TestRequiredConfirmationsScalesWithSize(t *testing.T) {
	e := New(Params{K: 40, BaseDifficulty: 1, RepeatIncrement: 4}, nil)
	n := e.RequiredConfirmations(1000, 100)
	require.Equal(t, 400, n)
}

func TestDifficultyRisesWithRepeatCount(t *testing.T) {
	e := New(Params{K: 40, BaseDifficulty: 16, RepeatIncrement: 4}, nil)
	require.Equal(t, 16, e.Difficulty(0))
	require.Equal(t, 20, e.Difficulty(1))
	require.Equal(t, 24, e.Difficulty(2))
}

func TestRepeatCount(t *testing.T) {
	confs := []ledgerstore.Confirmation{
		{Validator: "a"}, {Validator: "b"}, {Validator: "a"},
	}
	require.Equal(t, 2, RepeatCount(confs, "a"))
	require.Equal(t, 1, RepeatCount(confs, "b"))
	require.Equal(t, 0, RepeatCount(confs, "c"))
}

func TestSolveProducesVerifiableConfirmation(t *testing.T) {
	mc := clock.NewMock()
	mc.Set(time.Unix(1700000000, 0))
	e := New(Params{K: 40, BaseDifficulty: 4, RepeatIncrement: 4}, mc)

	c, err := e.Solve(context.Background(), "blockhash", "validator-1", 4)
	require.NoError(t, err)
	require.True(t, e.VerifyConfirmation("blockhash", c))
	require.Equal(t, mc.Now().UnixMilli(), c.Timestamp)
}

func TestSolveRespectsCancellation(t *testing.T) {
	e := New(Params{K: 40, BaseDifficulty: 40, RepeatIncrement: 4}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Solve(ctx, "blockhash", "validator-1", 40)
	require.ErrorIs(t, err, context.Canceled)
}

func TestIsFinalRequiresEnoughConfirmations(t *testing.T) {
	e := New(DefaultParams(), nil)
	block := ledgerstore.Block{Hash: "h"}
	final, err := e.IsFinal(block, 1)
	require.NoError(t, err)
	require.False(t, final)
}

func TestIsFinalDetectsDuplicateConfirmation(t *testing.T) {
	e := New(Params{K: 40, BaseDifficulty: 1, RepeatIncrement: 4}, nil)
	block := ledgerstore.Block{Hash: "h"}

	c, err := e.Solve(context.Background(), block.Hash, "v1", 1)
	require.NoError(t, err)
	block.Confirmations = []ledgerstore.Confirmation{c, c}

	final, err := e.IsFinal(block, 2)
	require.False(t, final)
	require.Error(t, err)
}

func TestIsFinalAcceptsValidQuorum(t *testing.T) {
	e := New(Params{K: 40, BaseDifficulty: 1, RepeatIncrement: 4}, nil)
	block := ledgerstore.Block{Hash: "h"}

	var confs []ledgerstore.Confirmation
	for _, v := range []string{"v1", "v2", "v3"} {
		difficulty := e.Difficulty(RepeatCount(confs, v))
		c, err := e.Solve(context.Background(), block.Hash, v, difficulty)
		require.NoError(t, err)
		confs = append(confs, c)
	}
	block.Confirmations = confs

	final, err := e.IsFinal(block, 3)
	require.NoError(t, err)
	require.True(t, final)
}
