// Package assembler drives the mining loop: it snapshots the mempool,
// builds a candidate block, runs the PoD confirmation loop against it, and
// seals it onto the ledger.
package assembler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xbucks-network/diplomat-node/internal/ledgerstore"
	"github.com/xbucks-network/diplomat-node/internal/mempool"
	"github.com/xbucks-network/diplomat-node/internal/metrics"
	"github.com/xbucks-network/diplomat-node/internal/pod"
	"github.com/xbucks-network/diplomat-node/internal/signer"
)

// Broadcaster fans a sealed block out to known peers. Implemented by the
// RPC client; kept as a narrow interface here to avoid a dependency cycle.
type Broadcaster interface {
	BroadcastBlock(ctx context.Context, block ledgerstore.Block)
}

// Assembler owns one mining attempt's lifecycle: mempool in, sealed block
// onto the ledger out.
type Assembler struct {
	ledger    *ledgerstore.Store
	mempool   *mempool.Pool
	pod       *pod.Engine
	identity  signer.Identity
	broadcast Broadcaster
	logger    *zap.Logger
}

// New builds an Assembler. broadcast may be nil, in which case sealed
// blocks are not propagated (single-node operation).
func New(ledger *ledgerstore.Store, mp *mempool.Pool, engine *pod.Engine, identity signer.Identity, broadcast Broadcaster, logger *zap.Logger) *Assembler {
	return &Assembler{ledger: ledger, mempool: mp, pod: engine, identity: identity, broadcast: broadcast, logger: logger}
}

// MineOnce runs one full assembly attempt. It returns (nil, nil) when the
// mempool is empty, since the spec treats that as "yield nothing", not an
// error.
func (a *Assembler) MineOnce(ctx context.Context) (*ledgerstore.Block, error) {
	txs := a.mempool.Snapshot()
	if len(txs) == 0 {
		return nil, nil
	}

	prevHash := a.ledger.TailHash()
	index := a.ledger.Height()

	merkleRoot, err := ledgerstore.ComputeMerkleRoot(txs)
	if err != nil {
		return nil, fmt.Errorf("compute merkle root: %w", err)
	}
	blockHash := ledgerstore.ComputeBlockHash(prevHash, merkleRoot, index)

	sizeBytes, err := ledgerstore.TransactionSizeBytes(txs)
	if err != nil {
		return nil, fmt.Errorf("compute block size: %w", err)
	}
	totalAmount, err := ledgerstore.TotalAmount(txs)
	if err != nil {
		return nil, fmt.Errorf("compute total amount: %w", err)
	}
	required := a.pod.RequiredConfirmations(sizeBytes, totalAmount)

	block := ledgerstore.Block{
		Index:        index,
		PrevHash:     prevHash,
		Transactions: txs,
		MerkleRoot:   merkleRoot,
		Hash:         blockHash,
	}

	validator := a.identity.Address()
	for len(block.Confirmations) < required {
		difficulty := a.pod.Difficulty(pod.RepeatCount(block.Confirmations, validator))
		conf, err := a.pod.Solve(ctx, block.Hash, validator, difficulty)
		if err != nil {
			a.logger.Warn("block attempt aborted, releasing transactions",
				zap.String("block_hash", block.Hash),
				zap.Error(err),
			)
			return nil, fmt.Errorf("solve confirmation %d/%d: %w", len(block.Confirmations)+1, required, err)
		}
		block.Confirmations = append(block.Confirmations, conf)
		metrics.ConfirmationsProduced.Inc()
	}

	if err := a.ledger.Append(block); err != nil {
		return nil, fmt.Errorf("append sealed block: %w", err)
	}
	metrics.BlocksSealed.Inc()
	metrics.LedgerHeight.Set(float64(a.ledger.Height()))

	if _, err := a.mempool.Drain(); err != nil {
		a.logger.Error("drain mempool after seal failed", zap.Error(err))
	}

	a.logger.Info("sealed block",
		zap.Int64("index", block.Index),
		zap.String("hash", block.Hash),
		zap.Int("transactions", len(block.Transactions)),
		zap.Int("confirmations", len(block.Confirmations)),
	)

	if a.broadcast != nil {
		a.broadcast.BroadcastBlock(ctx, block)
	}

	return &block, nil
}
