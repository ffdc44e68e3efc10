// Package orchestrator wires the node's subsystems together and supervises
// their lifecycle: the RPC server, the two roaming discovery loops, the
// mining worker, and the metrics endpoint all start and stop as one unit.
package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xbucks-network/diplomat-node/internal/assembler"
	"github.com/xbucks-network/diplomat-node/internal/errs"
	"github.com/xbucks-network/diplomat-node/internal/ledgerstore"
	"github.com/xbucks-network/diplomat-node/internal/mempool"
	"github.com/xbucks-network/diplomat-node/internal/metrics"
	"github.com/xbucks-network/diplomat-node/internal/peerstore"
	"github.com/xbucks-network/diplomat-node/internal/pod"
	"github.com/xbucks-network/diplomat-node/internal/roaming"
	"github.com/xbucks-network/diplomat-node/internal/rpc"
	"github.com/xbucks-network/diplomat-node/internal/signer"
)

// Config carries the addresses and intervals the orchestrator needs beyond
// what each subsystem already owns.
type Config struct {
	Host        string
	Port        int
	MetricsAddr string

	Roam roaming.Config
}

// Node supervises one running diplomat node: every background worker it
// starts is stopped when the context passed to Run is cancelled.
type Node struct {
	cfg Config

	ledger  *ledgerstore.Store
	mempool *mempool.Pool
	peers   *peerstore.Store
	pod     *pod.Engine
	signer  signer.Identity

	assembler *assembler.Assembler
	rpcServer *rpc.Server
	roam      *roaming.Loops

	metricsServer *http.Server

	logger *zap.Logger
}

// New builds a Node from its already-open subsystems. rpcClient is used
// both for peer broadcast of sealed blocks and for the roaming loops.
func New(cfg Config, ledger *ledgerstore.Store, mp *mempool.Pool, peers *peerstore.Store, podEngine *pod.Engine, identity signer.Identity, rpcClient *rpc.Client, logger *zap.Logger) *Node {
	broadcaster := rpc.NewPeerBroadcaster(rpcClient, peers, logger)
	asm := assembler.New(ledger, mp, podEngine, identity, broadcaster, logger)

	n := &Node{
		cfg:       cfg,
		ledger:    ledger,
		mempool:   mp,
		peers:     peers,
		pod:       podEngine,
		signer:    identity,
		assembler: asm,
		roam:      roaming.New(cfg.Roam, rpcClient, peers, logger),
		logger:    logger,
	}
	return n
}

// AttachRPCServer binds an already-constructed RPC server. New does not
// build one: the server takes its onReceiveBlock callback at construction
// time, so it is built after New, from n.ValidateAndAppend, and attached
// here before Run.
func (n *Node) AttachRPCServer(s *rpc.Server) {
	n.rpcServer = s
}

// ValidateAndAppend is the receive_block validation callback: it
// re-verifies chain linkage and PoD finality before committing an inbound
// block, exactly the checks a locally mined block already satisfied by
// construction.
func (n *Node) ValidateAndAppend(ctx context.Context, block ledgerstore.Block) error {
	tail, hasTail := n.ledger.Tail()
	wantIndex := int64(0)
	if hasTail {
		wantIndex = tail.Index + 1
	}
	if (hasTail && block.PrevHash != tail.Hash) || block.Index != wantIndex {
		n.logger.Warn("rejecting inbound block: chain mismatch",
			zap.Int64("got_index", block.Index), zap.Int64("want_index", wantIndex))
		return fmt.Errorf("%w: block does not extend local tail", errs.ErrChainMismatch)
	}

	sizeBytes, err := ledgerstore.TransactionSizeBytes(block.Transactions)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrBadFormat, err)
	}
	totalAmount, err := ledgerstore.TotalAmount(block.Transactions)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrBadFormat, err)
	}
	required := n.pod.RequiredConfirmations(sizeBytes, totalAmount)

	final, err := n.pod.IsFinal(block, required)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPoDInvalid, err)
	}
	if !final {
		return fmt.Errorf("%w: block has %d/%d required confirmations", errs.ErrPoDInvalid, len(block.Confirmations), required)
	}

	if err := n.ledger.Append(block); err != nil {
		return err
	}
	metrics.LedgerHeight.Set(float64(n.ledger.Height()))
	n.logger.Info("accepted inbound block",
		zap.Int64("index", block.Index), zap.String("hash", block.Hash))
	return nil
}

// Run starts every subsystem and blocks until ctx is cancelled, then stops
// them all and waits for each to exit.
func (n *Node) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		n.logger.Info("starting roam loop")
		n.roam.RunRoam(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		n.logger.Info("starting periodic announce loop")
		n.roam.RunAnnounce(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		n.logger.Info("starting mining loop")
		n.assembler.Run(ctx)
	}()

	if n.rpcServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
			n.logger.Info("starting rpc server", zap.String("addr", addr))
			if err := n.rpcServer.ListenAndServe(ctx, addr); err != nil {
				n.logger.Error("rpc server exited", zap.Error(err))
			}
		}()
	}

	if n.cfg.MetricsAddr != "" {
		n.metricsServer = &http.Server{Addr: n.cfg.MetricsAddr, Handler: metrics.Handler()}
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.logger.Info("starting metrics server", zap.String("addr", n.cfg.MetricsAddr))
			if err := n.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				n.logger.Error("metrics server exited", zap.Error(err))
			}
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := n.metricsServer.Shutdown(shutdownCtx); err != nil {
				n.logger.Warn("metrics server shutdown", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}

// Close releases every subsystem's underlying storage handle.
func (n *Node) Close() error {
	var firstErr error
	note := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	note(n.mempool.Close())
	note(n.ledger.Close())
	note(n.peers.Close())
	return firstErr
}
