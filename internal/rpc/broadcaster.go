package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/xbucks-network/diplomat-node/internal/ledgerstore"
	"github.com/xbucks-network/diplomat-node/internal/peerstore"
)

// PeerBroadcaster fans a sealed block out to every known peer via
// receive_block, best-effort: no retry policy, failures are logged and
// otherwise ignored since propagation is convergent through gossip plus
// get_ledger catch-up.
type PeerBroadcaster struct {
	client *Client
	peers  *peerstore.Store
	logger *zap.Logger
}

// NewPeerBroadcaster builds a PeerBroadcaster.
func NewPeerBroadcaster(client *Client, peers *peerstore.Store, logger *zap.Logger) *PeerBroadcaster {
	return &PeerBroadcaster{client: client, peers: peers, logger: logger}
}

// BroadcastBlock implements assembler.Broadcaster.
func (b *PeerBroadcaster) BroadcastBlock(ctx context.Context, block ledgerstore.Block) {
	known, err := b.peers.List()
	if err != nil {
		b.logger.Warn("broadcast: list peers failed", zap.Error(err))
		return
	}

	payload, err := json.Marshal(block)
	if err != nil {
		b.logger.Error("broadcast: marshal block failed", zap.Error(err))
		return
	}

	for _, p := range known {
		baseURL := fmt.Sprintf("http://%s:%d/", p.Host, p.Port)
		if _, err := b.client.ReceiveBlock(ctx, baseURL, payload); err != nil {
			b.logger.Debug("broadcast: receive_block failed", zap.String("peer", baseURL), zap.Error(err))
		}
	}
}
