package orchestrator

import "github.com/xbucks-network/diplomat-node/internal/ledgerstore"

// BlockSealedEvent fires once a block this node mined has been durably
// appended to the local ledger.
type BlockSealedEvent struct {
	Block ledgerstore.Block
}

// BlockAcceptedEvent fires once an inbound block from a peer has passed
// validation and been appended to the local ledger.
type BlockAcceptedEvent struct {
	Block ledgerstore.Block
	From  string
}

// PeerDiscoveredEvent fires when roaming or announce traffic adds or
// refreshes a peer in the peer store.
type PeerDiscoveredEvent struct {
	Host string
	Port int
}

// ChainResyncNeededEvent fires when an inbound block cannot extend the
// local tail, signaling that this node has fallen behind (or forked) and
// should catch up via get_ledger.
type ChainResyncNeededEvent struct {
	Reason string
}
