// Package mempool is the pending-transaction queue: a framed file of
// not-yet-sealed transactions, eagerly validated at submission time and
// atomically drained into a block by the assembler.
package mempool

import (
	"fmt"
	"sync"

	"github.com/xbucks-network/diplomat-node/internal/framefile"
	"github.com/xbucks-network/diplomat-node/internal/metrics"
	"github.com/xbucks-network/diplomat-node/internal/xmif"
)

// Pool is the mempool's in-process view, backed by a framefile.File for
// durability across restarts.
type Pool struct {
	mu            sync.Mutex
	ff            *framefile.File
	path          string
	items         []xmif.Xmif
	skippedFrames int
}

// Open loads path's existing frames (if any) and readies the pool for
// further submissions. A frame corrupt at the base64 or CBOR layer is
// skipped and counted rather than aborting the whole load.
func Open(path string) (*Pool, error) {
	ff, err := framefile.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mempool file: %w", err)
	}

	raw, skipped, err := framefile.LoadAll(path)
	if err != nil {
		ff.Close()
		return nil, fmt.Errorf("load mempool frames: %w", err)
	}

	items := make([]xmif.Xmif, 0, len(raw))
	for _, payload := range raw {
		tx, err := decodeTx(payload)
		if err != nil {
			skipped++
			continue
		}
		items = append(items, tx)
	}

	return &Pool{ff: ff, path: path, items: items, skippedFrames: skipped}, nil
}

// SkippedFrames reports how many corrupt frames Open discarded on load.
func (p *Pool) SkippedFrames() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.skippedFrames
}

// Submit validates tx's microformat payload eagerly and, if well-formed,
// appends it to the durable queue and the in-memory view.
func (p *Pool) Submit(tx xmif.Xmif) error {
	if _, err := xmif.Parse(tx.MC); err != nil {
		return fmt.Errorf("reject malformed transaction: %w", err)
	}

	payload, err := encodeTx(tx)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ff.Append(payload); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	p.items = append(p.items, tx)
	metrics.MempoolDepth.Set(float64(len(p.items)))
	return nil
}

// Snapshot returns a copy of the currently queued transactions without
// removing them, for the assembler to size and hash a candidate block.
func (p *Pool) Snapshot() []xmif.Xmif {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]xmif.Xmif, len(p.items))
	copy(out, p.items)
	return out
}

// Len reports how many transactions are queued.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Drain atomically removes and returns every queued transaction, truncating
// the durable file. Called once a block sealing those transactions has been
// durably appended to the ledger.
func (p *Pool) Drain() ([]xmif.Xmif, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	drained := p.items
	if err := p.ff.Truncate(); err != nil {
		return nil, fmt.Errorf("truncate mempool file: %w", err)
	}
	p.items = nil
	metrics.MempoolDepth.Set(0)
	return drained, nil
}

// Close releases the underlying file handle.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ff.Close()
}
