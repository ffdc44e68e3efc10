package ledgerstore

import (
	"encoding/binary"
	"fmt"
	"sync"

	bolt "go.etcd.io/bbolt"

	"github.com/xbucks-network/diplomat-node/internal/errs"
	"github.com/xbucks-network/diplomat-node/internal/framefile"
	"github.com/xbucks-network/diplomat-node/internal/hashutil"
)

var indexBucket = []byte("block_index_by_hash")

// Store is the append-only ledger: a framed file of committed blocks in
// chain order, backed by a bbolt secondary index for lookup by block hash
// without scanning the chain. The framed file is the source of truth; the index is rebuilt from
// it whenever the two disagree on length.
type Store struct {
	mu            sync.RWMutex
	ff            *framefile.File
	idx           *bolt.DB
	blocks        []Block
	skippedFrames int
}

// Open loads ledgerPath and indexPath, replaying the framed file into
// memory and reconciling the bbolt index against it. A frame that is
// corrupt at either the base64 or the CBOR layer is skipped, not fatal:
// it is counted in SkippedFrames() and every surviving frame is still
// loaded, rather than one damaged record destroying the whole ledger.
func Open(ledgerPath, indexPath string) (*Store, error) {
	ff, err := framefile.Open(ledgerPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger file: %w", err)
	}

	raw, skipped, err := framefile.LoadAll(ledgerPath)
	if err != nil {
		ff.Close()
		return nil, fmt.Errorf("load ledger frames: %w", err)
	}

	blocks := make([]Block, 0, len(raw))
	for _, payload := range raw {
		b, err := decodeBlock(payload)
		if err != nil {
			skipped++
			continue
		}
		blocks = append(blocks, b)
	}

	db, err := bolt.Open(indexPath, 0600, nil)
	if err != nil {
		ff.Close()
		return nil, fmt.Errorf("open ledger index: %w", err)
	}

	s := &Store{ff: ff, idx: db, blocks: blocks, skippedFrames: skipped}
	if err := s.rebuildIndex(); err != nil {
		ff.Close()
		db.Close()
		return nil, err
	}
	return s, nil
}

// SkippedFrames reports how many corrupt frames Open discarded on load.
func (s *Store) SkippedFrames() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.skippedFrames
}

// RawBytes returns the ledger file's exact on-disk bytes, for serving
// get_ledger without reserializing the in-memory blocks.
func (s *Store) RawBytes() ([]byte, error) {
	return s.ff.ReadRaw()
}

func (s *Store) rebuildIndex() error {
	return s.idx.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(indexBucket)
		if err != nil {
			return fmt.Errorf("create index bucket: %w", err)
		}
		if b.Stats().KeyN == len(s.blocks) {
			return nil
		}
		if err := tx.DeleteBucket(indexBucket); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		b, err = tx.CreateBucket(indexBucket)
		if err != nil {
			return fmt.Errorf("recreate index bucket: %w", err)
		}
		for i, block := range s.blocks {
			if err := b.Put([]byte(block.Hash), encodePosition(i)); err != nil {
				return fmt.Errorf("index block %d: %w", i, err)
			}
		}
		return nil
	})
}

func encodePosition(i int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(i))
	return buf
}

func decodePosition(b []byte) int {
	return int(binary.BigEndian.Uint64(b))
}

// Height returns the number of committed blocks.
func (s *Store) Height() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.blocks))
}

// Tail returns the most recently committed block, if any.
func (s *Store) Tail() (Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.blocks) == 0 {
		return Block{}, false
	}
	return s.blocks[len(s.blocks)-1], true
}

// TailHash returns the previous block's hash for chain linkage, or the
// all-zero genesis hash when the ledger is empty.
func (s *Store) TailHash() string {
	b, ok := s.Tail()
	if !ok {
		return genesisPrevHash
	}
	return b.Hash
}

var genesisPrevHash = hashutil.ZeroHash

// All returns every committed block in chain order. Callers must not
// mutate the returned slice's elements in place.
func (s *Store) All() []Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Block, len(s.blocks))
	copy(out, s.blocks)
	return out
}

// GetByHash looks up a block by hash via the secondary index.
func (s *Store) GetByHash(hash string) (Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pos int
	found := false
	_ = s.idx.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(indexBucket)
		if b == nil {
			return nil
		}
		v := b.Get([]byte(hash))
		if v == nil {
			return nil
		}
		pos = decodePosition(v)
		found = true
		return nil
	})
	if !found || pos < 0 || pos >= len(s.blocks) {
		return Block{}, false
	}
	return s.blocks[pos], true
}

// Append validates chain linkage and persists a new block: writes the
// framed file first (the durable log), then updates the in-memory cache and
// index. Returns errs.ErrChainMismatch if block does not extend the
// current tail.
func (s *Store) Append(block Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wantIndex := int64(len(s.blocks))
	wantPrev := genesisPrevHash
	if len(s.blocks) > 0 {
		wantPrev = s.blocks[len(s.blocks)-1].Hash
	}
	if block.Index != wantIndex || block.PrevHash != wantPrev {
		return fmt.Errorf("%w: block index=%d prev=%s, ledger expects index=%d prev=%s",
			errs.ErrChainMismatch, block.Index, block.PrevHash, wantIndex, wantPrev)
	}

	payload, err := encodeBlock(block)
	if err != nil {
		return fmt.Errorf("encode block: %w", err)
	}
	if err := s.ff.Append(payload); err != nil {
		return fmt.Errorf("append block to ledger file: %w", err)
	}

	pos := len(s.blocks)
	s.blocks = append(s.blocks, block)
	if err := s.idx.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(indexBucket)
		if b == nil {
			return fmt.Errorf("index bucket missing")
		}
		return b.Put([]byte(block.Hash), encodePosition(pos))
	}); err != nil {
		return fmt.Errorf("index block: %w", err)
	}
	return nil
}

// Close releases the underlying file and index handles.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ffErr := s.ff.Close()
	idxErr := s.idx.Close()
	if ffErr != nil {
		return ffErr
	}
	return idxErr
}
