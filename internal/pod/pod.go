// Package pod implements the Proof-of-Diplomacy consensus primitive:
// required confirmer count, per-confirmer difficulty, hashcash-style puzzle
// solving and verification, and block finality.
package pod

import (
	"context"
	"fmt"
	"math"

	"github.com/benbjohnson/clock"

	"github.com/xbucks-network/diplomat-node/internal/errs"
	"github.com/xbucks-network/diplomat-node/internal/hashutil"
	"github.com/xbucks-network/diplomat-node/internal/ledgerstore"
)

// MinRequiredConfirmations is the floor on N regardless of block size or
// total amount.
const MinRequiredConfirmations = 3

// checkInterval bounds how many hash attempts run between cooperative
// cancellation checks, keeping Solve responsive to context cancellation
// without paying a syscall per attempt.
const checkInterval = 1 << 16

// defaultMaxAttempts caps a single Solve call so a pathologically high
// difficulty cannot spin forever; on exhaustion the caller recomputes
// difficulty and retries, per the puzzle's cap-exhaustion clause.
const defaultMaxAttempts = 1 << 20

// Params configures the engine's consensus-critical constants; K and
// BaseDifficulty come from node configuration and must match across all
// participants for a chain to agree on finality.
type Params struct {
	K                        float64 // scales required-confirmation count with block size
	BaseDifficulty           int     // leading-zero-bit requirement for a first-time confirmer
	RepeatIncrement          int     // extra leading-zero bits charged per prior confirmation from the same validator
	MaxAttemptsPerDifficulty uint64  // 0 means defaultMaxAttempts
}

// DefaultParams mirrors the values documented for new deployments.
func DefaultParams() Params {
	return Params{K: 40, BaseDifficulty: 16, RepeatIncrement: 4, MaxAttemptsPerDifficulty: defaultMaxAttempts}
}

// Engine runs the PoD algorithm against an injectable clock, so solve-time
// tests don't depend on wall-clock speed.
type Engine struct {
	params Params
	clock  clock.Clock
}

// New constructs an Engine. A nil clock defaults to the real wall clock.
func New(params Params, c clock.Clock) *Engine {
	if c == nil {
		c = clock.New()
	}
	return &Engine{params: params, clock: c}
}

// RequiredConfirmations computes N = max(3, floor(k * blockSizeBytes / totalAmount)).
// A non-positive totalAmount is coerced to 1 before the ratio is computed,
// matching the reference calculation exactly rather than skipping it.
func (e *Engine) RequiredConfirmations(blockSizeBytes int, totalAmount float64) int {
	if totalAmount <= 0 {
		totalAmount = 1
	}
	n := int(math.Floor(e.params.K * float64(blockSizeBytes) / totalAmount))
	if n < MinRequiredConfirmations {
		return MinRequiredConfirmations
	}
	return n
}

// Difficulty returns the leading-zero-bit requirement for a confirmer who
// has already produced repeatCount accepted confirmations on this block.
func (e *Engine) Difficulty(repeatCount int) int {
	return e.params.BaseDifficulty + e.params.RepeatIncrement*repeatCount
}

// RepeatCount returns how many confirmations validator has already
// contributed to this block, the c in base_difficulty + 4*c.
func RepeatCount(confirmations []ledgerstore.Confirmation, validator string) int {
	count := 0
	for _, c := range confirmations {
		if c.Validator == validator {
			count++
		}
	}
	return count
}

// Solve scans nonces starting at 0, refreshing the timestamp on every
// attempt, until it finds one whose hash meets difficulty, the attempt cap
// is hit (errs.ErrExhausted), or ctx is cancelled.
func (e *Engine) Solve(ctx context.Context, blockHash, validator string, difficulty int) (ledgerstore.Confirmation, error) {
	maxAttempts := e.params.MaxAttemptsPerDifficulty
	if maxAttempts == 0 {
		maxAttempts = defaultMaxAttempts
	}

	for nonce := uint64(0); nonce < maxAttempts; nonce++ {
		if nonce%checkInterval == 0 {
			select {
			case <-ctx.Done():
				return ledgerstore.Confirmation{}, ctx.Err()
			default:
			}
		}

		c := ledgerstore.Confirmation{
			Validator:  validator,
			Nonce:      nonce,
			Difficulty: difficulty,
			Timestamp:  e.clock.Now().UnixMilli(),
		}
		c.Hash = hashutil.Sha256Hex([]byte(c.Preimage(blockHash)))
		if hashutil.LeadingZeroBits(c.Hash) >= difficulty {
			return c, nil
		}
	}
	return ledgerstore.Confirmation{}, fmt.Errorf("%w: no solution within %d attempts at difficulty %d", errs.ErrExhausted, maxAttempts, difficulty)
}

// VerifyConfirmation checks one confirmation's hashcash solution against
// the block it claims to confirm.
func (e *Engine) VerifyConfirmation(blockHash string, c ledgerstore.Confirmation) bool {
	return c.Verify(blockHash)
}

// IsFinal reports whether block has reached finality: at least
// requiredConfirmations valid, strictly-ordered, distinct confirmations.
func (e *Engine) IsFinal(block ledgerstore.Block, requiredConfirmations int) (bool, error) {
	if len(block.Confirmations) < requiredConfirmations {
		return false, nil
	}
	if !ledgerstore.StrictlyOrderedByTimestamp(block.Confirmations) {
		return false, fmt.Errorf("confirmations not strictly ordered by timestamp")
	}

	seen := make(map[string]struct{}, len(block.Confirmations))
	for _, c := range block.Confirmations {
		key := fmt.Sprintf("%s:%d", c.Validator, c.Nonce)
		if _, dup := seen[key]; dup {
			return false, fmt.Errorf("duplicate confirmation from validator=%s nonce=%d", c.Validator, c.Nonce)
		}
		seen[key] = struct{}{}

		if !e.VerifyConfirmation(block.Hash, c) {
			return false, fmt.Errorf("invalid confirmation from validator=%s", c.Validator)
		}
	}
	return true, nil
}
