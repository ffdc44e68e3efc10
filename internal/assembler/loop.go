package assembler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xbucks-network/diplomat-node/internal/errs"
)

// PollInterval is how often the loop checks the mempool for work when idle.
const PollInterval = 2 * time.Second

// maxBackoff caps the retry delay after a retriable mining failure.
const maxBackoff = 60 * time.Second

// backoffDuration mirrors the teacher's exponential-backoff helper: doubles
// per consecutive failure, capped at maxBackoff.
func backoffDuration(consecutiveFailures int) time.Duration {
	d := time.Second
	for i := 0; i < consecutiveFailures && d < maxBackoff; i++ {
		d *= 2
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// Run polls the mempool and mines continuously until ctx is cancelled,
// mirroring the poll-and-retry shape used elsewhere for background workers.
// Retriable failures (Exhausted, Transport) back off exponentially instead
// of spinning; all other errors are logged and retried at the next poll.
func (a *Assembler) Run(ctx context.Context) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	var consecutiveFailures int

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if consecutiveFailures > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoffDuration(consecutiveFailures)):
			}
		}

		// Drain back-to-back while there's queued work, rather than
		// waiting a full interval between consecutive blocks.
		for {
			block, err := a.MineOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				a.logger.Warn("mining attempt failed", zap.Error(err))
				if errors.Is(err, errs.ErrExhausted) || errors.Is(err, errs.ErrTransport) {
					consecutiveFailures++
				}
				break
			}
			if block == nil {
				consecutiveFailures = 0
				break
			}
			consecutiveFailures = 0
		}
	}
}
