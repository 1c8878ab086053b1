package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fnirsi_ps"
	"fnirsi_ps/internal/protocol"
	"fnirsi_ps/internal/transport"
)

// traceStallFactor bounds a finite capture: the device samples at its own
// internal interval, so a capture that produces nothing for several read
// windows per requested sample has stalled.
const traceStallFactor = 3

// Trace starts a fresh capture of the device's ring-buffered log and hands
// each sample to fn as a running merged snapshot.
//
// For n >= 0 exactly n samples are delivered and the capture stops. For
// n = -1 the capture is unbounded: it keeps yielding samples at the device's
// sampling interval until ctx is cancelled, which is the only way it ends.
// Cancellation is signalled through the returned ctx error so the caller's
// deferred session close still runs.
func (p *Processor) Trace(ctx context.Context, n int, fn func(fnirsi_ps.StatusRecord) error) error {
	if n < -1 {
		return fmt.Errorf("trace count must be -1 or non-negative, got %d", n)
	}
	if err := p.sendOp(ctx, protocol.OpLoggingOn); err != nil {
		return err
	}

	var deadline time.Time
	if n >= 0 {
		deadline = time.Now().Add(time.Duration(n+1) * traceStallFactor * p.readTimeout)
	}

	var rec fnirsi_ps.StatusRecord
	remaining := n
	for remaining != 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return fmt.Errorf("trace capture stalled: %w", transport.ErrReadTimeout)
		}

		u, err := p.nextUpdate(ctx)
		if err != nil {
			if errors.Is(err, transport.ErrReadTimeout) {
				continue
			}
			return err
		}
		u.Apply(&rec)
		rec.SampledAt = time.Now().UTC()
		if err := fn(rec); err != nil {
			return err
		}
		if remaining > 0 {
			remaining--
		}
	}
	return nil
}
