package lobby

import (
	"context"
	"time"
)

// RunSweeper drives the registry's clock: every interval it ages sessions and
// flushes any parked connection with queued messages. It returns when ctx is
// done.
func RunSweeper(ctx context.Context, r *Registry, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.SweepIdle()
			if n := r.ProcessWaitingConnections(); n > 0 {
				r.log.WithField("flushed", n).Debug("flushed parked connections")
			}
		}
	}
}
