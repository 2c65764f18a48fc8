package confirm

import (
	"context"
	"time"
)

// Countdown ticks session every interval until the dialog is armed. It
// stops early, returning ctx.Err() or nil, when ctx is done or the session
// is dismissed or replaced. onTick, if set, sees every accepted tick.
func (c *Controller) Countdown(ctx context.Context, session Session, every time.Duration, onTick func(Snapshot)) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		snap, ok := c.Tick(session)
		if !ok {
			return nil
		}
		if onTick != nil {
			onTick(snap)
		}
		if snap.CanConfirm() {
			return nil
		}
	}
}
