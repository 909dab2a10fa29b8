package indexer

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Schedule marks a channel for the next periodic sweep. Scheduling is a set
// union: a channel scheduled many times between sweeps is indexed once.
func (ix *Indexer) Schedule(channelID, guildID uint64) {
	ix.pendingMu.Lock()
	ix.pending[channelID] = guildID
	channelsPending.Set(float64(len(ix.pending)))
	ix.pendingMu.Unlock()
}

// RunSweeper periodically drains the scheduled set and runs a background
// pass per channel until the context is cancelled.
func (ix *Indexer) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(ix.opts.SweepInterval)
	defer ticker.Stop()

	ix.logger.Info("periodic sweeper starting", "interval", ix.opts.SweepInterval)
	for {
		select {
		case <-ctx.Done():
			ix.logger.Info("periodic sweeper shutting down")
			return
		case <-ticker.C:
			ix.sweep(ctx)
		}
	}
}

// sweep indexes every scheduled channel. Passes run in parallel across
// channels, capped by the sweep semaphore; one channel's failure never
// aborts the rest of the sweep.
func (ix *Indexer) sweep(ctx context.Context) {
	ix.pendingMu.Lock()
	pending := ix.pending
	ix.pending = make(map[uint64]uint64)
	channelsPending.Set(0)
	ix.pendingMu.Unlock()

	if len(pending) == 0 {
		return
	}

	var (
		wg      sync.WaitGroup
		totalMu sync.Mutex
		total   int
	)
	for channelID, guildID := range pending {
		if err := ix.sweepSem.Acquire(ctx, 1); err != nil {
			return
		}

		wg.Add(1)
		go func(channelID, guildID uint64) {
			defer wg.Done()
			defer ix.sweepSem.Release(1)

			count, err := ix.TryIndex(ctx, channelID, guildID)
			if err != nil {
				if !errors.Is(err, ErrBusy) {
					ix.logger.Error("periodic index failed", "channel", channelID, "error", err)
				}
				return
			}
			totalMu.Lock()
			total += count
			totalMu.Unlock()
		}(channelID, guildID)
	}
	wg.Wait()

	if total > 0 {
		ix.logger.Info("periodic sweep complete", "channels", len(pending), "new_messages", total)
	}
}
