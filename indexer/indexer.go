// Package indexer implements the incremental indexing engine: it pulls a
// channel's full message and reaction history exactly once, keeps it
// synchronized afterwards from live gateway events, and guarantees at most
// one concurrent indexing pass per channel.
package indexer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/SlagHoedje/sibas/discord"
	"github.com/SlagHoedje/sibas/store"
	"golang.org/x/sync/semaphore"
)

// ErrBusy is returned by TryIndex when another pass already holds the
// channel's lock. It is a scheduling outcome, not a failure.
var ErrBusy = errors.New("another indexing pass is already running for this channel")

const (
	// DefaultChunkSize is the number of messages committed per transaction.
	DefaultChunkSize = 500
	// DefaultPageSize is the upstream history page size (the API maximum).
	DefaultPageSize = 100
	// DefaultSweepInterval is how often scheduled channels are drained.
	DefaultSweepInterval = time.Minute
	// DefaultSweepParallelism caps concurrent pass initiation during a
	// sweep, keeping the DB connection pool as the only backpressure point.
	DefaultSweepParallelism = 4
)

type Options struct {
	ChunkSize        int
	PageSize         int
	SweepInterval    time.Duration
	SweepParallelism int64
}

func (o *Options) withDefaults() Options {
	opts := Options{}
	if o != nil {
		opts = *o
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.SweepParallelism <= 0 {
		opts.SweepParallelism = DefaultSweepParallelism
	}
	return opts
}

// Progress is invoked after every committed chunk with the running total of
// newly persisted messages. blocked is reported once, up front, when the
// caller is waiting on another pass instead of doing work.
type Progress func(blocked bool, count int)

// Indexer orchestrates indexing passes over channels.
type Indexer struct {
	store   *store.Store
	history History
	locks   *channelLocks
	logger  *slog.Logger
	opts    Options

	sweepSem *semaphore.Weighted

	pendingMu sync.Mutex
	pending   map[uint64]uint64 // channel ID -> guild ID
}

func New(st *store.Store, history History, opts *Options) *Indexer {
	o := opts.withDefaults()
	return &Indexer{
		store:    st,
		history:  history,
		locks:    newChannelLocks(),
		logger:   slog.Default().With("component", "indexer"),
		opts:     o,
		sweepSem: semaphore.NewWeighted(o.SweepParallelism),
		pending:  make(map[uint64]uint64),
	}
}

// Index runs a foreground indexing pass. If another pass holds the
// channel's lock, it reports blocked, waits for the holder to finish, and
// returns zero without piggybacking on the other pass's result.
func (ix *Indexer) Index(ctx context.Context, channelID, guildID uint64, progress Progress) (int, error) {
	mu := ix.locks.get(channelID)
	if !mu.TryLock() {
		indexPassesBlocked.Inc()
		if progress != nil {
			progress(true, 0)
		}
		mu.Lock()
		mu.Unlock() //nolint:staticcheck // wait for the holder, nothing more
		return 0, nil
	}
	defer mu.Unlock()

	return ix.run(ctx, channelID, guildID, progress)
}

// TryIndex runs a background indexing pass, returning ErrBusy immediately
// if the channel is already being indexed.
func (ix *Indexer) TryIndex(ctx context.Context, channelID, guildID uint64) (int, error) {
	mu := ix.locks.get(channelID)
	if !mu.TryLock() {
		indexPassesBlocked.Inc()
		return 0, ErrBusy
	}
	defer mu.Unlock()

	return ix.run(ctx, channelID, guildID, nil)
}

// run executes one pass while holding the channel lock: resolve the channel
// row, read the cursor, and drive the fetch/commit loop to exhaustion. A
// transient upstream error resumes the pass once from the current cursor;
// committed chunks are never refetched, so the resume is safe and bounded.
func (ix *Indexer) run(ctx context.Context, channelID, guildID uint64, progress Progress) (int, error) {
	indexPassesStarted.Inc()
	start := time.Now()
	logger := ix.logger.With("channel", channelID)

	channel, err := ix.store.GetOrCreateChannel(ctx, channelID, guildID)
	if err != nil {
		indexPassesFailed.Inc()
		return 0, err
	}

	cursor := uint64(0)
	if channel.LastMessageID != nil {
		cursor = *channel.LastMessageID
	}

	total := 0
	resumed := false
	for {
		base := total
		var onChunk func(int)
		if progress != nil {
			onChunk = func(count int) { progress(false, base+count) }
		}

		n, err := ix.pass(ctx, channelID, cursor, onChunk)
		total += n

		if err == nil {
			indexPassesCompleted.Inc()
			indexPassDuration.Observe(time.Since(start).Seconds())
			if total > 0 {
				logger.Info("indexing pass complete", "new_messages", total, "duration", time.Since(start))
			}
			return total, nil
		}

		if discord.IsTransient(err) && !resumed {
			// The cursor has advanced past every committed chunk, so
			// restarting from it repeats no work.
			resumed = true
			indexPassResumes.Inc()
			logger.Warn("transient upstream error, resuming pass from cursor", "error", err)

			current, cerr := ix.store.GetChannel(ctx, channelID)
			if cerr != nil {
				indexPassesFailed.Inc()
				return total, cerr
			}
			cursor = 0
			if current.LastMessageID != nil {
				cursor = *current.LastMessageID
			}
			continue
		}

		indexPassesFailed.Inc()
		indexPassDuration.Observe(time.Since(start).Seconds())
		return total, err
	}
}

// pass drives one fetch/commit loop from a cursor position. The returned
// count covers committed chunks only; a partially buffered chunk at the
// point of an error is dropped and refetched on resume.
func (ix *Indexer) pass(ctx context.Context, channelID, cursor uint64, onChunk func(int)) (int, error) {
	fetch := newFetcher(ix.history, channelID, cursor, ix.opts.PageSize)
	commit := newCommitter(ix.store, channelID, ix.opts.ChunkSize, onChunk)

	for {
		msg, err := fetch.Next(ctx)
		if err != nil {
			return commit.total, err
		}
		if msg == nil {
			break
		}
		if err := commit.add(ctx, msg); err != nil {
			return commit.total, err
		}
	}

	if err := commit.flush(ctx); err != nil {
		return commit.total, err
	}
	return commit.total, nil
}
