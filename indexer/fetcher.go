package indexer

import (
	"context"
	"time"

	"github.com/SlagHoedje/sibas/discord"
)

// History is the slice of the upstream chat API the indexing engine pulls
// from. MessagesAfter returns up to limit messages with an ID strictly
// greater than afterID, ordered oldest-first; an afterID of zero starts at
// the beginning of the channel's history. A page shorter than limit signals
// exhaustion.
type History interface {
	MessagesAfter(ctx context.Context, channelID, afterID uint64, limit int) ([]*discord.Message, error)
}

// fetcher turns the paginated history API into a lazy, strictly
// oldest-first sequence of messages newer than a cursor. Both strategies of
// the engine collapse into forward pagination on the ID cursor: a full
// backfill is simply an incremental fetch from cursor zero.
type fetcher struct {
	history   History
	channelID uint64
	after     uint64
	pageSize  int
	now       time.Time

	buf  []*discord.Message
	done bool
}

func newFetcher(history History, channelID, cursor uint64, pageSize int) *fetcher {
	return &fetcher{
		history:   history,
		channelID: channelID,
		after:     cursor,
		pageSize:  pageSize,
		now:       time.Now().UTC(),
	}
}

// Next returns the next historical message, or (nil, nil) on exhaustion.
// Messages with a creation time after "now" (clock skew, stale fixtures)
// are skipped and never surface to the committer.
func (f *fetcher) Next(ctx context.Context) (*discord.Message, error) {
	for {
		if len(f.buf) > 0 {
			msg := f.buf[0]
			f.buf = f.buf[1:]
			f.after = uint64(msg.ID)
			if msg.Timestamp.After(f.now) {
				continue
			}
			return msg, nil
		}

		if f.done {
			return nil, nil
		}

		page, err := f.history.MessagesAfter(ctx, f.channelID, f.after, f.pageSize)
		if err != nil {
			return nil, err
		}
		if len(page) < f.pageSize {
			f.done = true
		}
		if len(page) == 0 {
			return nil, nil
		}
		f.buf = page
	}
}
