package indexer

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlagHoedje/sibas/discord"
	"github.com/SlagHoedje/sibas/models"
	"github.com/SlagHoedje/sibas/store"
)

// fakeHistory serves canned messages through the paginated history API and
// can inject an error on a chosen call.
type fakeHistory struct {
	mu       sync.Mutex
	messages map[uint64][]*discord.Message // per channel, ascending by ID
	failOn   map[int]error                 // 1-based call number -> error
	calls    int
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{
		messages: make(map[uint64][]*discord.Message),
		failOn:   make(map[int]error),
	}
}

func (f *fakeHistory) add(channelID uint64, ids ...uint64) {
	for _, id := range ids {
		f.messages[channelID] = append(f.messages[channelID], &discord.Message{
			ID:        discord.Snowflake(id),
			ChannelID: discord.Snowflake(channelID),
			Author:    &discord.User{ID: 7, Username: "someone"},
			Content:   "hello",
			Timestamp: time.Now().UTC().Add(-time.Hour),
		})
	}
}

func (f *fakeHistory) MessagesAfter(ctx context.Context, channelID, afterID uint64, limit int) ([]*discord.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if err, ok := f.failOn[f.calls]; ok {
		return nil, err
	}

	var page []*discord.Message
	for _, msg := range f.messages[channelID] {
		if uint64(msg.ID) > afterID {
			page = append(page, msg)
			if len(page) == limit {
				break
			}
		}
	}
	return page, nil
}

func testIndexer(t *testing.T, history History, opts *Options) (*Indexer, *store.Store) {
	t.Helper()
	db, err := store.SetupDatabase("sqlite://"+filepath.Join(t.TempDir(), "test.sqlite"), 1)
	require.NoError(t, err)
	st := store.NewStore(db)
	return New(st, history, opts), st
}

func cursorOf(t *testing.T, st *store.Store, channelID uint64) uint64 {
	t.Helper()
	channel, err := st.GetChannel(context.Background(), channelID)
	require.NoError(t, err)
	require.NotNil(t, channel.LastMessageID)
	return *channel.LastMessageID
}

func seq(from, to uint64) []uint64 {
	ids := make([]uint64, 0, to-from+1)
	for id := from; id <= to; id++ {
		ids = append(ids, id)
	}
	return ids
}

func TestBackfillChunking(t *testing.T) {
	history := newFakeHistory()
	history.add(100, seq(1, 240)...)

	ix, st := testIndexer(t, history, &Options{ChunkSize: 100, PageSize: 100})

	var progress []int
	count, err := ix.Index(context.Background(), 100, 1, func(blocked bool, count int) {
		assert.False(t, blocked)
		progress = append(progress, count)
	})
	require.NoError(t, err)

	assert.Equal(t, 240, count)
	assert.Equal(t, []int{100, 200, 240}, progress)
	assert.EqualValues(t, 240, cursorOf(t, st, 100))
}

func TestIndexIsIdempotent(t *testing.T) {
	history := newFakeHistory()
	history.add(100, seq(1, 50)...)

	ix, st := testIndexer(t, history, nil)
	ctx := context.Background()

	count, err := ix.Index(ctx, 100, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 50, count)

	// Nothing new: the cursor holds and no rows are added.
	count, err = ix.Index(ctx, 100, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.EqualValues(t, 50, cursorOf(t, st, 100))
}

func TestIncrementalFromCursor(t *testing.T) {
	history := newFakeHistory()
	history.add(100, seq(490, 510)...)

	ix, st := testIndexer(t, history, nil)
	ctx := context.Background()

	// Simulate an earlier pass that stopped at message 500.
	_, err := st.GetOrCreateChannel(ctx, 100, 1)
	require.NoError(t, err)
	require.NoError(t, st.CommitChunk(ctx, 100, []models.Message{{
		ID: 500, ChannelID: 100, Timestamp: time.Now().UTC().Add(-time.Hour),
	}}, nil, 500))

	count, err := ix.Index(ctx, 100, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, count)
	assert.EqualValues(t, 510, cursorOf(t, st, 100))
}

func TestTryIndexBusy(t *testing.T) {
	history := newFakeHistory()
	ix, _ := testIndexer(t, history, nil)

	mu := ix.locks.get(100)
	mu.Lock()
	defer mu.Unlock()

	count, err := ix.TryIndex(context.Background(), 100, 1)
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 0, count)
}

func TestForegroundWaitsWhenBlocked(t *testing.T) {
	history := newFakeHistory()
	history.add(100, seq(1, 10)...)
	ix, _ := testIndexer(t, history, nil)

	mu := ix.locks.get(100)
	mu.Lock()

	blockedSeen := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		count, err := ix.Index(context.Background(), 100, 1, func(blocked bool, count int) {
			assert.True(t, blocked)
			assert.Equal(t, 0, count)
			close(blockedSeen)
		})
		// A blocked foreground pass waits for the holder but does no work
		// of its own.
		assert.NoError(t, err)
		assert.Equal(t, 0, count)
	}()

	select {
	case <-blockedSeen:
	case <-time.After(5 * time.Second):
		t.Fatal("blocked progress signal never arrived")
	}

	mu.Unlock()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("blocked pass never returned after the lock was released")
	}
}

func TestTransientErrorResumesOnce(t *testing.T) {
	history := newFakeHistory()
	history.add(100, seq(1, 240)...)
	// The second page fetch dies after one full chunk has been committed.
	history.failOn[2] = &discord.APIError{StatusCode: 502}

	ix, st := testIndexer(t, history, &Options{ChunkSize: 100, PageSize: 100})

	count, err := ix.Index(context.Background(), 100, 1, nil)
	require.NoError(t, err)

	// The count accumulates across the resume and no message is lost.
	assert.Equal(t, 240, count)
	assert.EqualValues(t, 240, cursorOf(t, st, 100))
}

func TestSecondTransientErrorEscalates(t *testing.T) {
	history := newFakeHistory()
	history.add(100, seq(1, 240)...)
	history.failOn[2] = &discord.APIError{StatusCode: 502}
	history.failOn[4] = &discord.APIError{StatusCode: 502}

	ix, _ := testIndexer(t, history, &Options{ChunkSize: 100, PageSize: 100})

	_, err := ix.Index(context.Background(), 100, 1, nil)
	require.Error(t, err)
	assert.True(t, discord.IsTransient(err))
}

func TestNonTransientErrorPropagates(t *testing.T) {
	history := newFakeHistory()
	history.add(100, seq(1, 240)...)

	ix, _ := testIndexer(t, &failingHistory{inner: history, failFor: 100}, nil)

	count, err := ix.Index(context.Background(), 100, 1, nil)
	require.Error(t, err)
	assert.Equal(t, 0, count)

	// The lock is released on the error path.
	count, err = ix.TryIndex(context.Background(), 100, 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBusy)
	assert.Equal(t, 0, count)
}

func TestFutureMessagesAreSkipped(t *testing.T) {
	history := newFakeHistory()
	history.add(100, seq(1, 4)...)
	history.messages[100] = append(history.messages[100], &discord.Message{
		ID:        5,
		ChannelID: 100,
		Content:   "from the future",
		Timestamp: time.Now().UTC().Add(time.Hour),
	})

	ix, st := testIndexer(t, history, nil)

	count, err := ix.Index(context.Background(), 100, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.EqualValues(t, 4, cursorOf(t, st, 100))
}

func TestSweepContinuesPastFailures(t *testing.T) {
	history := newFakeHistory()
	history.add(100, seq(1, 5)...)
	history.add(200, seq(1, 5)...)

	ix, st := testIndexer(t, history, &Options{SweepParallelism: 1})

	// Channel 300 has no history fixture but also produces no messages, so
	// break it harder: poison the call that will serve it.
	brokenHistory := &failingHistory{inner: history, failFor: 300}
	ix.history = brokenHistory

	ix.Schedule(100, 1)
	ix.Schedule(200, 1)
	ix.Schedule(300, 1)
	ix.Schedule(100, 1) // duplicate scheduling collapses

	ix.sweep(context.Background())

	assert.EqualValues(t, 5, cursorOf(t, st, 100))
	assert.EqualValues(t, 5, cursorOf(t, st, 200))

	// The sweep drained the pending set.
	ix.pendingMu.Lock()
	assert.Empty(t, ix.pending)
	ix.pendingMu.Unlock()
}

type failingHistory struct {
	inner   History
	failFor uint64
}

func (f *failingHistory) MessagesAfter(ctx context.Context, channelID, afterID uint64, limit int) ([]*discord.Message, error) {
	if channelID == f.failFor {
		return nil, &discord.APIError{StatusCode: 403, Code: discord.ErrorCodeMissingAccess}
	}
	return f.inner.MessagesAfter(ctx, channelID, afterID, limit)
}
