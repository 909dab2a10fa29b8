package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlagHoedje/sibas/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := SetupDatabase("sqlite://"+filepath.Join(t.TempDir(), "test.sqlite"), 1)
	require.NoError(t, err)
	return NewStore(db)
}

func ptr[T any](v T) *T { return &v }

func testMessage(id, channelID uint64, author *uint64) models.Message {
	return models.Message{
		ID:        id,
		ChannelID: channelID,
		AuthorID:  author,
		Contents:  "hello",
		Timestamp: time.Now().UTC().Add(-time.Hour),
	}
}

func TestGetOrCreateChannel(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	channel, err := s.GetOrCreateChannel(ctx, 100, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), channel.ID)
	assert.Equal(t, uint64(1), channel.GuildID)
	assert.Nil(t, channel.LastMessageID)

	// Second call resolves the same row instead of failing on the pk.
	again, err := s.GetOrCreateChannel(ctx, 100, 1)
	require.NoError(t, err)
	assert.Equal(t, channel.ID, again.ID)

	var count int64
	require.NoError(t, s.db.Model(&models.Channel{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCommitChunkIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreateChannel(ctx, 100, 1)
	require.NoError(t, err)

	messages := []models.Message{
		testMessage(1, 100, ptr(uint64(7))),
		testMessage(2, 100, nil),
		testMessage(3, 100, ptr(uint64(8))),
	}
	reactions := []models.Reaction{
		{MessageID: 1, Name: "upvote", Count: 2},
	}

	require.NoError(t, s.CommitChunk(ctx, 100, messages, reactions, 3))

	// Re-committing the same chunk inserts nothing new.
	require.NoError(t, s.CommitChunk(ctx, 100, messages, reactions, 3))

	var msgCount, reactionCount int64
	require.NoError(t, s.db.Model(&models.Message{}).Count(&msgCount).Error)
	require.NoError(t, s.db.Model(&models.Reaction{}).Count(&reactionCount).Error)
	assert.EqualValues(t, 3, msgCount)
	assert.EqualValues(t, 1, reactionCount)

	channel, err := s.GetChannel(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, channel.LastMessageID)
	assert.EqualValues(t, 3, *channel.LastMessageID)
}

func TestCursorNeverMovesBackward(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreateChannel(ctx, 100, 1)
	require.NoError(t, err)

	require.NoError(t, s.CommitChunk(ctx, 100, []models.Message{testMessage(10, 100, nil)}, nil, 10))
	require.NoError(t, s.CommitChunk(ctx, 100, []models.Message{testMessage(5, 100, nil)}, nil, 5))

	channel, err := s.GetChannel(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, channel.LastMessageID)
	assert.EqualValues(t, 10, *channel.LastMessageID)
}

func TestReactionLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreateChannel(ctx, 100, 1)
	require.NoError(t, err)
	require.NoError(t, s.CommitChunk(ctx, 100, []models.Message{testMessage(1, 100, nil)}, nil, 1))

	// Unknown message is reported, not silently created.
	err = s.AddReaction(ctx, 999, nil, "upvote")
	assert.ErrorIs(t, err, ErrMessageNotFound)

	require.NoError(t, s.AddReaction(ctx, 1, nil, "upvote"))
	require.NoError(t, s.AddReaction(ctx, 1, nil, "upvote"))

	var reaction models.Reaction
	require.NoError(t, s.db.First(&reaction, "message_id = ?", 1).Error)
	assert.Equal(t, 2, reaction.Count)

	// A custom emote with the same name is a distinct identity.
	require.NoError(t, s.AddReaction(ctx, 1, ptr(uint64(42)), "upvote"))
	var count int64
	require.NoError(t, s.db.Model(&models.Reaction{}).Where("message_id = ?", 1).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	// Decrement, then delete when the count reaches zero.
	require.NoError(t, s.RemoveReaction(ctx, 1, nil, "upvote"))
	require.NoError(t, s.db.First(&reaction, "message_id = ? AND emote_id IS NULL", 1).Error)
	assert.Equal(t, 1, reaction.Count)

	require.NoError(t, s.RemoveReaction(ctx, 1, nil, "upvote"))
	err = s.db.First(&reaction, "message_id = ? AND emote_id IS NULL", 1).Error
	assert.Error(t, err)

	require.NoError(t, s.RemoveReactionEmote(ctx, 1, ptr(uint64(42)), "upvote"))
	require.NoError(t, s.db.Model(&models.Reaction{}).Where("message_id = ?", 1).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestClearReactions(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreateChannel(ctx, 100, 1)
	require.NoError(t, err)
	require.NoError(t, s.CommitChunk(ctx, 100, []models.Message{testMessage(1, 100, nil)}, []models.Reaction{
		{MessageID: 1, Name: "upvote", Count: 3},
		{MessageID: 1, EmoteID: ptr(uint64(42)), Name: "pog", Count: 1},
	}, 1))

	require.NoError(t, s.ClearReactions(ctx, 1))

	var count int64
	require.NoError(t, s.db.Model(&models.Reaction{}).Where("message_id = ?", 1).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestDeleteMessageCascades(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreateChannel(ctx, 100, 1)
	require.NoError(t, err)
	require.NoError(t, s.CommitChunk(ctx, 100, []models.Message{
		testMessage(1, 100, nil),
		testMessage(2, 100, nil),
	}, []models.Reaction{
		{MessageID: 1, Name: "upvote", Count: 3},
		{MessageID: 2, Name: "upvote", Count: 1},
	}, 2))

	require.NoError(t, s.DeleteMessage(ctx, 1))

	var msgCount, reactionCount int64
	require.NoError(t, s.db.Model(&models.Message{}).Count(&msgCount).Error)
	require.NoError(t, s.db.Model(&models.Reaction{}).Count(&reactionCount).Error)
	assert.EqualValues(t, 1, msgCount)
	assert.EqualValues(t, 1, reactionCount)

	require.NoError(t, s.DeleteMessages(ctx, []uint64{2}))
	require.NoError(t, s.db.Model(&models.Message{}).Count(&msgCount).Error)
	assert.EqualValues(t, 0, msgCount)
}

func TestUpdateMessageContents(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreateChannel(ctx, 100, 1)
	require.NoError(t, err)
	require.NoError(t, s.CommitChunk(ctx, 100, []models.Message{testMessage(1, 100, nil)}, nil, 1))

	require.NoError(t, s.UpdateMessageContents(ctx, 1, "edited"))

	var msg models.Message
	require.NoError(t, s.db.First(&msg, "id = ?", 1).Error)
	assert.Equal(t, "edited", msg.Contents)
}

func TestClearAll(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreateChannel(ctx, 100, 1)
	require.NoError(t, err)
	require.NoError(t, s.CommitChunk(ctx, 100, []models.Message{testMessage(1, 100, nil)}, []models.Reaction{
		{MessageID: 1, Name: "upvote", Count: 1},
	}, 1))

	require.NoError(t, s.ClearAll(ctx))

	var msgCount, reactionCount int64
	require.NoError(t, s.db.Model(&models.Message{}).Count(&msgCount).Error)
	require.NoError(t, s.db.Model(&models.Reaction{}).Count(&reactionCount).Error)
	assert.EqualValues(t, 0, msgCount)
	assert.EqualValues(t, 0, reactionCount)

	// Channels survive with a reset cursor so the next pass backfills.
	channel, err := s.GetChannel(ctx, 100)
	require.NoError(t, err)
	assert.Nil(t, channel.LastMessageID)
}
