package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlagHoedje/sibas/models"
)

// seedGuild builds a small two-channel guild: alice talks a lot in channel
// 100, bob posts the popular messages in channel 200, and a second guild
// exists to prove scoping.
func seedGuild(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	alice, bob := uint64(1), uint64(2)

	_, err := s.GetOrCreateChannel(ctx, 100, 1)
	require.NoError(t, err)
	_, err = s.GetOrCreateChannel(ctx, 200, 1)
	require.NoError(t, err)
	_, err = s.GetOrCreateChannel(ctx, 900, 9)
	require.NoError(t, err)

	require.NoError(t, s.CommitChunk(ctx, 100, []models.Message{
		testMessage(1, 100, &alice),
		testMessage(2, 100, &alice),
		testMessage(3, 100, &alice),
	}, nil, 3))

	require.NoError(t, s.CommitChunk(ctx, 200, []models.Message{
		testMessage(4, 200, &bob),
		testMessage(5, 200, nil),
	}, []models.Reaction{
		{MessageID: 4, Name: "upvote", Count: 5},
		{MessageID: 4, Name: "downvote", Count: 1},
		{MessageID: 5, Name: "upvote", Count: 2},
	}, 5))

	// Another guild's traffic must never leak into guild 1 results.
	require.NoError(t, s.CommitChunk(ctx, 900, []models.Message{
		testMessage(6, 900, &alice),
	}, []models.Reaction{
		{MessageID: 6, Name: "upvote", Count: 99},
	}, 6))
}

func TestStats(t *testing.T) {
	s := testStore(t)
	seedGuild(t, s)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Channels)
	assert.EqualValues(t, 6, stats.Messages)
	assert.EqualValues(t, 107, stats.Reactions)
}

func TestChannelMessageLeaderboard(t *testing.T) {
	s := testStore(t)
	seedGuild(t, s)

	rows, err := s.ChannelMessageLeaderboard(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, uint64(100), rows[0].ChannelID)
	assert.EqualValues(t, 3, rows[0].Count)
	assert.Equal(t, uint64(200), rows[1].ChannelID)
	assert.EqualValues(t, 2, rows[1].Count)
}

func TestUserMessageLeaderboardExcludesWebhooks(t *testing.T) {
	s := testStore(t)
	seedGuild(t, s)

	rows, err := s.UserMessageLeaderboard(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, uint64(1), rows[0].UserID)
	assert.EqualValues(t, 3, rows[0].Count)
	assert.Equal(t, uint64(2), rows[1].UserID)
	assert.EqualValues(t, 1, rows[1].Count)
}

func TestReactionLeaderboards(t *testing.T) {
	s := testStore(t)
	seedGuild(t, s)
	ctx := context.Background()

	channels, err := s.ChannelReactionLeaderboard(ctx, 1, "upvote", 10)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, uint64(200), channels[0].ChannelID)
	assert.EqualValues(t, 7, channels[0].Count)

	users, err := s.UserReactionLeaderboard(ctx, 1, "upvote", 10)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, uint64(2), users[0].UserID)
	assert.EqualValues(t, 5, users[0].Count)

	messages, err := s.MessageReactionLeaderboard(ctx, 1, "upvote", nil, 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.EqualValues(t, 4, messages[0].ID)
	assert.EqualValues(t, 5, messages[0].Count)

	scope := uint64(100)
	messages, err = s.MessageReactionLeaderboard(ctx, 1, "upvote", &scope, 10)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestTopReactions(t *testing.T) {
	s := testStore(t)
	seedGuild(t, s)

	rows, err := s.TopReactions(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "upvote", rows[0].Name)
	assert.EqualValues(t, 7, rows[0].Count)
}

func TestUserProfile(t *testing.T) {
	s := testStore(t)
	seedGuild(t, s)

	profile, err := s.UserProfile(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, profile.Reactions, 2)
	assert.Equal(t, "upvote", profile.Reactions[0].Name)
	assert.EqualValues(t, 5, profile.Reactions[0].Count)

	require.Len(t, profile.ChannelMessages, 1)
	assert.Equal(t, uint64(200), profile.ChannelMessages[0].ChannelID)
	assert.EqualValues(t, 1, profile.ChannelMessages[0].Count)
}
