package indexer

import (
	"context"

	"github.com/SlagHoedje/sibas/discord"
	"github.com/SlagHoedje/sibas/models"
	"github.com/SlagHoedje/sibas/store"
)

// committer buffers fetched messages into fixed-size chunks and commits
// each chunk in a single store transaction: messages, reaction rows, and
// the advanced cursor together. A crash therefore loses at most one
// uncommitted chunk, never committed progress.
type committer struct {
	store     *store.Store
	channelID uint64
	chunkSize int
	progress  func(count int)

	messages  []models.Message
	reactions []models.Reaction
	maxID     uint64
	total     int
}

func newCommitter(st *store.Store, channelID uint64, chunkSize int, progress func(count int)) *committer {
	return &committer{
		store:     st,
		channelID: channelID,
		chunkSize: chunkSize,
		progress:  progress,
	}
}

func (c *committer) add(ctx context.Context, msg *discord.Message) error {
	c.messages = append(c.messages, messageRow(c.channelID, msg))
	for _, reaction := range msg.Reactions {
		c.reactions = append(c.reactions, reactionRow(uint64(msg.ID), reaction))
	}
	if uint64(msg.ID) > c.maxID {
		c.maxID = uint64(msg.ID)
	}

	if len(c.messages) >= c.chunkSize {
		return c.flush(ctx)
	}
	return nil
}

// flush commits the buffered chunk and reports the running total. Flushing
// an empty buffer is a no-op.
func (c *committer) flush(ctx context.Context) error {
	if len(c.messages) == 0 {
		return nil
	}

	if err := c.store.CommitChunk(ctx, c.channelID, c.messages, c.reactions, c.maxID); err != nil {
		return err
	}

	committed := len(c.messages)
	c.total += committed
	c.messages = c.messages[:0]
	c.reactions = c.reactions[:0]

	chunksCommitted.Inc()
	messagesIndexed.Add(float64(committed))

	if c.progress != nil {
		c.progress(c.total)
	}
	return nil
}

func messageRow(channelID uint64, msg *discord.Message) models.Message {
	var author *uint64
	if msg.Author != nil {
		id := uint64(msg.Author.ID)
		author = &id
	} else if msg.WebhookID != nil {
		id := uint64(*msg.WebhookID)
		author = &id
	}

	return models.Message{
		ID:        uint64(msg.ID),
		ChannelID: channelID,
		AuthorID:  author,
		Contents:  msg.Content,
		Timestamp: msg.Timestamp.UTC(),
	}
}

func reactionRow(messageID uint64, reaction discord.Reaction) models.Reaction {
	var emote *uint64
	if reaction.Emoji.ID != nil {
		id := uint64(*reaction.Emoji.ID)
		emote = &id
	}

	return models.Reaction{
		MessageID: messageID,
		EmoteID:   emote,
		Name:      reaction.Emoji.Name,
		Count:     reaction.Count,
	}
}
