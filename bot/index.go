package bot

import (
	"context"
	"fmt"
	"strconv"

	"github.com/SlagHoedje/sibas/discord"
)

func (b *Bot) handlePing(ctx context.Context, h *Hook) error {
	return h.Message(ctx, "Pong!")
}

func (b *Bot) handleIndex(ctx context.Context, h *Hook) error {
	channel, err := h.channelOption("channel")
	if err != nil {
		return err
	}
	mention := "<#" + channel.ID.String() + ">"

	if err := h.Message(ctx, "Indexing "+mention+"..."); err != nil {
		return err
	}

	count, err := b.indexer.Index(ctx, uint64(channel.ID), uint64(h.ix.GuildID), func(blocked bool, count int) {
		if blocked {
			h.Progress(ctx, "Indexing "+mention+"... _(waiting for another pass to finish)_")
		} else {
			h.Progress(ctx, fmt.Sprintf("Indexing %s... _(%d messages)_", mention, count))
		}
	})
	if err != nil {
		return err
	}

	return h.Message(ctx, fmt.Sprintf("**DONE!** Indexed %s. _(%d messages)_", mention, count))
}

func (b *Bot) handleIndexAll(ctx context.Context, h *Hook) error {
	count, err := b.indexGuild(ctx, h)
	if err != nil {
		return err
	}
	return h.Message(ctx, fmt.Sprintf("**DONE!** Indexed all channels. _(%d messages)_", count))
}

func (b *Bot) handleClearDB(ctx context.Context, h *Hook) error {
	if err := h.Message(ctx, "Clearing the database..."); err != nil {
		return err
	}
	if err := b.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("clearing database: %w", err)
	}
	return h.Message(ctx, "**DONE!** Cleared the database.")
}

func (b *Bot) handleReindexAll(ctx context.Context, h *Hook) error {
	if err := h.Message(ctx, "Clearing the database..."); err != nil {
		return err
	}
	if err := b.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("clearing database: %w", err)
	}

	count, err := b.indexGuild(ctx, h)
	if err != nil {
		return err
	}
	return h.Message(ctx, fmt.Sprintf("**DONE!** Indexed all channels. _(%d messages)_", count))
}

// indexGuild runs a foreground pass over every readable text channel of the
// invoking guild, reporting per-channel progress through the hook.
func (b *Bot) indexGuild(ctx context.Context, h *Hook) (int, error) {
	if err := h.Message(ctx, "Indexing all channels..."); err != nil {
		return 0, err
	}

	channels, err := b.client.GuildChannels(ctx, h.ix.GuildID)
	if err != nil {
		return 0, fmt.Errorf("listing guild channels: %w", err)
	}

	total := 0
	for _, channel := range channels {
		if channel.Type != discord.ChannelTypeGuildText {
			continue
		}
		if !b.client.CanReadHistory(ctx, uint64(channel.ID)) {
			b.logger.Debug("skipping unreadable channel", "channel", channel.ID)
			continue
		}

		mention := channel.Mention()
		count, err := b.indexer.Index(ctx, uint64(channel.ID), uint64(h.ix.GuildID), func(blocked bool, count int) {
			if blocked {
				h.Progress(ctx, "Indexing "+mention+"... _(waiting for another pass to finish)_")
			} else {
				h.Progress(ctx, fmt.Sprintf("Indexing %s... _(%d messages)_", mention, count))
			}
		})
		if err != nil {
			return total, err
		}
		total += count
	}
	return total, nil
}

func (b *Bot) handleStats(ctx context.Context, h *Hook) error {
	stats, err := b.store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("loading stats: %w", err)
	}

	return h.Embeds(ctx, discord.Embed{
		Fields: []discord.EmbedField{
			{Name: "Channels", Value: strconv.FormatInt(stats.Channels, 10)},
			{Name: "Messages", Value: strconv.FormatInt(stats.Messages, 10)},
			{Name: "Reactions", Value: strconv.FormatInt(stats.Reactions, 10)},
		},
	})
}

// channelOption resolves a required channel option and validates it is a
// text channel.
func (h *Hook) channelOption(name string) (*discord.Channel, error) {
	opt := h.ix.Data.Option(name)
	if opt == nil {
		return nil, failf("No channel specified.")
	}
	id, err := opt.Snowflake()
	if err != nil {
		return nil, failf("That's not a valid channel.")
	}

	if h.ix.Data.Resolved != nil {
		if channel, ok := h.ix.Data.Resolved.Channels[id.String()]; ok {
			if channel.Type != discord.ChannelTypeGuildText {
				return nil, failf("That's not a message channel!")
			}
			return channel, nil
		}
	}
	return &discord.Channel{ID: id, Type: discord.ChannelTypeGuildText}, nil
}
