package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/SlagHoedje/sibas/discord"
	"github.com/SlagHoedje/sibas/store"
)

const (
	leaderboardLimit        = 20
	messageLeaderboardLimit = 10
	embedDescriptionLimit   = 2047
)

func (b *Bot) handleLeaderboard(ctx context.Context, h *Hook) error {
	if err := h.Defer(ctx); err != nil {
		return err
	}

	group, sub := subcommand(h.ix.Data)
	if sub == nil {
		return failf("Unknown leaderboard.")
	}
	guildID := uint64(h.ix.GuildID)

	switch group {
	case "channel":
		switch sub.Name {
		case "messages":
			rows, err := b.store.ChannelMessageLeaderboard(ctx, guildID, leaderboardLimit)
			if err != nil {
				return err
			}
			return h.Embeds(ctx, channelEmbed("Most messages in channels", rows, "messages"))
		case "upvotes", "downvotes":
			reaction := strings.TrimSuffix(sub.Name, "s")
			rows, err := b.store.ChannelReactionLeaderboard(ctx, guildID, reaction, leaderboardLimit)
			if err != nil {
				return err
			}
			return h.Embeds(ctx, channelEmbed(fmt.Sprintf("Most %sd channels", reaction), rows, sub.Name))
		}
	case "user":
		switch sub.Name {
		case "messages":
			rows, err := b.store.UserMessageLeaderboard(ctx, guildID, leaderboardLimit)
			if err != nil {
				return err
			}
			return h.Embeds(ctx, userEmbed("Most messages by users", rows, "messages"))
		case "upvotes", "downvotes":
			reaction := strings.TrimSuffix(sub.Name, "s")
			rows, err := b.store.UserReactionLeaderboard(ctx, guildID, reaction, leaderboardLimit)
			if err != nil {
				return err
			}
			return h.Embeds(ctx, userEmbed(fmt.Sprintf("Most %sd users", reaction), rows, sub.Name))
		}
	case "message":
		switch sub.Name {
		case "upvotes", "downvotes":
			return b.messageLeaderboard(ctx, h, strings.TrimSuffix(sub.Name, "s"))
		}
	case "":
		if sub.Name == "reactions" {
			rows, err := b.store.TopReactions(ctx, guildID, leaderboardLimit)
			if err != nil {
				return err
			}
			return h.Embeds(ctx, reactionsEmbed(rows))
		}
	}
	return failf("Unknown leaderboard.")
}

// subcommand unpacks the invoked subcommand, with its group name when there
// is one.
func subcommand(data *discord.InteractionData) (string, *discord.InteractionOption) {
	if data == nil || len(data.Options) == 0 {
		return "", nil
	}
	first := &data.Options[0]
	if first.Type == discord.OptionTypeSubCommandGroup && len(first.Options) > 0 {
		return first.Name, &first.Options[0]
	}
	if first.Type == discord.OptionTypeSubCommand {
		return "", first
	}
	return "", nil
}

func channelEmbed(title string, rows []store.ChannelCount, unit string) discord.Embed {
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = fmt.Sprintf("<#%d>: %d %s", row.ChannelID, row.Count, unit)
	}
	return discord.Embed{Title: title, Description: strings.Join(lines, "\n")}
}

func userEmbed(title string, rows []store.UserCount, unit string) discord.Embed {
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = fmt.Sprintf("<@%d>: %d %s", row.UserID, row.Count, unit)
	}
	return discord.Embed{Title: title, Description: strings.Join(lines, "\n")}
}

func reactionsEmbed(rows []store.EmoteCount) discord.Embed {
	lines := make([]string, len(rows))
	for i, row := range rows {
		emoji := discord.Emoji{Name: row.Name}
		if row.EmoteID != nil {
			id := discord.Snowflake(*row.EmoteID)
			emoji.ID = &id
		}
		lines[i] = fmt.Sprintf("%s: %d", emoji.Mention(), row.Count)
	}
	return discord.Embed{Title: "Most used reactions", Description: strings.Join(lines, "\n")}
}

// messageLeaderboard renders the top messages for one reaction, split across
// as many embeds as the spots need.
func (b *Bot) messageLeaderboard(ctx context.Context, h *Hook, reaction string) error {
	var channelID *uint64
	var channelScope string
	if opt := h.ix.Data.Option("channel"); opt != nil {
		channel, err := h.channelOption("channel")
		if err != nil {
			return err
		}
		id := uint64(channel.ID)
		channelID = &id
		channelScope = " in " + channel.Mention()
	}

	rows, err := b.store.MessageReactionLeaderboard(ctx, uint64(h.ix.GuildID), reaction, channelID, messageLeaderboardLimit)
	if err != nil {
		return err
	}

	spots := make([]string, len(rows))
	for i, row := range rows {
		var sb strings.Builder
		fmt.Fprintf(&sb, "**%d.** [Link](https://discord.com/channels/%s/%d/%d) - <t:%d:D>, ",
			i+1, h.ix.GuildID, row.ChannelID, row.ID, row.Timestamp.Unix())
		if row.AuthorID != nil {
			fmt.Fprintf(&sb, "<@%d>", *row.AuthorID)
		} else {
			sb.WriteString("a webhook")
		}
		if channelID == nil {
			fmt.Fprintf(&sb, " in <#%d>", row.ChannelID)
		}
		fmt.Fprintf(&sb, " with %d %ss\n", row.Count, reaction)

		if row.Contents != "" {
			sb.WriteString("> " + strings.ReplaceAll(row.Contents, "\n", "\n> ") + "\n")
		}
		spots[i] = sb.String()
	}

	title := fmt.Sprintf("Most %sd messages%s", reaction, channelScope)
	var embeds []discord.Embed
	var description strings.Builder
	for _, spot := range spots {
		if description.Len()+len(spot) >= embedDescriptionLimit {
			embeds = append(embeds, discord.Embed{Title: title, Description: description.String()})
			description.Reset()
			title = " "
		}
		description.WriteString(spot + "\n")
	}
	embeds = append(embeds, discord.Embed{Title: title, Description: description.String()})

	return h.Embeds(ctx, embeds...)
}
