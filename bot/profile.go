package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/SlagHoedje/sibas/discord"
)

func (b *Bot) handleProfile(ctx context.Context, h *Hook) error {
	if err := h.Defer(ctx); err != nil {
		return err
	}

	user := h.ix.Data.User(h.ix.Data.Option("user"))
	if user == nil {
		user = h.ix.Sender()
	}
	if user == nil {
		return failf("No user to profile.")
	}

	profile, err := b.store.UserProfile(ctx, uint64(h.ix.GuildID), uint64(user.ID))
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}

	possessive := "'s"
	if strings.HasSuffix(strings.ToLower(user.Username), "s") {
		possessive = "'"
	}

	embed := discord.Embed{
		Title: user.Username + possessive + " profile",
		Fields: []discord.EmbedField{{
			Name:  "Account created",
			Value: fmt.Sprintf("<t:%d:D>", user.ID.Time().Unix()),
		}},
	}
	if url := user.AvatarURL(); url != "" {
		embed.Thumbnail = &discord.EmbedThumbnail{URL: url}
	}

	// The join date is only known when we can fetch the membership; a user
	// who left the guild still has a profile.
	if member, err := b.client.GuildMember(ctx, h.ix.GuildID, user.ID); err == nil && member.JoinedAt != nil {
		embed.Fields = append(embed.Fields, discord.EmbedField{
			Name:  "Joined server",
			Value: fmt.Sprintf("<t:%d:D>", member.JoinedAt.Unix()),
		})
	}

	reactions := make([]string, len(profile.Reactions))
	for i, row := range profile.Reactions {
		emoji := discord.Emoji{Name: row.Name}
		if row.EmoteID != nil {
			id := discord.Snowflake(*row.EmoteID)
			emoji.ID = &id
		}
		reactions[i] = fmt.Sprintf("%s %d", emoji.Mention(), row.Count)
	}
	if len(reactions) > 0 {
		embed.Fields = append(embed.Fields, discord.EmbedField{
			Name:  "Reactions received",
			Value: strings.Join(reactions, "\n"),
		})
	}

	channels := make([]string, len(profile.ChannelMessages))
	for i, row := range profile.ChannelMessages {
		channels[i] = fmt.Sprintf("<#%d>: %d messages", row.ChannelID, row.Count)
	}
	if len(channels) > 0 {
		embed.Fields = append(embed.Fields, discord.EmbedField{
			Name:  "Messages sent",
			Value: strings.Join(channels, "\n"),
		})
	}

	return h.Embeds(ctx, embed)
}
