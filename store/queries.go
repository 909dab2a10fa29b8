package store

import (
	"context"

	"github.com/SlagHoedje/sibas/models"
)

// Read-only aggregate queries behind the stats, leaderboard, and profile
// commands. These never write and take no locks; they may observe a pass
// mid-flight, which is fine because chunks commit atomically.

type Stats struct {
	Channels  int64
	Messages  int64
	Reactions int64
}

type ChannelCount struct {
	ChannelID uint64
	Count     int64
}

type UserCount struct {
	UserID uint64
	Count  int64
}

type EmoteCount struct {
	EmoteID *uint64
	Name    string
	Count   int64
}

type MessageCount struct {
	models.Message
	Count int64
}

type Profile struct {
	Reactions       []EmoteCount
	ChannelMessages []ChannelCount
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.Channel{}).Count(&stats.Channels).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Message{}).Count(&stats.Messages).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Reaction{}).
		Select("COALESCE(SUM(count), 0)").
		Scan(&stats.Reactions).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

// ChannelMessageLeaderboard ranks a guild's channels by indexed message count.
func (s *Store) ChannelMessageLeaderboard(ctx context.Context, guildID uint64, limit int) ([]ChannelCount, error) {
	var out []ChannelCount
	err := s.db.WithContext(ctx).Raw(`
		SELECT m.channel_id, COUNT(m.id) AS count
		FROM messages m
		JOIN channels c ON c.id = m.channel_id
		WHERE c.guild_id = ?
		GROUP BY m.channel_id
		ORDER BY count DESC
		LIMIT ?`, guildID, limit).Scan(&out).Error
	return out, err
}

// UserMessageLeaderboard ranks a guild's users by indexed message count.
// Authorless (webhook) messages are excluded.
func (s *Store) UserMessageLeaderboard(ctx context.Context, guildID uint64, limit int) ([]UserCount, error) {
	var out []UserCount
	err := s.db.WithContext(ctx).Raw(`
		SELECT m.author_id AS user_id, COUNT(m.id) AS count
		FROM messages m
		JOIN channels c ON c.id = m.channel_id
		WHERE c.guild_id = ? AND m.author_id IS NOT NULL
		GROUP BY m.author_id
		ORDER BY count DESC
		LIMIT ?`, guildID, limit).Scan(&out).Error
	return out, err
}

// ChannelReactionLeaderboard ranks channels by total count of one reaction
// name (e.g. "upvote").
func (s *Store) ChannelReactionLeaderboard(ctx context.Context, guildID uint64, name string, limit int) ([]ChannelCount, error) {
	var out []ChannelCount
	err := s.db.WithContext(ctx).Raw(`
		SELECT m.channel_id, SUM(r.count) AS count
		FROM reactions r
		JOIN messages m ON m.id = r.message_id
		JOIN channels c ON c.id = m.channel_id
		WHERE c.guild_id = ? AND r.name = ?
		GROUP BY m.channel_id
		ORDER BY count DESC
		LIMIT ?`, guildID, name, limit).Scan(&out).Error
	return out, err
}

// UserReactionLeaderboard ranks users by total count of one reaction name
// received on their messages.
func (s *Store) UserReactionLeaderboard(ctx context.Context, guildID uint64, name string, limit int) ([]UserCount, error) {
	var out []UserCount
	err := s.db.WithContext(ctx).Raw(`
		SELECT m.author_id AS user_id, SUM(r.count) AS count
		FROM reactions r
		JOIN messages m ON m.id = r.message_id
		JOIN channels c ON c.id = m.channel_id
		WHERE c.guild_id = ? AND r.name = ? AND m.author_id IS NOT NULL
		GROUP BY m.author_id
		ORDER BY count DESC
		LIMIT ?`, guildID, name, limit).Scan(&out).Error
	return out, err
}

// MessageReactionLeaderboard ranks individual messages by the count of one
// reaction name, optionally scoped to a single channel.
func (s *Store) MessageReactionLeaderboard(ctx context.Context, guildID uint64, name string, channelID *uint64, limit int) ([]MessageCount, error) {
	query := `
		SELECT m.*, MAX(r.count) AS count
		FROM reactions r
		JOIN messages m ON m.id = r.message_id
		JOIN channels c ON c.id = m.channel_id
		WHERE c.guild_id = ? AND r.name = ?`
	args := []any{guildID, name}
	if channelID != nil {
		query += " AND m.channel_id = ?"
		args = append(args, *channelID)
	}
	query += `
		GROUP BY m.id
		ORDER BY count DESC
		LIMIT ?`
	args = append(args, limit)

	var out []MessageCount
	err := s.db.WithContext(ctx).Raw(query, args...).Scan(&out).Error
	return out, err
}

// TopReactions ranks emote identities by total use across a guild.
func (s *Store) TopReactions(ctx context.Context, guildID uint64, limit int) ([]EmoteCount, error) {
	var out []EmoteCount
	err := s.db.WithContext(ctx).Raw(`
		SELECT r.emote_id, r.name, SUM(r.count) AS count
		FROM reactions r
		JOIN messages m ON m.id = r.message_id
		JOIN channels c ON c.id = m.channel_id
		WHERE c.guild_id = ?
		GROUP BY r.emote_id, r.name
		ORDER BY count DESC
		LIMIT ?`, guildID, limit).Scan(&out).Error
	return out, err
}

// UserProfile collects the per-user aggregates shown by the profile command:
// reactions received on the user's messages and message counts per channel.
func (s *Store) UserProfile(ctx context.Context, guildID, userID uint64) (*Profile, error) {
	profile := Profile{}
	err := s.db.WithContext(ctx).Raw(`
		SELECT r.emote_id, r.name, SUM(r.count) AS count
		FROM reactions r
		JOIN messages m ON m.id = r.message_id
		JOIN channels c ON c.id = m.channel_id
		WHERE c.guild_id = ? AND m.author_id = ?
		GROUP BY r.emote_id, r.name
		ORDER BY count DESC
		LIMIT 15`, guildID, userID).Scan(&profile.Reactions).Error
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Raw(`
		SELECT m.channel_id, COUNT(m.id) AS count
		FROM messages m
		JOIN channels c ON c.id = m.channel_id
		WHERE c.guild_id = ? AND m.author_id = ?
		GROUP BY m.channel_id
		ORDER BY count DESC
		LIMIT 15`, guildID, userID).Scan(&profile.ChannelMessages).Error
	if err != nil {
		return nil, err
	}

	return &profile, nil
}
