package bot

import "github.com/SlagHoedje/sibas/discord"

// commandTable declares every slash command the bot serves. The table is the
// single source of truth: it drives both registration with Discord and
// dispatch.
func (b *Bot) commandTable() []*Command {
	sub := func(name, description string, options ...discord.CommandOption) discord.CommandOption {
		return discord.CommandOption{
			Type:        discord.OptionTypeSubCommand,
			Name:        name,
			Description: description,
			Options:     options,
		}
	}
	group := func(name string, subs ...discord.CommandOption) discord.CommandOption {
		return discord.CommandOption{
			Type:        discord.OptionTypeSubCommandGroup,
			Name:        name,
			Description: "No description.",
			Options:     subs,
		}
	}
	channelOpt := discord.CommandOption{
		Type:        discord.OptionTypeChannel,
		Name:        "channel",
		Description: "Channel to scan",
	}

	return []*Command{
		{
			Command: discord.Command{
				Name:        "ping",
				Description: "Ping the bot.",
			},
			Handler: b.handlePing,
		},
		{
			Command: discord.Command{
				Name:        "index",
				Description: "Index messages of a channel",
				Options: []discord.CommandOption{{
					Type:        discord.OptionTypeChannel,
					Name:        "channel",
					Description: "The channel to index",
					Required:    true,
				}},
			},
			Handler: b.handleIndex,
		},
		{
			Command: discord.Command{
				Name:        "indexall",
				Description: "Index messages of all channels",
			},
			Handler: b.handleIndexAll,
		},
		{
			Command: discord.Command{
				Name:        "cleardb",
				Description: "Clear all data from the database",
			},
			Admin:   true,
			Handler: b.handleClearDB,
		},
		{
			Command: discord.Command{
				Name:        "reindexall",
				Description: "Clear all data from the database and reindex all messages",
			},
			Admin:   true,
			Handler: b.handleReindexAll,
		},
		{
			Command: discord.Command{
				Name:        "stats",
				Description: "Show some general bot stats",
			},
			Handler: b.handleStats,
		},
		{
			Command: discord.Command{
				Name:        "profile",
				Description: "View stats about a user",
				Options: []discord.CommandOption{{
					Type:        discord.OptionTypeUser,
					Name:        "user",
					Description: "The user to view the profile of",
				}},
			},
			Handler: b.handleProfile,
		},
		{
			Command: discord.Command{
				Name:        "leaderboard",
				Description: "Server leaderboards",
				Options: []discord.CommandOption{
					group("channel",
						sub("messages", "Top channels with the most messages"),
						sub("upvotes", "Top channels with the most upvotes"),
						sub("downvotes", "Top channels with the most downvotes"),
					),
					group("user",
						sub("messages", "Top users with the most messages"),
						sub("upvotes", "Top users with the most upvotes"),
						sub("downvotes", "Top users with the most downvotes"),
					),
					group("message",
						sub("upvotes", "Top messages with the most upvotes", channelOpt),
						sub("downvotes", "Top messages with the most downvotes", channelOpt),
					),
					sub("reactions", "Most used reactions on this server"),
				},
			},
			Handler: b.handleLeaderboard,
		},
		{
			Command: discord.Command{
				Name:        "battle",
				Description: "Challenge someone else to a battle",
				Options: []discord.CommandOption{
					{
						Type:        discord.OptionTypeString,
						Name:        "game",
						Description: "The game you want to play",
						Required:    true,
						Choices: []discord.CommandChoice{
							{Name: gameTicTacToe, Value: gameTicTacToe},
							{Name: gameUltimateTicTacToe, Value: gameUltimateTicTacToe},
						},
					},
					{
						Type:        discord.OptionTypeUser,
						Name:        "opponent",
						Description: "The user you want to play against",
						Required:    true,
					},
				},
			},
			Handler: b.handleBattle,
		},
	}
}
