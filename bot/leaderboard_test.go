package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlagHoedje/sibas/discord"
)

func TestSubcommandParsing(t *testing.T) {
	grouped := &discord.InteractionData{
		Name: "leaderboard",
		Options: []discord.InteractionOption{{
			Type: discord.OptionTypeSubCommandGroup,
			Name: "channel",
			Options: []discord.InteractionOption{{
				Type: discord.OptionTypeSubCommand,
				Name: "messages",
			}},
		}},
	}
	group, sub := subcommand(grouped)
	require.NotNil(t, sub)
	assert.Equal(t, "channel", group)
	assert.Equal(t, "messages", sub.Name)

	bare := &discord.InteractionData{
		Name: "leaderboard",
		Options: []discord.InteractionOption{{
			Type: discord.OptionTypeSubCommand,
			Name: "reactions",
		}},
	}
	group, sub = subcommand(bare)
	require.NotNil(t, sub)
	assert.Equal(t, "", group)
	assert.Equal(t, "reactions", sub.Name)

	_, sub = subcommand(&discord.InteractionData{Name: "leaderboard"})
	assert.Nil(t, sub)
	_, sub = subcommand(nil)
	assert.Nil(t, sub)
}
