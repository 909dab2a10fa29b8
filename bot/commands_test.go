package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTable(t *testing.T) {
	table := (&Bot{}).commandTable()

	byName := make(map[string]*Command)
	for _, cmd := range table {
		require.NotNil(t, cmd.Handler, "command %q has no handler", cmd.Name)
		_, dup := byName[cmd.Name]
		require.False(t, dup, "duplicate command %q", cmd.Name)
		byName[cmd.Name] = cmd
	}

	for _, name := range []string{"ping", "index", "indexall", "cleardb", "reindexall", "stats", "profile", "leaderboard", "battle"} {
		assert.Contains(t, byName, name)
	}

	assert.True(t, byName["cleardb"].Admin)
	assert.True(t, byName["reindexall"].Admin)
	assert.False(t, byName["ping"].Admin)
}
