package discord

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflakeParsing(t *testing.T) {
	s, err := ParseSnowflake("175928847299117063")
	require.NoError(t, err)
	assert.Equal(t, Snowflake(175928847299117063), s)
	assert.Equal(t, "175928847299117063", s.String())

	_, err = ParseSnowflake("not-a-number")
	assert.Error(t, err)
}

func TestSnowflakeTime(t *testing.T) {
	// The documented example snowflake, created 2016-04-30 11:18:25.796 UTC.
	s := Snowflake(175928847299117063)
	assert.Equal(t, time.Date(2016, 4, 30, 11, 18, 25, 796e6, time.UTC), s.Time())
}

func TestSnowflakeJSON(t *testing.T) {
	out, err := json.Marshal(Snowflake(42))
	require.NoError(t, err)
	assert.Equal(t, `"42"`, string(out))

	var s Snowflake
	require.NoError(t, json.Unmarshal([]byte(`"175928847299117063"`), &s))
	assert.Equal(t, Snowflake(175928847299117063), s)

	// Gateway payloads sometimes carry null IDs.
	require.NoError(t, json.Unmarshal([]byte(`null`), &s))
	assert.Equal(t, Snowflake(0), s)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&APIError{StatusCode: 502}))
	assert.True(t, IsTransient(&APIError{StatusCode: 500}))
	assert.True(t, IsTransient(&APIError{StatusCode: 401, Code: ErrorCodeInvalidWebhookToken}))
	assert.False(t, IsTransient(&APIError{StatusCode: 403, Code: ErrorCodeMissingAccess}))
	assert.False(t, IsTransient(&APIError{StatusCode: 404, Code: ErrorCodeUnknownChannel}))
	assert.False(t, IsTransient(errors.New("connection reset")))
	assert.False(t, IsTransient(nil))
}

func TestInteractionOptionLookup(t *testing.T) {
	data := &InteractionData{
		Name: "leaderboard",
		Options: []InteractionOption{{
			Type: OptionTypeSubCommandGroup,
			Name: "message",
			Options: []InteractionOption{{
				Type: OptionTypeSubCommand,
				Name: "upvotes",
				Options: []InteractionOption{{
					Type:  OptionTypeChannel,
					Name:  "channel",
					Value: "12345",
				}},
			}},
		}},
	}

	opt := data.Option("channel")
	require.NotNil(t, opt)
	id, err := opt.Snowflake()
	require.NoError(t, err)
	assert.Equal(t, Snowflake(12345), id)

	assert.Nil(t, data.Option("missing"))
}

func TestEmojiMention(t *testing.T) {
	unicode := Emoji{Name: "👍"}
	assert.Equal(t, "👍", unicode.Mention())

	id := Snowflake(42)
	custom := Emoji{ID: &id, Name: "pog"}
	assert.Equal(t, "<:pog:42>", custom.Mention())
}

func TestMemberHasPermission(t *testing.T) {
	m := &Member{Permissions: "8192"} // manage messages
	assert.True(t, m.HasPermission(PermissionManageMessages))

	m = &Member{Permissions: "1024"}
	assert.False(t, m.HasPermission(PermissionManageMessages))

	m = &Member{}
	assert.False(t, m.HasPermission(PermissionManageMessages))
}
