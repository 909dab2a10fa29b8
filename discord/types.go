// Package discord implements the small slice of the Discord REST and
// gateway APIs that the bot needs: paginated channel history, live message
// and reaction events, slash-command registration, and interaction
// responses.
package discord

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// Snowflake is a Discord object ID. Snowflakes are unsigned 64-bit integers
// that encode their creation time in the upper bits, so they sort by
// creation order; the REST API transports them as decimal strings.
type Snowflake uint64

const discordEpochMillis = 1420070400000

func ParseSnowflake(s string) (Snowflake, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid snowflake %q: %w", s, err)
	}
	return Snowflake(v), nil
}

func (s Snowflake) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

// Time extracts the creation instant encoded in the snowflake.
func (s Snowflake) Time() time.Time {
	return time.UnixMilli(int64(s>>22) + discordEpochMillis).UTC()
}

func (s Snowflake) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *Snowflake) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = 0
		return nil
	}
	v, err := ParseSnowflake(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type User struct {
	ID       Snowflake `json:"id"`
	Username string    `json:"username"`
	Bot      bool      `json:"bot,omitempty"`
	Avatar   string    `json:"avatar,omitempty"`
}

// Mention renders the user as an in-chat mention.
func (u *User) Mention() string {
	return "<@" + u.ID.String() + ">"
}

// AvatarURL returns the CDN location of the user's avatar, empty when they
// use a default one.
func (u *User) AvatarURL() string {
	if u.Avatar == "" {
		return ""
	}
	return "https://cdn.discordapp.com/avatars/" + u.ID.String() + "/" + u.Avatar + ".png"
}

type Member struct {
	User        *User       `json:"user,omitempty"`
	Roles       []Snowflake `json:"roles,omitempty"`
	JoinedAt    *time.Time  `json:"joined_at,omitempty"`
	Permissions string      `json:"permissions,omitempty"`
}

const PermissionManageMessages = 1 << 13

// HasPermission checks the member's interaction-scoped permission bitset.
func (m *Member) HasPermission(bit uint64) bool {
	perms, err := strconv.ParseUint(m.Permissions, 10, 64)
	if err != nil {
		return false
	}
	return perms&bit != 0
}

type Role struct {
	ID   Snowflake `json:"id"`
	Name string    `json:"name"`
}

// Emoji identifies a reaction emote: unicode emoji carry only a name,
// custom emotes additionally have an ID.
type Emoji struct {
	ID   *Snowflake `json:"id"`
	Name string     `json:"name"`
}

// Mention renders the emoji the way message content embeds it.
func (e *Emoji) Mention() string {
	if e.ID == nil {
		return e.Name
	}
	return "<:" + e.Name + ":" + e.ID.String() + ">"
}

type Reaction struct {
	Count int   `json:"count"`
	Emoji Emoji `json:"emoji"`
}

const (
	MessageTypeDefault = 0
	MessageTypeReply   = 19
)

type Message struct {
	ID        Snowflake  `json:"id"`
	ChannelID Snowflake  `json:"channel_id"`
	GuildID   Snowflake  `json:"guild_id,omitempty"`
	Author    *User      `json:"author,omitempty"`
	WebhookID *Snowflake `json:"webhook_id,omitempty"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
	Type      int        `json:"type"`
	Reactions []Reaction `json:"reactions,omitempty"`
}

const (
	ChannelTypeGuildText = 0
	ChannelTypeDM        = 1
)

type Channel struct {
	ID            Snowflake  `json:"id"`
	GuildID       Snowflake  `json:"guild_id,omitempty"`
	Name          string     `json:"name,omitempty"`
	Type          int        `json:"type"`
	LastMessageID *Snowflake `json:"last_message_id,omitempty"`
}

func (c *Channel) Mention() string {
	return "<#" + c.ID.String() + ">"
}

// Embed is a rich message embed. Only the fields the bot renders are
// modeled.
type Embed struct {
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Fields      []EmbedField    `json:"fields,omitempty"`
	Thumbnail   *EmbedThumbnail `json:"thumbnail,omitempty"`
	Footer      *EmbedFooter    `json:"footer,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type EmbedThumbnail struct {
	URL string `json:"url"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

// Message components. Buttons always sit inside an action row.
const (
	ComponentTypeActionRow = 1
	ComponentTypeButton    = 2
)

const (
	ButtonStylePrimary   = 1
	ButtonStyleSecondary = 2
	ButtonStyleSuccess   = 3
	ButtonStyleDanger    = 4
)

type Component struct {
	Type       int         `json:"type"`
	Style      int         `json:"style,omitempty"`
	Label      string      `json:"label,omitempty"`
	CustomID   string      `json:"custom_id,omitempty"`
	Disabled   bool        `json:"disabled,omitempty"`
	Components []Component `json:"components,omitempty"`
}

func ActionRow(buttons ...Component) Component {
	return Component{Type: ComponentTypeActionRow, Components: buttons}
}

func Button(style int, customID, label string) Component {
	return Component{Type: ComponentTypeButton, Style: style, CustomID: customID, Label: label}
}

// Slash command registration payloads.
const (
	OptionTypeSubCommand      = 1
	OptionTypeSubCommandGroup = 2
	OptionTypeString          = 3
	OptionTypeUser            = 6
	OptionTypeChannel         = 7
)

type CommandChoice struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type CommandOption struct {
	Type        int             `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Required    bool            `json:"required,omitempty"`
	Choices     []CommandChoice `json:"choices,omitempty"`
	Options     []CommandOption `json:"options,omitempty"`
}

type Command struct {
	ID          Snowflake       `json:"id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Options     []CommandOption `json:"options,omitempty"`
}

// Interactions.
const (
	InteractionTypePing             = 1
	InteractionTypeCommand          = 2
	InteractionTypeMessageComponent = 3
)

type Interaction struct {
	ID        Snowflake        `json:"id"`
	Type      int              `json:"type"`
	Token     string           `json:"token"`
	GuildID   Snowflake        `json:"guild_id,omitempty"`
	ChannelID Snowflake        `json:"channel_id,omitempty"`
	Member    *Member          `json:"member,omitempty"`
	User      *User            `json:"user,omitempty"`
	Data      *InteractionData `json:"data,omitempty"`
	Message   *Message         `json:"message,omitempty"`
}

// Sender resolves the invoking user for both guild and DM interactions.
func (i *Interaction) Sender() *User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

type InteractionData struct {
	Name     string              `json:"name,omitempty"`
	CustomID string              `json:"custom_id,omitempty"`
	Options  []InteractionOption `json:"options,omitempty"`
	Resolved *ResolvedData       `json:"resolved,omitempty"`
}

// ResolvedData carries full objects for the snowflakes referenced by
// interaction options, keyed by their decimal ID.
type ResolvedData struct {
	Users    map[string]*User    `json:"users,omitempty"`
	Members  map[string]*Member  `json:"members,omitempty"`
	Channels map[string]*Channel `json:"channels,omitempty"`
}

// User resolves a user-typed option value to the full user object.
func (d *InteractionData) User(o *InteractionOption) *User {
	if o == nil || d.Resolved == nil {
		return nil
	}
	id, ok := o.Value.(string)
	if !ok {
		return nil
	}
	return d.Resolved.Users[id]
}

type InteractionOption struct {
	Type    int                 `json:"type"`
	Name    string              `json:"name"`
	Value   any                 `json:"value,omitempty"`
	Options []InteractionOption `json:"options,omitempty"`
}

// Option does a depth-first search for a named option, descending through
// subcommand groups.
func (d *InteractionData) Option(name string) *InteractionOption {
	return findOption(d.Options, name)
}

func findOption(opts []InteractionOption, name string) *InteractionOption {
	for i := range opts {
		if opts[i].Name == name {
			return &opts[i]
		}
		if found := findOption(opts[i].Options, name); found != nil {
			return found
		}
	}
	return nil
}

// Snowflake interprets a user/channel option value, which arrives as a
// string-encoded ID.
func (o *InteractionOption) Snowflake() (Snowflake, error) {
	s, ok := o.Value.(string)
	if !ok {
		return 0, fmt.Errorf("option %q is not a snowflake", o.Name)
	}
	return ParseSnowflake(s)
}

const (
	ResponseTypeChannelMessage = 4
	ResponseTypeDeferred       = 5
	ResponseTypeDeferredUpdate = 6
	ResponseTypeUpdateMessage  = 7
)

const ResponseFlagEphemeral = 1 << 6

type ResponseData struct {
	Content    string      `json:"content,omitempty"`
	Embeds     []Embed     `json:"embeds,omitempty"`
	Components []Component `json:"components,omitempty"`
	Flags      int         `json:"flags,omitempty"`
}

type InteractionResponse struct {
	Type int           `json:"type"`
	Data *ResponseData `json:"data,omitempty"`
}
