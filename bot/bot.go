// Package bot wires slash commands and message components to the indexer,
// the store's aggregate queries, and the mini-games. Commands are declared
// in an explicit registration table and bulk-synced to Discord per guild.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/SlagHoedje/sibas/discord"
	"github.com/SlagHoedje/sibas/games"
	"github.com/SlagHoedje/sibas/indexer"
	"github.com/SlagHoedje/sibas/store"
)

// Handler runs one slash command invocation. Returned errors are rendered to
// the invoking user; use failf for expected user-facing failures.
type Handler func(ctx context.Context, h *Hook) error

type Command struct {
	discord.Command
	Admin   bool
	Handler Handler
}

type Bot struct {
	client  *discord.Client
	store   *store.Store
	indexer *indexer.Indexer
	matches *games.MatchManager
	invites *games.InviteManager
	appID   discord.Snowflake
	logger  *slog.Logger

	commands map[string]*Command

	rolesMu sync.Mutex
	roles   map[discord.Snowflake]map[discord.Snowflake]string
}

func New(client *discord.Client, st *store.Store, ix *indexer.Indexer, appID discord.Snowflake) *Bot {
	matches := games.NewMatchManager(client)
	b := &Bot{
		client:   client,
		store:    st,
		indexer:  ix,
		matches:  matches,
		invites:  games.NewInviteManager(client, appID, matches),
		appID:    appID,
		logger:   slog.Default().With("component", "bot"),
		commands: make(map[string]*Command),
		roles:    make(map[discord.Snowflake]map[discord.Snowflake]string),
	}
	b.register(b.commandTable()...)
	return b
}

func (b *Bot) register(commands ...*Command) {
	for _, cmd := range commands {
		b.commands[cmd.Name] = cmd
	}
}

// Callbacks returns the gateway hooks the bot listens on.
func (b *Bot) Callbacks() *discord.GatewayCallbacks {
	return &discord.GatewayCallbacks{
		Ready:             b.handleReady,
		InteractionCreate: b.handleInteraction,
	}
}

// handleReady syncs the command table to every guild the bot is in. Guild
// commands propagate instantly, so a restart picks up table changes without
// the global-command delay.
func (b *Bot) handleReady(evt *discord.ReadyEvent) {
	commands := make([]discord.Command, 0, len(b.commands))
	for _, cmd := range b.commands {
		commands = append(commands, cmd.Command)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	for _, guild := range evt.Guilds {
		if err := b.client.RegisterGuildCommands(ctx, b.appID, guild.ID, commands); err != nil {
			b.logger.Error("failed to register commands", "guild", guild.ID, "error", err)
			continue
		}
		b.logger.Info("registered commands", "guild", guild.ID, "count", len(commands))
	}
}

// handleInteraction routes an interaction off the gateway read loop. Long
// commands (index passes) run for minutes, so every interaction gets its own
// goroutine.
func (b *Bot) handleInteraction(ix *discord.Interaction) {
	go func() {
		switch ix.Type {
		case discord.InteractionTypeCommand:
			b.dispatchCommand(ix)
		case discord.InteractionTypeMessageComponent:
			b.dispatchComponent(ix)
		}
	}()
}

func (b *Bot) dispatchCommand(ix *discord.Interaction) {
	if ix.Data == nil {
		return
	}
	cmd, ok := b.commands[ix.Data.Name]
	if !ok {
		b.logger.Warn("unknown command", "name", ix.Data.Name)
		return
	}

	ctx := context.Background()
	hook := newHook(b, ix)

	if cmd.Admin && !b.isAdmin(ctx, ix) {
		hook.ephemeral(ctx, "**ERROR!** You're not allowed to do this.")
		return
	}

	if err := cmd.Handler(ctx, hook); err != nil {
		var userErr *commandError
		if !errors.As(err, &userErr) {
			b.logger.Error("command failed", "command", cmd.Name, "error", err)
		}
		if msgErr := hook.Message(ctx, "**ERROR!** "+err.Error()); msgErr != nil {
			b.logger.Error("failed to report command error", "command", cmd.Name, "error", msgErr)
		}
	}
}

func (b *Bot) dispatchComponent(ix *discord.Interaction) {
	if ix.Data == nil {
		return
	}
	user := ix.Sender()
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch {
	case ix.Data.CustomID == "game:invite:accept":
		b.invites.Respond(ctx, ix, user, true)
	case ix.Data.CustomID == "game:invite:deny":
		b.invites.Respond(ctx, ix, user, false)
	case strings.HasPrefix(ix.Data.CustomID, "game:action:"):
		b.matches.HandleButton(ctx, ix, user, strings.TrimPrefix(ix.Data.CustomID, "game:action:"))
	default:
		b.logger.Warn("unknown component", "custom_id", ix.Data.CustomID)
	}
}

// isAdmin mirrors the original moderation rule: a role named Staff or the
// manage-messages permission.
func (b *Bot) isAdmin(ctx context.Context, ix *discord.Interaction) bool {
	member := ix.Member
	if member == nil {
		return false
	}
	if member.HasPermission(discord.PermissionManageMessages) {
		return true
	}

	names, err := b.guildRoleNames(ctx, ix.GuildID)
	if err != nil {
		b.logger.Error("failed to resolve guild roles", "guild", ix.GuildID, "error", err)
		return false
	}
	for _, roleID := range member.Roles {
		if strings.Contains(strings.ToLower(names[roleID]), "staff") {
			return true
		}
	}
	return false
}

func (b *Bot) guildRoleNames(ctx context.Context, guildID discord.Snowflake) (map[discord.Snowflake]string, error) {
	b.rolesMu.Lock()
	cached, ok := b.roles[guildID]
	b.rolesMu.Unlock()
	if ok {
		return cached, nil
	}

	roles, err := b.client.GuildRoles(ctx, guildID)
	if err != nil {
		return nil, err
	}
	names := make(map[discord.Snowflake]string, len(roles))
	for _, role := range roles {
		names[role.ID] = role.Name
	}

	b.rolesMu.Lock()
	b.roles[guildID] = names
	b.rolesMu.Unlock()
	return names, nil
}

// commandError marks an error message meant for the invoking user.
type commandError struct {
	msg string
}

func (e *commandError) Error() string { return e.msg }

func failf(format string, args ...any) error {
	return &commandError{msg: fmt.Sprintf(format, args...)}
}
