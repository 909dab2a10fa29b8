package games

import (
	"context"
	"log/slog"
	"sync"

	"github.com/SlagHoedje/sibas/discord"
)

// Match is a running game. HandleButton receives the action suffix of the
// button's custom ID ("game:action:<action>").
type Match interface {
	Name() string
	Players() []*discord.User
	Begin(ctx context.Context, channelID discord.Snowflake) error
	HandleButton(ctx context.Context, ix *discord.Interaction, user *discord.User, action string) error
}

// MatchManager tracks running matches and routes button presses to the match
// the pressing user plays in. A user plays in at most one match at a time.
type MatchManager struct {
	client *discord.Client
	logger *slog.Logger

	mu      sync.Mutex
	matches []Match
}

func NewMatchManager(client *discord.Client) *MatchManager {
	return &MatchManager{
		client: client,
		logger: slog.Default().With("component", "games"),
	}
}

func (m *MatchManager) InMatch(user *discord.User) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(user) != nil
}

func (m *MatchManager) find(user *discord.User) Match {
	for _, match := range m.matches {
		for _, p := range match.Players() {
			if p.ID == user.ID {
				return match
			}
		}
	}
	return nil
}

func (m *MatchManager) Start(ctx context.Context, match Match, channelID discord.Snowflake) error {
	m.mu.Lock()
	m.matches = append(m.matches, match)
	m.mu.Unlock()

	if err := match.Begin(ctx, channelID); err != nil {
		m.End(match)
		return err
	}
	return nil
}

func (m *MatchManager) End(match Match) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, other := range m.matches {
		if other == match {
			m.matches = append(m.matches[:i], m.matches[i+1:]...)
			return
		}
	}
}

// HandleButton dispatches a game action button to the user's match, or
// rejects ephemerally if they are not playing.
func (m *MatchManager) HandleButton(ctx context.Context, ix *discord.Interaction, user *discord.User, action string) {
	m.mu.Lock()
	match := m.find(user)
	m.mu.Unlock()

	if match == nil {
		m.replyEphemeral(ctx, ix, "**ERROR!** You can't play in this match.")
		return
	}

	if err := match.HandleButton(ctx, ix, user, action); err != nil {
		m.logger.Error("failed to process game action", "game", match.Name(), "error", err)
	}
}

func (m *MatchManager) replyEphemeral(ctx context.Context, ix *discord.Interaction, content string) {
	err := m.client.Respond(ctx, ix, &discord.InteractionResponse{
		Type: discord.ResponseTypeChannelMessage,
		Data: &discord.ResponseData{Content: content, Flags: discord.ResponseFlagEphemeral},
	})
	if err != nil {
		m.logger.Error("failed to send game reply", "error", err)
	}
}
