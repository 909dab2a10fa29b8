package games

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SlagHoedje/sibas/discord"
)

// InviteTimeout is how long a game invitation stays open.
const InviteTimeout = 30 * time.Second

// Invite is a pending challenge from one user to another. The invitation
// message lives behind the originating interaction's webhook token so it can
// be deleted when the invite resolves or expires.
type Invite struct {
	From  *discord.User
	To    *discord.User
	Match Match

	channelID discord.Snowflake
	token     string
	timer     *time.Timer
}

// InviteManager tracks pending invitations. A user can be part of at most
// one invitation and zero matches to send or receive a new one.
type InviteManager struct {
	client  *discord.Client
	appID   discord.Snowflake
	matches *MatchManager
	logger  *slog.Logger

	mu      sync.Mutex
	invites []*Invite
}

func NewInviteManager(client *discord.Client, appID discord.Snowflake, matches *MatchManager) *InviteManager {
	return &InviteManager{
		client:  client,
		appID:   appID,
		matches: matches,
		logger:  slog.Default().With("component", "games"),
	}
}

func (m *InviteManager) canInvite(user *discord.User) bool {
	for _, inv := range m.invites {
		if inv.From.ID == user.ID || inv.To.ID == user.ID {
			return false
		}
	}
	return !m.matches.InMatch(user)
}

// Invite responds to the interaction with an invitation embed and arms the
// expiry timer.
func (m *InviteManager) Invite(ctx context.Context, ix *discord.Interaction, from, to *discord.User, match Match) {
	m.mu.Lock()
	if !m.canInvite(from) {
		m.mu.Unlock()
		m.replyEphemeral(ctx, ix, "**ERROR!** You can't start a new game.")
		return
	}
	if !m.canInvite(to) {
		m.mu.Unlock()
		m.replyEphemeral(ctx, ix, fmt.Sprintf("**ERROR!** You can't currently invite %s.", to.Mention()))
		return
	}

	inv := &Invite{
		From:      from,
		To:        to,
		Match:     match,
		channelID: ix.ChannelID,
		token:     ix.Token,
	}
	m.invites = append(m.invites, inv)
	m.mu.Unlock()

	err := m.client.Respond(ctx, ix, &discord.InteractionResponse{
		Type: discord.ResponseTypeChannelMessage,
		Data: &discord.ResponseData{
			Embeds: []discord.Embed{{
				Title:       fmt.Sprintf("%s, %s has invited you to play %s!", to.Username, from.Username, match.Name()),
				Description: "Will you accept the challenge?",
				Footer:      &discord.EmbedFooter{Text: fmt.Sprintf("This invitation will expire in %d seconds.", int(InviteTimeout.Seconds()))},
			}},
			Components: []discord.Component{discord.ActionRow(
				discord.Button(discord.ButtonStyleSuccess, "game:invite:accept", "Yes"),
				discord.Button(discord.ButtonStyleDanger, "game:invite:deny", "No"),
			)},
		},
	})
	if err != nil {
		m.logger.Error("failed to send game invite", "error", err)
		m.remove(inv)
		return
	}

	inv.timer = time.AfterFunc(InviteTimeout, func() {
		m.Cancel(inv)
	})
}

// Cancel withdraws an invitation and deletes its message.
func (m *InviteManager) Cancel(inv *Invite) {
	if !m.remove(inv) {
		return
	}
	if inv.timer != nil {
		inv.timer.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.client.DeleteResponse(ctx, m.appID, inv.token); err != nil {
		m.logger.Debug("failed to delete invite message", "error", err)
	}
}

func (m *InviteManager) remove(inv *Invite) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, other := range m.invites {
		if other == inv {
			m.invites = append(m.invites[:i], m.invites[i+1:]...)
			return true
		}
	}
	return false
}

// Respond resolves an invite button press. Only the invitee may accept;
// either party may deny.
func (m *InviteManager) Respond(ctx context.Context, ix *discord.Interaction, user *discord.User, accept bool) {
	m.mu.Lock()
	var inv *Invite
	for _, other := range m.invites {
		if other.From.ID == user.ID || other.To.ID == user.ID {
			inv = other
			break
		}
	}
	m.mu.Unlock()

	if inv == nil {
		m.replyEphemeral(ctx, ix, "**ERROR!** That's not for you to decide.")
		return
	}

	if !accept {
		m.Cancel(inv)
		return
	}

	if user.ID != inv.To.ID {
		m.replyEphemeral(ctx, ix, "**ERROR!** That's not for you to decide.")
		return
	}

	m.Cancel(inv)
	err := m.client.Respond(ctx, ix, &discord.InteractionResponse{Type: discord.ResponseTypeDeferredUpdate})
	if err != nil {
		m.logger.Debug("failed to acknowledge invite accept", "error", err)
	}
	if err := m.matches.Start(ctx, inv.Match, inv.channelID); err != nil {
		m.logger.Error("failed to start match", "game", inv.Match.Name(), "error", err)
	}
}

func (m *InviteManager) replyEphemeral(ctx context.Context, ix *discord.Interaction, content string) {
	err := m.client.Respond(ctx, ix, &discord.InteractionResponse{
		Type: discord.ResponseTypeChannelMessage,
		Data: &discord.ResponseData{Content: content, Flags: discord.ResponseFlagEphemeral},
	})
	if err != nil {
		m.logger.Error("failed to send invite reply", "error", err)
	}
}
