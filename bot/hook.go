package bot

import (
	"context"
	"sync"

	"github.com/SlagHoedje/sibas/discord"
	"golang.org/x/time/rate"
)

// Hook manages the response lifecycle of one slash command invocation: the
// first write replies to the interaction, every later write edits that
// reply in place. Progress updates go through a rate limiter so long index
// passes don't hammer the edit endpoint.
type Hook struct {
	bot *Bot
	ix  *discord.Interaction

	mu           sync.Mutex
	acknowledged bool
	limiter      *rate.Limiter
}

func newHook(b *Bot, ix *discord.Interaction) *Hook {
	return &Hook{
		bot:     b,
		ix:      ix,
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
}

func (h *Hook) Interaction() *discord.Interaction { return h.ix }

// Defer acknowledges the interaction without content, buying the 15-minute
// followup window for slow queries.
func (h *Hook) Defer(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.acknowledged {
		return nil
	}
	h.acknowledged = true
	return h.bot.client.Respond(ctx, h.ix, &discord.InteractionResponse{
		Type: discord.ResponseTypeDeferred,
	})
}

// Message replies with plain text, or edits the existing reply.
func (h *Hook) Message(ctx context.Context, content string) error {
	return h.send(ctx, &discord.ResponseData{Content: content})
}

// Progress is Message for high-frequency status updates; excess updates are
// dropped.
func (h *Hook) Progress(ctx context.Context, content string) {
	if !h.limiter.Allow() {
		return
	}
	if err := h.Message(ctx, content); err != nil {
		h.bot.logger.Debug("failed to send progress update", "error", err)
	}
}

// Embeds replies with rich embeds, or edits them into the existing reply.
func (h *Hook) Embeds(ctx context.Context, embeds ...discord.Embed) error {
	return h.send(ctx, &discord.ResponseData{Embeds: embeds})
}

func (h *Hook) send(ctx context.Context, data *discord.ResponseData) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.acknowledged {
		return h.bot.client.EditResponse(ctx, h.bot.appID, h.ix.Token, data)
	}
	h.acknowledged = true
	return h.bot.client.Respond(ctx, h.ix, &discord.InteractionResponse{
		Type: discord.ResponseTypeChannelMessage,
		Data: data,
	})
}

func (h *Hook) ephemeral(ctx context.Context, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.acknowledged {
		return
	}
	h.acknowledged = true
	err := h.bot.client.Respond(ctx, h.ix, &discord.InteractionResponse{
		Type: discord.ResponseTypeChannelMessage,
		Data: &discord.ResponseData{Content: content, Flags: discord.ResponseFlagEphemeral},
	})
	if err != nil {
		h.bot.logger.Error("failed to send ephemeral reply", "error", err)
	}
}
