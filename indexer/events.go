package indexer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SlagHoedje/sibas/discord"
	"github.com/SlagHoedje/sibas/store"
)

// Events applies live gateway events to the store, keeping it consistent
// between indexing passes. Every handler is a direct single-message
// mutation; no locking is needed because the gateway serializes events per
// channel, and the bulk path's insert-or-ignore semantics make the
// remaining races commutative.
type Events struct {
	store   *store.Store
	indexer *Indexer
	logger  *slog.Logger

	// timeout bounds each store mutation; handlers run on the gateway read
	// loop and must not wedge it.
	timeout time.Duration
}

func NewEvents(st *store.Store, ix *Indexer) *Events {
	return &Events{
		store:   st,
		indexer: ix,
		logger:  slog.Default().With("component", "events"),
		timeout: 10 * time.Second,
	}
}

// Callbacks wires the handlers into a gateway callback set.
func (e *Events) Callbacks() *discord.GatewayCallbacks {
	return &discord.GatewayCallbacks{
		MessageCreate:       e.HandleMessageCreate,
		MessageUpdate:       e.HandleMessageUpdate,
		MessageDelete:       e.HandleMessageDelete,
		MessageDeleteBulk:   e.HandleMessageDeleteBulk,
		ReactionAdd:         e.HandleReactionAdd,
		ReactionRemove:      e.HandleReactionRemove,
		ReactionRemoveAll:   e.HandleReactionRemoveAll,
		ReactionRemoveEmoji: e.HandleReactionRemoveEmoji,
	}
}

func (e *Events) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), e.timeout)
}

// HandleMessageCreate schedules the message's channel for the next periodic
// sweep rather than writing the row directly; live traffic is batched into
// catch-up passes.
func (e *Events) HandleMessageCreate(msg *discord.Message) {
	if msg.GuildID == 0 {
		return
	}
	liveEventsHandled.WithLabelValues("message_create").Inc()
	e.indexer.Schedule(uint64(msg.ChannelID), uint64(msg.GuildID))
}

func (e *Events) HandleMessageUpdate(msg *discord.Message) {
	liveEventsHandled.WithLabelValues("message_update").Inc()
	ctx, cancel := e.ctx()
	defer cancel()

	if err := e.store.UpdateMessageContents(ctx, uint64(msg.ID), msg.Content); err != nil {
		e.logger.Error("failed to apply message update", "message", msg.ID, "error", err)
	}
}

func (e *Events) HandleMessageDelete(evt *discord.MessageDeleteEvent) {
	liveEventsHandled.WithLabelValues("message_delete").Inc()
	ctx, cancel := e.ctx()
	defer cancel()

	if err := e.store.DeleteMessage(ctx, uint64(evt.ID)); err != nil {
		e.logger.Error("failed to apply message delete", "message", evt.ID, "error", err)
	}
}

func (e *Events) HandleMessageDeleteBulk(evt *discord.MessageDeleteEvent) {
	liveEventsHandled.WithLabelValues("message_delete_bulk").Inc()
	ctx, cancel := e.ctx()
	defer cancel()

	ids := make([]uint64, len(evt.IDs))
	for i, id := range evt.IDs {
		ids[i] = uint64(id)
	}
	if err := e.store.DeleteMessages(ctx, ids); err != nil {
		e.logger.Error("failed to apply bulk delete", "channel", evt.ChannelID, "error", err)
	}
}

func (e *Events) HandleReactionAdd(evt *discord.ReactionEvent) {
	liveEventsHandled.WithLabelValues("reaction_add").Inc()
	ctx, cancel := e.ctx()
	defer cancel()

	err := e.store.AddReaction(ctx, uint64(evt.MessageID), emoteID(evt), evt.Emoji.Name)
	if err != nil && !errors.Is(err, store.ErrMessageNotFound) {
		e.logger.Error("failed to apply reaction add", "message", evt.MessageID, "error", err)
	}
}

func (e *Events) HandleReactionRemove(evt *discord.ReactionEvent) {
	liveEventsHandled.WithLabelValues("reaction_remove").Inc()
	ctx, cancel := e.ctx()
	defer cancel()

	if err := e.store.RemoveReaction(ctx, uint64(evt.MessageID), emoteID(evt), evt.Emoji.Name); err != nil {
		e.logger.Error("failed to apply reaction remove", "message", evt.MessageID, "error", err)
	}
}

func (e *Events) HandleReactionRemoveAll(evt *discord.ReactionEvent) {
	liveEventsHandled.WithLabelValues("reaction_remove_all").Inc()
	ctx, cancel := e.ctx()
	defer cancel()

	if err := e.store.ClearReactions(ctx, uint64(evt.MessageID)); err != nil {
		e.logger.Error("failed to clear reactions", "message", evt.MessageID, "error", err)
	}
}

func (e *Events) HandleReactionRemoveEmoji(evt *discord.ReactionEvent) {
	liveEventsHandled.WithLabelValues("reaction_remove_emoji").Inc()
	ctx, cancel := e.ctx()
	defer cancel()

	if err := e.store.RemoveReactionEmote(ctx, uint64(evt.MessageID), emoteID(evt), evt.Emoji.Name); err != nil {
		e.logger.Error("failed to remove reaction emote", "message", evt.MessageID, "error", err)
	}
}

func emoteID(evt *discord.ReactionEvent) *uint64 {
	if evt.Emoji.ID == nil {
		return nil
	}
	id := uint64(*evt.Emoji.ID)
	return &id
}
