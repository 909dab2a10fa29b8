package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/SlagHoedje/sibas/models"
	"gorm.io/gorm"
)

// Live gateway mutations. These all touch a single message's rows and are
// naturally serialized by the event source, so they run outside the
// per-channel indexing lock.

// UpdateMessageContents applies a message edit. Editing a message that was
// never indexed is a no-op.
func (s *Store) UpdateMessageContents(ctx context.Context, id uint64, contents string) error {
	return s.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", id).
		Update("contents", contents).Error
}

// DeleteMessage removes a message and all of its reaction rows.
func (s *Store) DeleteMessage(ctx context.Context, id uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Message{}, "id = ?", id).Error
	})
}

// DeleteMessages removes a bulk-deleted set of messages and their reactions.
func (s *Store) DeleteMessages(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id IN ?", ids).Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Message{}, "id IN ?", ids).Error
	})
}

// emoteScope narrows a reaction query to one emote identity. A nil emote ID
// (unicode emoji) matches on name alone with an explicit IS NULL, since
// `emote_id = NULL` never matches.
func emoteScope(tx *gorm.DB, messageID uint64, emoteID *uint64, name string) *gorm.DB {
	q := tx.Where("message_id = ? AND name = ?", messageID, name)
	if emoteID != nil {
		return q.Where("emote_id = ?", *emoteID)
	}
	return q.Where("emote_id IS NULL")
}

// AddReaction increments the counter for (message, emote identity), creating
// the row with count 1 on first sight. Reactions to messages that were never
// indexed return ErrMessageNotFound.
func (s *Store) AddReaction(ctx context.Context, messageID uint64, emoteID *uint64, name string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reaction models.Reaction
		err := emoteScope(tx, messageID, emoteID, name).First(&reaction).Error
		if err == nil {
			return tx.Model(&reaction).Update("count", gorm.Expr("count + 1")).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var exists int64
		if err := tx.Model(&models.Message{}).Where("id = ?", messageID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("adding reaction to %d: %w", messageID, ErrMessageNotFound)
		}

		return tx.Create(&models.Reaction{
			MessageID: messageID,
			EmoteID:   emoteID,
			Name:      name,
			Count:     1,
		}).Error
	})
}

// RemoveReaction decrements the counter for (message, emote identity),
// deleting the row entirely when the count reaches zero. Removing an unknown
// reaction is a no-op.
func (s *Store) RemoveReaction(ctx context.Context, messageID uint64, emoteID *uint64, name string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reaction models.Reaction
		err := emoteScope(tx, messageID, emoteID, name).First(&reaction).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if reaction.Count <= 1 {
			return tx.Delete(&reaction).Error
		}
		return tx.Model(&reaction).Update("count", gorm.Expr("count - 1")).Error
	})
}

// RemoveReactionEmote deletes the row for one emote identity, regardless of
// count ("reaction remove emoji" gateway event).
func (s *Store) RemoveReactionEmote(ctx context.Context, messageID uint64, emoteID *uint64, name string) error {
	return emoteScope(s.db.WithContext(ctx), messageID, emoteID, name).
		Delete(&models.Reaction{}).Error
}

// ClearReactions deletes every reaction row of a message ("reaction remove
// all" gateway event).
func (s *Store) ClearReactions(ctx context.Context, messageID uint64) error {
	return s.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Delete(&models.Reaction{}).Error
}
