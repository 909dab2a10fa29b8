package models

import (
	"time"
)

// Channel is a Discord text channel known to the indexer. A row is created
// lazily the first time a channel is indexed.
type Channel struct {
	ID      uint64 `gorm:"primarykey"`
	GuildID uint64 `gorm:"index"`

	// LastMessageID is the indexing cursor: the highest message ID known to
	// be fully persisted for this channel. Nil before the first completed
	// chunk. Only ever moves forward.
	LastMessageID *uint64
}

// Message is a single indexed Discord message. The snowflake ID is globally
// unique and monotonically increasing with creation time, so it doubles as
// the ordering and cursor key.
type Message struct {
	ID        uint64 `gorm:"primarykey"`
	ChannelID uint64 `gorm:"index"`

	// AuthorID is nil for webhook/system messages that have no real author.
	AuthorID *uint64 `gorm:"index"`

	Contents  string
	Timestamp time.Time
}

// Reaction aggregates one emote on one message. Emote identity is the
// (Name, EmoteID) pair: custom emotes with the same display name but
// different IDs are distinct rows, unicode emoji have a nil EmoteID and are
// identified by name alone.
//
// SQL treats NULLs as distinct, so the unique index does not cover the
// nil-EmoteID rows; uniqueness for unicode emoji rests on the write paths
// (the find-then-increment in AddReaction and the cursor-guarded chunk
// commit), which never insert a second row for the same identity.
type Reaction struct {
	ID        uint    `gorm:"primarykey"`
	MessageID uint64  `gorm:"index;index:idx_reaction_identity,unique"`
	EmoteID   *uint64 `gorm:"index:idx_reaction_identity,unique"`
	Name      string  `gorm:"index:idx_reaction_identity,unique"`
	Count     int
}
