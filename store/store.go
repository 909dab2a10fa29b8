package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SlagHoedje/sibas/models"
	slogGorm "github.com/orandin/slog-gorm"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrMessageNotFound is returned by reaction mutations that target a message
// which has never been indexed.
var ErrMessageNotFound = errors.New("message not found")

// Store wraps the database with the write and query operations the indexer
// and the command layer need. All operations run in short transactions; no
// caller holds a store-wide lock across network calls.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "store"),
	}
}

// SetupDatabase opens a sqlite:// or postgres:// database, applies
// pragmas/pool limits, and migrates the schema.
func SetupDatabase(dbURL string, maxConns int) (*gorm.DB, error) {
	var dialector gorm.Dialector
	isSqlite := false

	if strings.HasPrefix(dbURL, "sqlite://") {
		sqlitePath := dbURL[len("sqlite://"):]
		if !strings.HasPrefix(sqlitePath, "file:") {
			if err := os.MkdirAll(filepath.Dir(sqlitePath), os.ModePerm); err != nil {
				return nil, err
			}
		}
		dialector = sqlite.Open(sqlitePath)
		isSqlite = true
		maxConns = 1
	} else if strings.HasPrefix(dbURL, "postgresql://") || strings.HasPrefix(dbURL, "postgres://") {
		dialector = postgres.Open(dbURL)
	} else {
		return nil, fmt.Errorf("unsupported database URL scheme: must start with sqlite://, postgres://, or postgresql://")
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 slogGorm.New(slogGorm.SetLogLevel(slogGorm.ErrorLogType, slog.LevelDebug)),
	})
	if err != nil {
		return nil, err
	}

	sqldb, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(maxConns)
	sqldb.SetMaxIdleConns(maxConns)
	sqldb.SetConnMaxIdleTime(time.Hour)

	if isSqlite {
		db.Exec("PRAGMA journal_mode=WAL;")
		db.Exec("PRAGMA synchronous=NORMAL;")
		db.Exec("PRAGMA busy_timeout=10000;")
	}

	if err := db.AutoMigrate(&models.Channel{}, &models.Message{}, &models.Reaction{}); err != nil {
		return nil, err
	}

	return db, nil
}

// GetOrCreateChannel resolves the stored channel row, creating it (with a
// nil cursor) on first sight.
func (s *Store) GetOrCreateChannel(ctx context.Context, id, guildID uint64) (*models.Channel, error) {
	channel := models.Channel{ID: id, GuildID: guildID}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&channel).Error; err != nil {
		return nil, fmt.Errorf("creating channel row: %w", err)
	}

	if err := s.db.WithContext(ctx).First(&channel, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("loading channel row: %w", err)
	}
	return &channel, nil
}

func (s *Store) GetChannel(ctx context.Context, id uint64) (*models.Channel, error) {
	var channel models.Channel
	if err := s.db.WithContext(ctx).First(&channel, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &channel, nil
}

// CommitChunk persists one chunk of backfilled history in a single
// transaction: insert-or-ignore every message and reaction row, then advance
// the channel cursor to the highest message ID in the chunk. The cursor
// update is guarded so it never moves backward.
func (s *Store) CommitChunk(ctx context.Context, channelID uint64, messages []models.Message, reactions []models.Reaction, cursor uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(messages) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				CreateInBatches(messages, 100).Error; err != nil {
				return fmt.Errorf("inserting messages: %w", err)
			}
		}
		if len(reactions) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				CreateInBatches(reactions, 100).Error; err != nil {
				return fmt.Errorf("inserting reactions: %w", err)
			}
		}
		res := tx.Model(&models.Channel{}).
			Where("id = ? AND (last_message_id IS NULL OR last_message_id < ?)", channelID, cursor).
			Update("last_message_id", cursor)
		if res.Error != nil {
			return fmt.Errorf("advancing cursor: %w", res.Error)
		}
		return nil
	})
}

// ClearAll wipes every indexed message and reaction and resets all channel
// cursors, so the next pass backfills from scratch.
func (s *Store) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM reactions").Error; err != nil {
			return fmt.Errorf("clearing reactions: %w", err)
		}
		if err := tx.Exec("DELETE FROM messages").Error; err != nil {
			return fmt.Errorf("clearing messages: %w", err)
		}
		if err := tx.Model(&models.Channel{}).
			Where("last_message_id IS NOT NULL").
			Update("last_message_id", nil).Error; err != nil {
			return fmt.Errorf("resetting cursors: %w", err)
		}
		return nil
	})
}
