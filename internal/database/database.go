package database

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/entities"
)

type Database struct {
	DB *gorm.DB
}

// Options tune how the connection is opened.
type Options struct {
	// LogLevel is one of silent, error, warn, info. Defaults to warn.
	LogLevel string
}

func parseLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// NewDatabase opens (creating if needed) the sqlite database at dbPath and
// migrates the schema.
func NewDatabase(dbPath string, opts ...Options) (*Database, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(parseLogLevel(o.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.Book{},
		&entities.AuditEvent{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := backfillSearchText(db); err != nil {
		return nil, fmt.Errorf("failed to backfill search text: %w", err)
	}

	return &Database{DB: db}, nil
}

// backfillSearchText fills search_text for books stored before the column
// existed or written without going through the books repository.
func backfillSearchText(db *gorm.DB) error {
	var batch []entities.Book
	return db.Where("search_text = '' OR search_text IS NULL").
		FindInBatches(&batch, 500, func(_ *gorm.DB, _ int) error {
			for i := range batch {
				batch[i].RefreshSearchText()
				err := db.Model(&batch[i]).UpdateColumn("search_text", batch[i].SearchText).Error
				if err != nil {
					return err
				}
			}
			return nil
		}).Error
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the underlying connection.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
