package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"secure-mail-digest-go/internal/config"
	"secure-mail-digest-go/internal/model"
)

// DB is the GORM-backed Store implementation.
type DB struct {
	db *gorm.DB
}

// Open connects to the configured database, runs migrations, and returns the
// store. The sqlite driver is the embedded default; mysql is selected via
// config for shared deployments.
func Open(cfg config.DatabaseConfig) (*DB, error) {
	gormLogger := logger.New(
		logrus.StandardLogger(),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.GetDSN())
	case "sqlite", "":
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}

	if cfg.Driver == "mysql" {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	} else {
		// sqlite allows one writer at a time, and an in-memory database only
		// exists on the connection that created it.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := runMigrations(db); err != nil {
		return nil, err
	}

	logrus.Info("Database initialized successfully")
	return &DB{db: db}, nil
}

func runMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.SummaryRecord{}, &model.ProcessedMessage{}, &model.Checkpoint{}); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	return nil
}

// IsProcessed checks whether a message id has already been handled.
func (s *DB) IsProcessed(messageID string) (bool, error) {
	var processed model.ProcessedMessage
	result := s.db.Where("message_id = ?", messageID).First(&processed)

	if result.Error == nil {
		return true, nil
	}
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("database error checking processed message: %w", result.Error)
}

// MarkProcessed records a message id as handled. Marking the same id twice is
// a no-op, which keeps the call safe under reconciliation.
func (s *DB) MarkProcessed(messageID string) error {
	processed := model.ProcessedMessage{
		MessageID:   messageID,
		ProcessedAt: time.Now(),
	}

	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&processed)
	if result.Error != nil {
		return fmt.Errorf("failed to mark message as processed: %w", result.Error)
	}
	return nil
}

// CountProcessed returns the number of processed-message marks.
func (s *DB) CountProcessed() (int64, error) {
	var count int64
	if err := s.db.Model(&model.ProcessedMessage{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count processed messages: %w", err)
	}
	return count, nil
}

// LastCheckpoint returns the folder's checkpoint and whether one exists yet.
func (s *DB) LastCheckpoint(folder string) (time.Time, bool, error) {
	var cp model.Checkpoint
	result := s.db.Where("folder = ?", folder).First(&cp)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if result.Error != nil {
		return time.Time{}, false, fmt.Errorf("database error loading checkpoint: %w", result.Error)
	}
	return cp.LastSeen, true, nil
}

// AdvanceCheckpoint moves the folder's checkpoint forward to seen. A value at
// or before the stored checkpoint leaves it unchanged.
func (s *DB) AdvanceCheckpoint(folder string, seen time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var cp model.Checkpoint
		err := tx.Where("folder = ?", folder).First(&cp).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			cp = model.Checkpoint{Folder: folder, LastSeen: seen, UpdatedAt: time.Now()}
			if err := tx.Create(&cp).Error; err != nil {
				return fmt.Errorf("failed to create checkpoint: %w", err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("database error loading checkpoint: %w", err)
		}

		if !seen.After(cp.LastSeen) {
			return nil
		}

		cp.LastSeen = seen
		cp.UpdatedAt = time.Now()
		if err := tx.Save(&cp).Error; err != nil {
			return fmt.Errorf("failed to advance checkpoint: %w", err)
		}
		return nil
	})
}

// AppendSummary appends one record to the summary history.
func (s *DB) AppendSummary(rec *model.SummaryRecord) error {
	if err := s.db.Create(rec).Error; err != nil {
		return fmt.Errorf("failed to append summary record: %w", err)
	}
	return nil
}

// History returns a page of summary records, newest first, along with the
// total record count. Page defaults to 1; limit defaults to 50, capped at 100.
func (s *DB) History(page, limit int) ([]model.SummaryRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	var total int64
	if err := s.db.Model(&model.SummaryRecord{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count summary records: %w", err)
	}

	var records []model.SummaryRecord
	err := s.db.
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load summary records: %w", err)
	}

	return records, total, nil
}

// GetSummary loads one summary record by primary key. A missing id returns
// gorm.ErrRecordNotFound wrapped for the caller to test with errors.Is.
func (s *DB) GetSummary(id uint) (*model.SummaryRecord, error) {
	var rec model.SummaryRecord
	if err := s.db.First(&rec, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load summary record %d: %w", id, err)
	}
	return &rec, nil
}

// CommitSummary writes the summary record and the processed mark atomically.
// If either write fails, neither is kept.
func (s *DB) CommitSummary(rec *model.SummaryRecord) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("failed to append summary record: %w", err)
		}

		processed := model.ProcessedMessage{
			MessageID:   rec.MessageID,
			ProcessedAt: time.Now(),
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&processed).Error; err != nil {
			return fmt.Errorf("failed to mark message as processed: %w", err)
		}
		return nil
	})
}

// Reconcile rebuilds processed marks for summary records that lack one and
// returns how many were repaired. Processed ids without a summary record are
// legitimate (explicitly skipped messages) and are left alone.
func (s *DB) Reconcile() (int, error) {
	var orphans []model.SummaryRecord
	err := s.db.
		Where("message_id NOT IN (?)", s.db.Model(&model.ProcessedMessage{}).Select("message_id")).
		Find(&orphans).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find unmarked summary records: %w", err)
	}

	for _, rec := range orphans {
		processed := model.ProcessedMessage{
			MessageID:   rec.MessageID,
			ProcessedAt: rec.CreatedAt,
		}
		result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&processed)
		if result.Error != nil {
			return 0, fmt.Errorf("failed to rebuild processed mark for %s: %w", rec.MessageID, result.Error)
		}
	}

	if len(orphans) > 0 {
		logrus.Warnf("Reconciled %d summary records that were missing processed marks", len(orphans))
	}
	return len(orphans), nil
}

// Ping verifies the database connection is alive.
func (s *DB) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *DB) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	return sqlDB.Close()
}
