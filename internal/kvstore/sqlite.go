package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLite stores documents in a single table, one row per key, with the
// envelope version as the optimistic-concurrency column.
type SQLite struct {
	db *gorm.DB
}

type documentRow struct {
	Key       string `gorm:"primaryKey;column:key"`
	Version   int64  `gorm:"column:version"`
	UpdatedAt int64  `gorm:"column:updated_at"`
	Data      []byte `gorm:"column:data"`
}

func (documentRow) TableName() string { return "documents" }

func NewSQLite(dsn string) (*SQLite, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("kvstore: open sqlite %s: %w", dsn, err)
	}
	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, fmt.Errorf("kvstore: migrate: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(key string) (Document, bool, error) {
	var row documentRow
	err := s.db.First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return Document{Version: row.Version, UpdatedAt: row.UpdatedAt, Data: row.Data}, true, nil
}

func (s *SQLite) Put(key string, data json.RawMessage, nowMillis int64) (Document, error) {
	var doc Document
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var row documentRow
		exists := true
		err := tx.First(&row, "key = ?", key).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = documentRow{Key: key}
			exists = false
		case err != nil:
			return err
		}
		row.Version++
		row.UpdatedAt = nowMillis
		row.Data = data
		if err := saveRow(tx, &row, exists); err != nil {
			return err
		}
		doc = Document{Version: row.Version, UpdatedAt: row.UpdatedAt, Data: row.Data}
		return nil
	})
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return doc, nil
}

func (s *SQLite) CompareAndPut(key string, data json.RawMessage, expectedVersion int64, nowMillis int64) (Document, error) {
	var doc Document
	conflict := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var row documentRow
		exists := true
		err := tx.First(&row, "key = ?", key).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = documentRow{Key: key}
			exists = false
		case err != nil:
			return err
		}
		if row.Version != expectedVersion {
			conflict = true
			return nil
		}
		row.Version = expectedVersion + 1
		row.UpdatedAt = nowMillis
		row.Data = data
		if err := saveRow(tx, &row, exists); err != nil {
			return err
		}
		doc = Document{Version: row.Version, UpdatedAt: row.UpdatedAt, Data: row.Data}
		return nil
	})
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if conflict {
		return Document{}, ErrConflict
	}
	return doc, nil
}

// saveRow picks Create or Update explicitly; gorm's Save only updates when
// the primary key is non-zero, which a string key always is.
func saveRow(tx *gorm.DB, row *documentRow, exists bool) error {
	if exists {
		return tx.Model(&documentRow{}).Where("key = ?", row.Key).Updates(map[string]any{
			"version":    row.Version,
			"updated_at": row.UpdatedAt,
			"data":       row.Data,
		}).Error
	}
	return tx.Create(row).Error
}

func (s *SQLite) Keys() ([]string, error) {
	var keys []string
	if err := s.db.Model(&documentRow{}).Order("key").Pluck("key", &keys).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return keys, nil
}

func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
