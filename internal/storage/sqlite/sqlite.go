// Package sqlite implements storage.KeyValue on a SQLite database through gorm.
package sqlite

import (
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/vault/internal/storage"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Entry is one stored key.
type Entry struct {
	Key       string `gorm:"primaryKey"`
	Value     []byte
	UpdatedAt time.Time
}

// TableName keeps the table name stable regardless of gorm's naming strategy.
func (Entry) TableName() string {
	return "vault_entries"
}

// Database is a gorm-backed key-value store.
type Database struct {
	db *gorm.DB
}

// Open opens the database at dbPath, creating the schema if needed.
// Use ":memory:" for a throwaway database.
func Open(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Database{db: db}, nil
}

// Close releases the underlying connection pool.
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Get implements storage.KeyValue.
func (d *Database) Get(key string) ([]byte, bool, error) {
	var e Entry
	err := d.db.Where(byKey(key)).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if e.Value == nil {
		e.Value = []byte{}
	}
	return e.Value, true, nil
}

// Set implements storage.KeyValue as an upsert.
func (d *Database) Set(key string, value []byte) error {
	e := Entry{Key: key, Value: value, UpdatedAt: time.Now()}
	err := d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// Delete implements storage.KeyValue.
func (d *Database) Delete(key string) error {
	if err := d.db.Where(byKey(key)).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// byKey builds a quoted key condition; key is an SQL keyword.
func byKey(key string) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: "key"}, Value: key}
}

var _ storage.KeyValue = (*Database)(nil)
