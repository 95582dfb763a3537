// Package store implements the client's only local persistence: a small
// key-value cache for the auth credential, backed by SQLite (pure Go driver)
// through GORM. Everything else the app shows is owned by the backend and
// cached in memory for a single render cycle at most.
package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/opentelemetry/tracing"
)

// keyAuthToken is the row key under which the bearer credential is cached.
const keyAuthToken = "auth_token"

// Credential is one cached key-value entry.
type Credential struct {
	Key       string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Value     string    `gorm:"type:TEXT NOT NULL"`
	UpdatedAt time.Time `gorm:"type:DATETIME NOT NULL"`
}

// TableName implements the GORM tabler interface.
func (Credential) TableName() string { return "credentials" }

// CredentialStore persists the bearer credential across launches and
// implements api.CredentialSource.
type CredentialStore struct {
	db *gorm.DB
}

// Open opens (or creates) the cache database, applies PRAGMAs, and migrates
// the schema.
func Open(path string) (*CredentialStore, error) {
	// Fail early if parent directory does not exist (instead of sqlite
	// "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Credential{}); err != nil {
		return nil, err
	}
	return &CredentialStore{db: db}, nil
}

// NewWithDB wraps an already-open handle (tests).
func NewWithDB(db *gorm.DB) (*CredentialStore, error) {
	if err := db.AutoMigrate(&Credential{}); err != nil {
		return nil, err
	}
	return &CredentialStore{db: db}, nil
}

// SaveToken upserts the bearer credential.
func (s *CredentialStore) SaveToken(ctx context.Context, token string) error {
	rec := Credential{Key: keyAuthToken, Value: token, UpdatedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&rec).Error
}

// Token returns the cached credential, or "" when none is stored.
func (s *CredentialStore) Token(ctx context.Context) (string, error) {
	var rec Credential
	err := s.db.WithContext(ctx).Where("key = ?", keyAuthToken).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return rec.Value, nil
}

// Clear removes the cached credential. Clearing an absent credential is not
// an error.
func (s *CredentialStore) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).
		Where("key = ?", keyAuthToken).
		Delete(&Credential{}).Error
}

// Close releases the underlying database handle.
func (s *CredentialStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
