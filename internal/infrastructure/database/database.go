package database

import (
	"papertrade-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from DSN (Postgres or pooler URL). Driver errors are
// translated so unique violations surface as gorm.ErrDuplicatedKey.
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") when using connection poolers (e.g. PgBouncer).
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{TranslateError: true})
}

// OpenSQLite opens the embedded fallback store. SQLite serialises writers, so
// the pool is capped at one connection.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Connect picks postgres when dsn is set, else sqlite at sqlitePath.
func Connect(dsn, sqlitePath string) (*gorm.DB, error) {
	if dsn != "" {
		return Open(dsn)
	}
	return OpenSQLite(sqlitePath)
}

// AutoMigrate runs migrations for accounts, holdings, ledger and watchlist.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(domain.Models()...)
}
