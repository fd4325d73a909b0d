package database

import (
	"testing"

	"papertrade-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestConnectFallsBackToSQLite(t *testing.T) {
	db, err := Connect("", ":memory:")
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	for _, m := range domain.Models() {
		assert.True(t, db.Migrator().HasTable(m))
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestOpenSQLiteTranslatesUniqueViolation(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	require.NoError(t, db.Create(&domain.Account{Username: "dup", PasswordHash: "x"}).Error)
	err = db.Create(&domain.Account{Username: "dup", PasswordHash: "y"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
