// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/weiawesome/wes-io-dm/internal/domain"
	"github.com/weiawesome/wes-io-dm/pkg/database"
)

// NewDB opens an isolated in-memory sqlite database with the schema migrated.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		FilePath:     fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		LogLevel:     "silent",
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, &domain.MessageModel{}, &domain.UserModel{}))

	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// SeedUsers inserts a user per id with the id as username.
func SeedUsers(t *testing.T, db *gorm.DB, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, db.Create(&domain.UserModel{ID: id, Username: id, FullName: "User " + id}).Error)
	}
}
