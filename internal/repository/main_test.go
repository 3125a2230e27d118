package repository

import (
	"context"
	"testing"
	"time"

	"inkd/internal/database"
	"inkd/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB opens a private in-memory SQLite database with every table migrated.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), database.GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return gormDB, mock
}

func seedUser(t *testing.T, db *gorm.DB, id string, mutate func(u *models.User)) *models.User {
	t.Helper()
	u := &models.User{
		ID:        id,
		Email:     id + "@example.com",
		Name:      models.StringPtr("Artist " + id),
		Handle:    models.StringPtr(id),
		Styles:    []string{},
		Locations: []string{},
		Links:     map[string]string{},
		CreatedAt: time.Now().UTC(),
	}
	if mutate != nil {
		mutate(u)
	}
	require.NoError(t, NewUserRepository(db, nil).Create(context.Background(), u))
	return u
}
