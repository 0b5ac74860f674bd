package repository

import (
	"fmt"
	"testing"
	"time"

	"skillswap/internal/database"
	"skillswap/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:repo_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type fixtures struct {
	alice, bob, carol      models.User
	javascript, photo, sql models.Skill
}

// seedFixtures creates three users. Alice offers JavaScript, Bob offers
// Photography and wants JavaScript, Carol is PRIVATE and offers SQL.
func seedFixtures(t *testing.T, db *gorm.DB) fixtures {
	t.Helper()
	f := fixtures{
		alice: models.User{Email: "Alice@Example.com", Password: "x", FirstName: "Alice", LastName: "Doe", Location: "San Francisco, CA", IsAvailable: true},
		bob:   models.User{Email: "bob@example.com", Password: "x", FirstName: "Bob", LastName: "Smith", Location: "New York, NY", IsAvailable: true},
		carol: models.User{Email: "carol@example.com", Password: "x", FirstName: "Carol", LastName: "Jones", Location: "Austin, TX", ProfileVisibility: models.VisibilityPrivate, IsAvailable: true},

		javascript: models.Skill{Name: "JavaScript", Category: "Programming", Description: "Modern JavaScript"},
		photo:      models.Skill{Name: "Photography", Category: "Creative", Description: "Camera basics"},
		sql:        models.Skill{Name: "SQL", Category: "Database", Description: "Relational queries"},
	}
	for _, u := range []*models.User{&f.alice, &f.bob, &f.carol} {
		require.NoError(t, db.Create(u).Error)
	}
	for _, s := range []*models.Skill{&f.javascript, &f.photo, &f.sql} {
		require.NoError(t, db.Create(s).Error)
	}
	links := []models.UserSkill{
		{UserID: f.alice.ID, SkillID: f.javascript.ID, SkillType: models.SkillOffered, Level: 4},
		{UserID: f.bob.ID, SkillID: f.photo.ID, SkillType: models.SkillOffered, Level: 3},
		{UserID: f.bob.ID, SkillID: f.javascript.ID, SkillType: models.SkillWanted, Level: 1},
		{UserID: f.carol.ID, SkillID: f.sql.ID, SkillType: models.SkillOffered, Level: 5},
	}
	require.NoError(t, db.Omit("Skill").Create(&links).Error)
	return f
}
