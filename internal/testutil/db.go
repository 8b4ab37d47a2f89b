package testutil

import (
	"testing"
	"time"

	"bboard/internal/database"
	"bboard/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory sqlite database with the full schema.
// The pool is pinned to one connection so every query sees the same memory database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// HashPassword hashes with the minimum cost to keep tests fast.
func HashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

// CreateUser inserts an active, activated user whose password is "secret-pass-42".
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := models.NewManagedUser(username, username+"@example.com", HashPassword(t, "secret-pass-42"))
	u.FirstName = "First"
	u.LastName = "Last"
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateRubrics inserts one top-level rubric with one sub-rubric.
func CreateRubrics(t *testing.T, db *gorm.DB, parentName, childName string) (parent, child *models.Rubric) {
	t.Helper()
	parent = &models.Rubric{Name: parentName}
	require.NoError(t, db.Create(parent).Error)
	child = &models.Rubric{Name: childName, SuperRubricID: &parent.ID}
	require.NoError(t, db.Create(child).Error)
	child.SuperRubric = parent
	return parent, child
}

// CreateAd inserts an active ad owned by author in rubric.
func CreateAd(t *testing.T, db *gorm.DB, author *models.User, rubric *models.Rubric, title string) *models.Ad {
	t.Helper()
	ad := &models.Ad{
		RubricID: rubric.ID,
		AuthorID: author.ID,
		Title:    title,
		Content:  "Content of " + title,
		Price:    100,
		Contacts: "phone 555-0100",
		IsActive: true,
	}
	require.NoError(t, db.Omit("Rubric", "Author").Create(ad).Error)
	return ad
}

// CreateAdAt inserts an ad with an explicit creation time.
func CreateAdAt(t *testing.T, db *gorm.DB, author *models.User, rubric *models.Rubric, title string, at time.Time) *models.Ad {
	t.Helper()
	ad := &models.Ad{
		RubricID:  rubric.ID,
		AuthorID:  author.ID,
		Title:     title,
		Content:   "Content of " + title,
		Contacts:  "phone 555-0100",
		IsActive:  true,
		CreatedAt: at,
	}
	require.NoError(t, db.Omit("Rubric", "Author").Create(ad).Error)
	return ad
}
