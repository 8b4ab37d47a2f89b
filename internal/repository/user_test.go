package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"bboard/internal/models"
	"bboard/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
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

func appCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	return appErr.Code
}

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name         string
		userID       uint
		mockBehavior func()
		wantUsername string
		wantCode     string
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "username", "email"}).
					AddRow(1, "testuser", "test@example.com")
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(1, 1).
					WillReturnRows(rows)
			},
			wantUsername: "testuser",
		},
		{
			name:   "Not Found",
			userID: 99,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(99, 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
			wantCode: models.CodeNotFound,
		},
		{
			name:   "Database Error",
			userID: 2,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
					WillReturnError(errors.New("connection reset"))
			},
			wantCode: models.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, appCode(t, err))
			} else if assert.NoError(t, err) {
				assert.Equal(t, tt.wantUsername, user.Username)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_Create_UniqueViolation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), models.NewRegisteredUser("bob", "bob@example.com", "", "", "hash", true))

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)
	assert.Contains(t, appErr.Fields, "email")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_SQLite(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := models.NewRegisteredUser("carol", "carol@example.com", "Carol", "King", "hash", false)
	require.NoError(t, repo.Create(ctx, u))
	require.NotZero(t, u.ID)

	dup := models.NewRegisteredUser("carol", "other@example.com", "", "", "hash", true)
	err := repo.Create(ctx, dup)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "username")

	got, err := repo.GetByUsername(ctx, "carol")
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.False(t, got.IsActivated)
	assert.False(t, got.SendMessages)

	taken, err := repo.UsernameTaken(ctx, "CAROL", 0)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.EmailTaken(ctx, "carol@example.com", u.ID)
	require.NoError(t, err)
	assert.False(t, taken, "own email must not count as taken")

	require.NoError(t, repo.MarkActivated(ctx, u.ID))
	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.True(t, got.IsActivated)

	active, err := repo.ListActiveByEmail(ctx, "Carol@Example.com")
	require.NoError(t, err)
	assert.Len(t, active, 1)

	assert.Equal(t, models.CodeNotFound, appCode(t, repo.SetPassword(ctx, 999, "x")))
	_, err = repo.GetByUsername(ctx, "nobody")
	assert.Equal(t, models.CodeNotFound, appCode(t, err))
}

func TestUserRepository_Update(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	testutil.CreateUser(t, db, "bob")

	alice.FirstName = "Alicia"
	alice.SendMessages = false
	require.NoError(t, repo.Update(ctx, alice))

	got, err := repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", got.FirstName)
	assert.False(t, got.SendMessages)

	alice.Email = "bob@example.com"
	err = repo.Update(ctx, alice)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "email")
}

func TestUserRepository_ListByActivation(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	old := models.NewRegisteredUser("old", "old@example.com", "", "", "hash", true)
	old.DateJoined = time.Now().Add(-10 * 24 * time.Hour)
	fresh := models.NewRegisteredUser("fresh", "fresh@example.com", "", "", "hash", true)
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.Create(ctx, fresh))
	testutil.CreateUser(t, db, "done")

	cutoff := time.Now().Add(-3 * 24 * time.Hour)
	stale, err := repo.ListByActivation(ctx, false, &cutoff)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "old", stale[0].Username)

	pending, err := repo.ListByActivation(ctx, false, nil)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	activated, err := repo.ListByActivation(ctx, true, nil)
	require.NoError(t, err)
	require.Len(t, activated, 1)
	assert.Equal(t, "done", activated[0].Username)
}

func TestUserRepository_DeleteWithAds(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner")
	other := testutil.CreateUser(t, db, "other")
	_, sub := testutil.CreateRubrics(t, db, "Realty", "Flats")

	ad1 := testutil.CreateAd(t, db, owner, sub, "Flat one")
	ad2 := testutil.CreateAd(t, db, owner, sub, "Flat two")
	kept := testutil.CreateAd(t, db, other, sub, "Not mine")
	require.NoError(t, db.Model(ad1).Update("image", "main1.jpg").Error)
	require.NoError(t, db.Create(&models.AdditionalImage{AdID: ad1.ID, Image: "x1.png"}).Error)
	require.NoError(t, db.Create(&models.AdditionalImage{AdID: ad2.ID, Image: "x2.png"}).Error)
	require.NoError(t, db.Create(&models.AdditionalImage{AdID: kept.ID, Image: "keep.png"}).Error)
	require.NoError(t, db.Create(&models.Comment{AdID: ad1.ID, Author: "guest", Content: "hi", IsActive: true}).Error)

	files, err := repo.DeleteWithAds(ctx, owner.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main1.jpg", "x1.png", "x2.png"}, files)

	var count int64
	db.Model(&models.Ad{}).Where("author_id = ?", owner.ID).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.AdditionalImage{}).Where("ad_id IN ?", []uint{ad1.ID, ad2.ID}).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.Comment{}).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.User{}).Where("id = ?", owner.ID).Count(&count)
	assert.Zero(t, count)

	db.Model(&models.AdditionalImage{}).Count(&count)
	assert.Equal(t, int64(1), count, "other users' images stay")

	_, err = repo.DeleteWithAds(ctx, owner.ID)
	assert.Equal(t, models.CodeNotFound, appCode(t, err))
}
