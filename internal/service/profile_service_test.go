package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"bboard/internal/models"
	"bboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileService_UpdateInfo(t *testing.T) {
	env := newTestEnv(t)
	svc := NewProfileService(env.users, env.store)
	ctx := context.Background()
	alice := testutil.CreateUser(t, env.db, "alice")
	testutil.CreateUser(t, env.db, "bob")

	t.Run("keeps own username and email", func(t *testing.T) {
		u, err := svc.UpdateInfo(ctx, alice.ID, ProfileInput{
			Username:     "alice",
			Email:        "alice@example.com",
			FirstName:    "Alice",
			LastName:     "Liddell",
			SendMessages: false,
		})
		require.NoError(t, err)
		assert.Equal(t, "Liddell", u.LastName)

		stored, _ := env.users.GetByID(ctx, alice.ID)
		assert.False(t, stored.SendMessages)
		assert.Equal(t, "Alice", stored.FirstName)
	})

	t.Run("rejects another user's identity", func(t *testing.T) {
		_, err := svc.UpdateInfo(ctx, alice.ID, ProfileInput{Username: "bob", Email: "bob@example.com"})
		assertValidationError(t, err, "username", "email")
	})

	t.Run("email is mandatory", func(t *testing.T) {
		_, err := svc.UpdateInfo(ctx, alice.ID, ProfileInput{Username: "alice"})
		assertValidationError(t, err, "email")
	})
}

func TestProfileService_DeleteAccount_Cascades(t *testing.T) {
	env := newTestEnv(t)
	svc := NewProfileService(env.users, env.store)
	ctx := context.Background()

	owner := testutil.CreateUser(t, env.db, "owner")
	other := testutil.CreateUser(t, env.db, "other")
	_, sub := testutil.CreateRubrics(t, env.db, "Realty", "Flats")

	ad := testutil.CreateAd(t, env.db, owner, sub, "Flat for rent")
	require.NoError(t, env.db.Model(ad).Update("image", "main.jpg").Error)
	require.NoError(t, env.db.Create(&models.AdditionalImage{AdID: ad.ID, Image: "extra.jpg"}).Error)
	require.NoError(t, env.db.Create(&models.Comment{AdID: ad.ID, Author: "guest", Content: "hi", IsActive: true}).Error)
	kept := testutil.CreateAd(t, env.db, other, sub, "Other flat")

	for _, name := range []string{"main.jpg", "extra.jpg"} {
		require.NoError(t, env.store.Save(ctx, name, "image/jpeg", []byte("x")))
	}

	require.NoError(t, svc.DeleteAccount(ctx, owner.ID))

	var count int64
	env.db.Model(&models.User{}).Where("id = ?", owner.ID).Count(&count)
	assert.Zero(t, count)
	env.db.Model(&models.Ad{}).Where("author_id = ?", owner.ID).Count(&count)
	assert.Zero(t, count)
	env.db.Model(&models.AdditionalImage{}).Count(&count)
	assert.Zero(t, count)
	env.db.Model(&models.Comment{}).Count(&count)
	assert.Zero(t, count)

	for _, name := range []string{"main.jpg", "extra.jpg"} {
		_, err := os.Stat(filepath.Join(env.mediaDir, name))
		assert.True(t, os.IsNotExist(err), "%s should be removed", name)
	}

	_, err := env.ads.GetByID(ctx, kept.ID)
	assert.NoError(t, err, "other users' ads survive")

	assertCode(t, svc.DeleteAccount(ctx, owner.ID), models.CodeNotFound)
}
