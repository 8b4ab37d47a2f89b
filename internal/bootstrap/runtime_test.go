package bootstrap

import (
	"testing"

	"bboard/internal/config"
	"bboard/internal/models"
	"bboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDevRootAdmin(t *testing.T) {
	cfg := &config.Config{
		Env:              "development",
		DevBootstrapRoot: true,
		DevRootUsername:  "root",
		DevRootEmail:     "Root@Example.com",
		DevRootPassword:  "change-me-please",
	}

	t.Run("skipped outside development", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		prod := *cfg
		prod.Env = "production"
		require.NoError(t, ensureDevRootAdmin(&prod, db))

		var count int64
		require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("requires a password", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		noPass := *cfg
		noPass.DevRootPassword = ""
		assert.Error(t, ensureDevRootAdmin(&noPass, db))
	})

	t.Run("creates then promotes", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		require.NoError(t, ensureDevRootAdmin(cfg, db))

		var root models.User
		require.NoError(t, db.Where("username = ?", "root").First(&root).Error)
		assert.Equal(t, "root@example.com", root.Email)
		assert.True(t, root.IsSuperuser)
		assert.True(t, root.IsStaff)
		assert.True(t, root.IsActivated)

		require.NoError(t, db.Model(&root).Updates(map[string]any{"is_superuser": false, "is_staff": false}).Error)
		require.NoError(t, ensureDevRootAdmin(cfg, db))
		require.NoError(t, db.First(&root, root.ID).Error)
		assert.True(t, root.IsSuperuser)

		var count int64
		require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}
