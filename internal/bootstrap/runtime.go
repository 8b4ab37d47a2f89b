// Package bootstrap wires the database and Redis connections shared by the
// server and the command line tools.
package bootstrap

import (
	"errors"
	"fmt"
	"strings"

	"bboard/internal/cache"
	"bboard/internal/config"
	"bboard/internal/database"
	"bboard/internal/middleware"
	"bboard/internal/models"
	"bboard/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedRubrics creates the built-in rubric tree when it is missing.
	SeedRubrics bool
	// SkipRedis leaves the Redis client nil, for tools that never need it.
	SkipRedis bool
}

// InitRuntime connects to DB and Redis and optionally seeds built-in data.
// The Redis client is nil when Redis is unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	var r *redis.Client
	if !opts.SkipRedis {
		cache.InitRedis(cfg.RedisURL)
		r = cache.GetClient()
	}

	if err := ensureDevRootAdmin(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	if opts.SeedRubrics {
		if _, err := seed.Rubrics(db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed built-in rubrics: %w", err)
		}
	}

	return db, r, nil
}

// ensureDevRootAdmin makes sure a superuser exists in development setups
// that ask for one.
func ensureDevRootAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "admin"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "admin@bboard.local"
	}
	password := cfg.DevRootPassword
	if password == "" {
		return fmt.Errorf("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.Where("username = ?", username).First(&root).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root := models.NewManagedUser(username, email, string(hashedPassword))
			root.IsStaff = true
			root.IsSuperuser = true
			return tx.Create(root).Error
		case findErr != nil:
			return findErr
		default:
			return tx.Model(&models.User{}).Where("id = ?", root.ID).Updates(map[string]any{
				"is_staff":     true,
				"is_superuser": true,
				"is_active":    true,
				"is_activated": true,
			}).Error
		}
	})
	if err != nil {
		return err
	}

	middleware.Logger.Info("development root admin ensured", "username", username)
	return nil
}
