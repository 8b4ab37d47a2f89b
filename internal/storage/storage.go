// Package storage keeps uploaded ad images on disk or in an S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"bboard/internal/config"
	"bboard/internal/middleware"
)

// ErrNotFound is returned when a stored file does not exist.
var ErrNotFound = errors.New("stored file not found")

// FileStore persists uploaded files under flat names.
type FileStore interface {
	Save(ctx context.Context, name, contentType string, data []byte) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
	URL(name string) string
}

var (
	nameMu   sync.Mutex
	lastName time.Time
	nowFunc  = time.Now
)

// NewName returns a timestamp file name with the given extension, such as
// "1712345678.123456.jpg". Names handed out by one process never repeat.
func NewName(ext string) string {
	nameMu.Lock()
	now := nowFunc().Truncate(time.Microsecond)
	if !now.After(lastName) {
		now = lastName.Add(time.Microsecond)
	}
	lastName = now
	nameMu.Unlock()

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%d.%06d%s", now.Unix(), now.Nanosecond()/1000, strings.ToLower(ext))
}

// validName rejects anything that could escape the store root.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "\x00")
}

// DeleteAll removes every named file. Missing files are ignored; other
// failures are logged and joined.
func DeleteAll(ctx context.Context, store FileStore, names []string) error {
	var errs []error
	for _, name := range names {
		if name == "" {
			continue
		}
		if err := store.Delete(ctx, name); err != nil && !errors.Is(err, ErrNotFound) {
			middleware.Logger.WarnContext(ctx, "failed to delete stored file", "file", name, "error", err)
			errs = append(errs, fmt.Errorf("delete %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// New returns the store selected by STORAGE_BACKEND.
func New(ctx context.Context, cfg *config.Config) (FileStore, error) {
	switch cfg.StorageBackend {
	case "s3":
		store, err := NewS3Store(ctx, S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UseSSL:          cfg.S3UseSSL,
			BaseURL:         cfg.MediaURL,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return NewLocalStore(cfg.MediaRoot, cfg.MediaURL)
	}
}
