package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"bboard/internal/middleware"

	"gorm.io/gorm"
)

// MigrationLog is one applied migration. Checksum is the SHA-256 of the up
// script at the time it ran; rows written before checksums existed keep it empty.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	Checksum  string    `gorm:"size:64"`
	AppliedAt time.Time `gorm:"autoCreateTime;index"`
}

// TableName returns the database table name for MigrationLog.
func (MigrationLog) TableName() string {
	return "migration_logs"
}

// Checksum returns the hex SHA-256 of the up script.
func (m Migration) Checksum() string {
	sum := sha256.Sum256([]byte(m.UpScript))
	return hex.EncodeToString(sum[:])
}

// Migrator applies and reverts a fixed, version-ordered migration set.
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

// NewMigrator returns a Migrator over set. A nil set means the embedded migrations.
func NewMigrator(db *gorm.DB, set []Migration) *Migrator {
	if set == nil {
		set = migrations
	}
	sorted := append([]Migration(nil), set...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	return &Migrator{db: db, migrations: sorted}
}

func (m *Migrator) ensureLogTable(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(&MigrationLog{}); err != nil {
		return fmt.Errorf("failed to ensure migration logs table: %w", err)
	}
	return nil
}

// Applied returns the migration log ordered by version.
func (m *Migrator) Applied(ctx context.Context) ([]MigrationLog, error) {
	if !m.db.Migrator().HasTable(&MigrationLog{}) {
		return nil, nil
	}
	var logs []MigrationLog
	if err := m.db.WithContext(ctx).Order("version ASC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	return logs, nil
}

// Pending returns the migrations not yet in the log.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	logs, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[int]bool, len(logs))
	for _, l := range logs {
		done[l.Version] = true
	}
	var out []Migration
	for _, mig := range m.migrations {
		if !done[mig.Version] {
			out = append(out, mig)
		}
	}
	return out, nil
}

// Up verifies the log against the registered set and applies every pending
// migration, each in its own transaction. It returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.ensureLogTable(ctx); err != nil {
		return 0, err
	}
	logs, err := m.Applied(ctx)
	if err != nil {
		return 0, err
	}
	if err := m.verify(logs); err != nil {
		return 0, err
	}

	pending, err := m.Pending(ctx)
	if err != nil {
		return 0, err
	}
	for i, mig := range pending {
		middleware.Logger.Info("Applying migration", slog.String("migration", mig.String()))
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mig.UpScript).Error; err != nil {
				return fmt.Errorf("failed to apply migration %s: %w", mig.String(), err)
			}
			entry := MigrationLog{Version: mig.Version, Name: mig.Name, Checksum: mig.Checksum()}
			if err := tx.Create(&entry).Error; err != nil {
				return fmt.Errorf("failed to record migration %s: %w", mig.String(), err)
			}
			return nil
		})
		if err != nil {
			return i, err
		}
	}
	return len(pending), nil
}

// Down reverts one applied migration.
func (m *Migrator) Down(ctx context.Context, version int) error {
	mig := m.find(version)
	if mig == nil {
		return fmt.Errorf("migration version %d not found", version)
	}
	logs, err := m.Applied(ctx)
	if err != nil {
		return err
	}
	applied := false
	for _, l := range logs {
		if l.Version == version {
			applied = true
			break
		}
	}
	if !applied {
		return fmt.Errorf("migration %d has not been applied", version)
	}

	middleware.Logger.Info("Rolling back migration", slog.String("migration", mig.String()))
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mig.DownScript).Error; err != nil {
			return fmt.Errorf("failed to run rollback SQL for migration %s: %w", mig.String(), err)
		}
		if err := tx.Where("version = ?", version).Delete(&MigrationLog{}).Error; err != nil {
			return fmt.Errorf("failed to remove migration record %d: %w", version, err)
		}
		return nil
	})
}

func (m *Migrator) find(version int) *Migration {
	for i := range m.migrations {
		if m.migrations[i].Version == version {
			return &m.migrations[i]
		}
	}
	return nil
}

// verify rejects logs that mention versions missing from the code, or whose
// checksum no longer matches the embedded script.
func (m *Migrator) verify(logs []MigrationLog) error {
	var unknown, drifted []string
	for _, l := range logs {
		mig := m.find(l.Version)
		switch {
		case mig == nil:
			unknown = append(unknown, fmt.Sprintf("%06d", l.Version))
		case l.Checksum != "" && l.Checksum != mig.Checksum():
			drifted = append(drifted, mig.String())
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf(
			"migration_logs contains unknown versions not present in code: %s, drop the database in development to rebuild",
			strings.Join(unknown, ", "),
		)
	}
	if len(drifted) > 0 {
		return fmt.Errorf("migrations edited after they were applied: %s", strings.Join(drifted, ", "))
	}
	return nil
}

// RunMigrations applies all pending embedded migrations.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	_, err := NewMigrator(db, nil).Up(ctx)
	return err
}

// RollbackMigration reverts an embedded migration by version number.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	return NewMigrator(db, nil).Down(ctx, version)
}
