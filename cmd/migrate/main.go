// Command migrate runs schema operations for the bulletin board database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"bboard/internal/config"
	"bboard/internal/database"

	"gorm.io/gorm"
)

const usage = `usage: go run ./cmd/migrate <command> [version]

  up              apply pending SQL migrations
  auto            run GORM AutoMigrate for every model
  status          print the schema policy and pending migrations
  down <version>  revert one SQL migration
  redo <version>  revert and re-apply one SQL migration`

type command func(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error

var commands = map[string]command{
	"up":     up,
	"auto":   auto,
	"status": status,
	"down":   down,
	"redo":   redo,
}

func main() {
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	cmd, ok := commands[strings.ToLower(strings.TrimSpace(flag.Arg(0)))]
	if !ok {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	if err := cmd(context.Background(), db, cfg, flag.Args()[1:]); err != nil {
		log.Fatal(err)
	}
}

func up(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
	n, err := database.NewMigrator(db, nil).Up(ctx)
	if err != nil {
		return fmt.Errorf("sql migrations failed after %d applied: %w", n, err)
	}
	log.Printf("sql migrations applied: %d", n)
	return nil
}

func auto(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	cfg.DBSchemaMode = database.SchemaModeAuto
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return fmt.Errorf("auto schema apply failed: %w", err)
	}
	log.Println("automigrations applied")
	return nil
}

func status(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	st, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return fmt.Errorf("schema status failed: %w", err)
	}
	log.Printf("mode=%s env=%s driver=%s run_sql=%t run_auto=%t applied=%d pending=%d",
		st.Mode, st.Environment, cfg.DBDriver, st.WillRunSQL, st.WillRunAutoMigrate,
		len(st.AppliedVersions), len(st.PendingMigrations))
	for _, m := range st.PendingMigrations {
		log.Printf("pending: %s sha256=%s", m.String(), m.Checksum()[:12])
	}
	return nil
}

func versionArg(args []string) (int, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("a migration version is required")
	}
	v, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	return v, nil
}

func down(ctx context.Context, db *gorm.DB, _ *config.Config, args []string) error {
	version, err := versionArg(args)
	if err != nil {
		return err
	}
	if err := database.RollbackMigration(ctx, db, version); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	log.Printf("rolled back migration %d", version)
	return nil
}

func redo(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error {
	if err := down(ctx, db, cfg, args); err != nil {
		return err
	}
	return up(ctx, db, cfg, nil)
}
