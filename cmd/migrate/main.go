// Command migrate runs schema operations for Quill.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"strconv"
	"strings"

	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/middleware"

	"gorm.io/gorm"
)

const usageText = "usage: migrate <up|auto|status|down> [version|latest]"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return errors.New(usageText)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	ctx := context.Background()
	switch cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0))); cmd {
	case "up":
		if cfg.DBDriver == "sqlite" {
			return fmt.Errorf("sql migrations target postgres; use \"auto\" for sqlite")
		}
		if err := database.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		middleware.Logger.Info("SQL migrations applied")
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		middleware.Logger.Info("AutoMigrate applied")
	case "status":
		return printStatus(ctx, db, cfg)
	case "down":
		return rollback(ctx, db, flag.Arg(1))
	default:
		return fmt.Errorf("unknown command %q; %s", cmd, usageText)
	}
	return nil
}

func printStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	status, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return fmt.Errorf("schema status failed: %w", err)
	}
	middleware.Logger.Info("Schema status",
		slog.String("mode", status.Mode),
		slog.String("driver", status.Driver),
		slog.String("env", status.Environment),
		slog.Bool("run_sql", status.WillRunSQL),
		slog.Bool("run_auto", status.WillRunAutoMigrate),
		slog.Int("applied", len(status.AppliedVersions)),
		slog.Int("pending", len(status.PendingMigrations)),
	)
	for _, m := range status.PendingMigrations {
		fmt.Printf("pending: %s\n", m)
	}
	return nil
}

func rollback(ctx context.Context, db *gorm.DB, arg string) error {
	if arg == "" || arg == "latest" {
		version, err := database.RollbackLatest(ctx, db)
		if err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		if version == 0 {
			middleware.Logger.Info("No applied migrations to roll back")
			return nil
		}
		middleware.Logger.Info("Rolled back migration", slog.Int("version", version))
		return nil
	}

	version, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", arg, err)
	}
	if err := database.RollbackMigration(ctx, db, version); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	middleware.Logger.Info("Rolled back migration", slog.Int("version", version))
	return nil
}
