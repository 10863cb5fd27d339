// Command migrate manages the Postgres schema used by the postgres session
// store.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

var errUnknownCommand = errors.New("unknown command")

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, create")
		name    = flag.String("name", "", "Name for 'create' command")
	)
	flag.Parse()

	loadEnvFiles()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *command == "create" {
		if err := create(migrationsDir(), *name); err != nil {
			logger.Error("create migration", "error", err)
			os.Exit(1)
		}
		logger.Info("migration created", "name", *name)
		return
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, databaseDSN())
	if err != nil {
		logger.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := run(ctx, db, *command, migrationsDir()); err != nil {
		logger.Error("migrate", "command", *command, "error", err)
		os.Exit(1)
	}
	logger.Info("migrate done", "command", *command)
}

func run(ctx context.Context, db *sql.DB, command, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	switch command {
	case "up":
		return goose.UpContext(ctx, db, dir)
	case "down":
		return goose.DownContext(ctx, db, dir)
	case "status":
		return goose.StatusContext(ctx, db, dir)
	}
	return fmt.Errorf("%w: %s (use up, down, status, create)", errUnknownCommand, command)
}

func create(dir, name string) error {
	if name == "" {
		return errors.New("name is required for 'create' command")
	}
	return goose.Create(nil, dir, name, "sql")
}
