package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/logging"
)

const usage = "usage: migrate [up|down|status|version]"

func main() {
	cfg, err := config.LoadDatabase()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	logger := logging.MustNew(cfg.Env, cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolSettings{MaxConns: cfg.PostgresMaxConn})
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := db.NewMigrator(pool)
	if err != nil {
		logger.Fatal("migrator init error", zap.Error(err))
	}
	defer func() { _ = migrator.Close() }()

	switch command {
	case "up":
		err = migrator.Up(ctx)
	case "down":
		err = migrator.Down(ctx)
	case "status":
		err = migrator.Status(ctx)
	case "version":
		var v int64
		v, err = migrator.Version(ctx)
		if err == nil {
			fmt.Println(v)
		}
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal("migrate failed", zap.String("command", command), zap.Error(err))
	}

	logger.Info("migrate done", zap.String("command", command))
}
