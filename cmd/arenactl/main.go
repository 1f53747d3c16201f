// Command arenactl runs one-off maintenance jobs against the panel database:
// snapshots, a full rewrite of the bookings sheet and requeueing failed sheet
// sync tasks.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"arenapanel/internal/config"
	"arenapanel/internal/database"
	"arenapanel/internal/google"
	"arenapanel/internal/logging"
	"arenapanel/internal/repository"
	"arenapanel/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const usage = `usage: arenactl [-config path] <command>

commands:
  backup          write a database snapshot and prune old ones
  resync-sheet    rewrite the bookings sheet from the database
  requeue-failed  put failed sheet sync tasks back in the queue
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", envOr("CONFIG_PATH", "configs/config.yaml"), "path to config.yaml")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall deadline for the command")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return fmt.Errorf("expected exactly one command")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}
	logger := baseLogger.With().Str("component", "arenactl").Logger()

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch cmd := flag.Arg(0); cmd {
	case "backup":
		return backup(ctx, cfg, db, &logger)
	case "resync-sheet":
		w, closeRedis, err := newSheetsWorker(ctx, cfg, db, &logger)
		if err != nil {
			return err
		}
		defer closeRedis()
		return w.ResyncAll(ctx, db)
	case "requeue-failed":
		w, closeRedis, err := newSheetsWorker(ctx, cfg, db, &logger)
		if err != nil {
			return err
		}
		defer closeRedis()
		n, err := w.RequeueFailed(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("requeued %d task(s)\n", n)
		return nil
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func backup(ctx context.Context, cfg *config.Config, db *database.DB, logger *zerolog.Logger) error {
	svc := database.NewBackupService(db, cfg.Backup, logger)

	path, err := svc.PerformBackup(ctx)
	if err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	removed := svc.CleanupOldBackups()
	fmt.Printf("backup written to %s, %d old snapshot(s) removed\n", path, removed)
	return nil
}

func newSheetsWorker(ctx context.Context, cfg *config.Config, db *database.DB, logger *zerolog.Logger) (*worker.SheetsWorker, func(), error) {
	if cfg.Google.CredentialsFile == "" || cfg.Google.BookingSpreadsheetID == "" {
		return nil, nil, fmt.Errorf("google.credentials_file and google.bookings_spreadsheet_id are required")
	}

	sheetsService, err := google.NewSheetsService(ctx,
		cfg.Google.CredentialsFile,
		cfg.Google.BookingSpreadsheetID,
		cfg.Google.BookingsSheetName,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("init google sheets: %w", err)
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		return nil, nil, fmt.Errorf("google sheets unreachable: %w", err)
	}

	var redisClient *redis.Client
	closeRedis := func() {}
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, dead letter list left untouched")
			_ = redisClient.Close()
			redisClient = nil
		} else {
			closeRedis = func() { _ = redisClient.Close() }
		}
	}

	return worker.NewSheetsWorker(db, sheetsService, redisClient, worker.DefaultRetryPolicy(), logger), closeRedis, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
