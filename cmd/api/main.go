package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arenapanel/internal/api"
	"arenapanel/internal/auth"
	"arenapanel/internal/config"
	"arenapanel/internal/database"
	"arenapanel/internal/domain"
	"arenapanel/internal/events"
	"arenapanel/internal/google"
	"arenapanel/internal/logging"
	"arenapanel/internal/metrics"
	"arenapanel/internal/models"
	"arenapanel/internal/notify"
	"arenapanel/internal/repository"
	"arenapanel/internal/service"
	"arenapanel/internal/storage"
	"arenapanel/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

const sheetsCacheRefresh = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	startMetrics(ctx, cfg, &logger)

	tokens, err := auth.NewTokenManager(cfg.API.Auth.JWTSecret, cfg.API.Auth.Issuer)
	if err != nil {
		return fmt.Errorf("init token manager: %w", err)
	}

	eventBus := events.NewEventBus()
	eventBus.OnError(func(event *events.Event, err error) {
		logger.Error().Err(err).Str("event", event.Type).Msg("event handler failed")
	})

	sheetsWorker := initSheetsSync(ctx, cfg, db, redisClient, &logger)
	var syncWorker domain.SyncWorker
	if sheetsWorker != nil {
		syncWorker = sheetsWorker
	}

	sessions := initSessionStore(redisClient, &logger)
	files, err := storage.New(ctx, cfg.Uploads, cfg.Google.CredentialsFile, &logger)
	if err != nil {
		return fmt.Errorf("init upload storage: %w", err)
	}

	deps := api.Deps{
		Auth:     service.NewAuthService(db, sessions, tokens, eventBus, cfg.API.Auth, logging.Component(&logger, "auth")),
		Bookings: service.NewBookingService(db, db, eventBus, syncWorker, cfg.Bookings, logging.Component(&logger, "bookings")),
		Spaces:   service.NewSpaceService(db, logging.Component(&logger, "spaces")),
		Tickets:  service.NewTicketService(db, eventBus, logging.Component(&logger, "tickets")),
		Users:    service.NewUserService(db, cfg.API.Auth, logging.Component(&logger, "users")),
		Uploads:  service.NewUploadService(files, cfg.Uploads.MaxBytes, logging.Component(&logger, "uploads")),
		Ready:    db.PingContext,
	}
	if local, ok := files.(*storage.LocalStore); ok {
		deps.UploadsDir = local.Dir()
	}

	if err := seedSpaces(ctx, deps.Spaces, &logger); err != nil {
		return err
	}
	if err := deps.Users.EnsureSuperadmins(ctx, cfg.Superadmins); err != nil {
		return fmt.Errorf("ensure superadmins: %w", err)
	}

	startNotifier(ctx, cfg, eventBus, &logger)
	go database.NewBackupService(db, cfg.Backup, logging.Component(&logger, "backup")).Start(ctx)

	httpServer := api.NewHTTPServer(cfg.API, deps, &logger)

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(cfg.API, db.PingContext, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func loadSpaces(logger *zerolog.Logger) ([]models.Space, error) {
	spacesPath := os.Getenv("SPACES_PATH")
	if spacesPath == "" {
		spacesPath = "configs/spaces.yaml"
	}
	data, err := os.ReadFile(spacesPath)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info().Str("spaces_path", spacesPath).Msg("no seed spaces file")
		return nil, nil
	}
	if err != nil {
		logger.Error().Err(err).Str("spaces_path", spacesPath).Msg("read spaces")
		return nil, err
	}

	var spacesConfig struct {
		Spaces []models.Space `yaml:"spaces"`
	}
	if err := yaml.Unmarshal(data, &spacesConfig); err != nil {
		logger.Error().Err(err).Str("spaces_path", spacesPath).Msg("parse spaces")
		return nil, err
	}

	return spacesConfig.Spaces, nil
}

func seedSpaces(ctx context.Context, spaces *service.SpaceService, logger *zerolog.Logger) error {
	seed, err := loadSpaces(logger)
	if err != nil {
		return err
	}
	if len(seed) == 0 {
		return nil
	}

	created, err := spaces.Seed(ctx, seed)
	if err != nil {
		return fmt.Errorf("seed spaces: %w", err)
	}
	if created > 0 {
		logger.Info().Int("spaces", created).Msg("seeded spaces")
	}
	return nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initSessionStore(redisClient *redis.Client, logger *zerolog.Logger) domain.SessionStore {
	memory := repository.NewMemorySessionStore()
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverSessionStore(
		repository.NewRedisSessionStore(redisClient),
		memory,
		logging.Component(logger, "sessions"),
	)
}

// initSheetsSync connects the bookings spreadsheet and starts its worker. It
// returns nil when sheets are not configured or unreachable.
func initSheetsSync(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	redisClient *redis.Client,
	logger *zerolog.Logger,
) *worker.SheetsWorker {
	if cfg.Google.CredentialsFile == "" || cfg.Google.BookingSpreadsheetID == "" {
		return nil
	}

	sheetsService, err := google.NewSheetsService(ctx,
		cfg.Google.CredentialsFile,
		cfg.Google.BookingSpreadsheetID,
		cfg.Google.BookingsSheetName,
	)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets unreachable, continuing without sheets")
		return nil
	}
	if err := sheetsService.WarmUpCache(ctx); err != nil {
		logger.Warn().Err(err).Msg("sheets row cache warm-up failed")
	}
	go sheetsService.StartCacheRefresh(ctx, sheetsCacheRefresh, func(err error) {
		logger.Warn().Err(err).Msg("sheets row cache refresh failed")
	})

	sheetsWorker := worker.NewSheetsWorker(db, sheetsService, redisClient,
		worker.DefaultRetryPolicy(), logging.Component(logger, "sheets-worker"))
	go sheetsWorker.Start(ctx)

	logger.Info().Str("spreadsheet", cfg.Google.BookingSpreadsheetID).Msg("google sheets connected")
	return sheetsWorker
}

func startNotifier(ctx context.Context, cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	if cfg.Telegram.BotToken == "" {
		return
	}

	bot, err := notify.NewBot(cfg.Telegram)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram bot init failed, notifications disabled")
		return
	}

	notifier := notify.NewNotifier(bot, cfg.Telegram.ManagerChatIDs, logging.Component(logger, "notifier"))
	notifier.Subscribe(bus)
	go notifier.Start(ctx)
	logger.Info().Int("chats", len(cfg.Telegram.ManagerChatIDs)).Msg("telegram notifications enabled")
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if grpcServer != nil {
		go grpcServer.WatchHealth(ctx, 15*time.Second)
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
		logger.Info().Str("grpc_addr", grpcServer.Addr()).Msg("grpc health server started")
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("http server stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return runErr
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
