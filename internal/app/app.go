package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"ryan-quiz/backend/internal/api"
	"ryan-quiz/backend/internal/config"
	"ryan-quiz/backend/internal/database"
	"ryan-quiz/backend/internal/llm"
	"ryan-quiz/backend/internal/repository"
	"ryan-quiz/backend/internal/service"
)

const (
	shutdownTimeout = 10 * time.Second
	pingTimeout     = 2 * time.Second
	pingInterval    = 3 * time.Second
)

// App is the wired application: store, model provider, services and server.
type App struct {
	Server   *http.Server
	Store    repository.Repository
	Provider llm.Provider
	Service  *service.ConversationService
	Reaper   *service.Reaper
}

// NewApp opens the configured session store and wires everything on top of it.
func NewApp(cfg *config.Config) (*App, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	var providerOpts []llm.ProviderOption
	if cfg.ModelRateLimit > 0 {
		providerOpts = append(providerOpts, llm.WithRateLimit(cfg.ModelRateLimit, cfg.ModelRateBurst))
	}
	provider := llm.NewOllamaProvider(cfg.OllamaURL, providerOpts...)

	svc := service.NewConversationService(store, provider, service.Options{
		ModelName:    cfg.ModelName,
		CallTimeout:  cfg.ModelTimeout,
		HistoryLimit: cfg.HistoryLimit,
	})
	handler := api.NewSessionHandler(svc)
	router := api.NewRouter(handler, api.RouterConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout: cfg.ModelTimeout + 15*time.Second,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		WriteTimeout:      cfg.ModelTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &App{
		Server:   server,
		Store:    store,
		Provider: provider,
		Service:  svc,
		Reaper:   service.NewReaper(store, cfg.SessionTTL, cfg.ReaperInterval),
	}, nil
}

// Close releases the session store.
func (a *App) Close() error {
	return a.Store.Close()
}

func openStore(cfg *config.Config) (repository.Repository, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		db, err := database.InitDB(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		slog.Info("Successfully connected to SQLite database.", "path", cfg.DatabasePath)
		return repository.NewSQLiteRepository(db), nil
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		slog.Info("Successfully connected to Redis.", "addr", cfg.RedisAddr)
		return repository.NewRedisRepository(rdb, cfg.SessionTTL), nil
	case config.StoreMemory, "":
		slog.Info("Using in-memory session store.")
		return repository.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func Run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		// slog is not yet configured, so use the default logger for this critical error.
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	setupLogger(cfg.LogLevel)
	logConfigSource()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := NewApp(cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("Failed to close session store", "error", err)
		}
	}()

	// Replies fall back to canned text while the model is unreachable, so an
	// unready model server only delays startup up to the readiness timeout.
	if !waitForOllama(ctx, a.Provider, cfg.ReadinessTimeout, pingInterval) {
		slog.Warn("Ollama is not ready, starting anyway.", "url", cfg.OllamaURL, "waited", cfg.ReadinessTimeout)
	}

	a.Reaper.Start(ctx)
	defer a.Reaper.Stop()

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", cfg.AppPort, "model", cfg.ModelName, "store", cfg.StoreDriver)
		serverErr <- a.Server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			return 1
		}
		return 0
	case <-ctx.Done():
		slog.Info("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
		return 1
	}
	return 0
}

func logConfigSource() {
	configFileUsed := viper.ConfigFileUsed()
	if configFileUsed != "" {
		slog.Info("Successfully loaded configuration from file.", "file", configFileUsed)
	} else {
		slog.Info("Configuration file not found. Using environment variables and defaults.")
	}
}

func setupLogger(logLevel string) {
	var level slog.Level
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// waitForOllama pings the model server until it answers, ctx ends or timeout
// elapses. It reports whether the server answered. A zero timeout skips the
// check.
func waitForOllama(ctx context.Context, provider llm.Provider, timeout, interval time.Duration) bool {
	if timeout <= 0 {
		return true
	}
	slog.Info("Waiting for Ollama to be ready...", "timeout", timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		pingCtx, pingCancel := context.WithTimeout(ctx, pingTimeout)
		err := provider.Ping(pingCtx)
		pingCancel()
		if err == nil {
			slog.Info("Ollama is ready.")
			return true
		}
		slog.Debug("Ollama not ready yet, retrying...", "interval", interval, "error", err)

		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
	}
}
