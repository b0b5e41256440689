package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/walletbridge/link-server-go/internal/config"
	"github.com/walletbridge/link-server-go/internal/database"
	"github.com/walletbridge/link-server-go/internal/handler"
	"github.com/walletbridge/link-server-go/internal/jobs"
	"github.com/walletbridge/link-server-go/internal/middleware"
	"github.com/walletbridge/link-server-go/internal/notify"
	"github.com/walletbridge/link-server-go/internal/redis"
	"github.com/walletbridge/link-server-go/internal/repository"
	"github.com/walletbridge/link-server-go/internal/service"
	"github.com/walletbridge/link-server-go/internal/token"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	connRepo, walletRepo, db := buildStore(cfg)
	if db != nil {
		defer db.Close()
	}

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	broker := notify.NewBroker(redisClient)
	defer broker.Close()

	codec := token.NewCodec(cfg.TokenSecret())

	connectService := service.NewConnectService(connRepo, walletRepo, codec, broker, service.Options{
		ConnectBaseURL:       cfg.ConnectBaseURL,
		CallbackURL:          cfg.CallbackURL,
		ReturnToURL:          cfg.ReturnToURL,
		ConnectionTTL:        cfg.ConnectionTTL(),
		StoreTimeout:         cfg.StoreTimeout(),
		StrictCallbackLookup: cfg.StrictCallbackLookup,
	})

	rateLimit := cfg.RateLimitPerMin
	if rateLimit <= 0 {
		rateLimit = config.DefaultRateLimitPerMin
	}
	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client, rateLimit)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	connectHandler := handler.NewConnectHandler(connectService)
	eventsHandler := handler.NewEventsHandler(broker, connectService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/v1/connections", func(r chi.Router) {
		r.Use(rateLimitMiddleware.Handler)
		r.Get("/events", eventsHandler.ServeHTTP)
		r.Mount("/", connectHandler.Routes())
	})

	sweeper := jobs.NewSweeper(connRepo, broker, cfg.SweepInterval())
	sweeper.Start()
	defer sweeper.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// buildStore selects the durable postgres backend when DATABASE_URL is set
// and reachable, otherwise the volatile in-process backend. With
// REQUIRE_DURABLE_STORE the fallback is disabled and boot fails instead.
func buildStore(cfg *config.Config) (repository.ConnectionRepository, repository.WalletRepository, *database.DB) {
	if cfg.DatabaseURL == "" {
		if cfg.RequireDurableStore {
			log.Fatal().Msg("DATABASE_URL is required when REQUIRE_DURABLE_STORE is set")
		}
		log.Warn().Msg("DATABASE_URL not set: using volatile in-memory store, connections will not survive restarts")
		return repository.NewMemoryConnectionRepository(), repository.NewMemoryWalletRepository(), nil
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
		err = db.Ping(ctx)
		cancel()
	}
	if err != nil {
		if cfg.RequireDurableStore {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		log.Error().Err(err).Msg("database unavailable: falling back to volatile in-memory store")
		return repository.NewMemoryConnectionRepository(), repository.NewMemoryWalletRepository(), nil
	}

	log.Info().Msg("database connected")
	return repository.NewConnectionRepository(db.DB), repository.NewWalletRepository(db.DB), db
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
