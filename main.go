package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"sessionhistory/internal/api"
	"sessionhistory/internal/auth"
	"sessionhistory/internal/config"
	"sessionhistory/internal/observability"
	"sessionhistory/internal/ratelimit"
	"sessionhistory/internal/redis"
	"sessionhistory/internal/service/history"
	"sessionhistory/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	log := observability.Logger()

	cfgPath := os.Getenv("SESSIONHISTORY_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatal("load config", err)
	}

	dbType := strings.ToLower(os.Getenv("SESSIONHISTORY_DB"))
	if dbType == "" {
		dbType = "sqlite3"
	}
	log.Info("starting", "db", dbType, "auth", cfg.Auth.Provider, "addr", cfg.BasicConfig.ServerAddress)

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = redis.NewRedisClient(cfg)
		if err != nil {
			fatal("create redis client", err)
		}
		defer rdb.Close()
	} else {
		log.Warn("redis not configured; token cache and rate limiting disabled")
	}

	var store storage.Store
	var authn auth.Authenticator
	switch dbType {
	case "supabase":
		supa, err := storage.NewSupabaseStore(storage.SupabaseConfig{
			URL:    cfg.Supabase.URL,
			APIKey: cfg.Supabase.APIKey,
			Schema: cfg.Supabase.Schema,
		})
		if err != nil {
			fatal("open supabase store", err)
		}
		store = supa
	default:
		db, err := storage.Open(dbType, cfg)
		if err != nil {
			fatal("open database", err)
		}
		// Create necessary tables: users, user_tokens, learning_sessions, session_messages
		if err := storage.Migrate(db, dbType); err != nil {
			fatal("migrate database", err)
		}
		store = storage.NewSQLStore(db)
		if cfg.Auth.Provider == "token" {
			authn = auth.NewService(db, rdb, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
		}
	}
	defer store.Close()

	if cfg.Auth.Provider == "supabase" {
		authn, err = auth.NewSupabaseAuthenticator(cfg.Supabase)
		if err != nil {
			fatal("init supabase auth", err)
		}
	}
	if authn == nil {
		fatal("init auth", errors.New("token auth requires a sql database; use auth.provider=supabase"))
	}

	var limiter *ratelimit.Limiter
	if rdb != nil {
		limiter = ratelimit.NewLimiter(rdb, map[string]ratelimit.Rule{
			ratelimit.ClassGeneral: {Limit: cfg.RateLimit.GeneralPerMinute, Window: time.Minute},
		})
	}

	opts := api.Options{
		DefaultPageSize: cfg.BasicConfig.DefaultPageSize,
		MaxPageSize:     cfg.BasicConfig.MaxPageSize,
		RequestTimeout:  time.Duration(cfg.BasicConfig.RequestTimeoutSeconds) * time.Second,
	}
	if rdb != nil {
		opts.Cache = rdb
	}
	handlers := api.NewHandler(history.NewService(store), store, authn, limiter, opts)

	router := gin.New()
	router.Use(gin.Recovery(), observability.RequestLogger())
	handlers.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.BasicConfig.ServerAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server stopped", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	}
}

func fatal(msg string, err error) {
	observability.Logger().Error(msg, "error", err)
	os.Exit(1)
}
