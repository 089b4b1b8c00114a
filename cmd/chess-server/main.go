package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/chess-live-server/internal/archive"
	"github.com/park285/chess-live-server/internal/auth"
	appcfg "github.com/park285/chess-live-server/internal/config"
	"github.com/park285/chess-live-server/internal/dispatch"
	"github.com/park285/chess-live-server/internal/msgcat"
	"github.com/park285/chess-live-server/internal/obslog"
	"github.com/park285/chess-live-server/internal/registry"
	"github.com/park285/chess-live-server/internal/session"
	"github.com/park285/chess-live-server/internal/store"
	"github.com/park285/chess-live-server/internal/wsserver"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()
	rdb, err := store.Dial(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis_init_error", zap.Error(err))
	}
	defer rdb.Close()

	validator, err := buildAuth(cfg, rdb)
	if err != nil {
		logger.Fatal("auth_init_error", zap.Error(err))
	}
	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatal("msgcat_init_error", zap.Error(err))
	}

	deps := session.Deps{
		Repo:     store.NewRedisRepository(rdb, cfg.GameTTL),
		Auth:     validator,
		Registry: registry.New(),
		Messages: catalog,
		Logger:   logger,
	}
	if cfg.DatabaseURL != "" {
		pg, err := archive.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("archive_init_error", zap.Error(err))
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal("archive_schema_error", zap.Error(err))
		}
		deps.Archive = pg
	} else {
		logger.Info("archive_disabled")
	}

	hub := wsserver.NewHub(cfg.WSSendQueue, logger)
	deps.Dispatcher = dispatch.New(deps.Registry, hub, logger)
	coord, err := session.New(deps)
	if err != nil {
		logger.Fatal("session_init_error", zap.Error(err))
	}

	srv := wsserver.NewServer(coord, hub, wsserver.Options{
		AllowedOrigins: cfg.WSAllowedOrigins,
		PingInterval:   cfg.WSPingInterval,
	}, logger)
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           wsserver.NewRouter(srv),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http_listen", zap.String("addr", cfg.HTTPAddr), zap.String("auth_mode", cfg.AuthMode))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http_serve_error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown", zap.String("signal", sig.String()))

	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(sctx); err != nil {
		logger.Warn("http_shutdown_error", zap.Error(err))
	}
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn("ws_shutdown_error", zap.Error(err))
	}
	if err := coord.Close(sctx); err != nil {
		logger.Warn("session_flush_error", zap.Error(err))
	}
}

func buildAuth(cfg *appcfg.AppConfig, rdb *redis.Client) (session.Authenticator, error) {
	switch cfg.AuthMode {
	case appcfg.AuthRedis:
		return auth.NewRedisTokens(rdb, cfg.AuthTokenTTL), nil
	case appcfg.AuthHTTP:
		return auth.NewHTTPValidator(cfg.AuthBaseURL), nil
	case appcfg.AuthStatic:
		tokens := auth.ParseStatic(cfg.AuthStaticTokens)
		if len(tokens) == 0 {
			return nil, errors.New("AUTH_STATIC_TOKENS has no valid token:user pairs")
		}
		return tokens, nil
	}
	return nil, fmt.Errorf("unknown auth mode %q", cfg.AuthMode)
}
