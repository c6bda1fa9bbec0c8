package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ulule/limiter/v3"

	"github.com/faizvk/ecommerce-app/internal/cache"
	"github.com/faizvk/ecommerce-app/internal/config"
	"github.com/faizvk/ecommerce-app/internal/database"
	"github.com/faizvk/ecommerce-app/internal/handler"
	"github.com/faizvk/ecommerce-app/internal/middleware"
	"github.com/faizvk/ecommerce-app/internal/repository"
	"github.com/faizvk/ecommerce-app/internal/router"
	"github.com/faizvk/ecommerce-app/internal/service"
	"github.com/faizvk/ecommerce-app/internal/utils"
)

func main() {
	cfg := config.Load() // Load environment config

	level := slog.LevelInfo
	if cfg.Env == "dev" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		return err
	}

	codec, err := utils.NewTokenCodec(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL, cfg.JWTIssuer)
	if err != nil {
		return err
	}

	cacheCfg := config.LoadCacheConfig()
	facade := cache.NewFacade(cacheCfg, config.RedisOptions(), logger)
	defer facade.Close()

	// Optional collaborators stay untyped-nil when disabled.
	var tokens service.TokenStore
	if cfg.RefreshRotation {
		tokens = repository.NewTokenRepo(db)
	}
	var google service.GoogleVerifier
	if v := service.NewIDTokenVerifier(cfg.GoogleClientID); v != nil {
		google = v
	}
	var events service.EventPublisher
	if p := service.NewPublisher(cfg.RabbitURL, logger); p != nil {
		events = p
	}

	identity := service.NewIdentityService(repository.NewUserRepo(db), tokens, codec, google,
		service.IdentityOptions{BcryptCost: cfg.BcryptCost, Timeout: cfg.DBTimeout}, logger)
	catalog := service.NewCatalogService(repository.NewProductRepo(db),
		cache.NewCatalog(facade, cacheCfg.TTL), events, cfg.DBTimeout, logger)

	var lim *limiter.Limiter
	if rl := config.LoadRateLimitConfig(); rl.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), cacheCfg.ConnectTimeout)
		rdb := facade.Acquire(ctx) // nil: counters stay in memory
		cancel()
		if lim, err = middleware.NewLimiter(rl, rdb); err != nil {
			return err
		}
		logger.Info("rate limit enabled", slog.Int64("max", rl.Max), slog.Duration("window", rl.Window), slog.Bool("shared", rdb != nil))
	}

	e, err := router.New(router.Deps{
		Identity:   identity,
		Catalog:    catalog,
		Codec:      codec,
		Limiter:    lim,
		Logger:     logger,
		CORSOrigin: cfg.ClientURL,
		Cookie:     handler.CookieOptions{Secure: cfg.CookieSecure, SameSite: cfg.SameSite()},
	})
	if err != nil {
		return err
	}

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", addr), slog.String("env", cfg.Env),
			slog.Bool("refresh_rotation", cfg.RefreshRotation))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	select {
	case err := <-errCh:
		return err
	case <-stop.Done():
	}

	logger.Info("shutting down")
	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return e.Shutdown(ctx)
}
