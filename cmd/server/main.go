package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finance_backend/internal/app/di"
	"finance_backend/internal/app/router"
	"finance_backend/internal/feature/pricerefresh/scheduler"
	"finance_backend/internal/platform/config"
	"finance_backend/internal/platform/db"
	platformhandler "finance_backend/internal/platform/http/handler"
	jwtmw "finance_backend/internal/platform/jwt"
	"finance_backend/internal/platform/logging"
	infraredis "finance_backend/internal/platform/redis"
)

func main() {
	// .envを読み込む
	config.LoadDotEnv()
	logger := logging.Setup(logging.LoadConfig())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	// db
	gdb, err := db.OpenDB(db.LoadConfigFromEnv())
	if err != nil {
		return err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	// Redis（接続できない場合はキャッシュなしで起動）
	redisCfg := infraredis.LoadConfig()
	rdb, err := infraredis.NewRedisClient(ctx, redisCfg)
	if err != nil {
		logger.Warn("Redis unavailable. Running without cache.")
		rdb = nil
	}
	if rdb != nil {
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error("failed to close Redis client", "error", err)
			}
		}()
	}

	market, err := di.NewMarketClient(di.LoadMarketConfig())
	if err != nil {
		return err
	}
	logger.Info("market data provider selected", "provider", market.ProviderName())

	// JWT_SECRETチェック（開発中の注意喚起）
	jwtCfg := jwtmw.LoadConfig()
	if jwtCfg.Secret == "" {
		logger.Warn("JWT_SECRET is not set. Set a strong secret in production.")
	}

	app, err := di.NewApp(di.Deps{
		DB:        gdb,
		Redis:     rdb,
		RedisTTL:  redisCfg.TTL,
		Market:    market,
		CacheOpts: di.LoadPriceCacheOptions(logger),
		JWT:       jwtCfg,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	sched, err := scheduler.New(app.Refresher, scheduler.LoadConfig(), logger)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	// ルータ生成
	r := router.NewRouter(app.Handlers, platformhandler.NewHealthHandler(sqlDB), jwtCfg.Secret)

	srv := &http.Server{
		Addr:              ":" + config.String("PORT", "8080"),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
