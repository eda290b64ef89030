package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	myPostgresRepo "github.com/tokenforge/auth-service/internal/adapters/db/postgres"
	myRedisRepo "github.com/tokenforge/auth-service/internal/adapters/db/redis"
	httptransport "github.com/tokenforge/auth-service/internal/adapters/transport/http"
	"github.com/tokenforge/auth-service/internal/app/auth/jwt"
	"github.com/tokenforge/auth-service/internal/app/auth/keys"
	"github.com/tokenforge/auth-service/internal/app/auth/password"
	appsvc "github.com/tokenforge/auth-service/internal/app/auth/service"
	"github.com/tokenforge/auth-service/internal/domain/auth/repo"
	"github.com/tokenforge/auth-service/internal/infra/config"
	"github.com/tokenforge/auth-service/internal/infra/db"
	"github.com/tokenforge/auth-service/internal/infra/health"
	lg "github.com/tokenforge/auth-service/internal/infra/log"
	"github.com/tokenforge/auth-service/internal/infra/metrics"
	"github.com/tokenforge/auth-service/internal/infra/migrate"
	"github.com/tokenforge/auth-service/internal/infra/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		lg.Must(lg.Options{}).Fatal("failed to load config", zap.Error(err))
	}

	zapLog := lg.Must(lg.Options{Level: cfg.LogLevel})
	defer zapLog.Sync()

	gdb, err := db.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		zapLog.Fatal("failed to connect to database", zap.Error(err))
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		zapLog.Fatal("db handle", zap.Error(err))
	}
	defer sqlDB.Close()
	if err := migrateSchema(cfg.DatabaseDriver, gdb); err != nil {
		zapLog.Fatal("run migrations", zap.Error(err))
	}

	checks := health.Checks{"database": sqlDB.PingContext}

	var tokenRepo repo.RefreshTokenRepo = myPostgresRepo.NewRefreshTokenRepo(gdb)
	if cfg.RefreshStore == config.StoreRedis {
		redisCli := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisCli.Close()
		redisRepo := myRedisRepo.NewRedisTokenRepo(redisCli)
		tokenRepo = redisRepo
		checks["redis"] = redisRepo.Ping
	}

	keyProvider := keys.NewFileProvider(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath)
	if err := keyProvider.Load(); err != nil {
		// the provider retries on the next signing attempt
		zapLog.Error("signing key not loaded at startup", zap.Error(err))
	}

	jwtUtil, err := jwt.NewJWTUtil(keyProvider, jwt.Options{
		Issuer:        cfg.Issuer,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		RefreshSecret: []byte(cfg.RefreshTokenSecret),
		Leeway:        cfg.TokenLeeway,
	})
	if err != nil {
		zapLog.Fatal("failed to init JWT util", zap.Error(err))
	}

	hasher, err := password.New(password.Options{
		Algorithm:   cfg.PasswordHasher,
		BcryptCost:  cfg.BcryptCost,
		Concurrency: cfg.HashConcurrency,
	})
	if err != nil {
		zapLog.Fatal("failed to init password hasher", zap.Error(err))
	}

	svc := appsvc.New(appsvc.Deps{
		Users:      myPostgresRepo.NewPostgresUserRepo(gdb),
		Tokens:     tokenRepo,
		JWT:        jwtUtil,
		Hasher:     hasher,
		Logger:     zapLog,
		RefreshTTL: cfg.RefreshTokenTTL,
	})

	handler := httptransport.NewHandler(svc, keyProvider, httptransport.CookieOptions{
		Domain: cfg.CookieDomain,
		Secure: cfg.CookieSecure,
	}, checks, zapLog)
	router := httptransport.NewRouter(handler, jwtUtil,
		metrics.NewHTTP(prometheus.DefaultRegisterer, prometheus.DefaultGatherer),
		httptransport.RouterConfig{AllowedOrigins: cfg.AllowedOrigins, AllowCredentials: cfg.AllowCredentials},
		zapLog,
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		return server.StartGRPCServer(ctx, cfg.GRPCAddress, checks, zapLog)
	})

	g.Go(func() error {
		zapLog.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return appsvc.PruneExpired(ctx, tokenRepo, cfg.PruneInterval, zapLog)
	})

	g.Go(func() error {
		<-ctx.Done()
		zapLog.Info("shutdown signal received")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctxShutdown)
	})

	if err := g.Wait(); err != nil {
		zapLog.Error("server terminated", zap.Error(err))
	}
}

func migrateSchema(driver string, gdb *gorm.DB) error {
	if driver == config.DriverSQLite {
		return db.AutoMigrate(gdb)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return migrate.Up(sqlDB)
}
