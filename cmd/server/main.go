package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/tour-booking/internal/config"
	"github.com/iliyamo/tour-booking/internal/database"
	"github.com/iliyamo/tour-booking/internal/observability"
	"github.com/iliyamo/tour-booking/internal/queue"
	"github.com/iliyamo/tour-booking/internal/repository"
	"github.com/iliyamo/tour-booking/internal/router"
	"github.com/iliyamo/tour-booking/internal/service"
)

const shutdownGrace = 10 * time.Second

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := observability.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DSN())
	if err != nil {
		logger.Error("database connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected", slog.String("host", cfg.DBHost), slog.String("name", cfg.DBName))

	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logger.Error("migration failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		logger.Warn("redis unavailable, rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	mailLog := queue.NewMailLog(cfg.MailLogDir)
	var outbox queue.Outbox = mailLog
	if cfg.RabbitURL != "" {
		outbox = queue.NewPublisher(cfg.RabbitURL, logger)
		go func() {
			if err := queue.NewConsumer(cfg.RabbitURL, mailLog, logger).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("mail consumer stopped", slog.String("error", err.Error()))
			}
		}()
	} else {
		logger.Info("RABBITMQ_URL not set, mail is written to the log directly", slog.String("path", mailLog.Path()))
	}
	mailer := queue.NewMailer(outbox, cfg.MailFrom, cfg.PublicURL)

	users := repository.NewUserRepo(db)
	tours := repository.NewTourRepo(db)
	reviews := repository.NewReviewRepo(db)
	reviewSvc := service.NewReviewService(reviews, tours, users, logger)

	e := router.New(router.Deps{
		Cfg:       cfg,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Auth:      service.NewAuthService(users, mailer, cfg.JWTSecret, cfg.JWTTTL, cfg.BcryptCost, logger),
		Users:     service.NewUserService(users, reviewSvc),
		Tours:     service.NewTourService(tours, reviews, users, logger),
		Reviews:   reviewSvc,
		DB:        db,
		Redis:     rdb,
		Logger:    logger,
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", slog.String("addr", addr), slog.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
	}
}
