// Package main запускает HTTP-сервер сайта wellnessreal.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/wellnessreal/internal/config"
	"github.com/mmeshcher/wellnessreal/internal/handler"
	"github.com/mmeshcher/wellnessreal/internal/idempotency"
	"github.com/mmeshcher/wellnessreal/internal/mailer"
	"github.com/mmeshcher/wellnessreal/internal/middleware"
	"github.com/mmeshcher/wellnessreal/internal/newsletter"
	"github.com/mmeshcher/wellnessreal/internal/payment"
	"github.com/mmeshcher/wellnessreal/internal/repository"
	"github.com/mmeshcher/wellnessreal/internal/service"
	"github.com/mmeshcher/wellnessreal/internal/storage"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := service.Deps{Logger: logger}

	if cfg.SMTP.Host != "" {
		deps.Mailer = mailer.NewSMTP(mailer.Config(cfg.SMTP))
	} else {
		sugar.Warn("SMTP_HOST is not set, emails are disabled")
	}

	if cfg.MailerLiteAPIKey != "" {
		deps.Subscribers = newsletter.NewClient(cfg.MailerLiteURL, cfg.MailerLiteAPIKey, logger.Named("mailerlite"))
	}

	if cfg.Stripe.SecretKey != "" {
		deps.Payments = payment.NewStripe(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, cfg.Stripe.Currency, cfg.Stripe.APIURL)
	} else {
		sugar.Warn("STRIPE_SECRET_KEY is not set, card payments are disabled")
	}

	if cfg.Storage.Endpoint != "" {
		bucket, err := storage.NewBucket(storage.Config(cfg.Storage))
		if err != nil {
			sugar.Fatalw("storage initialization error", "error", err.Error())
		}
		deps.Media = bucket
	} else {
		sugar.Warn("STORAGE_ENDPOINT is not set, image uploads are disabled")
	}

	if cfg.RedisURL != "" {
		guard, err := idempotency.NewRedisGuard(ctx, cfg.RedisURL)
		if err != nil {
			sugar.Fatalw("redis initialization error", "error", err.Error())
		}
		defer guard.Close()
		deps.Events = guard
	}

	svc := service.NewService(repo, deps, service.Config{
		BaseURL:           cfg.BaseURL,
		AdminPasswordHash: []byte(cfg.AdminPasswordHash),
		Recipients:        cfg.Recipients(),
	})
	defer svc.Close()

	if cfg.SessionSecret == "" {
		sugar.Warn("SESSION_SECRET is not set, admin sessions will not survive a restart")
	}
	auth := middleware.NewAdminAuth(cfg.SessionSecret, cfg.SessionTTL, cfg.SecureCookies())
	h := handler.NewHandler(svc, logger, auth)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting wellnessreal server", "addr", cfg.RunAddress, "baseURL", cfg.BaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Errorw("application terminated with error", "error", err)
	}
}
