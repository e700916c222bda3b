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

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/Slimpush/api-yamdb-final-master/pkg/api"
	"github.com/Slimpush/api-yamdb-final-master/pkg/auth"
	"github.com/Slimpush/api-yamdb-final-master/pkg/config"
	"github.com/Slimpush/api-yamdb-final-master/pkg/database"
	"github.com/Slimpush/api-yamdb-final-master/pkg/logger"
	"github.com/Slimpush/api-yamdb-final-master/pkg/mail"
	"github.com/Slimpush/api-yamdb-final-master/pkg/ratelimit"
	"github.com/Slimpush/api-yamdb-final-master/pkg/service"
	"github.com/Slimpush/api-yamdb-final-master/pkg/store"
	"github.com/Slimpush/api-yamdb-final-master/pkg/validation"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("service stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Format:      cfg.Logger.Format,
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
	})
	slog.SetDefault(log)
	log.Info("starting yamdb api", "env", cfg.App.Environment, "addr", cfg.Server.Addr)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return err
	}

	keys, err := auth.DeriveKeys(cfg.Auth.SecretKey)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenService(keys.AccessToken, cfg.Auth.AccessTokenTTL)
	if err != nil {
		return err
	}
	codes := auth.NewCodeGenerator(keys.ConfirmationCode, cfg.Auth.ConfirmationCodeTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limiter := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 10*time.Minute)
	defer limiter.Stop()

	group, ctx := errgroup.WithContext(ctx)
	mailer := newMailer(ctx, group, cfg.Mail, log)

	st := store.New(db)
	v := validation.New()
	server := api.NewServer(api.Deps{
		Store:       st,
		Accounts:    service.NewAccountService(st, codes, tokens, mailer, cfg.Mail.From, v, log),
		Users:       service.NewUserService(st, v, log),
		Catalog:     service.NewCatalogService(st, v, log),
		Reviews:     service.NewReviewService(st, v, log),
		Comments:    service.NewCommentService(st, v, log),
		AuthLimiter: limiter,
		Logger:      log,

		TrustedProxies: cfg.Server.TrustedProxies,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	group.Go(func() error {
		log.Info("http server listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		return err
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("shutdown complete")
	return nil
}

// newMailer picks the mail backend. The SMTP backend retries failed sends in
// the background until ctx is cancelled.
func newMailer(ctx context.Context, group *errgroup.Group, cfg config.MailConfig, log *slog.Logger) mail.Sender {
	if cfg.Backend != "smtp" {
		log.Info("mail backend: log")
		return mail.NewLogSender(log)
	}

	log.Info("mail backend: smtp", "host", cfg.Host, "port", cfg.Port)
	sender := mail.NewResilientSender(
		mail.NewSMTPSender(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		mail.ResilientConfig{
			RetryInterval: cfg.RetryInterval,
			MaxRetries:    cfg.MaxRetries,
		},
		log,
	)
	group.Go(func() error {
		sender.Run(ctx)
		return nil
	})
	return sender
}
