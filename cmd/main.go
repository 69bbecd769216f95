package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auth_backend/internal/auth"
	"auth_backend/internal/config"
	"auth_backend/internal/http_server/handlers/contacts"
	"auth_backend/internal/http_server/handlers/login"
	"auth_backend/internal/http_server/handlers/logout"
	"auth_backend/internal/http_server/handlers/refresh"
	"auth_backend/internal/http_server/handlers/register"
	resetpassword "auth_backend/internal/http_server/handlers/reset_password"
	sendresetemail "auth_backend/internal/http_server/handlers/send_reset_email"
	sl "auth_backend/internal/lib/logger"
	"auth_backend/internal/lib/tokens"
	"auth_backend/internal/middleware/authenticate"
	rateLimit "auth_backend/internal/middleware/ratelimit"
	"auth_backend/internal/notify"
	"auth_backend/internal/rabbitmq"
	"auth_backend/internal/storage/postgres"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting auth backend", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", sl.Err(err))
		os.Exit(1)
	}
	defer storage.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", sl.Err(err))
		os.Exit(1)
	}
	defer msgBroker.Close()

	issuer := tokens.NewIssuer(
		cfg.Tokens.AccessTokenTTL,
		cfg.Tokens.RefreshTokenTTL,
		cfg.Tokens.ResetTokenTTL,
		cfg.Tokens.ResetTokenSecret,
	)

	notifier := notify.New(msgBroker, cfg.AppDomain)

	authService := auth.New(log, storage, storage, notifier, issuer)

	router := setupRouter(log, authService, storage)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", sl.Err(err))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Main service stopped")
}

func setupRouter(
	log *slog.Logger,
	authService *auth.Auth,
	storage *postgres.PostgresRepo,
) *chi.Mux {
	validate := validator.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.With(rateLimit.Register()).Post("/register",
		register.New(log, validate, authService),
	)
	r.With(rateLimit.Login()).Post("/login",
		login.New(log, validate, authService),
	)
	r.With(rateLimit.Refresh()).Post("/refresh",
		refresh.New(log, authService),
	)
	r.With(rateLimit.Logout()).Post("/logout",
		logout.New(log, authService),
	)
	r.With(rateLimit.SendResetEmail()).Post("/send-reset-email",
		sendresetemail.New(log, validate, authService),
	)
	r.With(rateLimit.ResetPassword()).Post("/reset-pwd",
		resetpassword.New(log, validate, authService),
	)

	r.Group(func(r chi.Router) {
		r.Use(authenticate.New(log, storage))

		r.Get("/contacts", contacts.NewList(log, storage))
		r.Get("/contacts/{contactID}", contacts.NewByID(log, storage))
	})

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
