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

	"loginpanel/internal/config"
	"loginpanel/internal/database"
	"loginpanel/internal/logger"
	"loginpanel/internal/server"
	"loginpanel/internal/services"
	"loginpanel/internal/validator"
)

// @title           Login Panel API
// @version         1.0
// @description     Two-factor login: password, then a single-use TOTP challenge, then an opaque session token.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

const shutdownTimeout = 10 * time.Second

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("failed to close database", "error", err)
		}
	}()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	db := dbManager.DB()
	credentialService := services.NewCredentialService(db, appConfig.BcryptCost, services.TotpSettings{
		Issuer: appConfig.TotpIssuer,
		Skew:   appConfig.TotpSkew,
	})
	attemptService := services.NewAttemptService(db)
	lockoutService := services.NewLockoutService(db, attemptService, services.LockoutSettings{
		Threshold: appConfig.LockoutThreshold,
		Window:    appConfig.LockoutWindow,
		Duration:  appConfig.LockoutDuration,
	})
	tokenService := services.NewTokenService(db, services.TokenSettings{
		ChallengeTTL: appConfig.ChallengeTTL,
		SessionTTL:   appConfig.SessionTTL,
	})
	authService := services.NewAuthService(credentialService, attemptService, lockoutService, tokenService, services.AuthSettings{
		RevealUnknownSession: appConfig.LogoutRevealUnknown,
	})

	router := server.NewRouter(server.Options{
		Auth:        authService,
		Credentials: credentialService,
		Audit:       services.NewAuditService(db),
		Ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		CORSOrigin:       appConfig.CORSOrigin,
		AdminAPIKey:      appConfig.AdminAPIKey,
		ResponseDelayMin: appConfig.ResponseDelayMin,
		ResponseDelayMax: appConfig.ResponseDelayMax,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := server.NewSweeper(tokenService, lockoutService, appConfig.SweepInterval)
	go sweeper.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting login panel server on port %s", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("Server stopped")
	return nil
}
