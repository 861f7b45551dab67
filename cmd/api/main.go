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

	"github.com/gin-gonic/gin"

	"moneta/internal/app"
	"moneta/internal/config"
	"moneta/internal/logger"
	"moneta/internal/scheduler"
	"moneta/internal/server"
	"moneta/internal/validator"
)

// @title           Moneta API
// @version         1.0
// @description     Moneta is a multi-tenant personal finance API with recurring transactions and period budgets.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description Pipeline API key for internal endpoints.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.InitWithLevel(os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))
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
	if appConfig.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	validator.Register()

	application, err := app.New(appConfig)
	if err != nil {
		return err
	}
	defer application.Close()

	router := server.New(application.Services, server.Options{
		PipelineAPIKey: appConfig.PipelineAPIKey,
		EnableSwagger:  appConfig.Env != "production",
		RequestLogging: true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if appConfig.RecurringInterval > 0 {
		sched, err := scheduler.New(application.Services.Processor, appConfig.RecurringInterval)
		if err != nil {
			return err
		}
		go func() {
			if err := sched.Run(ctx); err != nil {
				log.Errorw("Recurring scheduler exited", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting Moneta API server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
