package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/redmonkez12/go-auth-verify/docs" // Swagger docs (generated)
	"github.com/redmonkez12/go-auth-verify/internal/app"
	"github.com/redmonkez12/go-auth-verify/internal/auth"
	"github.com/redmonkez12/go-auth-verify/internal/config"
	"github.com/redmonkez12/go-auth-verify/internal/database"
	httpServer "github.com/redmonkez12/go-auth-verify/internal/http"
	"github.com/redmonkez12/go-auth-verify/internal/logging"
	"github.com/redmonkez12/go-auth-verify/internal/web"
)

// @title           Go Auth Verify
// @version         1.0
// @description     Email and password authentication with emailed verification codes.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"email_provider", cfg.Email.Provider,
		"delivery_policy", cfg.Email.DeliveryPolicy,
	)

	ctx := context.Background()

	deps, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, deps.SQL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	if deps.Worker != nil {
		if err := deps.Worker.Start(); err != nil {
			return err
		}
		defer deps.Worker.Shutdown()
	}

	pages, err := web.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to load page templates: %w", err)
	}

	authMiddleware := auth.NewMiddleware(deps.Sessions, deps.Store.Users())
	authHandler := auth.NewHandler(
		deps.Service,
		deps.Sessions,
		authMiddleware,
		deps.Limiter,
		pages,
		cfg.Verification.ResendCooldown,
	)

	router, err := httpServer.NewRouter(cfg, authHandler, logger)
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}
