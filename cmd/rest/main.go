package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"visuallm-be/internal/bootstrap"
	"visuallm-be/internal/config"
	"visuallm-be/internal/pkg/logger"
	"visuallm-be/internal/server"
	"visuallm-be/internal/tracer"
	"visuallm-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg := config.Load()
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	defer sysLogger.Sync()

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(ctx, cfg.App, sysLogger)
	defer shutdownTracer(context.Background())

	// 3. Initialize Database (optional)
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment != "production")
		if err != nil {
			sysLogger.Error("Main", "Unable to connect to database", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
		gormDB = db
	}

	// 4. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(ctx, gormDB, cfg, sysLogger)
	if err != nil {
		sysLogger.Error("Main", "Bootstrap failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer container.Close()

	// 5. Start Background Services
	if err := container.ConsumerService.Consume(ctx); err != nil {
		sysLogger.Error("Main", "Consumer failed to start", map[string]interface{}{"error": err.Error()})
	}

	// 6. Run Server
	srv := server.New(cfg, container)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			sysLogger.Warn("Main", "Shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	if err := srv.Run(); err != nil {
		sysLogger.Error("Main", "Server stopped", map[string]interface{}{"error": err.Error()})
	}
}
