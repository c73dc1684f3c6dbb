package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tasktracker/internal/config"
	"tasktracker/internal/handler"
	"tasktracker/internal/httpserver"
	"tasktracker/internal/repository"
	authsvc "tasktracker/internal/service/auth"
	"tasktracker/internal/service/export"
	tagsvc "tasktracker/internal/service/tag"
	tasksvc "tasktracker/internal/service/task"
	pkgconfig "tasktracker/pkg/config"
	"tasktracker/pkg/db"
	"tasktracker/pkg/logger"
	"tasktracker/pkg/otel"
)

func main() {
	configPath := flag.String("config", pkgconfig.GetEnv("CONFIG_PATH", config.DefaultPath), "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.Log.Level)
	defer log.Sync()

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal("Invalid timezone", zap.Error(err))
	}

	log.Info("Starting tasktracker server...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("timezone", loc.String()),
	)

	shutdownTracing, err := otel.Init(cfg.Otel, log)
	if err != nil {
		log.Warn("Tracing disabled", zap.Error(err))
	} else {
		defer shutdownTracing()
	}

	// DB
	log.Info("Initializing database connection...")
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(migrateCtx, dbConn, log)
	migrateCancel()
	if err != nil {
		log.Fatal("Failed to apply schema", zap.Error(err))
	}

	taskRepo := repository.NewTaskRepository(dbConn, log)
	tagRepo := repository.NewTagRepository(dbConn, log)
	userRepo := repository.NewUserRepository(dbConn)

	taskService := tasksvc.NewService(taskRepo, tagRepo, loc, log)

	exporter := export.NewExporter(taskService, loc, log)
	authService := authsvc.NewService(userRepo, cfg.JWT.Secret, cfg.TokenTTL(), log)
	tagService := tagsvc.NewService(tagRepo, log)

	router := httpserver.NewRouter(httpserver.Handlers{
		Auth: handler.NewAuthHandler(authService, log),
		Task: handler.NewTaskHandler(taskService, exporter, log),
		Tag:  handler.NewTagHandler(tagService, log),
	}, cfg.JWT.Secret, dbConn, log)

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down HTTP server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("tasktracker server shutdown complete")
}
