package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	mqcontracts "tasktracker/contracts/mq"
	"tasktracker/internal/config"
	"tasktracker/internal/mqhandler"
	"tasktracker/internal/repository"
	pkgconfig "tasktracker/pkg/config"
	"tasktracker/pkg/circuitbreaker"
	"tasktracker/pkg/db"
	"tasktracker/pkg/logger"
	"tasktracker/pkg/mq"
	"tasktracker/pkg/outbox"
	"tasktracker/pkg/redis"
	"tasktracker/pkg/util"
)

const (
	auditQueue = "task.completed.audit.q"
	dedupTTL   = 24 * time.Hour
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

	log.Info("Starting tasktracker worker...",
		zap.String("mq_url", cfg.MQ.URL),
		zap.String("redis_addr", cfg.Redis.Addr),
	)

	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	rdb, err := redis.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to init Redis", zap.Error(err))
	}
	defer rdb.Close()

	// Outbox dispatcher: publishes events committed by the API server.
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	breaker := circuitbreaker.New(circuitbreaker.DefaultConfig())
	dispatcher := outbox.NewDispatcher(outbox.NewRepository(dbConn), mq.NewGuardedPublisher(publisher, breaker), log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Start(ctx)
	}()

	auditRepo := repository.NewAuditRepository(dbConn, log)
	deduper := util.NewDeduper(rdb, dedupTTL, log)
	auditHandler := mqhandler.NewTaskCompletedAuditHandler(deduper, auditRepo, log)

	log.Info("Initializing MQ consumer...",
		zap.String("queue", auditQueue),
		zap.String("routing_key", mqcontracts.RoutingKeyTaskCompleted),
	)
	consumer, err := mq.NewConsumer(cfg.MQ.URL, auditQueue, mqcontracts.RoutingKeyTaskCompleted, log)
	if err != nil {
		log.Fatal("Failed to init consumer", zap.Error(err))
	}
	defer consumer.Close()

	consumer.SetHandler(auditHandler.Handle)

	consumerDone := make(chan error, 1)
	go func() {
		log.Info("Starting task.completed consumer...")
		consumerDone <- consumer.StartConsuming()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Stopping MQ consumer...")
		consumer.Stop()
	case err := <-consumerDone:
		// The broker closed the delivery channel; exit so the supervisor
		// restarts the worker with a fresh connection.
		log.Error("Audit consumer stopped unexpectedly", zap.Error(err))
	}

	cancel()
	<-dispatcherDone
	log.Info("Worker shutdown complete")
}
