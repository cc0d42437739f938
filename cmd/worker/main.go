package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/papertrade/engine/config"
	postgres_wrapper "github.com/papertrade/engine/pkg/infra/postgres"
	"github.com/papertrade/engine/pkg/kafka"
	"github.com/papertrade/engine/pkg/logging"
	"github.com/papertrade/engine/pkg/repo"
	"github.com/papertrade/engine/pkg/worker"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	configBytes, err := json.MarshalIndent(cfg, "", "   ")
	if err != nil {
		zap.S().Warnf("could not convert config to JSON: %v", err)
	} else {
		zap.S().Debugf("load config %s", string(configBytes))
	}

	log := logging.NewLogger(logging.INFO)
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	db, err := postgres_wrapper.InitPostgres(cfg.EngineDB)
	if err != nil {
		zap.S().Errorf("init db fail with err: %v", err)
		panic(err)
	}

	sqlRepo := repo.NewRepo(db)

	cg := kafka.NewConsumerGroup(kafka.ConsumerConfig{
		Brokers:     cfg.Kafka.Brokers,
		GroupID:     cfg.Kafka.GroupID,
		Topic:       cfg.Kafka.EventTopic,
		WorkerCount: cfg.Kafka.WorkerCount,
		MaxRetries:  cfg.Kafka.MaxRetries,
	})
	defer cg.Close()

	w := worker.NewWorker(sqlRepo, log)
	go func() {
		if err := w.Run(ctx, cg); err != nil && err != context.Canceled {
			zap.S().Errorf("worker stopped: %v", err)
		}
	}()

	fmt.Println("Worker started. Press Ctrl+C to exit.")

	<-sigs
	fmt.Println("Shutting down...")

	cancel()

	fmt.Println("Exited cleanly.")
}
