package main

import (
	"context"
	"os/signal"
	"syscall"

	"dinebot/internal/fulfillment/worker"
	"dinebot/internal/restaurants/repository"
	"dinebot/pkg/app"
	"dinebot/pkg/config"
	kafka_middleware "dinebot/pkg/kafka/middleware"
	"dinebot/pkg/notify"
)

const ServiceName = "fulfillment"

func main() {
	cfg := config.Load(ServiceName)
	if err := cfg.ValidateWorker(); err != nil {
		cfg.Log.Fatal(err.Error())
	}

	cfg.SetMongo()
	if cfg.QueueBackend == config.QueueBackendRedis {
		cfg.SetRedis()
	}
	if cfg.SearchBackend == config.SearchBackendElasticsearch {
		cfg.SetElasticsearch()
	}
	defer cfg.GracefulShutdown()

	store := repository.NewMongoRestaurantRepository(cfg)
	index := newSearchIndex(cfg, store)
	notifier := newNotifier(cfg)

	metrics := kafka_middleware.NewMetrics()
	workers := make([]*worker.Worker, 0, cfg.WorkerConcurrency)
	for i := 0; i < cfg.WorkerConcurrency; i++ {
		receiver, closeQueue, err := app.NewQueueReceiver(cfg, metrics)
		if err != nil {
			cfg.Log.Fatal("Failed to set up request queue", "backend", cfg.QueueBackend, "error", err)
		}
		defer closeQueue()

		workers = append(workers, worker.NewWorker(receiver, index, store, notifier, cfg.Log,
			worker.WithWaitTime(cfg.QueueWaitTime),
		))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := worker.NewRunner(workers, cfg.WorkerPollInterval, cfg.Log)
	if err := runner.Run(ctx); err != nil {
		cfg.Log.Error("Fulfillment worker stopped with error", "error", err)
	}
	cfg.Log.Info("Fulfillment worker shut down", "kafka", metrics.Snapshot())
}

func newSearchIndex(cfg *config.Config, store *repository.MongoRestaurantRepository) repository.SearchIndex {
	if cfg.SearchBackend == config.SearchBackendMongo {
		cfg.Log.Info("Searching restaurants in MongoDB")
		return store
	}
	cfg.Log.Info("Searching restaurants in Elasticsearch", "index", cfg.ElasticsearchIndex)
	return repository.NewElasticSearchIndex(cfg.Client.Elastic, cfg.ElasticsearchIndex, cfg.ReadTimeout)
}

func newNotifier(cfg *config.Config) notify.Notifier {
	if cfg.NotifierBackend == config.NotifierBackendLog {
		cfg.Log.Warn("SMS delivery disabled, suggestions are only logged")
		return notify.NewLogNotifier(cfg.Log)
	}
	return notify.NewTwilioNotifier(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.Log)
}
