package main

import (
	"time"

	"dinebot/internal/dialog/handler"
	"dinebot/internal/dialog/service"
	"dinebot/internal/dialog/validator"
	"dinebot/pkg/app"
	"dinebot/pkg/config"
	kafka_middleware "dinebot/pkg/kafka/middleware"
)

const ServiceName = "dialog"

func main() {
	cfg := config.Load(ServiceName)
	if cfg.QueueBackend == config.QueueBackendRedis {
		cfg.SetRedis()
	}
	defer cfg.GracefulShutdown()

	metrics := kafka_middleware.NewMetrics()
	publisher, closeQueue, err := app.NewQueuePublisher(cfg, ServiceName, metrics)
	if err != nil {
		cfg.Log.Fatal("Failed to set up request queue", "backend", cfg.QueueBackend, "error", err)
	}

	slotValidator := validator.NewSlotValidator(cfg.DialogLocation, time.Now)
	dialogService := service.NewDialogService(slotValidator, publisher, cfg.Log)
	cfg.Log.Info("Dialog service initialized", "intent", service.DiningSuggestionsIntent)

	healthHandler := handler.NewHealthHandler(map[string]handler.Checker{
		"queue": app.QueueCheck(cfg),
	}, cfg.Log)
	metricsHandler := handler.NewMetricsHandler(map[string]handler.SnapshotFunc{
		"kafka": func() any { return metrics.Snapshot() },
	}, cfg.Log)

	application := app.NewApplication(cfg)
	application.OnShutdown(closeQueue)
	application.SetApp(handler.NewDialogHandler(dialogService, cfg.Log), healthHandler, metricsHandler)
	application.Run()
}
