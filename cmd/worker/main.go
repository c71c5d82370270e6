package main

import (
	"context"
	"log"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/Keyring-Network/keyring-notes/internal/app"
	"github.com/Keyring-Network/keyring-notes/internal/config"
	"github.com/Keyring-Network/keyring-notes/internal/logging"
	"github.com/Keyring-Network/keyring-notes/internal/workflows"
)

var (
	loadConfig = func() (config.Config, error) {
		return config.Load(), nil
	}
	newLogger       = logging.New
	dialTemporal    = client.Dial
	newRuntime      = app.New
	newWorker       = worker.New
	workerInterrupt = worker.InterruptCh
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	temporalClient, err := dialTemporal(client.Options{
		HostPort: cfg.TemporalAddress,
	})
	if err != nil {
		return err
	}
	if temporalClient != nil {
		defer temporalClient.Close()
	}

	rt, err := newRuntime(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	taskQueue := cfg.TemporalTaskQueue
	if taskQueue == "" {
		taskQueue = workflows.DefaultTaskQueue
	}
	w := newWorker(temporalClient, taskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.PlanningWorkflow)
	w.RegisterActivity(workflows.NewPlanningActivities(rt.Assistant, logger))

	logger.Info("planning worker started", zap.String("task_queue", taskQueue))
	return w.Run(workerInterrupt())
}
