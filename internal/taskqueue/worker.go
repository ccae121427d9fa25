// Package taskqueue runs asynchronous emulator commands over asynq so that
// bursts of control traffic are absorbed off the request path.
package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"homeglow/internal/emulator"
	"homeglow/internal/models"
)

var (
	client *asynq.Client
	server *asynq.Server
	svc    *emulator.Service
	logger *zap.Logger
)

// Setup binds the queue to Redis and the emulation service. Call once at
// startup before StartWorkers or any Enqueue helper.
func Setup(redisAddr string, service *emulator.Service, log *zap.Logger) {
	client = asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	server = asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{Concurrency: 5},
	)
	svc = service
	logger = log
}

// StartWorkers begins processing queued tasks in the background.
func StartWorkers() error {
	if server == nil {
		return fmt.Errorf("task queue not initialized")
	}
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeDeviceControl, handleDeviceControl)
	mux.HandleFunc(TypeAutomationNotice, handleAutomationNotice)

	go func() {
		if err := server.Run(mux); err != nil {
			logger.Error("task queue server stopped", zap.Error(err))
		}
	}()
	logger.Info("task queue workers started")
	return nil
}

// StopWorkers shuts the queue down, waiting for in-flight tasks.
func StopWorkers() {
	if server != nil {
		server.Shutdown()
	}
	if client != nil {
		client.Close()
	}
}

func handleDeviceControl(ctx context.Context, t *asynq.Task) error {
	var req models.ControlRequest
	if err := json.Unmarshal(t.Payload(), &req); err != nil {
		return fmt.Errorf("decode device control payload: %w", err)
	}
	if !svc.ControlDevice(ctx, req) {
		return fmt.Errorf("device control failed: %s %s", req.DeviceID, req.Action)
	}
	return nil
}

func handleAutomationNotice(ctx context.Context, t *asynq.Task) error {
	var notice models.AutomationNotice
	if err := json.Unmarshal(t.Payload(), &notice); err != nil {
		return fmt.Errorf("decode automation notice payload: %w", err)
	}
	return svc.NotifyAutomationChange(ctx, notice)
}
