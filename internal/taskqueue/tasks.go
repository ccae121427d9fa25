package taskqueue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"homeglow/internal/models"
)

// Task type names.
const (
	TypeDeviceControl    = "emulator:device_control"
	TypeAutomationNotice = "emulator:automation_notice"
)

// EnqueueDeviceControl queues a device control request for asynchronous
// execution.
func EnqueueDeviceControl(req models.ControlRequest) error {
	if client == nil {
		return fmt.Errorf("task queue not initialized")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeDeviceControl, payload)
	_, err = client.Enqueue(task, asynq.MaxRetry(3), asynq.Timeout(10*time.Second))
	return err
}

// EnqueueAutomationNotice queues an automation lifecycle notification.
func EnqueueAutomationNotice(notice models.AutomationNotice) error {
	if client == nil {
		return fmt.Errorf("task queue not initialized")
	}
	payload, err := json.Marshal(notice)
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeAutomationNotice, payload)
	_, err = client.Enqueue(task, asynq.MaxRetry(3), asynq.Timeout(10*time.Second))
	return err
}
