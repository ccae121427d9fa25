// Package autoeval evaluates sensor-triggered automations against fresh
// telemetry.
package autoeval

import (
	"context"

	"go.uber.org/zap"

	"homeglow/internal/eventbus"
	"homeglow/internal/models"
)

// Store is the persistence surface an evaluation pass needs.
type Store interface {
	ActiveAutomationsByTrigger(ctx context.Context, triggerType string) ([]models.Automation, error)
}

// Executor fires one automation.
type Executor interface {
	Execute(ctx context.Context, a models.Automation)
}

// Evaluator matches telemetry batches against active sensor automations and
// fires the ones whose condition holds.
type Evaluator struct {
	store  Store
	exec   Executor
	logger *zap.Logger
}

// New wires an evaluator.
func New(store Store, exec Executor, logger *zap.Logger) *Evaluator {
	return &Evaluator{store: store, exec: exec, logger: logger}
}

// Attach subscribes the evaluator to telemetry broadcasts on the bus.
func (e *Evaluator) Attach(bus eventbus.Bus) {
	bus.Subscribe(eventbus.EventSensorsBatch, e.onTelemetry)
}

func (e *Evaluator) onTelemetry(payload any) {
	var updates []models.SensorUpdate
	switch p := payload.(type) {
	case []models.SensorUpdate:
		updates = p
	case models.SensorUpdate:
		updates = []models.SensorUpdate{p}
	default:
		e.logger.Warn("evaluator received unexpected payload type")
		return
	}
	e.EvaluateBatch(context.Background(), updates)
}

// EvaluateBatch checks every update in the batch against every active
// sensor automation. Each matching update fires its automation: two updates
// for the same sensor in one batch fire it twice.
func (e *Evaluator) EvaluateBatch(ctx context.Context, updates []models.SensorUpdate) {
	if len(updates) == 0 {
		return
	}
	automations, err := e.store.ActiveAutomationsByTrigger(ctx, models.TriggerSensor)
	if err != nil {
		e.logger.Error("evaluator: load sensor automations failed", zap.Error(err))
		return
	}
	if len(automations) == 0 {
		return
	}

	for _, update := range updates {
		for _, a := range automations {
			if !matches(a, update) {
				continue
			}
			e.logger.Info("sensor automation triggered",
				zap.String("automation_id", a.ID),
				zap.String("sensor_id", update.SensorID),
				zap.String("property", a.SensorTrigger.Condition.Property),
			)
			e.exec.Execute(ctx, a)
		}
	}
}

// matches reports whether one update satisfies one automation's condition.
// The only comparator is >=; an update that lacks the condition's property
// never matches.
func matches(a models.Automation, update models.SensorUpdate) bool {
	trigger := a.SensorTrigger
	if trigger == nil {
		return false
	}
	if trigger.SensorID != update.SensorID || trigger.SensorKind != update.Kind {
		return false
	}
	value, ok := update.Data[trigger.Condition.Property]
	if !ok {
		return false
	}
	return value >= trigger.Condition.TriggerValue
}
