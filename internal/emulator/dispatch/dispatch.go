// Package dispatch turns a fired automation into device actuations. Both
// the time scheduler and the sensor evaluator execute automations through
// it.
package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"homeglow/internal/eventbus"
	"homeglow/internal/models"
)

// Applier executes one action against one device.
type Applier interface {
	Apply(ctx context.Context, deviceID, action string, params models.ActionParams) bool
}

// Store is the persistence surface an automation run needs.
type Store interface {
	DeviceByID(ctx context.Context, id string) (*models.Device, error)
	AppendDeviceLog(ctx context.Context, e models.DeviceLogEntry) error
}

// Dispatcher executes an automation's device action against every target
// device.
type Dispatcher struct {
	store  Store
	act    Applier
	bus    eventbus.Bus
	logger *zap.Logger

	// Clock is overridable for tests.
	Clock func() time.Time
}

// New wires a dispatcher.
func New(store Store, act Applier, bus eventbus.Bus, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		act:    act,
		bus:    bus,
		logger: logger,
		Clock:  time.Now,
	}
}

// Execute fires the automation once: it maps the stored settings to a
// concrete action, applies it per target device, and emits one summary
// event. A device that fails or mismatches the declared kind is skipped
// without aborting the rest.
func (d *Dispatcher) Execute(ctx context.Context, a models.Automation) {
	action, params, ok := actionFor(a.DeviceAction.DeviceKind, a.DeviceAction.Settings)
	if !ok {
		d.logger.Warn("automation has no applicable action",
			zap.String("automation_id", a.ID),
			zap.String("device_kind", string(a.DeviceAction.DeviceKind)),
		)
		return
	}

	now := d.Clock()
	succeeded := 0
	for _, deviceID := range a.DeviceAction.DeviceIDs {
		dev, err := d.store.DeviceByID(ctx, deviceID)
		if err != nil || dev == nil {
			d.logger.Warn("automation target not found",
				zap.String("automation_id", a.ID),
				zap.String("device_id", deviceID),
				zap.Error(err),
			)
			continue
		}
		if dev.Kind != a.DeviceAction.DeviceKind {
			d.logger.Warn("automation target kind mismatch",
				zap.String("automation_id", a.ID),
				zap.String("device_id", deviceID),
				zap.String("expected", string(a.DeviceAction.DeviceKind)),
				zap.String("actual", string(dev.Kind)),
			)
			continue
		}
		if !d.act.Apply(ctx, deviceID, action, params) {
			continue
		}
		succeeded++

		err = d.store.AppendDeviceLog(ctx, models.DeviceLogEntry{
			ID:         uuid.NewString(),
			HomeID:     dev.HomeID,
			RoomID:     dev.RoomID,
			DeviceID:   dev.ID,
			Kind:       dev.Kind,
			Type:       models.LogAutomationAction,
			Action:     action,
			Parameters: &params,
			Success:    true,
			Details: map[string]any{
				"automationId":   a.ID,
				"automationName": a.Name,
				"triggerType":    a.TriggerType,
			},
			Timestamp: now,
		})
		if err != nil {
			d.logger.Error("automation log write failed",
				zap.String("automation_id", a.ID),
				zap.String("device_id", dev.ID),
				zap.Error(err),
			)
		}
	}

	d.bus.Emit(eventbus.EventAutomationExecuted, models.AutomationExecuted{
		AutomationID: a.ID,
		Name:         a.Name,
		TriggerType:  a.TriggerType,
		Timestamp:    now,
		DeviceKind:   a.DeviceAction.DeviceKind,
		DeviceCount:  succeeded,
	})
	d.logger.Info("automation executed",
		zap.String("automation_id", a.ID),
		zap.String("name", a.Name),
		zap.String("action", action),
		zap.Int("devices", succeeded),
	)
}

// actionFor maps an automation's stored settings bag to the single action
// the target kind understands. ok is false when no setting applies.
func actionFor(kind models.DeviceKind, s models.ActionSettings) (string, models.ActionParams, bool) {
	switch kind {
	case models.DeviceSmartPlug, models.DeviceHeatingValve, models.DeviceCamera:
		if s.IsActive != nil {
			return powerAction(*s.IsActive), models.ActionParams{}, true
		}

	case models.DeviceSmartLight:
		switch {
		case s.IsActive != nil:
			return powerAction(*s.IsActive), models.ActionParams{}, true
		case s.Brightness != nil:
			return "setBrightness", models.ActionParams{Brightness: s.Brightness}, true
		case s.Color != "":
			return "setColor", models.ActionParams{Color: s.Color}, true
		}

	case models.DeviceThermostat:
		switch {
		case s.Temperature != nil:
			return "setTemperature", models.ActionParams{Temperature: s.Temperature, Mode: s.Mode}, true
		case s.Mode != "":
			return "setMode", models.ActionParams{Mode: s.Mode}, true
		case s.IsActive != nil:
			return "setPower", models.ActionParams{Power: s.IsActive}, true
		}

	case models.DeviceSmartLock:
		if s.DoorState != "" {
			if s.DoorState == "open" {
				return "unlock", models.ActionParams{}, true
			}
			return "lock", models.ActionParams{}, true
		}

	case models.DeviceGate:
		if s.Position != "" {
			if s.Position == "open" {
				return "open", models.ActionParams{}, true
			}
			return "close", models.ActionParams{}, true
		}

	case models.DeviceIrrigationSystem:
		if s.IsActive != nil {
			if *s.IsActive {
				return "startIrrigation", models.ActionParams{WaterFlow: s.WaterFlow, Duration: s.Duration}, true
			}
			return "stopIrrigation", models.ActionParams{}, true
		}

	case models.DeviceVentilation, models.DeviceAirPurifier:
		switch {
		case s.IsActive != nil:
			return powerAction(*s.IsActive), models.ActionParams{}, true
		case s.FanSpeed != nil:
			return "setFanSpeed", models.ActionParams{FanSpeed: s.FanSpeed}, true
		case s.Mode != "" && kind == models.DeviceAirPurifier:
			return "setMode", models.ActionParams{Mode: s.Mode}, true
		}
	}
	return "", models.ActionParams{}, false
}

func powerAction(on bool) string {
	if on {
		return "turnOn"
	}
	return "turnOff"
}
