// Package actuator applies control actions to devices and records the
// resulting state transitions.
package actuator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"homeglow/internal/emulator/valuegen"
	"homeglow/internal/eventbus"
	"homeglow/internal/models"
)

// Store is the persistence surface an actuation needs.
type Store interface {
	DeviceByID(ctx context.Context, id string) (*models.Device, error)
	RoomKind(ctx context.Context, roomID string) (string, error)
	SaveDevice(ctx context.Context, dev models.Device) error
	AppendDeviceLog(ctx context.Context, e models.DeviceLogEntry) error
}

// StateCache mirrors the device state for the status surface.
type StateCache interface {
	SetDeviceState(ctx context.Context, dev models.Device) error
}

// Actuator executes single-device control actions.
type Actuator struct {
	store  Store
	cache  StateCache
	bus    eventbus.Bus
	gen    *valuegen.Generator
	logger *zap.Logger

	// Clock is overridable for tests.
	Clock func() time.Time
}

// New wires an actuator.
func New(store Store, cache StateCache, bus eventbus.Bus, gen *valuegen.Generator, logger *zap.Logger) *Actuator {
	return &Actuator{
		store:  store,
		cache:  cache,
		bus:    bus,
		gen:    gen,
		logger: logger,
		Clock:  time.Now,
	}
}

// Apply runs one action against one device and reports success. An unknown
// action for the device's kind is recorded as a successful no-op. A missing
// device yields false without a log row.
func (a *Actuator) Apply(ctx context.Context, deviceID, action string, params models.ActionParams) bool {
	dev, err := a.store.DeviceByID(ctx, deviceID)
	if err != nil || dev == nil {
		a.logger.Warn("actuator: device not found",
			zap.String("device_id", deviceID),
			zap.String("action", action),
			zap.Error(err),
		)
		return false
	}

	now := a.Clock()
	prev := models.DeviceSnapshot{IsActive: dev.IsActive, State: dev.State}

	applied, err := a.mutate(ctx, dev, action, params, now)
	if err != nil {
		a.logFailure(ctx, *dev, action, params, prev, err, now)
		return false
	}

	if !applied {
		// Unsupported action for this kind: record and carry on.
		a.logger.Warn("actuator: unsupported action ignored",
			zap.String("device_id", dev.ID),
			zap.String("kind", string(dev.Kind)),
			zap.String("action", action),
		)
		a.appendLog(ctx, *dev, action, params, prev, prev, models.LogStateChange, now)
		return true
	}

	dev.LastUpdate = now
	next := models.DeviceSnapshot{IsActive: dev.IsActive, State: dev.State}

	if err := a.store.SaveDevice(ctx, *dev); err != nil {
		a.logFailure(ctx, *dev, action, params, prev, fmt.Errorf("save device: %w", err), now)
		return false
	}
	if err := a.cache.SetDeviceState(ctx, *dev); err != nil {
		a.logger.Warn("actuator: cache device state failed",
			zap.String("device_id", dev.ID), zap.Error(err))
	}

	logType := models.LogStateChange
	if prev.IsActive != next.IsActive {
		logType = models.LogPowerChange
	}
	if !a.appendLog(ctx, *dev, action, params, prev, next, logType, now) {
		return true
	}

	a.bus.Emit(eventbus.EventDeviceUpdate, models.DeviceActuated{
		DeviceID:    dev.ID,
		Kind:        dev.Kind,
		HomeID:      dev.HomeID,
		RoomID:      dev.RoomID,
		IsActive:    dev.IsActive,
		CurrentLoad: dev.CurrentLoad(),
		Action:      action,
		Parameters:  params,
		Timestamp:   now,
	})
	return true
}

// mutate applies the action to the in-memory device. It returns false when
// the action is not in the kind's vocabulary, and an error when the action
// is known but its required parameter is missing.
func (a *Actuator) mutate(ctx context.Context, dev *models.Device, action string, params models.ActionParams, now time.Time) (bool, error) {
	switch dev.Kind {
	case models.DeviceSmartPlug:
		switch action {
		case "turnOn":
			a.setPlugPower(ctx, dev, true, now)
		case "turnOff":
			a.setPlugPower(ctx, dev, false, now)
		case "toggle":
			a.setPlugPower(ctx, dev, !dev.IsActive, now)
		case "setPower":
			if params.Power == nil {
				return false, fmt.Errorf("setPower requires power parameter")
			}
			a.setPlugPower(ctx, dev, *params.Power, now)
		default:
			return false, nil
		}
		return true, nil

	case models.DeviceThermostat:
		switch action {
		case "setTemperature":
			if params.Temperature == nil {
				return false, fmt.Errorf("setTemperature requires temperature parameter")
			}
			dev.State.TargetTemperature = params.Temperature
			if params.Mode != "" {
				dev.State.Mode = params.Mode
			}
		case "setMode":
			if params.Mode == "" {
				return false, fmt.Errorf("setMode requires mode parameter")
			}
			dev.State.Mode = params.Mode
		case "turnOn":
			dev.IsActive = true
		case "turnOff":
			dev.IsActive = false
		case "toggle":
			dev.IsActive = !dev.IsActive
		case "setPower":
			if params.Power == nil {
				return false, fmt.Errorf("setPower requires power parameter")
			}
			dev.IsActive = *params.Power
		default:
			return false, nil
		}
		return true, nil

	case models.DeviceHeatingValve:
		switch action {
		case "turnOn":
			dev.IsActive = true
		case "turnOff":
			dev.IsActive = false
		case "toggle":
			dev.IsActive = !dev.IsActive
		case "setPower":
			if params.Power == nil {
				return false, fmt.Errorf("setPower requires power parameter")
			}
			dev.IsActive = *params.Power
		default:
			return false, nil
		}
		return true, nil

	case models.DeviceSmartLock:
		switch action {
		case "lock":
			dev.State.DoorState = "closed"
		case "unlock":
			dev.State.DoorState = "open"
		case "toggle":
			if dev.State.DoorState == "open" {
				dev.State.DoorState = "closed"
			} else {
				dev.State.DoorState = "open"
			}
		default:
			return false, nil
		}
		return true, nil

	case models.DeviceGate:
		switch action {
		case "open":
			dev.State.Position = "open"
		case "close":
			dev.State.Position = "closed"
		case "toggle":
			if dev.State.Position == "open" {
				dev.State.Position = "closed"
			} else {
				dev.State.Position = "open"
			}
		default:
			return false, nil
		}
		return true, nil

	case models.DeviceIrrigationSystem:
		switch action {
		case "startIrrigation":
			dev.IsActive = true
			flow := 10.0
			if params.WaterFlow != nil {
				flow = *params.WaterFlow
			}
			dev.State.WaterFlow = &flow
		case "stopIrrigation":
			dev.IsActive = false
			zero := 0.0
			dev.State.WaterFlow = &zero
		default:
			return false, nil
		}
		return true, nil

	case models.DeviceVentilation:
		switch action {
		case "turnOn":
			dev.IsActive = true
		case "turnOff":
			dev.IsActive = false
		case "setFanSpeed":
			if params.FanSpeed == nil {
				return false, fmt.Errorf("setFanSpeed requires fanSpeed parameter")
			}
			dev.State.FanSpeed = params.FanSpeed
		default:
			return false, nil
		}
		return true, nil

	case models.DeviceAirPurifier:
		switch action {
		case "turnOn":
			dev.IsActive = true
		case "turnOff":
			dev.IsActive = false
		case "setMode":
			if params.Mode == "" {
				return false, fmt.Errorf("setMode requires mode parameter")
			}
			dev.State.Mode = params.Mode
		case "setFanSpeed":
			if params.FanSpeed == nil {
				return false, fmt.Errorf("setFanSpeed requires fanSpeed parameter")
			}
			dev.State.FanSpeed = params.FanSpeed
		default:
			return false, nil
		}
		return true, nil

	case models.DeviceCamera:
		switch action {
		case "turnOn":
			dev.IsActive = true
		case "turnOff":
			dev.IsActive = false
		case "setResolution":
			if params.Width == nil || params.Height == nil {
				return false, fmt.Errorf("setResolution requires width and height parameters")
			}
			dev.State.ResolutionWidth = params.Width
			dev.State.ResolutionHeight = params.Height
		default:
			return false, nil
		}
		return true, nil

	case models.DeviceSmartLight:
		switch action {
		case "turnOn":
			dev.IsActive = true
		case "turnOff":
			dev.IsActive = false
		case "toggle":
			dev.IsActive = !dev.IsActive
		case "setBrightness":
			if params.Brightness == nil {
				return false, fmt.Errorf("setBrightness requires brightness parameter")
			}
			dev.State.Brightness = params.Brightness
		case "setColor":
			if params.Color == "" {
				return false, fmt.Errorf("setColor requires color parameter")
			}
			dev.State.Color = params.Color
		default:
			return false, nil
		}
		return true, nil

	default:
		return false, nil
	}
}

// setPlugPower flips a plug's power flag and regenerates its load for the
// new state.
func (a *Actuator) setPlugPower(ctx context.Context, dev *models.Device, on bool, now time.Time) {
	dev.IsActive = on
	var load float64
	if on {
		roomKind, err := a.store.RoomKind(ctx, dev.RoomID)
		if err != nil {
			roomKind = "custom"
		}
		load = a.gen.PlugLoad(roomKind, true, valuegen.SnapshotAt(now))
	} else {
		load = a.gen.StandbyLoad()
	}
	dev.State.Load = &load
}

func (a *Actuator) appendLog(ctx context.Context, dev models.Device, action string, params models.ActionParams, prev, next models.DeviceSnapshot, logType string, now time.Time) bool {
	err := a.store.AppendDeviceLog(ctx, models.DeviceLogEntry{
		ID:            uuid.NewString(),
		HomeID:        dev.HomeID,
		RoomID:        dev.RoomID,
		DeviceID:      dev.ID,
		Kind:          dev.Kind,
		Type:          logType,
		Action:        action,
		Parameters:    &params,
		PreviousState: &prev,
		NewState:      &next,
		Success:       true,
		Timestamp:     now,
	})
	if err != nil {
		a.logger.Error("actuator: write device log failed",
			zap.String("device_id", dev.ID), zap.Error(err))
		return false
	}
	return true
}

func (a *Actuator) logFailure(ctx context.Context, dev models.Device, action string, params models.ActionParams, prev models.DeviceSnapshot, cause error, now time.Time) {
	a.logger.Warn("actuator: action failed",
		zap.String("device_id", dev.ID),
		zap.String("action", action),
		zap.Error(cause),
	)
	err := a.store.AppendDeviceLog(ctx, models.DeviceLogEntry{
		ID:            uuid.NewString(),
		HomeID:        dev.HomeID,
		RoomID:        dev.RoomID,
		DeviceID:      dev.ID,
		Kind:          dev.Kind,
		Type:          models.LogError,
		Action:        action,
		Parameters:    &params,
		PreviousState: &prev,
		Success:       false,
		Error:         cause.Error(),
		Timestamp:     now,
	})
	if err != nil {
		a.logger.Error("actuator: write error log failed",
			zap.String("device_id", dev.ID), zap.Error(err))
	}
}
