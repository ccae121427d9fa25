// Package emulator exposes the emulation engine behind one facade: batch
// telemetry, device control, automation scheduling and evaluation, and
// enrichment of newly created entities.
package emulator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"homeglow/internal/emulator/actuator"
	"homeglow/internal/emulator/autosched"
	"homeglow/internal/emulator/telemetry"
	"homeglow/internal/emulator/valuegen"
	"homeglow/internal/eventbus"
	"homeglow/internal/models"
)

// Store is the persistence surface the facade itself needs. The inner
// components carry their own narrower interfaces.
type Store interface {
	InsertSensor(ctx context.Context, s models.Sensor) error
	InsertDevice(ctx context.Context, dev models.Device) error
	SensorByID(ctx context.Context, id string) (*models.Sensor, error)
	DeviceByID(ctx context.Context, id string) (*models.Device, error)
	RoomKind(ctx context.Context, roomID string) (string, error)
}

// StateCache mirrors fresh values for the status surface.
type StateCache interface {
	SetSensorReadings(ctx context.Context, sensorID string, readings map[string]float64) error
	SensorReadings(ctx context.Context, sensorID string) (map[string]float64, error)
	SetDeviceState(ctx context.Context, dev models.Device) error
	DeviceState(ctx context.Context, deviceID string) (*models.DeviceSnapshot, error)
}

// Options configures the service.
type Options struct {
	Interval time.Duration
	Location *time.Location
}

// Service is the emulation engine facade.
type Service struct {
	store     Store
	cache     StateCache
	bus       eventbus.Bus
	gen       *valuegen.Generator
	telemetry *telemetry.Scheduler
	sched     *autosched.Scheduler
	act       *actuator.Actuator
	logger    *zap.Logger

	mu       sync.RWMutex
	interval time.Duration
	running  bool
	disabled map[string]bool // devices excluded from emulation
}

// New assembles the facade over pre-built components. The telemetry
// scheduler's device filter is bound to the service's emulation registry.
func New(store Store, cache StateCache, bus eventbus.Bus, gen *valuegen.Generator,
	tele *telemetry.Scheduler, sched *autosched.Scheduler, act *actuator.Actuator,
	logger *zap.Logger, opts Options) *Service {

	s := &Service{
		store:     store,
		cache:     cache,
		bus:       bus,
		gen:       gen,
		telemetry: tele,
		sched:     sched,
		act:       act,
		logger:    logger,
		interval:  opts.Interval,
		disabled:  make(map[string]bool),
	}
	tele.DeviceFilter = s.DeviceEmulated
	return s
}

// Run subscribes the service to inbound control events on the bus.
func (s *Service) Run() {
	s.bus.Subscribe(eventbus.EventDeviceControl, func(payload any) {
		req, ok := payload.(models.ControlRequest)
		if !ok {
			s.logger.Warn("unexpected device control payload")
			return
		}
		s.ControlDevice(context.Background(), req)
	})
	s.bus.Subscribe(eventbus.EventAutomationUpdate, func(payload any) {
		notice, ok := payload.(models.AutomationNotice)
		if !ok {
			s.logger.Warn("unexpected automation notice payload")
			return
		}
		if err := s.NotifyAutomationChange(context.Background(), notice); err != nil {
			s.logger.Error("automation reschedule failed",
				zap.String("automation_id", notice.AutomationID), zap.Error(err))
		}
	})
}

// StartAll begins telemetry ticks and automation scheduling.
func (s *Service) StartAll(ctx context.Context) error {
	s.mu.Lock()
	interval := s.interval
	s.running = true
	s.mu.Unlock()

	s.telemetry.Start(interval)
	if err := s.sched.Start(ctx); err != nil {
		return err
	}
	s.logger.Info("emulation started", zap.Duration("interval", interval))
	return nil
}

// StopAll halts telemetry ticks and automation scheduling.
func (s *Service) StopAll() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.telemetry.Stop()
	s.sched.Stop()
	s.logger.Info("emulation stopped")
}

// ConfigureBatchUpdates changes the telemetry interval, restarting the
// schedule when it is running.
func (s *Service) ConfigureBatchUpdates(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}
	s.mu.Lock()
	s.interval = interval
	running := s.running
	s.mu.Unlock()

	if running {
		s.telemetry.Start(interval)
	}
	s.logger.Info("batch update interval configured", zap.Duration("interval", interval))
	return nil
}

// TriggerImmediateUpdate runs one telemetry pass now, outside the schedule.
func (s *Service) TriggerImmediateUpdate(ctx context.Context) {
	s.telemetry.Tick(ctx)
}

// ControlDevice applies one action to one device.
func (s *Service) ControlDevice(ctx context.Context, req models.ControlRequest) bool {
	return s.act.Apply(ctx, req.DeviceID, req.Action, req.Parameters)
}

// NotifyAutomationChange refreshes the schedule of one automation after a
// lifecycle change. Every action resolves to the same refresh.
func (s *Service) NotifyAutomationChange(ctx context.Context, notice models.AutomationNotice) error {
	if notice.AutomationID == "" {
		return fmt.Errorf("automation notice missing id")
	}
	s.logger.Info("automation change received",
		zap.String("automation_id", notice.AutomationID),
		zap.String("action", notice.Action),
	)
	return s.sched.Reschedule(ctx, notice.AutomationID)
}

// ConfigureDevice enables or disables emulation for one device and
// broadcasts the new status.
func (s *Service) ConfigureDevice(ctx context.Context, deviceID string, emulated bool) error {
	dev, err := s.store.DeviceByID(ctx, deviceID)
	if err != nil || dev == nil {
		return fmt.Errorf("device %s not found", deviceID)
	}

	s.mu.Lock()
	if emulated {
		delete(s.disabled, deviceID)
	} else {
		s.disabled[deviceID] = true
	}
	s.mu.Unlock()

	s.bus.Emit(eventbus.EventDeviceStatus, models.DeviceStatus{
		DeviceID:    dev.ID,
		Kind:        dev.Kind,
		IsEmulated:  emulated,
		IsActive:    dev.IsActive,
		CurrentLoad: dev.CurrentLoad(),
	})
	s.logger.Info("device emulation configured",
		zap.String("device_id", deviceID), zap.Bool("emulated", emulated))
	return nil
}

// DeviceEmulated reports whether a device participates in load emulation.
// Devices are emulated unless explicitly disabled.
func (s *Service) DeviceEmulated(deviceID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.disabled[deviceID]
}

// Status is the aggregate emulation state.
type Status struct {
	Running          bool                  `json:"running"`
	UpdateIntervalMS int64                 `json:"updateIntervalMs"`
	LastRun          time.Time             `json:"lastRun"`
	ScheduledJobs    []autosched.JobStatus `json:"scheduledJobs"`
	DisabledDevices  []string              `json:"disabledDevices"`
}

// Status reports the aggregate emulation state.
func (s *Service) Status() Status {
	running, interval, lastRun := s.telemetry.Status()

	s.mu.RLock()
	disabled := make([]string, 0, len(s.disabled))
	for id := range s.disabled {
		disabled = append(disabled, id)
	}
	s.mu.RUnlock()

	return Status{
		Running:          running,
		UpdateIntervalMS: interval.Milliseconds(),
		LastRun:          lastRun,
		ScheduledJobs:    s.sched.Jobs(),
		DisabledDevices:  disabled,
	}
}

// SensorReadings returns a sensor's latest reading set, preferring the
// cache mirror and falling back to the store.
func (s *Service) SensorReadings(ctx context.Context, sensorID string) (map[string]float64, error) {
	readings, err := s.cache.SensorReadings(ctx, sensorID)
	if err != nil {
		s.logger.Warn("sensor cache read failed",
			zap.String("sensor_id", sensorID), zap.Error(err))
	}
	if readings != nil {
		return readings, nil
	}
	sensor, err := s.store.SensorByID(ctx, sensorID)
	if err != nil || sensor == nil {
		return nil, fmt.Errorf("sensor %s not found", sensorID)
	}
	return sensor.Readings, nil
}

// DeviceStatus returns a device's current status, preferring the cache
// mirror for the mutable state and falling back to the store.
func (s *Service) DeviceStatus(ctx context.Context, deviceID string) (*models.DeviceStatus, error) {
	dev, err := s.store.DeviceByID(ctx, deviceID)
	if err != nil || dev == nil {
		return nil, fmt.Errorf("device %s not found", deviceID)
	}

	isActive := dev.IsActive
	load := dev.CurrentLoad()
	if snap, err := s.cache.DeviceState(ctx, deviceID); err != nil {
		s.logger.Warn("device cache read failed",
			zap.String("device_id", deviceID), zap.Error(err))
	} else if snap != nil {
		isActive = snap.IsActive
		if snap.State.Load != nil {
			load = *snap.State.Load
		}
	}

	return &models.DeviceStatus{
		DeviceID:    dev.ID,
		Kind:        dev.Kind,
		IsEmulated:  s.DeviceEmulated(deviceID),
		IsActive:    isActive,
		CurrentLoad: load,
	}, nil
}

// defaultDanger holds the fallback danger thresholds applied to new sensors
// that do not supply their own.
var defaultDanger = map[models.SensorKind]map[string]float64{
	models.SensorTemperature: {
		valuegen.DangerTemperaturePlus:  35,
		valuegen.DangerTemperatureMinus: -10,
	},
	models.SensorHumidity: {valuegen.DangerHumidity: 90},
	models.SensorMotion:   {valuegen.DangerMotionIntensity: 80},
	models.SensorSmoke:    {valuegen.DangerSmokeLevel: 50},
	models.SensorWaterLeak: {
		valuegen.DangerWaterIndex: 70,
	},
	models.SensorGas: {
		valuegen.DangerMethan:          100,
		valuegen.DangerPropane:         50,
		valuegen.DangerCarbonDioxide:   1000,
		valuegen.DangerCarbonMonoxide:  30,
		valuegen.DangerNitrogenDioxide: 100,
		valuegen.DangerOzone:           70,
	},
	models.SensorAirQuality: {
		valuegen.DangerAQI:  150,
		valuegen.DangerPM25: 35,
		valuegen.DangerPM10: 50,
	},
	models.SensorLight: {valuegen.DangerLux: 10000},
	models.SensorPower: {
		valuegen.DangerPower:   3000,
		valuegen.DangerVoltage: 250,
		valuegen.DangerCurrent: 15,
	},
	models.SensorWeather: {
		valuegen.DangerTemperaturePlus:  35,
		valuegen.DangerTemperatureMinus: -15,
		valuegen.DangerWindSpeed:        20,
		valuegen.DangerRainIntensity:    8,
	},
}

// EnrichNewSensor fills a new sensor's defaults: ID, danger thresholds and
// an initial reading set, then persists it.
func (s *Service) EnrichNewSensor(ctx context.Context, sensor models.Sensor) (models.Sensor, error) {
	if !sensor.Kind.Valid() {
		return sensor, fmt.Errorf("unknown sensor type %q", sensor.Kind)
	}
	if sensor.ID == "" {
		sensor.ID = uuid.NewString()
	}
	if sensor.Danger == nil {
		sensor.Danger = make(map[string]float64)
	}
	for key, value := range defaultDanger[sensor.Kind] {
		if _, ok := sensor.Danger[key]; !ok {
			sensor.Danger[key] = value
		}
	}

	now := time.Now()
	readings, ok := s.gen.SensorReadings(sensor.Kind, sensor.Location, sensor.Area, sensor.Danger, valuegen.SnapshotAt(now))
	if !ok {
		return sensor, fmt.Errorf("no generator for sensor type %q", sensor.Kind)
	}
	sensor.Readings = readings
	sensor.LastUpdate = now

	if err := s.store.InsertSensor(ctx, sensor); err != nil {
		return sensor, fmt.Errorf("insert sensor: %w", err)
	}
	if err := s.cache.SetSensorReadings(ctx, sensor.ID, readings); err != nil {
		s.logger.Warn("cache new sensor readings failed",
			zap.String("sensor_id", sensor.ID), zap.Error(err))
	}
	s.logger.Info("sensor enriched",
		zap.String("sensor_id", sensor.ID), zap.String("kind", string(sensor.Kind)))
	return sensor, nil
}

// EnrichNewDevice fills a new device's defaults and persists it. Smart
// plugs get an initial load for their room; other kinds only get an ID and
// timestamp.
func (s *Service) EnrichNewDevice(ctx context.Context, dev models.Device) (models.Device, error) {
	if !dev.Kind.Valid() {
		return dev, fmt.Errorf("unknown device type %q", dev.Kind)
	}
	if dev.ID == "" {
		dev.ID = uuid.NewString()
	}

	now := time.Now()
	if dev.Kind == models.DeviceSmartPlug && dev.State.Load == nil {
		roomKind, err := s.store.RoomKind(ctx, dev.RoomID)
		if err != nil {
			s.logger.Warn("room lookup failed for new device",
				zap.String("device_id", dev.ID), zap.Error(err))
			roomKind = "custom"
		}
		load := s.gen.PlugLoad(roomKind, dev.IsActive, valuegen.SnapshotAt(now))
		dev.State.Load = &load
	}
	dev.LastUpdate = now

	if err := s.store.InsertDevice(ctx, dev); err != nil {
		return dev, fmt.Errorf("insert device: %w", err)
	}
	if err := s.cache.SetDeviceState(ctx, dev); err != nil {
		s.logger.Warn("cache new device state failed",
			zap.String("device_id", dev.ID), zap.Error(err))
	}
	s.logger.Info("device enriched",
		zap.String("device_id", dev.ID), zap.String("kind", string(dev.Kind)))
	return dev, nil
}
