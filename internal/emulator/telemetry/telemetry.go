// Package telemetry drives the periodic regeneration of sensor readings and
// smart plug loads.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"homeglow/internal/emulator/valuegen"
	"homeglow/internal/eventbus"
	"homeglow/internal/models"
)

// Store is the persistence surface a telemetry pass needs.
type Store interface {
	ActiveSensors(ctx context.Context) ([]models.Sensor, error)
	ActiveDevicesByKind(ctx context.Context, kind models.DeviceKind) ([]models.Device, error)
	RoomKind(ctx context.Context, roomID string) (string, error)
	ApplySensorReadings(ctx context.Context, patches []models.SensorReadingPatch) error
	ApplyDeviceLoads(ctx context.Context, patches []models.DeviceLoadPatch) error
	AppendSensorLogs(ctx context.Context, entries []models.SensorLogEntry) error
	AppendDeviceLogs(ctx context.Context, entries []models.DeviceLogEntry) error
}

// StateCache mirrors the latest values for the status surface.
type StateCache interface {
	SetSensorReadings(ctx context.Context, sensorID string, readings map[string]float64) error
	SetDeviceState(ctx context.Context, dev models.Device) error
}

// Scheduler runs the telemetry pass on a fixed interval. Ticks are
// single-flight: a tick that is still running causes the next one to be
// skipped rather than overlapped.
type Scheduler struct {
	store  Store
	cache  StateCache
	bus    eventbus.Bus
	gen    *valuegen.Generator
	logger *zap.Logger

	// Clock is overridable for tests.
	Clock func() time.Time

	// DeviceFilter, when set, excludes devices from load emulation.
	DeviceFilter func(deviceID string) bool

	tickMu sync.Mutex

	mu       sync.Mutex
	running  bool
	interval time.Duration
	lastRun  time.Time
	stop     chan struct{}
}

// NewScheduler wires a telemetry scheduler.
func NewScheduler(store Store, cache StateCache, bus eventbus.Bus, gen *valuegen.Generator, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		store:  store,
		cache:  cache,
		bus:    bus,
		gen:    gen,
		logger: logger,
		Clock:  time.Now,
	}
}

// Start begins periodic ticks at the given interval, replacing any running
// schedule. One tick runs immediately so a fresh start produces telemetry
// without waiting out the first interval.
func (s *Scheduler) Start(interval time.Duration) {
	s.Stop()

	s.mu.Lock()
	s.running = true
	s.interval = interval
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	s.logger.Info("telemetry started", zap.Duration("interval", interval))

	go func() {
		s.Tick(context.Background())

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Tick(context.Background())
			case <-stop:
				return
			}
		}
	}()
}

// Stop halts periodic ticks. Safe to call when not running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stop)
	s.running = false
	s.logger.Info("telemetry stopped")
}

// Status reports whether the schedule is running, its interval, and the
// start time of the last completed tick.
func (s *Scheduler) Status() (running bool, interval time.Duration, lastRun time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running, s.interval, s.lastRun
}

// Tick runs one full telemetry pass: regenerate, persist, log, broadcast.
// Log rows are written before any event is emitted; a failed log write
// suppresses the corresponding broadcast.
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.tickMu.TryLock() {
		s.logger.Warn("telemetry tick still running, skipping")
		return
	}
	defer s.tickMu.Unlock()

	now := s.Clock()
	env := valuegen.SnapshotAt(now)

	s.mu.Lock()
	s.lastRun = now
	s.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.tickSensors(ctx, env, now)
	}()
	go func() {
		defer wg.Done()
		s.tickDevices(ctx, env, now)
	}()
	wg.Wait()
}

func (s *Scheduler) tickSensors(ctx context.Context, env valuegen.Snapshot, now time.Time) {
	sensors, err := s.store.ActiveSensors(ctx)
	if err != nil {
		s.logger.Error("telemetry: fetch sensors failed", zap.Error(err))
		return
	}
	if len(sensors) == 0 {
		return
	}

	var (
		patches []models.SensorReadingPatch
		logs    []models.SensorLogEntry
		updates []models.SensorUpdate
	)
	for _, sensor := range sensors {
		readings, ok := s.gen.SensorReadings(sensor.Kind, sensor.Location, sensor.Area, sensor.Danger, env)
		if !ok {
			s.logger.Warn("telemetry: no generator for sensor kind",
				zap.String("sensor_id", sensor.ID),
				zap.String("kind", string(sensor.Kind)),
			)
			continue
		}
		patches = append(patches, models.SensorReadingPatch{SensorID: sensor.ID, Readings: readings, Timestamp: now})
		logs = append(logs, models.SensorLogEntry{
			ID:        uuid.NewString(),
			HomeID:    sensor.HomeID,
			RoomID:    sensor.RoomID,
			SensorID:  sensor.ID,
			Kind:      sensor.Kind,
			Type:      models.LogMeasurement,
			Readings:  readings,
			Timestamp: now,
		})
		updates = append(updates, models.SensorUpdate{
			SensorID:  sensor.ID,
			Kind:      sensor.Kind,
			HomeID:    sensor.HomeID,
			RoomID:    sensor.RoomID,
			Data:      readings,
			Timestamp: now,
		})
	}
	if len(patches) == 0 {
		return
	}

	if err := s.store.ApplySensorReadings(ctx, patches); err != nil {
		s.logger.Error("telemetry: persist sensor readings failed", zap.Error(err))
		return
	}
	for _, p := range patches {
		if err := s.cache.SetSensorReadings(ctx, p.SensorID, p.Readings); err != nil {
			s.logger.Warn("telemetry: cache sensor readings failed",
				zap.String("sensor_id", p.SensorID), zap.Error(err))
		}
	}
	if err := s.store.AppendSensorLogs(ctx, logs); err != nil {
		s.logger.Error("telemetry: write sensor logs failed", zap.Error(err))
		return
	}

	s.bus.Emit(eventbus.EventSensorsBatch, updates)
	s.logger.Info("telemetry: sensors updated", zap.Int("count", len(updates)))
}

// loadChangeFloor is the absolute minimum delta, in watts, that counts as a
// reportable plug load change.
const loadChangeFloor = 10.0

// significantLoadChange reports whether a new load differs enough from the
// previous one to be worth persisting.
func significantLoadChange(prev, next float64) bool {
	delta := next - prev
	if delta < 0 {
		delta = -delta
	}
	threshold := loadChangeFloor
	if rel := prev * 0.1; rel > threshold {
		threshold = rel
	}
	return delta >= threshold
}

func (s *Scheduler) tickDevices(ctx context.Context, env valuegen.Snapshot, now time.Time) {
	devices, err := s.store.ActiveDevicesByKind(ctx, models.DeviceSmartPlug)
	if err != nil {
		s.logger.Error("telemetry: fetch devices failed", zap.Error(err))
		return
	}

	var (
		patches []models.DeviceLoadPatch
		logs    []models.DeviceLogEntry
		updates []models.DeviceUpdate
		mirrors []models.Device
	)
	for _, dev := range devices {
		if s.DeviceFilter != nil && !s.DeviceFilter(dev.ID) {
			continue
		}
		roomKind, err := s.store.RoomKind(ctx, dev.RoomID)
		if err != nil {
			s.logger.Warn("telemetry: room lookup failed",
				zap.String("device_id", dev.ID), zap.Error(err))
			roomKind = "custom"
		}
		prev := dev.CurrentLoad()
		load := s.gen.PlugLoad(roomKind, dev.IsActive, env)
		if !significantLoadChange(prev, load) {
			continue
		}

		patches = append(patches, models.DeviceLoadPatch{DeviceID: dev.ID, Load: load, Timestamp: now})
		logs = append(logs, models.DeviceLogEntry{
			ID:       uuid.NewString(),
			HomeID:   dev.HomeID,
			RoomID:   dev.RoomID,
			DeviceID: dev.ID,
			Kind:     dev.Kind,
			Type:     models.LogPowerChange,
			Success:  true,
			Details: map[string]any{
				"previousLoad": prev,
				"currentLoad":  load,
			},
			Timestamp: now,
		})
		updates = append(updates, models.DeviceUpdate{
			DeviceID:    dev.ID,
			Kind:        dev.Kind,
			HomeID:      dev.HomeID,
			RoomID:      dev.RoomID,
			IsActive:    dev.IsActive,
			CurrentLoad: load,
			Timestamp:   now,
		})
		mirror := dev
		mirror.State.Load = &load
		mirror.LastUpdate = now
		mirrors = append(mirrors, mirror)
	}
	if len(patches) == 0 {
		return
	}

	if err := s.store.ApplyDeviceLoads(ctx, patches); err != nil {
		s.logger.Error("telemetry: persist device loads failed", zap.Error(err))
		return
	}
	for _, dev := range mirrors {
		if err := s.cache.SetDeviceState(ctx, dev); err != nil {
			s.logger.Warn("telemetry: cache device state failed",
				zap.String("device_id", dev.ID), zap.Error(err))
		}
	}
	if err := s.store.AppendDeviceLogs(ctx, logs); err != nil {
		s.logger.Error("telemetry: write device logs failed", zap.Error(err))
		return
	}

	s.bus.Emit(eventbus.EventDevicesBatch, updates)
	s.logger.Info("telemetry: device loads updated", zap.Int("count", len(updates)))
}
