package emulator

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"homeglow/internal/emulator/actuator"
	"homeglow/internal/emulator/autosched"
	"homeglow/internal/emulator/telemetry"
	"homeglow/internal/emulator/valuegen"
	"homeglow/internal/eventbus"
	"homeglow/internal/models"
)

// memStore backs every component interface in one fake.
type memStore struct {
	sensors     map[string]models.Sensor
	devices     map[string]models.Device
	automations map[string]models.Automation
	deviceLogs  []models.DeviceLogEntry
}

func newMemStore() *memStore {
	return &memStore{
		sensors:     make(map[string]models.Sensor),
		devices:     make(map[string]models.Device),
		automations: make(map[string]models.Automation),
	}
}

func (m *memStore) InsertSensor(ctx context.Context, s models.Sensor) error {
	m.sensors[s.ID] = s
	return nil
}

func (m *memStore) InsertDevice(ctx context.Context, dev models.Device) error {
	m.devices[dev.ID] = dev
	return nil
}

func (m *memStore) DeviceByID(ctx context.Context, id string) (*models.Device, error) {
	dev, ok := m.devices[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	return &dev, nil
}

func (m *memStore) RoomKind(ctx context.Context, roomID string) (string, error) {
	return "kitchen", nil
}

func (m *memStore) ActiveSensors(ctx context.Context) ([]models.Sensor, error) {
	var out []models.Sensor
	for _, s := range m.sensors {
		out = append(out, s)
	}
	return out, nil
}

func (m *memStore) ActiveDevicesByKind(ctx context.Context, kind models.DeviceKind) ([]models.Device, error) {
	var out []models.Device
	for _, d := range m.devices {
		if d.Kind == kind && d.IsActive {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) ApplySensorReadings(ctx context.Context, patches []models.SensorReadingPatch) error {
	return nil
}

func (m *memStore) ApplyDeviceLoads(ctx context.Context, patches []models.DeviceLoadPatch) error {
	return nil
}

func (m *memStore) AppendSensorLogs(ctx context.Context, entries []models.SensorLogEntry) error {
	return nil
}

func (m *memStore) AppendDeviceLogs(ctx context.Context, entries []models.DeviceLogEntry) error {
	m.deviceLogs = append(m.deviceLogs, entries...)
	return nil
}

func (m *memStore) AppendDeviceLog(ctx context.Context, e models.DeviceLogEntry) error {
	m.deviceLogs = append(m.deviceLogs, e)
	return nil
}

func (m *memStore) SaveDevice(ctx context.Context, dev models.Device) error {
	m.devices[dev.ID] = dev
	return nil
}

func (m *memStore) AutomationByID(ctx context.Context, id string) (*models.Automation, error) {
	a, ok := m.automations[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	return &a, nil
}

func (m *memStore) ActiveAutomationsByTrigger(ctx context.Context, triggerType string) ([]models.Automation, error) {
	var out []models.Automation
	for _, a := range m.automations {
		if a.IsActive && a.TriggerType == triggerType {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) SensorByID(ctx context.Context, id string) (*models.Sensor, error) {
	s, ok := m.sensors[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	return &s, nil
}

// memCache mirrors values in plain maps.
type memCache struct {
	sensors map[string]map[string]float64
	devices map[string]models.DeviceSnapshot
}

func newMemCache() *memCache {
	return &memCache{
		sensors: make(map[string]map[string]float64),
		devices: make(map[string]models.DeviceSnapshot),
	}
}

func (m *memCache) SetSensorReadings(ctx context.Context, sensorID string, readings map[string]float64) error {
	m.sensors[sensorID] = readings
	return nil
}

func (m *memCache) SensorReadings(ctx context.Context, sensorID string) (map[string]float64, error) {
	return m.sensors[sensorID], nil
}

func (m *memCache) SetDeviceState(ctx context.Context, dev models.Device) error {
	m.devices[dev.ID] = models.DeviceSnapshot{IsActive: dev.IsActive, State: dev.State}
	return nil
}

func (m *memCache) DeviceState(ctx context.Context, deviceID string) (*models.DeviceSnapshot, error) {
	snap, ok := m.devices[deviceID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func newTestService(store *memStore) (*Service, eventbus.Bus) {
	logger := zap.NewNop()
	bus := eventbus.NewMemory(logger)
	gen := valuegen.New(rand.NewSource(1))
	cache := newMemCache()

	tele := telemetry.NewScheduler(store, cache, bus, gen, logger)
	sched := autosched.New(store, nopExecutor{}, time.UTC, logger)
	act := actuator.New(store, cache, bus, gen, logger)

	svc := New(store, cache, bus, gen, tele, sched, act, logger, Options{
		Interval: time.Hour,
		Location: time.UTC,
	})
	return svc, bus
}

type nopExecutor struct{}

func (nopExecutor) Execute(ctx context.Context, a models.Automation) {}

func TestEnrichNewSensorDefaults(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	sensor, err := svc.EnrichNewSensor(context.Background(), models.Sensor{
		HomeID:   "home-1",
		Kind:     models.SensorGas,
		Location: "kitchen",
		IsActive: true,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, sensor.ID)
	assert.Equal(t, 100.0, sensor.Danger[valuegen.DangerMethan])
	assert.Equal(t, 30.0, sensor.Danger[valuegen.DangerCarbonMonoxide])
	for _, field := range models.SensorGas.Fields() {
		assert.Contains(t, sensor.Readings, field)
	}
	assert.Contains(t, store.sensors, sensor.ID)
}

func TestEnrichNewSensorKeepsSuppliedThresholds(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	sensor, err := svc.EnrichNewSensor(context.Background(), models.Sensor{
		Kind:   models.SensorHumidity,
		Danger: map[string]float64{valuegen.DangerHumidity: 75},
	})
	require.NoError(t, err)
	assert.Equal(t, 75.0, sensor.Danger[valuegen.DangerHumidity])
}

func TestEnrichNewSensorUnknownKind(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	_, err := svc.EnrichNewSensor(context.Background(), models.Sensor{Kind: "quantum_sensor"})
	assert.Error(t, err)
	assert.Empty(t, store.sensors)
}

func TestEnrichNewDevicePlugLoad(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	dev, err := svc.EnrichNewDevice(context.Background(), models.Device{
		HomeID:   "home-1",
		RoomID:   "room-1",
		Kind:     models.DeviceSmartPlug,
		IsActive: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, dev.ID)
	require.NotNil(t, dev.State.Load)
	assert.Greater(t, *dev.State.Load, 0.0)
	assert.Contains(t, store.devices, dev.ID)
}

func TestEnrichNewDeviceNonPlug(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	dev, err := svc.EnrichNewDevice(context.Background(), models.Device{
		Kind: models.DeviceCamera,
	})
	require.NoError(t, err)
	assert.Nil(t, dev.State.Load)
}

func TestConfigureDevice(t *testing.T) {
	store := newMemStore()
	store.devices["d1"] = models.Device{ID: "d1", Kind: models.DeviceSmartPlug, IsActive: true}
	svc, bus := newTestService(store)

	var statuses []models.DeviceStatus
	bus.Subscribe(eventbus.EventDeviceStatus, func(payload any) {
		statuses = append(statuses, payload.(models.DeviceStatus))
	})

	assert.True(t, svc.DeviceEmulated("d1"), "emulated by default")

	require.NoError(t, svc.ConfigureDevice(context.Background(), "d1", false))
	assert.False(t, svc.DeviceEmulated("d1"))

	require.NoError(t, svc.ConfigureDevice(context.Background(), "d1", true))
	assert.True(t, svc.DeviceEmulated("d1"))

	require.Len(t, statuses, 2)
	assert.False(t, statuses[0].IsEmulated)
	assert.True(t, statuses[1].IsEmulated)
}

func TestConfigureDeviceUnknown(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)
	assert.Error(t, svc.ConfigureDevice(context.Background(), "ghost", false))
}

func TestControlDeviceDelegates(t *testing.T) {
	store := newMemStore()
	store.devices["d1"] = models.Device{ID: "d1", Kind: models.DeviceSmartLight}
	svc, _ := newTestService(store)

	ok := svc.ControlDevice(context.Background(), models.ControlRequest{
		DeviceID: "d1",
		Action:   "turnOn",
	})
	assert.True(t, ok)
	assert.True(t, store.devices["d1"].IsActive)
}

func TestNotifyAutomationChangeValidation(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)
	assert.Error(t, svc.NotifyAutomationChange(context.Background(), models.AutomationNotice{}))
}

func TestConfigureBatchUpdatesValidation(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	assert.Error(t, svc.ConfigureBatchUpdates(0))
	assert.NoError(t, svc.ConfigureBatchUpdates(30*time.Minute))
}

func TestStatusInitiallyStopped(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	status := svc.Status()
	assert.False(t, status.Running)
	assert.Empty(t, status.ScheduledJobs)
	assert.Empty(t, status.DisabledDevices)
}

func TestSensorReadingsPrefersCache(t *testing.T) {
	store := newMemStore()
	store.sensors["s1"] = models.Sensor{
		ID:       "s1",
		Kind:     models.SensorTemperature,
		Readings: map[string]float64{"currentTemperature": 20},
	}
	svc, _ := newTestService(store)

	// cache miss falls back to the store
	readings, err := svc.SensorReadings(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 20.0, readings["currentTemperature"])

	// cached value wins afterwards
	require.NoError(t, svc.cache.SetSensorReadings(context.Background(), "s1",
		map[string]float64{"currentTemperature": 25}))
	readings, err = svc.SensorReadings(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 25.0, readings["currentTemperature"])

	_, err = svc.SensorReadings(context.Background(), "ghost")
	assert.Error(t, err)
}

func TestDeviceStatusReflectsCache(t *testing.T) {
	store := newMemStore()
	store.devices["d1"] = models.Device{ID: "d1", Kind: models.DeviceSmartPlug, IsActive: false}
	svc, _ := newTestService(store)

	load := 120.0
	require.NoError(t, svc.cache.SetDeviceState(context.Background(), models.Device{
		ID: "d1", IsActive: true, State: models.DeviceState{Load: &load},
	}))

	status, err := svc.DeviceStatus(context.Background(), "d1")
	require.NoError(t, err)
	assert.True(t, status.IsActive)
	assert.Equal(t, 120.0, status.CurrentLoad)
	assert.True(t, status.IsEmulated)

	_, err = svc.DeviceStatus(context.Background(), "ghost")
	assert.Error(t, err)
}

func TestRunRoutesBusEvents(t *testing.T) {
	store := newMemStore()
	store.devices["d1"] = models.Device{ID: "d1", Kind: models.DeviceSmartLight}
	svc, bus := newTestService(store)
	svc.Run()

	bus.Emit(eventbus.EventDeviceControl, models.ControlRequest{
		DeviceID: "d1",
		Action:   "turnOn",
	})
	assert.True(t, store.devices["d1"].IsActive)
}
