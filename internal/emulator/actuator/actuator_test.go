package actuator

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"homeglow/internal/emulator/valuegen"
	"homeglow/internal/eventbus"
	"homeglow/internal/models"
)

type fakeStore struct {
	devices map[string]models.Device
	saved   []models.Device
	logs    []models.DeviceLogEntry
}

func (f *fakeStore) DeviceByID(ctx context.Context, id string) (*models.Device, error) {
	dev, ok := f.devices[id]
	if !ok {
		return nil, context.Canceled // any error means not found here
	}
	return &dev, nil
}

func (f *fakeStore) RoomKind(ctx context.Context, roomID string) (string, error) {
	return "living_room", nil
}

func (f *fakeStore) SaveDevice(ctx context.Context, dev models.Device) error {
	f.saved = append(f.saved, dev)
	return nil
}

func (f *fakeStore) AppendDeviceLog(ctx context.Context, e models.DeviceLogEntry) error {
	f.logs = append(f.logs, e)
	return nil
}

type fakeCache struct{ writes int }

func (f *fakeCache) SetDeviceState(ctx context.Context, dev models.Device) error {
	f.writes++
	return nil
}

func newTestActuator(store *fakeStore, bus eventbus.Bus) *Actuator {
	gen := valuegen.New(rand.NewSource(1))
	a := New(store, &fakeCache{}, bus, gen, zap.NewNop())
	a.Clock = func() time.Time {
		return time.Date(2025, time.July, 15, 19, 0, 0, 0, time.UTC)
	}
	return a
}

func plugDevice(id string, on bool) models.Device {
	load := 1.2
	return models.Device{
		ID:       id,
		HomeID:   "home-1",
		RoomID:   "room-1",
		Kind:     models.DeviceSmartPlug,
		IsActive: on,
		State:    models.DeviceState{Load: &load},
	}
}

func TestApplyTurnOnPlug(t *testing.T) {
	store := &fakeStore{devices: map[string]models.Device{"d1": plugDevice("d1", false)}}
	bus := eventbus.NewMemory(zap.NewNop())

	var events []models.DeviceActuated
	bus.Subscribe(eventbus.EventDeviceUpdate, func(payload any) {
		events = append(events, payload.(models.DeviceActuated))
	})

	a := newTestActuator(store, bus)
	ok := a.Apply(context.Background(), "d1", "turnOn", models.ActionParams{})

	require.True(t, ok)
	require.Len(t, store.saved, 1)
	assert.True(t, store.saved[0].IsActive)
	assert.Greater(t, store.saved[0].CurrentLoad(), 2.0, "on-load should exceed standby")

	require.Len(t, store.logs, 1)
	assert.Equal(t, models.LogPowerChange, store.logs[0].Type)
	assert.False(t, store.logs[0].PreviousState.IsActive)
	assert.True(t, store.logs[0].NewState.IsActive)

	require.Len(t, events, 1)
	assert.Equal(t, "turnOn", events[0].Action)
	assert.True(t, events[0].IsActive)
}

func TestApplyTurnOffPlugDropsToStandby(t *testing.T) {
	dev := plugDevice("d1", true)
	load := 800.0
	dev.State.Load = &load
	store := &fakeStore{devices: map[string]models.Device{"d1": dev}}
	a := newTestActuator(store, eventbus.NewMemory(zap.NewNop()))

	ok := a.Apply(context.Background(), "d1", "turnOff", models.ActionParams{})

	require.True(t, ok)
	require.Len(t, store.saved, 1)
	assert.False(t, store.saved[0].IsActive)
	assert.LessOrEqual(t, store.saved[0].CurrentLoad(), 2.0)
}

func TestApplySetBrightness(t *testing.T) {
	store := &fakeStore{devices: map[string]models.Device{"l1": {
		ID: "l1", HomeID: "home-1", RoomID: "room-1",
		Kind: models.DeviceSmartLight, IsActive: true,
	}}}
	a := newTestActuator(store, eventbus.NewMemory(zap.NewNop()))

	brightness := 70
	ok := a.Apply(context.Background(), "l1", "setBrightness", models.ActionParams{Brightness: &brightness})

	require.True(t, ok)
	require.Len(t, store.saved, 1)
	require.NotNil(t, store.saved[0].State.Brightness)
	assert.Equal(t, 70, *store.saved[0].State.Brightness)
	require.Len(t, store.logs, 1)
	assert.Equal(t, models.LogStateChange, store.logs[0].Type)
}

func TestApplyLockToggle(t *testing.T) {
	store := &fakeStore{devices: map[string]models.Device{"k1": {
		ID: "k1", Kind: models.DeviceSmartLock, IsActive: true,
		State: models.DeviceState{DoorState: "open"},
	}}}
	a := newTestActuator(store, eventbus.NewMemory(zap.NewNop()))

	require.True(t, a.Apply(context.Background(), "k1", "toggle", models.ActionParams{}))
	assert.Equal(t, "closed", store.saved[0].State.DoorState)
}

func TestApplyUnknownActionIsNoOp(t *testing.T) {
	store := &fakeStore{devices: map[string]models.Device{"d1": plugDevice("d1", true)}}
	bus := eventbus.NewMemory(zap.NewNop())

	emitted := false
	bus.Subscribe(eventbus.EventDeviceUpdate, func(payload any) { emitted = true })

	a := newTestActuator(store, bus)
	ok := a.Apply(context.Background(), "d1", "selfDestruct", models.ActionParams{})

	assert.True(t, ok)
	assert.Empty(t, store.saved, "no state write for an ignored action")
	require.Len(t, store.logs, 1)
	assert.True(t, store.logs[0].Success)
	assert.Equal(t, store.logs[0].PreviousState, store.logs[0].NewState)
	assert.False(t, emitted)
}

func TestApplyMissingDevice(t *testing.T) {
	store := &fakeStore{devices: map[string]models.Device{}}
	a := newTestActuator(store, eventbus.NewMemory(zap.NewNop()))

	ok := a.Apply(context.Background(), "ghost", "turnOn", models.ActionParams{})

	assert.False(t, ok)
	assert.Empty(t, store.logs)
}

func TestApplyMissingParameterFails(t *testing.T) {
	store := &fakeStore{devices: map[string]models.Device{"t1": {
		ID: "t1", Kind: models.DeviceThermostat, IsActive: true,
	}}}
	a := newTestActuator(store, eventbus.NewMemory(zap.NewNop()))

	ok := a.Apply(context.Background(), "t1", "setTemperature", models.ActionParams{})

	assert.False(t, ok)
	assert.Empty(t, store.saved)
	require.Len(t, store.logs, 1)
	assert.Equal(t, models.LogError, store.logs[0].Type)
	assert.False(t, store.logs[0].Success)
	assert.NotEmpty(t, store.logs[0].Error)
}
