package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"homeglow/internal/eventbus"
	"homeglow/internal/models"
)

type fakeApplier struct {
	calls []string
	fail  map[string]bool
}

func (f *fakeApplier) Apply(ctx context.Context, deviceID, action string, params models.ActionParams) bool {
	f.calls = append(f.calls, deviceID+":"+action)
	return !f.fail[deviceID]
}

type fakeStore struct {
	devices map[string]models.Device
	logs    []models.DeviceLogEntry
}

func (f *fakeStore) DeviceByID(ctx context.Context, id string) (*models.Device, error) {
	dev, ok := f.devices[id]
	if !ok {
		return nil, context.Canceled
	}
	return &dev, nil
}

func (f *fakeStore) AppendDeviceLog(ctx context.Context, e models.DeviceLogEntry) error {
	f.logs = append(f.logs, e)
	return nil
}

func TestExecuteAppliesPerDevice(t *testing.T) {
	on := true
	auto := models.Automation{
		ID: "a1", Name: "evening lights", TriggerType: models.TriggerTime,
		DeviceAction: models.DeviceAction{
			DeviceKind: models.DeviceSmartLight,
			DeviceIDs:  []string{"l1", "l2", "plug", "missing"},
			Settings:   models.ActionSettings{IsActive: &on},
		},
	}
	store := &fakeStore{devices: map[string]models.Device{
		"l1":   {ID: "l1", Kind: models.DeviceSmartLight},
		"l2":   {ID: "l2", Kind: models.DeviceSmartLight},
		"plug": {ID: "plug", Kind: models.DeviceSmartPlug}, // kind mismatch
	}}
	applier := &fakeApplier{}
	bus := eventbus.NewMemory(zap.NewNop())

	var events []models.AutomationExecuted
	bus.Subscribe(eventbus.EventAutomationExecuted, func(payload any) {
		events = append(events, payload.(models.AutomationExecuted))
	})

	d := New(store, applier, bus, zap.NewNop())
	d.Execute(context.Background(), auto)

	assert.Equal(t, []string{"l1:turnOn", "l2:turnOn"}, applier.calls)
	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].DeviceCount)
	assert.Equal(t, "a1", events[0].AutomationID)

	require.Len(t, store.logs, 2)
	assert.Equal(t, models.LogAutomationAction, store.logs[0].Type)
	assert.Equal(t, "a1", store.logs[0].Details["automationId"])
}

func TestExecuteCountsOnlySuccesses(t *testing.T) {
	on := true
	auto := models.Automation{
		ID: "a1", TriggerType: models.TriggerSensor,
		DeviceAction: models.DeviceAction{
			DeviceKind: models.DeviceSmartPlug,
			DeviceIDs:  []string{"p1", "p2"},
			Settings:   models.ActionSettings{IsActive: &on},
		},
	}
	store := &fakeStore{devices: map[string]models.Device{
		"p1": {ID: "p1", Kind: models.DeviceSmartPlug},
		"p2": {ID: "p2", Kind: models.DeviceSmartPlug},
	}}
	applier := &fakeApplier{fail: map[string]bool{"p2": true}}
	bus := eventbus.NewMemory(zap.NewNop())

	var events []models.AutomationExecuted
	bus.Subscribe(eventbus.EventAutomationExecuted, func(payload any) {
		events = append(events, payload.(models.AutomationExecuted))
	})

	d := New(store, applier, bus, zap.NewNop())
	d.Execute(context.Background(), auto)

	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].DeviceCount)
	assert.Len(t, store.logs, 1)
}

func TestExecuteNoApplicableAction(t *testing.T) {
	auto := models.Automation{
		ID: "a1",
		DeviceAction: models.DeviceAction{
			DeviceKind: models.DeviceSmartLock,
			DeviceIDs:  []string{"k1"},
			Settings:   models.ActionSettings{}, // nothing set
		},
	}
	applier := &fakeApplier{}
	bus := eventbus.NewMemory(zap.NewNop())
	emitted := false
	bus.Subscribe(eventbus.EventAutomationExecuted, func(payload any) { emitted = true })

	d := New(&fakeStore{}, applier, bus, zap.NewNop())
	d.Execute(context.Background(), auto)

	assert.Empty(t, applier.calls)
	assert.False(t, emitted)
}

func TestActionForMapping(t *testing.T) {
	on, off := true, false
	temp := 21.5
	brightness := 40

	cases := []struct {
		name     string
		kind     models.DeviceKind
		settings models.ActionSettings
		action   string
		ok       bool
	}{
		{"plug on", models.DeviceSmartPlug, models.ActionSettings{IsActive: &on}, "turnOn", true},
		{"plug off", models.DeviceSmartPlug, models.ActionSettings{IsActive: &off}, "turnOff", true},
		{"light brightness", models.DeviceSmartLight, models.ActionSettings{Brightness: &brightness}, "setBrightness", true},
		{"light color", models.DeviceSmartLight, models.ActionSettings{Color: "#ff8800"}, "setColor", true},
		{"thermostat", models.DeviceThermostat, models.ActionSettings{Temperature: &temp, Mode: "heat"}, "setTemperature", true},
		{"unlock", models.DeviceSmartLock, models.ActionSettings{DoorState: "open"}, "unlock", true},
		{"lock", models.DeviceSmartLock, models.ActionSettings{DoorState: "closed"}, "lock", true},
		{"gate open", models.DeviceGate, models.ActionSettings{Position: "open"}, "open", true},
		{"irrigation start", models.DeviceIrrigationSystem, models.ActionSettings{IsActive: &on}, "startIrrigation", true},
		{"irrigation stop", models.DeviceIrrigationSystem, models.ActionSettings{IsActive: &off}, "stopIrrigation", true},
		{"purifier mode", models.DeviceAirPurifier, models.ActionSettings{Mode: "auto"}, "setMode", true},
		{"empty settings", models.DeviceSmartPlug, models.ActionSettings{}, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			action, _, ok := actionFor(tc.kind, tc.settings)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.action, action)
		})
	}
}
