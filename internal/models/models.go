package models

import "time"

// Sensor represents a sensor document. Readings keys are constrained to
// Kind.Fields(); Danger keys carry the optional dangerous* thresholds
// supplied at creation.
type Sensor struct {
	ID         string             `json:"id"`
	HomeID     string             `json:"home_id"`
	RoomID     string             `json:"room_id"`
	Kind       SensorKind         `json:"type"`
	Location   string             `json:"location"` // room-category tag, e.g. "outdoor", "kitchen"
	Area       string             `json:"area"`     // e.g. "urban"
	IsActive   bool               `json:"is_active"`
	Readings   map[string]float64 `json:"readings"`
	Danger     map[string]float64 `json:"danger"`
	LastUpdate time.Time          `json:"last_update"`
}

// DeviceState holds the kind-specific mutable state of a device. Only the
// fields valid for the device's kind are ever populated.
type DeviceState struct {
	Load              *float64 `json:"currentLoad,omitempty"`       // smart_plug, W
	TargetTemperature *float64 `json:"targetTemperature,omitempty"` // thermostat, °C
	Mode              string   `json:"mode,omitempty"`              // thermostat, ventilation, air_purifier
	DoorState         string   `json:"doorState,omitempty"`         // smart_lock: "open"/"closed"
	Position          string   `json:"position,omitempty"`          // gate: "open"/"closed"
	WaterFlow         *float64 `json:"waterFlow,omitempty"`         // irrigation_system
	FanSpeed          *int     `json:"fanSpeed,omitempty"`          // ventilation, air_purifier
	Brightness        *int     `json:"brightness,omitempty"`        // smart_light
	Color             string   `json:"color,omitempty"`             // smart_light
	ResolutionWidth   *int     `json:"resolutionWidth,omitempty"`   // camera
	ResolutionHeight  *int     `json:"resolutionHeight,omitempty"`  // camera
}

// Device represents a device document. IsActive is the power flag.
type Device struct {
	ID         string      `json:"id"`
	HomeID     string      `json:"home_id"`
	RoomID     string      `json:"room_id"`
	Kind       DeviceKind  `json:"type"`
	IsActive   bool        `json:"is_active"`
	State      DeviceState `json:"state"`
	LastUpdate time.Time   `json:"last_update"`
}

// CurrentLoad returns the plug load or zero when unset.
func (d *Device) CurrentLoad() float64 {
	if d.State.Load == nil {
		return 0
	}
	return *d.State.Load
}

// TimeTrigger describes a recurring daily window for a time automation.
type TimeTrigger struct {
	StartTime   string   `json:"startTime"` // "HH:MM"
	EndTime     string   `json:"endTime"`   // "HH:MM"
	IsRecurring bool     `json:"isRecurring"`
	DaysOfWeek  []string `json:"daysOfWeek"` // lowercase day names
}

// SensorCondition is the threshold condition of a sensor trigger. The only
// comparator in this model is >=.
type SensorCondition struct {
	Property     string  `json:"property"`
	TriggerValue float64 `json:"triggerValue"`
	Unit         string  `json:"unit"`
}

// SensorTrigger binds an automation to one sensor's readings.
type SensorTrigger struct {
	SensorID   string          `json:"sensorId"`
	SensorKind SensorKind      `json:"sensorType"`
	Condition  SensorCondition `json:"condition"`
}

// ActionSettings is the settings bag of an automation's device action. Which
// keys are meaningful depends on the target device kind.
type ActionSettings struct {
	IsActive    *bool    `json:"isActive,omitempty"`
	Brightness  *int     `json:"brightness,omitempty"`
	Color       string   `json:"color,omitempty"`
	Temperature *float64 `json:"currentTemperature,omitempty"`
	Mode        string   `json:"currentMode,omitempty"`
	DoorState   string   `json:"currentDoorState,omitempty"`
	Position    string   `json:"currentPosition,omitempty"`
	WaterFlow   *float64 `json:"currentWaterFlow,omitempty"`
	Duration    *int     `json:"duration,omitempty"`
	FanSpeed    *int     `json:"currentFanSpeed,omitempty"`
}

// DeviceAction names the devices an automation drives and how.
type DeviceAction struct {
	DeviceKind DeviceKind     `json:"deviceType"`
	DeviceIDs  []string       `json:"deviceIds"`
	Settings   ActionSettings `json:"settings"`
}

// TriggerType values.
const (
	TriggerTime   = "time"
	TriggerSensor = "sensor"
)

// Automation maps a trigger (time window or sensor threshold) to device
// actions. Exactly one of TimeTrigger/SensorTrigger is non-nil, matching
// TriggerType.
type Automation struct {
	ID            string         `json:"id"`
	HomeID        string         `json:"home_id"`
	Name          string         `json:"name"`
	IsActive      bool           `json:"is_active"`
	TriggerType   string         `json:"triggerType"`
	TimeTrigger   *TimeTrigger   `json:"timeTrigger,omitempty"`
	SensorTrigger *SensorTrigger `json:"sensorTrigger,omitempty"`
	DeviceAction  DeviceAction   `json:"deviceAction"`
}

// ActionParams carries the parameters of a single device actuation.
type ActionParams struct {
	Power       *bool    `json:"power,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Mode        string   `json:"mode,omitempty"`
	Brightness  *int     `json:"brightness,omitempty"`
	Color       string   `json:"color,omitempty"`
	WaterFlow   *float64 `json:"waterFlow,omitempty"`
	Duration    *int     `json:"duration,omitempty"`
	FanSpeed    *int     `json:"fanSpeed,omitempty"`
	Width       *int     `json:"width,omitempty"`
	Height      *int     `json:"height,omitempty"`
}

// Log entry type values.
const (
	LogMeasurement      = "measurement"
	LogPowerChange      = "power_change"
	LogStateChange      = "state_change"
	LogAutomationAction = "automation_action"
	LogError            = "error"
)

// SensorLogEntry is an append-only row recording one generated reading set.
type SensorLogEntry struct {
	ID        string             `json:"id"`
	HomeID    string             `json:"home_id"`
	RoomID    string             `json:"room_id"`
	SensorID  string             `json:"sensor_id"`
	Kind      SensorKind         `json:"sensor_type"`
	Type      string             `json:"type"`
	Readings  map[string]float64 `json:"readings"`
	Timestamp time.Time          `json:"timestamp"`
}

// DeviceSnapshot is the denormalized before/after state carried by device
// log rows.
type DeviceSnapshot struct {
	IsActive bool        `json:"isActive"`
	State    DeviceState `json:"state"`
}

// DeviceLogEntry is an append-only row recording one actuation or load
// change. Failure rows carry the previous state only.
type DeviceLogEntry struct {
	ID            string          `json:"id"`
	HomeID        string          `json:"home_id"`
	RoomID        string          `json:"room_id"`
	DeviceID      string          `json:"device_id"`
	Kind          DeviceKind      `json:"device_type"`
	Type          string          `json:"type"`
	Action        string          `json:"action,omitempty"`
	Parameters    *ActionParams   `json:"parameters,omitempty"`
	PreviousState *DeviceSnapshot `json:"previous_state,omitempty"`
	NewState      *DeviceSnapshot `json:"new_state,omitempty"`
	Success       bool            `json:"success"`
	Error         string          `json:"error,omitempty"`
	Details       map[string]any  `json:"details,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}
