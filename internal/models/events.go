package models

import "time"

// SensorUpdate is one element of a sensors:batch-update event.
type SensorUpdate struct {
	SensorID  string             `json:"sensorId"`
	Kind      SensorKind         `json:"sensorType"`
	HomeID    string             `json:"homeId"`
	RoomID    string             `json:"roomId"`
	Data      map[string]float64 `json:"data"`
	Timestamp time.Time          `json:"timestamp"`
}

// DeviceUpdate is one element of a devices:batch-update event.
type DeviceUpdate struct {
	DeviceID    string     `json:"deviceId"`
	Kind        DeviceKind `json:"deviceType"`
	HomeID      string     `json:"homeId"`
	RoomID      string     `json:"roomId"`
	IsActive    bool       `json:"isActive"`
	CurrentLoad float64    `json:"currentLoad"`
	Timestamp   time.Time  `json:"timestamp"`
}

// DeviceActuated is the payload of a device:update event, emitted after a
// successful actuation.
type DeviceActuated struct {
	DeviceID    string       `json:"deviceId"`
	Kind        DeviceKind   `json:"deviceType"`
	HomeID      string       `json:"homeId"`
	RoomID      string       `json:"roomId"`
	IsActive    bool         `json:"isActive"`
	CurrentLoad float64      `json:"currentLoad"`
	Action      string       `json:"action"`
	Parameters  ActionParams `json:"parameters"`
	Timestamp   time.Time    `json:"timestamp"`
}

// DeviceStatus is the payload of a device:status event, emitted when a
// device's emulation is enabled or disabled.
type DeviceStatus struct {
	DeviceID    string     `json:"deviceId"`
	Kind        DeviceKind `json:"deviceType"`
	IsEmulated  bool       `json:"isEmulated"`
	IsActive    bool       `json:"isActive"`
	CurrentLoad float64    `json:"currentLoad"`
}

// AutomationExecuted is the summary event emitted after an automation fires.
type AutomationExecuted struct {
	AutomationID string     `json:"automationId"`
	Name         string     `json:"name"`
	TriggerType  string     `json:"triggerType"`
	Timestamp    time.Time  `json:"timestamp"`
	DeviceKind   DeviceKind `json:"deviceType"`
	DeviceCount  int        `json:"deviceCount"`
}

// Automation lifecycle notification actions.
const (
	AutomationCreate = "create"
	AutomationUpdate = "update"
	AutomationDelete = "delete"
	AutomationToggle = "toggle"
)

// AutomationNotice is the inbound automation:update payload that triggers a
// reschedule.
type AutomationNotice struct {
	AutomationID string `json:"automationId"`
	Action       string `json:"action"`
}

// ControlRequest is the inbound device:control payload.
type ControlRequest struct {
	DeviceID   string       `json:"deviceId"`
	Action     string       `json:"action"`
	Parameters ActionParams `json:"parameters"`
}
