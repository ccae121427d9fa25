package models

import "time"

// SensorReadingPatch is one element of a batched sensor write: the full
// regenerated reading set for one sensor.
type SensorReadingPatch struct {
	SensorID  string
	Readings  map[string]float64
	Timestamp time.Time
}

// DeviceLoadPatch is one element of a batched device write: a new plug load.
type DeviceLoadPatch struct {
	DeviceID  string
	Load      float64
	Timestamp time.Time
}
