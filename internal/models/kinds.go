package models

// SensorKind identifies the sensor category. The set of current* reading
// fields a sensor carries is fully determined by its kind.
type SensorKind string

const (
	SensorTemperature SensorKind = "temperature_sensor"
	SensorHumidity    SensorKind = "humidity_sensor"
	SensorMotion      SensorKind = "motion_sensor"
	SensorSmoke       SensorKind = "smoke_sensor"
	SensorWaterLeak   SensorKind = "water_leak_sensor"
	SensorGas         SensorKind = "gas_sensor"
	SensorAirQuality  SensorKind = "air_quality_sensor"
	SensorLight       SensorKind = "light_sensor"
	SensorPower       SensorKind = "power_sensor"
	SensorWeather     SensorKind = "weather_sensor"
)

// sensorFields maps each kind to its exact reading field set.
var sensorFields = map[SensorKind][]string{
	SensorTemperature: {"currentTemperature"},
	SensorHumidity:    {"currentHumidity"},
	SensorMotion:      {"currentMotionIntensity"},
	SensorSmoke:       {"currentSmokeLevel"},
	SensorWaterLeak:   {"currentWaterDetectionIndex"},
	SensorGas: {
		"currentMethanLevel",
		"currentPropaneLevel",
		"currentCarbonDioxideLevel",
		"currentCarbonMonoxideLevel",
		"currentNitrogenDioxideLevel",
		"currentOzoneLevel",
	},
	SensorAirQuality: {"currentAQI", "currentPM25", "currentPM10"},
	SensorLight:      {"currentLux"},
	SensorPower:      {"currentPower", "currentVoltage", "currentCurrent"},
	SensorWeather: {
		"currentTemperature",
		"currentHumidity",
		"currentPressure",
		"currentWindSpeed",
		"currentWindDirection",
		"currentRainIntensity",
	},
}

// sensorUnits maps each kind to the display unit of its primary reading.
var sensorUnits = map[SensorKind]string{
	SensorTemperature: "°C",
	SensorHumidity:    "%",
	SensorMotion:      "level",
	SensorSmoke:       "ppm",
	SensorWaterLeak:   "index",
	SensorGas:         "ppm",
	SensorAirQuality:  "AQI",
	SensorLight:       "lux",
	SensorPower:       "W",
	SensorWeather:     "°C",
}

// Valid reports whether the kind is a known sensor category.
func (k SensorKind) Valid() bool {
	_, ok := sensorFields[k]
	return ok
}

// Fields returns the exact set of current* reading fields for the kind,
// or nil for an unknown kind.
func (k SensorKind) Fields() []string {
	return sensorFields[k]
}

// Unit returns the display unit of the kind's primary reading.
func (k SensorKind) Unit() string {
	return sensorUnits[k]
}

// HasField reports whether the named reading field is valid for the kind.
func (k SensorKind) HasField(field string) bool {
	for _, f := range sensorFields[k] {
		if f == field {
			return true
		}
	}
	return false
}

// DeviceKind identifies the device category. The action vocabulary a device
// accepts is determined by its kind.
type DeviceKind string

const (
	DeviceSmartPlug        DeviceKind = "smart_plug"
	DeviceThermostat       DeviceKind = "thermostat"
	DeviceHeatingValve     DeviceKind = "heating_valve"
	DeviceSmartLock        DeviceKind = "smart_lock"
	DeviceGate             DeviceKind = "gate"
	DeviceIrrigationSystem DeviceKind = "irrigation_system"
	DeviceVentilation      DeviceKind = "ventilation"
	DeviceAirPurifier      DeviceKind = "air_purifier"
	DeviceCamera           DeviceKind = "camera"
	DeviceSmartLight       DeviceKind = "smart_light"
)

var deviceKinds = map[DeviceKind]bool{
	DeviceSmartPlug:        true,
	DeviceThermostat:       true,
	DeviceHeatingValve:     true,
	DeviceSmartLock:        true,
	DeviceGate:             true,
	DeviceIrrigationSystem: true,
	DeviceVentilation:      true,
	DeviceAirPurifier:      true,
	DeviceCamera:           true,
	DeviceSmartLight:       true,
}

// Valid reports whether the kind is a known device category.
func (k DeviceKind) Valid() bool {
	return deviceKinds[k]
}
