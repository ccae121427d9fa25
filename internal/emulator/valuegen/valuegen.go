// Package valuegen produces plausible synthetic readings for sensors and
// devices. Generation is pure: given the same random source and context
// snapshot it is deterministic, and it performs no I/O.
package valuegen

import (
	"math"
	"math/rand"
	"time"

	"homeglow/internal/models"
)

// Danger threshold keys recognized in a sensor's threshold bag.
const (
	DangerTemperaturePlus  = "dangerousTemperaturePlus"
	DangerTemperatureMinus = "dangerousTemperatureMinus"
	DangerHumidity         = "dangerousHumidity"
	DangerMotionIntensity  = "dangerousMotionIntensity"
	DangerSmokeLevel       = "dangerousSmokeLevel"
	DangerWaterIndex       = "dangerousWaterDetectionIndex"
	DangerMethan           = "dangerousMethanLevel"
	DangerPropane          = "dangerousPropaneLevel"
	DangerCarbonDioxide    = "dangerousCarbonDioxideLevel"
	DangerCarbonMonoxide   = "dangerousCarbonMonoxideLevel"
	DangerNitrogenDioxide  = "dangerousNitrogenDioxideLevel"
	DangerOzone            = "dangerousOzoneLevel"
	DangerAQI              = "dangerousAQI"
	DangerPM25             = "dangerousPM25"
	DangerPM10             = "dangerousPM10"
	DangerLux              = "dangerousLux"
	DangerPower            = "dangerousPower"
	DangerVoltage          = "dangerousVoltage"
	DangerCurrent          = "dangerousCurrent"
	DangerWindSpeed        = "dangerousWindSpeed"
	DangerRainIntensity    = "dangerousRainIntensity"
)

// Snapshot captures the wall-clock context a generation run depends on.
type Snapshot struct {
	Hour    int
	Minute  int
	Month   time.Month
	Weekday time.Weekday

	IsWinter  bool
	IsSpring  bool
	IsSummer  bool
	IsFall    bool
	IsDaytime bool
}

// SnapshotAt derives the context snapshot for a point in time.
func SnapshotAt(t time.Time) Snapshot {
	m := t.Month()
	return Snapshot{
		Hour:      t.Hour(),
		Minute:    t.Minute(),
		Month:     m,
		Weekday:   t.Weekday(),
		IsWinter:  m == time.December || m == time.January || m == time.February,
		IsSpring:  m >= time.March && m <= time.May,
		IsSummer:  m >= time.June && m <= time.August,
		IsFall:    m >= time.September && m <= time.November,
		IsDaytime: t.Hour() >= 8 && t.Hour() < 20,
	}
}

// Generator holds the injected random source.
type Generator struct {
	rng *rand.Rand
}

// New creates a generator over the given source.
func New(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// NewSeeded creates a time-seeded generator for production use.
func NewSeeded() *Generator {
	return New(rand.NewSource(time.Now().UnixNano()))
}

func (g *Generator) chance(p float64) bool {
	return g.rng.Float64() < p
}

// centered returns a uniform value in [-width/2, width/2).
func (g *Generator) centered(width float64) float64 {
	return (g.rng.Float64() - 0.5) * width
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// SensorReadings generates the exact reading field set for the kind, or
// ok=false when the kind has no generation table. Supplied danger
// thresholds bias values below the threshold most of the time with a small
// per-field injection rate (0.1–1% of ticks) at or above it.
func (g *Generator) SensorReadings(kind models.SensorKind, location, area string, danger map[string]float64, env Snapshot) (map[string]float64, bool) {
	switch kind {
	case models.SensorTemperature:
		return g.temperature(location, danger, env), true
	case models.SensorHumidity:
		return g.humidity(location, danger, env), true
	case models.SensorMotion:
		return g.motion(location, danger, env), true
	case models.SensorSmoke:
		return g.smoke(location, danger, env), true
	case models.SensorWaterLeak:
		return g.waterLeak(danger), true
	case models.SensorGas:
		return g.gas(danger), true
	case models.SensorAirQuality:
		return g.airQuality(location, area, danger, env), true
	case models.SensorLight:
		return g.light(location, danger, env), true
	case models.SensorPower:
		return g.power(danger, env), true
	case models.SensorWeather:
		return g.weather(danger, env), true
	default:
		return nil, false
	}
}

func (g *Generator) temperature(location string, danger map[string]float64, env Snapshot) map[string]float64 {
	var base float64
	if location == "outdoor" {
		switch {
		case env.IsWinter:
			base = -5 + g.rng.Float64()*10
		case env.IsSpring:
			base = 10 + g.rng.Float64()*10
		case env.IsSummer:
			base = 25 + g.rng.Float64()*8
		default:
			base = 10 + g.rng.Float64()*10
		}
		if !env.IsDaytime {
			base -= 5
		}
	} else {
		// Indoor stays in the human-comfort band.
		base = 22
		if !env.IsDaytime {
			base = math.Max(18, base-2)
		}
		base = math.Max(base, 10)
	}

	base += g.centered(2)

	maxTemp, hasMax := danger[DangerTemperaturePlus]
	minTemp, hasMin := danger[DangerTemperatureMinus]
	if hasMax && hasMin {
		if g.chance(0.002) {
			// Deliberate threshold breach to exercise alerting.
			return map[string]float64{"currentTemperature": math.Round(maxTemp + g.rng.Float64()*5)}
		}
		if base > maxTemp || base < minTemp {
			base = g.pullIntoRange(minTemp, maxTemp)
		}
	}

	return map[string]float64{"currentTemperature": math.Round(base)}
}

// pullIntoRange picks a plausible in-range temperature, preferring the
// human-comfort band when the range allows it.
func (g *Generator) pullIntoRange(minTemp, maxTemp float64) float64 {
	width := maxTemp - minTemp
	switch {
	case width > 10:
		if minTemp <= 18 && maxTemp >= 22 {
			return 18 + g.rng.Float64()*4
		}
		if maxTemp > 0 {
			buffer := math.Min(3, maxTemp*0.2)
			return maxTemp - buffer - g.rng.Float64()*buffer
		}
		return minTemp + width*0.8 + g.rng.Float64()*width*0.2
	case width > 2:
		return minTemp + width*0.6 + g.rng.Float64()*width*0.4
	default:
		return (maxTemp+minTemp)/2 + g.centered(width*0.5)
	}
}

func (g *Generator) humidity(location string, danger map[string]float64, env Snapshot) map[string]float64 {
	base := 40.0
	switch location {
	case "outdoor":
		switch {
		case env.IsWinter:
			base = 70 + g.rng.Float64()*15
		case env.IsSummer:
			base = 50 + g.rng.Float64()*20
		default:
			base = 60 + g.rng.Float64()*20
		}
	case "bathroom":
		base = 60 + g.rng.Float64()*15
	case "basement":
		base = 65 + g.rng.Float64()*10
	default:
		base += g.centered(10)
	}

	if threshold, ok := danger[DangerHumidity]; ok {
		if g.chance(0.005) {
			return map[string]float64{"currentHumidity": math.Round(threshold + g.rng.Float64()*5)}
		}
		base = math.Min(base, threshold-10)
	}

	return map[string]float64{"currentHumidity": math.Round(base)}
}

func (g *Generator) motion(location string, danger map[string]float64, env Snapshot) map[string]float64 {
	probability := 0.1
	if location == "living_room" && env.IsDaytime {
		probability = 0.4
	} else if location == "entrance" {
		morning := env.Hour >= 7 && env.Hour <= 9
		evening := env.Hour >= 17 && env.Hour <= 19
		if morning || evening {
			probability = 0.6
		}
	}

	if threshold, ok := danger[DangerMotionIntensity]; ok && g.chance(0.01) {
		return map[string]float64{"currentMotionIntensity": math.Round(threshold + g.rng.Float64()*10)}
	}

	var intensity float64
	if g.chance(probability) {
		intensity = math.Round(20 + g.rng.Float64()*60)
	}
	return map[string]float64{"currentMotionIntensity": intensity}
}

func (g *Generator) smoke(location string, danger map[string]float64, env Snapshot) map[string]float64 {
	probability := 0.01
	if location == "kitchen" && isMealWindow(env.Hour) {
		probability = 0.1
	}

	if threshold, ok := danger[DangerSmokeLevel]; ok {
		if g.chance(0.003) {
			return map[string]float64{"currentSmokeLevel": math.Round(threshold + g.rng.Float64()*10)}
		}
		var level float64
		if g.chance(probability) {
			level = math.Round(g.rng.Float64() * math.Min(20, threshold-5))
		}
		return map[string]float64{"currentSmokeLevel": level}
	}

	var level float64
	if g.chance(probability) {
		level = math.Round(g.rng.Float64() * 20)
	}
	return map[string]float64{"currentSmokeLevel": level}
}

// isMealWindow reports the three fixed cooking windows that raise kitchen
// smoke and gas baselines.
func isMealWindow(hour int) bool {
	return (hour >= 7 && hour <= 8) || (hour >= 12 && hour <= 13) || (hour >= 18 && hour <= 19)
}

func (g *Generator) waterLeak(danger map[string]float64) map[string]float64 {
	const leakProbability = 0.01

	if threshold, ok := danger[DangerWaterIndex]; ok {
		if g.chance(0.002) {
			return map[string]float64{"currentWaterDetectionIndex": math.Round(threshold + g.rng.Float64()*10)}
		}
		var index float64
		if g.chance(leakProbability) {
			index = math.Round(g.rng.Float64() * math.Min(30, threshold-10))
		}
		return map[string]float64{"currentWaterDetectionIndex": index}
	}

	var index float64
	if g.chance(leakProbability) {
		index = math.Round(g.rng.Float64() * 30)
	}
	return map[string]float64{"currentWaterDetectionIndex": index}
}

// gasReading picks a value for one gas: a rare breach just above the
// threshold, otherwise a normal-range value derived from the safe level.
func (g *Generator) gasReading(danger map[string]float64, key string, safeDefault, breachSpan float64, normal func(safe float64) float64) float64 {
	threshold, hasThreshold := danger[key]
	safe := safeDefault
	if hasThreshold {
		safe = math.Max(0.1, threshold*0.5)
	}
	if hasThreshold && g.chance(0.002) {
		return threshold + g.rng.Float64()*breachSpan
	}
	return normal(safe)
}

func (g *Generator) gas(danger map[string]float64) map[string]float64 {
	methan := g.gasReading(danger, DangerMethan, 10, 1, func(safe float64) float64 {
		return safe * (0.5 + g.rng.Float64()*0.3)
	})
	propane := g.gasReading(danger, DangerPropane, 5, 0.5, func(safe float64) float64 {
		return safe * (0.5 + g.rng.Float64()*0.3)
	})

	co2 := 400 + g.rng.Float64()*200
	if threshold, ok := danger[DangerCarbonDioxide]; ok {
		if g.chance(0.002) {
			co2 = threshold + g.rng.Float64()*100
		} else {
			co2 = math.Min(threshold*0.7, co2)
		}
	}

	co := 1 + g.rng.Float64()*3
	if threshold, ok := danger[DangerCarbonMonoxide]; ok {
		if g.chance(0.002) {
			co = threshold + g.rng.Float64()*10
		} else {
			co = math.Min(threshold*0.3, co)
		}
	}

	no2 := 5 + g.rng.Float64()*10
	if threshold, ok := danger[DangerNitrogenDioxide]; ok {
		if g.chance(0.002) {
			no2 = threshold + g.rng.Float64()*20
		} else {
			no2 = math.Min(threshold*0.4, no2)
		}
	}

	o3 := 2 + g.rng.Float64()*5
	if threshold, ok := danger[DangerOzone]; ok {
		if g.chance(0.002) {
			o3 = threshold + g.rng.Float64()*10
		} else {
			o3 = math.Min(threshold*0.4, o3)
		}
	}

	return map[string]float64{
		"currentMethanLevel":          round2(methan),
		"currentPropaneLevel":         round2(propane),
		"currentCarbonDioxideLevel":   math.Round(co2),
		"currentCarbonMonoxideLevel":  math.Round(co),
		"currentNitrogenDioxideLevel": math.Round(no2),
		"currentOzoneLevel":           math.Round(o3),
	}
}

func (g *Generator) airQuality(location, area string, danger map[string]float64, env Snapshot) map[string]float64 {
	base := 30.0
	if location == "outdoor" && area == "urban" {
		base = 60
		rushHour := (env.Hour >= 7 && env.Hour <= 9) || (env.Hour >= 16 && env.Hour <= 18)
		if rushHour {
			base += 20
		}
		if env.IsWinter {
			base += 15
		}
	}

	aqi := math.Round(base + g.centered(10))
	pm25 := math.Round(base/2 + g.rng.Float64()*5)
	pm10 := math.Round(base + g.rng.Float64()*10)

	if threshold, ok := danger[DangerAQI]; ok && g.chance(0.003) {
		aqi = math.Round(threshold + g.rng.Float64()*10)
	}
	if threshold, ok := danger[DangerPM25]; ok && g.chance(0.003) {
		pm25 = math.Round(threshold + g.rng.Float64()*5)
	}
	if threshold, ok := danger[DangerPM10]; ok && g.chance(0.003) {
		pm10 = math.Round(threshold + g.rng.Float64()*10)
	}

	return map[string]float64{
		"currentAQI":  aqi,
		"currentPM25": pm25,
		"currentPM10": pm10,
	}
}

func (g *Generator) light(location string, danger map[string]float64, env Snapshot) map[string]float64 {
	var base float64
	if env.IsDaytime {
		switch location {
		case "outdoor":
			base = 10000 + g.rng.Float64()*40000
			if (env.IsFall || env.IsWinter) && g.chance(0.6) {
				base = 2000 + g.rng.Float64()*5000 // overcast
			}
		case "window":
			base = 2000 + g.rng.Float64()*8000
		default:
			base = 200 + g.rng.Float64()*500
		}
	} else if location != "outdoor" && g.chance(0.3) {
		base = 100 + g.rng.Float64()*200 // some rooms keep lights on
	}

	if threshold, ok := danger[DangerLux]; ok && g.chance(0.003) {
		return map[string]float64{"currentLux": math.Round(threshold + g.rng.Float64()*1000)}
	}
	return map[string]float64{"currentLux": math.Round(base)}
}

func (g *Generator) power(danger map[string]float64, env Snapshot) map[string]float64 {
	base := 50.0
	if env.Hour >= 7 && env.Hour <= 23 {
		base = 100 + g.rng.Float64()*200
		peak := (env.Hour >= 7 && env.Hour <= 9) || (env.Hour >= 18 && env.Hour <= 21)
		if peak {
			base += 200 + g.rng.Float64()*300
		}
	}

	power := math.Round(base)
	voltage := math.Round(220 + g.centered(10))
	current := round2(power / 220)

	if threshold, ok := danger[DangerPower]; ok && g.chance(0.003) {
		power = math.Round(threshold + g.rng.Float64()*200)
	}
	if threshold, ok := danger[DangerVoltage]; ok && g.chance(0.003) {
		voltage = math.Round(threshold + g.rng.Float64()*20)
	}
	if threshold, ok := danger[DangerCurrent]; ok && g.chance(0.003) {
		current = round2(threshold + g.rng.Float64())
	}

	return map[string]float64{
		"currentPower":   power,
		"currentVoltage": voltage,
		"currentCurrent": current,
	}
}

func (g *Generator) weather(danger map[string]float64, env Snapshot) map[string]float64 {
	temp := 20.0
	switch {
	case env.IsWinter:
		temp = -5 + g.rng.Float64()*10
	case env.IsSpring:
		temp = 10 + g.rng.Float64()*10
	case env.IsSummer:
		temp = 25 + g.rng.Float64()*8
	case env.IsFall:
		temp = 10 + g.rng.Float64()*10
	}
	if !env.IsDaytime {
		temp -= 5
	}

	rainChance := 0.3
	switch {
	case env.IsWinter:
		rainChance = 0.2
	case env.IsSpring:
		rainChance = 0.5
	case env.IsFall:
		rainChance = 0.6
	}

	wind := 2 + g.rng.Float64()*3
	if env.IsWinter || env.IsFall {
		wind += 2 + g.rng.Float64()*4
	}

	maxTemp, hasMax := danger[DangerTemperaturePlus]
	minTemp, hasMin := danger[DangerTemperatureMinus]
	if hasMax && hasMin && g.chance(0.8) {
		safeMin := minTemp + 5
		safeMax := maxTemp - 5
		if safeMax > safeMin {
			temp = safeMin + g.rng.Float64()*(safeMax-safeMin)
		}
	}

	var rain float64
	if g.chance(rainChance) {
		rain = math.Round(g.rng.Float64() * 5)
	}

	return map[string]float64{
		"currentTemperature":   math.Round(temp),
		"currentHumidity":      math.Round(60 + g.rng.Float64()*20),
		"currentPressure":      math.Round(1000 + g.centered(20)),
		"currentWindSpeed":     math.Round(wind),
		"currentWindDirection": math.Round(g.rng.Float64() * 360),
		"currentRainIntensity": rain,
	}
}
