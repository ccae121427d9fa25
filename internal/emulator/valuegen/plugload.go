package valuegen

import (
	"math"
	"time"
)

// StandbyLoad returns a small residual draw in watts (0.5 to 2.0, one
// decimal) for a powered-off plug.
func (g *Generator) StandbyLoad() float64 {
	return round1(0.5 + g.rng.Float64()*1.5)
}

// PlugLoad generates a smart plug's load in watts from the category of the
// room it sits in. A powered-off plug draws only standby.
func (g *Generator) PlugLoad(roomKind string, isOn bool, env Snapshot) float64 {
	if !isOn {
		return g.StandbyLoad()
	}

	base := 40 + g.rng.Float64()*60
	weekend := env.Weekday == time.Saturday || env.Weekday == time.Sunday

	switch roomKind {
	case "living_room":
		base = 60 + g.rng.Float64()*80
		if env.Hour >= 18 && env.Hour <= 23 {
			base += 100 + g.rng.Float64()*150 // TV and lighting
		}
	case "kitchen":
		base = 30 + g.rng.Float64()*40
		if isMealWindow(env.Hour) {
			base += 500 + g.rng.Float64()*1000 // cooking appliances
		}
	case "bedroom":
		base = 20 + g.rng.Float64()*30
		if env.Hour >= 22 || env.Hour <= 7 {
			base += 10 + g.rng.Float64()*20
		}
	case "bathroom":
		base = 15 + g.rng.Float64()*25
		morning := env.Hour >= 6 && env.Hour <= 9
		evening := env.Hour >= 20 && env.Hour <= 22
		if morning || evening {
			base += 800 + g.rng.Float64()*1200 // water heating, hair dryer
		}
	case "office":
		base = 80 + g.rng.Float64()*120
		workHours := env.Hour >= 9 && env.Hour <= 18 && !weekend
		if workHours {
			base += 150 + g.rng.Float64()*200
		}
	case "gym":
		base = 10 + g.rng.Float64()*20
		if (env.Hour >= 6 && env.Hour <= 8) || (env.Hour >= 17 && env.Hour <= 21) {
			base += 200 + g.rng.Float64()*400
		}
	case "garage":
		base = 10 + g.rng.Float64()*15
		if weekend && env.IsDaytime && g.chance(0.3) {
			base += 400 + g.rng.Float64()*800 // power tools
		}
	}

	base *= 0.9 + g.rng.Float64()*0.2
	return math.Max(0.5, math.Round(base))
}
