package orbital

import (
	"math"
	"time"
)

// HohmannTransfer is a two-impulse transfer between two radii.
// Velocity changes are signed: a negative Δv is a retrograde burn.
type HohmannTransfer struct {
	StartΔv  float64 // km/s
	EndΔv    float64 // km/s
	Duration float64 // seconds
}

// TOF returns the time of flight of this transfer.
func (h HohmannTransfer) TOF() time.Duration {
	return seconds(h.Duration)
}

// TotalΔv returns the sum of both burn magnitudes.
func (h HohmannTransfer) TotalΔv() float64 {
	return math.Abs(h.StartΔv) + math.Abs(h.EndΔv)
}

// visViva returns the speed at radius r on an orbit of semi major axis a.
func visViva(μ, r, a float64) float64 {
	return math.Sqrt(μ * (2/r - 1/a))
}

// Hohmann computes an Hohmann transfer from the maneuver radius to the
// destination radius. The origin orbit is defined by the maneuver radius and its
// other apside at the origin radius: it is circular if both are equal.
// The destination orbit is always circular.
// ΔvStart = vTransfer(rManeuver) - vOrigin(rManeuver)
// ΔvEnd = vCircular(rDestination) - vTransfer(rDestination)
func Hohmann(μ, rManeuver, rOrigin, rDestination float64) HohmannTransfer {
	aOrigin := 0.5 * (rManeuver + rOrigin)
	aTransfer := 0.5 * (rManeuver + rDestination)
	vOrigin := visViva(μ, rManeuver, aOrigin)
	vDeparture := visViva(μ, rManeuver, aTransfer)
	vArrival := visViva(μ, rDestination, aTransfer)
	vDestination := math.Sqrt(μ / rDestination)
	return HohmannTransfer{
		StartΔv:  vDeparture - vOrigin,
		EndΔv:    vDestination - vArrival,
		Duration: math.Pi * math.Sqrt(math.Pow(rManeuver+rDestination, 3)/(8*μ)),
	}
}

// Apside is one of the two points of extreme altitude of an orbit.
type Apside struct {
	Phase            float64 // degrees
	Altitude         float64 // km
	OppositeAltitude float64 // km
}

// NearestApside returns the apside of the geometry whose altitude is numerically
// the closest to the target altitude. This minimizes the coast before a transfer
// towards that altitude, not the Δv of that transfer.
func NearestApside(g OrbitGeometry, altitude float64) Apside {
	if math.Abs(g.StartAltitude-altitude) <= math.Abs(g.OppositeAltitude-altitude) {
		return Apside{Wrap360(g.StartPhase), g.StartAltitude, g.OppositeAltitude}
	}
	return Apside{Wrap360(g.StartPhase + 180), g.OppositeAltitude, g.StartAltitude}
}
