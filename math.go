package orbital

import (
	"math"
	"time"

	"github.com/gonum/floats"
)

const (
	deg2rad = math.Pi / 180
	// G is the gravitational constant in km^3/(kg s^2).
	G = 6.67430e-20

	phaseε    = 1e-6 // degrees
	distanceε = 1e-6 // km
	velocityε = 1e-9 // km/s
)

// Deg2rad converts degrees to radians.
func Deg2rad(a float64) float64 {
	return a * deg2rad
}

// Rad2deg converts radians to degrees.
func Rad2deg(a float64) float64 {
	return a / deg2rad
}

// Wrap360 returns the provided angle in degrees within [0, 360).
func Wrap360(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		// -tiny + 360 rounds up to 360.
		a = 0
	}
	return a
}

// PhasesEqual returns whether both phases (in degrees) are equal modulo 360 within ε.
func PhasesEqual(a, b, ε float64) bool {
	d := Wrap360(a - b)
	return d < ε || 360-d < ε
}

// seconds converts a number of seconds into a time.Duration, rounded to the nanosecond.
func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// finite returns whether all provided values are neither infinite nor NaN.
func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// isZero returns whether v is zero within ε.
func isZero(v, ε float64) bool {
	return floats.EqualWithinAbs(v, 0, ε)
}
