package orbital

import (
	"fmt"
	"math"
	"strings"

	"github.com/soniakeys/meeus/v3/globe"
)

// CelestialBody defines the primary body all orbits of a session revolve around.
// Reference data only: a body is never mutated once defined.
type CelestialBody struct {
	Name   string  `json:"name"`
	Radius float64 `json:"radius"` // km
	// Mass is stored as a mantissa and a power of ten, i.e. Mass·10^MassExponent kg.
	Mass         float64 `json:"mass"`
	MassExponent int     `json:"massExponent"`
	Tilt         float64 `json:"tilt"` // Axial tilt in degrees, only used for display.
}

// GM returns the gravitational parameter μ in km^3/s^2.
func (c CelestialBody) GM() float64 {
	return G * c.Mass * math.Pow10(c.MassExponent)
}

// RadiusAt returns the distance to the center of the body for the provided altitude.
func (c CelestialBody) RadiusAt(altitude float64) float64 {
	return c.Radius + altitude
}

// Valid returns whether this body can be orbited.
func (c CelestialBody) Valid() bool {
	return c.Radius > 0 && c.Mass > 0
}

// Equals returns whether the provided celestial body is the same.
func (c CelestialBody) Equals(b CelestialBody) bool {
	return c.Name == b.Name && c.Radius == b.Radius && c.Mass == b.Mass && c.MassExponent == b.MassExponent
}

// String implements the Stringer interface.
func (c CelestialBody) String() string {
	return c.Name + " body"
}

// CelestialBodyFromString returns the body from its name.
func CelestialBodyFromString(name string) (CelestialBody, error) {
	switch strings.ToLower(name) {
	case "earth":
		return Earth, nil
	case "moon":
		return Moon, nil
	case "mars":
		return Mars, nil
	case "ceres":
		return Ceres, nil
	default:
		return CelestialBody{}, fmt.Errorf("undefined celestial body '%s'", name)
	}
}

/* Definitions */

// Earth is home.
var Earth = CelestialBody{"Earth", globe.Earth76.Er, 5.9722, 24, 23.44}

// Moon is where most stations are parked.
var Moon = CelestialBody{"Moon", 1737.4, 7.342, 22, 6.68}

// Mars is the vacation place.
var Mars = CelestialBody{"Mars", 3389.5, 6.4171, 23, 25.19}

// Ceres is small enough for cheap phasing.
var Ceres = CelestialBody{"Ceres", 469.7, 9.3835, 20, 4}
