package orbital

import (
	"fmt"
	"math"
	"time"

	"github.com/gonum/floats"
)

// OrbitGeometry defines an orbit from its two apside altitudes and the phase
// window over which it is flown. The orbit starts at StartPhase on the apside at
// StartAltitude, and reaches OppositeAltitude at StartPhase+180.
// Phases are in degrees; EndPhase may exceed StartPhase+360 (parking orbits and
// multi-revolution phasing legs).
type OrbitGeometry struct {
	Body             CelestialBody `json:"body"`
	StartAltitude    float64       `json:"startAltitude"`    // km
	OppositeAltitude float64       `json:"oppositeAltitude"` // km
	StartPhase       float64       `json:"startPhase"`
	EndPhase         float64       `json:"endPhase"`
}

// NewCircularGeometry returns an indefinite circular orbit geometry.
func NewCircularGeometry(body CelestialBody, altitude, phase float64) OrbitGeometry {
	return OrbitGeometry{body, altitude, altitude, phase, phase + 360}
}

// NewEllipticalGeometry returns a geometry flown over a full revolution starting at the provided apside.
func NewEllipticalGeometry(body CelestialBody, startAltitude, oppositeAltitude, phase float64) OrbitGeometry {
	return OrbitGeometry{body, startAltitude, oppositeAltitude, phase, phase + 360}
}

// Valid returns whether this geometry can be flown.
func (g OrbitGeometry) Valid() bool {
	return g.Body.Valid() && g.StartAltitude > 0 && g.OppositeAltitude > 0 && g.StartPhase < g.EndPhase
}

// IsCircular returns whether both apsides are at the same altitude.
func (g OrbitGeometry) IsCircular() bool {
	return g.StartAltitude == g.OppositeAltitude
}

// SemiMajorAxis returns the semi major axis in km.
func (g OrbitGeometry) SemiMajorAxis() float64 {
	return 0.5 * (g.Body.RadiusAt(g.StartAltitude) + g.Body.RadiusAt(g.OppositeAltitude))
}

// SemiMinorAxis returns the semi minor axis in km.
func (g OrbitGeometry) SemiMinorAxis() float64 {
	return math.Sqrt(g.Body.RadiusAt(g.StartAltitude) * g.Body.RadiusAt(g.OppositeAltitude))
}

// Eccentricity returns the eccentricity derived from both semi axes.
func (g OrbitGeometry) Eccentricity() float64 {
	a := g.SemiMajorAxis()
	b := g.SemiMinorAxis()
	e2 := 1 - (b*b)/(a*a)
	if e2 < 0 {
		// Rounding on circular orbits.
		return 0
	}
	return math.Sqrt(e2)
}

// PeriodSeconds returns the orbital period in seconds.
func (g OrbitGeometry) PeriodSeconds() float64 {
	return 2 * math.Pi * math.Sqrt(math.Pow(g.SemiMajorAxis(), 3)/g.Body.GM())
}

// Period returns the orbital period.
func (g OrbitGeometry) Period() time.Duration {
	return seconds(g.PeriodSeconds())
}

// PhaseLength returns the angular length of the phase window in degrees.
func (g OrbitGeometry) PhaseLength() float64 {
	return g.EndPhase - g.StartPhase
}

// Duration returns how long it takes to fly the whole phase window.
func (g OrbitGeometry) Duration() time.Duration {
	return seconds(g.PhaseLength() / 360 * g.PeriodSeconds())
}

// CurrentPhase returns the phase reached Δt after passing StartPhase.
// When unwind is set, whole revolutions are removed and the result lies within
// [StartPhase, StartPhase+360).
func (g OrbitGeometry) CurrentPhase(Δt time.Duration, unwind bool) float64 {
	progress := Δt.Seconds() / g.PeriodSeconds() * 360
	if !unwind {
		return g.StartPhase + progress
	}
	phase := g.StartPhase + Wrap360(progress)
	if phase >= g.StartPhase+360 {
		// Only reached when Wrap360 returns 360-ε and the addition rounds up.
		phase = g.StartPhase
	}
	return phase
}

// apsideSign is +1 when the orbit is flown starting from its near apside and -1
// when it starts from its far apside. The true anomaly is the phase offset in the
// former case, and the phase offset plus 180 in the latter: this flips the sign of
// the cosine term of the conic equation.
func (g OrbitGeometry) apsideSign() float64 {
	if g.StartAltitude <= g.OppositeAltitude {
		return 1
	}
	return -1
}

// RadiusAt returns the distance to the center of the body at the provided phase.
func (g OrbitGeometry) RadiusAt(phase float64) float64 {
	a := g.SemiMajorAxis()
	e := g.Eccentricity()
	cosθ := math.Cos(Deg2rad(phase - g.StartPhase))
	return a * (1 - e*e) / (1 + g.apsideSign()*e*cosθ)
}

// AltitudeAt returns the altitude at the provided phase.
func (g OrbitGeometry) AltitudeAt(phase float64) float64 {
	return g.RadiusAt(phase) - g.Body.Radius
}

// Position returns the position in the orbital plane at the provided phase, in km.
func (g OrbitGeometry) Position(phase float64) []float64 {
	r := g.RadiusAt(phase)
	s, c := math.Sincos(Deg2rad(phase))
	return []float64{r * c, r * s, 0}
}

// DisplayPosition returns the position in the display frame, i.e. the orbital
// plane tilted by the axial tilt of the body.
func (g OrbitGeometry) DisplayPosition(phase float64) []float64 {
	return Orbital2Display(g.Body.Tilt, g.Position(phase))
}

// Equals returns whether both geometries describe the same orbit and window.
// Start phases are compared modulo 360.
func (g OrbitGeometry) Equals(o OrbitGeometry) (bool, error) {
	if !g.Body.Equals(o.Body) {
		return false, fmt.Errorf("different body: %s != %s", g.Body, o.Body)
	}
	if !floats.EqualWithinAbs(g.StartAltitude, o.StartAltitude, distanceε) {
		return false, fmt.Errorf("start altitude differs: %f != %f", g.StartAltitude, o.StartAltitude)
	}
	if !floats.EqualWithinAbs(g.OppositeAltitude, o.OppositeAltitude, distanceε) {
		return false, fmt.Errorf("opposite altitude differs: %f != %f", g.OppositeAltitude, o.OppositeAltitude)
	}
	if !PhasesEqual(g.StartPhase, o.StartPhase, phaseε) {
		return false, fmt.Errorf("start phase differs: %f != %f", g.StartPhase, o.StartPhase)
	}
	if !floats.EqualWithinAbs(g.PhaseLength(), o.PhaseLength(), phaseε) {
		return false, fmt.Errorf("phase window differs: %f != %f", g.PhaseLength(), o.PhaseLength())
	}
	return true, nil
}

// String implements the Stringer interface.
func (g OrbitGeometry) String() string {
	if g.IsCircular() {
		return fmt.Sprintf("circular %.1f km [%.3f, %.3f]", g.StartAltitude, g.StartPhase, g.EndPhase)
	}
	return fmt.Sprintf("%.1f km x %.1f km e=%.4f [%.3f, %.3f]", g.StartAltitude, g.OppositeAltitude, g.Eccentricity(), g.StartPhase, g.EndPhase)
}
