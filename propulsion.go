package orbital

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	// g0 is the standard gravity in m/s^2.
	g0 = 9.80665
)

var (
	// ErrUnknownSpacecraft is returned when the propulsion model has no such spacecraft.
	ErrUnknownSpacecraft = errors.New("unknown spacecraft")
	// ErrInsufficientPropellant is returned when a maneuver requires more propellant than remaining.
	ErrInsufficientPropellant = errors.New("insufficient propellant")
)

// Engine sizes maneuvers for a single spacecraft.
type Engine interface {
	// Acceleration returns the acceleration at full thrust in km/s^2.
	Acceleration() float64
	// RemainingPropellant returns the propellant mass in kg.
	RemainingPropellant() float64
	// ManeuverDuration returns the burn duration and propellant used for the
	// provided Δv (km/s), given the remaining propellant (kg).
	ManeuverDuration(Δv, propellant float64) (time.Duration, float64, error)
	// ThrusterFactors returns the share of total thrust of each thruster.
	ThrusterFactors() []float64
}

// PropulsionModel is the propulsion and mass model of the spacecraft.
type PropulsionModel interface {
	// SlowestInGroup returns the engine of the member of the group with the lowest acceleration.
	SlowestInGroup(ids []uuid.UUID) (Engine, error)
}

// Spacecraft defines a spacecraft.
type Spacecraft struct {
	ID         uuid.UUID
	Name       string
	DryMass    float64 // kg
	Propellant float64 // kg
	Thrusters  []Thruster
}

// NewSpacecraft returns a new spacecraft with a random identifier.
func NewSpacecraft(name string, dryMass, propellant float64, thrusters ...Thruster) *Spacecraft {
	return &Spacecraft{uuid.New(), name, dryMass, propellant, thrusters}
}

// Mass returns the total mass in kg.
func (sc *Spacecraft) Mass() float64 {
	return sc.DryMass + sc.Propellant
}

// Thrust returns the total thrust (N) and the effective specific impulse (s) of all thrusters.
func (sc *Spacecraft) Thrust() (thrust, isp float64) {
	flow := 0.0
	for _, th := range sc.Thrusters {
		f, i := th.Thrust()
		thrust += f
		flow += f / i
	}
	if flow == 0 {
		return 0, 0
	}
	return thrust, thrust / flow
}

// Acceleration implements the Engine interface.
func (sc *Spacecraft) Acceleration() float64 {
	thrust, _ := sc.Thrust()
	return thrust / sc.Mass() / 1e3
}

// RemainingPropellant implements the Engine interface.
func (sc *Spacecraft) RemainingPropellant() float64 {
	return sc.Propellant
}

// ManeuverDuration implements the Engine interface from the rocket equation.
func (sc *Spacecraft) ManeuverDuration(Δv, propellant float64) (time.Duration, float64, error) {
	thrust, isp := sc.Thrust()
	if thrust <= 0 {
		return 0, 0, fmt.Errorf("%s has no thrusters", sc)
	}
	ve := isp * g0
	m0 := sc.DryMass + propellant
	used := m0 * (1 - math.Exp(-math.Abs(Δv)*1e3/ve))
	if used > propellant {
		return 0, 0, fmt.Errorf("%w: %s needs %.3f kg for Δv=%.6f km/s, has %.3f kg", ErrInsufficientPropellant, sc, used, Δv, propellant)
	}
	flow := thrust / ve
	return seconds(used / flow), used, nil
}

// ThrusterFactors implements the Engine interface.
func (sc *Spacecraft) ThrusterFactors() []float64 {
	total, _ := sc.Thrust()
	factors := make([]float64, len(sc.Thrusters))
	if total == 0 {
		return factors
	}
	for i, th := range sc.Thrusters {
		f, _ := th.Thrust()
		factors[i] = f / total
	}
	return factors
}

// String implements the Stringer interface.
func (sc *Spacecraft) String() string {
	return fmt.Sprintf("%s (%s)", sc.Name, sc.ID)
}

// Fleet is a PropulsionModel backed by known spacecraft.
// It must not be modified while trajectories are computed.
type Fleet map[uuid.UUID]*Spacecraft

// Add adds spacecraft to the fleet.
func (f Fleet) Add(scs ...*Spacecraft) {
	for _, sc := range scs {
		f[sc.ID] = sc
	}
}

// SlowestInGroup implements the PropulsionModel interface.
func (f Fleet) SlowestInGroup(ids []uuid.UUID) (Engine, error) {
	var slowest *Spacecraft
	for _, id := range ids {
		sc, ok := f[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSpacecraft, id)
		}
		if slowest == nil || sc.Acceleration() < slowest.Acceleration() {
			slowest = sc
		}
	}
	if slowest == nil {
		return nil, errors.New("empty spacecraft group")
	}
	return slowest, nil
}
