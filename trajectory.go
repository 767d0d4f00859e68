package orbital

import (
	"fmt"
	"math"
	"time"
)

// Maneuver is a burn performed at a given phase and time.
type Maneuver struct {
	Δv              float64       `json:"deltaV"` // km/s, negative when retrograde
	Phase           float64       `json:"phase"`
	Time            time.Time     `json:"time"`
	Duration        time.Duration `json:"duration"`
	ThrusterFactors []float64     `json:"thrusterFactors"`
}

// Valid returns whether this maneuver changes the velocity at all.
func (m Maneuver) Valid() bool {
	return !isZero(m.Δv, velocityε) && finite(m.Δv, m.Phase)
}

// End returns the time at which the burn is over.
func (m Maneuver) End() time.Time {
	return m.Time.Add(m.Duration)
}

// String implements the Stringer interface.
func (m Maneuver) String() string {
	return fmt.Sprintf("Δv=%.6f km/s @ %.3f deg on %s for %s", m.Δv, m.Phase, m.Time.Format(time.RFC3339), m.Duration)
}

// Trajectory is a chronologically and angularly contiguous list of orbit legs
// and the maneuvers between them.
type Trajectory struct {
	StartTime           time.Time     `json:"startTime"`
	Source              Orbit         `json:"source"`
	Transfers           []Orbit       `json:"transfers"`
	Maneuvers           []Maneuver    `json:"maneuvers"`
	Final               Orbit         `json:"final"`
	TotalΔv             float64       `json:"totalDeltaV"`
	TotalTravelDuration time.Duration `json:"totalTravelDuration"`
}

// Valid returns whether this trajectory can be flown.
func (t Trajectory) Valid() bool {
	if len(t.Transfers) == 0 || len(t.Maneuvers) == 0 {
		return false
	}
	for _, leg := range t.Transfers {
		if !leg.Geometry.Valid() {
			return false
		}
	}
	for _, m := range t.Maneuvers {
		if !m.Valid() {
			return false
		}
	}
	return t.Final.Geometry.Valid()
}

// FirstManeuver returns the first maneuver.
func (t Trajectory) FirstManeuver() Maneuver {
	return t.Maneuvers[0]
}

// LastManeuver returns the last maneuver.
func (t Trajectory) LastManeuver() Maneuver {
	return t.Maneuvers[len(t.Maneuvers)-1]
}

// ArrivalTime returns the time at which the final orbit is reached.
func (t Trajectory) ArrivalTime() time.Time {
	return t.StartTime.Add(t.TotalTravelDuration)
}

// FinalOrbit returns the orbit reached at arrival.
func (t Trajectory) FinalOrbit() Orbit {
	return t.Final
}

// NextManeuver returns the first maneuver which has not started by the provided time.
func (t Trajectory) NextManeuver(now time.Time) (Maneuver, bool) {
	for _, m := range t.Maneuvers {
		if m.Time.After(now) {
			return m, true
		}
	}
	return Maneuver{}, false
}

// following returns the geometry flown once the provided maneuver is over.
func (t Trajectory) following(m Maneuver) OrbitGeometry {
	end := m.End()
	for _, leg := range t.Transfers {
		if !leg.InsertionTime.Before(end) {
			return leg.Geometry
		}
	}
	return t.Final.Geometry
}

// FirstManeuverTime returns the time at which the first burn starts.
func (t Trajectory) FirstManeuverTime() time.Time {
	return t.FirstManeuver().Time
}

// ManeuverAt returns the maneuver being performed at the provided time.
func (t Trajectory) ManeuverAt(now time.Time) (Maneuver, bool) {
	for _, m := range t.Maneuvers {
		if !now.Before(m.Time) && now.Before(m.End()) {
			return m, true
		}
	}
	return Maneuver{}, false
}

// LegAt returns the leg being flown at the provided time.
func (t Trajectory) LegAt(now time.Time) (Orbit, bool) {
	for _, leg := range t.Transfers {
		if !now.Before(leg.InsertionTime) && now.Before(leg.End()) {
			return leg, true
		}
	}
	return Orbit{}, false
}

// LocationAt returns the location at the provided time. Before the first
// maneuver, the object is still on its source orbit; after arrival, it is on the
// final orbit.
func (t Trajectory) LocationAt(now time.Time) OrbitalLocation {
	if len(t.Maneuvers) == 0 || now.Before(t.FirstManeuverTime()) {
		return t.Source.Location(now)
	}
	if !now.Before(t.ArrivalTime()) {
		return t.Final.Location(now)
	}
	if m, ok := t.ManeuverAt(now); ok {
		// Linear progress over the burn up to the start of what follows.
		next := t.following(m)
		ratio := float64(now.Sub(m.Time)) / float64(m.Duration)
		return OrbitalLocation{next, m.Phase + ratio*(next.StartPhase-m.Phase)}
	}
	if leg, ok := t.LegAt(now); ok {
		return OrbitalLocation{leg.Geometry, leg.Geometry.CurrentPhase(now.Sub(leg.InsertionTime), false)}
	}
	// Between segments because of rounding: snap to the next segment start.
	for _, leg := range t.Transfers {
		if leg.InsertionTime.After(now) {
			return OrbitalLocation{leg.Geometry, leg.Geometry.StartPhase}
		}
	}
	return OrbitalLocation{t.Final.Geometry, t.Final.Geometry.StartPhase}
}

// sum recomputes the totals from the legs and maneuvers.
func (t *Trajectory) sum(arrival time.Time) {
	t.TotalΔv = 0
	for _, m := range t.Maneuvers {
		t.TotalΔv += math.Abs(m.Δv)
	}
	t.TotalTravelDuration = arrival.Sub(t.StartTime)
}

// String implements the Stringer interface.
func (t Trajectory) String() string {
	return fmt.Sprintf("%d legs, %d maneuvers, Δv=%.6f km/s, %s", len(t.Transfers), len(t.Maneuvers), t.TotalΔv, t.TotalTravelDuration)
}
