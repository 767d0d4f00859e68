package orbital

import (
	"fmt"
	"time"
)

// Orbit is a geometry flown from a given insertion time, i.e. the time at which
// the object passed StartPhase.
type Orbit struct {
	Geometry      OrbitGeometry `json:"geometry"`
	InsertionTime time.Time     `json:"insertionTime"`
}

// NewOrbit returns a new orbit.
func NewOrbit(g OrbitGeometry, insertion time.Time) Orbit {
	return Orbit{g, insertion}
}

// CurrentPhase returns the unwound phase at the provided time.
func (o Orbit) CurrentPhase(now time.Time) float64 {
	return o.Geometry.CurrentPhase(now.Sub(o.InsertionTime), true)
}

// Location returns the location at the provided time.
func (o Orbit) Location(now time.Time) OrbitalLocation {
	return OrbitalLocation{o.Geometry, o.CurrentPhase(now)}
}

// End returns the time at which the phase window is fully flown.
func (o Orbit) End() time.Time {
	return o.InsertionTime.Add(o.Geometry.Duration())
}

// String implements the Stringer interface.
func (o Orbit) String() string {
	return fmt.Sprintf("%s from %s", o.Geometry, o.InsertionTime.Format(time.RFC3339))
}

// OrbitalLocation is where an object is on a given orbit. It is derived on every
// tick and never stored.
type OrbitalLocation struct {
	Geometry OrbitGeometry `json:"geometry"`
	Phase    float64       `json:"phase"`
}

// Altitude returns the altitude of this location.
func (l OrbitalLocation) Altitude() float64 {
	return l.Geometry.AltitudeAt(l.Phase)
}

// Position returns the position of this location in the orbital plane.
func (l OrbitalLocation) Position() []float64 {
	return l.Geometry.Position(l.Phase)
}

// DisplayPosition returns the position of this location in the display frame.
func (l OrbitalLocation) DisplayPosition() []float64 {
	return l.Geometry.DisplayPosition(l.Phase)
}
