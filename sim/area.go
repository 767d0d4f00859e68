package sim

import (
	"fmt"

	"github.com/gonum/floats"
	"github.com/strangergwenn/orbital"
)

// Area is a named place on an orbit, e.g. a station.
type Area struct {
	Name  string
	Orbit orbital.Orbit
}

// String implements the Stringer interface.
func (a Area) String() string {
	return fmt.Sprintf("%s on %s", a.Name, a.Orbit)
}

// AddArea registers an area. Areas are local reference data and are not replicated.
func (s *Session) AddArea(a Area) {
	if !a.Orbit.Geometry.Body.Equals(s.body) {
		panic(fmt.Errorf("area %s is not around %s", a, s.body))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.areas = append(s.areas, a)
}

// Areas returns the registered areas.
func (s *Session) Areas() []Area {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Area(nil), s.areas...)
}

// NearestAreaAtArrival returns the area closest to the player when its
// trajectory arrives, and the distance in km.
func (s *Session) NearestAreaAtArrival() (Area, float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	traj, ok := s.store.Trajectory(s.tracker.player)
	if !ok || len(s.areas) == 0 {
		return Area{}, 0, false
	}
	arrival := traj.ArrivalTime()
	player := traj.Final.Location(arrival).Position()
	best, bestDist := -1, 0.0
	for i, a := range s.areas {
		dist := floats.Distance(player, a.Orbit.Location(arrival).Position(), 2)
		if best < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return s.areas[best], bestDist, true
}
