package sim

import (
	"time"

	"github.com/google/uuid"
	"github.com/strangergwenn/orbital"
	"github.com/strangergwenn/orbital/replica"
)

// Tracker derives the location of every object from the replicated tables.
// It runs identically on every participant.
type Tracker struct {
	player     uuid.UUID
	locations  map[uuid.UUID]orbital.OrbitalLocation
	nextPlayer time.Duration
	hasNext    bool
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{locations: make(map[uuid.UUID]orbital.OrbitalLocation)}
}

// SetPlayer sets the object whose next maneuver is tracked.
func (t *Tracker) SetPlayer(id uuid.UUID) {
	t.player = id
}

// Update recomputes all locations at the provided time and returns the groups
// whose trajectory has arrived.
func (t *Tracker) Update(now time.Time, store *replica.Store) [][]uuid.UUID {
	locations := make(map[uuid.UUID]orbital.OrbitalLocation, len(t.locations))
	store.Orbits.Range(func(e *replica.Entry[orbital.Orbit]) bool {
		loc := e.Payload.Location(now)
		for _, id := range e.IDs {
			locations[id] = loc
		}
		return true
	})

	t.hasNext = false
	var arrived [][]uuid.UUID
	store.Trajectories.Range(func(e *replica.Entry[orbital.Trajectory]) bool {
		traj := &e.Payload
		if !now.Before(traj.ArrivalTime()) {
			arrived = append(arrived, append([]uuid.UUID(nil), e.IDs...))
		}
		loc := traj.LocationAt(now)
		for _, id := range e.IDs {
			locations[id] = loc
			if id != t.player {
				continue
			}
			if m, ok := traj.NextManeuver(now); ok {
				t.nextPlayer = m.Time.Sub(now)
				t.hasNext = true
			}
		}
		return true
	})
	t.locations = locations
	return arrived
}

// Location returns the last computed location of the provided object.
func (t *Tracker) Location(id uuid.UUID) (orbital.OrbitalLocation, bool) {
	loc, ok := t.locations[id]
	return loc, ok
}

// Locations returns a copy of all last computed locations.
func (t *Tracker) Locations() map[uuid.UUID]orbital.OrbitalLocation {
	out := make(map[uuid.UUID]orbital.OrbitalLocation, len(t.locations))
	for id, loc := range t.locations {
		out[id] = loc
	}
	return out
}

// TimeUntilNextPlayerManeuver returns the time left until the next maneuver
// of the player, as of the last update.
func (t *Tracker) TimeUntilNextPlayerManeuver() (time.Duration, bool) {
	return t.nextPlayer, t.hasNext
}
