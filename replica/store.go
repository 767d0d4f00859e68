package replica

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/strangergwenn/orbital"
)

const (
	// OrbitTableName names the orbit table in deltas.
	OrbitTableName = "orbits"
	// TrajectoryTableName names the trajectory table in deltas.
	TrajectoryTableName = "trajectories"
)

// Store holds both replicated tables. An object is in at most one entry of
// one table at any time. A Store is not safe for concurrent use.
type Store struct {
	Orbits       *OrbitTable
	Trajectories *TrajectoryTable
}

// StoreVersion is the pair of table versions a replica has seen.
type StoreVersion struct {
	Orbits       uint64 `json:"orbits"`
	Trajectories uint64 `json:"trajectories"`
}

// StoreDelta is the pair of table deltas sent to a replica.
type StoreDelta struct {
	Orbits       Delta[orbital.Orbit]      `json:"orbits"`
	Trajectories Delta[orbital.Trajectory] `json:"trajectories"`
}

// Empty returns whether this delta changes nothing.
func (d StoreDelta) Empty() bool {
	return d.Orbits.Empty() && d.Trajectories.Empty()
}

// NewStore returns an empty store.
func NewStore(authority bool) *Store {
	return &Store{
		Orbits:       NewTable[orbital.Orbit](OrbitTableName, authority),
		Trajectories: NewTable[orbital.Trajectory](TrajectoryTableName, authority),
	}
}

// Authority returns whether this store may be mutated locally.
func (s *Store) Authority() bool {
	return s.Orbits.Authority()
}

// AddOrbit parks the provided objects on an orbit, removing them from any other entry.
func (s *Store) AddOrbit(o orbital.Orbit, ids []uuid.UUID) (EntryKey, error) {
	if _, err := s.Trajectories.Remove(ids...); err != nil {
		return 0, err
	}
	return s.Orbits.Add(o, ids)
}

// AddTrajectory sets the provided objects on a trajectory, removing them from any other entry.
func (s *Store) AddTrajectory(t orbital.Trajectory, ids []uuid.UUID) (EntryKey, error) {
	if _, err := s.Orbits.Remove(ids...); err != nil {
		return 0, err
	}
	return s.Trajectories.Add(t, ids)
}

// Remove removes the provided objects from both tables.
func (s *Store) Remove(ids ...uuid.UUID) (int, error) {
	no, err := s.Orbits.Remove(ids...)
	if err != nil {
		return 0, err
	}
	nt, err := s.Trajectories.Remove(ids...)
	if err != nil {
		return 0, err
	}
	return no + nt, nil
}

// Orbit returns the orbit the provided object is parked on.
func (s *Store) Orbit(id uuid.UUID) (orbital.Orbit, bool) {
	e, ok := s.Orbits.Get(id)
	return e.Payload, ok
}

// Trajectory returns the trajectory the provided object is executing.
func (s *Store) Trajectory(id uuid.UUID) (orbital.Trajectory, bool) {
	e, ok := s.Trajectories.Get(id)
	return e.Payload, ok
}

// Version returns the versions of both tables.
func (s *Store) Version() StoreVersion {
	return StoreVersion{s.Orbits.Version(), s.Trajectories.Version()}
}

// Delta returns the changes since the provided versions.
func (s *Store) Delta(since StoreVersion) StoreDelta {
	return StoreDelta{
		Orbits:       s.Orbits.Delta(since.Orbits),
		Trajectories: s.Trajectories.Delta(since.Trajectories),
	}
}

// ApplyDelta applies a delta from the authority to both tables.
func (s *Store) ApplyDelta(d StoreDelta) error {
	// Both batches are checked first so that a rejected delta changes nothing.
	if err := s.Orbits.checkDelta(d.Orbits); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := s.Trajectories.checkDelta(d.Trajectories); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := s.Orbits.ApplyDelta(d.Orbits); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := s.Trajectories.ApplyDelta(d.Trajectories); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

// Compact forgets the tombstones every replica has acknowledged.
func (s *Store) Compact(acked StoreVersion) {
	s.Orbits.Compact(acked.Orbits)
	s.Trajectories.Compact(acked.Trajectories)
}
