// Package sim runs a session: it owns the replicated tables and the tracker,
// ticks them, and answers the queries of the game flow and the map.
package sim

import (
	"errors"
	"fmt"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sasha-s/go-deadlock"
	"github.com/strangergwenn/orbital"
	"github.com/strangergwenn/orbital/replica"
)

var (
	// ErrTrajectoryStarted is returned when starting a trajectory whose first maneuver is not in the future.
	ErrTrajectoryStarted = errors.New("trajectory already started")
	// ErrNotParked is returned when planning for objects which are not all on the same orbit.
	ErrNotParked = errors.New("objects not parked on a single orbit")
)

// Options configures a session.
type Options struct {
	Config     orbital.Config
	Propulsion orbital.PropulsionModel
	Authority  bool
	Logger     kitlog.Logger
	Registerer prometheus.Registerer // Defaults to the Prometheus default registerer.
}

// Group is a set of objects sharing an orbit.
type Group struct {
	Orbit orbital.Orbit
	IDs   []uuid.UUID
}

// Session owns the replicated tables and the tracker. It is safe for
// concurrent use: queries may run while another goroutine ticks.
type Session struct {
	mu      deadlock.RWMutex
	conf    orbital.Config
	body    orbital.CelestialBody
	store   *replica.Store
	tracker *Tracker
	planner *orbital.Planner
	areas   []Area
	metrics *Metrics
	logger  kitlog.Logger
	now     time.Time
}

// NewSession returns a new session.
func NewSession(opts Options) (*Session, error) {
	body, err := opts.Config.CelestialBody()
	if err != nil {
		return nil, err
	}
	metrics, err := NewMetrics(opts.Registerer)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &Session{
		conf:    opts.Config,
		body:    body,
		store:   replica.NewStore(opts.Authority),
		tracker: NewTracker(),
		planner: orbital.NewPlanner(opts.Propulsion, opts.Config.Debug, logger),
		metrics: metrics,
		logger:  kitlog.With(logger, "subsys", "session"),
	}, nil
}

// Body returns the body every orbit of this session is around.
func (s *Session) Body() orbital.CelestialBody {
	return s.body
}

// Now returns the time of the last tick.
func (s *Session) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now
}

// Metrics returns the session metrics.
func (s *Session) Metrics() *Metrics {
	return s.metrics
}

// Initialize parks the provided groups on their orbits and sets the session time.
func (s *Session) Initialize(now time.Time, groups ...Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	for _, g := range groups {
		if !g.Orbit.Geometry.Body.Equals(s.body) {
			panic(fmt.Errorf("orbit %s is not around %s", g.Orbit, s.body))
		}
		if _, err := s.store.AddOrbit(g.Orbit, g.IDs); err != nil {
			return err
		}
	}
	s.update()
	s.logger.Log("level", "info", "message", "initialized", "groups", len(groups), "time", now.Format(time.RFC3339))
	return nil
}

// ComputeTrajectory plans a trajectory for the provided objects, which must be
// parked on the same orbit. The first maneuver is at least the start margin ahead.
// Nothing is stored: the trajectory is started with StartTrajectory.
func (s *Session) ComputeTrajectory(ids []uuid.UUID, destination orbital.Orbit, phasingAltitude float64) (*orbital.Trajectory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(ids) == 0 {
		panic("empty spacecraft group")
	}
	source, err := s.sourceOrbit(ids)
	if err != nil {
		return nil, err
	}
	if phasingAltitude <= 0 {
		phasingAltitude = s.conf.PhasingAltitude
	}
	req := orbital.TrajectoryRequest{
		StartTime:   s.now.Add(s.conf.StartMargin),
		Source:      source,
		Destination: destination,
		Spacecraft:  ids,
	}
	traj, err := s.planner.ComputeTrajectory(req, phasingAltitude)
	s.metrics.incPlans(err)
	return traj, err
}

func (s *Session) sourceOrbit(ids []uuid.UUID) (orbital.Orbit, error) {
	first, ok := s.store.Orbits.Get(ids[0])
	if !ok {
		return orbital.Orbit{}, fmt.Errorf("%w: %s", ErrNotParked, ids[0])
	}
	for _, id := range ids[1:] {
		e, ok := s.store.Orbits.Get(id)
		if !ok || e.Key != first.Key {
			return orbital.Orbit{}, fmt.Errorf("%w: %s", ErrNotParked, id)
		}
	}
	return first.Payload, nil
}

// StartTrajectory sets the provided objects on the trajectory, removing them
// from their orbit. The first maneuver must lie in the future.
func (s *Session) StartTrajectory(traj orbital.Trajectory, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.store.Authority() {
		return fmt.Errorf("start trajectory: %w", replica.ErrNotAuthority)
	}
	if !traj.Valid() {
		panic(fmt.Errorf("invalid trajectory: %s", traj))
	}
	if !traj.FirstManeuverTime().After(s.now) {
		return fmt.Errorf("%w: first maneuver on %s, now is %s", ErrTrajectoryStarted, traj.FirstManeuverTime().Format(time.RFC3339), s.now.Format(time.RFC3339))
	}
	if _, err := s.store.AddTrajectory(traj, ids); err != nil {
		return err
	}
	s.metrics.incStarted()
	s.update()
	s.logger.Log("level", "info", "message", "trajectory started", "objects", len(ids), "arrival", traj.ArrivalTime().Format(time.RFC3339), "trajectory", traj)
	return nil
}

// CompleteTrajectory parks the provided objects on the final orbit of their
// trajectory. Panics if they do not share the same final orbit.
func (s *Session) CompleteTrajectory(ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.complete(ids); err != nil {
		return err
	}
	s.update()
	return nil
}

func (s *Session) complete(ids []uuid.UUID) error {
	var final *orbital.Orbit
	var members []uuid.UUID
	for _, id := range ids {
		traj, ok := s.store.Trajectory(id)
		if !ok {
			continue
		}
		if final == nil {
			final = &traj.Final
		} else if equal, err := final.Geometry.Equals(traj.Final.Geometry); !equal {
			panic(fmt.Errorf("inconsistent group, %s does not share the final orbit: %s", id, err))
		}
		members = append(members, id)
	}
	if final == nil {
		return nil
	}
	if _, err := s.store.AddOrbit(*final, members); err != nil {
		return err
	}
	s.metrics.incCompleted()
	s.logger.Log("level", "info", "message", "trajectory completed", "objects", len(members), "orbit", final)
	return nil
}

// Remove removes the provided objects from the session.
func (s *Session) Remove(ids ...uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.store.Remove(ids...)
	if err != nil {
		return err
	}
	s.update()
	s.logger.Log("level", "info", "message", "removed", "objects", n)
	return nil
}

// Tick advances the session to the provided time. On the authority, arrived
// trajectories are completed into orbits.
func (s *Session) Tick(now time.Time) error {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	arrived := s.tracker.Update(now, s.store)
	if s.store.Authority() && len(arrived) > 0 {
		var err error
		for _, group := range arrived {
			if err = s.complete(group); err != nil {
				break
			}
		}
		// Completions already applied must show in the locations.
		s.update()
		if err != nil {
			return err
		}
	}
	s.metrics.setEntries(replica.OrbitTableName, s.store.Orbits.Len())
	s.metrics.setEntries(replica.TrajectoryTableName, s.store.Trajectories.Len())
	s.metrics.observeTick(time.Since(start))
	return nil
}

// update recomputes the locations after a mutation. Arrivals are left to the next tick.
func (s *Session) update() {
	s.tracker.Update(s.now, s.store)
}

// Delta returns the changes an observer which has seen the provided versions is missing.
func (s *Session) Delta(since replica.StoreVersion) replica.StoreDelta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Delta(since)
}

// Version returns the versions of the replicated tables.
func (s *Session) Version() replica.StoreVersion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Version()
}

// Compact forgets the removals every observer has acknowledged.
func (s *Session) Compact(acked replica.StoreVersion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Compact(acked)
}

// ApplyDelta applies a delta from the authority and refreshes the locations.
func (s *Session) ApplyDelta(d replica.StoreDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.ApplyDelta(d); err != nil {
		if errors.Is(err, replica.ErrDeltaGap) {
			s.logger.Log("level", "warn", "message", "delta gap, reset required", "err", err)
		}
		return err
	}
	s.update()
	return nil
}

// Orbit returns the orbit the provided object is parked on.
func (s *Session) Orbit(id uuid.UUID) (orbital.Orbit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Orbit(id)
}

// Trajectory returns the trajectory the provided object is executing.
func (s *Session) Trajectory(id uuid.UUID) (orbital.Trajectory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Trajectory(id)
}

// Location returns the location of the provided object as of the last tick.
func (s *Session) Location(id uuid.UUID) (orbital.OrbitalLocation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker.Location(id)
}

// Locations returns the locations of all objects as of the last tick.
func (s *Session) Locations() map[uuid.UUID]orbital.OrbitalLocation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker.Locations()
}

// SetPlayer sets the object the game flow queries are about.
func (s *Session) SetPlayer(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracker.SetPlayer(id)
	s.update()
}

// Player returns the object the game flow queries are about.
func (s *Session) Player() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker.player
}

// PlayerTrajectory returns the trajectory of the player, if any.
func (s *Session) PlayerTrajectory() (orbital.Trajectory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Trajectory(s.tracker.player)
}

// TimeUntilNextPlayerManeuver returns the time left until the next maneuver of the player.
func (s *Session) TimeUntilNextPlayerManeuver() (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker.TimeUntilNextPlayerManeuver()
}

// IsNearingLastManeuver returns whether the last maneuver of the player starts
// within the nearing window, or is being performed.
func (s *Session) IsNearingLastManeuver() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	traj, ok := s.store.Trajectory(s.tracker.player)
	if !ok {
		return false
	}
	last := traj.LastManeuver()
	return !s.now.Before(last.Time.Add(-s.conf.NearingWindow)) && s.now.Before(last.End())
}

// IsPastFirstManeuver returns whether the player has started its trajectory.
func (s *Session) IsPastFirstManeuver() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	traj, ok := s.store.Trajectory(s.tracker.player)
	return ok && !s.now.Before(traj.FirstManeuverTime())
}
