package orbital

import (
	"errors"
	"fmt"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/gonum/floats"
	"github.com/google/uuid"
)

// ErrNoPhasingSolution is returned when the phasing and destination orbits have
// (nearly) the same period, so the relative drift cannot reach the destination.
var ErrNoPhasingSolution = errors.New("no phasing solution")

const (
	// periodε is the relative difference under which two periods are considered equal.
	periodε = 1e-9
	// invariantε is the tolerance of the debug rendezvous check, in degrees.
	invariantε = 1e-6
)

// TrajectoryRequest defines what a group of spacecraft wants to reach.
type TrajectoryRequest struct {
	StartTime   time.Time
	Source      Orbit
	Destination Orbit // Must be circular.
	Spacecraft  []uuid.UUID
}

// DestinationAltitude returns the altitude of the destination orbit.
func (r TrajectoryRequest) DestinationAltitude() float64 {
	return r.Destination.Geometry.StartAltitude
}

// DestinationPhase returns the phase of the destination at the start time.
func (r TrajectoryRequest) DestinationPhase() float64 {
	return r.Destination.CurrentPhase(r.StartTime)
}

// Planner computes trajectories. It has no side effect and may be called
// speculatively, e.g. while a phasing altitude is being chosen.
type Planner struct {
	Propulsion PropulsionModel
	// Debug enables the rendezvous invariant checks on every computed trajectory.
	Debug  bool
	logger kitlog.Logger
}

// NewPlanner returns a new planner.
func NewPlanner(prop PropulsionModel, debug bool, logger kitlog.Logger) *Planner {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &Planner{prop, debug, kitlog.With(logger, "subsys", "planner")}
}

// burn is a sized maneuver whose phase and time are not known yet.
type burn struct {
	Δv       float64
	duration time.Duration
	period   float64 // seconds, of the orbit flown during the burn
}

// advance returns the phase covered during the burn.
func (b burn) advance() float64 {
	return b.duration.Seconds() / b.period * 360
}

// plan holds everything needed to lay out a trajectory once the phasing duration is known.
type plan struct {
	req                  TrajectoryRequest
	body                 CelestialBody
	departure            time.Time
	departurePhase       float64
	departureAltitude    float64
	phasingAltitude      float64
	destinationAltitude  float64
	burns                [4]burn
	transferA, transferB bool
	phasingPeriod        float64
	factors              []float64
}

// ComputeTrajectory computes the trajectory from the source orbit to a rendezvous
// with the destination, waiting on a circular phasing orbit at phasingAltitude.
// The phasing altitude trades time for propellant.
// Panics on inconsistent requests: these are programming errors.
func (p *Planner) ComputeTrajectory(req TrajectoryRequest, phasingAltitude float64) (*Trajectory, error) {
	src, dst := req.Source.Geometry, req.Destination.Geometry
	if len(req.Spacecraft) == 0 {
		panic("empty spacecraft group")
	}
	if !src.Body.Equals(dst.Body) {
		panic(fmt.Errorf("source orbits %s but destination orbits %s", src.Body, dst.Body))
	}
	if !dst.IsCircular() {
		panic(fmt.Errorf("destination orbit %s is not circular", dst))
	}
	if !src.Valid() || !dst.Valid() || phasingAltitude <= 0 {
		panic(fmt.Errorf("invalid orbits for trajectory: %s -> %s via %f km", src, dst, phasingAltitude))
	}
	if src.IsCircular() && floats.EqualWithinAbs(src.StartAltitude, dst.StartAltitude, distanceε) &&
		PhasesEqual(req.Source.CurrentPhase(req.StartTime), req.DestinationPhase(), phaseε) {
		panic(fmt.Errorf("source is equal to destination: %s", dst))
	}
	engine, err := p.Propulsion.SlowestInGroup(req.Spacecraft)
	if err != nil {
		return nil, err
	}

	pl, err := newPlan(req, phasingAltitude, engine)
	if err != nil {
		return nil, err
	}

	// Lay out without phasing to know where the fixed parts end up.
	fixed := pl.assemble(0)
	arrival := fixed.ArrivalTime()
	destPhase := req.Destination.Geometry.CurrentPhase(arrival.Sub(req.Destination.InsertionTime), false)
	phaseΔ := Wrap360(destPhase - fixed.Final.Geometry.StartPhase)
	destPeriod := dst.PeriodSeconds()
	if floats.EqualWithinRel(pl.phasingPeriod, destPeriod, periodε) {
		return nil, fmt.Errorf("%w: phasing period %f s matches destination period", ErrNoPhasingSolution, destPeriod)
	}
	if pl.phasingPeriod > destPeriod && phaseΔ > 0 {
		// The destination catches up: the drift is reversed.
		phaseΔ -= 360
	}
	phasing := phaseΔ / (360 * (1/pl.phasingPeriod - 1/destPeriod))
	if !finite(phasing) || phasing < 0 {
		return nil, fmt.Errorf("%w: phasing duration %f s", ErrNoPhasingSolution, phasing)
	}

	traj := pl.assemble(phasing)
	if p.Debug {
		p.checkInvariants(req, traj)
	}
	p.logger.Log("level", "debug", "message", "trajectory computed", "phasing(km)", phasingAltitude, "phasing(s)", phasing, "trajectory", traj)
	return traj, nil
}

// newPlan picks the departure apside and sizes all burns for the slowest engine.
func newPlan(req TrajectoryRequest, phasingAltitude float64, engine Engine) (*plan, error) {
	src := req.Source.Geometry
	body := src.Body
	μ := body.GM()
	pl := &plan{
		req:                 req,
		body:                body,
		departure:           req.StartTime,
		departurePhase:      req.Source.CurrentPhase(req.StartTime),
		departureAltitude:   src.StartAltitude,
		phasingAltitude:     phasingAltitude,
		destinationAltitude: req.DestinationAltitude(),
		factors:             engine.ThrusterFactors(),
	}
	originAltitude := src.OppositeAltitude
	if !src.IsCircular() {
		// Coast to the apside closest to the phasing orbit.
		apside := NearestApside(src, phasingAltitude)
		coast := Wrap360(apside.Phase - pl.departurePhase)
		pl.departure = req.StartTime.Add(seconds(coast / 360 * src.PeriodSeconds()))
		pl.departurePhase += coast
		pl.departureAltitude = apside.Altitude
		originAltitude = apside.OppositeAltitude
	}

	rDeparture := body.RadiusAt(pl.departureAltitude)
	rPhasing := body.RadiusAt(phasingAltitude)
	rDestination := body.RadiusAt(pl.destinationAltitude)
	xferA := Hohmann(μ, rDeparture, body.RadiusAt(originAltitude), rPhasing)
	xferB := Hohmann(μ, rPhasing, rPhasing, rDestination)
	pl.transferA = !floats.EqualWithinAbs(rDeparture, rPhasing, distanceε)
	pl.transferB = !floats.EqualWithinAbs(rPhasing, rDestination, distanceε)
	pl.phasingPeriod = NewCircularGeometry(body, phasingAltitude, 0).PeriodSeconds()

	periods := [4]float64{src.PeriodSeconds(), 2 * xferA.Duration, pl.phasingPeriod, 2 * xferB.Duration}
	for i, Δv := range [4]float64{xferA.StartΔv, xferA.EndΔv, xferB.StartΔv, xferB.EndΔv} {
		pl.burns[i] = burn{Δv: Δv, period: periods[i]}
	}
	propellant := engine.RemainingPropellant()
	for i := range pl.burns {
		if isZero(pl.burns[i].Δv, velocityε) {
			continue
		}
		duration, used, err := engine.ManeuverDuration(pl.burns[i].Δv, propellant)
		if err != nil {
			return nil, err
		}
		pl.burns[i].duration = duration
		propellant -= used
	}
	return pl, nil
}

// assemble lays out the maneuvers and legs for the provided phasing duration (in seconds).
func (pl *plan) assemble(phasing float64) *Trajectory {
	traj := &Trajectory{StartTime: pl.req.StartTime, Source: pl.req.Source}
	now := pl.departure
	phase := pl.departurePhase

	maneuver := func(b burn) {
		if isZero(b.Δv, velocityε) {
			return
		}
		factors := make([]float64, len(pl.factors))
		copy(factors, pl.factors)
		traj.Maneuvers = append(traj.Maneuvers, Maneuver{b.Δv, phase, now, b.duration, factors})
		now = now.Add(b.duration)
		phase += b.advance()
	}
	leg := func(g OrbitGeometry) {
		if isZero(g.PhaseLength(), phaseε) {
			return
		}
		traj.Transfers = append(traj.Transfers, Orbit{g, now})
		now = now.Add(g.Duration())
		phase = g.EndPhase
	}

	maneuver(pl.burns[0])
	if pl.transferA {
		leg(OrbitGeometry{pl.body, pl.departureAltitude, pl.phasingAltitude, phase, phase + 180})
	}
	maneuver(pl.burns[1])
	leg(OrbitGeometry{pl.body, pl.phasingAltitude, pl.phasingAltitude, phase, phase + phasing/pl.phasingPeriod*360})
	maneuver(pl.burns[2])
	if pl.transferB {
		leg(OrbitGeometry{pl.body, pl.phasingAltitude, pl.destinationAltitude, phase, phase + 180})
	}
	maneuver(pl.burns[3])

	traj.Final = Orbit{NewCircularGeometry(pl.body, pl.destinationAltitude, phase), now}
	traj.sum(now)
	return traj
}

// checkInvariants panics if the trajectory does not end in rendezvous.
func (p *Planner) checkInvariants(req TrajectoryRequest, traj *Trajectory) {
	arrival := traj.ArrivalTime()
	if !arrival.Equal(traj.Final.InsertionTime) {
		panic(fmt.Errorf("arrival %s does not match final insertion %s", arrival, traj.Final.InsertionTime))
	}
	if len(traj.Maneuvers) == 0 || len(traj.Transfers) == 0 {
		panic(fmt.Errorf("incomplete trajectory: %s", traj))
	}
	if !traj.LastManeuver().End().Equal(arrival) {
		panic(fmt.Errorf("last maneuver ends on %s, not on arrival %s", traj.LastManeuver().End(), arrival))
	}
	destPhase := req.Destination.Geometry.CurrentPhase(arrival.Sub(req.Destination.InsertionTime), false)
	if !PhasesEqual(traj.Final.Geometry.StartPhase, destPhase, invariantε) {
		panic(fmt.Errorf("final phase %f does not match destination phase %f", traj.Final.Geometry.StartPhase, destPhase))
	}
	if !finite(traj.TotalΔv) || traj.TotalΔv <= 0 || traj.TotalTravelDuration <= 0 {
		panic(fmt.Errorf("invalid totals: %s", traj))
	}
	if traj.FirstManeuver().Time.Before(req.StartTime) {
		panic(fmt.Errorf("first maneuver on %s precedes the start time %s", traj.FirstManeuver().Time, req.StartTime))
	}
}
