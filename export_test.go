package orbital

import (
	"bytes"
	"testing"
	"time"

	"github.com/gonum/floats"
	"github.com/soniakeys/meeus/v3/julian"
)

func TestSampleTrajectory(t *testing.T) {
	planner, ids := testPlanner(courier())
	traj, err := planner.ComputeTrajectory(TrajectoryRequest{epoch, circular(300, 0), circular(450, 90), ids}, 500)
	if err != nil {
		t.Fatal(err)
	}
	states := SampleTrajectory(*traj, time.Hour)
	exp := int(traj.TotalTravelDuration/time.Hour) + 2
	if traj.TotalTravelDuration%time.Hour == 0 {
		exp--
	}
	if len(states) != exp {
		t.Fatalf("%d states, expected %d", len(states), exp)
	}
	if !floats.EqualWithinAbs(states[len(states)-1].JD, julian.TimeToJD(traj.ArrivalTime()), 1e-9) {
		t.Fatal("last state is not on arrival")
	}
	for i, state := range states {
		r := floats.Norm(state.Position, 2)
		if r < Earth.RadiusAt(300)-1e-6 || r > Earth.RadiusAt(500)+1e-6 {
			t.Fatalf("state #%d at %f km", i, r)
		}
		if i == 0 || i == len(states)-1 {
			continue
		}
		dt := traj.StartTime.Add(time.Duration(i) * time.Hour)
		if _, burning := traj.ManeuverAt(dt.Add(-time.Second)); burning {
			continue
		}
		if _, burning := traj.ManeuverAt(dt.Add(time.Second)); burning {
			continue
		}
		// Orbital speed between these altitudes is about 7.6 km/s.
		if v := floats.Norm(state.Velocity, 2); v < 7.4 || v > 7.8 {
			t.Fatalf("state #%d at %f km/s", i, v)
		}
	}

	var buf bytes.Buffer
	if err := WriteInterpolatedStates(&buf, *traj, states); err != nil {
		t.Fatal(err)
	}
	parsed := ParseInterpolatedStates(buf.String())
	if len(parsed) != len(states) {
		t.Fatalf("parsed %d states out of %d", len(parsed), len(states))
	}
	if !vectorsEqual(parsed[1].Position, states[1].Position, 1e-6) {
		t.Fatalf("parsed %+v != %+v", parsed[1].Position, states[1].Position)
	}
	assertPanic(t, func() {
		ParseInterpolatedStates("2451545.0 1 2 3\n")
	})
	assertPanic(t, func() {
		SampleTrajectory(*traj, 0)
	})
}
