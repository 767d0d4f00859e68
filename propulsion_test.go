package orbital

import (
	"errors"
	"math"
	"testing"

	"github.com/gonum/floats"
	"github.com/google/uuid"
)

func TestSpacecraftManeuverDuration(t *testing.T) {
	sc := NewSpacecraft("tug", 1000, 500, NewGenericThruster(1000, 300))
	if sc.Mass() != 1500 {
		t.Fatalf("mass %f", sc.Mass())
	}
	if !floats.EqualWithinAbs(sc.Acceleration(), 1000.0/1500/1e3, 1e-15) {
		t.Fatalf("acceleration %f", sc.Acceleration())
	}
	duration, used, err := sc.ManeuverDuration(-0.1, sc.Propellant)
	if err != nil {
		t.Fatal(err)
	}
	ve := 300 * g0
	usedExp := 1500 * (1 - math.Exp(-100/ve))
	if !floats.EqualWithinAbs(used, usedExp, 1e-9) {
		t.Fatalf("used %f != %f", used, usedExp)
	}
	if !floats.EqualWithinAbs(duration.Seconds(), usedExp/(1000/ve), 1e-6) {
		t.Fatalf("duration %s", duration)
	}
	if _, _, err := sc.ManeuverDuration(10, sc.Propellant); !errors.Is(err, ErrInsufficientPropellant) {
		t.Fatalf("expected insufficient propellant, got %v", err)
	}
	if _, _, err := NewSpacecraft("brick", 100, 10).ManeuverDuration(0.1, 10); err == nil {
		t.Fatal("spacecraft without thrusters maneuvered")
	}
}

func TestSpacecraftThrust(t *testing.T) {
	sc := NewSpacecraft("dual", 1000, 500, NewGenericThruster(1, 1000), NewGenericThruster(3, 3000))
	thrust, isp := sc.Thrust()
	if thrust != 4 {
		t.Fatalf("thrust %f", thrust)
	}
	if !floats.EqualWithinAbs(isp, 4/(1.0/1000+3.0/3000), 1e-9) {
		t.Fatalf("isp %f", isp)
	}
	if factors := sc.ThrusterFactors(); !vectorsEqual(factors, []float64{0.25, 0.75}, 1e-15) {
		t.Fatalf("factors %+v", factors)
	}
}

func TestFleetSlowestInGroup(t *testing.T) {
	slow := NewSpacecraft("tug", 2000, 1000, new(HERMeS))
	fast := NewSpacecraft("courier", 2000, 1000, new(RL10))
	fleet := make(Fleet)
	fleet.Add(slow, fast)
	engine, err := fleet.SlowestInGroup([]uuid.UUID{fast.ID, slow.ID})
	if err != nil {
		t.Fatal(err)
	}
	if engine != Engine(slow) {
		t.Fatalf("slowest is %s", engine)
	}
	if _, err := fleet.SlowestInGroup([]uuid.UUID{fast.ID, uuid.New()}); !errors.Is(err, ErrUnknownSpacecraft) {
		t.Fatalf("expected unknown spacecraft, got %v", err)
	}
	if _, err := fleet.SlowestInGroup(nil); err == nil {
		t.Fatal("empty group has a slowest member")
	}
}
