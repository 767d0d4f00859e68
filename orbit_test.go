package orbital

import (
	"testing"
	"time"

	"github.com/gonum/floats"
)

func TestOrbitLocation(t *testing.T) {
	o := NewOrbit(NewCircularGeometry(Earth, 300, 45), epoch)
	half := epoch.Add(o.Geometry.Period() / 2)
	if got := o.CurrentPhase(half); !floats.EqualWithinAbs(got, 225, 1e-6) {
		t.Fatalf("phase after half a revolution %f", got)
	}
	if got := o.CurrentPhase(epoch.Add(10*o.Geometry.Period() + time.Second)); got >= 45+360 || got < 45 {
		t.Fatalf("phase not unwound %f", got)
	}
	loc := o.Location(half)
	if !floats.EqualWithinAbs(loc.Altitude(), 300, 1e-9) {
		t.Fatalf("altitude %f", loc.Altitude())
	}
	if !floats.EqualWithinAbs(floats.Norm(loc.Position(), 2), Earth.RadiusAt(300), 1e-9) {
		t.Fatal("position is not on the orbit")
	}
	if !floats.EqualWithinAbs(floats.Norm(loc.DisplayPosition(), 2), Earth.RadiusAt(300), 1e-9) {
		t.Fatal("display position is not on the orbit")
	}
	if !o.End().Equal(epoch.Add(o.Geometry.Period())) {
		t.Fatalf("end %s", o.End())
	}
}
