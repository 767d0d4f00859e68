package orbital

import "testing"

func TestThrusterFromString(t *testing.T) {
	for _, name := range []string{"PPS1350", "hermes", "RL10"} {
		th, ok := ThrusterFromString(name)
		if !ok {
			t.Fatalf("%s not found", name)
		}
		if thrust, isp := th.Thrust(); thrust <= 0 || isp <= 0 {
			t.Fatalf("%s: thrust=%f isp=%f", name, thrust, isp)
		}
	}
	if _, ok := ThrusterFromString("warp"); ok {
		t.Fatal("warp drive found")
	}
	if thrust, isp := NewGenericThruster(12, 300).Thrust(); thrust != 12 || isp != 300 {
		t.Fatal("generic thruster")
	}
}
