package orbital

// Thruster defines a Thruster interface.
type Thruster interface {
	// Returns the thrust in Newtons and isp consumed in seconds.
	Thrust() (thrust, isp float64)
}

/* Available Thrusters */

// PPS1350 is the Snecma Hall thruster used on SMART-1.
type PPS1350 struct{}

// Thrust implements the Thruster interface.
func (t *PPS1350) Thrust() (thrust, isp float64) {
	return 89e-3, 1650
}

// HERMeS is based on the NASA & Rocketdyne 12.5kW demo
type HERMeS struct{}

// Thrust implements the Thruster interface.
func (t *HERMeS) Thrust() (thrust, isp float64) {
	return 0.680, 2960
}

// RL10 is a cryogenic upper stage engine.
type RL10 struct{}

// Thrust implements the Thruster interface.
func (t *RL10) Thrust() (thrust, isp float64) {
	return 110e3, 465
}

// GenericThruster is a generic thruster.
type GenericThruster struct {
	thrust float64
	isp    float64
}

// Thrust implements the Thruster interface.
func (t *GenericThruster) Thrust() (thrust, isp float64) {
	return t.thrust, t.isp
}

// NewGenericThruster returns a generic thruster.
func NewGenericThruster(thrust, isp float64) *GenericThruster {
	return &GenericThruster{thrust, isp}
}

// ThrusterFromString returns a thruster preset from its name.
func ThrusterFromString(name string) (Thruster, bool) {
	switch name {
	case "PPS1350", "pps1350":
		return new(PPS1350), true
	case "HERMeS", "hermes":
		return new(HERMeS), true
	case "RL10", "rl10":
		return new(RL10), true
	}
	return nil, false
}
