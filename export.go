package orbital

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gonum/floats"
	"github.com/soniakeys/meeus/v3/julian"
)

// InterpolatedState is a sampled state in the display frame.
type InterpolatedState struct {
	JD       float64
	Position []float64 // km
	Velocity []float64 // km/s
}

// FromText initializes from text.
// The `record` parameter must be an array of seven items.
func (i *InterpolatedState) FromText(record []string) {
	if len(record) != 7 {
		panic(fmt.Errorf("expected 7 fields, got %d", len(record)))
	}
	vals := make([]float64, 7)
	for j, field := range record {
		val, err := strconv.ParseFloat(field, 64)
		if err != nil {
			panic(err)
		}
		vals[j] = val
	}
	i.JD = vals[0]
	i.Position = vals[1:4]
	i.Velocity = vals[4:7]
}

// ToText converts to text for written output.
func (i *InterpolatedState) ToText() string {
	return fmt.Sprintf("%f %f %f %f %f %f %f", i.JD, i.Position[0], i.Position[1], i.Position[2], i.Velocity[0], i.Velocity[1], i.Velocity[2])
}

// ParseInterpolatedStates takes a string and converts that into states.
func ParseInterpolatedStates(s string) []*InterpolatedState {
	var states = []*InterpolatedState{}
	r := csv.NewReader(strings.NewReader(s))
	r.Comma = ' '
	r.Comment = '#'
	for {
		record, err := r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			panic(err)
		}
		state := InterpolatedState{}
		state.FromText(record)
		states = append(states, &state)
	}
	return states
}

// SampleTrajectory samples the trajectory every step, from its start time to
// its arrival included. Velocities are central differences of the positions.
func SampleTrajectory(traj Trajectory, step time.Duration) []*InterpolatedState {
	if step <= 0 {
		panic("sampling step must be positive")
	}
	position := func(dt time.Time) []float64 {
		return traj.LocationAt(dt).DisplayPosition()
	}
	var states []*InterpolatedState
	arrival := traj.ArrivalTime()
	for dt := traj.StartTime; ; dt = dt.Add(step) {
		if dt.After(arrival) {
			dt = arrival
		}
		vel := make([]float64, 3)
		floats.SubTo(vel, position(dt.Add(time.Second)), position(dt.Add(-time.Second)))
		floats.Scale(0.5, vel)
		states = append(states, &InterpolatedState{julian.TimeToJD(dt), position(dt), vel})
		if !dt.Before(arrival) {
			return states
		}
	}
}

// WriteInterpolatedStates writes the states in the xyzv format.
func WriteInterpolatedStates(w io.Writer, traj Trajectory, states []*InterpolatedState) error {
	header := fmt.Sprintf(`# %s
# Records are <jd> <x> <y> <z> <vel x> <vel y> <vel z>
#   Time is a UTC Julian date
#   Position in km, display frame
#   Velocity in km/sec
#   Start (UTC): %s
`, traj, traj.StartTime.UTC().Format(time.RFC3339))
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	for _, state := range states {
		if _, err := io.WriteString(w, state.ToText()+"\n"); err != nil {
			return err
		}
	}
	return nil
}
