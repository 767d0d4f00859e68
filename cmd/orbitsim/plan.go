package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/spf13/cobra"
	"github.com/strangergwenn/orbital"
)

var planFlags struct {
	start       string
	srcAlt      float64
	srcOpposite float64
	srcPhase    float64
	dstAlt      float64
	dstPhase    float64
	phasingAlt  float64
	thruster    string
	dryMass     float64
	propellant  float64
	xyzv        string
	sampling    time.Duration
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute a single trajectory and print its maneuvers",
	Example: `  orbitsim plan --source 300 --destination 450 --destination-phase 90 --phasing 500
  orbitsim plan --source 300 --source-opposite 1000 --destination 450 --thruster HERMeS`,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := orbital.LoadConfig(configDir)
		if err != nil {
			return err
		}
		body, err := conf.CelestialBody()
		if err != nil {
			return err
		}
		start := time.Now().UTC().Truncate(time.Second)
		if planFlags.start != "" {
			if start, err = parseJDEorTime(planFlags.start); err != nil {
				return err
			}
		}
		thruster, ok := orbital.ThrusterFromString(planFlags.thruster)
		if !ok {
			return fmt.Errorf("unknown thruster `%s`", planFlags.thruster)
		}
		opposite := planFlags.srcOpposite
		if opposite <= 0 {
			opposite = planFlags.srcAlt
		}
		phasing := planFlags.phasingAlt
		if phasing <= 0 {
			phasing = conf.PhasingAltitude
		}

		sc := orbital.NewSpacecraft("spacecraft", planFlags.dryMass, planFlags.propellant, thruster)
		fleet := make(orbital.Fleet)
		fleet.Add(sc)
		req := orbital.TrajectoryRequest{
			StartTime:   start,
			Source:      orbital.NewOrbit(orbital.NewEllipticalGeometry(body, planFlags.srcAlt, opposite, planFlags.srcPhase), start),
			Destination: orbital.NewOrbit(orbital.NewCircularGeometry(body, planFlags.dstAlt, planFlags.dstPhase), start),
			Spacecraft:  []uuid.UUID{sc.ID},
		}
		traj, err := orbital.NewPlanner(fleet, conf.Debug, nil).ComputeTrajectory(req, phasing)
		if err != nil {
			return err
		}
		printTrajectory(cmd.OutOrStdout(), traj)
		if planFlags.xyzv == "" {
			return nil
		}
		return exportTrajectory(planFlags.xyzv, *traj, planFlags.sampling)
	},
}

func init() {
	f := planCmd.Flags()
	f.StringVar(&planFlags.start, "start", "", "start date as a JDE or RFC3339 time (default now)")
	f.Float64Var(&planFlags.srcAlt, "source", 300, "source altitude in km")
	f.Float64Var(&planFlags.srcOpposite, "source-opposite", 0, "source opposite apside altitude in km (default circular)")
	f.Float64Var(&planFlags.srcPhase, "source-phase", 0, "source phase in degrees")
	f.Float64Var(&planFlags.dstAlt, "destination", 450, "destination altitude in km")
	f.Float64Var(&planFlags.dstPhase, "destination-phase", 90, "destination phase in degrees")
	f.Float64Var(&planFlags.phasingAlt, "phasing", 0, "phasing altitude in km (default from config)")
	f.StringVar(&planFlags.thruster, "thruster", "RL10", "thruster preset")
	f.Float64Var(&planFlags.dryMass, "dry", 4000, "dry mass in kg")
	f.Float64Var(&planFlags.propellant, "propellant", 1500, "propellant mass in kg")
	f.StringVar(&planFlags.xyzv, "xyzv", "", "write sampled states to this xyzv file")
	f.DurationVar(&planFlags.sampling, "sampling", time.Minute, "sampling step of the xyzv export")
}

func printTrajectory(w io.Writer, traj *orbital.Trajectory) {
	fmt.Fprintf(w, "%s\n", traj)
	for i, m := range traj.Maneuvers {
		fmt.Fprintf(w, "#%d JD %.6f\tΔv=%+.6f km/s\tphase=%.3f\tburn=%s\n", i, julian.TimeToJD(m.Time), m.Δv, orbital.Wrap360(m.Phase), m.Duration)
	}
	for i, leg := range traj.Transfers {
		fmt.Fprintf(w, "leg #%d JD %.6f\t%s\tfor %s\n", i, julian.TimeToJD(leg.InsertionTime), leg.Geometry, leg.Geometry.Duration())
	}
	fmt.Fprintf(w, "arrival JD %.6f on %s\n", julian.TimeToJD(traj.ArrivalTime()), traj.Final.Geometry)
}

func exportTrajectory(path string, traj orbital.Trajectory, step time.Duration) error {
	if step <= 0 {
		return fmt.Errorf("invalid sampling step %s", step)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := orbital.WriteInterpolatedStates(f, traj, orbital.SampleTrajectory(traj, step)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
