package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/strangergwenn/orbital"
	"github.com/strangergwenn/orbital/replica"
	"github.com/strangergwenn/orbital/sim"
)

var runFlags struct {
	addr     string
	realtime bool
	step     time.Duration
	status   time.Duration
}

var runCmd = &cobra.Command{
	Use:   "run scenario.toml",
	Short: "Run a scenario with an authority and an observer session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := orbital.LoadConfig(configDir)
		if err != nil {
			return err
		}
		if runFlags.step > 0 {
			conf.TickStep = runFlags.step
		}
		body, err := conf.CelestialBody()
		if err != nil {
			return err
		}
		logger := orbital.NewLogger(os.Stdout, conf.LogFormat)
		sc, err := loadScenario(args[0], body)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runScenario(ctx, conf, sc, logger)
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.addr, "http", "", "serve metrics and locations on this address")
	f.BoolVar(&runFlags.realtime, "realtime", false, "tick once per tick step of wall time")
	f.DurationVar(&runFlags.step, "step", 0, "simulated time per tick (default from config)")
	f.DurationVar(&runFlags.status, "status", time.Hour, "simulated time between status logs")
}

func runScenario(ctx context.Context, conf orbital.Config, sc *scenario, logger kitlog.Logger) error {
	auth, err := sim.NewSession(sim.Options{Config: conf, Propulsion: sc.fleet, Authority: true, Logger: kitlog.With(logger, "side", "authority")})
	if err != nil {
		return err
	}
	obs, err := sim.NewSession(sim.Options{Config: conf, Propulsion: sc.fleet, Logger: kitlog.With(logger, "side", "observer"), Registerer: prometheus.NewRegistry()})
	if err != nil {
		return err
	}
	if err := auth.Initialize(sc.start, sc.groups...); err != nil {
		return err
	}
	if err := obs.Initialize(sc.start); err != nil {
		return err
	}
	for _, a := range sc.areas {
		auth.AddArea(a)
	}
	auth.SetPlayer(sc.player)
	obs.SetPlayer(sc.player)

	if len(sc.transfer) > 0 {
		traj, err := auth.ComputeTrajectory(sc.transfer, sc.destination, sc.phasingAltitude)
		if err != nil {
			return err
		}
		printTrajectory(os.Stdout, traj)
		if err := auth.StartTrajectory(*traj, sc.transfer); err != nil {
			return err
		}
		if area, dist, ok := auth.NearestAreaAtArrival(); ok {
			logger.Log("level", "info", "message", "nearest area at arrival", "area", area.Name, "distance(km)", dist)
		}
	}

	if runFlags.addr != "" {
		srv := &http.Server{Addr: runFlags.addr, Handler: newRouter(auth), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log("level", "error", "message", "http server", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	clock := sim.NewClock(sc.start, conf.TickStep, runFlags.realtime)
	clock.AddListener(auth.Tick)
	rep := &replicator{auth: auth, obs: obs}
	clock.AddListener(rep.replicate)
	nextStatus := sc.start
	clock.AddListener(func(now time.Time) error {
		if now.Before(nextStatus) {
			return nil
		}
		nextStatus = now.Add(runFlags.status)
		status(logger, obs, now, rep.sent)
		return nil
	})

	err = clock.Run(ctx, sc.duration)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	status(logger, obs, clock.Now(), rep.sent)
	return err
}

// replicator ships the authority deltas to the observer through the wire codec.
type replicator struct {
	auth, obs *sim.Session
	buf       bytes.Buffer
	sent      int
}

func (r *replicator) replicate(now time.Time) error {
	d := r.auth.Delta(r.obs.Version())
	if !d.Empty() {
		r.buf.Reset()
		if err := replica.EncodeDelta(&r.buf, d); err != nil {
			return err
		}
		r.sent += r.buf.Len()
		d, err := replica.DecodeDelta(&r.buf)
		if err != nil {
			return err
		}
		if err := r.obs.ApplyDelta(d); err != nil {
			return err
		}
		r.auth.Compact(r.obs.Version())
	}
	return r.obs.Tick(now)
}

func status(logger kitlog.Logger, s *sim.Session, now time.Time, replicated int) {
	keyvals := []interface{}{"level", "info", "message", "status", "time", now.Format(time.RFC3339), "objects", len(s.Locations()), "replicated(B)", replicated}
	if left, ok := s.TimeUntilNextPlayerManeuver(); ok {
		keyvals = append(keyvals, "next maneuver", left)
	}
	if traj, ok := s.PlayerTrajectory(); ok {
		keyvals = append(keyvals, "arrival", traj.ArrivalTime().Format(time.RFC3339), "past first", s.IsPastFirstManeuver(), "nearing last", s.IsNearingLastManeuver())
	} else if o, ok := s.Orbit(s.Player()); ok {
		keyvals = append(keyvals, "orbit", o.Geometry)
	}
	logger.Log(keyvals...)
}
