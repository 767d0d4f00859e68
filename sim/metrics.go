package sim

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the session metrics to Prometheus.
type Metrics struct {
	gatherer prometheus.Gatherer

	TickDuration          prometheus.Histogram
	Entries               *prometheus.GaugeVec
	Plans                 *prometheus.CounterVec
	TrajectoriesStarted   prometheus.Counter
	TrajectoriesCompleted prometheus.Counter
}

// NewMetrics registers the session metrics against the provided registerer.
// Registering twice returns the existing collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	tick, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orbital_tick_duration_seconds",
		Help:    "Wall time spent in a session tick.",
		Buckets: []float64{1e-5, 1e-4, 5e-4, 1e-3, 5e-3, 0.01, 0.05, 0.1},
	}), "orbital_tick_duration_seconds")
	if err != nil {
		return nil, err
	}
	entries, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "orbital_table_entries",
		Help: "Number of entries per replicated table.",
	}, []string{"table"}), "orbital_table_entries")
	if err != nil {
		return nil, err
	}
	plans, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbital_trajectory_plans_total",
		Help: "Trajectory computations by result.",
	}, []string{"result"}), "orbital_trajectory_plans_total")
	if err != nil {
		return nil, err
	}
	started, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbital_trajectories_started_total",
		Help: "Trajectories started.",
	}), "orbital_trajectories_started_total")
	if err != nil {
		return nil, err
	}
	completed, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbital_trajectories_completed_total",
		Help: "Trajectories completed into a stable orbit.",
	}), "orbital_trajectories_completed_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		gatherer:              gatherer,
		TickDuration:          tick,
		Entries:               entries,
		Plans:                 plans,
		TrajectoriesStarted:   started,
		TrajectoriesCompleted: completed,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with these metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return nil
	}
	return m.gatherer
}

func (m *Metrics) observeTick(d time.Duration) {
	if m == nil {
		return
	}
	m.TickDuration.Observe(d.Seconds())
}

func (m *Metrics) setEntries(table string, n int) {
	if m == nil {
		return
	}
	m.Entries.WithLabelValues(table).Set(float64(n))
}

func (m *Metrics) incPlans(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Plans.WithLabelValues(result).Inc()
}

func (m *Metrics) incStarted() {
	if m == nil {
		return
	}
	m.TrajectoriesStarted.Inc()
}

func (m *Metrics) incCompleted() {
	if m == nil {
		return
	}
	m.TrajectoriesCompleted.Inc()
}

// register registers the collector, or returns the one already registered
// under the same descriptors.
func register[C prometheus.Collector](reg prometheus.Registerer, c C, name string) (C, error) {
	if err := reg.Register(c); err != nil {
		var zero C
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return zero, err
	}
	return c, nil
}
