package main

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/strangergwenn/orbital/sim"
)

// location is the JSON form of an orbital location.
type location struct {
	Phase    float64   `json:"phase"`
	Altitude float64   `json:"altitude"`
	Position []float64 `json:"position"`
}

func newRouter(s *sim.Session) http.Handler {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(s.Metrics().Gatherer(), promhttp.HandlerOpts{})).Methods("GET")
	router.HandleFunc("/locations", getLocationsHandler).Methods("GET")
	router.HandleFunc("/trajectories/{id}", getTrajectoryHandler).Methods("GET")
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(sim.NewContext(r.Context(), s)))
		})
	})
	return router
}

func getLocationsHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := sim.FromContext(r.Context())
	if !ok {
		http.Error(w, "no session", http.StatusServiceUnavailable)
		return
	}
	out := make(map[string]location)
	for id, loc := range s.Locations() {
		out[id.String()] = location{loc.Phase, loc.Altitude(), loc.DisplayPosition()}
	}
	writeJSON(w, out)
}

func getTrajectoryHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := sim.FromContext(r.Context())
	if !ok {
		http.Error(w, "no session", http.StatusServiceUnavailable)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	traj, ok := s.Trajectory(id)
	if !ok {
		http.Error(w, "no trajectory", http.StatusNotFound)
		return
	}
	writeJSON(w, traj)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
