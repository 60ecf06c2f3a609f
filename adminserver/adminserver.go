// Package adminserver exposes HTTP introspection over a live Simulator:
// health, stats, and pprof profiling, routed with gorilla/mux since this
// package serves several independent endpoints rather than one page.
package adminserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/pprof"

	"github.com/gorilla/mux"

	"jbw/metrics"
	"jbw/simulator"
)

// Server is the admin HTTP surface. It never mutates the simulator; every
// handler only reads.
type Server struct {
	addr    string
	sim     *simulator.Simulator
	metrics *metrics.Registry
	router  *mux.Router
}

// NewServer builds the admin server's route table. Serve still has to be
// called to actually listen.
func NewServer(addr string, sim *simulator.Simulator, reg *metrics.Registry) *Server {
	s := &Server{addr: addr, sim: sim, metrics: reg, router: mux.NewRouter()}

	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	s.router.HandleFunc("/debug/pprof/", pprof.Index)
	s.router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	s.router.HandleFunc("/debug/pprof/profile", pprof.Profile)
	s.router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	s.router.HandleFunc("/debug/pprof/trace", pprof.Trace)
	s.router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)

	return s
}

// Serve blocks, serving the admin routes on addr.
func (s *Server) Serve() error {
	if err := http.ListenAndServe(s.addr, s); err != nil {
		return fmt.Errorf("adminserver: serve: %w", err)
	}
	return nil
}

// ServeHTTP makes Server itself an http.Handler, so tests can drive it
// directly with httptest without binding a real listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type statsResponse struct {
	Time          uint64          `json:"time"`
	MaterializedPatches int       `json:"materialized_patches"`
	Gauges        metrics.Snapshot `json:"gauges"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{
		Time:                s.sim.Time(),
		MaterializedPatches: s.sim.Store().Len(),
	}
	if s.metrics != nil {
		resp.Gauges = s.metrics.Snapshot()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
