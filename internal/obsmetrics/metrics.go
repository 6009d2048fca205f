// Package obsmetrics exposes Prometheus counters and gauges describing
// tower activity, plus a /metrics and /health HTTP endpoint.
package obsmetrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors registered for a running tower,
// on a registry of its own (see New). No collector carries a station label.
type Metrics struct {
	ElementUpdates  *prometheus.CounterVec
	RouteStateTotal *prometheus.CounterVec
	RoutesArmed     prometheus.Gauge
	MQTTConnected   prometheus.Gauge
	registry        *prometheus.Registry
}

// New creates and registers the tower's metric collectors on a fresh
// registry (not the global DefaultRegisterer, so multiple Towers in one
// process — e.g. under test — don't collide on registration).
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		ElementUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "towerd",
			Name:      "element_updates_total",
			Help:      "Count of element property updates, by kind.",
		}, []string{"kind"}),
		RouteStateTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "towerd",
			Name:      "route_state_transitions_total",
			Help:      "Count of route state machine transitions, by route and target state.",
		}, []string{"route", "state"}),
		RoutesArmed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "towerd",
			Name:      "routes_armed",
			Help:      "Number of routes currently in the ARMED state.",
		}),
		MQTTConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "towerd",
			Name:      "mqtt_connected",
			Help:      "1 if the MQTT broker connection is up, 0 otherwise.",
		}),
		registry: reg,
	}

	reg.MustRegister(m.ElementUpdates, m.RouteStateTotal, m.RoutesArmed, m.MQTTConnected)
	return m
}

// StatusFunc reports the tower's current health for the /health endpoint.
type StatusFunc func() Status

// Status is the point-in-time health snapshot returned by StatusFunc.
type Status struct {
	Station       string
	Uptime        time.Duration
	MQTTConnected bool
	RoutesArmed   int
}

// Server mounts /metrics and /health on its own http.ServeMux and serves
// until ctx is cancelled.
type Server struct {
	addr    string
	metrics *Metrics
	status  StatusFunc
	httpSrv *http.Server
}

// NewServer creates a metrics/health HTTP server. statusFunc is called on
// each /health request.
func NewServer(addr string, metrics *Metrics, statusFunc StatusFunc) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{}))
	s := &Server{addr: addr, metrics: metrics, status: statusFunc}
	mux.Handle("/health", http.HandlerFunc(s.serveHealth))
	s.httpSrv = &http.Server{Addr: addr, Handler: mux}
	return s
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	status := s.status()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"station":        status.Station,
		"uptime":         status.Uptime.String(),
		"mqtt_connected": status.MQTTConnected,
		"routes_armed":   status.RoutesArmed,
	})
}

// Run starts the HTTP server and blocks until ctx is cancelled, then shuts
// it down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}
