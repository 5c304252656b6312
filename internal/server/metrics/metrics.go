// Package metrics exposes the household server's Prometheus instruments and
// the HTTP endpoint that serves them.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/feedkeeper/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upsert results.
const (
	ResultApplied  = "applied"
	ResultStale    = "stale"
	ResultRejected = "rejected"
)

// Metrics groups the counters the services update. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	upserts           *prometheus.CounterVec
	pulled            *prometheus.CounterVec
	householdsCreated prometheus.Counter
	membersRegistered prometheus.Counter
	archives          *prometheus.CounterVec
	rpcDuration       *prometheus.HistogramVec
}

// New registers every instrument on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		upserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedkeeper",
			Name:      "record_upserts_total",
			Help:      "Record upserts by kind and result.",
		}, []string{"kind", "result"}),
		pulled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedkeeper",
			Name:      "records_pulled_total",
			Help:      "Records returned by change queries, by kind.",
		}, []string{"kind"}),
		householdsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feedkeeper",
			Name:      "households_created_total",
			Help:      "Households created.",
		}),
		membersRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feedkeeper",
			Name:      "members_registered_total",
			Help:      "Device registrations, repeats included.",
		}),
		archives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedkeeper",
			Name:      "archives_total",
			Help:      "Household archive exports by result.",
		}, []string{"result"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "feedkeeper",
			Name:      "rpc_duration_seconds",
			Help:      "Latency of gRPC calls by method and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "code"}),
	}

	m.registry.MustRegister(
		m.upserts, m.pulled, m.householdsCreated, m.membersRegistered, m.archives, m.rpcDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Upsert(kind, result string) {
	if m == nil {
		return
	}
	m.upserts.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) Pulled(kind string, n int) {
	if m == nil {
		return
	}
	m.pulled.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) HouseholdCreated() {
	if m == nil {
		return
	}
	m.householdsCreated.Inc()
}

func (m *Metrics) MemberRegistered() {
	if m == nil {
		return
	}
	m.membersRegistered.Inc()
}

func (m *Metrics) Archive(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.archives.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRPC(method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.rpcDuration.WithLabelValues(method, code).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Server serves /metrics until its context is cancelled.
type Server struct {
	address string
	metrics *Metrics
	logger  logging.Logger
}

func NewServer(address string, m *Metrics, l logging.Logger) *Server {
	return &Server{address: address, metrics: m, logger: l.With("module", "metrics_server")}
}

// Run listens on the configured address and shuts the server down when
// ctx is done.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping metrics server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting metrics server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
