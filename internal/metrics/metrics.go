package metrics

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the scan pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	ScansTotal       prometheus.Counter
	ScansSkipped     prometheus.Counter
	ScanDuration     prometheus.Histogram
	FetchAttempts    prometheus.Counter
	FetchFailures    *prometheus.CounterVec // labels: kind
	AlertsSent       *prometheus.CounterVec // labels: direction
	AlertsSuppressed prometheus.Counter
	NotifyFailures   prometheus.Counter
	Relogins         *prometheus.CounterVec // labels: result
}

// New creates the collectors on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ScansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crossover_scans_total",
			Help: "Total scans executed",
		}),
		ScansSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crossover_scans_skipped_total",
			Help: "Scans skipped because the market was closed",
		}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crossover_scan_duration_seconds",
			Help:    "Wall time of one scan over all symbols",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		FetchAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crossover_fetch_attempts_total",
			Help: "Remote historical-data calls made",
		}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crossover_fetch_failures_total",
			Help: "Per-symbol fetch failures by kind",
		}, []string{"kind"}),
		AlertsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crossover_alerts_sent_total",
			Help: "Crossover alerts delivered",
		}, []string{"direction"}),
		AlertsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crossover_alerts_suppressed_total",
			Help: "Crossover alerts suppressed as duplicates",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crossover_notify_failures_total",
			Help: "Notification delivery failures",
		}),
		Relogins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crossover_relogins_total",
			Help: "Session re-login attempts by result",
		}, []string{"result"}),
	}

	m.Registry.MustRegister(
		m.ScansTotal,
		m.ScansSkipped,
		m.ScanDuration,
		m.FetchAttempts,
		m.FetchFailures,
		m.AlertsSent,
		m.AlertsSuppressed,
		m.NotifyFailures,
		m.Relogins,
	)
	return m
}

func (m *Metrics) ObserveScan(d time.Duration) {
	if m == nil {
		return
	}
	m.ScansTotal.Inc()
	m.ScanDuration.Observe(d.Seconds())
}

func (m *Metrics) ScanSkipped() {
	if m == nil {
		return
	}
	m.ScansSkipped.Inc()
}

func (m *Metrics) FetchAttempt() {
	if m == nil {
		return
	}
	m.FetchAttempts.Inc()
}

func (m *Metrics) FetchFailure(kind string) {
	if m == nil {
		return
	}
	m.FetchFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) AlertSent(direction string) {
	if m == nil {
		return
	}
	m.AlertsSent.WithLabelValues(direction).Inc()
}

func (m *Metrics) AlertSuppressed() {
	if m == nil {
		return
	}
	m.AlertsSuppressed.Inc()
}

func (m *Metrics) NotifyFailure() {
	if m == nil {
		return
	}
	m.NotifyFailures.Inc()
}

func (m *Metrics) Relogin(ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.Relogins.WithLabelValues(result).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Serve runs the metrics HTTP server until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) {
	srv := &http.Server{Addr: addr, Handler: m.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Printf("[INFO] metrics server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("[ERROR] metrics server: %v", err)
	}
}
