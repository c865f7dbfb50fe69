package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusHooks implements every hook interface on top of Prometheus
// collectors.
type PrometheusHooks struct {
	ConfigureTotal    *prometheus.CounterVec
	ConfigureDuration prometheus.Histogram
	ConfigureWarnings prometheus.Counter
	DocumentNodes     prometheus.Histogram
	SerializeBytes    prometheus.Histogram
	ChangeEvents      prometheus.Counter

	StoreOps    *prometheus.CounterVec
	StoreBytes  *prometheus.CounterVec
	StoreErrors *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge
}

// NewPrometheusHooks creates the collectors and registers them with reg.
func NewPrometheusHooks(reg prometheus.Registerer) *PrometheusHooks {
	f := promauto.With(reg)
	return &PrometheusHooks{
		ConfigureTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nodegraph_configure_total",
			Help: "Documents loaded, by result.",
		}, []string{"result"}),
		ConfigureDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "nodegraph_configure_duration_seconds",
			Help:    "Time spent loading a document.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		ConfigureWarnings: f.NewCounter(prometheus.CounterOpts{
			Name: "nodegraph_configure_warnings_total",
			Help: "Entities dropped or repaired while loading.",
		}),
		DocumentNodes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "nodegraph_document_nodes",
			Help:    "Nodes per loaded document.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		SerializeBytes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "nodegraph_serialize_bytes",
			Help:    "Size of serialized documents.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 10),
		}),
		ChangeEvents: f.NewCounter(prometheus.CounterOpts{
			Name: "nodegraph_change_events_total",
			Help: "Graph mutation events delivered to observers.",
		}),
		StoreOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nodegraph_store_operations_total",
			Help: "Store operations by backend and result.",
		}, []string{"backend", "result"}),
		StoreBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nodegraph_store_written_bytes_total",
			Help: "Bytes written to the store.",
		}, []string{"backend"}),
		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nodegraph_store_errors_total",
			Help: "Store backend failures.",
		}, []string{"backend", "op"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nodegraph_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nodegraph_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		HTTPInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "nodegraph_http_in_flight",
			Help: "Requests being served.",
		}),
	}
}

func (p *PrometheusHooks) OnConfigure(_ context.Context, _ string, nodes, _, warnings int, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.ConfigureTotal.WithLabelValues(result).Inc()
	p.ConfigureDuration.Observe(d.Seconds())
	if err == nil {
		p.ConfigureWarnings.Add(float64(warnings))
		p.DocumentNodes.Observe(float64(nodes))
	}
}

func (p *PrometheusHooks) OnSerialize(_ context.Context, _ string, size int, _ time.Duration) {
	p.SerializeBytes.Observe(float64(size))
}

func (p *PrometheusHooks) OnChange(_ context.Context, _ string, events int) {
	p.ChangeEvents.Add(float64(events))
}

func (p *PrometheusHooks) OnStoreHit(_ context.Context, backend string) {
	p.StoreOps.WithLabelValues(backend, "hit").Inc()
}

func (p *PrometheusHooks) OnStoreMiss(_ context.Context, backend string) {
	p.StoreOps.WithLabelValues(backend, "miss").Inc()
}

func (p *PrometheusHooks) OnStorePut(_ context.Context, backend string, size int) {
	p.StoreOps.WithLabelValues(backend, "put").Inc()
	p.StoreBytes.WithLabelValues(backend).Add(float64(size))
}

func (p *PrometheusHooks) OnStoreError(_ context.Context, backend, op string, _ error) {
	p.StoreErrors.WithLabelValues(backend, op).Inc()
}

func (p *PrometheusHooks) OnRequest(context.Context, string, string) {
	p.HTTPInFlight.Inc()
}

func (p *PrometheusHooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	p.HTTPInFlight.Dec()
	p.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ WorkflowHooks = (*PrometheusHooks)(nil)
	_ StoreHooks    = (*PrometheusHooks)(nil)
	_ HTTPHooks     = (*PrometheusHooks)(nil)
)
