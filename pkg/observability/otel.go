package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// OtelHooks implements every hook interface with OpenTelemetry
// instruments. Events also land on the span carried by ctx, when there is
// one.
type OtelHooks struct {
	configureTotal    metric.Int64Counter
	configureDuration metric.Float64Histogram
	configureWarnings metric.Int64Counter
	serializeBytes    metric.Int64Histogram
	changeEvents      metric.Int64Counter
	storeOps          metric.Int64Counter
	storeErrors       metric.Int64Counter
	httpRequests      metric.Int64Counter
	httpDuration      metric.Float64Histogram
}

// NewOtelHooks creates the instruments from mp. A nil mp uses the global
// meter provider.
func NewOtelHooks(mp metric.MeterProvider) (*OtelHooks, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter("github.com/matzehuels/nodegraph")

	var (
		h   OtelHooks
		err error
	)
	if h.configureTotal, err = meter.Int64Counter("nodegraph.configure.total",
		metric.WithDescription("Documents loaded")); err != nil {
		return nil, err
	}
	if h.configureDuration, err = meter.Float64Histogram("nodegraph.configure.duration",
		metric.WithDescription("Time spent loading a document"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if h.configureWarnings, err = meter.Int64Counter("nodegraph.configure.warnings",
		metric.WithDescription("Entities dropped or repaired while loading")); err != nil {
		return nil, err
	}
	if h.serializeBytes, err = meter.Int64Histogram("nodegraph.serialize.size",
		metric.WithDescription("Size of serialized documents"), metric.WithUnit("By")); err != nil {
		return nil, err
	}
	if h.changeEvents, err = meter.Int64Counter("nodegraph.change.events",
		metric.WithDescription("Graph mutation events")); err != nil {
		return nil, err
	}
	if h.storeOps, err = meter.Int64Counter("nodegraph.store.operations",
		metric.WithDescription("Store operations by backend and result")); err != nil {
		return nil, err
	}
	if h.storeErrors, err = meter.Int64Counter("nodegraph.store.errors",
		metric.WithDescription("Store backend failures")); err != nil {
		return nil, err
	}
	if h.httpRequests, err = meter.Int64Counter("nodegraph.http.requests",
		metric.WithDescription("HTTP requests by route and status")); err != nil {
		return nil, err
	}
	if h.httpDuration, err = meter.Float64Histogram("nodegraph.http.duration",
		metric.WithDescription("HTTP request latency"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return &h, nil
}

func (h *OtelHooks) OnConfigure(ctx context.Context, doc string, nodes, links, warnings int, d time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.Bool("success", err == nil))
	h.configureTotal.Add(ctx, 1, attrs)
	h.configureDuration.Record(ctx, d.Seconds(), attrs)
	h.configureWarnings.Add(ctx, int64(warnings))
	trace.SpanFromContext(ctx).AddEvent("configure", trace.WithAttributes(
		attribute.String("doc", doc),
		attribute.Int("nodes", nodes),
		attribute.Int("links", links),
		attribute.Int("warnings", warnings),
	))
}

func (h *OtelHooks) OnSerialize(ctx context.Context, doc string, size int, _ time.Duration) {
	h.serializeBytes.Record(ctx, int64(size))
	trace.SpanFromContext(ctx).AddEvent("serialize", trace.WithAttributes(
		attribute.String("doc", doc),
		attribute.Int("bytes", size),
	))
}

func (h *OtelHooks) OnChange(ctx context.Context, _ string, events int) {
	h.changeEvents.Add(ctx, int64(events))
}

func (h *OtelHooks) OnStoreHit(ctx context.Context, backend string) {
	h.storeOps.Add(ctx, 1, metric.WithAttributes(attribute.String("backend", backend), attribute.String("result", "hit")))
}

func (h *OtelHooks) OnStoreMiss(ctx context.Context, backend string) {
	h.storeOps.Add(ctx, 1, metric.WithAttributes(attribute.String("backend", backend), attribute.String("result", "miss")))
}

func (h *OtelHooks) OnStorePut(ctx context.Context, backend string, _ int) {
	h.storeOps.Add(ctx, 1, metric.WithAttributes(attribute.String("backend", backend), attribute.String("result", "put")))
}

func (h *OtelHooks) OnStoreError(ctx context.Context, backend, op string, err error) {
	h.storeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("backend", backend), attribute.String("op", op)))
	trace.SpanFromContext(ctx).RecordError(err)
}

func (h *OtelHooks) OnRequest(context.Context, string, string) {}

func (h *OtelHooks) OnResponse(ctx context.Context, method, route string, status int, d time.Duration) {
	h.httpRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
	h.httpDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
	))
}

var (
	_ WorkflowHooks = (*OtelHooks)(nil)
	_ StoreHooks    = (*OtelHooks)(nil)
	_ HTTPHooks     = (*OtelHooks)(nil)
)
