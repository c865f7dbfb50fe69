package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Workflow hooks
	w := NoopWorkflowHooks{}
	w.OnConfigure(ctx, "doc", 10, 9, 0, time.Millisecond, nil)
	w.OnSerialize(ctx, "doc", 2048, time.Millisecond)
	w.OnChange(ctx, "doc", 3)

	// Store hooks
	s := NoopStoreHooks{}
	s.OnStoreHit(ctx, "file")
	s.OnStoreMiss(ctx, "redis")
	s.OnStorePut(ctx, "badger", 1024)
	s.OnStoreError(ctx, "mongo", "get", errors.New("down"))

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "/workflows/{id}")
	h.OnResponse(ctx, "GET", "/workflows/{id}", 200, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Workflow().(NoopWorkflowHooks); !ok {
		t.Error("Workflow() should return NoopWorkflowHooks by default")
	}
	if _, ok := Store().(NoopStoreHooks); !ok {
		t.Error("Store() should return NoopStoreHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customWorkflow := &testWorkflowHooks{}
	SetWorkflowHooks(customWorkflow)
	if Workflow() != customWorkflow {
		t.Error("SetWorkflowHooks should set custom hooks")
	}

	customStore := &testStoreHooks{}
	SetStoreHooks(customStore)
	if Store() != customStore {
		t.Error("SetStoreHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Workflow().(NoopWorkflowHooks); !ok {
		t.Error("Reset() should restore NoopWorkflowHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testStoreHooks{}
	SetStoreHooks(custom)

	// Setting nil should be ignored
	SetStoreHooks(nil)

	if Store() != custom {
		t.Error("SetStoreHooks(nil) should be ignored")
	}

	Reset()
}

func TestPrometheusHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheusHooks(reg)
	ctx := context.Background()

	p.OnConfigure(ctx, "doc", 4, 3, 2, time.Millisecond, nil)
	p.OnConfigure(ctx, "doc", 0, 0, 0, time.Millisecond, errors.New("bad"))
	p.OnStoreHit(ctx, "file")
	p.OnStoreMiss(ctx, "file")
	p.OnStorePut(ctx, "file", 100)
	p.OnRequest(ctx, "GET", "/healthz")
	p.OnResponse(ctx, "GET", "/healthz", 200, time.Millisecond)

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"ConfigureOK", p.ConfigureTotal.WithLabelValues("ok"), 1},
		{"ConfigureError", p.ConfigureTotal.WithLabelValues("error"), 1},
		{"Warnings", p.ConfigureWarnings, 2},
		{"StoreHit", p.StoreOps.WithLabelValues("file", "hit"), 1},
		{"StoreMiss", p.StoreOps.WithLabelValues("file", "miss"), 1},
		{"StoreBytes", p.StoreBytes.WithLabelValues("file"), 100},
		{"HTTP", p.HTTPRequests.WithLabelValues("GET", "/healthz", "200"), 1},
		{"InFlight", p.HTTPInFlight, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.c); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOtelHooks(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	h, err := NewOtelHooks(mp)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	h.OnConfigure(ctx, "doc", 4, 3, 1, time.Millisecond, nil)
	h.OnStorePut(ctx, "memory", 10)
	h.OnResponse(ctx, "PUT", "/workflows/{id}", 200, time.Millisecond)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			seen[m.Name] = true
		}
	}
	for _, name := range []string{
		"nodegraph.configure.total",
		"nodegraph.configure.duration",
		"nodegraph.store.operations",
		"nodegraph.http.requests",
	} {
		if !seen[name] {
			t.Errorf("metric %s not recorded", name)
		}
	}
}

// Test implementations
type testWorkflowHooks struct{ NoopWorkflowHooks }
type testStoreHooks struct{ NoopStoreHooks }
type testHTTPHooks struct{ NoopHTTPHooks }

type countingHooks struct {
	NoopWorkflowHooks
	NoopStoreHooks
	NoopHTTPHooks
	puts int
}

func (c *countingHooks) OnStorePut(context.Context, string, int) { c.puts++ }

func TestMulti(t *testing.T) {
	a, b := &countingHooks{}, &countingHooks{}
	SetAll(Multi{a, b})
	defer Reset()

	Store().OnStorePut(context.Background(), "memory", 1)
	if a.puts != 1 || b.puts != 1 {
		t.Errorf("puts = %d, %d; want 1, 1", a.puts, b.puts)
	}
	if _, ok := HTTP().(Multi); !ok {
		t.Error("SetAll should register HTTP hooks")
	}
}
