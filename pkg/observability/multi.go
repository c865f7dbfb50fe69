package observability

import (
	"context"
	"time"
)

// Hooks implements every hook interface.
type Hooks interface {
	WorkflowHooks
	StoreHooks
	HTTPHooks
}

// Multi fans every event out to each of hs, in order.
type Multi []Hooks

func (m Multi) OnConfigure(ctx context.Context, doc string, nodes, links, warnings int, d time.Duration, err error) {
	for _, h := range m {
		h.OnConfigure(ctx, doc, nodes, links, warnings, d, err)
	}
}

func (m Multi) OnSerialize(ctx context.Context, doc string, size int, d time.Duration) {
	for _, h := range m {
		h.OnSerialize(ctx, doc, size, d)
	}
}

func (m Multi) OnChange(ctx context.Context, doc string, events int) {
	for _, h := range m {
		h.OnChange(ctx, doc, events)
	}
}

func (m Multi) OnStoreHit(ctx context.Context, backend string) {
	for _, h := range m {
		h.OnStoreHit(ctx, backend)
	}
}

func (m Multi) OnStoreMiss(ctx context.Context, backend string) {
	for _, h := range m {
		h.OnStoreMiss(ctx, backend)
	}
}

func (m Multi) OnStorePut(ctx context.Context, backend string, size int) {
	for _, h := range m {
		h.OnStorePut(ctx, backend, size)
	}
}

func (m Multi) OnStoreError(ctx context.Context, backend, op string, err error) {
	for _, h := range m {
		h.OnStoreError(ctx, backend, op, err)
	}
}

func (m Multi) OnRequest(ctx context.Context, method, route string) {
	for _, h := range m {
		h.OnRequest(ctx, method, route)
	}
}

func (m Multi) OnResponse(ctx context.Context, method, route string, status int, d time.Duration) {
	for _, h := range m {
		h.OnResponse(ctx, method, route, status, d)
	}
}

// SetAll registers h for every hook category.
func SetAll(h Hooks) {
	SetWorkflowHooks(h)
	SetStoreHooks(h)
	SetHTTPHooks(h)
}

var _ Hooks = Multi(nil)
