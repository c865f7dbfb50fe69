package workspace

import (
	"bytes"
	"context"
	"sync"

	"github.com/matzehuels/nodegraph/pkg/errors"
	"github.com/matzehuels/nodegraph/pkg/render"
	"github.com/matzehuels/nodegraph/pkg/store"
	"github.com/matzehuels/nodegraph/pkg/workflow"
)

// Document is a loaded workflow. Its graph is only reachable through View
// and Update, which hold the document lock.
type Document struct {
	id    string
	ws    *Workspace
	unsub func()

	mu    sync.Mutex
	graph *workflow.Graph
	segs  *render.SegmentCache
	data  []byte
	etag  string
}

// ID returns the document id.
func (d *Document) ID() string { return d.id }

// ETag returns the fingerprint of the last stored encoding.
func (d *Document) ETag() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.etag
}

// Bytes returns the last stored canonical encoding.
func (d *Document) Bytes() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return bytes.Clone(d.data)
}

// View runs fn with exclusive access to the graph. fn must not mutate it.
func (d *Document) View(fn func(g *workflow.Graph) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.graph == nil {
		return errors.New(errors.ErrCodeNotFound, "workflow %s was removed", d.id)
	}
	return fn(d.graph)
}

// ViewSegments is View with the document's link segment cache. The cache
// is created on first use and rebuilds only after the graph changed.
func (d *Document) ViewSegments(fn func(g *workflow.Graph, segs *render.SegmentCache) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.graph == nil {
		return errors.New(errors.ErrCodeNotFound, "workflow %s was removed", d.id)
	}
	if d.segs == nil {
		d.segs = render.NewSegmentCache(d.graph, d.ws.opts.Index)
	}
	return fn(d.graph, d.segs)
}

// Update runs fn as a single batch and stores the result when the graph
// changed. An error from fn is returned after any mutations it already
// made have been stored.
func (d *Document) Update(ctx context.Context, fn func(g *workflow.Graph) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.graph == nil {
		return errors.New(errors.ErrCodeNotFound, "workflow %s was removed", d.id)
	}

	before := d.graph.Version()
	ferr := d.graph.Batch(func() error { return fn(d.graph) })
	if d.graph.Version() == before {
		return ferr
	}

	data, err := d.ws.Encode(ctx, d.id, d.graph)
	if err != nil {
		return err
	}
	if err := d.ws.store.Put(ctx, d.id, data, d.ws.opts.TTL); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", d.id)
	}
	d.data = data
	d.etag = store.Fingerprint(data)
	return ferr
}

func (d *Document) detach() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.unsub != nil {
		d.unsub()
		d.unsub = nil
	}
	if d.segs != nil {
		d.segs.Close()
		d.segs = nil
	}
	d.graph = nil
}
