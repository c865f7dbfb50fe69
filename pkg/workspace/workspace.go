// Package workspace loads, edits and persists workflow documents on top of
// a [store.Store].
//
// A [Workspace] keeps the documents it has loaded in memory so repeated
// requests reuse the configured graph and its spatial index. Each
// [Document] serialises access to its graph with a mutex, since
// [workflow.Graph] itself is single-writer. Both the CLI and the HTTP
// server go through a Workspace so the store layout, canonical encoding
// and instrumentation stay the same everywhere.
//
//	ws := workspace.New(s, workspace.Options{Registry: reg, Logger: logger})
//	doc, report, err := ws.Put(ctx, "flux", data)
//	...
//	err = doc.View(func(g *workflow.Graph) error {
//	    hits := g.QueryNodesInBounds(viewport)
//	    ...
//	})
package workspace

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/nodegraph/pkg/errors"
	"github.com/matzehuels/nodegraph/pkg/observability"
	"github.com/matzehuels/nodegraph/pkg/registry"
	"github.com/matzehuels/nodegraph/pkg/schema"
	"github.com/matzehuels/nodegraph/pkg/spatial"
	"github.com/matzehuels/nodegraph/pkg/store"
	"github.com/matzehuels/nodegraph/pkg/workflow"
)

// keyPrefix namespaces documents inside the store.
const keyPrefix = "wf:"

// Options configures a Workspace.
type Options struct {
	// Registry is injected into every graph. Nil means an empty,
	// permissive registry.
	Registry *registry.Registry

	// Logger receives load warnings and lifecycle messages. Nil uses
	// log.Default().
	Logger *log.Logger

	// Index tunes the spatial indexes of loaded graphs.
	Index spatial.Options

	// TTL expires stored documents. Zero keeps them forever.
	TTL time.Duration
}

// Workspace is safe for concurrent use.
type Workspace struct {
	store store.Store
	opts  Options

	mu   sync.Mutex
	docs map[string]*Document
}

// New creates a workspace over s. A nil s uses a [store.NullStore].
func New(s store.Store, opts Options) *Workspace {
	if s == nil {
		s = store.NewNullStore()
	}
	if opts.Registry == nil {
		opts.Registry = registry.New()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Workspace{
		store: store.Prefixed(s, keyPrefix),
		opts:  opts,
		docs:  make(map[string]*Document),
	}
}

// Registry returns the registry injected into loaded graphs.
func (w *Workspace) Registry() *registry.Registry { return w.opts.Registry }

// NewGraph creates an empty graph with the workspace's options.
func (w *Workspace) NewGraph() *workflow.Graph {
	return workflow.New(workflow.Options{
		Registry: w.opts.Registry,
		Logger:   w.opts.Logger,
		Index:    w.opts.Index,
	})
}

// Decode parses and configures a document without storing it.
func (w *Workspace) Decode(ctx context.Context, id string, data []byte) (*workflow.Graph, *workflow.LoadReport, error) {
	start := time.Now()
	doc, err := schema.Unmarshal(data)
	if err != nil {
		err = errors.Wrap(errors.ErrCodeInvalidFormat, err, "document %s", id)
		observability.Workflow().OnConfigure(ctx, id, 0, 0, 0, time.Since(start), err)
		return nil, nil, err
	}
	g := w.NewGraph()
	report, err := g.Configure(doc)
	if err != nil {
		observability.Workflow().OnConfigure(ctx, id, 0, 0, 0, time.Since(start), err)
		return nil, nil, err
	}
	observability.Workflow().OnConfigure(ctx, id, report.Nodes, report.Links, len(report.Warnings), time.Since(start), nil)
	return g, report, nil
}

// Encode serializes g in canonical form.
func (w *Workspace) Encode(ctx context.Context, id string, g *workflow.Graph) ([]byte, error) {
	start := time.Now()
	data, err := schema.Marshal(g.Serialize())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode %s", id)
	}
	observability.Workflow().OnSerialize(ctx, id, len(data), time.Since(start))
	return data, nil
}

// Get returns the document with id, loading it from the store on first
// use. A document missing from the store reports NOT_FOUND.
func (w *Workspace) Get(ctx context.Context, id string) (*Document, error) {
	if err := errors.ValidateDocumentID(id); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if d, ok := w.docs[id]; ok {
		return d, nil
	}

	data, ok, err := w.store.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read %s", id)
	}
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "workflow %s not found", id)
	}
	g, report, err := w.Decode(ctx, id, data)
	if err != nil {
		return nil, err
	}
	if !report.Clean() {
		w.opts.Logger.Warn("stored workflow loaded with warnings", "id", id, "warnings", len(report.Warnings))
	}
	d := w.attach(id, g, data)
	w.opts.Logger.Debug("workflow loaded", "id", id, "nodes", report.Nodes, "links", report.Links)
	return d, nil
}

// Put configures data as the new content of document id and stores its
// canonical encoding. Documents that fail to configure are not stored.
func (w *Workspace) Put(ctx context.Context, id string, data []byte) (*Document, *workflow.LoadReport, error) {
	if err := errors.ValidateDocumentID(id); err != nil {
		return nil, nil, err
	}
	g, report, err := w.Decode(ctx, id, data)
	if err != nil {
		return nil, nil, err
	}
	canonical, err := w.Encode(ctx, id, g)
	if err != nil {
		return nil, nil, err
	}
	if err := w.store.Put(ctx, id, canonical, w.opts.TTL); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInternal, err, "write %s", id)
	}

	w.mu.Lock()
	if old, ok := w.docs[id]; ok {
		old.detach()
	}
	d := w.attach(id, g, canonical)
	w.mu.Unlock()

	w.opts.Logger.Info("workflow stored", "id", id, "nodes", report.Nodes, "links", report.Links, "warnings", len(report.Warnings))
	return d, report, nil
}

// Delete removes document id from memory and from the store.
func (w *Workspace) Delete(ctx context.Context, id string) error {
	if err := errors.ValidateDocumentID(id); err != nil {
		return err
	}
	w.mu.Lock()
	if d, ok := w.docs[id]; ok {
		d.detach()
		delete(w.docs, id)
	}
	w.mu.Unlock()
	if err := w.store.Delete(ctx, id); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "delete %s", id)
	}
	return nil
}

// List returns the ids of stored documents, sorted.
func (w *Workspace) List(ctx context.Context) ([]string, error) {
	ids, err := w.store.List(ctx, "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "list workflows")
	}
	return ids, nil
}

// Loaded returns the ids of documents held in memory, sorted.
func (w *Workspace) Loaded() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.docs))
	for id := range w.docs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Evict drops a loaded document from memory without touching the store.
func (w *Workspace) Evict(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if d, ok := w.docs[id]; ok {
		d.detach()
		delete(w.docs, id)
	}
}

// Close evicts every document and closes the store.
func (w *Workspace) Close() error {
	w.mu.Lock()
	for id, d := range w.docs {
		d.detach()
		delete(w.docs, id)
	}
	w.mu.Unlock()
	return w.store.Close()
}

// attach registers a document. Callers hold w.mu.
func (w *Workspace) attach(id string, g *workflow.Graph, data []byte) *Document {
	d := &Document{id: id, ws: w, graph: g, data: bytes.Clone(data), etag: store.Fingerprint(data)}
	d.unsub = g.Subscribe(workflow.ObserverFunc(func(cs workflow.ChangeSet) {
		observability.Workflow().OnChange(context.Background(), id, len(cs.Events))
	}))
	w.docs[id] = d
	return d
}
