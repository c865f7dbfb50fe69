package workspace

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/nodegraph/pkg/errors"
	"github.com/matzehuels/nodegraph/pkg/geom"
	"github.com/matzehuels/nodegraph/pkg/render"
	"github.com/matzehuels/nodegraph/pkg/store"
	"github.com/matzehuels/nodegraph/pkg/workflow"
)

const imageDoc = `{
  "last_node_id": 2,
  "last_link_id": 1,
  "nodes": [
    {"id": 1, "type": "LoadImage", "pos": [0, 0], "size": [200, 100], "flags": {}, "order": 0, "mode": 0,
     "outputs": [{"name": "IMAGE", "type": "IMAGE", "links": [1]}], "properties": {}},
    {"id": 2, "type": "PreviewImage", "pos": [300, 0], "size": [200, 100], "flags": {}, "order": 1, "mode": 0,
     "inputs": [{"name": "images", "type": "IMAGE", "link": 1}], "properties": {}}
  ],
  "links": [[1, 1, 0, 2, 0, "IMAGE"]],
  "groups": [],
  "extra": {},
  "version": 0.4
}`

func newTestWorkspace(t *testing.T) (*Workspace, store.Store) {
	t.Helper()
	s := store.NewMemoryStore()
	ws := New(s, Options{Logger: log.New(io.Discard)})
	t.Cleanup(func() { ws.Close() })
	return ws, s
}

func TestPutAndGet(t *testing.T) {
	ctx := context.Background()
	ws, s := newTestWorkspace(t)

	doc, report, err := ws.Put(ctx, "image", []byte(imageDoc))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if report.Nodes != 2 || report.Links != 1 || !report.Clean() {
		t.Errorf("report = %+v", report)
	}
	if doc.ETag() == "" {
		t.Error("ETag should be set")
	}

	raw, ok, err := s.Get(ctx, keyPrefix+"image")
	if err != nil || !ok {
		t.Fatalf("stored document missing: ok=%v err=%v", ok, err)
	}
	if string(raw) != string(doc.Bytes()) {
		t.Error("stored bytes differ from document bytes")
	}

	got, err := ws.Get(ctx, "image")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != doc {
		t.Error("Get should return the loaded document")
	}

	ws.Evict("image")
	got, err = ws.Get(ctx, "image")
	if err != nil {
		t.Fatalf("Get after evict: %v", err)
	}
	if got.ETag() != doc.ETag() {
		t.Errorf("reloaded ETag = %s, want %s", got.ETag(), doc.ETag())
	}
	err = got.View(func(g *workflow.Graph) error {
		if g.NodeCount() != 2 || g.LinkCount() != 1 {
			t.Errorf("reloaded graph has %d nodes, %d links", g.NodeCount(), g.LinkCount())
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestPutCanonicalizes(t *testing.T) {
	ctx := context.Background()
	ws, _ := newTestWorkspace(t)

	a, _, err := ws.Put(ctx, "a", []byte(imageDoc))
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := ws.Put(ctx, "b", a.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if a.ETag() != b.ETag() {
		t.Error("re-storing a canonical document should not change it")
	}
}

func TestWorkspaceErrors(t *testing.T) {
	ctx := context.Background()
	ws, _ := newTestWorkspace(t)

	tests := []struct {
		name string
		run  func() error
		code errors.Code
	}{
		{"GetMissing", func() error { _, err := ws.Get(ctx, "nope"); return err }, errors.ErrCodeNotFound},
		{"GetBadID", func() error { _, err := ws.Get(ctx, "../etc"); return err }, errors.ErrCodeInvalidDocumentID},
		{"PutBadJSON", func() error { _, _, err := ws.Put(ctx, "x", []byte("{")); return err }, errors.ErrCodeInvalidFormat},
		{"PutBadVersion", func() error {
			_, _, err := ws.Put(ctx, "x", []byte(`{"nodes":[],"links":[],"groups":[],"version":7}`))
			return err
		}, errors.ErrCodeUnsupportedVersion},
		{"DeleteBadID", func() error { return ws.Delete(ctx, "") }, errors.ErrCodeInvalidDocumentID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if !errors.Is(err, tt.code) {
				t.Errorf("got %v, want %s", err, tt.code)
			}
		})
	}
}

func TestUpdatePersists(t *testing.T) {
	ctx := context.Background()
	ws, _ := newTestWorkspace(t)

	doc, _, err := ws.Put(ctx, "image", []byte(imageDoc))
	if err != nil {
		t.Fatal(err)
	}
	before := doc.ETag()

	err = doc.Update(ctx, func(g *workflow.Graph) error {
		g.SetNodePosition(workflow.IntID(2), geom.Pt(600, 40))
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if doc.ETag() == before {
		t.Error("ETag should change after a mutation")
	}

	// A no-op update does not rewrite the store.
	after := doc.ETag()
	if err := doc.Update(ctx, func(*workflow.Graph) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if doc.ETag() != after {
		t.Error("no-op update changed the ETag")
	}

	ws.Evict("image")
	reloaded, err := ws.Get(ctx, "image")
	if err != nil {
		t.Fatal(err)
	}
	_ = reloaded.View(func(g *workflow.Graph) error {
		n, _ := g.Node(workflow.IntID(2))
		if n.Pos() != geom.Pt(600, 40) {
			t.Errorf("pos = %v, want (600,40)", n.Pos())
		}
		return nil
	})
}

func TestDeleteAndList(t *testing.T) {
	ctx := context.Background()
	ws, _ := newTestWorkspace(t)

	for _, id := range []string{"b", "a"} {
		if _, _, err := ws.Put(ctx, id, []byte(imageDoc)); err != nil {
			t.Fatal(err)
		}
	}
	ids, err := ws.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("List = %v", ids)
	}

	doc, _ := ws.Get(ctx, "a")
	if err := ws.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := doc.View(func(*workflow.Graph) error { return nil }); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("View on deleted document: %v", err)
	}
	if _, err := ws.Get(ctx, "a"); !errors.IsNotFound(err) {
		t.Errorf("Get after delete: %v", err)
	}
	if got := ws.Loaded(); len(got) != 1 || got[0] != "b" {
		t.Errorf("Loaded = %v", got)
	}
}

func TestViewSegmentsKeepsCache(t *testing.T) {
	ctx := context.Background()
	ws, _ := newTestWorkspace(t)
	doc, _, err := ws.Put(ctx, "image", []byte(imageDoc))
	if err != nil {
		t.Fatal(err)
	}

	var first *render.SegmentCache
	err = doc.ViewSegments(func(g *workflow.Graph, segs *render.SegmentCache) error {
		first = segs
		if n := len(segs.Segments()); n != 1 {
			t.Errorf("segments = %d, want 1", n)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = doc.Update(ctx, func(g *workflow.Graph) error {
		g.SetNodePosition(workflow.IntID(2), geom.Pt(300, 400))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	err = doc.ViewSegments(func(g *workflow.Graph, segs *render.SegmentCache) error {
		if segs != first {
			t.Error("cache should be reused across views")
		}
		if !segs.Dirty() {
			t.Error("cache should be dirty after an update")
		}
		if n := len(segs.InBounds(geom.R(220, 200, 60, 60))); n != 1 {
			t.Errorf("segments between the nodes = %d, want 1", n)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRemovedDocumentViews(t *testing.T) {
	ctx := context.Background()
	ws, _ := newTestWorkspace(t)
	doc, _, err := ws.Put(ctx, "image", []byte(imageDoc))
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Delete(ctx, "image"); err != nil {
		t.Fatal(err)
	}

	called := false
	if err := doc.View(func(*workflow.Graph) error { called = true; return nil }); !errors.IsNotFound(err) {
		t.Errorf("View = %v, want NOT_FOUND", err)
	}
	err = doc.ViewSegments(func(*workflow.Graph, *render.SegmentCache) error { called = true; return nil })
	if !errors.IsNotFound(err) {
		t.Errorf("ViewSegments = %v, want NOT_FOUND", err)
	}
	if called {
		t.Error("callback ran on a removed document")
	}
}
