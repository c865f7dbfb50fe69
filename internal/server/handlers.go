package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/nodegraph/pkg/buildinfo"
	"github.com/matzehuels/nodegraph/pkg/errors"
	"github.com/matzehuels/nodegraph/pkg/geom"
	"github.com/matzehuels/nodegraph/pkg/render"
	"github.com/matzehuels/nodegraph/pkg/render/nodelink"
	"github.com/matzehuels/nodegraph/pkg/schema"
	"github.com/matzehuels/nodegraph/pkg/workflow"
	"github.com/matzehuels/nodegraph/pkg/workspace"
)

// defaultTolerance is the link hit distance for point queries.
const defaultTolerance = 5

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type putResponse struct {
	ID       string         `json:"id"`
	ETag     string         `json:"etag"`
	Nodes    int            `json:"nodes"`
	Links    int            `json:"links"`
	Groups   int            `json:"groups"`
	Reroutes int            `json:"reroutes"`
	Dropped  droppedSummary `json:"dropped"`
	Warnings []string       `json:"warnings"`
}

type droppedSummary struct {
	Nodes    []workflow.NodeID    `json:"nodes"`
	Links    []workflow.LinkID    `json:"links"`
	Reroutes []workflow.RerouteID `json:"reroutes"`
}

type slotSummary struct {
	Name  string            `json:"name"`
	Type  string            `json:"type"`
	Links []workflow.LinkID `json:"links"`
}

type nodeSummary struct {
	ID       workflow.NodeID `json:"id"`
	Type     string          `json:"type"`
	Title    string          `json:"title"`
	Mode     string          `json:"mode"`
	Bounding geom.Rect       `json:"bounding"`
}

type nodeDetail struct {
	nodeSummary
	Inputs  []slotSummary  `json:"inputs"`
	Outputs []slotSummary  `json:"outputs"`
	Widgets map[string]any `json:"widgets"`
}

type linkHit struct {
	Link  workflow.LinkID `json:"link"`
	Hop   int             `json:"hop"`
	Type  string          `json:"type"`
	Label string          `json:"label"`
}

type queryResponse struct {
	Nodes    []workflow.NodeID    `json:"nodes"`
	Reroutes []workflow.RerouteID `json:"reroutes"`
	Groups   []workflow.GroupID   `json:"groups"`
	Links    []linkHit            `json:"links"`
}

func summarize(n *workflow.Node) nodeSummary {
	return nodeSummary{
		ID:       n.ID(),
		Type:     n.Type,
		Title:    n.Title,
		Mode:     n.Mode().String(),
		Bounding: n.Bounding(),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: buildinfo.Version})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ids, err := s.ws.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"workflows": ids})
}

// document loads the {id} document or writes the error.
func (s *Server) document(w http.ResponseWriter, r *http.Request) (*workspace.Document, bool) {
	doc, err := s.ws.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return doc, true
}

func quoteETag(tag string) string { return `"` + tag + `"` }

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	data := doc.Bytes()
	etag := quoteETag(doc.ETag())
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body"))
		return
	}
	id := chi.URLParam(r, "id")
	doc, report, err := s.ws.Put(r.Context(), id, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", quoteETag(doc.ETag()))
	resp := putResponse{
		ID:       id,
		ETag:     doc.ETag(),
		Nodes:    report.Nodes,
		Links:    report.Links,
		Groups:   report.Groups,
		Reroutes: report.Reroutes,
		Dropped: droppedSummary{
			Nodes:    orEmpty(report.DroppedNodes),
			Links:    orEmpty(report.DroppedLinks),
			Reroutes: orEmpty(report.DroppedReroutes),
		},
		Warnings: orEmpty(report.Warnings),
	}
	writeJSON(w, http.StatusOK, resp)
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.ws.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	var nodes []nodeSummary
	err := doc.View(func(g *workflow.Graph) error {
		for _, n := range g.Nodes() {
			nodes = append(nodes, summarize(n))
		}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]nodeSummary{"nodes": orEmpty(nodes)})
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	id := schema.ParseNodeID(chi.URLParam(r, "nodeID"))
	var detail nodeDetail
	err := doc.View(func(g *workflow.Graph) error {
		n, ok := g.Node(id)
		if !ok {
			return errors.New(errors.ErrCodeNodeNotFound, "node %s not found", id)
		}
		detail.nodeSummary = summarize(n)
		detail.Inputs = []slotSummary{}
		for _, in := range n.Inputs() {
			slot := slotSummary{Name: in.Name, Type: workflow.TypeName(in.Type), Links: []workflow.LinkID{}}
			if l, ok := in.Link(); ok {
				slot.Links = append(slot.Links, l)
			}
			detail.Inputs = append(detail.Inputs, slot)
		}
		detail.Outputs = []slotSummary{}
		for _, out := range n.Outputs() {
			detail.Outputs = append(detail.Outputs, slotSummary{Name: out.Name, Type: workflow.TypeName(out.Type), Links: orEmpty(out.Links())})
		}
		detail.Widgets = make(map[string]any)
		for _, wd := range n.Widgets() {
			detail.Widgets[wd.Name()] = wd.Value()
		}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	point, bounds := q.Get("point"), q.Get("bounds")
	if (point == "") == (bounds == "") {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "exactly one of point or bounds is required"))
		return
	}
	tol := float64(defaultTolerance)
	if t := q.Get("tolerance"); t != "" {
		v, err := strconv.ParseFloat(t, 64)
		if err != nil || v < 0 {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid tolerance %q", t))
			return
		}
		tol = v
	}

	var (
		p    geom.Point
		rect geom.Rect
	)
	var err error
	if point != "" {
		p, err = geom.ParsePoint(point)
	} else {
		rect, err = geom.ParseRect(bounds)
	}
	if err != nil {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid query: %v", err))
		return
	}

	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	resp := queryResponse{
		Nodes:    []workflow.NodeID{},
		Reroutes: []workflow.RerouteID{},
		Groups:   []workflow.GroupID{},
		Links:    []linkHit{},
	}
	err = doc.ViewSegments(func(g *workflow.Graph, segs *render.SegmentCache) error {
		if point != "" {
			if n, ok := g.QueryNodeAtPoint(p); ok {
				resp.Nodes = append(resp.Nodes, n.ID())
			}
			if rr, ok := g.QueryRerouteAtPoint(p); ok {
				resp.Reroutes = append(resp.Reroutes, rr.ID)
			}
			if gr, ok := g.GroupAtPoint(p); ok {
				resp.Groups = append(resp.Groups, gr.ID)
			}
			if seg, ok := segs.SegmentAt(p, tol); ok {
				resp.Links = append(resp.Links, linkHit{Link: seg.Link, Hop: seg.Hop, Type: workflow.TypeName(seg.Type), Label: segs.Tooltip(p, tol)})
			}
			return nil
		}

		for _, n := range g.QueryNodesInBounds(rect) {
			resp.Nodes = append(resp.Nodes, n.ID())
		}
		for _, rr := range g.QueryReroutesInBounds(rect) {
			resp.Reroutes = append(resp.Reroutes, rr.ID)
		}
		for _, gr := range g.Groups() {
			if rect.Overlaps(gr.Bounding()) {
				resp.Groups = append(resp.Groups, gr.ID)
			}
		}
		for _, seg := range segs.InBounds(rect) {
			resp.Links = append(resp.Links, linkHit{Link: seg.Link, Hop: seg.Hop, Type: workflow.TypeName(seg.Type)})
		}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDOT(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	opts := nodelink.Options{
		Detailed: q.Get("detailed") == "true",
		Groups:   q.Get("groups") == "true",
	}
	var dot string
	err := doc.View(func(g *workflow.Graph) error {
		dot = nodelink.ToDOT(g, opts)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch format := q.Get("format"); format {
	case "", "dot":
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		_, _ = io.WriteString(w, dot)
	case "svg":
		svg, err := nodelink.RenderSVG(r.Context(), dot)
		if err != nil {
			s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "render svg"))
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write(svg)
	default:
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "unsupported format %q", format))
	}
}
