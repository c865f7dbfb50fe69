package geom

import (
	"encoding/json"
	"math"
	"testing"
)

func TestRectContains(t *testing.T) {
	r := R(10, 20, 100, 50)
	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"inside", Pt(50, 40), true},
		{"top-left corner", Pt(10, 20), true},
		{"right edge", Pt(110, 40), false},
		{"bottom edge", Pt(50, 70), false},
		{"left of", Pt(9.9, 40), false},
		{"above", Pt(50, 19), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Contains(tt.p); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestRectOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want bool
	}{
		{"disjoint", R(0, 0, 10, 10), R(20, 20, 5, 5), false},
		{"overlapping", R(0, 0, 10, 10), R(5, 5, 10, 10), true},
		{"touching edge", R(0, 0, 10, 10), R(10, 0, 10, 10), true},
		{"contained", R(0, 0, 100, 100), R(10, 10, 5, 5), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("Overlaps() reversed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRectContainsRect(t *testing.T) {
	outer := R(0, 0, 100, 100)
	if !outer.ContainsRect(R(0, 0, 100, 100)) {
		t.Error("ContainsRect(self) = false, want true")
	}
	if outer.ContainsRect(R(90, 90, 20, 5)) {
		t.Error("ContainsRect(straddling) = true, want false")
	}
	if !outer.ContainsCentre(R(90, 90, 10, 10)) {
		t.Error("ContainsCentre() = false, want true")
	}
}

func TestRectUnion(t *testing.T) {
	got := R(0, 0, 10, 10).Union(R(20, -5, 5, 5))
	want := R(0, -5, 25, 15)
	if got != want {
		t.Errorf("Union() = %v, want %v", got, want)
	}
}

func TestQuadrants(t *testing.T) {
	q := R(0, 0, 100, 50).Quadrants()
	want := [4]Rect{R(0, 0, 50, 25), R(50, 0, 50, 25), R(0, 25, 50, 25), R(50, 25, 50, 25)}
	if q != want {
		t.Errorf("Quadrants() = %v, want %v", q, want)
	}
}

func TestSegmentDistance(t *testing.T) {
	tests := []struct {
		name string
		p    Point
		want float64
	}{
		{"on segment", Pt(5, 0), 0},
		{"above middle", Pt(5, 3), 3},
		{"past end", Pt(13, 4), 5},
		{"before start", Pt(-3, 0), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SegmentDistance(tt.p, Pt(0, 0), Pt(10, 0))
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("SegmentDistance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Pos  Point `json:"pos"`
		Size Size  `json:"size"`
		Box  Rect  `json:"bounding"`
	}{Pt(100, 200.5), Sz(315, 262), R(-10, 0, 30, 40)})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"pos":[100,200.5],"size":[315,262],"bounding":[-10,0,30,40]}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}
}

func TestUnmarshalObjectForm(t *testing.T) {
	var p Point
	if err := json.Unmarshal([]byte(`{"0": 12, "1": 34}`), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if p != Pt(12, 34) {
		t.Errorf("Point = %v, want (12, 34)", p)
	}

	var r Rect
	if err := json.Unmarshal([]byte(`[1, 2]`), &r); err == nil {
		t.Error("Unmarshal short rect: expected error")
	}
}
