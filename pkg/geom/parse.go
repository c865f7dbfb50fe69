package geom

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePoint parses "x,y".
func ParsePoint(s string) (Point, error) {
	v, err := parseFloats(s, 2)
	if err != nil {
		return Point{}, err
	}
	return Pt(v[0], v[1]), nil
}

// ParseRect parses "x,y,w,h". Width and height must not be negative.
func ParseRect(s string) (Rect, error) {
	v, err := parseFloats(s, 4)
	if err != nil {
		return Rect{}, err
	}
	if v[2] < 0 || v[3] < 0 {
		return Rect{}, fmt.Errorf("negative size in %q", s)
	}
	return R(v[0], v[1], v[2], v[3]), nil
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma-separated numbers, got %q", n, s)
	}
	out := make([]float64, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", p)
		}
		out[i] = f
	}
	return out, nil
}
