package geom

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Points, sizes and rectangles serialize as flat number arrays:
// [x, y], [w, h] and [x, y, w, h]. Decoding also accepts the
// index-keyed object form ({"0": x, "1": y}) that typed arrays produce
// when older editors stringify them.

// MarshalJSON encodes p as [x, y].
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON decodes [x, y] or {"0": x, "1": y}.
func (p *Point) UnmarshalJSON(data []byte) error {
	v, err := decodeTuple(data, 2)
	if err != nil {
		return fmt.Errorf("point: %w", err)
	}
	p.X, p.Y = v[0], v[1]
	return nil
}

// MarshalJSON encodes s as [w, h].
func (s Size) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{s.W, s.H})
}

// UnmarshalJSON decodes [w, h] or {"0": w, "1": h}.
func (s *Size) UnmarshalJSON(data []byte) error {
	v, err := decodeTuple(data, 2)
	if err != nil {
		return fmt.Errorf("size: %w", err)
	}
	s.W, s.H = v[0], v[1]
	return nil
}

// MarshalJSON encodes r as [x, y, w, h].
func (r Rect) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{r.X, r.Y, r.W, r.H})
}

// UnmarshalJSON decodes [x, y, w, h] or its index-keyed object form.
func (r *Rect) UnmarshalJSON(data []byte) error {
	v, err := decodeTuple(data, 4)
	if err != nil {
		return fmt.Errorf("rect: %w", err)
	}
	r.X, r.Y, r.W, r.H = v[0], v[1], v[2], v[3]
	return nil
}

func decodeTuple(data []byte, n int) ([]float64, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return make([]float64, n), nil
	}

	var out []float64
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
	case '{':
		var m map[string]float64
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		out = make([]float64, n)
		for i := range n {
			out[i] = m[fmt.Sprint(i)]
		}
	default:
		return nil, fmt.Errorf("expected array, got %s", data)
	}

	if len(out) < n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(out))
	}
	return out[:n], nil
}
