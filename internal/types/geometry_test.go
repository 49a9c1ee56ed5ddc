package types

import (
	"math"
	"testing"
)

func TestRectArea(t *testing.T) {
	if got := (Rect{W: 10, H: 4}).Area(); got != 40 {
		t.Errorf("Area() = %v, want 40", got)
	}
	if got := (Rect{W: -1, H: 4}).Area(); got != 0 {
		t.Errorf("Area() with negative width = %v, want 0", got)
	}
	if !(Rect{}).Empty() {
		t.Error("zero rect should be empty")
	}
	if (Rect{W: 1, H: 1}).Empty() {
		t.Error("1x1 rect should not be empty")
	}
}

func TestRectContains(t *testing.T) {
	r := Rect{X: 10, Y: 10, W: 20, H: 20}
	cases := []struct {
		name string
		p    Point
		want bool
	}{
		{"interior", Point{X: 15, Y: 15}, true},
		{"top left corner", Point{X: 10, Y: 10}, true},
		{"bottom right corner", Point{X: 30, Y: 30}, true},
		{"left edge", Point{X: 10, Y: 20}, true},
		{"just outside", Point{X: 30.001, Y: 20}, false},
		{"above", Point{X: 15, Y: 5}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.Contains(tc.p); got != tc.want {
				t.Errorf("Contains(%+v) = %v, want %v", tc.p, got, tc.want)
			}
		})
	}
}

func TestRectIntersect(t *testing.T) {
	t.Run("overlapping", func(t *testing.T) {
		a := Rect{X: 0, Y: 0, W: 10, H: 10}
		b := Rect{X: 5, Y: 5, W: 10, H: 10}
		want := Rect{X: 5, Y: 5, W: 5, H: 5}
		if got := a.Intersect(b); got != want {
			t.Errorf("Intersect = %+v, want %+v", got, want)
		}
	})
	t.Run("disjoint", func(t *testing.T) {
		a := Rect{X: 0, Y: 0, W: 10, H: 10}
		b := Rect{X: 20, Y: 20, W: 10, H: 10}
		if got := a.Intersect(b); !got.Empty() {
			t.Errorf("Intersect = %+v, want empty", got)
		}
	})
	t.Run("edge touching is empty", func(t *testing.T) {
		a := Rect{X: 0, Y: 0, W: 10, H: 10}
		b := Rect{X: 10, Y: 0, W: 10, H: 10}
		if got := a.Intersect(b); !got.Empty() {
			t.Errorf("Intersect = %+v, want empty", got)
		}
	})
}

func TestRectUnion(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 20, Y: 5, W: 10, H: 10}
	want := Rect{X: 0, Y: 0, W: 30, H: 15}
	if got := a.Union(b); got != want {
		t.Errorf("Union = %+v, want %+v", got, want)
	}
	if got := (Rect{}).Union(b); got != b {
		t.Errorf("Union with empty = %+v, want %+v", got, b)
	}
	if got := a.Union(Rect{}); got != a {
		t.Errorf("Union with empty = %+v, want %+v", got, a)
	}
}

func TestRectIoU(t *testing.T) {
	approx := func(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	if got := a.IoU(a); !approx(got, 1) {
		t.Errorf("IoU with self = %v, want 1", got)
	}
	b := Rect{X: 5, Y: 0, W: 10, H: 10}
	// intersection 50, union 150
	if got := a.IoU(b); !approx(got, 1.0/3.0) {
		t.Errorf("IoU = %v, want 1/3", got)
	}
	c := Rect{X: 100, Y: 100, W: 10, H: 10}
	if got := a.IoU(c); got != 0 {
		t.Errorf("IoU disjoint = %v, want 0", got)
	}
}

func TestRectExpand(t *testing.T) {
	r := Rect{X: 100, Y: 100, W: 100, H: 40}
	want := Rect{X: 75, Y: 90, W: 150, H: 60}
	if got := r.Expand(0.25); got != want {
		t.Errorf("Expand(0.25) = %+v, want %+v", got, want)
	}
	if got := r.Expand(0); got != r {
		t.Errorf("Expand(0) = %+v, want unchanged", got)
	}
	if got := r.Expand(-1); got != r {
		t.Errorf("Expand(-1) = %+v, want unchanged", got)
	}
}

func TestRectClamp(t *testing.T) {
	bounds := Rect{X: 0, Y: 0, W: 100, H: 100}
	r := Rect{X: -10, Y: 50, W: 40, H: 80}
	want := Rect{X: 0, Y: 50, W: 30, H: 50}
	if got := r.Clamp(bounds); got != want {
		t.Errorf("Clamp = %+v, want %+v", got, want)
	}
}
