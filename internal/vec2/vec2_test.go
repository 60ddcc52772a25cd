package vec2

import "testing"

func TestFloorDiv(t *testing.T) {
	cases := []struct {
		v    I
		size int32
		want I
	}{
		{NewI(0, 0), 100, NewI(0, 0)},
		{NewI(99, 99), 100, NewI(0, 0)},
		{NewI(100, 100), 100, NewI(1, 1)},
		{NewI(-1, -1), 100, NewI(-1, -1)},
		{NewI(-100, -101), 100, NewI(-1, -2)},
	}
	for _, c := range cases {
		if got := c.v.FloorDiv(c.size); got != c.want {
			t.Fatalf("FloorDiv(%v, %d) = %v, want %v", c.v, c.size, got, c.want)
		}
	}
}

func TestCenter(t *testing.T) {
	got := NewI(3, 4).Center()
	want := F{X: 3.5, Y: 4.5}
	if got != want {
		t.Fatalf("Center() = %v, want %v", got, want)
	}
}

func TestFloorBy(t *testing.T) {
	got := F{X: 10.0, Y: -3.0}.FloorBy(4.0)
	want := F{X: 2.0, Y: -1.0}
	if got != want {
		t.Fatalf("FloorBy() = %v, want %v", got, want)
	}
}
