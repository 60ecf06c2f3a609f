package position

import "testing"

func TestFloorDiv(t *testing.T) {
	cases := []struct {
		a, b, want int64
	}{
		{7, 4, 1},
		{-1, 4, -1},
		{-4, 4, -1},
		{-5, 4, -2},
		{0, 4, 0},
		{3, -4, -1},
	}
	for _, c := range cases {
		if got := FloorDiv(c.a, c.b); got != c.want {
			t.Errorf("FloorDiv(%d,%d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestFloorDivModIdentity(t *testing.T) {
	for a := int64(-20); a <= 20; a++ {
		for _, b := range []int64{4, 8, -4} {
			q := FloorDiv(a, b)
			m := FloorMod(a, b)
			if got := q*b + m; got != a {
				t.Errorf("FloorDiv/FloorMod identity broken for a=%d b=%d: q*b+m=%d", a, b, got)
			}
		}
	}
}

func TestComposeTurns(t *testing.T) {
	if got := Compose(Up, NoChange); got != Up {
		t.Errorf("NoChange should preserve facing, got %v", got)
	}
	if got := Compose(Up, Reverse); got != Down {
		t.Errorf("Reverse(Up) = %v, want Down", got)
	}
	if got := Compose(Up, TurnLeft); got != Left {
		t.Errorf("TurnLeft(Up) = %v, want Left", got)
	}
	if got := Compose(Left, TurnLeft); got != Down {
		t.Errorf("TurnLeft(Left) = %v, want Down", got)
	}
}

func TestRotateIsInvolutionOfReverse(t *testing.T) {
	d := Position{X: 2, Y: 3}
	rotatedTwice := Rotate(Rotate(d, Left), Left)
	if rotatedTwice != (Position{X: -2, Y: -3}) {
		t.Errorf("two Left rotations should equal one Reverse rotation, got %v", rotatedTwice)
	}
}

func TestDirectionInverseUndoesRotate(t *testing.T) {
	d := Position{X: 2, Y: 3}
	for _, facing := range []Direction{Up, Down, Left, Right} {
		got := Rotate(Rotate(d, facing), facing.Inverse())
		if got != d {
			t.Errorf("Rotate(Rotate(d, %v), %v.Inverse()) = %v, want %v", facing, facing, got, d)
		}
	}
	if Up.Inverse() != Up || Down.Inverse() != Down {
		t.Errorf("Up and Down must be their own inverse")
	}
	if Left.Inverse() != Right || Right.Inverse() != Left {
		t.Errorf("Left and Right must invert each other")
	}
}

func TestNeighbors9IncludesCenter(t *testing.T) {
	center := Position{X: 5, Y: 5}
	ring := Neighbors9(center)
	found := false
	for _, p := range ring {
		if p == center {
			found = true
		}
	}
	if !found {
		t.Errorf("Neighbors9 must include the center position")
	}
	if len(ring) != 9 {
		t.Errorf("Neighbors9 must return exactly 9 positions")
	}
}

func TestEmptySentinel(t *testing.T) {
	if !Empty.IsEmpty() {
		t.Errorf("Empty.IsEmpty() should be true")
	}
	if (Position{X: 0, Y: 0}).IsEmpty() {
		t.Errorf("origin should not be empty")
	}
}
