package diffusion

import (
	"math"
	"testing"
)

func TestNewTableRejectsExpandingKernel(t *testing.T) {
	if _, err := NewTable(4, 10, 0.9, 0.2); err == nil {
		t.Fatal("expected ErrInvalidConfig when lambda+4*alpha > 1")
	}
}

func TestSumAtAgeZeroIsOne(t *testing.T) {
	tbl, err := NewTable(4, 10, 0.9, 0.02)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tbl.SumAtAgeZero(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("SumAtAgeZero() = %v, want 1", got)
	}
}

func TestMonotoneNonIncreasing(t *testing.T) {
	tbl, err := NewTable(4, 20, 0.9, 0.02)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tbl.MonotoneNonIncreasing() {
		t.Error("expected Value(age,0,0) to be non-increasing in age")
	}
}

func TestValueOutsideHorizonIsZero(t *testing.T) {
	tbl, err := NewTable(4, 5, 0.9, 0.02)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tbl.Value(5, 0, 0); got != 0 {
		t.Errorf("Value at age==horizon should be 0, got %v", got)
	}
	if got := tbl.Value(0, 100, 0); got != 0 {
		t.Errorf("Value outside radius should be 0, got %v", got)
	}
}

func TestValueSymmetric(t *testing.T) {
	tbl, err := NewTable(4, 10, 0.9, 0.02)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tbl.Value(2, 3, -1) != tbl.Value(2, -3, 1) {
		t.Error("Value should be symmetric under sign flips of dx,dy")
	}
}
