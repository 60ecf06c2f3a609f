package worldmap

import (
	"sync"
	"testing"

	"jbw/position"
)

func TestWorldToPatchNegative(t *testing.T) {
	s := NewStore(8)
	patchPos, within := s.WorldToPatch(position.Position{X: -1, Y: -1})
	if patchPos != (position.Position{X: -1, Y: -1}) {
		t.Errorf("patchPos = %v, want (-1,-1)", patchPos)
	}
	if within != (position.Position{X: 7, Y: 7}) {
		t.Errorf("within = %v, want (7,7)", within)
	}
}

func TestGetOrCreateIdempotentConcurrent(t *testing.T) {
	s := NewStore(8)
	pos := position.Position{X: 3, Y: -2}
	var wg sync.WaitGroup
	results := make([]*Patch, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.GetOrCreate(pos)
		}(i)
	}
	wg.Wait()
	for _, r := range results[1:] {
		if r != results[0] {
			t.Fatalf("GetOrCreate returned different patches for the same position under concurrency")
		}
	}
}

func TestGetIfExistsNeverMaterializes(t *testing.T) {
	s := NewStore(8)
	if p := s.GetIfExists(position.Position{X: 0, Y: 0}); p != nil {
		t.Fatalf("GetIfExists should not materialize, got %v", p)
	}
	if s.Len() != 0 {
		t.Fatalf("store should still be empty, got %d patches", s.Len())
	}
}

func TestSnapshotSortedOrder(t *testing.T) {
	s := NewStore(8)
	s.GetOrCreate(position.Position{X: 2, Y: 1})
	s.GetOrCreate(position.Position{X: -1, Y: 5})
	s.GetOrCreate(position.Position{X: -1, Y: -5})
	snap := s.Snapshot()
	for i := 1; i < len(snap); i++ {
		if snap[i].Position.Less(snap[i-1].Position) {
			t.Fatalf("snapshot not sorted: %v before %v", snap[i-1].Position, snap[i].Position)
		}
	}
}

func TestPatchItemWithinBounds(t *testing.T) {
	p := NewPatch(position.Position{X: 2, Y: -1}, 8)
	minX, minY, maxX, maxY := p.Bounds()
	if minX != 16 || minY != -8 || maxX != 24 || maxY != 0 {
		t.Fatalf("Bounds() = (%d,%d,%d,%d), want (16,-8,24,0)", minX, minY, maxX, maxY)
	}
	if !p.CellWithinPatch(16, -8) || p.CellWithinPatch(24, -1) {
		t.Fatalf("CellWithinPatch boundary check failed")
	}
}
