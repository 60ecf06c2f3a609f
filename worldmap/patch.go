package worldmap

import (
	"sync"

	"jbw/position"
)

// Patch is a square N x N region of world cells, the unit of procedural
// generation and locking (spec.md §3, GLOSSARY). The map package never
// references agent state directly -- only dense agent ids -- so that this
// package has no dependency on the simulator (spec.md §9's guidance to
// decouple the map from agents via a capability the map itself owns: here,
// just an id list and a lock).
type Patch struct {
	Position position.Position // patch coordinates, not world coordinates
	Size     int64

	mu       sync.Mutex
	items    []Item
	agentIDs []uint64
	fixed    bool
}

// NewPatch constructs an empty, unfixed patch at pos.
func NewPatch(pos position.Position, size int64) *Patch {
	return &Patch{Position: pos, Size: size}
}

// Bounds returns the inclusive-exclusive world-cell range this patch covers:
// [minX, maxX) x [minY, maxY).
func (p *Patch) Bounds() (minX, minY, maxX, maxY int64) {
	minX = p.Position.X * p.Size
	minY = p.Position.Y * p.Size
	maxX = minX + p.Size
	maxY = minY + p.Size
	return
}

// Lock/Unlock expose the patch's lock directly so callers that must hold
// two patch locks at once (cross-patch agent moves) can order acquisition
// themselves per spec.md §5's ascending-(x,y) discipline.
func (p *Patch) Lock()   { p.mu.Lock() }
func (p *Patch) Unlock() { p.mu.Unlock() }

// Fixed reports whether the patch will ever be resampled again. Caller must
// hold the patch lock, or accept a racy read for reporting purposes only.
func (p *Patch) Fixed() bool {
	return p.fixed
}

// MarkFixed freezes the patch. Caller must hold the lock.
func (p *Patch) MarkFixed() {
	p.fixed = true
}

// Items returns the patch's live item slice. Caller must hold the lock for
// the duration of any read/write through the returned slice.
func (p *Patch) Items() []Item {
	return p.items
}

// SetItems replaces the patch's item slice. Caller must hold the lock.
func (p *Patch) SetItems(items []Item) {
	p.items = items
}

// AppendItem appends a new item to the patch. Caller must hold the lock.
func (p *Patch) AppendItem(it Item) {
	p.items = append(p.items, it)
}

// RemoveItemAt removes the item at index i, preserving order (item order
// matters for deterministic serialization of fixed patches). Caller must
// hold the lock.
func (p *Patch) RemoveItemAt(i int) {
	p.items = append(p.items[:i], p.items[i+1:]...)
}

// AgentIDs returns the ids of agents currently resident in this patch.
// Caller must hold the lock.
func (p *Patch) AgentIDs() []uint64 {
	return p.agentIDs
}

// AddAgent records id as resident in this patch. Caller must hold the lock.
func (p *Patch) AddAgent(id uint64) {
	p.agentIDs = append(p.agentIDs, id)
}

// RemoveAgent removes id from the patch's resident list, if present. Caller
// must hold the lock.
func (p *Patch) RemoveAgent(id uint64) {
	for i, a := range p.agentIDs {
		if a == id {
			p.agentIDs = append(p.agentIDs[:i], p.agentIDs[i+1:]...)
			return
		}
	}
}

// CellWithinPatch reports whether world cell (x,y) falls inside p's bounds.
func (p *Patch) CellWithinPatch(x, y int64) bool {
	minX, minY, maxX, maxY := p.Bounds()
	return x >= minX && x < maxX && y >= minY && y < maxY
}
