// Package metrics exposes lock-free counters/gauges for the admin server to
// sample, built on jbw/internal/atomicfloat as a small named-gauge registry
// instead of one-off fields scattered across the simulator.
package metrics

import (
	"time"

	"jbw/internal/atomicfloat"
)

// Registry is a fixed set of gauges a Simulator reports into and an
// adminserver reads out of, without either side taking a lock.
type Registry struct {
	StepsPerSecond *atomicfloat.Float64
	ActiveAgents   *atomicfloat.Float64
	TickCount      *atomicfloat.Float64

	lastTick time.Time
}

// New returns a zeroed registry.
func New() *Registry {
	return &Registry{
		StepsPerSecond: atomicfloat.New(0),
		ActiveAgents:   atomicfloat.New(0),
		TickCount:      atomicfloat.New(0),
	}
}

// RecordTick updates TickCount, ActiveAgents, and a steps/sec figure taken
// from the interval since the previous call (not smoothed), and should
// be called once from a simulator's step callback.
func (r *Registry) RecordTick(activeAgents int) {
	r.TickCount.Add(1)
	r.ActiveAgents.Store(float64(activeAgents))

	now := time.Now()
	if !r.lastTick.IsZero() {
		dt := now.Sub(r.lastTick).Seconds()
		if dt > 0 {
			r.StepsPerSecond.Store(1 / dt)
		}
	}
	r.lastTick = now
}

// Snapshot is a point-in-time read of every gauge, suitable for JSON
// encoding by adminserver's /stats handler.
type Snapshot struct {
	TickCount      float64 `json:"tick_count"`
	StepsPerSecond float64 `json:"steps_per_second"`
	ActiveAgents   float64 `json:"active_agents"`
}

func (r *Registry) Snapshot() Snapshot {
	return Snapshot{
		TickCount:      r.TickCount.Load(),
		StepsPerSecond: r.StepsPerSecond.Load(),
		ActiveAgents:   r.ActiveAgents.Load(),
	}
}
