package worldmap

import (
	"time"

	channerics "github.com/niceyeti/channerics/channels"
)

// RunReaper sweeps the store for deleted items past their removal lifetime
// once per interval, until done is closed. nowFn supplies the simulator's
// current tick count so the reaper stays on the same clock as gameplay
// (spec.md §4.6) rather than wall time. Uses a closed-over done channel
// rather than a context, since this loop has no per-call deadline of its
// own.
func RunReaper(done <-chan struct{}, store *Store, interval time.Duration, removedItemLifetime uint64, nowFn func() uint64) {
	for range channerics.NewTicker(done, interval) {
		store.ReapDeleted(nowFn(), removedItemLifetime)
	}
}
