package poller

import "sync"

// versioned holds the latest applied value behind a sequence guard.
// Every fetch cycle takes a monotonically increasing sequence number;
// apply discards results whose sequence is older than the applied one,
// so a slow cycle finishing after a faster, later one never overwrites
// newer data (last write wins).
type versioned[T any] struct {
	mu  sync.RWMutex
	seq uint64
	val T
	set bool
}

// apply installs val if seq is newer than the currently applied
// sequence and reports whether it did.
func (v *versioned[T]) apply(seq uint64, val T) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.set && seq <= v.seq {
		return false
	}
	v.seq = seq
	v.val = val
	v.set = true
	return true
}

// get returns the latest applied value; ok is false before the first
// successful apply.
func (v *versioned[T]) get() (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.val, v.set
}
