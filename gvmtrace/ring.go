package gvmtrace

import "gvm.dev/gvm/internal/ringbuf"

// DefaultLimit is the number of snapshots kept by a Ring created with limit 0.
const DefaultLimit = 1000

// Ring is a Recorder which keeps the most recent snapshots.
type Ring struct {
	rb      ringbuf.RingBuf[Snapshot]
	dropped int
}

func NewRing(limit int) *Ring {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Ring{rb: ringbuf.New[Snapshot](limit)}
}

func (r *Ring) Record(s Snapshot) {
	if r.rb.PushBack(s) {
		r.dropped++
	}
}

// Snapshots returns the retained snapshots, oldest first.
func (r *Ring) Snapshots() []Snapshot {
	return r.rb.Slice()
}

// Dropped is the number of snapshots forgotten to stay within the limit.
func (r *Ring) Dropped() int {
	return r.dropped
}
