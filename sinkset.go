package foxglove

import (
	"sync"
	"sync/atomic"
)

// entry pairs a Sink with the SinkID it was assigned on attachment.
type entry struct {
	id   SinkID
	sink Sink
}

// sinkSet is the copy-on-write, atomically-swapped sequence of sinks
// attached to a Context. Writers (AddSink/RemoveSink) rebuild the whole
// slice under a mutex confined to this type; readers (the log fan-out
// path) load a snapshot and iterate it without locking. Iteration order
// is insertion order.
//
// The common case of a handful of sinks never needs more than a small
// slice allocation, so no separate small-vector representation is
// required; the atomic.Pointer swap itself is the load-bearing
// concurrency primitive.
type sinkSet struct {
	snapshot atomic.Pointer[[]entry]
	mu       sync.Mutex // guards add/remove; never held across Record or I/O
}

func newSinkSet() *sinkSet {
	s := &sinkSet{}
	empty := make([]entry, 0)
	s.snapshot.Store(&empty)
	return s
}

// load returns the current snapshot. Safe to call without locking; the
// returned slice must never be mutated by the caller.
func (s *sinkSet) load() []entry {
	p := s.snapshot.Load()
	if p == nil {
		return nil
	}
	return *p
}

// add appends sink to the set under a new SinkID and returns it.
func (s *sinkSet) add(sink Sink) SinkID {
	id := nextSinkID()
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.load()
	next := make([]entry, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, entry{id: id, sink: sink})
	s.snapshot.Store(&next)
	return id
}

// remove detaches the sink with the given id, if present, and returns it
// (so callers can fire OnChannelRemoved against it) along with whether it
// was found.
func (s *sinkSet) remove(id SinkID) (Sink, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.load()
	next := make([]entry, 0, len(cur))
	var removed Sink
	found := false
	for _, e := range cur {
		if e.id == id {
			removed = e.sink
			found = true
			continue
		}
		next = append(next, e)
	}
	if !found {
		return nil, false
	}
	s.snapshot.Store(&next)
	return removed, true
}
