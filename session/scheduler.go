package session

import (
	"container/heap"
	"time"
)

// TimerID identifies a scheduled entry so it can be cancelled.
type TimerID uint64

type timerEntry struct {
	id        TimerID
	deadline  time.Duration
	fn        func()
	cancelled bool
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline != h[j].deadline {
		return h[i].deadline < h[j].deadline
	}
	return h[i].id < h[j].id
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)   { *h = append(*h, x.(*timerEntry)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Scheduler holds delayed continuations keyed by a deadline on the session
// clock. Nothing runs on its own: Advance is called once per tick and fires
// every due entry exactly once, earliest deadline first. Not safe for
// concurrent use; it belongs to the tick loop that owns the session.
type Scheduler struct {
	now     time.Duration
	nextID  TimerID
	entries timerHeap
	live    map[TimerID]*timerEntry
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		live: make(map[TimerID]*timerEntry),
	}
}

// Now returns the time of the last Advance.
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// At schedules fn to run on the first Advance whose time reaches deadline.
func (s *Scheduler) At(deadline time.Duration, fn func()) TimerID {
	s.nextID++
	e := &timerEntry{id: s.nextID, deadline: deadline, fn: fn}
	heap.Push(&s.entries, e)
	s.live[e.id] = e
	return e.id
}

// After schedules fn to run d after the current time.
func (s *Scheduler) After(d time.Duration, fn func()) TimerID {
	return s.At(s.now+d, fn)
}

// Cancel drops a pending entry. Cancelling a fired or unknown entry is a no-op.
func (s *Scheduler) Cancel(id TimerID) bool {
	e, ok := s.live[id]
	if !ok {
		return false
	}
	e.cancelled = true
	delete(s.live, id)
	return true
}

// CancelAll drops every pending entry.
func (s *Scheduler) CancelAll() {
	for id, e := range s.live {
		e.cancelled = true
		delete(s.live, id)
	}
	s.entries = s.entries[:0]
}

// Advance moves the clock to now and runs every entry that is due. Entries
// scheduled by a callback for a time already reached run in the same call.
func (s *Scheduler) Advance(now time.Duration) int {
	if now > s.now {
		s.now = now
	}

	fired := 0
	for len(s.entries) > 0 && s.entries[0].deadline <= s.now {
		e := heap.Pop(&s.entries).(*timerEntry)
		if e.cancelled {
			continue
		}
		delete(s.live, e.id)
		e.fn()
		fired++
	}
	return fired
}

// Len returns the number of pending entries.
func (s *Scheduler) Len() int {
	return len(s.live)
}
