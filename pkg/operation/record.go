package operation

import (
	"context"
	"sync"

	"github.com/unitops/unitops/pkg/gateway"
	"github.com/unitops/unitops/pkg/status"
)

// record is the aggregate root for one operation: an append-only event
// buffer, a monotone phase cell, and the terminal result. The driver
// goroutine is the only writer; subscribers and result awaiters read under
// the same lock by cursor, so a slow subscriber never blocks the driver and
// a late subscriber replays the full history.
type record struct {
	mu sync.Mutex

	id     gateway.OperationID
	phase  status.Phase
	buffer []Event
	seen   map[string]struct{}

	// notify is closed and replaced whenever the buffer or phase changes.
	notify chan struct{}

	// done is closed exactly once, when the operation reaches a terminal
	// phase or fails fatally.
	done chan struct{}

	// Terminal state, valid once done is closed.
	outputs  map[string]string
	warnings []ResourceOutcome
	err      error
}

func newRecord() *record {
	return &record{
		phase:  status.PhasePending,
		seen:   make(map[string]struct{}),
		notify: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (r *record) setID(id gateway.OperationID) {
	r.mu.Lock()
	r.id = id
	r.mu.Unlock()
}

func (r *record) operationID() gateway.OperationID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id
}

func (r *record) currentPhase() status.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// setPhase advances the phase cell. Transitions are monotone: an attempt to
// move backwards is ignored.
func (r *record) setPhase(p status.Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.phase.Before(p) {
		return
	}
	r.phase = p
	r.wake()
}

// ingest merges one full-history snapshot into the buffer. The snapshot is
// sorted by (timestamp, sequence key), already-seen keys are dropped, and the
// remaining suffix is appended in order. It returns the newly appended
// events.
func (r *record) ingest(raws []gateway.RawEvent) []Event {
	snapshot := make([]Event, 0, len(raws))
	for _, raw := range raws {
		snapshot = append(snapshot, eventFromRaw(raw))
	}
	sortEvents(snapshot)

	r.mu.Lock()
	defer r.mu.Unlock()
	var appended []Event
	for _, ev := range snapshot {
		if _, dup := r.seen[ev.SequenceKey]; dup {
			continue
		}
		r.seen[ev.SequenceKey] = struct{}{}
		r.buffer = append(r.buffer, ev)
		appended = append(appended, ev)
	}
	if len(appended) > 0 {
		r.wake()
	}
	return appended
}

// finishSuccess settles the record in a success phase.
func (r *record) finishSuccess(p status.Phase, outputs map[string]string, warnings []ResourceOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isDoneLocked() {
		return
	}
	r.phase = p
	r.outputs = outputs
	r.warnings = warnings
	close(r.done)
	r.wake()
}

// finishErr settles the record with a terminal error: either a typed
// *Failure or a fatal local error.
func (r *record) finishErr(p status.Phase, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isDoneLocked() {
		return
	}
	r.phase = p
	r.err = err
	close(r.done)
	r.wake()
}

func (r *record) isDoneLocked() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// wake must be called with the lock held.
func (r *record) wake() {
	close(r.notify)
	r.notify = make(chan struct{})
}

// result returns the terminal state. Valid only after done is closed.
func (r *record) result() (map[string]string, []ResourceOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outputs, r.warnings, r.err
}

// subscribe attaches a new independent cursor over the event buffer.
func (r *record) subscribe() *subscriber {
	return &subscriber{rec: r}
}

// subscriber is one cursor over the record's event buffer. Each subscriber
// observes every event exactly once, in (timestamp, sequence key) order,
// regardless of when it attached.
type subscriber struct {
	rec    *record
	cursor int
}

// next blocks until an undelivered event is available or the operation is
// settled with no events remaining. It returns ok=false when the stream is
// exhausted or the context is cancelled.
func (s *subscriber) next(ctx context.Context) (Event, bool) {
	for {
		s.rec.mu.Lock()
		if s.cursor < len(s.rec.buffer) {
			ev := s.rec.buffer[s.cursor]
			s.cursor++
			s.rec.mu.Unlock()
			return ev, true
		}
		if s.rec.isDoneLocked() {
			s.rec.mu.Unlock()
			return Event{}, false
		}
		notify := s.rec.notify
		s.rec.mu.Unlock()

		select {
		case <-notify:
		case <-ctx.Done():
			return Event{}, false
		}
	}
}
