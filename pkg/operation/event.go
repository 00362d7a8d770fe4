package operation

import (
	"sort"
	"time"

	"github.com/unitops/unitops/pkg/gateway"
	"github.com/unitops/unitops/pkg/status"
)

// Event is one observed progress record for an operation. Events are ordered
// by (Timestamp, SequenceKey) and immutable once observed.
type Event struct {
	// SequenceKey uniquely identifies the event within the operation.
	SequenceKey string

	// UnitName is the logical name of the resource the event concerns.
	UnitName string

	// UnitType is the resource type.
	UnitType string

	// Timestamp is when the event occurred, per the remote clock.
	Timestamp time.Time

	// Status is the resource status the event reports.
	Status status.ResourceStatus

	// Reason is the status reason, when the remote system reported one.
	Reason status.Reason
}

func eventFromRaw(raw gateway.RawEvent) Event {
	return Event{
		SequenceKey: raw.SequenceKey,
		UnitName:    raw.UnitName,
		UnitType:    raw.UnitType,
		Timestamp:   raw.Timestamp,
		Status:      raw.Status,
		Reason:      status.Reason(raw.Reason),
	}
}

// sortEvents orders events by (Timestamp, SequenceKey). Event pages may
// arrive interleaved or reordered; sorting the full snapshot before the
// seen-key filter keeps per-subscriber delivery strictly increasing.
func sortEvents(events []Event) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.Before(events[j].Timestamp)
		}
		return events[i].SequenceKey < events[j].SequenceKey
	})
}
