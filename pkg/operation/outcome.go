package operation

import (
	"github.com/unitops/unitops/pkg/status"
)

// ResourceOutcome is the settled result of one resource within an operation.
// Outcomes are keyed by unit name; the last observation wins.
type ResourceOutcome struct {
	// UnitName is the logical name of the resource.
	UnitName string

	// UnitType is the resource type.
	UnitType string

	// Failed reports whether the resource settled in a failed status.
	Failed bool

	// Status is the resource's last observed terminal status.
	Status status.ResourceStatus

	// Reason is the status reason attached to the last observation, when any.
	Reason status.Reason
}

// aggregator accumulates per-resource outcomes from the event stream while
// an operation is polling, and decides between Succeeded and
// SucceededWithWarnings once it settles.
type aggregator struct {
	outcomes map[string]*ResourceOutcome
	order    []string

	// lastFailureReason is the reason from the most recent failure event.
	// Failure reasons on events are usually more descriptive than the one on
	// the settled aggregate status.
	lastFailureReason status.Reason
}

func newAggregator() *aggregator {
	return &aggregator{outcomes: make(map[string]*ResourceOutcome)}
}

// observe records the outcome implied by one event. Terminal statuses settle
// the resource's outcome; in-progress statuses are ignored.
func (a *aggregator) observe(ev Event) {
	if !ev.Status.IsTerminal() {
		return
	}
	out, ok := a.outcomes[ev.UnitName]
	if !ok {
		out = &ResourceOutcome{UnitName: ev.UnitName}
		a.outcomes[ev.UnitName] = out
		a.order = append(a.order, ev.UnitName)
	}
	out.UnitType = ev.UnitType
	out.Failed = ev.Status.Sentiment() == status.Negative
	out.Status = ev.Status
	out.Reason = ev.Reason
	if out.Failed && ev.Reason != "" {
		a.lastFailureReason = ev.Reason
	}
}

// failures returns the outcomes that settled failed, in observation order.
func (a *aggregator) failures() []ResourceOutcome {
	var failed []ResourceOutcome
	for _, name := range a.order {
		if out := a.outcomes[name]; out.Failed {
			failed = append(failed, *out)
		}
	}
	return failed
}

// successPhase decides the success phase for a nominally complete operation:
// Succeeded when every resource settled cleanly, SucceededWithWarnings when
// any resource failed along the way.
func (a *aggregator) successPhase() status.Phase {
	if len(a.failures()) > 0 {
		return status.PhaseSucceededWithWarnings
	}
	return status.PhaseSucceeded
}

// failureReason picks the most descriptive reason for a failed operation:
// the last failure event's reason when one was seen, otherwise the reason
// reported with the settled status.
func (a *aggregator) failureReason(described status.Reason) status.Reason {
	if a.lastFailureReason != "" {
		return a.lastFailureReason
	}
	return described
}
