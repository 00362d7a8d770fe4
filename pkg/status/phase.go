package status

import "fmt"

// Phase is the semantic state of an operation, derived from raw statuses.
// Phases only ever move forward: Pending -> InProgress -> terminal.
type Phase string

const (
	// PhasePending indicates the operation has been accepted but no progress
	// has been observed yet.
	PhasePending Phase = "pending"

	// PhaseInProgress indicates the remote system is working on the operation.
	PhaseInProgress Phase = "in_progress"

	// PhaseSucceeded indicates the operation settled successfully.
	PhaseSucceeded Phase = "succeeded"

	// PhaseSucceededWithWarnings indicates the operation settled successfully
	// but individual resources reported failures along the way.
	PhaseSucceededWithWarnings Phase = "succeeded_with_warnings"

	// PhaseFailed indicates the operation settled in a failed state.
	PhaseFailed Phase = "failed"
)

// IsTerminal reports whether no further transition can occur.
func (p Phase) IsTerminal() bool {
	return p == PhaseSucceeded || p == PhaseSucceededWithWarnings || p == PhaseFailed
}

// IsSuccess reports whether the phase is one of the success phases.
func (p Phase) IsSuccess() bool {
	return p == PhaseSucceeded || p == PhaseSucceededWithWarnings
}

// Validate checks that the phase is one of the defined values.
func (p Phase) Validate() error {
	switch p {
	case PhasePending, PhaseInProgress, PhaseSucceeded, PhaseSucceededWithWarnings, PhaseFailed:
		return nil
	default:
		return fmt.Errorf("invalid phase: %s", p)
	}
}

// rank orders phases for monotonicity checks. Terminal phases share the top
// rank since exactly one of them is ever reached.
func (p Phase) rank() int {
	switch p {
	case PhasePending:
		return 0
	case PhaseInProgress:
		return 1
	default:
		return 2
	}
}

// Before reports whether p orders strictly before q in the phase lifecycle.
func (p Phase) Before(q Phase) bool {
	return p.rank() < q.rank()
}

// Action is the kind of operation being driven against a unit. It determines
// which raw status counts as the nominal success.
type Action string

const (
	// ActionCreate provisions a unit that does not exist yet.
	ActionCreate Action = "create"

	// ActionUpdate modifies an existing unit.
	ActionUpdate Action = "update"

	// ActionDelete tears a unit down.
	ActionDelete Action = "delete"
)

// Validate checks that the action is one of the defined values.
func (a Action) Validate() error {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return nil
	default:
		return fmt.Errorf("invalid action: %s", a)
	}
}

// successStatus returns the nominal success status for the action.
func (a Action) successStatus() UnitStatus {
	switch a {
	case ActionCreate:
		return UnitCreateComplete
	case ActionUpdate:
		return UnitUpdateComplete
	default:
		return UnitDeleteComplete
	}
}

// Classify maps a raw unit status to the phase it implies for an operation
// performing the given action. It is pure and total:
//
//  1. Any terminal status with negative sentiment, and any rollback status,
//     classifies as Failed.
//  2. The nominal success status for the action classifies as Succeeded.
//     (Whether that becomes SucceededWithWarnings depends on per-resource
//     outcomes the classifier does not see; the aggregator decides.)
//  3. Any other known status classifies as InProgress.
//  4. Unknown statuses classify as InProgress so that additions to the remote
//     vocabulary never wedge a running operation. Callers should report them
//     as anomalous.
func Classify(action Action, s UnitStatus) Phase {
	if s.IsTerminal() && s.Sentiment() == Negative {
		return PhaseFailed
	}
	if s == action.successStatus() {
		return PhaseSucceeded
	}
	return PhaseInProgress
}
