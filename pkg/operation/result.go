package operation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/unitops/unitops/pkg/gateway"
	"github.com/unitops/unitops/pkg/status"
)

// ApplyOutput is the success value of an apply operation.
type ApplyOutput struct {
	// OperationID identifies the remote operation. Empty when the apply was
	// a no-op and nothing was submitted.
	OperationID gateway.OperationID

	// UnitName is the name of the applied unit.
	UnitName string

	// Outputs are the unit's outputs after the operation settled.
	Outputs map[string]string

	// Warnings lists resources that failed during an otherwise successful
	// operation. Non-empty exactly when the phase settled as
	// SucceededWithWarnings; the caller decides whether to treat these as
	// fatal.
	Warnings []ResourceOutcome
}

// DeleteOutput is the success value of a delete operation.
type DeleteOutput struct {
	// OperationID identifies the remote operation. Empty when the unit did
	// not exist and nothing was submitted.
	OperationID gateway.OperationID

	// UnitName is the name of the deleted unit.
	UnitName string

	// Warnings lists resources that failed during an otherwise successful
	// teardown, such as a retained resource that could not be removed.
	Warnings []ResourceOutcome
}

// Failure describes an operation that settled in a failed state on the
// remote side. It is a normal, typed outcome: the engine delivers it through
// the result rather than a crash path, and it carries enough information to
// diagnose the failure without another remote call.
type Failure struct {
	// Action is the operation that failed.
	Action status.Action

	// UnitName is the unit the operation was driving.
	UnitName string

	// OperationID identifies the remote operation.
	OperationID gateway.OperationID

	// Phase is the terminal phase; always PhaseFailed.
	Phase status.Phase

	// Status is the raw status the unit settled in.
	Status status.UnitStatus

	// Reason is the most descriptive status reason observed for the failure.
	Reason status.Reason

	// ResourceFailures lists the resources that failed, in observation order.
	ResourceFailures []ResourceOutcome
}

// Error implements the error interface.
func (f *Failure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed for unit %s; terminal status: %s (%s)",
		f.Action, f.UnitName, f.Status, f.Reason)
	if len(f.ResourceFailures) > 0 {
		b.WriteString("\nThe following resources had errors:")
	}
	for _, rf := range f.ResourceFailures {
		reason := string(rf.Reason)
		if reason == "" {
			reason = "no reason reported"
		}
		fmt.Fprintf(&b, "\n- %s (%s): %s (%s)", rf.UnitName, rf.UnitType, rf.Status, reason)
	}
	return b.String()
}

// FatalError reports that the engine gave up on observing an operation: a
// local failure, or transient remote errors that outlived the retry budget.
// The remote operation itself may still be running.
type FatalError struct {
	// Stage names the driver stage that failed (plan, submit, poll).
	Stage string

	// Err is the final underlying error.
	Err error
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	return fmt.Sprintf("operation %s failed fatally: %s", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *FatalError) Unwrap() error {
	return e.Err
}

// Outcome is the durable summary of a settled operation, handed to a
// Recorder once the terminal result has been built.
type Outcome struct {
	// OperationID identifies the remote operation; empty for no-ops.
	OperationID gateway.OperationID

	// UnitName is the unit the operation drove.
	UnitName string

	// Action is the operation kind.
	Action status.Action

	// Phase is the terminal phase.
	Phase status.Phase

	// Reason is the failure reason, when the operation failed.
	Reason status.Reason

	// Outputs are the unit's outputs, for success phases.
	Outputs map[string]string

	// ResourceFailures lists failed resources: warnings on success phases,
	// contributing failures on PhaseFailed.
	ResourceFailures []ResourceOutcome

	// StartedAt and SettledAt bound the engine's observation of the
	// operation.
	StartedAt time.Time
	SettledAt time.Time
}

// Recorder persists settled operation outcomes. Recording is best-effort:
// the driver logs and discards recorder errors rather than failing an
// already-settled operation.
type Recorder interface {
	RecordOutcome(ctx context.Context, outcome *Outcome) error
}
