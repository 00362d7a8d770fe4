package gateway

import (
	"context"
	"time"

	"github.com/unitops/unitops/pkg/status"
)

// OperationID identifies a remote operation. It is assigned by the remote
// system and immutable once assigned.
type OperationID string

// Parameter is an input parameter for a unit definition.
type Parameter struct {
	// Key is the parameter name.
	Key string

	// Value is the parameter value.
	Value string
}

// Tag is a key-value pair associated with a unit and propagated to the
// resources it provisions.
type Tag struct {
	Key   string
	Value string
}

// Submission is the payload for a create-or-update submission.
type Submission struct {
	// UnitName names the deployable unit.
	UnitName string

	// Definition is the desired definition body for the unit.
	Definition string

	// Parameters are input parameter overrides.
	Parameters []Parameter

	// Tags are associated with the unit and its resources.
	Tags []Tag

	// ClientToken makes the submission idempotent on the remote side:
	// resubmitting with the same token never starts a second operation.
	ClientToken string
}

// DescribeOutput is the remote system's view of an operation at one poll.
type DescribeOutput struct {
	// Status is the raw aggregate status of the unit.
	Status status.UnitStatus

	// Outputs are the unit's current outputs. Only meaningful once the
	// operation has settled successfully.
	Outputs map[string]string

	// Reason is the raw status reason, when the remote system reports one.
	Reason string
}

// RawEvent is one event record from the remote operation's event log. The
// full history is reported on every poll; deduplication is the engine's job.
type RawEvent struct {
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

	// Reason is the status reason, when present.
	Reason string
}

// EventPage is one page of event records.
type EventPage struct {
	// Events are the records on this page, in the remote system's order,
	// which is not guaranteed to be sorted across pages.
	Events []RawEvent

	// NextToken requests the following page when non-empty.
	NextToken string
}

// UnitDescription describes the currently deployed state of a unit.
type UnitDescription struct {
	// UnitID is the remote identifier of the deployed unit.
	UnitID string

	// Status is the unit's current raw status.
	Status status.UnitStatus

	// Outputs are the unit's current outputs.
	Outputs map[string]string
}

// ChangeAction is the action a planned change takes on a resource.
type ChangeAction string

const (
	// ChangeAdd adds a new resource.
	ChangeAdd ChangeAction = "add"

	// ChangeModify changes an existing resource in place or by replacement.
	ChangeModify ChangeAction = "modify"

	// ChangeRemove deletes a resource.
	ChangeRemove ChangeAction = "remove"
)

// Replacement indicates whether a modification replaces the resource.
type Replacement string

const (
	ReplacementTrue        Replacement = "true"
	ReplacementFalse       Replacement = "false"
	ReplacementConditional Replacement = "conditional"
)

// ResourceChange describes one resource-level change a submission would make.
type ResourceChange struct {
	// Action is what happens to the resource.
	Action ChangeAction

	// LogicalID is the resource's logical name in the definition.
	LogicalID string

	// PhysicalID is the deployed resource's identifier. Empty for additions,
	// which have not been created yet.
	PhysicalID string

	// ResourceType is the resource's type.
	ResourceType string

	// Replacement is set for modifications and indicates whether the resource
	// will be recreated.
	Replacement Replacement
}

// Gateway is the capability the engine requires from the remote provisioning
// system. Implementations wrap the concrete API client; every method is
// expected to return *Error values so failures can be classified.
//
// The interface is deliberately narrow: exactly the calls the operation
// engine makes, nothing more, so tests can script a fake without simulating
// a whole provisioning service.
type Gateway interface {
	// DescribeUnit returns the deployed state of the named unit. A
	// not-found error means the unit does not exist.
	DescribeUnit(ctx context.Context, unitName string) (*UnitDescription, error)

	// Diff computes the resource-level changes the submission would make to
	// the deployed unit. An empty change list means no drift.
	Diff(ctx context.Context, sub Submission) ([]ResourceChange, error)

	// BeginCreateOrUpdate starts an asynchronous create-or-update of the
	// unit and returns the operation's identifier. Returns ErrNoChanges when
	// the remote system determines there is nothing to do.
	BeginCreateOrUpdate(ctx context.Context, sub Submission) (OperationID, error)

	// BeginDelete starts an asynchronous teardown of the named unit.
	BeginDelete(ctx context.Context, unitName string, clientToken string) (OperationID, error)

	// Describe reports the operation's aggregate status.
	Describe(ctx context.Context, id OperationID) (*DescribeOutput, error)

	// ListEvents returns one page of the operation's event history. Pass an
	// empty token for the first page.
	ListEvents(ctx context.Context, id OperationID, pageToken string) (*EventPage, error)
}
