// Package status defines the raw status vocabulary reported by the remote
// provisioning system and the semantic phases derived from it.
//
// Raw statuses are the remote system's own SCREAMING_SNAKE strings, with
// separate families for rollbacks and cleanups. Phase is the small, stable
// vocabulary the rest of the engine works with. The Classify function is the
// only place the two meet.
package status

import "fmt"

// UnitStatus is the aggregate status of a deployable unit as reported by the
// remote system.
type UnitStatus string

// Known unit statuses.
const (
	UnitCreateInProgress                        UnitStatus = "CREATE_IN_PROGRESS"
	UnitCreateFailed                            UnitStatus = "CREATE_FAILED"
	UnitCreateComplete                          UnitStatus = "CREATE_COMPLETE"
	UnitRollbackInProgress                      UnitStatus = "ROLLBACK_IN_PROGRESS"
	UnitRollbackFailed                          UnitStatus = "ROLLBACK_FAILED"
	UnitRollbackComplete                        UnitStatus = "ROLLBACK_COMPLETE"
	UnitDeleteInProgress                        UnitStatus = "DELETE_IN_PROGRESS"
	UnitDeleteFailed                            UnitStatus = "DELETE_FAILED"
	UnitDeleteComplete                          UnitStatus = "DELETE_COMPLETE"
	UnitUpdateInProgress                        UnitStatus = "UPDATE_IN_PROGRESS"
	UnitUpdateCompleteCleanupInProgress         UnitStatus = "UPDATE_COMPLETE_CLEANUP_IN_PROGRESS"
	UnitUpdateComplete                          UnitStatus = "UPDATE_COMPLETE"
	UnitUpdateFailed                            UnitStatus = "UPDATE_FAILED"
	UnitUpdateRollbackInProgress                UnitStatus = "UPDATE_ROLLBACK_IN_PROGRESS"
	UnitUpdateRollbackFailed                    UnitStatus = "UPDATE_ROLLBACK_FAILED"
	UnitUpdateRollbackCompleteCleanupInProgress UnitStatus = "UPDATE_ROLLBACK_COMPLETE_CLEANUP_IN_PROGRESS"
	UnitUpdateRollbackComplete                  UnitStatus = "UPDATE_ROLLBACK_COMPLETE"
	UnitReviewInProgress                        UnitStatus = "REVIEW_IN_PROGRESS"
)

// knownUnitStatuses enumerates every status this engine recognizes.
var knownUnitStatuses = map[UnitStatus]struct{}{
	UnitCreateInProgress:                        {},
	UnitCreateFailed:                            {},
	UnitCreateComplete:                          {},
	UnitRollbackInProgress:                      {},
	UnitRollbackFailed:                          {},
	UnitRollbackComplete:                        {},
	UnitDeleteInProgress:                        {},
	UnitDeleteFailed:                            {},
	UnitDeleteComplete:                          {},
	UnitUpdateInProgress:                        {},
	UnitUpdateCompleteCleanupInProgress:         {},
	UnitUpdateComplete:                          {},
	UnitUpdateFailed:                            {},
	UnitUpdateRollbackInProgress:                {},
	UnitUpdateRollbackFailed:                    {},
	UnitUpdateRollbackCompleteCleanupInProgress: {},
	UnitUpdateRollbackComplete:                  {},
	UnitReviewInProgress:                        {},
}

// KnownUnitStatuses returns every unit status the engine recognizes.
func KnownUnitStatuses() []UnitStatus {
	out := make([]UnitStatus, 0, len(knownUnitStatuses))
	for s := range knownUnitStatuses {
		out = append(out, s)
	}
	return out
}

// IsKnown reports whether the status is part of the recognized vocabulary.
func (s UnitStatus) IsKnown() bool {
	_, ok := knownUnitStatuses[s]
	return ok
}

// IsTerminal reports whether the status is settled: it will not change again
// during the current operation.
func (s UnitStatus) IsTerminal() bool {
	switch s {
	case UnitCreateFailed, UnitCreateComplete,
		UnitRollbackFailed, UnitRollbackComplete,
		UnitDeleteFailed, UnitDeleteComplete,
		UnitUpdateComplete, UnitUpdateFailed,
		UnitUpdateRollbackFailed, UnitUpdateRollbackComplete:
		return true
	default:
		return false
	}
}

// Sentiment returns the sentiment of the status for the unit as a whole.
func (s UnitStatus) Sentiment() Sentiment {
	switch s {
	case UnitCreateComplete, UnitDeleteComplete, UnitUpdateComplete:
		return Positive
	case UnitCreateInProgress, UnitDeleteInProgress, UnitUpdateInProgress,
		UnitUpdateCompleteCleanupInProgress, UnitReviewInProgress:
		return Neutral
	case UnitCreateFailed, UnitRollbackInProgress, UnitRollbackFailed,
		UnitRollbackComplete, UnitDeleteFailed, UnitUpdateFailed,
		UnitUpdateRollbackInProgress, UnitUpdateRollbackFailed,
		UnitUpdateRollbackCompleteCleanupInProgress, UnitUpdateRollbackComplete:
		return Negative
	default:
		return Neutral
	}
}

// Validate checks that the status is part of the recognized vocabulary.
func (s UnitStatus) Validate() error {
	if !s.IsKnown() {
		return fmt.Errorf("unknown unit status: %s", s)
	}
	return nil
}

// ResourceStatus is the status of a single resource within a unit, as carried
// on operation events.
type ResourceStatus string

// Known resource statuses.
const (
	ResourceCreateInProgress ResourceStatus = "CREATE_IN_PROGRESS"
	ResourceCreateFailed     ResourceStatus = "CREATE_FAILED"
	ResourceCreateComplete   ResourceStatus = "CREATE_COMPLETE"
	ResourceDeleteInProgress ResourceStatus = "DELETE_IN_PROGRESS"
	ResourceDeleteFailed     ResourceStatus = "DELETE_FAILED"
	ResourceDeleteComplete   ResourceStatus = "DELETE_COMPLETE"
	ResourceDeleteSkipped    ResourceStatus = "DELETE_SKIPPED"
	ResourceUpdateInProgress ResourceStatus = "UPDATE_IN_PROGRESS"
	ResourceUpdateFailed     ResourceStatus = "UPDATE_FAILED"
	ResourceUpdateComplete   ResourceStatus = "UPDATE_COMPLETE"
)

// IsTerminal reports whether the resource status is settled.
func (s ResourceStatus) IsTerminal() bool {
	switch s {
	case ResourceCreateFailed, ResourceCreateComplete,
		ResourceDeleteFailed, ResourceDeleteComplete, ResourceDeleteSkipped,
		ResourceUpdateFailed, ResourceUpdateComplete:
		return true
	default:
		return false
	}
}

// Sentiment returns the sentiment of the status for the affected resource.
func (s ResourceStatus) Sentiment() Sentiment {
	switch s {
	case ResourceCreateComplete, ResourceDeleteComplete, ResourceUpdateComplete:
		return Positive
	case ResourceCreateInProgress, ResourceDeleteInProgress, ResourceDeleteSkipped,
		ResourceUpdateInProgress:
		return Neutral
	case ResourceCreateFailed, ResourceDeleteFailed, ResourceUpdateFailed:
		return Negative
	default:
		return Neutral
	}
}

// Sentiment indicates whether a status is positive, negative or neutral for
// the entity it describes. Terminal success statuses are positive, failures
// and anything rollback-related are negative, everything else is neutral.
type Sentiment int

const (
	Neutral Sentiment = iota
	Positive
	Negative
)

// String implements fmt.Stringer.
func (s Sentiment) String() string {
	switch s {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	default:
		return "neutral"
	}
}
