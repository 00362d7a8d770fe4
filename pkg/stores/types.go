package stores

import (
	"time"
)

// OutcomeRecord is a persisted operation outcome row.
type OutcomeRecord struct {
	ID          int64     `json:"id"`
	OperationID string    `json:"operation_id"`
	UnitName    string    `json:"unit_name"`
	Action      string    `json:"action"`
	Phase       string    `json:"phase"`
	Reason      string    `json:"reason,omitempty"`
	Outputs     string    `json:"outputs"`           // JSON blob
	Failures    string    `json:"resource_failures"` // JSON blob
	StartedAt   time.Time `json:"started_at"`
	SettledAt   time.Time `json:"settled_at"`
	CreatedAt   time.Time `json:"created_at"`
}
