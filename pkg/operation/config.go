package operation

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config tunes the poll cadence and the transient-error retry budget. The
// exact bounds are not dictated by the remote system, so they are exposed as
// configuration with conservative defaults.
type Config struct {
	// PollInterval is the floor of the poll cadence.
	PollInterval time.Duration `validate:"gt=0"`

	// MaxPollInterval caps the poll cadence. Idle polls back the cadence off
	// toward this ceiling; new events reset it to the floor.
	MaxPollInterval time.Duration `validate:"gtefield=PollInterval"`

	// MaxAttempts bounds consecutive retries of one failing gateway call.
	MaxAttempts int `validate:"gte=1"`

	// RetryBudget bounds the total time spent retrying one failing gateway
	// call before the operation is surfaced as fatal.
	RetryBudget time.Duration `validate:"gt=0"`
}

// DefaultConfig returns the conservative defaults: 1s poll floor, 30s
// ceiling, and a 15 minute transient-error budget.
func DefaultConfig() Config {
	return Config{
		PollInterval:    1 * time.Second,
		MaxPollInterval: 30 * time.Second,
		MaxAttempts:     8,
		RetryBudget:     15 * time.Minute,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid operation config: %w", err)
	}
	return nil
}
