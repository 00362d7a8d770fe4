// Package plan decides what an apply should do before anything is submitted:
// create the unit, update it, or nothing at all.
//
// The no-op decision is what makes apply idempotent. Re-applying an unchanged
// definition produces a plan with NoOp set and the unit's current outputs
// attached, and the driver completes the operation without a single execute
// call against the remote system.
package plan

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/unitops/unitops/pkg/gateway"
	"github.com/unitops/unitops/pkg/status"
)

// Decision is the outcome of planning an apply.
type Decision struct {
	// Action is the operation the driver should submit. ActionCreate when the
	// unit does not exist, ActionUpdate when it does. Meaningless when NoOp.
	Action status.Action

	// NoOp is set when the deployed unit already matches the desired
	// definition. The driver short-circuits straight to success.
	NoOp bool

	// UnitID is the remote identifier of the deployed unit, when it exists.
	UnitID string

	// Changes are the resource-level changes the submission will make.
	// Empty for creations of units whose gateway does not report a
	// creation diff, and always empty for no-ops.
	Changes []gateway.ResourceChange

	// CurrentOutputs carries the unit's existing outputs for the no-op path,
	// so the result can be built without further remote calls.
	CurrentOutputs map[string]string
}

// Builder plans apply operations against an explicit gateway handle.
type Builder struct {
	gw       gateway.Gateway
	validate *validator.Validate
	log      zerolog.Logger
}

// applyInput mirrors the validated parts of a submission.
type applyInput struct {
	UnitName   string `validate:"required,max=128,unitname"`
	Definition string `validate:"required"`
}

// NewBuilder creates a plan builder using the given gateway.
func NewBuilder(gw gateway.Gateway, log zerolog.Logger) *Builder {
	v := validator.New()
	// Unit names follow the remote system's rules: alphanumeric plus hyphens,
	// starting with a letter.
	_ = v.RegisterValidation("unitname", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		for i, r := range name {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			case i > 0 && (r >= '0' && r <= '9' || r == '-'):
			default:
				return false
			}
		}
		return name != ""
	})
	return &Builder{gw: gw, validate: v, log: log.With().Str("component", "plan").Logger()}
}

// Validate checks the submission locally. It never touches the gateway, so
// malformed input fails before any remote call.
func (b *Builder) Validate(sub gateway.Submission) error {
	in := applyInput{UnitName: sub.UnitName, Definition: sub.Definition}
	if err := b.validate.Struct(in); err != nil {
		return gateway.NewValidation(
			fmt.Sprintf("invalid apply input for unit %q", sub.UnitName), err)
	}
	return nil
}

// Plan decides the action for the submission. It performs a single round of
// remote calls; transient failures are returned to the caller for retry.
func (b *Builder) Plan(ctx context.Context, sub gateway.Submission) (*Decision, error) {
	if err := b.Validate(sub); err != nil {
		return nil, err
	}

	desc, err := b.gw.DescribeUnit(ctx, sub.UnitName)
	if err != nil {
		if gateway.IsNotFound(err) {
			b.log.Debug().Str("unit", sub.UnitName).Msg("unit absent, planning create")
			return &Decision{Action: status.ActionCreate}, nil
		}
		return nil, err
	}

	changes, err := b.gw.Diff(ctx, sub)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		b.log.Debug().Str("unit", sub.UnitName).Msg("no drift, planning no-op")
		return &Decision{
			NoOp:           true,
			UnitID:         desc.UnitID,
			CurrentOutputs: desc.Outputs,
		}, nil
	}

	b.log.Debug().Str("unit", sub.UnitName).Int("changes", len(changes)).
		Msg("drift detected, planning update")
	return &Decision{
		Action:  status.ActionUpdate,
		UnitID:  desc.UnitID,
		Changes: changes,
	}, nil
}
