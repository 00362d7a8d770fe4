package operation

import (
	"context"

	"github.com/unitops/unitops/pkg/gateway"
	"github.com/unitops/unitops/pkg/plan"
	"github.com/unitops/unitops/pkg/status"
)

// applyAction instantiates the driver for create-or-update.
type applyAction struct {
	gw      gateway.Gateway
	builder *plan.Builder
	sub     gateway.Submission
}

func (a *applyAction) kind() string { return "apply" }

func (a *applyAction) plan(ctx context.Context) (*planOutcome, error) {
	decision, err := a.builder.Plan(ctx, a.sub)
	if err != nil {
		return nil, err
	}
	if decision.NoOp {
		return &planOutcome{
			noop:    true,
			action:  status.ActionUpdate,
			outputs: decision.CurrentOutputs,
		}, nil
	}
	return &planOutcome{action: decision.Action}, nil
}

func (a *applyAction) submit(ctx context.Context) (gateway.OperationID, error) {
	return a.gw.BeginCreateOrUpdate(ctx, a.sub)
}

// deleteAction instantiates the driver for teardown.
type deleteAction struct {
	gw       gateway.Gateway
	unitName string
	token    string
}

func (a *deleteAction) kind() string { return "delete" }

func (a *deleteAction) plan(ctx context.Context) (*planOutcome, error) {
	desc, err := a.gw.DescribeUnit(ctx, a.unitName)
	if err != nil {
		// Deleting a unit that does not exist is a no-op, not an error.
		if gateway.IsNotFound(err) {
			return &planOutcome{noop: true, action: status.ActionDelete}, nil
		}
		return nil, err
	}
	if desc.Status == status.UnitDeleteComplete {
		return &planOutcome{noop: true, action: status.ActionDelete}, nil
	}
	return &planOutcome{action: status.ActionDelete}, nil
}

func (a *deleteAction) submit(ctx context.Context) (gateway.OperationID, error) {
	return a.gw.BeginDelete(ctx, a.unitName, a.token)
}
