package operation

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/unitops/unitops/pkg/gateway"
	"github.com/unitops/unitops/pkg/status"
	"github.com/unitops/unitops/pkg/telemetry"
)

// action is the small capability set that distinguishes apply from delete.
// The driver is otherwise identical for both: plan, submit, poll, settle.
type action interface {
	// kind names the operation for logs, metrics and traces.
	kind() string

	// plan inspects current remote state and decides what to do. It may
	// conclude the whole operation is a no-op, in which case the driver
	// settles immediately without submitting anything.
	plan(ctx context.Context) (*planOutcome, error)

	// submit starts the remote operation for the planned action.
	submit(ctx context.Context) (gateway.OperationID, error)
}

// planOutcome is what planning concluded.
type planOutcome struct {
	// noop short-circuits the operation straight to success.
	noop bool

	// action is the operation to submit and classify against.
	action status.Action

	// outputs carries the unit's current outputs for the no-op path.
	outputs map[string]string
}

// driver owns one operation end to end. It is the record's single writer and
// the only goroutine that talks to the gateway, no matter how many event
// streams or result awaiters are attached.
type driver struct {
	gw       gateway.Gateway
	cfg      Config
	log      zerolog.Logger
	met      *telemetry.Metrics
	tracer   *telemetry.Tracer
	recorder Recorder

	act      action
	unitName string

	rec *record
	agg *aggregator

	// action is the planned action, fixed after planning; the classifier
	// needs it to know which raw status counts as success.
	action  status.Action
	started time.Time
}

// run drives the operation to a terminal outcome. It is the body of the
// operation's background goroutine.
func (d *driver) run(ctx context.Context) {
	d.started = time.Now()
	d.met.OperationStarted(d.act.kind())
	ctx, endSpan := d.tracer.StartOperation(ctx, d.act.kind(), d.unitName)
	defer func() {
		endSpan(string(d.rec.currentPhase()))
	}()

	var po *planOutcome
	err := d.callWithRetry(ctx, "plan", func(ctx context.Context) error {
		var planErr error
		po, planErr = d.act.plan(ctx)
		return planErr
	})
	if err != nil {
		d.fail(err)
		return
	}

	d.action = po.action

	if po.noop {
		d.log.Info().Str("unit", d.unitName).Msg("nothing to do, settling without submission")
		d.settleSuccess(status.PhaseSucceeded, po.outputs, nil)
		return
	}

	var id gateway.OperationID
	err = d.callWithRetry(ctx, "submit", func(ctx context.Context) error {
		var submitErr error
		id, submitErr = d.act.submit(ctx)
		return submitErr
	})
	if err != nil {
		// The remote system may itself conclude there is nothing to change,
		// for example when a concurrent apply already converged the unit.
		if errors.Is(err, gateway.ErrNoChanges) {
			d.settleSuccess(status.PhaseSucceeded, d.currentOutputs(ctx), nil)
			return
		}
		d.fail(err)
		return
	}
	d.rec.setID(id)
	d.log.Info().Str("unit", d.unitName).Str("operation_id", string(id)).
		Str("action", string(d.action)).Msg("operation submitted")

	d.poll(ctx)
}

// poll is the driver's self-loop: one poll in flight at a time, suspended on
// the cadence timer in between, until the classifier reports a terminal
// phase.
func (d *driver) poll(ctx context.Context) {
	delay := d.cfg.PollInterval
	for {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			d.fail(&FatalError{Stage: "poll", Err: ctx.Err()})
			return
		}

		id := d.rec.operationID()

		var desc *gateway.DescribeOutput
		err := d.callWithRetry(ctx, "poll", func(ctx context.Context) error {
			var describeErr error
			desc, describeErr = d.gw.Describe(ctx, id)
			d.met.GatewayCall("describe")
			return describeErr
		})
		if err != nil {
			d.fail(err)
			return
		}

		raws, err := d.listAllEvents(ctx, id)
		if err != nil {
			d.fail(err)
			return
		}
		appended := d.rec.ingest(raws)
		for _, ev := range appended {
			d.agg.observe(ev)
		}
		d.met.EventsObserved(len(appended))
		if len(appended) > 0 {
			delay = d.cfg.PollInterval
		} else {
			delay = nextPollDelay(delay, d.cfg)
		}

		if !desc.Status.IsKnown() {
			// Forward-compatible: new remote statuses keep the operation
			// polling rather than wedging it.
			d.log.Warn().Str("unit", d.unitName).Str("status", string(desc.Status)).
				Msg("unrecognized unit status, treating as in progress")
		}

		switch phase := status.Classify(d.action, desc.Status); phase {
		case status.PhaseFailed:
			failure := &Failure{
				Action:           d.action,
				UnitName:         d.unitName,
				OperationID:      id,
				Phase:            status.PhaseFailed,
				Status:           desc.Status,
				Reason:           d.agg.failureReason(status.Reason(desc.Reason)),
				ResourceFailures: d.agg.failures(),
			}
			d.settleFailure(failure)
			return
		case status.PhaseSucceeded:
			d.settleSuccess(d.agg.successPhase(), desc.Outputs, d.agg.failures())
			return
		default:
			d.rec.setPhase(status.PhaseInProgress)
		}
	}
}

// listAllEvents drains the operation's event history across all pages.
func (d *driver) listAllEvents(ctx context.Context, id gateway.OperationID) ([]gateway.RawEvent, error) {
	var all []gateway.RawEvent
	token := ""
	for {
		var page *gateway.EventPage
		err := d.callWithRetry(ctx, "poll", func(ctx context.Context) error {
			var listErr error
			page, listErr = d.gw.ListEvents(ctx, id, token)
			d.met.GatewayCall("list_events")
			return listErr
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page.Events...)
		if page.NextToken == "" {
			return all, nil
		}
		token = page.NextToken
	}
}

// currentOutputs fetches the unit's outputs for short-circuit success paths.
// Best effort: a unit that cannot be described settles with nil outputs.
func (d *driver) currentOutputs(ctx context.Context) map[string]string {
	var desc *gateway.UnitDescription
	err := d.callWithRetry(ctx, "plan", func(ctx context.Context) error {
		var describeErr error
		desc, describeErr = d.gw.DescribeUnit(ctx, d.unitName)
		return describeErr
	})
	if err != nil {
		d.log.Warn().Err(err).Str("unit", d.unitName).Msg("could not describe unit outputs")
		return nil
	}
	return desc.Outputs
}

func (d *driver) settleSuccess(p status.Phase, outputs map[string]string, warnings []ResourceOutcome) {
	d.rec.finishSuccess(p, outputs, warnings)
	d.met.OperationCompleted(d.act.kind(), string(p), time.Since(d.started))
	d.log.Info().Str("unit", d.unitName).Str("phase", string(p)).
		Int("warnings", len(warnings)).Msg("operation settled")
	d.record(p, "", outputs, warnings)
}

func (d *driver) settleFailure(failure *Failure) {
	d.rec.finishErr(status.PhaseFailed, failure)
	d.met.OperationCompleted(d.act.kind(), string(status.PhaseFailed), time.Since(d.started))
	d.log.Warn().Str("unit", d.unitName).Str("status", string(failure.Status)).
		Str("reason", string(failure.Reason)).Msg("operation failed")
	d.record(status.PhaseFailed, failure.Reason, nil, failure.ResourceFailures)
}

// fail settles the record with a local error: validation, conflict, or an
// exhausted retry budget. These never reached a remote terminal state, so
// nothing is recorded.
func (d *driver) fail(err error) {
	d.rec.finishErr(status.PhaseFailed, err)
	d.met.OperationCompleted(d.act.kind(), "fatal", time.Since(d.started))
	d.log.Error().Err(err).Str("unit", d.unitName).Msg("operation failed fatally")
}

// record hands the settled outcome to the recorder, when one is configured.
func (d *driver) record(p status.Phase, reason status.Reason, outputs map[string]string, failures []ResourceOutcome) {
	if d.recorder == nil {
		return
	}
	outcome := &Outcome{
		OperationID:      d.rec.operationID(),
		UnitName:         d.unitName,
		Action:           d.action,
		Phase:            p,
		Reason:           reason,
		Outputs:          outputs,
		ResourceFailures: failures,
		StartedAt:        d.started,
		SettledAt:        time.Now(),
	}
	// The operation has already settled; recording failures must not undo
	// that, so they are logged and dropped.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.recorder.RecordOutcome(ctx, outcome); err != nil {
		d.log.Warn().Err(err).Str("unit", d.unitName).Msg("could not record outcome")
	}
}
