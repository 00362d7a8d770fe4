package operation

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/unitops/unitops/pkg/gateway"
	"github.com/unitops/unitops/pkg/plan"
	"github.com/unitops/unitops/pkg/status"
	"github.com/unitops/unitops/pkg/telemetry"
)

// Client starts operations against one explicit gateway handle. There is no
// process-wide client state: construct one Client per gateway and pass it
// around.
type Client struct {
	gw       gateway.Gateway
	cfg      Config
	log      zerolog.Logger
	met      *telemetry.Metrics
	tracer   *telemetry.Tracer
	recorder Recorder
	builder  *plan.Builder
}

// Option configures a Client.
type Option func(*Client)

// WithConfig overrides the poll and retry configuration.
func WithConfig(cfg Config) Option {
	return func(c *Client) { c.cfg = cfg }
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithMetrics attaches prometheus instrumentation.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Client) { c.met = m }
}

// WithTracer attaches a tracer that opens one span per operation.
func WithTracer(t *telemetry.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithRecorder attaches a recorder that persists settled outcomes.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// NewClient creates a client for the given gateway.
func NewClient(gw gateway.Gateway, opts ...Option) (*Client, error) {
	c := &Client{
		gw:  gw,
		cfg: DefaultConfig(),
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}
	c.builder = plan.NewBuilder(gw, c.log)
	return c, nil
}

// ApplyInput describes a create-or-update of one deployable unit.
type ApplyInput struct {
	// UnitName names the unit. Alphanumeric plus hyphens, starting with a
	// letter, at most 128 characters.
	UnitName string

	// Definition is the desired definition body.
	Definition string

	// Parameters are input parameter overrides for the definition.
	Parameters []gateway.Parameter

	// Tags are associated with the unit and its resources.
	Tags []gateway.Tag

	// ClientToken makes retried submissions idempotent on the remote side.
	// Generated when empty.
	ClientToken string
}

func (in ApplyInput) submission() gateway.Submission {
	token := in.ClientToken
	if token == "" {
		token = uuid.NewString()
	}
	return gateway.Submission{
		UnitName:    in.UnitName,
		Definition:  in.Definition,
		Parameters:  in.Parameters,
		Tags:        in.Tags,
		ClientToken: token,
	}
}

// DeleteInput describes a teardown of one deployable unit.
type DeleteInput struct {
	// UnitName names the unit to tear down.
	UnitName string

	// ClientToken makes retried submissions idempotent on the remote side.
	// Generated when empty.
	ClientToken string
}

// Apply starts an asynchronous create-or-update and returns its handle. The
// context governs local polling for the whole operation; cancelling it stops
// observation but never the remote operation.
func (c *Client) Apply(ctx context.Context, in ApplyInput) *ApplyOperation {
	act := &applyAction{gw: c.gw, builder: c.builder, sub: in.submission()}
	h := c.start(ctx, in.UnitName, act)
	return &ApplyOperation{handle: h}
}

// Delete starts an asynchronous teardown and returns its handle. Deleting a
// unit that does not exist settles as an immediate success.
func (c *Client) Delete(ctx context.Context, in DeleteInput) *DeleteOperation {
	token := in.ClientToken
	if token == "" {
		token = uuid.NewString()
	}
	act := &deleteAction{gw: c.gw, unitName: in.UnitName, token: token}
	h := c.start(ctx, in.UnitName, act)
	return &DeleteOperation{handle: h}
}

func (c *Client) start(ctx context.Context, unitName string, act action) *handle {
	d := &driver{
		gw:       c.gw,
		cfg:      c.cfg,
		log:      c.log.With().Str("component", "operation").Str("kind", act.kind()).Logger(),
		met:      c.met,
		tracer:   c.tracer,
		recorder: c.recorder,
		act:      act,
		unitName: unitName,
		rec:      newRecord(),
		agg:      newAggregator(),
	}
	go d.run(ctx)
	return &handle{rec: d.rec, unitName: unitName}
}

// handle is the shared read side of one operation.
type handle struct {
	rec      *record
	unitName string
}

// Events attaches a new, independent subscriber to the operation's event
// stream. The channel delivers every event from the beginning of the
// operation in (timestamp, sequence key) order, with no duplicates, and is
// closed once the operation settles. The stream is finite and cannot be
// restarted; call Events again for a fresh replay.
func (h *handle) Events(ctx context.Context) <-chan Event {
	sub := h.rec.subscribe()
	ch := make(chan Event)
	go func() {
		defer close(ch)
		for {
			ev, ok := sub.next(ctx)
			if !ok {
				return
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// Phase returns the operation's current phase. Phases only move forward.
func (h *handle) Phase() status.Phase {
	return h.rec.currentPhase()
}

// OperationID returns the remote operation's identifier. Empty until the
// submission is acknowledged, and for no-op operations forever.
func (h *handle) OperationID() gateway.OperationID {
	return h.rec.operationID()
}

// Done is closed once the operation settles.
func (h *handle) Done() <-chan struct{} {
	return h.rec.done
}

// ApplyOperation is the handle for an in-flight apply.
type ApplyOperation struct {
	*handle
}

// Wait blocks until the apply settles and returns its typed result. A remote
// failure is returned as a *Failure; local errors as *FatalError or
// classified gateway errors. Wait may be called any number of times.
func (op *ApplyOperation) Wait(ctx context.Context) (*ApplyOutput, error) {
	select {
	case <-op.rec.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	outputs, warnings, err := op.rec.result()
	if err != nil {
		return nil, err
	}
	return &ApplyOutput{
		OperationID: op.rec.operationID(),
		UnitName:    op.unitName,
		Outputs:     outputs,
		Warnings:    warnings,
	}, nil
}

// DeleteOperation is the handle for an in-flight delete.
type DeleteOperation struct {
	*handle
}

// Wait blocks until the delete settles and returns its typed result.
func (op *DeleteOperation) Wait(ctx context.Context) (*DeleteOutput, error) {
	select {
	case <-op.rec.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	_, warnings, err := op.rec.result()
	if err != nil {
		return nil, err
	}
	return &DeleteOutput{
		OperationID: op.rec.operationID(),
		UnitName:    op.unitName,
		Warnings:    warnings,
	}, nil
}
