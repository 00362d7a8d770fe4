package operation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/unitops/unitops/pkg/gateway"
	"github.com/unitops/unitops/pkg/status"
)

func testConfig() Config {
	return Config{
		PollInterval:    time.Millisecond,
		MaxPollInterval: 4 * time.Millisecond,
		MaxAttempts:     3,
		RetryBudget:     time.Second,
	}
}

func newTestClient(t *testing.T, gw gateway.Gateway, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithConfig(testConfig())}, opts...)
	c, err := NewClient(gw, opts...)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

func collectEvents(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("event stream did not close; got %d events", len(events))
		}
	}
}

func TestApplyCreatesAbsentUnit(t *testing.T) {
	gw := &fakeGateway{
		unitErr: gateway.NewNotFound("unit does not exist", nil),
		opID:    "op-1",
		steps: []pollStep{
			{
				desc: &gateway.DescribeOutput{Status: status.UnitCreateInProgress},
				events: []gateway.RawEvent{
					rawEvent("e1", "Db", 0, status.ResourceCreateInProgress, ""),
				},
			},
			{
				desc: &gateway.DescribeOutput{
					Status:  status.UnitCreateComplete,
					Outputs: map[string]string{"endpoint": "https://example.test"},
				},
				events: []gateway.RawEvent{
					rawEvent("e1", "Db", 0, status.ResourceCreateInProgress, ""),
					rawEvent("e2", "Db", 10, status.ResourceCreateComplete, ""),
				},
			},
		},
	}
	c := newTestClient(t, gw)

	ctx := context.Background()
	op := c.Apply(ctx, ApplyInput{UnitName: "web-frontend", Definition: "resources: {}"})
	stream := op.Events(ctx)

	out, err := op.Wait(ctx)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if out.OperationID != "op-1" {
		t.Errorf("operation id = %q, want op-1", out.OperationID)
	}
	if out.Outputs["endpoint"] != "https://example.test" {
		t.Errorf("outputs = %v", out.Outputs)
	}
	if len(out.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", out.Warnings)
	}
	if op.Phase() != status.PhaseSucceeded {
		t.Errorf("phase = %s, want succeeded", op.Phase())
	}

	events := collectEvents(t, stream)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].SequenceKey != "e1" || events[1].SequenceKey != "e2" {
		t.Errorf("event order = %s, %s", events[0].SequenceKey, events[1].SequenceKey)
	}
	if gw.callCount("begin_create") != 1 {
		t.Errorf("begin_create called %d times", gw.callCount("begin_create"))
	}
}

func TestApplyUnchangedUnitIsNoOp(t *testing.T) {
	gw := &fakeGateway{
		unit: &gateway.UnitDescription{
			UnitID:  "unit-1",
			Status:  status.UnitCreateComplete,
			Outputs: map[string]string{"endpoint": "https://example.test"},
		},
	}
	c := newTestClient(t, gw)

	ctx := context.Background()
	op := c.Apply(ctx, ApplyInput{UnitName: "web-frontend", Definition: "resources: {}"})
	out, err := op.Wait(ctx)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if out.OperationID != "" {
		t.Errorf("no-op carried operation id %q", out.OperationID)
	}
	if out.Outputs["endpoint"] != "https://example.test" {
		t.Errorf("outputs = %v, want current unit outputs", out.Outputs)
	}
	if op.Phase() != status.PhaseSucceeded {
		t.Errorf("phase = %s, want succeeded", op.Phase())
	}

	// The whole point of the no-op path: nothing was submitted or polled.
	for _, method := range []string{"begin_create", "describe", "list_events"} {
		if n := gw.callCount(method); n != 0 {
			t.Errorf("%s called %d times on a no-op", method, n)
		}
	}

	events := collectEvents(t, op.Events(ctx))
	if len(events) != 0 {
		t.Errorf("no-op produced %d events", len(events))
	}
}

func TestApplyRemoteNoChangesSettlesSuccessfully(t *testing.T) {
	gw := &fakeGateway{
		unit: &gateway.UnitDescription{
			UnitID:  "unit-1",
			Status:  status.UnitCreateComplete,
			Outputs: map[string]string{"endpoint": "https://example.test"},
		},
		changes: []gateway.ResourceChange{
			{Action: gateway.ChangeModify, LogicalID: "Db"},
		},
		beginErr: gateway.ErrNoChanges,
	}
	c := newTestClient(t, gw)

	ctx := context.Background()
	op := c.Apply(ctx, ApplyInput{UnitName: "web-frontend", Definition: "resources: {}"})
	out, err := op.Wait(ctx)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if out.Outputs["endpoint"] != "https://example.test" {
		t.Errorf("outputs = %v, want current unit outputs", out.Outputs)
	}
	if gw.callCount("begin_create") != 1 {
		t.Errorf("begin_create called %d times, want exactly 1", gw.callCount("begin_create"))
	}
	if op.Phase() != status.PhaseSucceeded {
		t.Errorf("phase = %s, want succeeded", op.Phase())
	}
}

func TestApplyFailureDeliversTypedError(t *testing.T) {
	gw := &fakeGateway{
		unitErr: gateway.NewNotFound("unit does not exist", nil),
		opID:    "op-2",
		steps: []pollStep{
			{
				desc: &gateway.DescribeOutput{Status: status.UnitRollbackInProgress},
				events: []gateway.RawEvent{
					rawEvent("e1", "Db", 0, status.ResourceCreateFailed, "Db limit exceeded"),
				},
			},
			{
				desc: &gateway.DescribeOutput{
					Status: status.UnitRollbackComplete,
					Reason: "The following resource(s) failed to create: [Db].",
				},
				events: []gateway.RawEvent{
					rawEvent("e1", "Db", 0, status.ResourceCreateFailed, "Db limit exceeded"),
					rawEvent("e2", "Web", 10, status.ResourceDeleteComplete, ""),
				},
			},
		},
	}
	c := newTestClient(t, gw)

	ctx := context.Background()
	op := c.Apply(ctx, ApplyInput{UnitName: "web-frontend", Definition: "resources: {}"})
	stream := op.Events(ctx)

	_, err := op.Wait(ctx)
	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("error = %v, want *Failure", err)
	}
	if failure.Status != status.UnitRollbackComplete {
		t.Errorf("status = %s, want ROLLBACK_COMPLETE", failure.Status)
	}
	// The event-level reason is more descriptive than the aggregate one and
	// wins.
	if failure.Reason != "Db limit exceeded" {
		t.Errorf("reason = %q, want event reason", failure.Reason)
	}
	if len(failure.ResourceFailures) != 1 || failure.ResourceFailures[0].UnitName != "Db" {
		t.Errorf("resource failures = %+v", failure.ResourceFailures)
	}
	if op.Phase() != status.PhaseFailed {
		t.Errorf("phase = %s, want failed", op.Phase())
	}

	// The stream still closes cleanly after a failure.
	events := collectEvents(t, stream)
	if len(events) != 2 {
		t.Errorf("got %d events, want 2", len(events))
	}
}

func TestApplyFailureFallsBackToDescribedReason(t *testing.T) {
	gw := &fakeGateway{
		unitErr: gateway.NewNotFound("unit does not exist", nil),
		opID:    "op-3",
		steps: []pollStep{
			{
				desc: &gateway.DescribeOutput{
					Status: status.UnitRollbackComplete,
					Reason: "Resource creation cancelled",
				},
			},
		},
	}
	c := newTestClient(t, gw)

	_, err := c.Apply(context.Background(), ApplyInput{UnitName: "web", Definition: "x"}).
		Wait(context.Background())
	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("error = %v, want *Failure", err)
	}
	if failure.Reason != "Resource creation cancelled" {
		t.Errorf("reason = %q, want described reason", failure.Reason)
	}
	if d := failure.Reason.Detail(); d == nil || d.Kind != status.ReasonCreationCancelled {
		t.Errorf("reason detail = %+v, want creation_cancelled", d)
	}
}

func TestApplySucceedsWithWarnings(t *testing.T) {
	gw := &fakeGateway{
		unitErr: gateway.NewNotFound("unit does not exist", nil),
		opID:    "op-12",
		steps: []pollStep{
			{
				desc: &gateway.DescribeOutput{Status: status.UnitCreateInProgress},
				events: []gateway.RawEvent{
					rawEvent("e1", "Cache", 0, status.ResourceCreateFailed, "provider capacity"),
				},
			},
			{
				desc: &gateway.DescribeOutput{
					Status:  status.UnitCreateComplete,
					Outputs: map[string]string{"endpoint": "https://example.test"},
				},
				events: []gateway.RawEvent{
					rawEvent("e1", "Cache", 0, status.ResourceCreateFailed, "provider capacity"),
					rawEvent("e2", "Db", 10, status.ResourceCreateComplete, ""),
				},
			},
		},
	}
	c := newTestClient(t, gw)

	ctx := context.Background()
	op := c.Apply(ctx, ApplyInput{UnitName: "web-frontend", Definition: "resources: {}"})
	out, err := op.Wait(ctx)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(out.Warnings) != 1 || out.Warnings[0].UnitName != "Cache" {
		t.Errorf("warnings = %+v, want exactly one for Cache", out.Warnings)
	}
	if out.Outputs["endpoint"] != "https://example.test" {
		t.Errorf("outputs = %v", out.Outputs)
	}
	if op.Phase() != status.PhaseSucceededWithWarnings {
		t.Errorf("phase = %s, want succeeded_with_warnings", op.Phase())
	}
}

func TestConflictSurfacesWithoutRetry(t *testing.T) {
	gw := &fakeGateway{
		unitErr: gateway.NewConflict("operation already in progress", nil),
	}
	c := newTestClient(t, gw)

	_, err := c.Apply(context.Background(), ApplyInput{UnitName: "web", Definition: "x"}).
		Wait(context.Background())
	if !gateway.IsConflict(err) {
		t.Fatalf("error = %v, want conflict", err)
	}
	if n := gw.callCount("describe_unit"); n != 1 {
		t.Errorf("describe_unit called %d times, want 1 with no retries", n)
	}
}

func TestDeleteSucceedsWithWarnings(t *testing.T) {
	gw := &fakeGateway{
		unit: &gateway.UnitDescription{UnitID: "unit-1", Status: status.UnitCreateComplete},
		opID: "op-4",
		steps: []pollStep{
			{
				desc: &gateway.DescribeOutput{Status: status.UnitDeleteInProgress},
				events: []gateway.RawEvent{
					rawEvent("e1", "Logs", 0, status.ResourceDeleteFailed, "resource retained"),
				},
			},
			{
				desc: &gateway.DescribeOutput{Status: status.UnitDeleteComplete},
				events: []gateway.RawEvent{
					rawEvent("e1", "Logs", 0, status.ResourceDeleteFailed, "resource retained"),
					rawEvent("e2", "Db", 10, status.ResourceDeleteComplete, ""),
				},
			},
		},
	}
	c := newTestClient(t, gw)

	ctx := context.Background()
	op := c.Delete(ctx, DeleteInput{UnitName: "web-frontend"})
	out, err := op.Wait(ctx)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(out.Warnings) != 1 || out.Warnings[0].UnitName != "Logs" {
		t.Errorf("warnings = %+v, want one for Logs", out.Warnings)
	}
	if op.Phase() != status.PhaseSucceededWithWarnings {
		t.Errorf("phase = %s, want succeeded_with_warnings", op.Phase())
	}
}

func TestDeleteAbsentUnitIsNoOp(t *testing.T) {
	gw := &fakeGateway{unitErr: gateway.NewNotFound("unit does not exist", nil)}
	c := newTestClient(t, gw)

	ctx := context.Background()
	op := c.Delete(ctx, DeleteInput{UnitName: "gone"})
	out, err := op.Wait(ctx)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if out.OperationID != "" {
		t.Errorf("no-op carried operation id %q", out.OperationID)
	}
	if gw.callCount("begin_delete") != 0 {
		t.Errorf("begin_delete called %d times on absent unit", gw.callCount("begin_delete"))
	}
	if op.Phase() != status.PhaseSucceeded {
		t.Errorf("phase = %s, want succeeded", op.Phase())
	}
}

func TestDeleteAlreadyDeletedUnitIsNoOp(t *testing.T) {
	gw := &fakeGateway{
		unit: &gateway.UnitDescription{UnitID: "unit-1", Status: status.UnitDeleteComplete},
	}
	c := newTestClient(t, gw)

	_, err := c.Delete(context.Background(), DeleteInput{UnitName: "web"}).
		Wait(context.Background())
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if gw.callCount("begin_delete") != 0 {
		t.Errorf("begin_delete called %d times", gw.callCount("begin_delete"))
	}
}

func TestEventsOrderedAndDeduplicatedAcrossPolls(t *testing.T) {
	gw := &fakeGateway{
		unitErr:  gateway.NewNotFound("unit does not exist", nil),
		opID:     "op-5",
		pageSize: 2,
		steps: []pollStep{
			{
				desc: &gateway.DescribeOutput{Status: status.UnitCreateInProgress},
				events: []gateway.RawEvent{
					rawEvent("e2", "Db", 20, status.ResourceCreateComplete, ""),
					rawEvent("e1", "Db", 10, status.ResourceCreateInProgress, ""),
				},
			},
			{
				desc: &gateway.DescribeOutput{Status: status.UnitCreateComplete},
				// Full history again, scrambled across page boundaries.
				events: []gateway.RawEvent{
					rawEvent("e4", "Web", 40, status.ResourceCreateComplete, ""),
					rawEvent("e1", "Db", 10, status.ResourceCreateInProgress, ""),
					rawEvent("e3", "Web", 30, status.ResourceCreateInProgress, ""),
					rawEvent("e2", "Db", 20, status.ResourceCreateComplete, ""),
				},
			},
		},
	}
	c := newTestClient(t, gw)

	ctx := context.Background()
	op := c.Apply(ctx, ApplyInput{UnitName: "web-frontend", Definition: "resources: {}"})
	events := collectEvents(t, op.Events(ctx))

	want := []string{"e1", "e2", "e3", "e4"}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, key := range want {
		if events[i].SequenceKey != key {
			t.Errorf("event[%d] = %s, want %s", i, events[i].SequenceKey, key)
		}
	}
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.Before(events[i-1].Timestamp) {
			t.Errorf("event %s delivered before %s despite later timestamp",
				events[i].SequenceKey, events[i-1].SequenceKey)
		}
	}
}

func TestLateSubscriberReplaysFullHistory(t *testing.T) {
	gw := &fakeGateway{
		unitErr: gateway.NewNotFound("unit does not exist", nil),
		opID:    "op-6",
		steps: []pollStep{
			{
				desc: &gateway.DescribeOutput{Status: status.UnitCreateComplete},
				events: []gateway.RawEvent{
					rawEvent("e1", "Db", 0, status.ResourceCreateInProgress, ""),
					rawEvent("e2", "Db", 10, status.ResourceCreateComplete, ""),
				},
			},
		},
	}
	c := newTestClient(t, gw)

	ctx := context.Background()
	op := c.Apply(ctx, ApplyInput{UnitName: "web-frontend", Definition: "resources: {}"})
	if _, err := op.Wait(ctx); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	// Subscribing after settlement still replays everything.
	events := collectEvents(t, op.Events(ctx))
	if len(events) != 2 {
		t.Fatalf("late subscriber got %d events, want 2", len(events))
	}
	if events[0].SequenceKey != "e1" || events[1].SequenceKey != "e2" {
		t.Errorf("event order = %s, %s", events[0].SequenceKey, events[1].SequenceKey)
	}
}

func TestConsumersShareOnePollLoop(t *testing.T) {
	gw := &fakeGateway{
		unitErr: gateway.NewNotFound("unit does not exist", nil),
		opID:    "op-7",
		steps: []pollStep{
			{
				desc: &gateway.DescribeOutput{Status: status.UnitCreateInProgress},
				events: []gateway.RawEvent{
					rawEvent("e1", "Db", 0, status.ResourceCreateInProgress, ""),
				},
			},
			{
				desc: &gateway.DescribeOutput{Status: status.UnitCreateComplete},
				events: []gateway.RawEvent{
					rawEvent("e1", "Db", 0, status.ResourceCreateInProgress, ""),
					rawEvent("e2", "Db", 10, status.ResourceCreateComplete, ""),
				},
			},
		},
	}
	c := newTestClient(t, gw)

	ctx := context.Background()
	op := c.Apply(ctx, ApplyInput{UnitName: "web-frontend", Definition: "resources: {}"})

	streams := []<-chan Event{op.Events(ctx), op.Events(ctx)}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = op.Wait(ctx)
		}()
	}
	for _, stream := range streams {
		wg.Add(1)
		go func(ch <-chan Event) {
			defer wg.Done()
			n := 0
			for range ch {
				n++
			}
			if n != 2 {
				t.Errorf("subscriber got %d events, want 2", n)
			}
		}(stream)
	}
	wg.Wait()

	// Two poll rounds regardless of how many consumers attached.
	if n := gw.callCount("describe"); n != 2 {
		t.Errorf("describe called %d times, want 2", n)
	}
	if n := gw.callCount("begin_create"); n != 1 {
		t.Errorf("begin_create called %d times, want 1", n)
	}
}

func TestTransientDescribeErrorsAreRetried(t *testing.T) {
	gw := &fakeGateway{
		unitErr: gateway.NewNotFound("unit does not exist", nil),
		opID:    "op-8",
		steps: []pollStep{
			{err: gateway.NewTransport("connection reset", nil)},
			{err: gateway.NewThrottled("rate exceeded", nil)},
			{desc: &gateway.DescribeOutput{Status: status.UnitCreateComplete}},
		},
	}
	c := newTestClient(t, gw)

	_, err := c.Apply(context.Background(), ApplyInput{UnitName: "web", Definition: "x"}).
		Wait(context.Background())
	if err != nil {
		t.Fatalf("apply failed despite retries: %v", err)
	}
	if n := gw.callCount("describe"); n != 3 {
		t.Errorf("describe called %d times, want 3", n)
	}
}

func TestExhaustedRetryBudgetIsFatal(t *testing.T) {
	gw := &fakeGateway{
		unitErr:  gateway.NewNotFound("unit does not exist", nil),
		beginErr: gateway.NewTransport("connection reset", nil),
	}
	c := newTestClient(t, gw)

	_, err := c.Apply(context.Background(), ApplyInput{UnitName: "web", Definition: "x"}).
		Wait(context.Background())
	var fatal *FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("error = %v, want *FatalError", err)
	}
	if fatal.Stage != "submit" {
		t.Errorf("stage = %q, want submit", fatal.Stage)
	}
	if !gateway.IsRetryable(errors.Unwrap(fatal)) {
		t.Errorf("underlying error = %v, want the transport error", errors.Unwrap(fatal))
	}
	if n := gw.callCount("begin_create"); n != testConfig().MaxAttempts {
		t.Errorf("begin_create called %d times, want %d", n, testConfig().MaxAttempts)
	}
}

func TestValidationFailsBeforeAnyRemoteCall(t *testing.T) {
	gw := &fakeGateway{}
	c := newTestClient(t, gw)

	_, err := c.Apply(context.Background(), ApplyInput{UnitName: "_bad_", Definition: "x"}).
		Wait(context.Background())
	if !gateway.IsValidation(err) {
		t.Fatalf("error = %v, want validation", err)
	}
	if n := gw.callCount("describe_unit"); n != 0 {
		t.Errorf("gateway touched %d times for invalid input", n)
	}
}

func TestCancellationIsLocalOnly(t *testing.T) {
	gw := &fakeGateway{
		unitErr: gateway.NewNotFound("unit does not exist", nil),
		opID:    "op-9",
		steps: []pollStep{
			{desc: &gateway.DescribeOutput{Status: status.UnitCreateInProgress}},
		},
	}
	c := newTestClient(t, gw)

	ctx, cancel := context.WithCancel(context.Background())
	op := c.Apply(ctx, ApplyInput{UnitName: "web", Definition: "x"})

	// Let the operation submit and poll at least once before cancelling.
	deadline := time.After(5 * time.Second)
	for gw.callCount("describe") == 0 {
		select {
		case <-deadline:
			t.Fatal("operation never polled")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	_, err := op.Wait(context.Background())
	var fatal *FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("error = %v, want *FatalError", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error chain = %v, want context.Canceled", err)
	}
	// The remote operation was never cancelled: the gateway has no cancel
	// call to count, which is the point.
	if op.Phase() != status.PhaseFailed {
		t.Errorf("phase = %s, want failed", op.Phase())
	}
}

func TestWaitHonorsCallerContext(t *testing.T) {
	gw := &fakeGateway{
		unitErr: gateway.NewNotFound("unit does not exist", nil),
		opID:    "op-10",
		steps: []pollStep{
			{desc: &gateway.DescribeOutput{Status: status.UnitCreateInProgress}},
		},
	}
	c := newTestClient(t, gw)

	opCtx, opCancel := context.WithCancel(context.Background())
	defer opCancel()
	op := c.Apply(opCtx, ApplyInput{UnitName: "web", Definition: "x"})

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer waitCancel()
	_, err := op.Wait(waitCtx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
}

func TestOutcomeIsRecorded(t *testing.T) {
	gw := &fakeGateway{
		unitErr: gateway.NewNotFound("unit does not exist", nil),
		opID:    "op-11",
		steps: []pollStep{
			{
				desc: &gateway.DescribeOutput{
					Status:  status.UnitCreateComplete,
					Outputs: map[string]string{"endpoint": "https://example.test"},
				},
			},
		},
	}
	recorder := &captureRecorder{}
	c := newTestClient(t, gw, WithRecorder(recorder))

	ctx := context.Background()
	if _, err := c.Apply(ctx, ApplyInput{UnitName: "web", Definition: "x"}).Wait(ctx); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	outcome := recorder.waitForOutcome(t)
	if outcome.UnitName != "web" {
		t.Errorf("unit = %q, want web", outcome.UnitName)
	}
	if outcome.Action != status.ActionCreate {
		t.Errorf("action = %s, want create", outcome.Action)
	}
	if outcome.Phase != status.PhaseSucceeded {
		t.Errorf("phase = %s, want succeeded", outcome.Phase)
	}
	if outcome.SettledAt.Before(outcome.StartedAt) {
		t.Error("settled before started")
	}
}

// captureRecorder grabs the first recorded outcome.
type captureRecorder struct {
	mu      sync.Mutex
	outcome *Outcome
}

func (r *captureRecorder) RecordOutcome(_ context.Context, outcome *Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcome == nil {
		r.outcome = outcome
	}
	return nil
}

func (r *captureRecorder) waitForOutcome(t *testing.T) *Outcome {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		r.mu.Lock()
		outcome := r.outcome
		r.mu.Unlock()
		if outcome != nil {
			return outcome
		}
		select {
		case <-deadline:
			t.Fatal("outcome never recorded")
		case <-time.After(time.Millisecond):
		}
	}
}
