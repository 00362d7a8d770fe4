package operation

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/unitops/unitops/pkg/gateway"
	"github.com/unitops/unitops/pkg/status"
)

// pollStep scripts one Describe round: either an error, or an aggregate
// status plus the full event history visible at that point.
type pollStep struct {
	err    error
	desc   *gateway.DescribeOutput
	events []gateway.RawEvent
}

// fakeGateway scripts gateway behavior for driver tests. Describe consumes
// steps in order; the last step repeats. ListEvents pages over the event
// history of the most recent Describe.
type fakeGateway struct {
	mu sync.Mutex

	unit    *gateway.UnitDescription
	unitErr error

	changes []gateway.ResourceChange

	opID      gateway.OperationID
	beginErrs []error // transient, consumed one per call
	beginErr  error   // permanent

	steps    []pollStep
	stepIdx  int
	current  []gateway.RawEvent
	pageSize int

	calls map[string]int
}

func (f *fakeGateway) count(method string) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[method]++
}

func (f *fakeGateway) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeGateway) DescribeUnit(_ context.Context, _ string) (*gateway.UnitDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("describe_unit")
	if f.unitErr != nil {
		return nil, f.unitErr
	}
	return f.unit, nil
}

func (f *fakeGateway) Diff(_ context.Context, _ gateway.Submission) ([]gateway.ResourceChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("diff")
	return f.changes, nil
}

func (f *fakeGateway) BeginCreateOrUpdate(_ context.Context, _ gateway.Submission) (gateway.OperationID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("begin_create")
	if len(f.beginErrs) > 0 {
		err := f.beginErrs[0]
		f.beginErrs = f.beginErrs[1:]
		return "", err
	}
	if f.beginErr != nil {
		return "", f.beginErr
	}
	return f.opID, nil
}

func (f *fakeGateway) BeginDelete(_ context.Context, _, _ string) (gateway.OperationID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("begin_delete")
	if f.beginErr != nil {
		return "", f.beginErr
	}
	return f.opID, nil
}

func (f *fakeGateway) Describe(_ context.Context, _ gateway.OperationID) (*gateway.DescribeOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("describe")
	step := f.steps[f.stepIdx]
	if f.stepIdx < len(f.steps)-1 {
		f.stepIdx++
	}
	if step.err != nil {
		return nil, step.err
	}
	f.current = step.events
	return step.desc, nil
}

func (f *fakeGateway) ListEvents(_ context.Context, _ gateway.OperationID, pageToken string) (*gateway.EventPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("list_events")

	offset := 0
	if pageToken != "" {
		offset, _ = strconv.Atoi(pageToken)
	}
	size := f.pageSize
	if size <= 0 {
		size = len(f.current)
	}

	end := offset + size
	next := ""
	if end >= len(f.current) {
		end = len(f.current)
	} else {
		next = strconv.Itoa(end)
	}
	return &gateway.EventPage{
		Events:    f.current[offset:end],
		NextToken: next,
	}, nil
}

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func rawEvent(key, name string, offsetMS int, st status.ResourceStatus, reason string) gateway.RawEvent {
	return gateway.RawEvent{
		SequenceKey: key,
		UnitName:    name,
		UnitType:    "compute",
		Timestamp:   testEpoch.Add(time.Duration(offsetMS) * time.Millisecond),
		Status:      st,
		Reason:      reason,
	}
}
