package capability

import (
	"errors"
	"sync"

	"boruna/internal/eventlog"
	"boruna/internal/value"
)

// ErrReplayExhausted is returned once a ReplayHandler has delivered every
// recorded CapResult and is asked for one more (SPEC_FULL "Supplemented
// features": a distinguishable error from CapabilityDenied so a test
// harness can tell the two failure modes apart).
var ErrReplayExhausted = errors.New("replay tape exhausted")

// ReplayHandler returns capability results from a recorded sequence in
// order, failing once exhausted (§4.2, §4.4).
type ReplayHandler struct {
	mu      sync.Mutex
	results []value.Value
	next    int
}

// NewReplayHandlerFromLog builds a ReplayHandler from a prior log's
// CapResult events, in order.
func NewReplayHandlerFromLog(log *eventlog.EventLog) *ReplayHandler {
	events := log.CapResults()
	results := make([]value.Value, 0, len(events))
	for _, e := range events {
		if e.Result != nil {
			results = append(results, *e.Result)
		}
	}
	return &ReplayHandler{results: results}
}

func (r *ReplayHandler) Handle(cap Capability, _ []value.Value) (value.Value, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.next >= len(r.results) {
		return value.Value{}, &CallError{Cap: cap, Err: ErrReplayExhausted}
	}
	v := r.results[r.next]
	r.next++
	return v, nil
}

// Remaining reports how many results are left on the tape.
func (r *ReplayHandler) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results) - r.next
}
