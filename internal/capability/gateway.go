package capability

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"boruna/internal/eventlog"
	"boruna/internal/value"
)

// Sentinel errors a caller can match with errors.Is; CallError carries the
// offending Capability alongside one of these.
var (
	ErrCapabilityDenied         = errors.New("capability denied")
	ErrCapabilityBudgetExceeded = errors.New("capability budget exceeded")
	ErrUnknownCapability        = errors.New("unknown capability")
	ErrHandlerFailed            = errors.New("capability handler failed")
)

// CallError wraps one of the sentinel errors above with the Capability
// that triggered it, matching the VM's CapabilityDenied(cap)/
// CapabilityBudgetExceeded(cap) error shapes (§7).
type CallError struct {
	Cap Capability
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("capability %s: %v", e.Cap.Name, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Handler is the single-method contract every capability backend
// implements: handle(cap, args) → Value | error (§4.2).
type Handler interface {
	Handle(cap Capability, args []value.Value) (value.Value, error)
}

// Gateway centralizes every side-effecting call a VM makes. All outward
// effects go through Call, which enforces policy, tracks budget usage,
// and appends CapCall/CapResult events to the EventLog.
type Gateway struct {
	Policy  Policy
	Handler Handler
	Log     *eventlog.EventLog

	mu    sync.Mutex
	usage map[string]uint64
	log   *slog.Logger
}

// NewGateway builds a Gateway over policy, invoking handler for every
// granted call and logging to eventLog.
func NewGateway(policy Policy, handler Handler, eventLog *eventlog.EventLog) *Gateway {
	return &Gateway{
		Policy:  policy,
		Handler: handler,
		Log:     eventLog,
		usage:   make(map[string]uint64),
		log:     slog.Default().With("component", "capability.Gateway"),
	}
}

// Call enforces policy and budget, logs the call and (on success) the
// result, and invokes the handler (§4.2 contract steps 1-4).
func (g *Gateway) Call(cap Capability, args []value.Value) (value.Value, error) {
	g.mu.Lock()
	rule := g.Policy.RuleFor(cap.Name)

	if !rule.Allow {
		g.mu.Unlock()
		g.log.Debug("capability denied", "cap", cap.Name)
		return value.Value{}, &CallError{Cap: cap, Err: ErrCapabilityDenied}
	}

	next := g.usage[cap.Name] + 1
	if rule.Budget != 0 && next > rule.Budget {
		g.mu.Unlock()
		g.log.Debug("capability budget exceeded", "cap", cap.Name, "budget", rule.Budget)
		return value.Value{}, &CallError{Cap: cap, Err: ErrCapabilityBudgetExceeded}
	}
	g.usage[cap.Name] = next
	g.mu.Unlock()

	g.Log.Append(eventlog.CapCall(cap.Name, args))
	g.log.Debug("capability call", "cap", cap.Name, "n", next)

	result, err := g.Handler.Handle(cap, args)
	if err != nil {
		return value.Value{}, &CallError{Cap: cap, Err: fmt.Errorf("%w: %w", ErrHandlerFailed, err)}
	}

	g.Log.Append(eventlog.CapResult(cap.Name, result))
	return result, nil
}

// UsageOf reports how many successful calls a capability has made so far.
func (g *Gateway) UsageOf(capName string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.usage[capName]
}
