package app

import (
	"fmt"

	"boruna/internal/bytecode"
	"boruna/internal/capability"
	"boruna/internal/eventlog"
	"boruna/internal/statemachine"
	"boruna/internal/value"
	"boruna/internal/vm"
)

// CycleRecord is one entry of the runtime's cycle log: the message that
// drove a send() call, the state before/after, the effects it produced,
// and the UI tree view() rendered for the new state (§4.6).
type CycleRecord struct {
	Cycle   int
	Message value.Value
	Before  value.Value
	After   value.Value
	Effects []Effect
	UI      value.Value
}

// Runtime hosts one App: its protocol functions, state machine, resolved
// PolicySet, and shared event log.
type Runtime struct {
	Module    *bytecode.Module
	Funcs     FuncIndex
	SM        *statemachine.StateMachine
	Policies  PolicySet
	Log       *eventlog.EventLog
	Handler   capability.Handler
	MaxCycles int

	Cycles []CycleRecord
}

// NewRuntime validates module against the App protocol, resolves its
// PolicySet (calling policies() under deny-all if the module defines one),
// then calls init() under a gateway scoped to that PolicySet to produce
// the initial state (§4.6: "init... MAY use capabilities").
func NewRuntime(module *bytecode.Module, handler capability.Handler, maxCycles int) (*Runtime, error) {
	funcs, err := ValidateProtocol(module)
	if err != nil {
		return nil, err
	}

	log := eventlog.New()
	r := &Runtime{Module: module, Funcs: funcs, Log: log, Handler: handler, MaxCycles: maxCycles, Policies: DefaultPolicySet()}

	if funcs.Policies >= 0 {
		psVal, perr := r.callPure(funcs.Policies, FuncPolicies, nil)
		if perr != nil {
			return nil, perr
		}
		ps, err := ParsePolicySet(psVal)
		if err != nil {
			return nil, err
		}
		r.Policies = ps
	}

	gw := capability.NewGateway(policyFromSet(r.Policies), handler, log)
	v := vm.New(module, gw)
	if r.Policies.MaxSteps > 0 {
		v.SetStepLimit(r.Policies.MaxSteps)
	}
	res := v.CallWithArgs(funcs.Init, nil)
	if res.Status != vm.StatusCompleted {
		return nil, wrapRuntimeResult(res, FuncInit)
	}

	r.SM = statemachine.New(res.Value)
	return r, nil
}

// policyFromSet turns an App PolicySet's allowed-capability list into a
// capability.Policy that denies everything else.
func policyFromSet(ps PolicySet) capability.Policy {
	rules := make(map[string]capability.Rule, len(ps.Capabilities))
	for _, name := range ps.Capabilities {
		rules[name] = capability.Rule{Allow: true}
	}
	return capability.Policy{Rules: rules, DefaultAllow: false}
}

// callPure invokes a protocol function (policies/update/view) under a
// fresh deny-all gateway: any capability denial it triggers is reported as
// a PurityViolation rather than a plain capability error (§4.6).
func (r *Runtime) callPure(idx int, name string, args []value.Value) (value.Value, *Error) {
	gw := capability.NewGateway(capability.DenyAll(), r.Handler, r.Log)
	v := vm.New(r.Module, gw)
	if r.Policies.MaxSteps > 0 {
		v.SetStepLimit(r.Policies.MaxSteps)
	}
	res := v.CallWithArgs(idx, args)
	if res.Status == vm.StatusCompleted {
		return res.Value, nil
	}
	if res.Err != nil && (res.Err.Kind == vm.ErrCapabilityDenied || res.Err.Kind == vm.ErrCapabilityBudgetExceeded) {
		return value.Value{}, purityViolation(name)
	}
	return value.Value{}, wrapRuntimeResult(res, name)
}

func wrapRuntimeResult(res vm.ExecResult, name string) *Error {
	if res.Err != nil {
		return runtimeErr(fmt.Errorf("%s(): %w", name, res.Err))
	}
	return runtimeErr(fmt.Errorf("%s(): unexpected status %s", name, res.Status))
}

// Send drives the eight-step send() cycle (§4.6): bound-check the cycle
// count, call update() under purity enforcement, validate its result
// shape, check the effect batch against the PolicySet, transition the
// state machine, call view() under purity enforcement, record the cycle,
// and return the new state, effects, and UI tree.
func (r *Runtime) Send(msg value.Value) (value.Value, []Effect, value.Value, error) {
	if r.MaxCycles > 0 && r.SM.Cycle() >= r.MaxCycles {
		return value.Value{}, nil, value.Value{}, &Error{Kind: ErrMaxCyclesExceeded, MaxCycles: r.MaxCycles}
	}

	before := r.SM.State()
	updateResult, err := r.callPure(r.Funcs.Update, FuncUpdate, []value.Value{before, msg})
	if err != nil {
		return value.Value{}, nil, value.Value{}, err
	}

	if updateResult.Kind != value.KindRecord || len(updateResult.Fields) < 2 {
		return value.Value{}, nil, value.Value{}, effectErr("update() must return [state, effects]")
	}
	newState := updateResult.Fields[0]
	effects, perr := ParseEffects(updateResult.Fields[1])
	if perr != nil {
		return value.Value{}, nil, value.Value{}, perr
	}

	if err := r.checkPolicy(effects); err != nil {
		return value.Value{}, nil, value.Value{}, err
	}

	r.SM.Transition(newState)

	uiTree, err := r.callPure(r.Funcs.View, FuncView, []value.Value{newState})
	if err != nil {
		return value.Value{}, nil, value.Value{}, err
	}

	r.Cycles = append(r.Cycles, CycleRecord{
		Cycle: r.SM.Cycle(), Message: msg, Before: before, After: newState, Effects: effects, UI: uiTree,
	})
	return newState, effects, uiTree, nil
}

func (r *Runtime) checkPolicy(effects []Effect) *Error {
	if r.Policies.MaxEffects > 0 && len(effects) > r.Policies.MaxEffects {
		return policyViolation(fmt.Sprintf("effect batch of %d exceeds max_effects %d", len(effects), r.Policies.MaxEffects))
	}
	for _, e := range effects {
		capName, ok := CapabilityNameForEffect(e.Kind)
		if !ok || !r.Policies.Allows(capName) {
			return policyViolation(fmt.Sprintf("effect kind %q is not permitted by policy", e.Kind))
		}
	}
	return nil
}

// SendWithExecutor composes Send with an EffectExecutor, returning the
// callback AppMessages the executor produced for the effect batch.
func (r *Runtime) SendWithExecutor(msg value.Value, executor EffectExecutor) ([]AppMessage, error) {
	_, effects, _, err := r.Send(msg)
	if err != nil {
		return nil, err
	}
	return executor.Execute(effects)
}
