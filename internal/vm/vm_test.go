package vm

import (
	"errors"
	"testing"

	"boruna/internal/bytecode"
	"boruna/internal/capability"
	"boruna/internal/eventlog"
	"boruna/internal/value"
)

func arithModule() *bytecode.Module {
	return &bytecode.Module{
		Name:      "arith",
		Version:   1,
		Constants: []value.Value{value.Int(2), value.Int(3)},
		Functions: []bytecode.Function{
			{
				Name:      "main",
				NumLocals: 0,
				Code: []bytecode.Instr{
					{Op: bytecode.OpPushConst, A: 0},
					{Op: bytecode.OpPushConst, A: 1},
					{Op: bytecode.OpAdd},
					{Op: bytecode.OpRet},
				},
			},
		},
		Entry: 0,
	}
}

// Seed scenario #1: arithmetic + return.
func TestArithmeticAndReturn(t *testing.T) {
	m := arithModule()
	log := eventlog.New()
	gw := capability.NewGateway(capability.DenyAll(), capability.MockHandler{}, log)
	machine := New(m, gw)

	res := machine.Run()
	if res.Status != StatusCompleted {
		t.Fatalf("expected Completed, got %v (err=%v)", res.Status, res.Err)
	}
	if res.Value.Kind != value.KindInt || res.Value.Int != 5 {
		t.Fatalf("expected Int(5), got %+v", res.Value)
	}
	if machine.StepCount() != 4 {
		t.Errorf("expected 4 steps, got %d", machine.StepCount())
	}
	if len(log.Events) != 0 {
		t.Errorf("expected empty event log, got %d events", len(log.Events))
	}
}

func capDenialModule() *bytecode.Module {
	return &bytecode.Module{
		Name:      "cap_denial",
		Version:   1,
		Constants: []value.Value{value.Str("http://example.invalid")},
		Functions: []bytecode.Function{
			{
				Name:         "main",
				NumLocals:    0,
				Capabilities: []string{"net.fetch"},
				Code: []bytecode.Instr{
					{Op: bytecode.OpPushConst, A: 0},
					{Op: bytecode.OpCapCall, A: capability.NetFetch.ID, B: 1},
					{Op: bytecode.OpRet},
				},
			},
		},
		Entry: 0,
	}
}

// Seed scenario #2: capability denial under a deny-all policy.
func TestCapabilityDenial(t *testing.T) {
	m := capDenialModule()
	log := eventlog.New()
	gw := capability.NewGateway(capability.DenyAll(), capability.MockHandler{}, log)
	machine := New(m, gw)

	res := machine.Run()
	if res.Status != StatusError {
		t.Fatalf("expected Error, got %v", res.Status)
	}
	if res.Err.Kind != ErrCapabilityDenied {
		t.Fatalf("expected CapabilityDenied, got %v", res.Err.Kind)
	}
	if res.Err.Cap == nil || res.Err.Cap.Name != "net.fetch" {
		t.Fatalf("expected cap net.fetch in error, got %+v", res.Err.Cap)
	}

	calls := log.CapCalls()
	results := log.CapResults()
	if len(calls) != 1 {
		t.Errorf("expected exactly one CapCall logged, got %d", len(calls))
	}
	if len(results) != 0 {
		t.Errorf("expected no CapResult logged on denial, got %d", len(results))
	}
}

func TestCapabilityAllowedRoundTrip(t *testing.T) {
	m := capDenialModule()
	log := eventlog.New()
	gw := capability.NewGateway(capability.AllowAll(), capability.MockHandler{}, log)
	machine := New(m, gw)

	res := machine.Run()
	if res.Status != StatusCompleted {
		t.Fatalf("expected Completed, got %v (err=%v)", res.Status, res.Err)
	}
	if res.Value.Kind != value.KindString {
		t.Fatalf("expected mock net.fetch to return a String, got %+v", res.Value)
	}
	if len(log.CapCalls()) != 1 || len(log.CapResults()) != 1 {
		t.Fatalf("expected one CapCall and one CapResult, got %d/%d", len(log.CapCalls()), len(log.CapResults()))
	}
}

// A ReplayHandler with an empty tape must surface as CapabilityDenied
// with capability.ErrReplayExhausted still reachable via errors.Is, not
// as an opaque UnknownCapability.
func TestReplayExhaustionSurfacesAsCapabilityDenied(t *testing.T) {
	m := capDenialModule()
	log := eventlog.New()
	replay := capability.NewReplayHandlerFromLog(eventlog.New())
	gw := capability.NewGateway(capability.AllowAll(), replay, log)
	machine := New(m, gw)

	res := machine.Run()
	if res.Status != StatusError {
		t.Fatalf("expected Error, got %v", res.Status)
	}
	if res.Err.Kind != ErrCapabilityDenied {
		t.Fatalf("expected CapabilityDenied, got %v", res.Err.Kind)
	}
	if !errors.Is(res.Err, capability.ErrReplayExhausted) {
		t.Fatalf("expected errors.Is(res.Err, capability.ErrReplayExhausted), chain: %v", res.Err)
	}
}

func TestStackUnderflow(t *testing.T) {
	m := &bytecode.Module{
		Name: "underflow",
		Functions: []bytecode.Function{
			{Name: "main", Code: []bytecode.Instr{{Op: bytecode.OpAdd}}},
		},
		Entry: 0,
	}
	machine := New(m, nil)
	res := machine.Run()
	if res.Status != StatusError || res.Err.Kind != ErrStackUnderflow {
		t.Fatalf("expected StackUnderflow, got %v %v", res.Status, res.Err)
	}
}

func TestDivisionByZero(t *testing.T) {
	m := &bytecode.Module{
		Name:      "divzero",
		Constants: []value.Value{value.Int(1), value.Int(0)},
		Functions: []bytecode.Function{
			{Name: "main", Code: []bytecode.Instr{
				{Op: bytecode.OpPushConst, A: 0},
				{Op: bytecode.OpPushConst, A: 1},
				{Op: bytecode.OpDiv},
				{Op: bytecode.OpRet},
			}},
		},
		Entry: 0,
	}
	machine := New(m, nil)
	res := machine.Run()
	if res.Status != StatusError || res.Err.Kind != ErrDivisionByZero {
		t.Fatalf("expected DivisionByZero, got %v %v", res.Status, res.Err)
	}
}

func TestMatchWildcardAndPayload(t *testing.T) {
	const enumType = 0
	m := &bytecode.Module{
		Name: "match",
		Functions: []bytecode.Function{
			{
				Name: "main",
				Code: []bytecode.Instr{
					{Op: bytecode.OpPushConst, A: 0},
					{Op: bytecode.OpMatch, A: 0},
					// variant 0 branch: payload was pushed, return it directly
					{Op: bytecode.OpRet},
					// wildcard branch (unreachable here; just returns Unit)
					{Op: bytecode.OpPushConst, A: 1},
					{Op: bytecode.OpRet},
				},
				MatchTables: []bytecode.MatchTable{
					{
						{Tag: 0, Target: 2},
						{Tag: bytecode.WildcardTag, Target: 3},
					},
				},
			},
		},
		Constants: []value.Value{
			value.Enum(enumType, 0, func() *value.Value { v := value.Int(42); return &v }()),
			value.Unit(),
		},
		Entry: 0,
	}
	machine := New(m, nil)
	res := machine.Run()
	if res.Status != StatusCompleted {
		t.Fatalf("expected Completed, got %v (%v)", res.Status, res.Err)
	}
	if res.Value.Kind != value.KindInt || res.Value.Int != 42 {
		t.Fatalf("expected payload Int(42), got %+v", res.Value)
	}
}

func TestMatchStringLiteralArm(t *testing.T) {
	strTag := "ping"
	m := &bytecode.Module{
		Name: "match_str",
		Functions: []bytecode.Function{
			{
				Name: "main",
				Code: []bytecode.Instr{
					{Op: bytecode.OpPushConst, A: 0},
					{Op: bytecode.OpMatch, A: 0},
					{Op: bytecode.OpPushConst, A: 1}, // "matched" branch
					{Op: bytecode.OpRet},
					{Op: bytecode.OpPushConst, A: 2}, // wildcard branch
					{Op: bytecode.OpRet},
				},
				MatchTables: []bytecode.MatchTable{
					{
						{Str: &strTag, Target: 2},
						{Tag: bytecode.WildcardTag, Target: 4},
					},
				},
			},
		},
		Constants: []value.Value{
			value.Str("ping"),
			value.Str("matched"),
			value.Str("fallthrough"),
		},
		Entry: 0,
	}
	machine := New(m, nil)
	res := machine.Run()
	if res.Status != StatusCompleted {
		t.Fatalf("expected Completed, got %v (%v)", res.Status, res.Err)
	}
	if res.Value.Kind != value.KindString || res.Value.String != "matched" {
		t.Fatalf("expected String(\"matched\"), got %+v", res.Value)
	}
}

func TestMatchBoolLiteralArms(t *testing.T) {
	m := &bytecode.Module{
		Name: "match_int_bool",
		Functions: []bytecode.Function{
			{
				Name: "main",
				Code: []bytecode.Instr{
					{Op: bytecode.OpPushConst, A: 0}, // Bool(true)
					{Op: bytecode.OpMatch, A: 0},
					{Op: bytecode.OpPushConst, A: 1},
					{Op: bytecode.OpRet},
					{Op: bytecode.OpPushConst, A: 2},
					{Op: bytecode.OpRet},
				},
				MatchTables: []bytecode.MatchTable{
					{
						{Tag: 1, Target: 2}, // Bool(true) encodes as tag 1
						{Tag: 0, Target: 4}, // Bool(false) encodes as tag 0
					},
				},
			},
		},
		Constants: []value.Value{
			value.Bool(true),
			value.Str("true branch"),
			value.Str("false branch"),
		},
		Entry: 0,
	}
	machine := New(m, nil)
	res := machine.Run()
	if res.Status != StatusCompleted {
		t.Fatalf("expected Completed, got %v (%v)", res.Status, res.Err)
	}
	if res.Value.Kind != value.KindString || res.Value.String != "true branch" {
		t.Fatalf("expected String(\"true branch\"), got %+v", res.Value)
	}
}

func TestMatchTypeErrorOnUnsupportedScrutinee(t *testing.T) {
	m := &bytecode.Module{
		Name: "match_bad_kind",
		Functions: []bytecode.Function{
			{
				Name: "main",
				Code: []bytecode.Instr{
					{Op: bytecode.OpPushConst, A: 0}, // Float has no comparable arm kind
					{Op: bytecode.OpMatch, A: 0},
					{Op: bytecode.OpRet},
				},
				MatchTables: []bytecode.MatchTable{
					{
						{Tag: 0, Target: 2},
					},
				},
			},
		},
		Constants: []value.Value{value.Float(1.5)},
		Entry:     0,
	}
	machine := New(m, nil)
	res := machine.Run()
	if res.Status != StatusError || res.Err.Kind != ErrTypeError {
		t.Fatalf("expected TypeError, got %v %v", res.Status, res.Err)
	}
}

func TestSpawnActorRequiresScheduler(t *testing.T) {
	m := &bytecode.Module{
		Name: "spawn",
		Functions: []bytecode.Function{
			{Name: "main", Code: []bytecode.Instr{{Op: bytecode.OpSpawnActor, A: 0}}},
			{Name: "child", Code: []bytecode.Instr{{Op: bytecode.OpHalt}}},
		},
		Entry: 0,
	}
	machine := New(m, nil)
	res := machine.Run()
	if res.Status != StatusError || res.Err.Kind != ErrSchedulerRequired {
		t.Fatalf("expected SchedulerRequired, got %v %v", res.Status, res.Err)
	}
}

func TestReceiveMsgBlocksUnderScheduler(t *testing.T) {
	m := &bytecode.Module{
		Name: "recv",
		Functions: []bytecode.Function{
			{Name: "main", Code: []bytecode.Instr{{Op: bytecode.OpReceiveMsg}, {Op: bytecode.OpRet}}},
		},
		Entry: 0,
	}
	machine := New(m, nil)
	res := machine.ExecuteBounded(10)
	if res.Status != StatusBlocked {
		t.Fatalf("expected Blocked, got %v %v", res.Status, res.Err)
	}

	machine.PushMessage(Message{From: 7, Payload: value.Int(9)})
	res = machine.ExecuteBounded(10)
	if res.Status != StatusCompleted {
		t.Fatalf("expected Completed after message arrives, got %v %v", res.Status, res.Err)
	}
	if res.Value.Kind != value.KindRecord || len(res.Value.Fields) != 2 {
		t.Fatalf("expected 2-field record, got %+v", res.Value)
	}
	if res.Value.Fields[0].ActorID != 7 || res.Value.Fields[1].Int != 9 {
		t.Fatalf("unexpected message record contents: %+v", res.Value)
	}
}

func TestYieldedOnStepBudget(t *testing.T) {
	m := arithModule()
	machine := New(m, nil)
	res := machine.ExecuteBounded(2)
	if res.Status != StatusYielded {
		t.Fatalf("expected Yielded, got %v", res.Status)
	}
	res = machine.ExecuteBounded(10)
	if res.Status != StatusCompleted || res.Value.Int != 5 {
		t.Fatalf("expected completion to resume correctly, got %v %+v", res.Status, res.Value)
	}
}

func TestExecutionLimitExceeded(t *testing.T) {
	m := arithModule()
	machine := New(m, nil)
	machine.SetStepLimit(2)
	res := machine.Run()
	if res.Status != StatusError || res.Err.Kind != ErrExecutionLimitExceeded {
		t.Fatalf("expected ExecutionLimitExceeded, got %v %v", res.Status, res.Err)
	}
}
