package app

import (
	"testing"

	"boruna/internal/bytecode"
	"boruna/internal/capability"
	"boruna/internal/eventlog"
	"boruna/internal/value"
)

// counterModule builds the seed "framework counter" module (§8 scenario 4):
// State = Record{Int}; update increments field 0 ignoring the message and
// emits no effects; view renders {String("count"), field_0}.
func counterModule() *bytecode.Module {
	return &bytecode.Module{
		Name:    "counter",
		Version: bytecode.CurrentVersion,
		Constants: []value.Value{
			value.Int(0),
			value.Int(1),
			value.Str("count"),
		},
		Functions: []bytecode.Function{
			{
				Name: "init", Arity: 0, NumLocals: 0,
				Code: []bytecode.Instr{
					{Op: bytecode.OpPushConst, A: 0},
					{Op: bytecode.OpMakeRecord, A: 0, B: 1},
					{Op: bytecode.OpRet},
				},
			},
			{
				Name: "update", Arity: 2, NumLocals: 2,
				Code: []bytecode.Instr{
					{Op: bytecode.OpLoadLocal, A: 0},
					{Op: bytecode.OpGetField, A: 0},
					{Op: bytecode.OpPushConst, A: 1},
					{Op: bytecode.OpAdd},
					{Op: bytecode.OpMakeRecord, A: 0, B: 1},
					{Op: bytecode.OpMakeList, A: 0},
					{Op: bytecode.OpMakeRecord, A: 0, B: 2},
					{Op: bytecode.OpRet},
				},
			},
			{
				Name: "view", Arity: 1, NumLocals: 1,
				Code: []bytecode.Instr{
					{Op: bytecode.OpPushConst, A: 2},
					{Op: bytecode.OpLoadLocal, A: 0},
					{Op: bytecode.OpGetField, A: 0},
					{Op: bytecode.OpMakeRecord, A: 0, B: 2},
					{Op: bytecode.OpRet},
				},
			},
		},
		Entry: 0,
	}
}

func TestFrameworkCounter(t *testing.T) {
	m := counterModule()
	r, err := NewRuntime(m, capability.MockHandler{}, 0)
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	if r.SM.State().Kind != value.KindRecord || r.SM.State().Fields[0].Int != 0 {
		t.Fatalf("expected initial state Record{Int(0)}, got %+v", r.SM.State())
	}

	for i := 0; i < 3; i++ {
		newState, effects, ui, err := r.Send(value.Unit())
		if err != nil {
			t.Fatalf("send #%d: %v", i, err)
		}
		if len(effects) != 0 {
			t.Errorf("send #%d: expected no effects, got %+v", i, effects)
		}
		if newState.Fields[0].Int != int64(i+1) {
			t.Errorf("send #%d: expected count %d, got %+v", i, i+1, newState)
		}
		if ui.Kind != value.KindRecord || ui.Fields[0].String != "count" || ui.Fields[1].Int != int64(i+1) {
			t.Errorf("send #%d: unexpected ui tree %+v", i, ui)
		}
	}

	if r.SM.State().Fields[0].Int != 3 {
		t.Fatalf("expected final state Int(3), got %+v", r.SM.State())
	}
	if len(r.Cycles) != 3 {
		t.Fatalf("expected 3 cycle records, got %d", len(r.Cycles))
	}
	for i, c := range r.Cycles {
		if c.Cycle != i+1 {
			t.Errorf("cycle record %d: expected Cycle=%d, got %d", i, i+1, c.Cycle)
		}
	}
}

func TestMaxCyclesExceeded(t *testing.T) {
	m := counterModule()
	r, err := NewRuntime(m, capability.MockHandler{}, 2)
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	if _, _, _, err := r.Send(value.Unit()); err != nil {
		t.Fatalf("send #0: %v", err)
	}
	if _, _, _, err := r.Send(value.Unit()); err != nil {
		t.Fatalf("send #1: %v", err)
	}
	_, _, _, err = r.Send(value.Unit())
	appErr, ok := err.(*Error)
	if !ok || appErr.Kind != ErrMaxCyclesExceeded {
		t.Fatalf("expected MaxCyclesExceeded, got %v", err)
	}
}

func TestUpdatePurityViolation(t *testing.T) {
	m := &bytecode.Module{
		Name: "impure", Version: bytecode.CurrentVersion,
		Constants: []value.Value{value.Unit()},
		Functions: []bytecode.Function{
			{Name: "init", Arity: 0, NumLocals: 0, Code: []bytecode.Instr{
				{Op: bytecode.OpPushConst, A: 0}, {Op: bytecode.OpRet},
			}},
			{Name: "update", Arity: 2, NumLocals: 2, Code: []bytecode.Instr{
				{Op: bytecode.OpCapCall, A: 5, B: 0}, // time.now
				{Op: bytecode.OpRet},
			}},
			{Name: "view", Arity: 1, NumLocals: 1, Code: []bytecode.Instr{
				{Op: bytecode.OpLoadLocal, A: 0}, {Op: bytecode.OpRet},
			}},
		},
		Entry: 0,
	}
	r, err := NewRuntime(m, capability.MockHandler{}, 0)
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	_, _, _, err = r.Send(value.Unit())
	appErr, ok := err.(*Error)
	if !ok || appErr.Kind != ErrPurityViolation || appErr.Name != FuncUpdate {
		t.Fatalf("expected PurityViolation{update}, got %v", err)
	}
}

func TestValidateProtocolRejectsImpureUpdate(t *testing.T) {
	m := &bytecode.Module{
		Name: "bad", Version: bytecode.CurrentVersion,
		Functions: []bytecode.Function{
			{Name: "init", Arity: 0, NumLocals: 0},
			{Name: "update", Arity: 2, NumLocals: 2, Capabilities: []string{"time.now"}},
			{Name: "view", Arity: 1, NumLocals: 1},
		},
		Entry: 0,
	}
	_, err := ValidateProtocol(m)
	appErr, ok := err.(*Error)
	if !ok || appErr.Kind != ErrValidation {
		t.Fatalf("expected Validation error for update declaring capabilities, got %v", err)
	}
}

func TestValidateProtocolWrongArity(t *testing.T) {
	m := &bytecode.Module{
		Name: "bad", Version: bytecode.CurrentVersion,
		Functions: []bytecode.Function{
			{Name: "init", Arity: 0, NumLocals: 0},
			{Name: "update", Arity: 1, NumLocals: 1},
			{Name: "view", Arity: 1, NumLocals: 1},
		},
		Entry: 0,
	}
	_, err := ValidateProtocol(m)
	appErr, ok := err.(*Error)
	if !ok || appErr.Kind != ErrWrongArity || appErr.Name != FuncUpdate {
		t.Fatalf("expected WrongArity{update}, got %v", err)
	}
}

func TestValidateProtocolMissingFunction(t *testing.T) {
	m := &bytecode.Module{
		Name: "bad", Version: bytecode.CurrentVersion,
		Functions: []bytecode.Function{
			{Name: "init", Arity: 0, NumLocals: 0},
			{Name: "view", Arity: 1, NumLocals: 1},
		},
		Entry: 0,
	}
	_, err := ValidateProtocol(m)
	appErr, ok := err.(*Error)
	if !ok || appErr.Kind != ErrMissingFunction || appErr.Name != FuncUpdate {
		t.Fatalf("expected MissingFunction{update}, got %v", err)
	}
}

func TestEffectKindToCapabilityMapping(t *testing.T) {
	cases := map[string]string{
		EffectHTTPRequest: "net.fetch",
		EffectDBQuery:     "db.query",
		EffectFSRead:      "fs.read",
		EffectFSWrite:     "fs.write",
		EffectTimer:       "time.now",
		EffectRandom:      "random",
		EffectSpawnActor:  "actor.spawn",
		EffectEmitUI:      "ui.render",
		EffectLLMCall:     "llm.call",
		EffectSendToActor: "actor.send",
	}
	for kind, want := range cases {
		got, ok := CapabilityNameForEffect(kind)
		if !ok || got != want {
			t.Errorf("CapabilityNameForEffect(%q) = %q, %v; want %q", kind, got, ok, want)
		}
	}
}

func TestMockExecutorCallbacksAndDefaults(t *testing.T) {
	ex := NewMockExecutor(map[string]value.Value{"cb1": value.Int(42)}, value.Str("fallback"))
	effects := []Effect{
		{Kind: EffectHTTPRequest, CallbackTag: "cb1"},
		{Kind: EffectHTTPRequest, CallbackTag: "cb2"},
		{Kind: EffectEmitUI, CallbackTag: "cb3"},
		{Kind: EffectSpawnActor, CallbackTag: "cb4"},
		{Kind: EffectSendToActor, CallbackTag: "cb5"},
	}
	msgs, err := ex.Execute(effects)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages (emit_ui produces none), got %d: %+v", len(msgs), msgs)
	}
	if msgs[0].Tag != "cb1" || msgs[0].Payload.Int != 42 {
		t.Errorf("expected configured callback response, got %+v", msgs[0])
	}
	if msgs[1].Tag != "cb2" || msgs[1].Payload.String != "fallback" {
		t.Errorf("expected default response, got %+v", msgs[1])
	}
	if msgs[2].Tag != "cb4" || msgs[2].Payload.Kind != value.KindActorID {
		t.Errorf("expected spawn_actor to yield an ActorId, got %+v", msgs[2])
	}
	if msgs[3].Tag != "cb5" || msgs[3].Payload.String != "delivered" {
		t.Errorf("expected send_to_actor to yield \"delivered\", got %+v", msgs[3])
	}
}

func TestHostExecutorWrapsGatewayError(t *testing.T) {
	gw := capability.NewGateway(capability.DenyAll(), capability.MockHandler{}, eventlog.New())
	ex := NewHostExecutor(gw)
	msgs, err := ex.Execute([]Effect{{Kind: EffectTimer, CallbackTag: "cb"}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Payload.Kind != value.KindString {
		t.Fatalf("expected a wrapped error payload, got %+v", msgs)
	}
}
