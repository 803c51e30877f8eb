package actor

import (
	"testing"

	"boruna/internal/bytecode"
	"boruna/internal/capability"
	"boruna/internal/eventlog"
	"boruna/internal/value"
)

// Seed scenario #3: two-actor ping-pong.
func pingPongModule() *bytecode.Module {
	return &bytecode.Module{
		Name:      "pingpong",
		Constants: []value.Value{value.Str("ping")},
		Functions: []bytecode.Function{
			{
				Name:      "root",
				NumLocals: 0,
				Code: []bytecode.Instr{
					{Op: bytecode.OpSpawnActor, A: 1}, // -> ActorId(1)
					{Op: bytecode.OpPushConst, A: 0},  // "ping"
					{Op: bytecode.OpSendMsg},
					{Op: bytecode.OpReceiveMsg},
					{Op: bytecode.OpGetField, A: 1}, // payload field
					{Op: bytecode.OpRet},
				},
			},
			{
				Name:      "echo",
				NumLocals: 2,
				Code: []bytecode.Instr{
					{Op: bytecode.OpReceiveMsg},
					{Op: bytecode.OpStoreLocal, A: 0},
					{Op: bytecode.OpLoadLocal, A: 0},
					{Op: bytecode.OpGetField, A: 0}, // from
					{Op: bytecode.OpStoreLocal, A: 1},
					{Op: bytecode.OpLoadLocal, A: 1},
					{Op: bytecode.OpLoadLocal, A: 0},
					{Op: bytecode.OpGetField, A: 1}, // payload
					{Op: bytecode.OpSendMsg},
					{Op: bytecode.OpLoadLocal, A: 0},
					{Op: bytecode.OpGetField, A: 1},
					{Op: bytecode.OpRet},
				},
			},
		},
		Entry: 0,
	}
}

func TestTwoActorPingPong(t *testing.T) {
	m := pingPongModule()
	sys := NewSystem(m, capability.DenyAll(), capability.MockHandler{}, 10, 100)

	result, err := sys.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kind != value.KindString || result.String != "ping" {
		t.Fatalf("expected String(\"ping\"), got %+v", result)
	}

	if len(sys.Actors) != 2 {
		t.Fatalf("expected 2 actors, got %d", len(sys.Actors))
	}
	if sys.Actors[0].ID != 0 || sys.Actors[1].ID != 1 {
		t.Fatalf("expected actor ids 0 and 1, got %d and %d", sys.Actors[0].ID, sys.Actors[1].ID)
	}

	var spawns, sends, receives, ticks int
	for _, e := range sys.Log.Events {
		switch e.Kind {
		case eventlog.KindActorSpawn:
			spawns++
		case eventlog.KindMessageSend:
			sends++
		case eventlog.KindMessageReceive:
			receives++
		case eventlog.KindSchedulerTick:
			ticks++
		}
	}
	if spawns != 1 {
		t.Errorf("expected 1 ActorSpawn, got %d", spawns)
	}
	if sends != 2 {
		t.Errorf("expected 2 MessageSend, got %d", sends)
	}
	if receives != 2 {
		t.Errorf("expected 2 MessageReceive, got %d", receives)
	}
	if ticks < 2 {
		t.Errorf("expected at least 2 SchedulerTick entries, got %d", ticks)
	}
}

// Seed scenario #6: deadlock detection — a lone actor blocks on ReceiveMsg
// with no one ever able to send it a message.
func deadlockModule() *bytecode.Module {
	return &bytecode.Module{
		Name: "deadlock",
		Functions: []bytecode.Function{
			{Name: "root", Code: []bytecode.Instr{
				{Op: bytecode.OpReceiveMsg},
				{Op: bytecode.OpRet},
			}},
		},
		Entry: 0,
	}
}

func TestDeadlockDetection(t *testing.T) {
	m := deadlockModule()
	sys := NewSystem(m, capability.DenyAll(), capability.MockHandler{}, 10, 100)

	_, err := sys.Run()
	if err == nil {
		t.Fatal("expected a Deadlock error, got nil")
	}
	se, ok := err.(*SchedulerError)
	if !ok || se.Kind != ErrKindDeadlock {
		t.Fatalf("expected Deadlock, got %v", err)
	}
}

func TestMaxRoundsExceeded(t *testing.T) {
	m := &bytecode.Module{
		Name: "loop",
		Functions: []bytecode.Function{
			{Name: "root", Code: []bytecode.Instr{
				{Op: bytecode.OpJmp, A: 0},
			}},
		},
		Entry: 0,
	}
	sys := NewSystem(m, capability.DenyAll(), capability.MockHandler{}, 1, 3)
	_, err := sys.Run()
	se, ok := err.(*SchedulerError)
	if !ok || se.Kind != ErrKindMaxRoundsExceeded {
		t.Fatalf("expected MaxRoundsExceeded, got %v", err)
	}
}

func TestFailureCascadeNotifiesParent(t *testing.T) {
	// root spawns a child that immediately halts with a type error
	// (adding a Bool to an Int), then root waits for the Err(String)
	// notification and returns it.
	m := &bytecode.Module{
		Name:      "cascade",
		Constants: []value.Value{value.Int(1), value.Bool(true)},
		Functions: []bytecode.Function{
			{Name: "root", Code: []bytecode.Instr{
				{Op: bytecode.OpSpawnActor, A: 1},
				{Op: bytecode.OpPop}, // discard the spawned ActorId
				{Op: bytecode.OpReceiveMsg},
				{Op: bytecode.OpGetField, A: 1},
				{Op: bytecode.OpRet},
			}},
			{Name: "failing_child", Code: []bytecode.Instr{
				{Op: bytecode.OpPushConst, A: 0},
				{Op: bytecode.OpPushConst, A: 1},
				{Op: bytecode.OpAdd},
				{Op: bytecode.OpRet},
			}},
		},
		Entry: 0,
	}
	sys := NewSystem(m, capability.DenyAll(), capability.MockHandler{}, 10, 100)
	result, err := sys.Run()
	if err != nil {
		t.Fatalf("unexpected system-level error: %v", err)
	}
	if result.Kind != value.KindErr {
		t.Fatalf("expected Err(String) payload relayed to root, got %+v", result)
	}
}
