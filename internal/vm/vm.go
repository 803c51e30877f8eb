package vm

import (
	"boruna/internal/bytecode"
	"boruna/internal/capability"
	"boruna/internal/value"
)

// MaxStackDepth bounds both the operand stack and the call-frame stack;
// exceeding it is StackOverflow(cap) (§7).
const MaxStackDepth = 1 << 16

// Message is one entry of an actor's FIFO mailbox.
type Message struct {
	From    uint64
	Payload value.Value
}

// OutgoingMessage is one entry of the VM's outgoing-message queue,
// destined for another actor once drained by the scheduler.
type OutgoingMessage struct {
	Target  uint64
	Payload value.Value
}

// SpawnRequest is one entry of the VM's pending-spawn queue.
type SpawnRequest struct {
	FuncIndex int
}

// Frame is one call-stack entry: the instruction to resume at in the
// caller, the caller's local slots (restored on Ret), and which function
// the caller was in.
type Frame struct {
	ReturnIP      int
	Locals        []value.Value
	CallerFuncIdx int
}

// VM interprets one function in one Module (§4.1).
type VM struct {
	Module  *bytecode.Module
	Gateway *capability.Gateway

	stack  []value.Value
	frames []Frame

	ip          int
	funcIdx     int
	locals      []value.Value
	globalSlots []value.Value

	stepCount int
	stepLimit int // 0 = unbounded

	uiOutput []value.Value
	trace    []bytecode.Instr // optional; nil unless TraceEnabled

	mailbox     []Message
	outgoing    []OutgoingMessage
	pendingSpawns []SpawnRequest

	ownActorID  uint64
	nextSpawnID uint64

	// HasScheduler is set to true by ExecuteBounded (the scheduler's entry
	// point) and to false by Run; SpawnActor/blocked-ReceiveMsg only trap
	// when it's false (§4.1).
	HasScheduler bool

	// TraceEnabled turns on the optional instruction trace buffer.
	TraceEnabled bool
}

// New builds a VM for module, ready to execute the entry function.
func New(module *bytecode.Module, gateway *capability.Gateway) *VM {
	v := &VM{Module: module, Gateway: gateway}
	v.SetEntryFunction(module.Entry)
	return v
}

// SetEntryFunction reinitializes the instruction pointer for a fresh frame
// on function idx — used by the scheduler to dispatch spawned actors to
// the correct entry point (§4.1).
func (v *VM) SetEntryFunction(idx int) {
	v.funcIdx = idx
	v.ip = 0
	v.frames = nil
	v.stack = nil
	if idx >= 0 && idx < len(v.Module.Functions) {
		v.locals = make([]value.Value, v.Module.Functions[idx].NumLocals)
	} else {
		v.locals = nil
	}
}

// CallWithArgs invokes function idx directly as a fresh entry point, with
// args bound to its first len(args) locals — the same binding execCall
// performs for an ordinary Call opcode, exposed here for callers (the app
// runtime) that invoke a function with no enclosing caller frame.
func (v *VM) CallWithArgs(idx int, args []value.Value) ExecResult {
	v.SetEntryFunction(idx)
	copy(v.locals, args)
	return v.Run()
}

// SetOwnActorID records which actor this VM belongs to (used when
// SendMsg/ReceiveMsg opcodes need the source id and for logging).
func (v *VM) SetOwnActorID(id uint64) { v.ownActorID = id }

// SetNextSpawnID sets the id the next SpawnActor opcode will report,
// supplied by the scheduler before each round's step for determinism
// (§4.3).
func (v *VM) SetNextSpawnID(id uint64) { v.nextSpawnID = id }

// SetStepLimit bounds total steps across the VM's lifetime; 0 means
// unbounded. Exceeding it is ExecutionLimitExceeded.
func (v *VM) SetStepLimit(n int) { v.stepLimit = n }

// PushMessage enqueues an inbound message onto the mailbox (scheduler use).
func (v *VM) PushMessage(m Message) { v.mailbox = append(v.mailbox, m) }

// MailboxLen reports the current mailbox depth.
func (v *VM) MailboxLen() int { return len(v.mailbox) }

// DrainSpawnRequests transfers pending spawn requests to the caller and
// clears the queue (§4.1 "Drains").
func (v *VM) DrainSpawnRequests() []SpawnRequest {
	out := v.pendingSpawns
	v.pendingSpawns = nil
	return out
}

// DrainOutgoingMessages transfers the outgoing-message queue to the caller
// and clears it.
func (v *VM) DrainOutgoingMessages() []OutgoingMessage {
	out := v.outgoing
	v.outgoing = nil
	return out
}

// UIOutput returns the sequence of values EmitUi has appended so far.
func (v *VM) UIOutput() []value.Value { return v.uiOutput }

// Trace returns the instruction trace, if TraceEnabled was set.
func (v *VM) Trace() []bytecode.Instr { return v.trace }

// StepCount reports total steps executed so far.
func (v *VM) StepCount() int { return v.stepCount }

func (v *VM) push(val value.Value) *Error {
	if len(v.stack) >= MaxStackDepth {
		return &Error{Kind: ErrStackOverflow, ExecutionLimit: MaxStackDepth}
	}
	v.stack = append(v.stack, val)
	return nil
}

func (v *VM) pop() (value.Value, *Error) {
	if len(v.stack) == 0 {
		return value.Value{}, &Error{Kind: ErrStackUnderflow}
	}
	top := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	return top, nil
}

func (v *VM) popN(n int) ([]value.Value, *Error) {
	if len(v.stack) < n {
		return nil, &Error{Kind: ErrStackUnderflow}
	}
	out := make([]value.Value, n)
	copy(out, v.stack[len(v.stack)-n:])
	v.stack = v.stack[:len(v.stack)-n]
	return out, nil
}

func (v *VM) peek() (value.Value, *Error) {
	if len(v.stack) == 0 {
		return value.Value{}, &Error{Kind: ErrStackUnderflow}
	}
	return v.stack[len(v.stack)-1], nil
}

func (v *VM) currentFunction() (*bytecode.Function, *Error) {
	if v.funcIdx < 0 || v.funcIdx >= len(v.Module.Functions) {
		return nil, &Error{Kind: ErrInvalidFunction, Index: v.funcIdx}
	}
	return &v.Module.Functions[v.funcIdx], nil
}
