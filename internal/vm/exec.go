package vm

import (
	"errors"
	"strconv"

	"boruna/internal/bytecode"
	"boruna/internal/capability"
	"boruna/internal/value"
)

// ExecStatus is the outcome of an ExecuteBounded call (§4.1).
type ExecStatus string

const (
	StatusCompleted ExecStatus = "Completed"
	StatusYielded   ExecStatus = "Yielded"
	StatusBlocked   ExecStatus = "Blocked"
	StatusError     ExecStatus = "Error"
)

// ExecResult is what ExecuteBounded/Run report.
type ExecResult struct {
	Status ExecStatus
	Value  value.Value
	Err    *Error
}

// Run executes to completion with no step bound and no scheduler: SpawnActor
// and a ReceiveMsg against an empty mailbox both trap with
// ErrSchedulerRequired / ErrMailboxEmpty rather than yielding (§4.1).
func (v *VM) Run() ExecResult {
	v.HasScheduler = false
	for {
		res := v.step()
		if res.Status != "" {
			return res
		}
	}
}

// ExecuteBounded runs at most n steps (or until completion/blocking),
// intended for use by a deterministic scheduler multiplexing many actors
// (§4.1, §4.3). Blocked is returned when ReceiveMsg finds an empty mailbox
// under a scheduler; Yielded is returned when the step budget is exhausted
// mid-execution.
func (v *VM) ExecuteBounded(n int) ExecResult {
	v.HasScheduler = true
	for i := 0; i < n; i++ {
		res := v.step()
		if res.Status != "" {
			return res
		}
	}
	return ExecResult{Status: StatusYielded}
}

// step executes exactly one instruction, returning a zero-value ExecResult
// (empty Status) to keep running, or a terminal ExecResult to stop.
func (v *VM) step() ExecResult {
	if v.stepLimit != 0 && v.stepCount >= v.stepLimit {
		return v.fail(&Error{Kind: ErrExecutionLimitExceeded, ExecutionLimit: v.stepLimit})
	}

	fn, ferr := v.currentFunction()
	if ferr != nil {
		return v.fail(ferr)
	}
	if v.ip < 0 || v.ip >= len(fn.Code) {
		return v.fail(&Error{Kind: ErrInvalidIP, Index: v.ip})
	}
	instr := fn.Code[v.ip]
	if v.TraceEnabled {
		v.trace = append(v.trace, instr)
	}
	v.stepCount++
	v.ip++

	switch instr.Op {
	case bytecode.OpNop:
		return ExecResult{}

	case bytecode.OpHalt:
		return v.fail(&Error{Kind: ErrHalt})

	case bytecode.OpPushConst:
		if instr.A < 0 || instr.A >= len(v.Module.Constants) {
			return v.fail(&Error{Kind: ErrInvalidConstant, Index: instr.A})
		}
		if err := v.push(v.Module.Constants[instr.A]); err != nil {
			return v.fail(err)
		}
		return ExecResult{}

	case bytecode.OpLoadLocal:
		if instr.A < 0 || instr.A >= len(v.locals) {
			return v.fail(&Error{Kind: ErrInvalidLocal, Index: instr.A})
		}
		if err := v.push(v.locals[instr.A]); err != nil {
			return v.fail(err)
		}
		return ExecResult{}

	case bytecode.OpStoreLocal:
		val, err := v.pop()
		if err != nil {
			return v.fail(err)
		}
		if instr.A < 0 || instr.A >= len(v.locals) {
			return v.fail(&Error{Kind: ErrInvalidLocal, Index: instr.A})
		}
		v.locals[instr.A] = val
		return ExecResult{}

	case bytecode.OpLoadGlobal:
		if instr.A < 0 || instr.A >= len(v.Module.Globals) {
			return v.fail(&Error{Kind: ErrInvalidGlobal, Index: instr.A})
		}
		if err := v.push(v.globals()[instr.A]); err != nil {
			return v.fail(err)
		}
		return ExecResult{}

	case bytecode.OpStoreGlobal:
		val, err := v.pop()
		if err != nil {
			return v.fail(err)
		}
		if instr.A < 0 || instr.A >= len(v.Module.Globals) {
			return v.fail(&Error{Kind: ErrInvalidGlobal, Index: instr.A})
		}
		v.globalSlots[instr.A] = val
		return ExecResult{}

	case bytecode.OpCall:
		return v.execCall(instr)

	case bytecode.OpRet:
		return v.execRet()

	case bytecode.OpJmp:
		v.ip = instr.A
		return ExecResult{}

	case bytecode.OpJmpIf:
		cond, err := v.pop()
		if err != nil {
			return v.fail(err)
		}
		if cond.Truthy() {
			v.ip = instr.A
		}
		return ExecResult{}

	case bytecode.OpJmpIfNot:
		cond, err := v.pop()
		if err != nil {
			return v.fail(err)
		}
		if !cond.Truthy() {
			v.ip = instr.A
		}
		return ExecResult{}

	case bytecode.OpMatch:
		return v.execMatch(fn, instr)

	case bytecode.OpAssert:
		return v.execAssert(instr)

	case bytecode.OpMakeRecord:
		return v.execMakeRecord(instr)

	case bytecode.OpMakeEnum:
		return v.execMakeEnum(instr)

	case bytecode.OpGetField:
		return v.execGetField(instr)

	case bytecode.OpMakeList:
		return v.execMakeList(instr)

	case bytecode.OpListLen:
		return v.execListLen()

	case bytecode.OpListGet:
		return v.execListGet()

	case bytecode.OpListPush:
		return v.execListPush()

	case bytecode.OpConcat:
		return v.execConcat()

	case bytecode.OpParseInt:
		return v.execParseInt(false)

	case bytecode.OpTryParseInt:
		return v.execParseInt(true)

	case bytecode.OpStrContains:
		return v.execStrBinary(func(a, b string) bool { return strContains(a, b) })

	case bytecode.OpStrStartsWith:
		return v.execStrBinary(func(a, b string) bool { return strHasPrefix(a, b) })

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod:
		return v.execArith(instr.Op)

	case bytecode.OpNeg:
		return v.execNeg()

	case bytecode.OpEq:
		return v.execCompareEq(true)

	case bytecode.OpNeq:
		return v.execCompareEq(false)

	case bytecode.OpLt, bytecode.OpLte, bytecode.OpGt, bytecode.OpGte:
		return v.execOrder(instr.Op)

	case bytecode.OpNot:
		return v.execNot()

	case bytecode.OpAnd:
		return v.execLogic(func(a, b bool) bool { return a && b })

	case bytecode.OpOr:
		return v.execLogic(func(a, b bool) bool { return a || b })

	case bytecode.OpPop:
		_, err := v.pop()
		if err != nil {
			return v.fail(err)
		}
		return ExecResult{}

	case bytecode.OpDup:
		top, err := v.peek()
		if err != nil {
			return v.fail(err)
		}
		if err := v.push(top); err != nil {
			return v.fail(err)
		}
		return ExecResult{}

	case bytecode.OpCapCall:
		return v.execCapCall(instr)

	case bytecode.OpSpawnActor:
		return v.execSpawnActor(instr)

	case bytecode.OpSendMsg:
		return v.execSendMsg()

	case bytecode.OpReceiveMsg:
		return v.execReceiveMsg()

	case bytecode.OpEmitUi:
		val, err := v.pop()
		if err != nil {
			return v.fail(err)
		}
		v.uiOutput = append(v.uiOutput, val)
		return ExecResult{}

	default:
		return v.fail(&Error{Kind: ErrInvalidIP, Index: v.ip - 1})
	}
}

func (v *VM) fail(err *Error) ExecResult {
	if err.Kind == ErrHalt {
		result := value.Unit()
		if top, perr := v.peek(); perr == nil {
			result = top
		}
		return ExecResult{Status: StatusCompleted, Value: result}
	}
	return ExecResult{Status: StatusError, Err: err}
}

// globals/globalSlots: module-level global storage, lazily created.
func (v *VM) globals() []value.Value {
	if v.globalSlots == nil {
		v.globalSlots = make([]value.Value, len(v.Module.Globals))
	}
	return v.globalSlots
}

func (v *VM) execCall(instr bytecode.Instr) ExecResult {
	if instr.A < 0 || instr.A >= len(v.Module.Functions) {
		return v.fail(&Error{Kind: ErrInvalidFunction, Index: instr.A})
	}
	callee := v.Module.Functions[instr.A]
	args, err := v.popN(callee.Arity)
	if err != nil {
		return v.fail(err)
	}
	if len(v.frames) >= MaxStackDepth {
		return v.fail(&Error{Kind: ErrStackOverflow, ExecutionLimit: MaxStackDepth})
	}
	v.frames = append(v.frames, Frame{ReturnIP: v.ip, Locals: v.locals, CallerFuncIdx: v.funcIdx})
	locals := make([]value.Value, callee.NumLocals)
	copy(locals, args)
	v.locals = locals
	v.funcIdx = instr.A
	v.ip = 0
	return ExecResult{}
}

func (v *VM) execRet() ExecResult {
	retVal, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	if len(v.frames) == 0 {
		return ExecResult{Status: StatusCompleted, Value: retVal}
	}
	top := v.frames[len(v.frames)-1]
	v.frames = v.frames[:len(v.frames)-1]
	v.ip = top.ReturnIP
	v.locals = top.Locals
	v.funcIdx = top.CallerFuncIdx
	if err := v.push(retVal); err != nil {
		return v.fail(err)
	}
	return ExecResult{}
}

func (v *VM) execMatch(fn *bytecode.Function, instr bytecode.Instr) ExecResult {
	if instr.A < 0 || instr.A >= len(fn.MatchTables) {
		return v.fail(&Error{Kind: ErrInvalidIP, Index: instr.A})
	}
	table := fn.MatchTables[instr.A]
	scrutinee, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	for _, arm := range table {
		if matchArm(arm, scrutinee) {
			if scrutinee.Kind == value.KindEnum && scrutinee.Payload != nil {
				if err := v.push(*scrutinee.Payload); err != nil {
					return v.fail(err)
				}
			}
			v.ip = arm.Target
			return ExecResult{}
		}
	}
	switch scrutinee.Kind {
	case value.KindEnum, value.KindInt, value.KindBool, value.KindString:
		return v.fail(&Error{Kind: ErrMatchExhausted})
	default:
		return v.fail(typeErr("Enum, Int, String, or Bool", scrutinee.Kind.String()))
	}
}

// matchArm reports whether arm matches scrutinee (§3 Match opcode): the
// wildcard arm (Tag == -1, Str == nil) always matches regardless of
// scrutinee kind; otherwise an Enum scrutinee compares against its
// variant index, Int/Bool scrutinees compare their value against Tag,
// and a String scrutinee compares against Str — the only arm kind that
// can't fit in an int64 tag. A scrutinee kind with no comparable arms
// (e.g. Float, Record) simply matches nothing here; execMatch decides,
// once the whole table is exhausted, whether that's MatchExhausted or a
// TypeError.
func matchArm(arm bytecode.MatchArm, scrutinee value.Value) bool {
	if arm.Tag == bytecode.WildcardTag && arm.Str == nil {
		return true
	}
	switch scrutinee.Kind {
	case value.KindEnum:
		return arm.Str == nil && arm.Tag == int64(scrutinee.Variant)
	case value.KindInt:
		return arm.Str == nil && arm.Tag == scrutinee.Int
	case value.KindBool:
		tag := int64(0)
		if scrutinee.Bool {
			tag = 1
		}
		return arm.Str == nil && arm.Tag == tag
	case value.KindString:
		return arm.Str != nil && *arm.Str == scrutinee.String
	default:
		return false
	}
}

func (v *VM) execAssert(instr bytecode.Instr) ExecResult {
	cond, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	if cond.Truthy() {
		return ExecResult{}
	}
	msg := ""
	if instr.A >= 0 && instr.A < len(v.Module.Constants) {
		msg = v.Module.Constants[instr.A].Inspect()
		if v.Module.Constants[instr.A].Kind == value.KindString {
			msg = v.Module.Constants[instr.A].String
		}
	}
	return v.fail(&Error{Kind: ErrAssertionFailed, Message: msg})
}

func (v *VM) execMakeRecord(instr bytecode.Instr) ExecResult {
	n := instr.B
	fields, err := v.popN(n)
	if err != nil {
		return v.fail(err)
	}
	if err := v.push(value.Record(uint16(instr.A), fields)); err != nil {
		return v.fail(err)
	}
	return ExecResult{}
}

// execMakeEnum builds an Enum value. A is the type id; B encodes both the
// variant index and whether a payload value is on the stack: B >= 0 means
// variant B with a payload to pop, B < 0 means the payload-less variant
// -B-1 (so variant 0 without a payload is encoded as B == -1).
func (v *VM) execMakeEnum(instr bytecode.Instr) ExecResult {
	hasPayload := instr.B >= 0
	var payload *value.Value
	if hasPayload {
		p, err := v.pop()
		if err != nil {
			return v.fail(err)
		}
		payload = &p
	}
	variant := instr.B
	if variant < 0 {
		variant = -variant - 1
	}
	if err := v.push(value.Enum(uint16(instr.A), uint8(variant), payload)); err != nil {
		return v.fail(err)
	}
	return ExecResult{}
}

func (v *VM) execGetField(instr bytecode.Instr) ExecResult {
	rec, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	if rec.Kind != value.KindRecord {
		return v.fail(typeErr("Record", rec.Kind.String()))
	}
	if instr.A < 0 || instr.A >= len(rec.Fields) {
		return v.fail(&Error{Kind: ErrIndexOutOfBounds, Index: instr.A, Length: len(rec.Fields)})
	}
	if err := v.push(rec.Fields[instr.A]); err != nil {
		return v.fail(err)
	}
	return ExecResult{}
}

func (v *VM) execMakeList(instr bytecode.Instr) ExecResult {
	items, err := v.popN(instr.A)
	if err != nil {
		return v.fail(err)
	}
	if err := v.push(value.List(items)); err != nil {
		return v.fail(err)
	}
	return ExecResult{}
}

func (v *VM) execListLen() ExecResult {
	l, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	if l.Kind != value.KindList {
		return v.fail(typeErr("List", l.Kind.String()))
	}
	if err := v.push(value.Int(int64(len(l.List)))); err != nil {
		return v.fail(err)
	}
	return ExecResult{}
}

func (v *VM) execListGet() ExecResult {
	idxVal, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	l, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	if l.Kind != value.KindList {
		return v.fail(typeErr("List", l.Kind.String()))
	}
	if idxVal.Kind != value.KindInt {
		return v.fail(typeErr("Int", idxVal.Kind.String()))
	}
	idx := idxVal.Int
	if idx < 0 || idx >= int64(len(l.List)) {
		return v.fail(&Error{Kind: ErrIndexOutOfBounds, Index: int(idx), Length: len(l.List)})
	}
	if err := v.push(l.List[idx]); err != nil {
		return v.fail(err)
	}
	return ExecResult{}
}

func (v *VM) execListPush() ExecResult {
	item, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	l, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	if l.Kind != value.KindList {
		return v.fail(typeErr("List", l.Kind.String()))
	}
	next := make([]value.Value, len(l.List)+1)
	copy(next, l.List)
	next[len(l.List)] = item
	if err := v.push(value.List(next)); err != nil {
		return v.fail(err)
	}
	return ExecResult{}
}

func (v *VM) execConcat() ExecResult {
	b, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	a, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	if a.Kind != value.KindString || b.Kind != value.KindString {
		return v.fail(typeErr("String", a.Kind.String()+"/"+b.Kind.String()))
	}
	if err := v.push(value.Str(a.String + b.String)); err != nil {
		return v.fail(err)
	}
	return ExecResult{}
}

// execParseInt implements both ParseInt and TryParseInt: ParseInt (try=false)
// pops a String and pushes Int(0) on a parse failure, never trapping;
// TryParseInt (try=true) pushes a Result — Ok(Int) on success, Err(String)
// on failure (§3 "String builtins"; ground truth: original_source's
// opcode.rs ParseInt/TryParseInt doc comments).
func (v *VM) execParseInt(try bool) ExecResult {
	s, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	if s.Kind != value.KindString {
		return v.fail(typeErr("String", s.Kind.String()))
	}
	n, perr := strconv.ParseInt(s.String, 10, 64)
	if perr != nil {
		if try {
			if err := v.push(value.Err(value.Str(s.String))); err != nil {
				return v.fail(err)
			}
			return ExecResult{}
		}
		if err := v.push(value.Int(0)); err != nil {
			return v.fail(err)
		}
		return ExecResult{}
	}
	result := value.Int(n)
	if try {
		if err := v.push(value.Ok(result)); err != nil {
			return v.fail(err)
		}
	} else {
		if err := v.push(result); err != nil {
			return v.fail(err)
		}
	}
	return ExecResult{}
}

func (v *VM) execStrBinary(f func(a, b string) bool) ExecResult {
	b, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	a, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	if a.Kind != value.KindString || b.Kind != value.KindString {
		return v.fail(typeErr("String", a.Kind.String()+"/"+b.Kind.String()))
	}
	if err := v.push(value.Bool(f(a.String, b.String))); err != nil {
		return v.fail(err)
	}
	return ExecResult{}
}

func (v *VM) execArith(op bytecode.Op) ExecResult {
	b, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	a, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	if a.Kind == value.KindInt && b.Kind == value.KindInt {
		result, derr := intArith(op, a.Int, b.Int)
		if derr != nil {
			return v.fail(derr)
		}
		if err := v.push(value.Int(result)); err != nil {
			return v.fail(err)
		}
		return ExecResult{}
	}
	if (a.Kind == value.KindInt || a.Kind == value.KindFloat) && (b.Kind == value.KindInt || b.Kind == value.KindFloat) {
		af, bf := toFloat(a), toFloat(b)
		result, derr := floatArith(op, af, bf)
		if derr != nil {
			return v.fail(derr)
		}
		if err := v.push(value.Float(result)); err != nil {
			return v.fail(err)
		}
		return ExecResult{}
	}
	return v.fail(typeErr("Int or Float", a.Kind.String()+"/"+b.Kind.String()))
}

func toFloat(v value.Value) float64 {
	if v.Kind == value.KindInt {
		return float64(v.Int)
	}
	return v.Float
}

func intArith(op bytecode.Op, a, b int64) (int64, *Error) {
	switch op {
	case bytecode.OpAdd:
		return a + b, nil
	case bytecode.OpSub:
		return a - b, nil
	case bytecode.OpMul:
		return a * b, nil
	case bytecode.OpDiv:
		if b == 0 {
			return 0, &Error{Kind: ErrDivisionByZero}
		}
		return a / b, nil
	case bytecode.OpMod:
		if b == 0 {
			return 0, &Error{Kind: ErrDivisionByZero}
		}
		return a % b, nil
	}
	return 0, &Error{Kind: ErrTypeError, Message: "unreachable arith op"}
}

func floatArith(op bytecode.Op, a, b float64) (float64, *Error) {
	switch op {
	case bytecode.OpAdd:
		return a + b, nil
	case bytecode.OpSub:
		return a - b, nil
	case bytecode.OpMul:
		return a * b, nil
	case bytecode.OpDiv:
		if b == 0 {
			return 0, &Error{Kind: ErrDivisionByZero}
		}
		return a / b, nil
	case bytecode.OpMod:
		if b == 0 {
			return 0, &Error{Kind: ErrDivisionByZero}
		}
		return float64(int64(a) % int64(b)), nil
	}
	return 0, &Error{Kind: ErrTypeError, Message: "unreachable arith op"}
}

func (v *VM) execNeg() ExecResult {
	a, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	switch a.Kind {
	case value.KindInt:
		if err := v.push(value.Int(-a.Int)); err != nil {
			return v.fail(err)
		}
	case value.KindFloat:
		if err := v.push(value.Float(-a.Float)); err != nil {
			return v.fail(err)
		}
	default:
		return v.fail(typeErr("Int or Float", a.Kind.String()))
	}
	return ExecResult{}
}

func (v *VM) execCompareEq(wantEqual bool) ExecResult {
	b, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	a, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	eq := value.Equal(a, b)
	if !wantEqual {
		eq = !eq
	}
	if err := v.push(value.Bool(eq)); err != nil {
		return v.fail(err)
	}
	return ExecResult{}
}

func (v *VM) execOrder(op bytecode.Op) ExecResult {
	b, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	a, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	var cmp int
	switch {
	case a.Kind == value.KindInt && b.Kind == value.KindInt:
		cmp = cmpInt64(a.Int, b.Int)
	case (a.Kind == value.KindInt || a.Kind == value.KindFloat) && (b.Kind == value.KindInt || b.Kind == value.KindFloat):
		cmp = cmpFloat64(toFloat(a), toFloat(b))
	case a.Kind == value.KindString && b.Kind == value.KindString:
		cmp = cmpString(a.String, b.String)
	default:
		return v.fail(typeErr("comparable", a.Kind.String()+"/"+b.Kind.String()))
	}
	var result bool
	switch op {
	case bytecode.OpLt:
		result = cmp < 0
	case bytecode.OpLte:
		result = cmp <= 0
	case bytecode.OpGt:
		result = cmp > 0
	case bytecode.OpGte:
		result = cmp >= 0
	}
	if err := v.push(value.Bool(result)); err != nil {
		return v.fail(err)
	}
	return ExecResult{}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func strContains(s, sub string) bool {
	return indexOf(s, sub) >= 0
}

func strHasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func indexOf(s, sub string) int {
	n, m := len(s), len(sub)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == sub {
			return i
		}
	}
	return -1
}

func (v *VM) execNot() ExecResult {
	a, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	if a.Kind != value.KindBool {
		return v.fail(typeErr("Bool", a.Kind.String()))
	}
	if err := v.push(value.Bool(!a.Bool)); err != nil {
		return v.fail(err)
	}
	return ExecResult{}
}

func (v *VM) execLogic(f func(a, b bool) bool) ExecResult {
	b, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	a, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	if a.Kind != value.KindBool || b.Kind != value.KindBool {
		return v.fail(typeErr("Bool", a.Kind.String()+"/"+b.Kind.String()))
	}
	if err := v.push(value.Bool(f(a.Bool, b.Bool))); err != nil {
		return v.fail(err)
	}
	return ExecResult{}
}

func (v *VM) execCapCall(instr bytecode.Instr) ExecResult {
	cap, ok := capability.ByID(instr.A)
	if !ok {
		return v.fail(&Error{Kind: ErrUnknownCapability, Index: instr.A})
	}
	args, err := v.popN(instr.B)
	if err != nil {
		return v.fail(err)
	}
	if v.Gateway == nil {
		return v.fail(&Error{Kind: ErrUnknownCapability, Index: instr.A, Message: "no gateway attached"})
	}
	result, callErr := v.Gateway.Call(cap, args)
	if callErr != nil {
		return v.fail(translateCapError(cap, callErr))
	}
	if perr := v.push(result); perr != nil {
		return v.fail(perr)
	}
	return ExecResult{}
}

// translateCapError maps a Gateway-returned error to the VM's error
// taxonomy. It walks the chain with errors.Is rather than comparing
// sentinels directly, since the Gateway wraps handler failures (e.g. a
// ReplayHandler's ErrReplayExhausted) rather than returning them bare.
// ErrReplayExhausted has no dedicated VM ErrorKind — it surfaces as
// CapabilityDenied with the original error preserved in Wrapped so
// errors.Is(vmErr, capability.ErrReplayExhausted) still distinguishes it
// from an ordinary policy denial.
func translateCapError(cap capability.Capability, err error) *Error {
	var ce *capability.CallError
	if as, ok := err.(*capability.CallError); ok {
		ce = as
	}
	switch {
	case ce != nil && errors.Is(ce.Err, capability.ErrCapabilityDenied):
		return &Error{Kind: ErrCapabilityDenied, Cap: &cap, Wrapped: err}
	case ce != nil && errors.Is(ce.Err, capability.ErrCapabilityBudgetExceeded):
		return &Error{Kind: ErrCapabilityBudgetExceeded, Cap: &cap, Wrapped: err}
	case ce != nil && errors.Is(ce.Err, capability.ErrReplayExhausted):
		return &Error{Kind: ErrCapabilityDenied, Cap: &cap, Wrapped: err}
	default:
		return &Error{Kind: ErrUnknownCapability, Index: cap.ID, Wrapped: err}
	}
}

func (v *VM) execSpawnActor(instr bytecode.Instr) ExecResult {
	if !v.HasScheduler {
		return v.fail(&Error{Kind: ErrSchedulerRequired})
	}
	if instr.A < 0 || instr.A >= len(v.Module.Functions) {
		return v.fail(&Error{Kind: ErrInvalidFunction, Index: instr.A})
	}
	v.pendingSpawns = append(v.pendingSpawns, SpawnRequest{FuncIndex: instr.A})
	if err := v.push(value.ActorIDValue(v.nextSpawnID)); err != nil {
		return v.fail(err)
	}
	v.nextSpawnID++
	return ExecResult{}
}

func (v *VM) execSendMsg() ExecResult {
	payload, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	target, err := v.pop()
	if err != nil {
		return v.fail(err)
	}
	if target.Kind != value.KindActorID {
		return v.fail(typeErr("ActorId", target.Kind.String()))
	}
	v.outgoing = append(v.outgoing, OutgoingMessage{Target: target.ActorID, Payload: payload})
	if err := v.push(value.Unit()); err != nil {
		return v.fail(err)
	}
	return ExecResult{}
}

func (v *VM) execReceiveMsg() ExecResult {
	if len(v.mailbox) == 0 {
		if v.HasScheduler {
			// Roll back past this instruction so the next ExecuteBounded
			// call retries ReceiveMsg instead of resuming after it.
			v.ip--
			return ExecResult{Status: StatusBlocked}
		}
		return v.fail(&Error{Kind: ErrMailboxEmpty})
	}
	msg := v.mailbox[0]
	v.mailbox = v.mailbox[1:]
	rec := value.Record(value.AnonListRecordTypeID, []value.Value{value.ActorIDValue(msg.From), msg.Payload})
	if err := v.push(rec); err != nil {
		return v.fail(err)
	}
	return ExecResult{}
}
