// Package bytecode defines the Module format (§3) that the VM executes:
// constants, globals, type definitions, functions, and an opcode set with
// a single-byte tag per instruction, serializable as JSON and as a framed
// binary envelope that round-trips losslessly with the JSON form.
package bytecode

// Op is a single bytecode opcode tag.
type Op uint8

const (
	OpPushConst Op = iota
	OpLoadLocal
	OpStoreLocal
	OpLoadGlobal
	OpStoreGlobal

	OpCall
	OpRet
	OpJmp
	OpJmpIf
	OpJmpIfNot
	OpMatch
	OpAssert
	OpHalt
	OpNop

	OpMakeRecord
	OpMakeEnum
	OpGetField
	OpMakeList

	OpListLen
	OpListGet
	OpListPush

	OpConcat
	OpParseInt
	OpTryParseInt
	OpStrContains
	OpStrStartsWith

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg

	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte

	OpNot
	OpAnd
	OpOr

	OpPop
	OpDup

	OpCapCall
	OpSpawnActor
	OpSendMsg
	OpReceiveMsg
	OpEmitUi
)

var opNames = map[Op]string{
	OpPushConst:     "PushConst",
	OpLoadLocal:     "LoadLocal",
	OpStoreLocal:    "StoreLocal",
	OpLoadGlobal:    "LoadGlobal",
	OpStoreGlobal:   "StoreGlobal",
	OpCall:          "Call",
	OpRet:           "Ret",
	OpJmp:           "Jmp",
	OpJmpIf:         "JmpIf",
	OpJmpIfNot:      "JmpIfNot",
	OpMatch:         "Match",
	OpAssert:        "Assert",
	OpHalt:          "Halt",
	OpNop:           "Nop",
	OpMakeRecord:    "MakeRecord",
	OpMakeEnum:      "MakeEnum",
	OpGetField:      "GetField",
	OpMakeList:      "MakeList",
	OpListLen:       "ListLen",
	OpListGet:       "ListGet",
	OpListPush:      "ListPush",
	OpConcat:        "Concat",
	OpParseInt:      "ParseInt",
	OpTryParseInt:   "TryParseInt",
	OpStrContains:   "StrContains",
	OpStrStartsWith: "StrStartsWith",
	OpAdd:           "Add",
	OpSub:           "Sub",
	OpMul:           "Mul",
	OpDiv:           "Div",
	OpMod:           "Mod",
	OpNeg:           "Neg",
	OpEq:            "Eq",
	OpNeq:           "Neq",
	OpLt:            "Lt",
	OpLte:           "Lte",
	OpGt:            "Gt",
	OpGte:           "Gte",
	OpNot:           "Not",
	OpAnd:           "And",
	OpOr:            "Or",
	OpPop:           "Pop",
	OpDup:           "Dup",
	OpCapCall:       "CapCall",
	OpSpawnActor:    "SpawnActor",
	OpSendMsg:       "SendMsg",
	OpReceiveMsg:    "ReceiveMsg",
	OpEmitUi:        "EmitUi",
}

var namesToOp = func() map[string]Op {
	m := make(map[string]Op, len(opNames))
	for op, name := range opNames {
		m[name] = op
	}
	return m
}()

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "Unknown"
}

// Instr is one bytecode instruction. Not every opcode uses both operands;
// unused operands are zero. A and B hold whichever of {index, argc,
// target, count, type_id, field_count, cap_id, variant_idx} the opcode
// needs, per §3's per-opcode operand list.
type Instr struct {
	Op Op  `json:"op"`
	A  int `json:"a,omitempty"`
	B  int `json:"b,omitempty"`
}

// MatchArm is one arm of a Match opcode's table: Tag == -1 denotes the
// wildcard arm. Tag carries the comparison value for Enum-variant, Int,
// and Bool scrutinees (variant index, integer value, or 0/1
// respectively); Str carries a String-literal arm's comparison value and
// is nil for every other arm kind, since a string literal can't be
// represented in an int64 tag (§3 "value equality for Int/String/Bool
// literals").
type MatchArm struct {
	Tag    int64   `json:"tag"`
	Str    *string `json:"str,omitempty"`
	Target int     `json:"target"`
}

// MatchTable is an ordered list of arms scanned in order by the Match
// opcode; the first matching arm wins.
type MatchTable []MatchArm

const WildcardTag int64 = -1
