package bytecode

import (
	"fmt"

	"boruna/internal/value"
)

// CurrentVersion is the Module format version this package produces and
// the maximum it accepts (§3: "format version (currently 1)").
const CurrentVersion = 1

// TypeKind distinguishes Record from Enum type definitions.
type TypeKind string

const (
	TypeKindRecord TypeKind = "record"
	TypeKindEnum   TypeKind = "enum"
)

// TypeDef names a Record's fields or an Enum's variants; Records are
// positional at the bytecode layer (§9), so TypeDef only supplies names
// for tooling/debugging, never runtime dispatch.
type TypeDef struct {
	Kind     TypeKind `json:"kind"`
	Name     string   `json:"name"`
	Fields   []string `json:"fields,omitempty"`   // for TypeKindRecord
	Variants []string `json:"variants,omitempty"` // for TypeKindEnum
}

// Function is one compiled function: its instruction sequence, local slot
// count, declared capability set, and match tables.
type Function struct {
	Name         string       `json:"name"`
	Arity        int          `json:"arity"`
	NumLocals    int          `json:"num_locals"`
	Code         []Instr      `json:"code"`
	Capabilities []string     `json:"capabilities,omitempty"`
	MatchTables  []MatchTable `json:"match_tables,omitempty"`
}

// Module is the unit of bytecode: constants, globals, types, functions and
// the entry function index (§3).
type Module struct {
	Name      string         `json:"name"`
	Version   uint16         `json:"version"`
	Constants []value.Value  `json:"constants"`
	Globals   []string       `json:"globals"`
	Types     []TypeDef      `json:"types"`
	Functions []Function     `json:"functions"`
	Entry     int            `json:"entry"`
}

// FunctionIndex returns the index of the function named name, if any.
func (m *Module) FunctionIndex(name string) (int, bool) {
	for i, f := range m.Functions {
		if f.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Validate checks the structural invariants §3 requires: every opcode
// index referenced (constant, local, global, function, type, match-table)
// must be in range, the entry index must be valid, and the function graph
// must be self-contained.
func (m *Module) Validate() error {
	if m.Entry < 0 || m.Entry >= len(m.Functions) {
		return fmt.Errorf("bytecode: entry index %d out of range (have %d functions)", m.Entry, len(m.Functions))
	}
	for fi, fn := range m.Functions {
		if fn.NumLocals < fn.Arity {
			return fmt.Errorf("bytecode: function %q (#%d) declares %d locals but arity %d", fn.Name, fi, fn.NumLocals, fn.Arity)
		}
		for ii, instr := range fn.Code {
			if err := m.validateInstr(fn, instr); err != nil {
				return fmt.Errorf("bytecode: function %q (#%d) instruction %d: %w", fn.Name, fi, ii, err)
			}
		}
	}
	return nil
}

func (m *Module) validateInstr(fn Function, instr Instr) error {
	inRange := func(n, limit int, what string) error {
		if n < 0 || n >= limit {
			return fmt.Errorf("%s index %d out of range (have %d)", what, n, limit)
		}
		return nil
	}
	switch instr.Op {
	case OpPushConst, OpAssert:
		return inRange(instr.A, len(m.Constants), "constant")
	case OpLoadLocal, OpStoreLocal:
		return inRange(instr.A, fn.NumLocals, "local")
	case OpLoadGlobal, OpStoreGlobal:
		return inRange(instr.A, len(m.Globals), "global")
	case OpCall:
		return inRange(instr.A, len(m.Functions), "function")
	case OpMatch:
		return inRange(instr.A, len(fn.MatchTables), "match-table")
	case OpMakeRecord, OpMakeEnum:
		return inRange(instr.A, len(m.Types), "type")
	case OpSpawnActor:
		return inRange(instr.A, len(m.Functions), "function")
	case OpJmp, OpJmpIf, OpJmpIfNot:
		return inRange(instr.A, len(fn.Code)+1, "jump target")
	}
	return nil
}
