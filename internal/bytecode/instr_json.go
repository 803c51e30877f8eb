package bytecode

import (
	"encoding/json"
	"fmt"
)

type instrWire struct {
	Op string `json:"op"`
	A  int    `json:"a,omitempty"`
	B  int    `json:"b,omitempty"`
}

// MarshalJSON renders an instruction as a tagged object naming the opcode,
// e.g. {"op":"PushConst","a":0} — the shape §6 calls for ("Opcodes are
// tagged variants with their operand fields").
func (i Instr) MarshalJSON() ([]byte, error) {
	return json.Marshal(instrWire{Op: i.Op.String(), A: i.A, B: i.B})
}

func (i *Instr) UnmarshalJSON(data []byte) error {
	var w instrWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	op, ok := namesToOp[w.Op]
	if !ok {
		return fmt.Errorf("bytecode: unknown opcode %q", w.Op)
	}
	i.Op = op
	i.A = w.A
	i.B = w.B
	return nil
}
