// Package value implements the runtime Value universe: an immutable
// tagged union covering every datum a Module's bytecode can produce or
// consume. Operations on a Value never mutate it in place; they return a
// new Value.
package value

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind tags a Value's variant.
type Kind uint8

const (
	KindUnit Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindNone
	KindSome
	KindOk
	KindErr
	KindRecord
	KindEnum
	KindList
	KindMap
	KindActorID
	KindFnRef
)

func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "Unit"
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindNone:
		return "None"
	case KindSome:
		return "Some"
	case KindOk:
		return "Ok"
	case KindErr:
		return "Err"
	case KindRecord:
		return "Record"
	case KindEnum:
		return "Enum"
	case KindList:
		return "List"
	case KindMap:
		return "Map"
	case KindActorID:
		return "ActorId"
	case KindFnRef:
		return "FnRef"
	default:
		return "Unknown"
	}
}

// AnonListRecordTypeID is the reserved type id for anonymous list-literal
// records (§9 Record field naming); it is treated interchangeably with
// List in effect-parsing contexts.
const AnonListRecordTypeID = 0xFFFF

// Value is the tagged union of all runtime data. Only the fields relevant
// to Kind are populated; zero Value{} is Unit.
type Value struct {
	Kind Kind

	Bool   bool
	Int    int64
	Float  float64
	String string

	// Some/Ok/Err wrap exactly one inner Value.
	Inner *Value

	// Record
	TypeID uint16
	Fields []Value

	// Enum
	Variant uint8
	Payload *Value

	// List
	List []Value

	// Map: deterministic iteration requires sorting Keys lexicographically
	// at read time; Entries holds key/value pairs in insertion order.
	Entries []MapEntry

	// ActorID
	ActorID uint64

	// FnRef
	FnIndex int
}

// MapEntry is one key/value pair of a Map value. Keys are always Strings.
type MapEntry struct {
	Key   string
	Value Value
}

// Constructors.

func Unit() Value                 { return Value{Kind: KindUnit} }
func Bool(b bool) Value           { return Value{Kind: KindBool, Bool: b} }
func Int(i int64) Value           { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value       { return Value{Kind: KindFloat, Float: f} }
func Str(s string) Value          { return Value{Kind: KindString, String: s} }
func None() Value                 { return Value{Kind: KindNone} }
func ActorIDValue(id uint64) Value { return Value{Kind: KindActorID, ActorID: id} }
func FnRef(idx int) Value         { return Value{Kind: KindFnRef, FnIndex: idx} }

func Some(inner Value) Value {
	v := inner
	return Value{Kind: KindSome, Inner: &v}
}

func Ok(inner Value) Value {
	v := inner
	return Value{Kind: KindOk, Inner: &v}
}

func Err(inner Value) Value {
	v := inner
	return Value{Kind: KindErr, Inner: &v}
}

func ErrString(msg string) Value {
	return Err(Str(msg))
}

func Record(typeID uint16, fields []Value) Value {
	cp := make([]Value, len(fields))
	copy(cp, fields)
	return Value{Kind: KindRecord, TypeID: typeID, Fields: cp}
}

func Enum(typeID uint16, variant uint8, payload *Value) Value {
	var p *Value
	if payload != nil {
		v := *payload
		p = &v
	}
	return Value{Kind: KindEnum, TypeID: typeID, Variant: variant, Payload: p}
}

func List(items []Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{Kind: KindList, List: cp}
}

// Map builds a Map value from entries given in any order; Entries
// preserves the order given (callers that need deterministic iteration
// should use SortedEntries or rely on CanonicalJSON, which always sorts).
func Map(entries []MapEntry) Value {
	cp := make([]MapEntry, len(entries))
	copy(cp, entries)
	return Value{Kind: KindMap, Entries: cp}
}

// SortedEntries returns the Map's entries sorted lexicographically by key,
// the deterministic iteration order the spec requires (§3 Value: Map).
func (v Value) SortedEntries() []MapEntry {
	if v.Kind != KindMap {
		return nil
	}
	out := make([]MapEntry, len(v.Entries))
	copy(out, v.Entries)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// MapGet looks up a key in a Map value.
func (v Value) MapGet(key string) (Value, bool) {
	for _, e := range v.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Truthy implements the truthy projection used by conditional opcodes:
// Unit/None/Err/0/""/empty collections are false, everything else true.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindUnit, KindNone:
		return false
	case KindErr:
		return false
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int != 0
	case KindFloat:
		return v.Float != 0
	case KindString:
		return v.String != ""
	case KindList:
		return len(v.List) != 0
	case KindMap:
		return len(v.Entries) != 0
	case KindSome, KindOk, KindRecord, KindEnum, KindActorID, KindFnRef:
		return true
	default:
		return true
	}
}

// Equal implements structural equality across all Value variants, used by
// the Eq/Neq opcodes. NaN Float Equal NaN Float is true: floats are
// compared as opaque data, not under IEEE-754 semantics (see spec §9 Open
// Questions; decision recorded in DESIGN.md).
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindUnit, KindNone:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float || (isNaN(a.Float) && isNaN(b.Float))
	case KindString:
		return a.String == b.String
	case KindSome, KindOk, KindErr:
		return Equal(*a.Inner, *b.Inner)
	case KindRecord:
		if a.TypeID != b.TypeID || len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if !Equal(a.Fields[i], b.Fields[i]) {
				return false
			}
		}
		return true
	case KindEnum:
		if a.TypeID != b.TypeID || a.Variant != b.Variant {
			return false
		}
		if (a.Payload == nil) != (b.Payload == nil) {
			return false
		}
		if a.Payload == nil {
			return true
		}
		return Equal(*a.Payload, *b.Payload)
	case KindList:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if !Equal(a.List[i], b.List[i]) {
				return false
			}
		}
		return true
	case KindMap:
		as, bs := a.SortedEntries(), b.SortedEntries()
		if len(as) != len(bs) {
			return false
		}
		for i := range as {
			if as[i].Key != bs[i].Key || !Equal(as[i].Value, bs[i].Value) {
				return false
			}
		}
		return true
	case KindActorID:
		return a.ActorID == b.ActorID
	case KindFnRef:
		return a.FnIndex == b.FnIndex
	default:
		return false
	}
}

func isNaN(f float64) bool { return f != f }

// Inspect renders a Value for debugging/REPL display (not the canonical
// wire form — use CanonicalJSON for that).
func (v Value) Inspect() string {
	switch v.Kind {
	case KindUnit:
		return "()"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.String)
	case KindNone:
		return "None"
	case KindSome:
		return "Some(" + v.Inner.Inspect() + ")"
	case KindOk:
		return "Ok(" + v.Inner.Inspect() + ")"
	case KindErr:
		return "Err(" + v.Inner.Inspect() + ")"
	case KindRecord:
		parts := make([]string, len(v.Fields))
		for i, f := range v.Fields {
			parts[i] = f.Inspect()
		}
		return fmt.Sprintf("Record#%d{%s}", v.TypeID, strings.Join(parts, ", "))
	case KindEnum:
		if v.Payload != nil {
			return fmt.Sprintf("Enum#%d.%d(%s)", v.TypeID, v.Variant, v.Payload.Inspect())
		}
		return fmt.Sprintf("Enum#%d.%d", v.TypeID, v.Variant)
	case KindList:
		parts := make([]string, len(v.List))
		for i, e := range v.List {
			parts[i] = e.Inspect()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		sorted := v.SortedEntries()
		parts := make([]string, len(sorted))
		for i, e := range sorted {
			parts[i] = strconv.Quote(e.Key) + ": " + e.Value.Inspect()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindActorID:
		return fmt.Sprintf("ActorId(%d)", v.ActorID)
	case KindFnRef:
		return fmt.Sprintf("FnRef(%d)", v.FnIndex)
	default:
		return "?"
	}
}

// Fingerprint returns a stable sha256 hash (hex) over the Value's canonical
// JSON encoding (grounded on original_source's fingerprint.rs; see
// SPEC_FULL "Supplemented features"). EventLog comparisons do not call it;
// they compare CanonicalJSON strings directly.
func Fingerprint(v Value) string {
	sum := sha256.Sum256([]byte(CanonicalJSON(v)))
	return hex.EncodeToString(sum[:])
}
