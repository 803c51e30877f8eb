package value

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CanonicalJSON renders v as a deterministic JSON string: each variant's
// wrapper keys are emitted in a fixed per-variant order and Map entries
// are emitted sorted lexicographically by key, so two structurally equal
// Values always produce byte-identical output. EventLog fingerprints are
// built from this form (spec §9 Open Questions: Map ordering is
// normative).
func CanonicalJSON(v Value) string {
	var b strings.Builder
	writeCanonical(&b, v)
	return b.String()
}

func writeCanonical(b *strings.Builder, v Value) {
	switch v.Kind {
	case KindUnit:
		b.WriteString(`{"type":"Unit"}`)
	case KindBool:
		fmt.Fprintf(b, `{"type":"Bool","value":%t}`, v.Bool)
	case KindInt:
		fmt.Fprintf(b, `{"type":"Int","value":%d}`, v.Int)
	case KindFloat:
		fmt.Fprintf(b, `{"type":"Float","value":%s}`, canonicalFloat(v.Float))
	case KindString:
		fmt.Fprintf(b, `{"type":"String","value":%s}`, jsonString(v.String))
	case KindNone:
		b.WriteString(`{"type":"None"}`)
	case KindSome:
		b.WriteString(`{"type":"Some","value":`)
		writeCanonical(b, *v.Inner)
		b.WriteString(`}`)
	case KindOk:
		b.WriteString(`{"type":"Ok","value":`)
		writeCanonical(b, *v.Inner)
		b.WriteString(`}`)
	case KindErr:
		b.WriteString(`{"type":"Err","value":`)
		writeCanonical(b, *v.Inner)
		b.WriteString(`}`)
	case KindRecord:
		fmt.Fprintf(b, `{"type":"Record","type_id":%d,"fields":[`, v.TypeID)
		for i, f := range v.Fields {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, f)
		}
		b.WriteString(`]}`)
	case KindEnum:
		fmt.Fprintf(b, `{"type":"Enum","type_id":%d,"variant":%d,"payload":`, v.TypeID, v.Variant)
		if v.Payload != nil {
			writeCanonical(b, *v.Payload)
		} else {
			b.WriteString("null")
		}
		b.WriteString(`}`)
	case KindList:
		b.WriteString(`{"type":"List","items":[`)
		for i, e := range v.List {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, e)
		}
		b.WriteString(`]}`)
	case KindMap:
		b.WriteString(`{"type":"Map","entries":[`)
		for i, e := range v.SortedEntries() {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(b, `{"key":%s,"value":`, jsonString(e.Key))
			writeCanonical(b, e.Value)
			b.WriteString(`}`)
		}
		b.WriteString(`]}`)
	case KindActorID:
		fmt.Fprintf(b, `{"type":"ActorId","value":%d}`, v.ActorID)
	case KindFnRef:
		fmt.Fprintf(b, `{"type":"FnRef","value":%d}`, v.FnIndex)
	default:
		b.WriteString(`{"type":"Unit"}`)
	}
}

func canonicalFloat(f float64) string {
	if f != f { // NaN
		return `"NaN"`
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func jsonString(s string) string {
	enc, _ := json.Marshal(s)
	return string(enc)
}

// wireValue is the (de)serialization shape shared with Module/constant
// JSON encoding — a plain tagged object, not the canonical string form.
type wireValue struct {
	Type    string      `json:"type"`
	Value   *wireValue  `json:"value,omitempty"`
	Bool    *bool       `json:"bool,omitempty"`
	Int     *int64      `json:"int,omitempty"`
	Float   *float64    `json:"float,omitempty"`
	String  *string     `json:"string,omitempty"`
	TypeID  *uint16     `json:"type_id,omitempty"`
	Fields  []wireValue `json:"fields,omitempty"`
	Variant *uint8      `json:"variant,omitempty"`
	Payload *wireValue  `json:"payload,omitempty"`
	Items   []wireValue `json:"items,omitempty"`
	Entries []wireEntry `json:"entries,omitempty"`
	ActorID *uint64     `json:"actor_id,omitempty"`
	FnIndex *int        `json:"fn_index,omitempty"`
}

type wireEntry struct {
	Key   string    `json:"key"`
	Value wireValue `json:"value"`
}

// FromJSON parses a Value from its tagged-object wire form (the same form
// MarshalJSON/UnmarshalJSON use), for callers that don't already hold a
// Value to unmarshal into (e.g. StateMachine.Restore).
func FromJSON(data []byte) (Value, error) {
	var v Value
	if err := json.Unmarshal(data, &v); err != nil {
		return Value{}, err
	}
	return v, nil
}

// MarshalJSON implements json.Marshaler with the tagged-object wire form.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(toWire(v))
}

// UnmarshalJSON implements json.Unmarshaler with the tagged-object wire form.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out, err := fromWire(w)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func toWire(v Value) wireValue {
	switch v.Kind {
	case KindUnit:
		return wireValue{Type: "Unit"}
	case KindBool:
		b := v.Bool
		return wireValue{Type: "Bool", Bool: &b}
	case KindInt:
		i := v.Int
		return wireValue{Type: "Int", Int: &i}
	case KindFloat:
		f := v.Float
		return wireValue{Type: "Float", Float: &f}
	case KindString:
		s := v.String
		return wireValue{Type: "String", String: &s}
	case KindNone:
		return wireValue{Type: "None"}
	case KindSome:
		inner := toWire(*v.Inner)
		return wireValue{Type: "Some", Value: &inner}
	case KindOk:
		inner := toWire(*v.Inner)
		return wireValue{Type: "Ok", Value: &inner}
	case KindErr:
		inner := toWire(*v.Inner)
		return wireValue{Type: "Err", Value: &inner}
	case KindRecord:
		typeID := v.TypeID
		fields := make([]wireValue, len(v.Fields))
		for i, f := range v.Fields {
			fields[i] = toWire(f)
		}
		return wireValue{Type: "Record", TypeID: &typeID, Fields: fields}
	case KindEnum:
		typeID := v.TypeID
		variant := v.Variant
		w := wireValue{Type: "Enum", TypeID: &typeID, Variant: &variant}
		if v.Payload != nil {
			p := toWire(*v.Payload)
			w.Payload = &p
		}
		return w
	case KindList:
		items := make([]wireValue, len(v.List))
		for i, e := range v.List {
			items[i] = toWire(e)
		}
		return wireValue{Type: "List", Items: items}
	case KindMap:
		entries := make([]wireEntry, len(v.Entries))
		for i, e := range v.Entries {
			entries[i] = wireEntry{Key: e.Key, Value: toWire(e.Value)}
		}
		return wireValue{Type: "Map", Entries: entries}
	case KindActorID:
		id := v.ActorID
		return wireValue{Type: "ActorId", ActorID: &id}
	case KindFnRef:
		idx := v.FnIndex
		return wireValue{Type: "FnRef", FnIndex: &idx}
	default:
		return wireValue{Type: "Unit"}
	}
}

func fromWire(w wireValue) (Value, error) {
	switch w.Type {
	case "Unit", "":
		return Unit(), nil
	case "Bool":
		if w.Bool == nil {
			return Value{}, fmt.Errorf("value: Bool missing bool field")
		}
		return Bool(*w.Bool), nil
	case "Int":
		if w.Int == nil {
			return Value{}, fmt.Errorf("value: Int missing int field")
		}
		return Int(*w.Int), nil
	case "Float":
		if w.Float == nil {
			return Value{}, fmt.Errorf("value: Float missing float field")
		}
		return Float(*w.Float), nil
	case "String":
		if w.String == nil {
			return Value{}, fmt.Errorf("value: String missing string field")
		}
		return Str(*w.String), nil
	case "None":
		return None(), nil
	case "Some":
		if w.Value == nil {
			return Value{}, fmt.Errorf("value: Some missing value field")
		}
		inner, err := fromWire(*w.Value)
		if err != nil {
			return Value{}, err
		}
		return Some(inner), nil
	case "Ok":
		if w.Value == nil {
			return Value{}, fmt.Errorf("value: Ok missing value field")
		}
		inner, err := fromWire(*w.Value)
		if err != nil {
			return Value{}, err
		}
		return Ok(inner), nil
	case "Err":
		if w.Value == nil {
			return Value{}, fmt.Errorf("value: Err missing value field")
		}
		inner, err := fromWire(*w.Value)
		if err != nil {
			return Value{}, err
		}
		return Err(inner), nil
	case "Record":
		if w.TypeID == nil {
			return Value{}, fmt.Errorf("value: Record missing type_id")
		}
		fields := make([]Value, len(w.Fields))
		for i, f := range w.Fields {
			fv, err := fromWire(f)
			if err != nil {
				return Value{}, err
			}
			fields[i] = fv
		}
		return Record(*w.TypeID, fields), nil
	case "Enum":
		if w.TypeID == nil || w.Variant == nil {
			return Value{}, fmt.Errorf("value: Enum missing type_id/variant")
		}
		var payload *Value
		if w.Payload != nil {
			pv, err := fromWire(*w.Payload)
			if err != nil {
				return Value{}, err
			}
			payload = &pv
		}
		return Enum(*w.TypeID, *w.Variant, payload), nil
	case "List":
		items := make([]Value, len(w.Items))
		for i, it := range w.Items {
			iv, err := fromWire(it)
			if err != nil {
				return Value{}, err
			}
			items[i] = iv
		}
		return List(items), nil
	case "Map":
		entries := make([]MapEntry, len(w.Entries))
		for i, e := range w.Entries {
			ev, err := fromWire(e.Value)
			if err != nil {
				return Value{}, err
			}
			entries[i] = MapEntry{Key: e.Key, Value: ev}
		}
		return Map(entries), nil
	case "ActorId":
		if w.ActorID == nil {
			return Value{}, fmt.Errorf("value: ActorId missing actor_id")
		}
		return ActorIDValue(*w.ActorID), nil
	case "FnRef":
		if w.FnIndex == nil {
			return Value{}, fmt.Errorf("value: FnRef missing fn_index")
		}
		return FnRef(*w.FnIndex), nil
	default:
		return Value{}, fmt.Errorf("value: unknown wire type %q", w.Type)
	}
}
