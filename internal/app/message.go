package app

import "boruna/internal/value"

// AppMessage is the {tag, payload} pair update() dispatches on, and the
// shape an EffectExecutor's callback results are wrapped in (§4.6, §4.7).
type AppMessage struct {
	Tag     string
	Payload value.Value
}

// ToValue encodes an AppMessage as a Record{String(tag), payload}.
func (m AppMessage) ToValue() value.Value {
	return value.Record(value.AnonListRecordTypeID, []value.Value{value.Str(m.Tag), m.Payload})
}

// AppMessageFromValue decodes the Record a send(msg) caller passes back in,
// or an AppMessage produced by an EffectExecutor callback.
func AppMessageFromValue(v value.Value) (AppMessage, error) {
	if v.Kind != value.KindRecord || len(v.Fields) < 2 {
		return AppMessage{}, effectErr("AppMessage must be a Record{tag, payload}")
	}
	if v.Fields[0].Kind != value.KindString {
		return AppMessage{}, effectErr("AppMessage tag must be a String")
	}
	return AppMessage{Tag: v.Fields[0].String, Payload: v.Fields[1]}, nil
}
