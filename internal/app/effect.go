package app

import "boruna/internal/value"

// Effect kinds recognized by the EffectExecutor contract (§4.7). Each maps
// to exactly one Capability; emit_ui (ui.render) is fire-and-forget and
// produces no callback.
const (
	EffectHTTPRequest = "http_request"
	EffectDBQuery     = "db_query"
	EffectFSRead      = "fs_read"
	EffectFSWrite     = "fs_write"
	EffectTimer       = "timer"
	EffectRandom      = "random"
	EffectSpawnActor  = "spawn_actor"
	EffectEmitUI      = "emit_ui"
	EffectLLMCall     = "llm_call"
	EffectSendToActor = "send_to_actor"
)

// capabilityNameByEffect maps an effect kind to the dotted capability name
// that executes it (§4.7).
var capabilityNameByEffect = map[string]string{
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

// CapabilityNameForEffect resolves the capability an effect kind exercises.
func CapabilityNameForEffect(kind string) (string, bool) {
	name, ok := capabilityNameByEffect[kind]
	return name, ok
}

// Effect is one entry of the effect batch update() returns: a Record with
// three positional fields [kind: String, payload: Value, callback_tag:
// String] (§4.6).
type Effect struct {
	Kind        string
	Payload     value.Value
	CallbackTag string
}

// ParseEffect decodes one effect Record.
func ParseEffect(v value.Value) (Effect, error) {
	if v.Kind != value.KindRecord || len(v.Fields) < 3 {
		return Effect{}, effectErr("update() must return [state, effects]")
	}
	kind := v.Fields[0]
	tag := v.Fields[2]
	if kind.Kind != value.KindString || tag.Kind != value.KindString {
		return Effect{}, effectErr("update() must return [state, effects]")
	}
	return Effect{Kind: kind.String, Payload: v.Fields[1], CallbackTag: tag.String}, nil
}

// ParseEffects decodes the List<Record> update() returns as its second
// result field.
func ParseEffects(v value.Value) ([]Effect, error) {
	if v.Kind != value.KindList {
		return nil, effectErr("update() must return [state, effects]")
	}
	out := make([]Effect, 0, len(v.List))
	for _, e := range v.List {
		eff, err := ParseEffect(e)
		if err != nil {
			return nil, err
		}
		out = append(out, eff)
	}
	return out, nil
}

// effectArgs builds the Gateway.Call argument list for an effect: timer
// and random take none; everything else forwards its payload, unpacking a
// List or Record payload into the underlying call's positional arguments
// (§4.7 "builds args from payload").
func effectArgs(e Effect) []value.Value {
	switch e.Kind {
	case EffectTimer, EffectRandom:
		return nil
	}
	switch e.Payload.Kind {
	case value.KindList:
		return e.Payload.List
	case value.KindRecord:
		return e.Payload.Fields
	default:
		return []value.Value{e.Payload}
	}
}
