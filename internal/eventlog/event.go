// Package eventlog implements the append-only, versioned EventLog that
// captures the complete observable trace of a run, and the ReplayEngine
// that compares two logs for capability- or full-equivalence (§4.4).
package eventlog

import "boruna/internal/value"

// Kind tags an Event's variant (§3).
type Kind string

const (
	KindCapCall        Kind = "CapCall"
	KindCapResult      Kind = "CapResult"
	KindActorSpawn     Kind = "ActorSpawn"
	KindMessageSend    Kind = "MessageSend"
	KindMessageReceive Kind = "MessageReceive"
	KindUiEmit         Kind = "UiEmit"
	KindSchedulerTick  Kind = "SchedulerTick"
)

// Event is one entry of the trace. Only the fields relevant to Kind are
// populated.
type Event struct {
	Kind Kind `json:"kind"`

	// CapCall / CapResult
	CapName string         `json:"cap_name,omitempty"`
	Args    []value.Value  `json:"args,omitempty"`
	Result  *value.Value   `json:"result,omitempty"`

	// ActorSpawn
	ActorID      uint64 `json:"actor_id,omitempty"`
	FunctionName string `json:"function_name,omitempty"`

	// MessageSend / MessageReceive
	From    uint64       `json:"from,omitempty"`
	To      uint64       `json:"to,omitempty"`
	Payload *value.Value `json:"payload,omitempty"`

	// UiEmit
	UiTree *value.Value `json:"ui_tree,omitempty"`

	// SchedulerTick
	Round       int    `json:"round,omitempty"`
	ActiveActor uint64 `json:"active_actor,omitempty"`
}

func CapCall(capName string, args []value.Value) Event {
	return Event{Kind: KindCapCall, CapName: capName, Args: args}
}

func CapResult(capName string, result value.Value) Event {
	r := result
	return Event{Kind: KindCapResult, CapName: capName, Result: &r}
}

func ActorSpawn(actorID uint64, functionName string) Event {
	return Event{Kind: KindActorSpawn, ActorID: actorID, FunctionName: functionName}
}

func MessageSend(from, to uint64, payload value.Value) Event {
	p := payload
	return Event{Kind: KindMessageSend, From: from, To: to, Payload: &p}
}

func MessageReceive(actorID uint64, payload value.Value) Event {
	p := payload
	return Event{Kind: KindMessageReceive, ActorID: actorID, Payload: &p}
}

func UiEmit(tree value.Value) Event {
	t := tree
	return Event{Kind: KindUiEmit, UiTree: &t}
}

func SchedulerTick(round int, activeActor uint64) Event {
	return Event{Kind: KindSchedulerTick, Round: round, ActiveActor: activeActor}
}
