package capability

import "boruna/internal/value"

// HostHandler dispatches each capability to its real backend — the
// production counterpart to MockHandler/ReplayHandler. UiRender is
// handled by the EffectExecutor (app package) for the framework path and
// by the VM's EmitUi opcode directly for raw bytecode; when routed here
// (e.g. a framework effect calling through the gateway) it simply
// succeeds with Unit, matching "fire-and-forget: no callback" (§4.6).
type HostHandler struct {
	DB  *DBHandler
	Llm *HostLlmCall
}

func NewHostHandler(db *DBHandler, llm *HostLlmCall) *HostHandler {
	return &HostHandler{DB: db, Llm: llm}
}

func (h *HostHandler) Handle(cap Capability, args []value.Value) (value.Value, error) {
	switch cap.ID {
	case NetFetch.ID:
		return HostNetFetch(args)
	case FsRead.ID:
		return HostFsRead(args)
	case FsWrite.ID:
		return HostFsWrite(args)
	case DbQuery.ID:
		return h.DB.Query(args)
	case TimeNow.ID:
		return HostTimeNow(args)
	case Random.ID:
		return HostRandom(args)
	case LlmCall.ID:
		if h.Llm == nil {
			return value.Value{}, &CallError{Cap: cap, Err: ErrUnknownCapability}
		}
		return h.Llm.Call(args)
	case UiRender.ID:
		return value.Unit(), nil
	case ActorSpawn.ID, ActorSend.ID:
		return hostActorFallback(args)
	default:
		return value.Value{}, &CallError{Cap: cap, Err: ErrUnknownCapability}
	}
}
