package capability

import "boruna/internal/value"

// MockEpoch and MockRandom are the fixed fixture values the mock handler
// returns for TimeNow/Random (§9 Open Questions — these must never leak
// into a production Host handler).
const (
	MockEpoch  int64   = 1700000000
	MockRandom float64 = 0.42
)

// MockHandler returns deterministic stub values per capability, grounded
// on the teacher's FFI builtins (internal/foreign/slug_time.go,
// slug_io_http.go) but with their real I/O replaced by fixtures so the
// same Module run twice produces an identical trace.
type MockHandler struct{}

func (MockHandler) Handle(cap Capability, args []value.Value) (value.Value, error) {
	switch cap.ID {
	case TimeNow.ID:
		return value.Int(MockEpoch), nil
	case Random.ID:
		return value.Float(MockRandom), nil
	case NetFetch.ID:
		return value.Str("mock:net.fetch:" + firstArgString(args)), nil
	case FsRead.ID:
		return value.Str("mock:fs.read:" + firstArgString(args)), nil
	case FsWrite.ID:
		return value.Int(int64(len(firstArgString(args)))), nil
	case DbQuery.ID:
		return value.List(nil), nil
	case LlmCall.ID:
		return value.Str("mock:llm.call"), nil
	case UiRender.ID:
		return value.Unit(), nil
	case ActorSpawn.ID, ActorSend.ID:
		return value.Unit(), nil
	default:
		return value.Value{}, &CallError{Cap: cap, Err: ErrUnknownCapability}
	}
}

func firstArgString(args []value.Value) string {
	if len(args) == 0 {
		return ""
	}
	if args[0].Kind == value.KindString {
		return args[0].String
	}
	return args[0].Inspect()
}
