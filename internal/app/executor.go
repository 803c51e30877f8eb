package app

import (
	"time"

	"boruna/internal/bounded"
	"boruna/internal/capability"
	"boruna/internal/value"
)

// DefaultEffectTimeout bounds how long a single Host effect call may block
// (§5 Concurrency & Resource Model: the VM's round loop is deterministic
// and single-threaded, but a Host capability's underlying I/O is real and
// can hang; the executor — which runs outside any VM step budget — is
// where that's bounded).
const DefaultEffectTimeout = 30 * time.Second

// EffectExecutor is the single-method contract execute(effects) →
// []AppMessage (§4.7): it turns a batch of effects into the callback
// messages send_with_executor feeds back to update().
type EffectExecutor interface {
	Execute(effects []Effect) ([]AppMessage, error)
}

// MockExecutor answers effects from a fixed callback_tag → Value table,
// for deterministic tests and replay fixtures. emit_ui produces no
// callback; spawn_actor and send_to_actor have dedicated canned responses
// so effect-driven apps are exercisable without a Host gateway attached.
type MockExecutor struct {
	Callbacks map[string]value.Value
	Default   value.Value

	nextActorID uint64
}

// NewMockExecutor builds a MockExecutor with callbacks and a default
// fallback response for any callback_tag not present in callbacks.
func NewMockExecutor(callbacks map[string]value.Value, def value.Value) *MockExecutor {
	return &MockExecutor{Callbacks: callbacks, Default: def}
}

func (m *MockExecutor) Execute(effects []Effect) ([]AppMessage, error) {
	var out []AppMessage
	for _, e := range effects {
		switch e.Kind {
		case EffectEmitUI:
			continue
		case EffectSpawnActor:
			id := m.nextActorID
			m.nextActorID++
			out = append(out, AppMessage{Tag: e.CallbackTag, Payload: value.ActorIDValue(id)})
		case EffectSendToActor:
			out = append(out, AppMessage{Tag: e.CallbackTag, Payload: value.Str("delivered")})
		default:
			if v, ok := m.Callbacks[e.CallbackTag]; ok {
				out = append(out, AppMessage{Tag: e.CallbackTag, Payload: v})
			} else {
				out = append(out, AppMessage{Tag: e.CallbackTag, Payload: m.Default})
			}
		}
	}
	return out, nil
}

// HostExecutor routes each effect to its real Capability through a
// capability.Gateway (§4.7): gateway errors, unsupported effect kinds, and
// calls that outlast Timeout are all turned into String-payload error
// messages rather than propagated, so one failing effect never aborts the
// rest of the batch.
type HostExecutor struct {
	Gateway *capability.Gateway
	Timeout time.Duration
}

func NewHostExecutor(gateway *capability.Gateway) *HostExecutor {
	return &HostExecutor{Gateway: gateway, Timeout: DefaultEffectTimeout}
}

func (h *HostExecutor) Execute(effects []Effect) ([]AppMessage, error) {
	var out []AppMessage
	for _, e := range effects {
		capName, ok := CapabilityNameForEffect(e.Kind)
		if !ok {
			out = append(out, AppMessage{Tag: e.CallbackTag, Payload: value.Str("unsupported effect kind: " + e.Kind)})
			continue
		}
		cap, ok := capability.ByName(capName)
		if !ok {
			out = append(out, AppMessage{Tag: e.CallbackTag, Payload: value.Str("unsupported effect kind: " + e.Kind)})
			continue
		}

		args := effectArgs(e)
		fut := bounded.New(func() (value.Value, error) { return h.Gateway.Call(cap, args) })
		result, err, ok := fut.AwaitTimeout(h.timeout())

		if e.Kind == EffectEmitUI {
			continue
		}
		if !ok {
			out = append(out, AppMessage{Tag: e.CallbackTag, Payload: value.Str("effect error: timed out calling " + capName)})
			continue
		}
		if err != nil {
			out = append(out, AppMessage{Tag: e.CallbackTag, Payload: value.Str("effect error: " + err.Error())})
			continue
		}
		out = append(out, AppMessage{Tag: e.CallbackTag, Payload: result})
	}
	return out, nil
}

func (h *HostExecutor) timeout() time.Duration {
	if h.Timeout <= 0 {
		return DefaultEffectTimeout
	}
	return h.Timeout
}
