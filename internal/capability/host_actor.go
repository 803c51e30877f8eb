package capability

import (
	"errors"

	"boruna/internal/value"
)

// ErrActorCapabilityUnsupported is returned by the host handler's
// ActorSpawn/ActorSend fallbacks. Those two capabilities are opcode-level
// and scheduler-mediated in normal execution (§4.2); these entries exist
// only so a Module run outside an ActorSystem (e.g. a framework effect
// executed by the Host EffectExecutor with no actor context) gets a clear
// error rather than a nil-pointer fault.
var ErrActorCapabilityUnsupported = errors.New("actor.spawn/actor.send require an ActorSystem; not available via the capability gateway")

func hostActorFallback([]value.Value) (value.Value, error) {
	return value.Value{}, ErrActorCapabilityUnsupported
}
