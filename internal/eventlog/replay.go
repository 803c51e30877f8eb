package eventlog

import (
	"fmt"

	"boruna/internal/value"
)

// Verdict is the result of comparing two logs: the zero value means
// Identical; a non-empty Reason means Diverged, pinpointing the first
// differing position (§4.4).
type Verdict struct {
	Diverged bool
	Reason   string
}

// Identical reports whether v represents an Identical verdict.
func (v Verdict) Identical() bool { return !v.Diverged }

func identical() Verdict            { return Verdict{} }
func diverged(reason string) Verdict { return Verdict{Diverged: true, Reason: reason} }

// VerifyCapabilityEquivalent implements the "Capability-equivalent"
// relation: the subsequences of CapCall events (name + args) must be
// identical in order.
func VerifyCapabilityEquivalent(a, b *EventLog) Verdict {
	ac, bc := a.CapCalls(), b.CapCalls()
	if len(ac) != len(bc) {
		return diverged(fmt.Sprintf("CapCall count differs: %d vs %d", len(ac), len(bc)))
	}
	for i := range ac {
		if ac[i].CapName != bc[i].CapName {
			return diverged(fmt.Sprintf("CapCall[%d] name differs: %q vs %q", i, ac[i].CapName, bc[i].CapName))
		}
		if !argsEqual(ac[i].Args, bc[i].Args) {
			return diverged(fmt.Sprintf("CapCall[%d] args differ for %q", i, ac[i].CapName))
		}
	}
	return identical()
}

// VerifyFullyEquivalent implements the "Fully equivalent" relation: every
// event matches byte-for-byte when serialized in canonical form.
func VerifyFullyEquivalent(a, b *EventLog) Verdict {
	if len(a.Events) != len(b.Events) {
		return diverged(fmt.Sprintf("event count differs: %d vs %d", len(a.Events), len(b.Events)))
	}
	for i := range a.Events {
		af, bf := fingerprintEvent(a.Events[i]), fingerprintEvent(b.Events[i])
		if af != bf {
			return diverged(fmt.Sprintf("event[%d] (%s) diverged", i, a.Events[i].Kind))
		}
	}
	return identical()
}

func argsEqual(a, b []value.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !value.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// fingerprintEvent canonicalizes an event into a single comparable string,
// rendering each Value field through value.CanonicalJSON rather than
// comparing Go structs directly — an event with identical observable
// content but different (unexported) internal layout must still compare
// equal (§ Supplemented features: SPEC_FULL, grounded on original_source's
// fingerprint.rs).
func fingerprintEvent(e Event) string {
	s := string(e.Kind) + "|" + e.CapName + "|"
	for _, a := range e.Args {
		s += value.CanonicalJSON(a) + ","
	}
	s += "|"
	if e.Result != nil {
		s += value.CanonicalJSON(*e.Result)
	}
	s += fmt.Sprintf("|%d|%s|%d|%d|", e.ActorID, e.FunctionName, e.From, e.To)
	if e.Payload != nil {
		s += value.CanonicalJSON(*e.Payload)
	}
	s += "|"
	if e.UiTree != nil {
		s += value.CanonicalJSON(*e.UiTree)
	}
	s += fmt.Sprintf("|%d|%d", e.Round, e.ActiveActor)
	return s
}
