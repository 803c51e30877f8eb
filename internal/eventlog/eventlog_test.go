package eventlog

import (
	"testing"

	"boruna/internal/value"
)

func TestVersionDefaultsToOne(t *testing.T) {
	log, err := FromJSON([]byte(`{"events":[]}`))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if log.Version != 1 {
		t.Errorf("expected default version 1, got %d", log.Version)
	}
}

func TestVersionRejectsTooNew(t *testing.T) {
	_, err := FromJSON([]byte(`{"version":99,"events":[]}`))
	if err == nil {
		t.Errorf("expected rejection of log version beyond max supported")
	}
}

func TestReplayVerifyIdenticalOnSelf(t *testing.T) {
	log := New()
	log.Append(CapCall("time.now", nil))
	log.Append(CapResult("time.now", value.Int(1700000000)))
	log.Append(SchedulerTick(0, 0))

	if v := VerifyFullyEquivalent(log, log); v.Diverged {
		t.Errorf("expected identical verdict, got diverged: %s", v.Reason)
	}
	if v := VerifyCapabilityEquivalent(log, log); v.Diverged {
		t.Errorf("expected identical verdict, got diverged: %s", v.Reason)
	}
}

func TestReplayVerifyDivergesOnDifferentArgs(t *testing.T) {
	a := New()
	a.Append(CapCall("net.fetch", []value.Value{value.Str("http://x")}))
	b := New()
	b.Append(CapCall("net.fetch", []value.Value{value.Str("http://y")}))

	v := VerifyCapabilityEquivalent(a, b)
	if !v.Diverged {
		t.Errorf("expected divergence for different CapCall args")
	}
}
