package capability

import (
	"errors"
	"testing"

	"boruna/internal/eventlog"
	"boruna/internal/value"
)

func TestByNameLegacyAlias(t *testing.T) {
	c, ok := ByName("net")
	if !ok || c.Name != "net.fetch" {
		t.Errorf("expected legacy alias net -> net.fetch, got %+v ok=%v", c, ok)
	}
}

func TestGatewayDeniesByDefault(t *testing.T) {
	log := eventlog.New()
	gw := NewGateway(DenyAll(), MockHandler{}, log)

	_, err := gw.Call(NetFetch, []value.Value{value.Str("http://x")})
	if !errors.Is(err, ErrCapabilityDenied) {
		t.Fatalf("expected ErrCapabilityDenied, got %v", err)
	}
	if len(log.Events) != 0 {
		t.Errorf("denied call must not log anything, got %d events", len(log.Events))
	}
}

func TestGatewayLogsCallAndResult(t *testing.T) {
	log := eventlog.New()
	gw := NewGateway(AllowAll(), MockHandler{}, log)

	v, err := gw.Call(TimeNow, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Int != MockEpoch {
		t.Errorf("expected mock epoch, got %v", v)
	}
	if len(log.Events) != 2 {
		t.Fatalf("expected CapCall+CapResult, got %d events", len(log.Events))
	}
	if log.Events[0].Kind != eventlog.KindCapCall || log.Events[1].Kind != eventlog.KindCapResult {
		t.Errorf("unexpected event kinds: %v %v", log.Events[0].Kind, log.Events[1].Kind)
	}
}

func TestBudgetMonotonicity(t *testing.T) {
	policy := Policy{Rules: map[string]Rule{"time.now": {Allow: true, Budget: 2}}, DefaultAllow: false}
	log := eventlog.New()
	gw := NewGateway(policy, MockHandler{}, log)

	for i := 0; i < 2; i++ {
		if _, err := gw.Call(TimeNow, nil); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i+1, err)
		}
	}
	if _, err := gw.Call(TimeNow, nil); !errors.Is(err, ErrCapabilityBudgetExceeded) {
		t.Fatalf("expected budget exceeded on 3rd call, got %v", err)
	}
}

func TestReplayHandlerExhaustion(t *testing.T) {
	log := eventlog.New()
	log.Append(eventlog.CapResult("time.now", value.Int(1)))
	rh := NewReplayHandlerFromLog(log)

	if _, err := rh.Handle(TimeNow, nil); err != nil {
		t.Fatalf("unexpected error on first replay: %v", err)
	}
	if _, err := rh.Handle(TimeNow, nil); !errors.Is(err, ErrReplayExhausted) {
		t.Fatalf("expected ErrReplayExhausted, got %v", err)
	}
}
