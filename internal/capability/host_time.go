package capability

import (
	"math/rand"
	"time"

	"boruna/internal/value"
)

// HostTimeNow returns the real wall clock in unix seconds. Grounded on
// internal/foreign/slug_time.go's fnTimeClock (there, milliseconds; here,
// seconds, matching the spec's mock fixture unit).
func HostTimeNow([]value.Value) (value.Value, error) {
	return value.Int(time.Now().Unix()), nil
}

// HostRandom returns a real pseudo-random float in [0, 1). Production
// handlers must never fall back to the mock fixture 0.42 (§9).
func HostRandom([]value.Value) (value.Value, error) {
	return value.Float(rand.Float64()), nil
}
