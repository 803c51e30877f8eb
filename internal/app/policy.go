package app

import "boruna/internal/value"

// PolicySet bounds what an App's effects may do: which capabilities its
// effects may exercise, how many effects a single update() may emit, and
// the VM step budget for each protocol-function call (§4.6).
type PolicySet struct {
	Capabilities []string
	MaxEffects   int
	MaxSteps     int
}

// DefaultPolicySet is used when a module doesn't define policies() (an
// Open Question the spec leaves to the implementation: every known
// capability is permitted and generous batch/step ceilings apply, so an
// app that never calls policies() behaves like one with no restrictions
// beyond the protocol's inherent purity rule).
func DefaultPolicySet() PolicySet {
	return PolicySet{
		Capabilities: []string{
			"net.fetch", "fs.read", "fs.write", "db.query", "ui.render",
			"time.now", "random", "llm.call", "actor.spawn", "actor.send",
		},
		MaxEffects: 100,
		MaxSteps:   100000,
	}
}

// Allows reports whether capName is permitted by this PolicySet.
func (p PolicySet) Allows(capName string) bool {
	for _, c := range p.Capabilities {
		if c == capName {
			return true
		}
	}
	return false
}

// ParsePolicySet reads the Record a policies() function returns:
// {capabilities: List<String>, max_effects: Int, max_steps: Int},
// positionally fields[0]/[1]/[2].
func ParsePolicySet(v value.Value) (PolicySet, error) {
	if v.Kind != value.KindRecord || len(v.Fields) < 3 {
		return PolicySet{}, effectErr("policies() must return {capabilities, max_effects, max_steps}")
	}
	capsField := v.Fields[0]
	if capsField.Kind != value.KindList {
		return PolicySet{}, effectErr("policies().capabilities must be a List")
	}
	caps := make([]string, 0, len(capsField.List))
	for _, c := range capsField.List {
		if c.Kind != value.KindString {
			return PolicySet{}, effectErr("policies().capabilities must be a List of String")
		}
		caps = append(caps, c.String)
	}
	maxEffects := v.Fields[1]
	maxSteps := v.Fields[2]
	if maxEffects.Kind != value.KindInt || maxSteps.Kind != value.KindInt {
		return PolicySet{}, effectErr("policies().max_effects/max_steps must be Int")
	}
	return PolicySet{
		Capabilities: caps,
		MaxEffects:   int(maxEffects.Int),
		MaxSteps:     int(maxSteps.Int),
	}, nil
}
