// Package capability implements the closed Capability enum, the Policy
// that governs which capabilities may be invoked and at what budget, and
// the CapabilityGateway that mediates every side effect a VM performs
// (§3, §4.2).
package capability

// Capability is a named permission to invoke a side effect. ID/Name are
// part of the ABI (§3) — both are fixed, never reassigned.
type Capability struct {
	ID   int
	Name string
}

var (
	NetFetch   = Capability{0, "net.fetch"}
	FsRead     = Capability{1, "fs.read"}
	FsWrite    = Capability{2, "fs.write"}
	DbQuery    = Capability{3, "db.query"}
	UiRender   = Capability{4, "ui.render"}
	TimeNow    = Capability{5, "time.now"}
	Random     = Capability{6, "random"}
	LlmCall    = Capability{7, "llm.call"}
	ActorSpawn = Capability{8, "actor.spawn"}
	ActorSend  = Capability{9, "actor.send"}
)

var all = []Capability{NetFetch, FsRead, FsWrite, DbQuery, UiRender, TimeNow, Random, LlmCall, ActorSpawn, ActorSend}

var byID = func() map[int]Capability {
	m := make(map[int]Capability, len(all))
	for _, c := range all {
		m[c.ID] = c
	}
	return m
}()

var byName = func() map[string]Capability {
	m := make(map[string]Capability, len(all))
	for _, c := range all {
		m[c.Name] = c
	}
	return m
}()

// legacyAliases maps a shorthand name accepted for parsing onto its
// canonical dotted form (§6: "Some accept a legacy alias... for parsing;
// emission always uses the canonical dotted form").
var legacyAliases = map[string]string{
	"net":    "net.fetch",
	"fs":     "fs.read",
	"db":     "db.query",
	"ui":     "ui.render",
	"time":   "time.now",
	"llm":    "llm.call",
	"spawn":  "actor.spawn",
	"send":   "actor.send",
}

// ByID looks up a Capability by its ABI id.
func ByID(id int) (Capability, bool) {
	c, ok := byID[id]
	return c, ok
}

// ByName looks up a Capability by its dotted name, accepting legacy
// aliases for parsing.
func ByName(name string) (Capability, bool) {
	if c, ok := byName[name]; ok {
		return c, true
	}
	if canon, ok := legacyAliases[name]; ok {
		return byName[canon], true
	}
	return Capability{}, false
}

// All returns every capability in ABI id order.
func All() []Capability {
	out := make([]Capability, len(all))
	copy(out, all)
	return out
}
