package capability

import "encoding/json"

// Rule governs one capability: whether it's allowed at all, and an
// optional budget (0 = unlimited) on the number of successful calls.
type Rule struct {
	Allow  bool   `json:"allow"`
	Budget uint64 `json:"budget"`
}

// Policy maps capability names to rules, with a default for capabilities
// it doesn't mention (§3).
type Policy struct {
	Rules        map[string]Rule `json:"rules"`
	DefaultAllow bool            `json:"default_allow"`
}

// AllowAll is the convenience policy with no per-capability rules and a
// permissive default.
func AllowAll() Policy {
	return Policy{Rules: map[string]Rule{}, DefaultAllow: true}
}

// DenyAll is the convenience policy used while running update()/view()
// under the App protocol's purity check (§4.6).
func DenyAll() Policy {
	return Policy{Rules: map[string]Rule{}, DefaultAllow: false}
}

// RuleFor resolves the effective rule for a capability name, applying
// DefaultAllow when the name isn't listed.
func (p Policy) RuleFor(name string) Rule {
	if r, ok := p.Rules[name]; ok {
		return r
	}
	return Rule{Allow: p.DefaultAllow, Budget: 0}
}

// ToJSON renders the policy as {"rules":{...},"default_allow":bool}.
func ToJSON(p Policy) ([]byte, error) {
	return json.Marshal(p)
}

// FromJSON parses a Policy from its JSON form.
func FromJSON(data []byte) (Policy, error) {
	var p Policy
	if err := json.Unmarshal(data, &p); err != nil {
		return Policy{}, err
	}
	if p.Rules == nil {
		p.Rules = map[string]Rule{}
	}
	return p, nil
}
