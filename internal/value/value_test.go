package value

import (
	"encoding/json"
	"testing"
)

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Unit(), false},
		{None(), false},
		{ErrString("x"), false},
		{Int(0), false},
		{Int(1), true},
		{Str(""), false},
		{Str("a"), true},
		{List(nil), false},
		{List([]Value{Int(1)}), true},
		{Bool(false), false},
		{Some(Unit()), true},
	}
	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("Truthy(%s) = %v, want %v", c.v.Inspect(), got, c.want)
		}
	}
}

func TestEqualStructural(t *testing.T) {
	a := Record(1, []Value{Int(1), Str("x")})
	b := Record(1, []Value{Int(1), Str("x")})
	if !Equal(a, b) {
		t.Errorf("expected equal records")
	}
	c := Record(1, []Value{Int(2), Str("x")})
	if Equal(a, c) {
		t.Errorf("expected unequal records")
	}
}

func TestEqualNaN(t *testing.T) {
	nan := Float(nan())
	if !Equal(nan, nan) {
		t.Errorf("NaN should equal NaN under structural equality (spec §9 decision)")
	}
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestMapDeterministicOrder(t *testing.T) {
	m := Map([]MapEntry{
		{Key: "b", Value: Int(2)},
		{Key: "a", Value: Int(1)},
	})
	sorted := m.SortedEntries()
	if sorted[0].Key != "a" || sorted[1].Key != "b" {
		t.Errorf("expected lexicographic order, got %+v", sorted)
	}
}

func TestCanonicalJSONDeterministic(t *testing.T) {
	m1 := Map([]MapEntry{{Key: "b", Value: Int(2)}, {Key: "a", Value: Int(1)}})
	m2 := Map([]MapEntry{{Key: "a", Value: Int(1)}, {Key: "b", Value: Int(2)}})
	if CanonicalJSON(m1) != CanonicalJSON(m2) {
		t.Errorf("canonical JSON must not depend on entry insertion order")
	}
}

func TestValueJSONRoundTrip(t *testing.T) {
	original := List([]Value{
		Int(5), Str("hi"), Some(Bool(true)), ErrString("bad"),
		Record(3, []Value{Int(1)}),
		Enum(2, 1, ptr(Str("payload"))),
		Map([]MapEntry{{Key: "k", Value: Float(1.5)}}),
		ActorIDValue(7),
		FnRef(2),
	})

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Value
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !Equal(original, decoded) {
		t.Errorf("round trip mismatch:\n got %s\nwant %s", decoded.Inspect(), original.Inspect())
	}
}

func ptr(v Value) *Value { return &v }
