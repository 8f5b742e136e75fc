package domain

import (
	"encoding/json"
	"math"
	"testing"
)

func TestEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same ints", Int(3), Int(3), true},
		{"int vs float", Int(1), Float(1.0), true},
		{"int vs fractional float", Int(1), Float(1.5), false},
		{"bool vs int", Bool(true), Int(1), false},
		{"null vs null", Null(), Null(), true},
		{"null vs empty list", Null(), List(), false},
		{"nan", Float(math.NaN()), Float(math.NaN()), false},
		{"list order", List(Int(0), Int(1)), List(Int(1), Int(0)), false},
		{"list length", List(Int(0)), List(Int(0), Int(0)), false},
		{"nested", List(List(Str("a")), Int(1)), List(List(Str("a")), Float(1)), true},
		{"map same", Map(map[string]Value{"a": Int(1)}), Map(map[string]Value{"a": Int(1)}), true},
		{"map extra key", Map(map[string]Value{"a": Int(1)}), Map(map[string]Value{"a": Int(1), "b": Null()}), false},
		{"string vs list", Str("ab"), List(Str("a"), Str("b")), false},
		{"large int vs float", Int(math.MaxInt64), Float(math.MaxInt64), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Equal(tc.a, tc.b); got != tc.want {
				t.Errorf("Equal(%s, %s) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
			if got := Equal(tc.b, tc.a); got != tc.want {
				t.Errorf("Equal is not symmetric for %s, %s", tc.a, tc.b)
			}
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	inner := []Value{Int(1), Int(2)}
	original := List(List(inner...), Map(map[string]Value{"k": Str("v")}))
	clone := original.Clone()
	if !Equal(original, clone) {
		t.Fatalf("clone %s differs from %s", clone, original)
	}
	inner[0] = Int(99)
	clone.list[0].list[0] = Int(42)
	if original.Items()[0].Items()[0].IntVal() != 1 {
		t.Errorf("original changed: %s", original)
	}
}

func TestListCopiesInput(t *testing.T) {
	items := []Value{Int(1)}
	v := List(items...)
	items[0] = Int(2)
	if v.Items()[0].IntVal() != 1 {
		t.Errorf("List shares its backing array")
	}
}

func TestJSONEncoding(t *testing.T) {
	v := Map(map[string]Value{
		"b": List(Int(1), Float(2), Float(0.5)),
		"a": Null(),
		"c": Str("x\"y"),
	})
	want := `{"a":null,"b":[1,2.0,0.5],"c":"x\"y"}`
	if got := v.String(); got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
	if got := Float(math.Inf(-1)).String(); got != `"-Infinity"` {
		t.Errorf("-Inf = %s", got)
	}
}

func TestJSONDecodeKeepsKinds(t *testing.T) {
	var v Value
	if err := json.Unmarshal([]byte(`[1, 1.0, 2e3, "s", true, null, {"k": [3]}]`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	items := v.Items()
	wantKinds := []Kind{KindInt, KindFloat, KindFloat, KindString, KindBool, KindNull, KindMap}
	for i, k := range wantKinds {
		if items[i].Kind() != k {
			t.Errorf("item %d kind = %s, want %s", i, items[i].Kind(), k)
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `[1,1.0,2000.0,"s",true,null,{"k":[3]}]` {
		t.Errorf("re-encoded = %s", data)
	}
}

func TestFromAnyYAMLShapes(t *testing.T) {
	v, err := FromAny(map[interface{}]interface{}{"n": 3, "xs": []interface{}{"a", 1.5}})
	if err != nil {
		t.Fatalf("FromAny: %v", err)
	}
	want := Map(map[string]Value{"n": Int(3), "xs": List(Str("a"), Float(1.5))})
	if !Equal(v, want) {
		t.Errorf("got %s, want %s", v, want)
	}
	if _, err := FromAny(struct{}{}); err == nil {
		t.Error("expected error for struct input")
	}
}

func TestRestoreNonFinite(t *testing.T) {
	var decoded Value
	if err := json.Unmarshal([]byte(`[1.5,"NaN",{"hi":"Infinity","lo":"-Infinity"},"nan"]`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := decoded.RestoreNonFinite()
	items := got.Items()
	if items[1].Kind() != KindFloat || !math.IsNaN(items[1].FloatVal()) {
		t.Errorf("NaN = %s (%s)", items[1], items[1].Kind())
	}
	hi, _ := items[2].Get("hi")
	lo, _ := items[2].Get("lo")
	if !math.IsInf(hi.FloatVal(), 1) || !math.IsInf(lo.FloatVal(), -1) {
		t.Errorf("infinities = %s, %s", hi, lo)
	}
	if items[3].Kind() != KindString {
		t.Errorf("only the exact markers convert, got %s", items[3].Kind())
	}
	if decoded.Items()[1].Kind() != KindString {
		t.Error("RestoreNonFinite changed its receiver")
	}
}
