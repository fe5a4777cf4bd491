package ast

import "testing"

func TestTypeStringAndNewTypeRoundTrip(t *testing.T) {
	builtins := []Type{TypeFloat, TypeInt, TypeBool, TypeVec2, TypeVec3, TypeVec4, TypeString, TypeVoid}
	for _, typ := range builtins {
		name := typ.String()
		if got := NewType(name); got != typ {
			t.Errorf("NewType(%q) = %v, want %v (round-trip through %v.String())", name, got, typ, typ)
		}
	}
}

func TestNewTypeFallsBackToUserDefined(t *testing.T) {
	if got := NewType("MyStruct"); got != TypeUserDefined {
		t.Errorf("NewType(%q) = %v, want TypeUserDefined", "MyStruct", got)
	}
}

func TestTypeUnknownStringsAsUnknown(t *testing.T) {
	if got := TypeUnknown.String(); got != "unknown" {
		t.Errorf("TypeUnknown.String() = %q, want %q", got, "unknown")
	}
	if got := TypeUserDefined.String(); got != "user-defined" {
		t.Errorf("TypeUserDefined.String() = %q, want %q", got, "user-defined")
	}
}
