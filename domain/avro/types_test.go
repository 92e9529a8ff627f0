package avro

import (
	"encoding/json"
	"errors"
	"testing"

	"gopfa/domain/core"
)

func TestNewRecord_RejectsDuplicateFields(t *testing.T) {
	_, err := NewRecord("Input", []Field{
		{Name: "X1", Type: Double()},
		{Name: "X1", Type: Double()},
	})
	if !errors.Is(err, core.ErrTypeDefinition) {
		t.Fatalf("expected ErrTypeDefinition, got %v", err)
	}
}

func TestNewRecord_PreservesFieldOrder(t *testing.T) {
	rec, err := NewRecord("Input", []Field{
		{Name: "X2", Type: Double()},
		{Name: "X1", Type: String()},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Fields[0].Name != "X2" || rec.Fields[1].Name != "X1" {
		t.Errorf("field order not preserved: %+v", rec.Fields)
	}
	ft, ok := rec.Field("X1")
	if !ok || ft.Kind() != KindString {
		t.Errorf("Field lookup failed: %v %v", ft, ok)
	}
}

func TestNewEnum_Validation(t *testing.T) {
	tests := []struct {
		name    string
		symbols []string
		wantErr bool
	}{
		{"valid", []string{"a", "b", "c"}, false},
		{"empty set", nil, true},
		{"duplicate symbol", []string{"a", "a"}, true},
		{"empty symbol", []string{"a", ""}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEnum("Classes", tt.symbols)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewEnum(%v) error = %v, wantErr %v", tt.symbols, err, tt.wantErr)
			}
		})
	}
}

func TestNewUnion_RejectsDuplicateTags(t *testing.T) {
	if _, err := NewUnion(Null(), Double(), Double()); !errors.Is(err, core.ErrTypeDefinition) {
		t.Fatalf("expected ErrTypeDefinition, got %v", err)
	}
	if _, err := NewUnion(Null(), Double()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewUnion_RejectsNestedUnion(t *testing.T) {
	inner, _ := NewUnion(Null(), Double())
	if _, err := NewUnion(inner, String()); !errors.Is(err, core.ErrTypeDefinition) {
		t.Fatalf("expected ErrTypeDefinition, got %v", err)
	}
}

func TestEqual_StructuralWithOrder(t *testing.T) {
	a, _ := NewEnum("C", []string{"x", "y"})
	b, _ := NewEnum("C", []string{"x", "y"})
	c, _ := NewEnum("C", []string{"y", "x"})
	if !Equal(a, b) {
		t.Error("identical enums should be equal")
	}
	if Equal(a, c) {
		t.Error("symbol order must be significant")
	}
}

func TestJSONEncoding(t *testing.T) {
	rec, _ := NewRecord("Input", []Field{{Name: "X1", Type: Double()}})
	arr, _ := NewArray(Double())
	un, _ := NewUnion(Null(), String())
	tests := []struct {
		name string
		in   Type
		want string
	}{
		{"primitive", Double(), `"double"`},
		{"record", rec, `{"type":"record","name":"Input","fields":[{"name":"X1","type":"double"}]}`},
		{"array", arr, `{"type":"array","items":"double"}`},
		{"union", un, `["null","string"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.in)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	rec, _ := NewRecord("Input", []Field{
		{Name: "X1", Type: Double()},
		{Name: "Color", Type: String()},
	})
	types := []Type{Double(), rec, Array{Items: Double()}, Map{Values: Double()}}
	for _, typ := range types {
		raw, err := json.Marshal(typ)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		parsed, err := Parse(v)
		if err != nil {
			t.Fatalf("parse %s: %v", raw, err)
		}
		if !Equal(typ, parsed) {
			t.Errorf("round trip changed type: %v -> %v", typ, parsed)
		}
	}
}

func TestParse_RejectsUnknownPrimitive(t *testing.T) {
	if _, err := Parse("decimal128"); !errors.Is(err, core.ErrMalformedDocument) {
		t.Fatalf("expected ErrMalformedDocument, got %v", err)
	}
}

func TestNewFixed_Validation(t *testing.T) {
	f, err := NewFixed("MD5", 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Kind() != KindFixed || f.TypeName() != "MD5" {
		t.Errorf("unexpected fixed identity: %v %s", f.Kind(), f.TypeName())
	}
	if _, err := NewFixed("", 16); !errors.Is(err, core.ErrTypeDefinition) {
		t.Errorf("expected ErrTypeDefinition for empty name, got %v", err)
	}
	if _, err := NewFixed("MD5", 0); !errors.Is(err, core.ErrTypeDefinition) {
		t.Errorf("expected ErrTypeDefinition for zero size, got %v", err)
	}
}
