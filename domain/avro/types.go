package avro

import (
	"fmt"
	"reflect"

	"gopfa/domain/core"
)

// Type is an Avro-compatible type descriptor. Implementations are immutable
// value objects; two types are equal iff structurally identical (field order
// significant for records, symbol order significant for enums).
type Type interface {
	// Kind returns the Avro kind tag for this type
	Kind() Kind
	// TypeName returns the Avro name used inside union tags and error messages
	TypeName() string
	isType()
}

// Kind enumerates the supported Avro kinds
type Kind string

const (
	KindNull      Kind = "null"
	KindBoolean   Kind = "boolean"
	KindInt       Kind = "int"
	KindLong      Kind = "long"
	KindFloat     Kind = "float"
	KindDouble    Kind = "double"
	KindBytes     Kind = "bytes"
	KindString    Kind = "string"
	KindRecord    Kind = "record"
	KindArray     Kind = "array"
	KindMap       Kind = "map"
	KindEnum      Kind = "enum"
	KindUnion     Kind = "union"
	KindFixed     Kind = "fixed"
)

// Primitive is one of the eight Avro primitive types
type Primitive struct {
	Name Kind `json:"name"`
}

func (p Primitive) Kind() Kind       { return p.Name }
func (p Primitive) TypeName() string { return string(p.Name) }
func (p Primitive) isType()          {}

// Primitive constructors
func Null() Type    { return Primitive{Name: KindNull} }
func Boolean() Type { return Primitive{Name: KindBoolean} }
func Int() Type     { return Primitive{Name: KindInt} }
func Long() Type    { return Primitive{Name: KindLong} }
func Float() Type   { return Primitive{Name: KindFloat} }
func Double() Type  { return Primitive{Name: KindDouble} }
func Bytes() Type   { return Primitive{Name: KindBytes} }
func String() Type  { return Primitive{Name: KindString} }

// Field is a single named record member
type Field struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Record is a named product type with ordered fields
type Record struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

func (r Record) Kind() Kind       { return KindRecord }
func (r Record) TypeName() string { return r.Name }
func (r Record) isType()          {}

// Field returns the type of the named field, or false when absent
func (r Record) Field(name string) (Type, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

// NewRecord validates and constructs a record type. Field names must be
// non-empty and unique.
func NewRecord(name string, fields []Field) (Record, error) {
	if name == "" {
		return Record{}, core.NewTypeDefinitionError("record", "name cannot be empty")
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return Record{}, core.NewTypeDefinitionError("record", fmt.Sprintf("record %s has a field with empty name", name))
		}
		if f.Type == nil {
			return Record{}, core.NewTypeDefinitionError("record", fmt.Sprintf("field %s.%s has no type", name, f.Name))
		}
		if seen[f.Name] {
			return Record{}, core.NewTypeDefinitionError("record", fmt.Sprintf("duplicate field name %s.%s", name, f.Name))
		}
		seen[f.Name] = true
	}
	out := make([]Field, len(fields))
	copy(out, fields)
	return Record{Name: name, Fields: out}, nil
}

// Array is a homogeneous sequence type
type Array struct {
	Items Type `json:"items"`
}

func (a Array) Kind() Kind       { return KindArray }
func (a Array) TypeName() string { return "array" }
func (a Array) isType()          {}

// NewArray constructs an array type
func NewArray(items Type) (Array, error) {
	if items == nil {
		return Array{}, core.NewTypeDefinitionError("array", "items type cannot be nil")
	}
	return Array{Items: items}, nil
}

// Map is a string-keyed associative type
type Map struct {
	Values Type `json:"values"`
}

func (m Map) Kind() Kind       { return KindMap }
func (m Map) TypeName() string { return "map" }
func (m Map) isType()          {}

// NewMap constructs a map type
func NewMap(values Type) (Map, error) {
	if values == nil {
		return Map{}, core.NewTypeDefinitionError("map", "values type cannot be nil")
	}
	return Map{Values: values}, nil
}

// Enum is a named type over a fixed, ordered symbol set
type Enum struct {
	Name    string   `json:"name"`
	Symbols []string `json:"symbols"`
}

func (e Enum) Kind() Kind       { return KindEnum }
func (e Enum) TypeName() string { return e.Name }
func (e Enum) isType()          {}

// NewEnum validates and constructs an enum type. Symbols must be non-empty
// and unique; the symbol order is part of the type's identity.
func NewEnum(name string, symbols []string) (Enum, error) {
	if name == "" {
		return Enum{}, core.NewTypeDefinitionError("enum", "name cannot be empty")
	}
	if len(symbols) == 0 {
		return Enum{}, core.NewTypeDefinitionError("enum", fmt.Sprintf("enum %s has no symbols", name))
	}
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		if s == "" {
			return Enum{}, core.NewTypeDefinitionError("enum", fmt.Sprintf("enum %s has an empty symbol", name))
		}
		if seen[s] {
			return Enum{}, core.NewTypeDefinitionError("enum", fmt.Sprintf("enum %s has duplicate symbol %q", name, s))
		}
		seen[s] = true
	}
	out := make([]string, len(symbols))
	copy(out, symbols)
	return Enum{Name: name, Symbols: out}, nil
}

// Union is an ordered sum type. Member tags must be unique and unions may
// not directly contain unions, per the Avro specification.
type Union struct {
	Members []Type `json:"members"`
}

func (u Union) Kind() Kind       { return KindUnion }
func (u Union) TypeName() string { return "union" }
func (u Union) isType()          {}

// NewUnion validates and constructs a union type
func NewUnion(members ...Type) (Union, error) {
	if len(members) < 2 {
		return Union{}, core.NewTypeDefinitionError("union", "union requires at least two members")
	}
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if m == nil {
			return Union{}, core.NewTypeDefinitionError("union", "member type cannot be nil")
		}
		if m.Kind() == KindUnion {
			return Union{}, core.NewTypeDefinitionError("union", "unions cannot directly contain unions")
		}
		tag := m.TypeName()
		if seen[tag] {
			return Union{}, core.NewTypeDefinitionError("union", fmt.Sprintf("duplicate member tag %q", tag))
		}
		seen[tag] = true
	}
	out := make([]Type, len(members))
	copy(out, members)
	return Union{Members: out}, nil
}

// Fixed is a named type of exactly Size bytes
type Fixed struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

func (f Fixed) Kind() Kind       { return KindFixed }
func (f Fixed) TypeName() string { return f.Name }
func (f Fixed) isType()          {}

// NewFixed validates and constructs a fixed type
func NewFixed(name string, size int) (Fixed, error) {
	if name == "" {
		return Fixed{}, core.NewTypeDefinitionError("fixed", "name cannot be empty")
	}
	if size <= 0 {
		return Fixed{}, core.NewTypeDefinitionError("fixed", fmt.Sprintf("fixed %s requires a positive size, got %d", name, size))
	}
	return Fixed{Name: name, Size: size}, nil
}

// Equal reports deep structural equality between two types
func Equal(a, b Type) bool {
	return reflect.DeepEqual(a, b)
}

// IsNumeric reports whether t is one of the four Avro numeric primitives
func IsNumeric(t Type) bool {
	switch t.Kind() {
	case KindInt, KindLong, KindFloat, KindDouble:
		return true
	}
	return false
}
