package expr

import (
	"fmt"
	"sort"

	"gopfa/domain/avro"
	"gopfa/domain/core"
)

// Expr is a node of the PFA action-language expression tree. Nodes are
// immutable value objects; the builder only assembles trees, it never
// evaluates them.
type Expr interface {
	isExpr()
}

// Literal is a constant of a known Avro type
type Literal struct {
	Type  avro.Type
	Value any
}

func (Literal) isExpr() {}

// NewLiteral constructs a typed constant
func NewLiteral(t avro.Type, value any) (Literal, error) {
	if t == nil {
		return Literal{}, core.NewExpressionShapeError("literal", "type cannot be nil")
	}
	return Literal{Type: t, Value: value}, nil
}

// Convenience literal constructors for the common scoring cases
func DoubleLit(v float64) Literal { return Literal{Type: avro.Double(), Value: v} }
func IntLit(v int) Literal        { return Literal{Type: avro.Int(), Value: v} }
func StringLit(v string) Literal  { return Literal{Type: avro.String(), Value: v} }
func BoolLit(v bool) Literal      { return Literal{Type: avro.Boolean(), Value: v} }
func NullLit() Literal            { return Literal{Type: avro.Null(), Value: nil} }

// VarRef references a let/foreach binding or the document input
type VarRef struct {
	Name string
}

func (VarRef) isExpr() {}

// Input is the implicit variable every document action receives
const Input = "input"

// NewVarRef constructs a variable reference
func NewVarRef(name string) (VarRef, error) {
	if name == "" {
		return VarRef{}, core.NewExpressionShapeError("var", "name cannot be empty")
	}
	return VarRef{Name: name}, nil
}

// CellRef references a named cell, optionally drilling into it with a path
// of string keys and integer indexes
type CellRef struct {
	Name string
	Path []Expr
}

func (CellRef) isExpr() {}

// NewCellRef constructs a cell reference
func NewCellRef(name string, path ...Expr) (CellRef, error) {
	if name == "" {
		return CellRef{}, core.NewExpressionShapeError("cell", "name cannot be empty")
	}
	return CellRef{Name: name, Path: path}, nil
}

// PoolRef references a named pool entry
type PoolRef struct {
	Name string
	Path []Expr
}

func (PoolRef) isExpr() {}

// NewPoolRef constructs a pool reference. A pool is always addressed through
// at least its string key.
func NewPoolRef(name string, path ...Expr) (PoolRef, error) {
	if name == "" {
		return PoolRef{}, core.NewExpressionShapeError("pool", "name cannot be empty")
	}
	if len(path) == 0 {
		return PoolRef{}, core.NewExpressionShapeError("pool", fmt.Sprintf("pool %q requires a key path", name))
	}
	return PoolRef{Name: name, Path: path}, nil
}

// Binding is one let-bound name
type Binding struct {
	Name  string
	Value Expr
}

// Let introduces bindings for the remainder of the enclosing sequence.
// Bindings are kept sorted by name so documents serialize canonically.
type Let struct {
	Bindings []Binding
}

func (Let) isExpr() {}

// NewLet validates and constructs a let form
func NewLet(bindings ...Binding) (Let, error) {
	if len(bindings) == 0 {
		return Let{}, core.NewExpressionShapeError("let", "requires at least one binding")
	}
	seen := make(map[string]bool, len(bindings))
	for _, b := range bindings {
		if b.Name == "" {
			return Let{}, core.NewExpressionShapeError("let", "binding name cannot be empty")
		}
		if b.Value == nil {
			return Let{}, core.NewExpressionShapeError("let", fmt.Sprintf("binding %q has no value", b.Name))
		}
		if seen[b.Name] {
			return Let{}, core.NewExpressionShapeError("let", fmt.Sprintf("duplicate binding %q", b.Name))
		}
		seen[b.Name] = true
	}
	out := make([]Binding, len(bindings))
	copy(out, bindings)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return Let{Bindings: out}, nil
}

// If is a two-way branch. Else may be nil only in statement position; an
// else-less if never yields a value, so the assembler rejects it as the
// final action expression.
type If struct {
	Cond Expr
	Then Expr
	Else Expr
}

func (If) isExpr() {}

// NewIf constructs a value-position branch with both arms present
func NewIf(cond, then, els Expr) (If, error) {
	if cond == nil || then == nil {
		return If{}, core.NewExpressionShapeError("if", "cond and then are required")
	}
	if els == nil {
		return If{}, core.NewExpressionShapeError("if", "value-position if requires an else branch")
	}
	return If{Cond: cond, Then: then, Else: els}, nil
}

// NewIfStmt constructs a statement-position branch without an else arm
func NewIfStmt(cond, then Expr) (If, error) {
	if cond == nil || then == nil {
		return If{}, core.NewExpressionShapeError("if", "cond and then are required")
	}
	return If{Cond: cond, Then: then}, nil
}

// CondClause is one tested arm of a cond form
type CondClause struct {
	If   Expr
	Then Expr
}

// Cond is an ordered multi-way branch with a mandatory fallback
type Cond struct {
	Clauses []CondClause
	Else    Expr
}

func (Cond) isExpr() {}

// NewCond validates and constructs a cond form
func NewCond(clauses []CondClause, els Expr) (Cond, error) {
	if len(clauses) == 0 {
		return Cond{}, core.NewExpressionShapeError("cond", "requires at least one clause")
	}
	for i, c := range clauses {
		if c.If == nil || c.Then == nil {
			return Cond{}, core.NewExpressionShapeError("cond", fmt.Sprintf("clause %d is incomplete", i))
		}
	}
	if els == nil {
		return Cond{}, core.NewExpressionShapeError("cond", "requires an else branch")
	}
	out := make([]CondClause, len(clauses))
	copy(out, clauses)
	return Cond{Clauses: out, Else: els}, nil
}

// Call invokes a registry function with positional arguments
type Call struct {
	Name string
	Args []Expr
}

func (Call) isExpr() {}

// NewCall validates the function name against the registry and checks arity
func NewCall(name string, args ...Expr) (Call, error) {
	sig, ok := Lookup(name)
	if !ok {
		return Call{}, core.NewUnknownFunctionError(name)
	}
	if len(args) < sig.MinArgs || (sig.MaxArgs >= 0 && len(args) > sig.MaxArgs) {
		return Call{}, core.NewExpressionShapeError(name,
			fmt.Sprintf("takes %s arguments, got %d", sig.arityString(), len(args)))
	}
	for i, a := range args {
		if a == nil {
			return Call{}, core.NewExpressionShapeError(name, fmt.Sprintf("argument %d is nil", i))
		}
	}
	out := make([]Expr, len(args))
	copy(out, args)
	return Call{Name: name, Args: out}, nil
}

// ForEach iterates a collection, binding each element to Var
type ForEach struct {
	Var  string
	In   Expr
	Body []Expr
}

func (ForEach) isExpr() {}

// NewForEach validates and constructs a foreach loop
func NewForEach(varName string, in Expr, body ...Expr) (ForEach, error) {
	if varName == "" {
		return ForEach{}, core.NewExpressionShapeError("foreach", "loop variable cannot be empty")
	}
	if in == nil {
		return ForEach{}, core.NewExpressionShapeError("foreach", "collection cannot be nil")
	}
	if len(body) == 0 {
		return ForEach{}, core.NewExpressionShapeError("foreach", "body cannot be empty")
	}
	out := make([]Expr, len(body))
	copy(out, body)
	return ForEach{Var: varName, In: in, Body: out}, nil
}

// ArrayLit constructs a new array value from item expressions
type ArrayLit struct {
	Type  avro.Array
	Items []Expr
}

func (ArrayLit) isExpr() {}

// NewArrayLit constructs an array literal of the given item type
func NewArrayLit(items avro.Type, elems ...Expr) (ArrayLit, error) {
	if items == nil {
		return ArrayLit{}, core.NewExpressionShapeError("new-array", "item type cannot be nil")
	}
	for i, e := range elems {
		if e == nil {
			return ArrayLit{}, core.NewExpressionShapeError("new-array", fmt.Sprintf("item %d is nil", i))
		}
	}
	out := make([]Expr, len(elems))
	copy(out, elems)
	return ArrayLit{Type: avro.Array{Items: items}, Items: out}, nil
}

// MapEntry is one key of a map literal
type MapEntry struct {
	Key   string
	Value Expr
}

// MapLit constructs a new map value. Entries are kept sorted by key so
// documents serialize canonically.
type MapLit struct {
	Type    avro.Map
	Entries []MapEntry
}

func (MapLit) isExpr() {}

// NewMapLit constructs a map literal of the given value type
func NewMapLit(values avro.Type, entries ...MapEntry) (MapLit, error) {
	if values == nil {
		return MapLit{}, core.NewExpressionShapeError("new-map", "value type cannot be nil")
	}
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Value == nil {
			return MapLit{}, core.NewExpressionShapeError("new-map", fmt.Sprintf("entry %q has no value", e.Key))
		}
		if seen[e.Key] {
			return MapLit{}, core.NewExpressionShapeError("new-map", fmt.Sprintf("duplicate key %q", e.Key))
		}
		seen[e.Key] = true
	}
	out := make([]MapEntry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return MapLit{Type: avro.Map{Values: values}, Entries: out}, nil
}
