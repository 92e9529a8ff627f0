package pfa

import (
	"reflect"

	"gopfa/domain/avro"
	"gopfa/domain/core"
	"gopfa/domain/expr"
)

// Cell is a named, typed constant available to the action by reference.
// Init is the cell's JSON-compatible payload, fixed at assembly time;
// engine-side runtime mutability is outside this compiler's concern.
type Cell struct {
	Name string
	Type avro.Type
	Init any
}

// NewCell validates and constructs a cell
func NewCell(name string, t avro.Type, init any) (Cell, error) {
	if name == "" {
		return Cell{}, core.NewDocumentConsistencyError("cell name cannot be empty")
	}
	if t == nil {
		return Cell{}, core.NewDocumentConsistencyError("cell " + name + " has no type")
	}
	return Cell{Name: name, Type: t, Init: init}, nil
}

// Pool is a named, typed collection of constants indexed by string key
type Pool struct {
	Name string
	Type avro.Type
	Init map[string]any
}

// NewPool validates and constructs a pool
func NewPool(name string, t avro.Type, init map[string]any) (Pool, error) {
	if name == "" {
		return Pool{}, core.NewDocumentConsistencyError("pool name cannot be empty")
	}
	if t == nil {
		return Pool{}, core.NewDocumentConsistencyError("pool " + name + " has no type")
	}
	if init == nil {
		init = map[string]any{}
	}
	return Pool{Name: name, Type: t, Init: init}, nil
}

// Document is a complete PFA document: typed input and output schemas,
// constant storage, and the ordered action expression sequence that maps
// one input datum to one output datum. Immutable once assembled.
type Document struct {
	Name     core.DocumentName
	Method   string
	Input    avro.Type
	Output   avro.Type
	Cells    map[string]Cell
	Pools    map[string]Pool
	Action   []expr.Expr
	Version  int
	Doc      string
	Metadata map[string]string
}

// MethodMap is the scoring method every producer emits: one output per input
const MethodMap = "map"

// Equal reports deep structural equality over the full document tree
func Equal(a, b *Document) bool {
	if a == nil || b == nil {
		return a == b
	}
	return reflect.DeepEqual(*a, *b)
}
