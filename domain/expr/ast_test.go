package expr

import (
	"encoding/json"
	"errors"
	"testing"

	"gopfa/domain/avro"
	"gopfa/domain/core"
)

func TestNewCall_UnknownFunction(t *testing.T) {
	// The registry holds only functions the producers emit; anything
	// else is rejected at construction, tree-walk combinators included.
	for _, name := range []string{"m.link.sigmoid", "model.tree.simpleTest", "model.tree.simpleWalk"} {
		_, err := NewCall(name, DoubleLit(1))
		if !errors.Is(err, core.ErrUnknownFunction) {
			t.Fatalf("%s: expected ErrUnknownFunction, got %v", name, err)
		}
	}
}

func TestNewCall_ArityChecked(t *testing.T) {
	if _, err := NewCall("+", DoubleLit(1)); !errors.Is(err, core.ErrExpressionShape) {
		t.Fatalf("expected ErrExpressionShape for unary +, got %v", err)
	}
	if _, err := NewCall("+", DoubleLit(1), DoubleLit(2)); err != nil {
		t.Fatalf("binary + should construct: %v", err)
	}
	if _, err := NewCall("m.exp", DoubleLit(1), DoubleLit(2)); !errors.Is(err, core.ErrExpressionShape) {
		t.Fatalf("expected ErrExpressionShape for binary m.exp, got %v", err)
	}
}

func TestNewIf_RequiresElseInValuePosition(t *testing.T) {
	cond, _ := NewCall(">", VarRef{Name: "x"}, DoubleLit(0))
	if _, err := NewIf(cond, DoubleLit(1), nil); !errors.Is(err, core.ErrExpressionShape) {
		t.Fatalf("expected ErrExpressionShape, got %v", err)
	}
	stmt, err := NewIfStmt(cond, DoubleLit(1))
	if err != nil {
		t.Fatalf("statement-position if should construct: %v", err)
	}
	if stmt.Else != nil {
		t.Error("statement if must have no else")
	}
}

func TestNewLet_SortsAndRejectsDuplicates(t *testing.T) {
	l, err := NewLet(
		Binding{Name: "z", Value: DoubleLit(1)},
		Binding{Name: "a", Value: DoubleLit(2)},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Bindings[0].Name != "a" || l.Bindings[1].Name != "z" {
		t.Errorf("bindings not sorted: %+v", l.Bindings)
	}
	_, err = NewLet(
		Binding{Name: "a", Value: DoubleLit(1)},
		Binding{Name: "a", Value: DoubleLit(2)},
	)
	if !errors.Is(err, core.ErrExpressionShape) {
		t.Fatalf("expected ErrExpressionShape, got %v", err)
	}
}

func TestNewPoolRef_RequiresKeyPath(t *testing.T) {
	if _, err := NewPoolRef("levels"); !errors.Is(err, core.ErrExpressionShape) {
		t.Fatalf("expected ErrExpressionShape, got %v", err)
	}
}

func TestMarshal_CanonicalForms(t *testing.T) {
	sum, _ := NewCall("+", VarRef{Name: "input"}, DoubleLit(10))
	cell, _ := NewCellRef("model")
	attr, _ := NewCall("attr", VarRef{Name: "input"}, StringLit("X1"))
	arr, _ := NewArrayLit(avro.Double(), DoubleLit(0.5))

	tests := []struct {
		name string
		in   Expr
		want string
	}{
		{"call", sum, `{"+":["input",10]}`},
		{"cell", cell, `{"cell":"model"}`},
		{"attr", attr, `{"attr":"input","path":[{"string":"X1"}]}`},
		{"new array", arr, `{"new":[0.5],"type":{"type":"array","items":"double"}}`},
		{"string literal", StringLit("a"), `{"string":"a"}`},
		{"int literal", IntLit(3), `{"int":3}`},
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
	cond, _ := NewCall("<", VarRef{Name: "x"}, DoubleLit(1.5))
	branch, _ := NewIf(cond, DoubleLit(-1), DoubleLit(1))
	cellPath, _ := NewCellRef("classes", IntLit(0))
	let, _ := NewLet(Binding{Name: "p", Value: DoubleLit(0.25)})
	loop, _ := NewForEach("tree", VarRef{Name: "trees"}, DoubleLit(0))

	exprs := []Expr{
		DoubleLit(3.5),
		VarRef{Name: "input"},
		branch,
		cellPath,
		let,
		loop,
	}
	for _, e := range exprs {
		raw, err := json.Marshal(e)
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
		reRaw, err := json.Marshal(parsed)
		if err != nil {
			t.Fatalf("re-marshal: %v", err)
		}
		if string(raw) != string(reRaw) {
			t.Errorf("round trip changed encoding: %s -> %s", raw, reRaw)
		}
	}
}

func TestParse_RejectsUnknownFunction(t *testing.T) {
	var v any
	if err := json.Unmarshal([]byte(`{"m.sin":[1]}`), &v); err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(v); !errors.Is(err, core.ErrMalformedDocument) {
		t.Fatalf("expected ErrMalformedDocument, got %v", err)
	}
}
