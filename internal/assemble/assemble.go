// Package assemble turns a produced scoring fragment into a complete,
// internally consistent document. Assembly is the last gate before
// serialization: every cell and pool reference must resolve against the
// declared state, and the action's final expression must produce the
// declared output type.
package assemble

import (
	"fmt"

	"gopfa/domain/avro"
	"gopfa/domain/core"
	"gopfa/domain/expr"
	"gopfa/domain/pfa"
	"gopfa/internal/produce"
)

// Meta carries the document identity fields. A zero Name is replaced with
// a generated one.
type Meta struct {
	Name     core.DocumentName
	Version  int
	Doc      string
	Metadata map[string]string
}

// Assemble builds a document from a scoring fragment and checks it.
func Assemble(frag *produce.Fragment, meta Meta) (*pfa.Document, error) {
	name := meta.Name
	if name == "" {
		name = core.NewDocumentName()
	}
	doc := &pfa.Document{
		Name:     name,
		Method:   pfa.MethodMap,
		Input:    frag.Input,
		Output:   frag.Output,
		Cells:    frag.Cells,
		Pools:    frag.Pools,
		Action:   frag.Action,
		Version:  meta.Version,
		Doc:      meta.Doc,
		Metadata: meta.Metadata,
	}
	if err := Check(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Check validates an assembled or deserialized document: the action must be
// non-empty, all state references must resolve, and the final expression's
// inferred type must match the declared output.
func Check(doc *pfa.Document) error {
	if doc.Input == nil || doc.Output == nil {
		return core.NewDocumentConsistencyError("document requires input and output types")
	}
	if len(doc.Action) == 0 {
		return core.NewDocumentConsistencyError("document requires a non-empty action")
	}
	c := &checker{doc: doc}
	env := map[string]avro.Type{expr.Input: doc.Input}
	var last value
	for _, e := range doc.Action {
		v, err := c.infer(e, env)
		if err != nil {
			return err
		}
		last = v
	}
	if !last.has {
		return core.NewDocumentConsistencyError("final action expression yields no value")
	}
	if !assignable(last.t, doc.Output) {
		return core.NewDocumentConsistencyError(fmt.Sprintf(
			"action yields %s but output declares %s", typeName(last.t), doc.Output.TypeName()))
	}
	return nil
}

// value is an inference result. has reports whether the expression yields a
// value at all; a nil type with has set means the type is not statically
// known and unifies with anything.
type value struct {
	t   avro.Type
	has bool
}

func dynamic() value       { return value{has: true} }
func of(t avro.Type) value { return value{t: t, has: true} }
func statement() value     { return value{} }

type checker struct {
	doc *pfa.Document
}

func (c *checker) infer(e expr.Expr, env map[string]avro.Type) (value, error) {
	switch n := e.(type) {
	case expr.Literal:
		return of(n.Type), nil

	case expr.VarRef:
		t, ok := env[n.Name]
		if !ok {
			return value{}, core.NewDocumentConsistencyError(
				fmt.Sprintf("reference to unbound variable %q", n.Name))
		}
		return of(t), nil

	case expr.CellRef:
		cell, ok := c.doc.Cells[n.Name]
		if !ok {
			return value{}, core.NewDocumentConsistencyError(
				fmt.Sprintf("reference to undeclared cell %q", n.Name))
		}
		return c.walkPath(cell.Type, n.Path, env)

	case expr.PoolRef:
		pool, ok := c.doc.Pools[n.Name]
		if !ok {
			return value{}, core.NewDocumentConsistencyError(
				fmt.Sprintf("reference to undeclared pool %q", n.Name))
		}
		// The first path element is the pool's own string key.
		key, err := c.infer(n.Path[0], env)
		if err != nil {
			return value{}, err
		}
		if key.t != nil && !avro.Equal(key.t, avro.String()) {
			return value{}, core.NewDocumentConsistencyError(
				fmt.Sprintf("pool %q keyed by %s, want string", n.Name, typeName(key.t)))
		}
		return c.walkPath(pool.Type, n.Path[1:], env)

	case expr.Let:
		for _, b := range n.Bindings {
			v, err := c.infer(b.Value, env)
			if err != nil {
				return value{}, err
			}
			if !v.has {
				return value{}, core.NewDocumentConsistencyError(
					fmt.Sprintf("let binding %q has no value", b.Name))
			}
			env[b.Name] = v.t
		}
		return statement(), nil

	case expr.If:
		if _, err := c.infer(n.Cond, env); err != nil {
			return value{}, err
		}
		thenV, err := c.infer(n.Then, child(env))
		if err != nil {
			return value{}, err
		}
		if n.Else == nil {
			return statement(), nil
		}
		elseV, err := c.infer(n.Else, child(env))
		if err != nil {
			return value{}, err
		}
		return unify(thenV, elseV)

	case expr.Cond:
		acc := dynamic()
		for _, cl := range n.Clauses {
			if _, err := c.infer(cl.If, env); err != nil {
				return value{}, err
			}
			v, err := c.infer(cl.Then, child(env))
			if err != nil {
				return value{}, err
			}
			if acc, err = unify(acc, v); err != nil {
				return value{}, err
			}
		}
		v, err := c.infer(n.Else, child(env))
		if err != nil {
			return value{}, err
		}
		return unify(acc, v)

	case expr.Call:
		return c.inferCall(n, env)

	case expr.ForEach:
		in, err := c.infer(n.In, env)
		if err != nil {
			return value{}, err
		}
		inner := child(env)
		if arr, ok := in.t.(avro.Array); ok {
			inner[n.Var] = arr.Items
		} else {
			inner[n.Var] = nil
		}
		for _, b := range n.Body {
			if _, err := c.infer(b, inner); err != nil {
				return value{}, err
			}
		}
		return statement(), nil

	case expr.ArrayLit:
		for _, item := range n.Items {
			if _, err := c.infer(item, env); err != nil {
				return value{}, err
			}
		}
		return of(n.Type), nil

	case expr.MapLit:
		for _, entry := range n.Entries {
			if _, err := c.infer(entry.Value, env); err != nil {
				return value{}, err
			}
		}
		return of(n.Type), nil

	default:
		return value{}, core.NewDocumentConsistencyError(
			fmt.Sprintf("unrecognized expression %T", e))
	}
}

func (c *checker) inferCall(n expr.Call, env map[string]avro.Type) (value, error) {
	args := make([]value, len(n.Args))
	for i, a := range n.Args {
		v, err := c.infer(a, env)
		if err != nil {
			return value{}, err
		}
		if !v.has {
			return value{}, core.NewDocumentConsistencyError(
				fmt.Sprintf("argument %d of %q has no value", i, n.Name))
		}
		args[i] = v
	}
	sig, ok := expr.Lookup(n.Name)
	if !ok {
		return value{}, core.NewDocumentConsistencyError(
			fmt.Sprintf("call to unknown function %q", n.Name))
	}
	switch sig.Result {
	case expr.ResultDouble:
		return of(avro.Double()), nil
	case expr.ResultInt:
		return of(avro.Int()), nil
	case expr.ResultBoolean:
		return of(avro.Boolean()), nil
	case expr.ResultSameAsFirst:
		return args[0], nil
	case expr.ResultItems:
		if args[0].t == nil {
			return dynamic(), nil
		}
		arr, ok := args[0].t.(avro.Array)
		if !ok {
			return value{}, core.NewDocumentConsistencyError(
				fmt.Sprintf("%q requires an array, got %s", n.Name, typeName(args[0].t)))
		}
		return of(arr.Items), nil
	default:
		if n.Name == "attr" {
			return c.attrResult(args[0], n.Args[1:], env)
		}
		return dynamic(), nil
	}
}

// attrResult resolves the structural path of an attr call as far as the
// static types allow.
func (c *checker) attrResult(base value, path []expr.Expr, env map[string]avro.Type) (value, error) {
	t := base.t
	for _, p := range path {
		if t == nil {
			return dynamic(), nil
		}
		switch bt := t.(type) {
		case avro.Array:
			step, err := c.infer(p, env)
			if err != nil {
				return value{}, err
			}
			if step.t != nil && !avro.IsNumeric(step.t) {
				return value{}, core.NewDocumentConsistencyError(
					fmt.Sprintf("array indexed by %s", typeName(step.t)))
			}
			t = bt.Items
		case avro.Map:
			step, err := c.infer(p, env)
			if err != nil {
				return value{}, err
			}
			if step.t != nil && !avro.Equal(step.t, avro.String()) {
				return value{}, core.NewDocumentConsistencyError(
					fmt.Sprintf("map keyed by %s", typeName(step.t)))
			}
			t = bt.Values
		case avro.Record:
			lit, ok := p.(expr.Literal)
			if !ok {
				return value{}, core.NewDocumentConsistencyError(
					"record fields must be addressed by literal name")
			}
			name, ok := lit.Value.(string)
			if !ok {
				return value{}, core.NewDocumentConsistencyError(
					"record fields must be addressed by string name")
			}
			ft, ok := bt.Field(name)
			if !ok {
				return value{}, core.NewDocumentConsistencyError(
					fmt.Sprintf("record %s has no field %q", bt.Name, name))
			}
			t = ft
		default:
			return value{}, core.NewDocumentConsistencyError(
				fmt.Sprintf("cannot descend into %s", t.TypeName()))
		}
	}
	return of(t), nil
}

// walkPath applies the same descent rules to cell and pool paths.
func (c *checker) walkPath(t avro.Type, path []expr.Expr, env map[string]avro.Type) (value, error) {
	return c.attrResult(of(t), path, env)
}

// unify merges the types of two branches of the same expression. A nil
// (dynamic) side defers to the other; two known numeric types merge to the
// wider one.
func unify(a, b value) (value, error) {
	if a.t == nil {
		return b, nil
	}
	if b.t == nil {
		return a, nil
	}
	if avro.Equal(a.t, b.t) {
		return a, nil
	}
	if avro.IsNumeric(a.t) && avro.IsNumeric(b.t) {
		if numericRank(b.t) > numericRank(a.t) {
			return b, nil
		}
		return a, nil
	}
	return value{}, core.NewDocumentConsistencyError(fmt.Sprintf(
		"branches yield incompatible types %s and %s", a.t.TypeName(), b.t.TypeName()))
}

// assignable reports whether an inferred type satisfies a declared one.
// Numeric types widen, everything else matches structurally.
func assignable(got, want avro.Type) bool {
	if got == nil {
		return true
	}
	if avro.Equal(got, want) {
		return true
	}
	return avro.IsNumeric(got) && avro.IsNumeric(want) &&
		numericRank(got) <= numericRank(want)
}

func numericRank(t avro.Type) int {
	switch t.Kind() {
	case avro.KindInt:
		return 0
	case avro.KindLong:
		return 1
	case avro.KindFloat:
		return 2
	case avro.KindDouble:
		return 3
	}
	return -1
}

func child(env map[string]avro.Type) map[string]avro.Type {
	inner := make(map[string]avro.Type, len(env))
	for k, v := range env {
		inner[k] = v
	}
	return inner
}

func typeName(t avro.Type) string {
	if t == nil {
		return "dynamic"
	}
	return t.TypeName()
}
