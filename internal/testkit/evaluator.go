package testkit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"gopfa/domain/expr"
	"gopfa/domain/pfa"
)

// The evaluator below is a small action-language interpreter covering
// exactly the forms the producers emit. It exists so tests can check the
// numeric equivalence of generated documents without a scoring engine on
// the machine; it is test infrastructure, not a product surface.

// EvalDocument scores one input datum with a document's action
func EvalDocument(doc *pfa.Document, input any) (any, error) {
	return EvalAction(doc.Action, doc.Cells, doc.Pools, input)
}

// EvalAction evaluates an action sequence top to bottom, returning the
// final expression's value. Lets bind for the remainder of the sequence.
func EvalAction(action []expr.Expr, cells map[string]pfa.Cell, pools map[string]pfa.Pool, input any) (any, error) {
	ev := &evaluator{cells: cells, pools: pools, scope: map[string]any{expr.Input: input}}
	var out any
	for _, e := range action {
		v, err := ev.eval(e)
		if err != nil {
			return nil, err
		}
		out = v
	}
	return out, nil
}

type evaluator struct {
	cells map[string]pfa.Cell
	pools map[string]pfa.Pool
	scope map[string]any
}

func (ev *evaluator) eval(e expr.Expr) (any, error) {
	switch n := e.(type) {
	case expr.Literal:
		return n.Value, nil
	case expr.VarRef:
		v, ok := ev.scope[n.Name]
		if !ok {
			return nil, fmt.Errorf("unbound variable %q", n.Name)
		}
		return v, nil
	case expr.CellRef:
		cell, ok := ev.cells[n.Name]
		if !ok {
			return nil, fmt.Errorf("unknown cell %q", n.Name)
		}
		return ev.walkPath(cell.Init, n.Path)
	case expr.PoolRef:
		pool, ok := ev.pools[n.Name]
		if !ok {
			return nil, fmt.Errorf("unknown pool %q", n.Name)
		}
		return ev.walkPath(map[string]any(pool.Init), n.Path)
	case expr.Let:
		for _, b := range n.Bindings {
			v, err := ev.eval(b.Value)
			if err != nil {
				return nil, err
			}
			ev.scope[b.Name] = v
		}
		return nil, nil
	case expr.If:
		cond, err := ev.evalBool(n.Cond)
		if err != nil {
			return nil, err
		}
		if cond {
			return ev.eval(n.Then)
		}
		if n.Else == nil {
			return nil, nil
		}
		return ev.eval(n.Else)
	case expr.Cond:
		for _, c := range n.Clauses {
			hit, err := ev.evalBool(c.If)
			if err != nil {
				return nil, err
			}
			if hit {
				return ev.eval(c.Then)
			}
		}
		return ev.eval(n.Else)
	case expr.ArrayLit:
		out := make([]any, len(n.Items))
		for i, item := range n.Items {
			v, err := ev.eval(item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case expr.MapLit:
		out := make(map[string]any, len(n.Entries))
		for _, entry := range n.Entries {
			v, err := ev.eval(entry.Value)
			if err != nil {
				return nil, err
			}
			out[entry.Key] = v
		}
		return out, nil
	case expr.Call:
		return ev.evalCall(n)
	default:
		return nil, fmt.Errorf("evaluator does not support %T", e)
	}
}

func (ev *evaluator) evalCall(c expr.Call) (any, error) {
	args := make([]any, len(c.Args))
	for i, a := range c.Args {
		v, err := ev.eval(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	switch c.Name {
	case "+", "-", "*", "/", "**":
		a, err := asFloat(args[0])
		if err != nil {
			return nil, err
		}
		b, err := asFloat(args[1])
		if err != nil {
			return nil, err
		}
		switch c.Name {
		case "+":
			return a + b, nil
		case "-":
			return a - b, nil
		case "*":
			return a * b, nil
		case "/":
			return a / b, nil
		default:
			return math.Pow(a, b), nil
		}
	case "u-":
		a, err := asFloat(args[0])
		if err != nil {
			return nil, err
		}
		return -a, nil
	case "==", "!=", "<", "<=", ">", ">=":
		return compare(c.Name, args[0], args[1])
	case "&&":
		return args[0].(bool) && args[1].(bool), nil
	case "||":
		return args[0].(bool) || args[1].(bool), nil
	case "!":
		return !args[0].(bool), nil
	case "attr":
		return ev.walkValues(args[0], args[1:])
	case "m.exp":
		return applyFloat(args[0], math.Exp)
	case "m.ln":
		return applyFloat(args[0], math.Log)
	case "m.abs":
		return applyFloat(args[0], math.Abs)
	case "m.sqrt":
		return applyFloat(args[0], math.Sqrt)
	case "m.link.logit":
		return applyFloat(args[0], func(x float64) float64 { return 1 / (1 + math.Exp(-x)) })
	case "m.link.probit":
		normal := distuv.Normal{Mu: 0, Sigma: 1}
		return applyFloat(args[0], normal.CDF)
	case "m.link.cloglog":
		return applyFloat(args[0], func(x float64) float64 { return 1 - math.Exp(-math.Exp(x)) })
	case "m.link.softmax":
		xs, err := asFloats(args[0])
		if err != nil {
			return nil, err
		}
		return softmax(xs), nil
	case "a.sum", "a.mean", "a.max", "a.argmax", "a.len":
		return reduce(c.Name, args[0])
	case "model.reg.linear":
		return regLinear(args[0], args[1])
	default:
		return nil, fmt.Errorf("evaluator does not support function %q", c.Name)
	}
}

func (ev *evaluator) evalBool(e expr.Expr) (bool, error) {
	v, err := ev.eval(e)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("condition evaluated to %T, not bool", v)
	}
	return b, nil
}

func (ev *evaluator) walkPath(base any, path []expr.Expr) (any, error) {
	steps := make([]any, len(path))
	for i, p := range path {
		v, err := ev.eval(p)
		if err != nil {
			return nil, err
		}
		steps[i] = v
	}
	return ev.walkValues(base, steps)
}

func (ev *evaluator) walkValues(base any, steps []any) (any, error) {
	cur := base
	for _, step := range steps {
		switch c := cur.(type) {
		case map[string]any:
			key, ok := step.(string)
			if !ok {
				return nil, fmt.Errorf("map access with non-string key %v", step)
			}
			v, ok := c[key]
			if !ok {
				return nil, fmt.Errorf("missing key %q", key)
			}
			cur = v
		case []any:
			idx, err := asIndex(step)
			if err != nil {
				return nil, err
			}
			if idx < 0 || idx >= len(c) {
				return nil, fmt.Errorf("index %d out of range", idx)
			}
			cur = c[idx]
		default:
			return nil, fmt.Errorf("cannot index into %T", cur)
		}
	}
	return cur, nil
}

func compare(op string, a, b any) (any, error) {
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		if !ok {
			return nil, fmt.Errorf("comparing string with %T", b)
		}
		switch op {
		case "==":
			return as == bs, nil
		case "!=":
			return as != bs, nil
		case "<":
			return as < bs, nil
		case "<=":
			return as <= bs, nil
		case ">":
			return as > bs, nil
		default:
			return as >= bs, nil
		}
	}
	af, err := asFloat(a)
	if err != nil {
		return nil, err
	}
	bf, err := asFloat(b)
	if err != nil {
		return nil, err
	}
	switch op {
	case "==":
		return af == bf, nil
	case "!=":
		return af != bf, nil
	case "<":
		return af < bf, nil
	case "<=":
		return af <= bf, nil
	case ">":
		return af > bf, nil
	default:
		return af >= bf, nil
	}
}

func reduce(op string, v any) (any, error) {
	xs, err := asFloats(v)
	if err != nil {
		return nil, err
	}
	if op == "a.len" {
		return len(xs), nil
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("%s of empty array", op)
	}
	switch op {
	case "a.sum":
		return floats.Sum(xs), nil
	case "a.mean":
		return floats.Sum(xs) / float64(len(xs)), nil
	case "a.max":
		return floats.Max(xs), nil
	default: // a.argmax keeps the first maximum
		best := 0
		for i, x := range xs {
			if x > xs[best] {
				best = i
			}
		}
		return best, nil
	}
}

func regLinear(datum, cell any) (any, error) {
	xs, err := asFloats(datum)
	if err != nil {
		return nil, err
	}
	m, ok := cell.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("model.reg.linear cell is %T", cell)
	}
	coeff, err := asFloats(m["coeff"])
	if err != nil {
		return nil, err
	}
	konst, err := asFloat(m["const"])
	if err != nil {
		return nil, err
	}
	if len(coeff) != len(xs) {
		return nil, fmt.Errorf("datum length %d does not match %d coefficients", len(xs), len(coeff))
	}
	return konst + floats.Dot(coeff, xs), nil
}

func softmax(xs []float64) []any {
	max := floats.Max(xs)
	var z float64
	exps := make([]float64, len(xs))
	for i, x := range xs {
		exps[i] = math.Exp(x - max)
		z += exps[i]
	}
	out := make([]any, len(xs))
	for i := range exps {
		out[i] = exps[i] / z
	}
	return out
}

func applyFloat(v any, fn func(float64) float64) (any, error) {
	f, err := asFloat(v)
	if err != nil {
		return nil, err
	}
	return fn(f), nil
}

func asFloat(v any) (float64, error) {
	switch fv := v.(type) {
	case float64:
		return fv, nil
	case int:
		return float64(fv), nil
	case int64:
		return float64(fv), nil
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}

func asFloats(v any) ([]float64, error) {
	switch sv := v.(type) {
	case []float64:
		return sv, nil
	case []any:
		out := make([]float64, len(sv))
		for i, e := range sv {
			f, err := asFloat(e)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected array of numbers, got %T", v)
}

func asIndex(v any) (int, error) {
	switch iv := v.(type) {
	case int:
		return iv, nil
	case float64:
		return int(iv), nil
	}
	return 0, fmt.Errorf("expected index, got %T", v)
}
