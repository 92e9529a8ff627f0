package expr

import (
	"encoding/json"

	"gopfa/domain/avro"
	"gopfa/domain/core"
)

// The JSON encoding follows the canonical PFA action-language forms: every
// special form is a single-key (or few-key) object whose key names the
// operator, a bare string is a variable reference, and a bare number is a
// double literal.

func (l Literal) MarshalJSON() ([]byte, error) {
	switch l.Type.Kind() {
	case avro.KindNull:
		return []byte("null"), nil
	case avro.KindBoolean, avro.KindFloat, avro.KindDouble:
		return json.Marshal(l.Value)
	case avro.KindInt:
		return json.Marshal(map[string]any{"int": l.Value})
	case avro.KindLong:
		return json.Marshal(map[string]any{"long": l.Value})
	case avro.KindString:
		return json.Marshal(map[string]any{"string": l.Value})
	default:
		return json.Marshal(struct {
			Type  avro.Type `json:"type"`
			Value any       `json:"value"`
		}{l.Type, l.Value})
	}
}

func (v VarRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Name)
}

func (c CellRef) MarshalJSON() ([]byte, error) {
	if len(c.Path) == 0 {
		return json.Marshal(struct {
			Cell string `json:"cell"`
		}{c.Name})
	}
	return json.Marshal(struct {
		Cell string `json:"cell"`
		Path []Expr `json:"path"`
	}{c.Name, c.Path})
}

func (p PoolRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Pool string `json:"pool"`
		Path []Expr `json:"path"`
	}{p.Name, p.Path})
}

func (l Let) MarshalJSON() ([]byte, error) {
	bindings := make(map[string]Expr, len(l.Bindings))
	for _, b := range l.Bindings {
		bindings[b.Name] = b.Value
	}
	return json.Marshal(struct {
		Let map[string]Expr `json:"let"`
	}{bindings})
}

func (i If) MarshalJSON() ([]byte, error) {
	if i.Else == nil {
		return json.Marshal(struct {
			If   Expr `json:"if"`
			Then Expr `json:"then"`
		}{i.Cond, i.Then})
	}
	return json.Marshal(struct {
		If   Expr `json:"if"`
		Then Expr `json:"then"`
		Else Expr `json:"else"`
	}{i.Cond, i.Then, i.Else})
}

func (c CondClause) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		If   Expr `json:"if"`
		Then Expr `json:"then"`
	}{c.If, c.Then})
}

func (c Cond) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Cond []CondClause `json:"cond"`
		Else Expr         `json:"else"`
	}{c.Clauses, c.Else})
}

func (c Call) MarshalJSON() ([]byte, error) {
	if c.Name == "attr" {
		return json.Marshal(struct {
			Attr Expr   `json:"attr"`
			Path []Expr `json:"path"`
		}{c.Args[0], c.Args[1:]})
	}
	return json.Marshal(map[string][]Expr{c.Name: c.Args})
}

func (f ForEach) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ForEach map[string]Expr `json:"foreach"`
		Do      []Expr          `json:"do"`
		Seq     bool            `json:"seq"`
	}{map[string]Expr{f.Var: f.In}, f.Body, true})
}

func (a ArrayLit) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		New  []Expr    `json:"new"`
		Type avro.Type `json:"type"`
	}{a.Items, a.Type})
}

func (m MapLit) MarshalJSON() ([]byte, error) {
	entries := make(map[string]Expr, len(m.Entries))
	for _, e := range m.Entries {
		entries[e.Key] = e.Value
	}
	return json.Marshal(struct {
		New  map[string]Expr `json:"new"`
		Type avro.Type       `json:"type"`
	}{entries, m.Type})
}

// Parse converts a decoded expression JSON value back into an Expr,
// validating function names and arity on the way in.
func Parse(v any) (Expr, error) {
	switch ev := v.(type) {
	case nil:
		return NullLit(), nil
	case bool:
		return BoolLit(ev), nil
	case float64:
		return DoubleLit(ev), nil
	case string:
		return NewVarRef(ev)
	case map[string]any:
		return parseForm(ev)
	default:
		return nil, core.NewMalformedDocumentError("unexpected expression JSON")
	}
}

func parseForm(m map[string]any) (Expr, error) {
	switch {
	case hasKey(m, "int"):
		n, ok := m["int"].(float64)
		if !ok {
			return nil, core.NewMalformedDocumentError("int literal must be a number")
		}
		return IntLit(int(n)), nil
	case hasKey(m, "long"):
		n, ok := m["long"].(float64)
		if !ok {
			return nil, core.NewMalformedDocumentError("long literal must be a number")
		}
		return Literal{Type: avro.Long(), Value: int64(n)}, nil
	case hasKey(m, "string"):
		s, ok := m["string"].(string)
		if !ok {
			return nil, core.NewMalformedDocumentError("string literal must be a string")
		}
		return StringLit(s), nil
	case hasKey(m, "let"):
		return parseLet(m)
	case hasKey(m, "if"):
		return parseIf(m)
	case hasKey(m, "cond"):
		return parseCond(m)
	case hasKey(m, "cell"):
		return parseRef(m, "cell")
	case hasKey(m, "pool"):
		return parseRef(m, "pool")
	case hasKey(m, "attr"):
		return parseAttr(m)
	case hasKey(m, "foreach"):
		return parseForEach(m)
	case hasKey(m, "new"):
		return parseNew(m)
	case hasKey(m, "type") && hasKey(m, "value"):
		t, err := avro.Parse(m["type"])
		if err != nil {
			return nil, err
		}
		return Literal{Type: t, Value: m["value"]}, nil
	case len(m) == 1:
		return parseCall(m)
	default:
		return nil, core.NewMalformedDocumentError("unrecognized expression form")
	}
}

func hasKey(m map[string]any, k string) bool {
	_, ok := m[k]
	return ok
}

func parseLet(m map[string]any) (Expr, error) {
	raw, ok := m["let"].(map[string]any)
	if !ok || len(raw) == 0 {
		return nil, core.NewMalformedDocumentError("let requires a binding object")
	}
	bindings := make([]Binding, 0, len(raw))
	for name, rv := range raw {
		value, err := Parse(rv)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, Binding{Name: name, Value: value})
	}
	return NewLet(bindings...)
}

func parseIf(m map[string]any) (Expr, error) {
	cond, err := Parse(m["if"])
	if err != nil {
		return nil, err
	}
	then, err := Parse(m["then"])
	if err != nil {
		return nil, err
	}
	if _, ok := m["else"]; !ok {
		return NewIfStmt(cond, then)
	}
	els, err := Parse(m["else"])
	if err != nil {
		return nil, err
	}
	return NewIf(cond, then, els)
}

func parseCond(m map[string]any) (Expr, error) {
	raw, ok := m["cond"].([]any)
	if !ok {
		return nil, core.NewMalformedDocumentError("cond requires a clause array")
	}
	clauses := make([]CondClause, 0, len(raw))
	for _, rc := range raw {
		cm, ok := rc.(map[string]any)
		if !ok {
			return nil, core.NewMalformedDocumentError("cond clause must be an object")
		}
		cif, err := Parse(cm["if"])
		if err != nil {
			return nil, err
		}
		cthen, err := Parse(cm["then"])
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, CondClause{If: cif, Then: cthen})
	}
	els, err := Parse(m["else"])
	if err != nil {
		return nil, err
	}
	return NewCond(clauses, els)
}

func parseRef(m map[string]any, kind string) (Expr, error) {
	name, ok := m[kind].(string)
	if !ok {
		return nil, core.NewMalformedDocumentError(kind + " reference requires a string name")
	}
	var path []Expr
	if rawPath, ok := m["path"].([]any); ok {
		for _, rp := range rawPath {
			p, err := Parse(rp)
			if err != nil {
				return nil, err
			}
			path = append(path, p)
		}
	}
	if kind == "cell" {
		return NewCellRef(name, path...)
	}
	return NewPoolRef(name, path...)
}

func parseAttr(m map[string]any) (Expr, error) {
	obj, err := Parse(m["attr"])
	if err != nil {
		return nil, err
	}
	rawPath, ok := m["path"].([]any)
	if !ok {
		return nil, core.NewMalformedDocumentError("attr requires a path array")
	}
	args := []Expr{obj}
	for _, rp := range rawPath {
		p, err := Parse(rp)
		if err != nil {
			return nil, err
		}
		args = append(args, p)
	}
	return NewCall("attr", args...)
}

func parseForEach(m map[string]any) (Expr, error) {
	raw, ok := m["foreach"].(map[string]any)
	if !ok || len(raw) != 1 {
		return nil, core.NewMalformedDocumentError("foreach requires a single loop binding")
	}
	var varName string
	var in Expr
	for name, rv := range raw {
		value, err := Parse(rv)
		if err != nil {
			return nil, err
		}
		varName, in = name, value
	}
	rawdo, ok := m["do"].([]any)
	if !ok {
		return nil, core.NewMalformedDocumentError("foreach requires a do array")
	}
	body := make([]Expr, 0, len(rawdo))
	for _, rd := range rawdo {
		d, err := Parse(rd)
		if err != nil {
			return nil, err
		}
		body = append(body, d)
	}
	return NewForEach(varName, in, body...)
}

func parseNew(m map[string]any) (Expr, error) {
	t, err := avro.Parse(m["type"])
	if err != nil {
		return nil, err
	}
	switch items := m["new"].(type) {
	case []any:
		at, ok := t.(avro.Array)
		if !ok {
			return nil, core.NewMalformedDocumentError("new array requires an array type")
		}
		elems := make([]Expr, 0, len(items))
		for _, ri := range items {
			e, err := Parse(ri)
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		return NewArrayLit(at.Items, elems...)
	case map[string]any:
		mt, ok := t.(avro.Map)
		if !ok {
			return nil, core.NewMalformedDocumentError("new map requires a map type")
		}
		entries := make([]MapEntry, 0, len(items))
		for key, rv := range items {
			e, err := Parse(rv)
			if err != nil {
				return nil, err
			}
			entries = append(entries, MapEntry{Key: key, Value: e})
		}
		return NewMapLit(mt.Values, entries...)
	default:
		return nil, core.NewMalformedDocumentError("new requires an array or object body")
	}
}

func parseCall(m map[string]any) (Expr, error) {
	for name, rawArgs := range m {
		var args []Expr
		switch ra := rawArgs.(type) {
		case []any:
			for _, rv := range ra {
				a, err := Parse(rv)
				if err != nil {
					return nil, err
				}
				args = append(args, a)
			}
		default:
			a, err := Parse(ra)
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		call, err := NewCall(name, args...)
		if err != nil {
			return nil, core.NewMalformedDocumentError(err.Error())
		}
		return call, nil
	}
	return nil, core.NewMalformedDocumentError("empty expression object")
}
