package avro

import (
	"encoding/json"
	"fmt"

	"gopfa/domain/core"
)

// MarshalJSON emits the primitive as a bare JSON string, e.g. "double"
func (p Primitive) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(p.Name))
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string  `json:"type"`
		Name   string  `json:"name"`
		Fields []Field `json:"fields"`
	}{"record", r.Name, r.Fields})
}

func (a Array) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		Items Type   `json:"items"`
	}{"array", a.Items})
}

func (m Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string `json:"type"`
		Values Type   `json:"values"`
	}{"map", m.Values})
}

func (e Enum) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string   `json:"type"`
		Name    string   `json:"name"`
		Symbols []string `json:"symbols"`
	}{"enum", e.Name, e.Symbols})
}

// MarshalJSON emits the union as a bare JSON array of member types
func (u Union) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.Members)
}

func (f Fixed) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Name string `json:"name"`
		Size int    `json:"size"`
	}{"fixed", f.Name, f.Size})
}

var primitivesByName = map[string]Type{
	"null":    Null(),
	"boolean": Boolean(),
	"int":     Int(),
	"long":    Long(),
	"float":   Float(),
	"double":  Double(),
	"bytes":   Bytes(),
	"string":  String(),
}

// Parse converts a decoded Avro type JSON value (string, array, or object)
// back into a Type. Shape violations surface as ErrMalformedDocument since
// Parse only ever sees type JSON embedded in a document.
func Parse(v any) (Type, error) {
	switch tv := v.(type) {
	case string:
		t, ok := primitivesByName[tv]
		if !ok {
			return nil, core.NewMalformedDocumentError(fmt.Sprintf("unknown primitive type %q", tv))
		}
		return t, nil
	case []any:
		members := make([]Type, 0, len(tv))
		for _, mv := range tv {
			m, err := Parse(mv)
			if err != nil {
				return nil, err
			}
			members = append(members, m)
		}
		u, err := NewUnion(members...)
		if err != nil {
			return nil, core.NewMalformedDocumentError(err.Error())
		}
		return u, nil
	case map[string]any:
		return parseObject(tv)
	default:
		return nil, core.NewMalformedDocumentError(fmt.Sprintf("unexpected type JSON of kind %T", v))
	}
}

func parseObject(m map[string]any) (Type, error) {
	kind, ok := m["type"].(string)
	if !ok {
		return nil, core.NewMalformedDocumentError("type object missing \"type\" key")
	}
	switch kind {
	case "record":
		name, _ := m["name"].(string)
		rawFields, ok := m["fields"].([]any)
		if !ok {
			return nil, core.NewMalformedDocumentError(fmt.Sprintf("record %q missing fields", name))
		}
		fields := make([]Field, 0, len(rawFields))
		for _, rf := range rawFields {
			fm, ok := rf.(map[string]any)
			if !ok {
				return nil, core.NewMalformedDocumentError(fmt.Sprintf("record %q has a non-object field", name))
			}
			fname, _ := fm["name"].(string)
			ftype, err := Parse(fm["type"])
			if err != nil {
				return nil, err
			}
			fields = append(fields, Field{Name: fname, Type: ftype})
		}
		rec, err := NewRecord(name, fields)
		if err != nil {
			return nil, core.NewMalformedDocumentError(err.Error())
		}
		return rec, nil
	case "array":
		items, err := Parse(m["items"])
		if err != nil {
			return nil, err
		}
		return Array{Items: items}, nil
	case "map":
		values, err := Parse(m["values"])
		if err != nil {
			return nil, err
		}
		return Map{Values: values}, nil
	case "enum":
		name, _ := m["name"].(string)
		rawSymbols, ok := m["symbols"].([]any)
		if !ok {
			return nil, core.NewMalformedDocumentError(fmt.Sprintf("enum %q missing symbols", name))
		}
		symbols := make([]string, 0, len(rawSymbols))
		for _, rs := range rawSymbols {
			s, ok := rs.(string)
			if !ok {
				return nil, core.NewMalformedDocumentError(fmt.Sprintf("enum %q has a non-string symbol", name))
			}
			symbols = append(symbols, s)
		}
		e, err := NewEnum(name, symbols)
		if err != nil {
			return nil, core.NewMalformedDocumentError(err.Error())
		}
		return e, nil
	case "fixed":
		name, _ := m["name"].(string)
		size, ok := m["size"].(float64)
		if !ok {
			return nil, core.NewMalformedDocumentError(fmt.Sprintf("fixed %q missing size", name))
		}
		f, err := NewFixed(name, int(size))
		if err != nil {
			return nil, core.NewMalformedDocumentError(err.Error())
		}
		return f, nil
	default:
		// {"type": "double"} style wrapped primitives
		if t, ok := primitivesByName[kind]; ok {
			return t, nil
		}
		return nil, core.NewMalformedDocumentError(fmt.Sprintf("unknown type kind %q", kind))
	}
}
