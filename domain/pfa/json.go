package pfa

import (
	"encoding/json"

	"gopfa/domain/avro"
	"gopfa/domain/expr"
)

func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type avro.Type `json:"type"`
		Init any       `json:"init"`
	}{c.Type, c.Init})
}

func (p Pool) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type avro.Type      `json:"type"`
		Init map[string]any `json:"init"`
	}{p.Type, p.Init})
}

// MarshalJSON emits the canonical document shape. encoding/json inserts no
// whitespace and sorts map keys, which together give the byte-stable,
// minimal encoding the serializer promises.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name     string            `json:"name,omitempty"`
		Method   string            `json:"method,omitempty"`
		Input    avro.Type         `json:"input"`
		Output   avro.Type         `json:"output"`
		Cells    map[string]Cell   `json:"cells,omitempty"`
		Pools    map[string]Pool   `json:"pools,omitempty"`
		Action   []expr.Expr       `json:"action"`
		Version  int               `json:"version,omitempty"`
		Doc      string            `json:"doc,omitempty"`
		Metadata map[string]string `json:"metadata,omitempty"`
	}{
		Name:     d.Name.String(),
		Method:   d.Method,
		Input:    d.Input,
		Output:   d.Output,
		Cells:    d.Cells,
		Pools:    d.Pools,
		Action:   d.Action,
		Version:  d.Version,
		Doc:      d.Doc,
		Metadata: d.Metadata,
	})
}
