// Package codec serializes documents to their canonical JSON text and
// reads them back from text, streams, decoded maps, files, and URLs.
package codec

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"gopfa/domain/avro"
	"gopfa/domain/core"
	"gopfa/domain/expr"
	"gopfa/domain/pfa"
)

// DefaultFetchTimeout bounds URL reads when the caller supplies no
// deadline of its own.
const DefaultFetchTimeout = 10 * time.Second

// Write returns the canonical encoding of a document: compact JSON with
// object keys in sorted order, no insignificant whitespace.
func Write(doc *pfa.Document) (string, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", core.NewDocumentConsistencyError(err.Error())
	}
	return string(b), nil
}

// WriteTo streams the canonical encoding to w.
func WriteTo(doc *pfa.Document, w io.Writer) error {
	s, err := Write(doc)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, s)
	return err
}

// Read decodes a document from a JSON stream.
func Read(r io.Reader) (*pfa.Document, error) {
	var raw map[string]any
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, core.NewMalformedDocumentError(err.Error())
	}
	return ReadMap(raw)
}

// ReadString decodes a document from JSON text.
func ReadString(s string) (*pfa.Document, error) {
	return Read(strings.NewReader(s))
}

// ReadFile decodes a document stored on disk.
func ReadFile(path string) (*pfa.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.NewSourceUnavailableError(path, err)
	}
	defer f.Close()
	return Read(f)
}

// ReadURL fetches and decodes a document over HTTP. The fetch is bounded
// by timeout on top of whatever deadline ctx already carries.
func ReadURL(ctx context.Context, url string, timeout time.Duration) (*pfa.Document, error) {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, core.NewSourceUnavailableError(url, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, core.NewSourceUnavailableError(url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, core.NewSourceUnavailableError(url,
			fmt.Errorf("unexpected status %s", resp.Status))
	}
	return Read(resp.Body)
}

// FromText resolves a document from any textual source: literal JSON,
// an http(s) URL, or a filesystem path.
func FromText(ctx context.Context, text string, timeout time.Duration) (*pfa.Document, error) {
	trimmed := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(trimmed, "{"):
		return ReadString(trimmed)
	case strings.HasPrefix(trimmed, "http://"), strings.HasPrefix(trimmed, "https://"):
		return ReadURL(ctx, trimmed, timeout)
	default:
		return ReadFile(trimmed)
	}
}

// ReadMap rebuilds a document from an already-decoded JSON object.
func ReadMap(raw map[string]any) (*pfa.Document, error) {
	doc := &pfa.Document{}

	if name, ok := raw["name"]; ok {
		s, ok := name.(string)
		if !ok {
			return nil, core.NewMalformedDocumentError("name must be a string")
		}
		doc.Name = core.DocumentName(s)
	}
	if method, ok := raw["method"]; ok {
		s, ok := method.(string)
		if !ok {
			return nil, core.NewMalformedDocumentError("method must be a string")
		}
		doc.Method = s
	}

	inputRaw, ok := raw["input"]
	if !ok {
		return nil, core.NewMalformedDocumentError("document requires an input type")
	}
	input, err := avro.Parse(inputRaw)
	if err != nil {
		return nil, err
	}
	doc.Input = input

	outputRaw, ok := raw["output"]
	if !ok {
		return nil, core.NewMalformedDocumentError("document requires an output type")
	}
	output, err := avro.Parse(outputRaw)
	if err != nil {
		return nil, err
	}
	doc.Output = output

	if cellsRaw, ok := raw["cells"]; ok {
		cells, err := parseCells(cellsRaw)
		if err != nil {
			return nil, err
		}
		doc.Cells = cells
	}
	if poolsRaw, ok := raw["pools"]; ok {
		pools, err := parsePools(poolsRaw)
		if err != nil {
			return nil, err
		}
		doc.Pools = pools
	}

	actionRaw, ok := raw["action"].([]any)
	if !ok {
		return nil, core.NewMalformedDocumentError("action must be an expression list")
	}
	action := make([]expr.Expr, 0, len(actionRaw))
	for _, e := range actionRaw {
		parsed, err := expr.Parse(e)
		if err != nil {
			return nil, err
		}
		action = append(action, parsed)
	}
	doc.Action = action

	if version, ok := raw["version"]; ok {
		n, ok := version.(float64)
		if !ok {
			return nil, core.NewMalformedDocumentError("version must be a number")
		}
		doc.Version = int(n)
	}
	if docstring, ok := raw["doc"]; ok {
		s, ok := docstring.(string)
		if !ok {
			return nil, core.NewMalformedDocumentError("doc must be a string")
		}
		doc.Doc = s
	}
	if metaRaw, ok := raw["metadata"]; ok {
		entries, ok := metaRaw.(map[string]any)
		if !ok {
			return nil, core.NewMalformedDocumentError("metadata must be an object")
		}
		meta := make(map[string]string, len(entries))
		for k, v := range entries {
			s, ok := v.(string)
			if !ok {
				return nil, core.NewMalformedDocumentError("metadata values must be strings")
			}
			meta[k] = s
		}
		doc.Metadata = meta
	}
	return doc, nil
}

func parseCells(v any) (map[string]pfa.Cell, error) {
	entries, ok := v.(map[string]any)
	if !ok {
		return nil, core.NewMalformedDocumentError("cells must be an object")
	}
	cells := make(map[string]pfa.Cell, len(entries))
	for name, e := range entries {
		t, init, err := parseState(name, e)
		if err != nil {
			return nil, err
		}
		cell, err := pfa.NewCell(name, t, init)
		if err != nil {
			return nil, err
		}
		cells[name] = cell
	}
	return cells, nil
}

func parsePools(v any) (map[string]pfa.Pool, error) {
	entries, ok := v.(map[string]any)
	if !ok {
		return nil, core.NewMalformedDocumentError("pools must be an object")
	}
	pools := make(map[string]pfa.Pool, len(entries))
	for name, e := range entries {
		t, init, err := parseState(name, e)
		if err != nil {
			return nil, err
		}
		slots, ok := init.(map[string]any)
		if !ok {
			return nil, core.NewMalformedDocumentError(
				fmt.Sprintf("pool %q init must be an object", name))
		}
		pool, err := pfa.NewPool(name, t, slots)
		if err != nil {
			return nil, err
		}
		pools[name] = pool
	}
	return pools, nil
}

func parseState(name string, v any) (avro.Type, any, error) {
	entry, ok := v.(map[string]any)
	if !ok {
		return nil, nil, core.NewMalformedDocumentError(
			fmt.Sprintf("state %q must be an object", name))
	}
	typeRaw, ok := entry["type"]
	if !ok {
		return nil, nil, core.NewMalformedDocumentError(
			fmt.Sprintf("state %q requires a type", name))
	}
	t, err := avro.Parse(typeRaw)
	if err != nil {
		return nil, nil, err
	}
	return t, entry["init"], nil
}
