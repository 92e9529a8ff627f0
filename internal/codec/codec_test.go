package codec_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopfa/domain/core"
	"gopfa/domain/pfa"
	"gopfa/internal/assemble"
	"gopfa/internal/codec"
	"gopfa/internal/extract"
	"gopfa/internal/produce"
	"gopfa/internal/testkit"
)

func sampleDocument(t *testing.T) *pfa.Document {
	t.Helper()
	params, err := extract.Linear(testkit.LinearModel())
	require.NoError(t, err)
	frag, err := produce.Produce(params, produce.Options{})
	require.NoError(t, err)
	doc, err := assemble.Assemble(frag, assemble.Meta{Name: "model_sample"})
	require.NoError(t, err)
	return doc
}

func TestWrite_CanonicalText(t *testing.T) {
	doc := sampleDocument(t)
	text, err := codec.Write(doc)
	require.NoError(t, err)

	// Compact already: recompacting must not change a byte.
	var buf bytes.Buffer
	require.NoError(t, json.Compact(&buf, []byte(text)))
	assert.Equal(t, buf.String(), text)

	// Byte-stable across repeated writes.
	again, err := codec.Write(doc)
	require.NoError(t, err)
	assert.Equal(t, text, again)
}

func TestRoundTrip(t *testing.T) {
	doc := sampleDocument(t)
	text, err := codec.Write(doc)
	require.NoError(t, err)

	back, err := codec.ReadString(text)
	require.NoError(t, err)
	require.NoError(t, assemble.Check(back))

	again, err := codec.Write(back)
	require.NoError(t, err)
	assert.Equal(t, text, again)
}

func TestRoundTrip_PreservesScoring(t *testing.T) {
	doc := sampleDocument(t)
	text, err := codec.Write(doc)
	require.NoError(t, err)
	back, err := codec.ReadString(text)
	require.NoError(t, err)

	out, err := testkit.EvalDocument(back, map[string]any{"X1": 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, out.(float64), 1e-12)
}

func TestFromText_Dispatch(t *testing.T) {
	doc := sampleDocument(t)
	text, err := codec.Write(doc)
	require.NoError(t, err)

	ctx := context.Background()

	fromLiteral, err := codec.FromText(ctx, text, 0)
	require.NoError(t, err)
	assert.Equal(t, doc.Name, fromLiteral.Name)

	path := filepath.Join(t.TempDir(), "model.pfa")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o600))
	fromFile, err := codec.FromText(ctx, path, 0)
	require.NoError(t, err)
	assert.Equal(t, doc.Name, fromFile.Name)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(text))
	}))
	defer srv.Close()
	fromURL, err := codec.FromText(ctx, srv.URL, time.Second)
	require.NoError(t, err)
	assert.Equal(t, doc.Name, fromURL.Name)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := codec.ReadFile(filepath.Join(t.TempDir(), "absent.pfa"))
	assert.ErrorIs(t, err, core.ErrSourceUnavailable)
}

func TestReadURL_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	_, err := codec.ReadURL(context.Background(), srv.URL, time.Second)
	assert.ErrorIs(t, err, core.ErrSourceUnavailable)
}

func TestReadURL_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()
	_, err := codec.ReadURL(context.Background(), srv.URL, 20*time.Millisecond)
	assert.ErrorIs(t, err, core.ErrSourceUnavailable)
}

func TestReadString_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":         `{"input":`,
		"missing input":    `{"output":"double","action":["input"]}`,
		"missing output":   `{"input":"double","action":["input"]}`,
		"action not list":  `{"input":"double","output":"double","action":"input"}`,
		"unknown function": `{"input":"double","output":"double","action":[{"m.frobnicate":["input"]}]}`,
		"bad cell shape":   `{"input":"double","output":"double","cells":{"model":3},"action":["input"]}`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := codec.ReadString(text)
			assert.ErrorIs(t, err, core.ErrMalformedDocument)
		})
	}
}

func TestReadString_MinimalDocument(t *testing.T) {
	doc, err := codec.ReadString(`{"input":"double","output":"double","action":[{"+":["input",{"int":10}]}]}`)
	require.NoError(t, err)
	require.NoError(t, assemble.Check(doc))

	out, err := testkit.EvalDocument(doc, 2.5)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, out.(float64), 1e-12)
}
