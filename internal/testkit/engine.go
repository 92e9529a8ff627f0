package testkit

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gopfa/domain/pfa"
	"gopfa/internal/codec"
)

// Engine is an in-process scoring engine backed by the action evaluator.
// It satisfies the same contract the validation bridge expects from an
// external engine.
type Engine struct{}

func (Engine) Evaluate(_ context.Context, doc *pfa.Document, input any) (any, error) {
	return EvalDocument(doc, input)
}

// EngineHandler serves the HTTP contract of a scoring engine: POST /score
// with a document and one input datum, returning the evaluation result.
// Tests mount it on an httptest server to exercise the HTTP client.
func EngineHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/score", handleScore)
	return r
}

func handleScore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Document map[string]any `json:"document"`
		Input    any            `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeScore(w, http.StatusBadRequest, nil, err.Error())
		return
	}
	doc, err := codec.ReadMap(req.Document)
	if err != nil {
		writeScore(w, http.StatusUnprocessableEntity, nil, err.Error())
		return
	}
	result, err := EvalDocument(doc, req.Input)
	if err != nil {
		writeScore(w, http.StatusUnprocessableEntity, nil, err.Error())
		return
	}
	writeScore(w, http.StatusOK, result, "")
}

func writeScore(w http.ResponseWriter, status int, result any, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Result any    `json:"result"`
		Error  string `json:"error,omitempty"`
	}{result, errMsg})
}
