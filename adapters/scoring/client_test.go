package scoring_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopfa/adapters/scoring"
	"gopfa/domain/pfa"
	"gopfa/internal/assemble"
	apperrors "gopfa/internal/errors"
	"gopfa/internal/extract"
	"gopfa/internal/produce"
	"gopfa/internal/testkit"
)

func compiledLinear(t *testing.T) *pfa.Document {
	t.Helper()
	params, err := extract.Linear(testkit.LinearModel())
	require.NoError(t, err)
	frag, err := produce.Produce(params, produce.Options{})
	require.NoError(t, err)
	doc, err := assemble.Assemble(frag, assemble.Meta{})
	require.NoError(t, err)
	return doc
}

func TestClient_Evaluate(t *testing.T) {
	srv := httptest.NewServer(testkit.EngineHandler())
	defer srv.Close()

	client, err := scoring.NewClient(srv.URL, time.Second)
	require.NoError(t, err)

	out, err := client.Evaluate(context.Background(), compiledLinear(t), map[string]any{"X1": 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, out.(float64), 1e-9)
}

func TestClient_EngineRejection(t *testing.T) {
	srv := httptest.NewServer(testkit.EngineHandler())
	defer srv.Close()

	client, err := scoring.NewClient(srv.URL, time.Second)
	require.NoError(t, err)

	// Wrong input shape for a record-typed document.
	_, err = client.Evaluate(context.Background(), compiledLinear(t), "not a record")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeScoringEngine, apperrors.GetCode(err))
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client, err := scoring.NewClient(srv.URL, 100*time.Millisecond)
	require.NoError(t, err)

	_, err = client.Evaluate(context.Background(), compiledLinear(t), map[string]any{"X1": 0.5})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeScoringEngine, apperrors.GetCode(err))
}

func TestNewClient_RequiresURL(t *testing.T) {
	_, err := scoring.NewClient("  ", time.Second)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConfigInvalid, apperrors.GetCode(err))
}
