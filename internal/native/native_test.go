package native

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopfa/domain/model"
	"gopfa/internal/extract"
	"gopfa/internal/produce"
	"gopfa/internal/testkit"
)

func extractFixture(t *testing.T, m model.FittedModel) *model.ExtractedParams {
	t.Helper()
	var params *model.ExtractedParams
	var err error
	switch m.Kind {
	case model.KindLinear:
		params, err = extract.Linear(m)
	case model.KindGLM:
		params, err = extract.GLM(m)
	case model.KindGLMNet:
		params, err = extract.GLMNet(m, extract.LambdaBest)
	case model.KindGBM:
		params, err = extract.GBM(m)
	case model.KindForest:
		params, err = extract.Forest(m)
	}
	require.NoError(t, err)
	return params
}

// The native scorer and the compiled document must agree on every fixture:
// any drift here means the produced expression tree no longer encodes the
// model it was built from.
func TestNativeMatchesCompiledDocument(t *testing.T) {
	cases := []struct {
		name    string
		fixture model.FittedModel
		opts    produce.Options
		input   map[string]any
	}{
		{"linear", testkit.LinearModel(), produce.Options{}, map[string]any{"X1": 0.5}},
		{"binomial_response", testkit.BinomialModel(), produce.Options{}, map[string]any{"X1": 1.0, "X2": 2.0}},
		{"binomial_link", testkit.BinomialModel(), produce.Options{PredType: produce.PredLink}, map[string]any{"X1": 1.0, "X2": 2.0}},
		{"binomial_class", testkit.BinomialModel(), produce.Options{PredType: produce.PredClass}, map[string]any{"X1": 1.0, "X2": 2.0}},
		{"factor_glm", testkit.FactorGLM(), produce.Options{}, map[string]any{"X1": 2.0, "Color": "red"}},
		{"multinomial_response", testkit.MultinomialModel(), produce.Options{}, map[string]any{"X1": 0.5, "X2": -1.0}},
		{"multinomial_class", testkit.MultinomialModel(), produce.Options{PredType: produce.PredClass}, map[string]any{"X1": 0.5, "X2": -1.0}},
		{"glmnet", testkit.GLMNetModel(), produce.Options{}, map[string]any{"X1": 1.0, "X2": 2.0}},
		{"gbm_response", testkit.GBMModel(), produce.Options{}, map[string]any{"X1": 1.0}},
		{"gbm_class", testkit.GBMModel(), produce.Options{PredType: produce.PredClass}, map[string]any{"X1": 1.0}},
		{"forest_mean", testkit.ForestRegressionModel(), produce.Options{}, map[string]any{"X1": 0.75}},
		{"forest_class", testkit.ForestClassificationModel(), produce.Options{PredType: produce.PredClass}, map[string]any{"X1": 0.75}},
		{"forest_votes", testkit.ForestClassificationModel(), produce.Options{}, map[string]any{"X1": 0.75}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := extractFixture(t, tc.fixture)
			frag, err := produce.Produce(params, tc.opts)
			require.NoError(t, err)
			compiled, err := testkit.EvalAction(frag.Action, frag.Cells, frag.Pools, tc.input)
			require.NoError(t, err)

			got, err := Score(params, tc.opts, tc.input)
			require.NoError(t, err)

			switch want := compiled.(type) {
			case float64:
				assert.InDelta(t, want, got.(float64), 1e-9)
			case map[string]any:
				gotMap := got.(map[string]any)
				require.Len(t, gotMap, len(want))
				for k, v := range want {
					assert.InDelta(t, v.(float64), gotMap[k].(float64), 1e-9)
				}
			default:
				assert.Equal(t, compiled, got)
			}
		})
	}
}

func TestScore_MissingInput(t *testing.T) {
	params := extractFixture(t, testkit.LinearModel())
	_, err := Score(params, produce.Options{}, map[string]any{})
	assert.Error(t, err)
}

func TestPickClass_RatioRule(t *testing.T) {
	opts := produce.Options{Cutoffs: map[string]float64{"A": 0.1, "B": 0.2, "C": 0.7}}
	got := pickClass([]float64{0.1, 0.3, 0.6}, []string{"A", "B", "C"}, opts)
	assert.Equal(t, "B", got)

	got = pickClass([]float64{0.5, 0.5}, []string{"A", "B"}, produce.Options{})
	assert.Equal(t, "A", got)
}
