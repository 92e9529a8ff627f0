package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopfa/domain/core"
	"gopfa/domain/model"
)

func TestLinear_HappyPath(t *testing.T) {
	m := model.FittedModel{
		Kind: model.KindLinear,
		State: map[string]any{
			"predictors":   []string{"X1", "X2"},
			"coefficients": []float64{-5.0, 2.5},
			"intercept":    3.0,
		},
	}
	params, err := Linear(m)
	require.NoError(t, err)
	assert.Equal(t, model.FamilyGaussian, params.Family)
	assert.Equal(t, []string{"X1", "X2"}, params.Predictors)
	assert.Equal(t, []float64{-5.0, 2.5}, params.Coefficients)
	assert.Equal(t, 3.0, params.Intercept)
}

func TestLinear_StrippedStateFails(t *testing.T) {
	m := model.FittedModel{
		Kind: model.KindLinear,
		State: map[string]any{
			"predictors": []string{"X1"},
			// coefficients removed, as when a model object was stripped
			// of its post-fit state
			"intercept": 1.0,
		},
	}
	_, err := Linear(m)
	assert.ErrorIs(t, err, core.ErrUnsupportedModelState)
}

func TestLinear_AcceptsJSONDecodedState(t *testing.T) {
	m := model.FittedModel{
		Kind: model.KindLinear,
		State: map[string]any{
			"predictors":   []any{"X1"},
			"coefficients": []any{-5.0},
			"intercept":    3.0,
		},
	}
	params, err := Linear(m)
	require.NoError(t, err)
	assert.Equal(t, []float64{-5.0}, params.Coefficients)
}

func TestGLM_BinomialRequiresTwoClasses(t *testing.T) {
	state := map[string]any{
		"family":       "binomial",
		"predictors":   []string{"X1"},
		"coefficients": []float64{1.2},
		"intercept":    -0.4,
		"classes":      []string{"no", "yes", "maybe"},
	}
	_, err := GLM(model.FittedModel{Kind: model.KindGLM, State: state})
	assert.ErrorIs(t, err, core.ErrUnsupportedModelState)

	state["classes"] = []string{"no", "yes"}
	params, err := GLM(model.FittedModel{Kind: model.KindGLM, State: state})
	require.NoError(t, err)
	assert.Equal(t, model.LinkLogit, params.Link)
	assert.Equal(t, []string{"no", "yes"}, params.Classes)
}

func TestGLM_FactorLevels(t *testing.T) {
	m := model.FittedModel{
		Kind: model.KindGLM,
		State: map[string]any{
			"family":       "binomial",
			"predictors":   []string{"X1", "Color"},
			"coefficients": []float64{1.5},
			"intercept":    0.0,
			"classes":      []string{"no", "yes"},
			"factor_levels": map[string]any{
				"Color": map[string]any{"red": 0.3, "green": -0.2},
			},
		},
	}
	params, err := GLM(m)
	require.NoError(t, err)
	require.Contains(t, params.FactorLevels, "Color")
	assert.Equal(t, 0.3, params.FactorLevels["Color"]["red"])
}

func TestGLM_MultinomialAlignment(t *testing.T) {
	m := model.FittedModel{
		Kind: model.KindGLM,
		State: map[string]any{
			"family":             "multinomial",
			"predictors":         []string{"X1", "X2"},
			"classes":            []string{"A", "B", "C"},
			"class_coefficients": [][]float64{{0, 0}, {1, 2}},
			"class_intercepts":   []float64{0, 0.5, -0.5},
		},
	}
	_, err := GLM(m)
	assert.ErrorIs(t, err, core.ErrUnsupportedModelState)
}

func TestSelectLambda(t *testing.T) {
	path := []float64{0.1, 0.05, 0.01}
	tests := []struct {
		name      string
		requested float64
		wantIdx   int
	}{
		{"between fitted values picks smallest >= requested", 0.07, 0},
		{"exact match", 0.05, 1},
		{"above whole path takes the largest", 0.5, 0},
		{"below whole path picks smallest >= requested", 0.001, 2},
		{"best takes the smallest lambda", LambdaBest, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantIdx, selectLambda(path, tt.requested))
		})
	}
}

func TestSelectLambda_TieBreaksToSmallerIndex(t *testing.T) {
	assert.Equal(t, 1, selectLambda([]float64{0.2, 0.1, 0.1}, 0.07))
}

func TestGLMNet_SelectsCoefficientsForLambda(t *testing.T) {
	m := model.FittedModel{
		Kind: model.KindGLMNet,
		State: map[string]any{
			"family":      "gaussian",
			"predictors":  []string{"X1"},
			"lambda_path": []float64{0.1, 0.05, 0.01},
			"coefficient_path": [][]float64{
				{0.0},
				{-2.0},
				{-5.0},
			},
			"intercept_path": []float64{1.0, 2.0, 3.0},
		},
	}
	params, err := GLMNet(m, 0.07)
	require.NoError(t, err)
	assert.Equal(t, 0.1, params.Lambda)
	assert.Equal(t, []float64{0.0}, params.Coefficients)
	assert.Equal(t, 1.0, params.Intercept)

	params, err = GLMNet(m, LambdaBest)
	require.NoError(t, err)
	assert.Equal(t, 0.01, params.Lambda)
	assert.Equal(t, []float64{-5.0}, params.Coefficients)
}

func gbmState() map[string]any {
	return map[string]any{
		"distribution": "bernoulli",
		"family":       "binomial",
		"predictors":   []string{"X1"},
		"init":         0.25,
		"shrinkage":    0.1,
		"trees": []any{
			map[string]any{"nodes": []any{
				map[string]any{"node_id": 1.0, "split_feature": "X1", "split_threshold": 0.5, "left_child": 2.0, "right_child": 5.0},
				map[string]any{"node_id": 2.0, "leaf_value": -1.0},
				map[string]any{"node_id": 5.0, "leaf_value": 2.0},
			}},
		},
	}
}

func TestGBM_ScalesLeavesAndResolvesSparseIDs(t *testing.T) {
	params, err := GBM(model.FittedModel{Kind: model.KindGBM, State: gbmState()})
	require.NoError(t, err)
	require.Len(t, params.Trees, 1)
	tree := params.Trees[0]
	require.Len(t, tree.Nodes, 3)

	root := tree.Nodes[0]
	assert.False(t, root.Leaf)
	assert.Equal(t, "X1", root.Feature)
	assert.Equal(t, 1, root.Left)
	assert.Equal(t, 2, root.Right)
	assert.InDelta(t, -0.1, tree.Nodes[root.Left].Value, 1e-12)
	assert.InDelta(t, 0.2, tree.Nodes[root.Right].Value, 1e-12)
	assert.Equal(t, 0.25, params.BaseOffset)
}

func TestGBM_MissingChildFails(t *testing.T) {
	state := gbmState()
	state["trees"] = []any{
		map[string]any{"nodes": []any{
			map[string]any{"node_id": 0.0, "split_feature": "X1", "split_threshold": 0.5, "left_child": 1.0, "right_child": 9.0},
			map[string]any{"node_id": 1.0, "leaf_value": -1.0},
		}},
	}
	_, err := GBM(model.FittedModel{Kind: model.KindGBM, State: state})
	assert.ErrorIs(t, err, core.ErrUnsupportedModelState)
}

func TestForest_AggregationModes(t *testing.T) {
	trees := []any{
		map[string]any{"nodes": []any{
			map[string]any{"node_id": 0.0, "leaf_value": 1.0},
		}},
	}
	reg, err := Forest(model.FittedModel{Kind: model.KindForest, State: map[string]any{
		"predictors": []string{"X1"},
		"trees":      trees,
	}})
	require.NoError(t, err)
	assert.Equal(t, model.AggregationMean, reg.Aggregation)
	assert.False(t, reg.IsClassification())

	cls, err := Forest(model.FittedModel{Kind: model.KindForest, State: map[string]any{
		"predictors": []string{"X1"},
		"trees":      trees,
		"classes":    []string{"A", "B"},
	}})
	require.NoError(t, err)
	assert.Equal(t, model.AggregationVote, cls.Aggregation)
	require.True(t, cls.IsClassification())
}
