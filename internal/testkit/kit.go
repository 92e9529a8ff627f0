// Package testkit provides fitted-model fixtures and a minimal action
// evaluator shared by the compiler's tests.
package testkit

import (
	"gopfa/domain/model"
)

// LinearModel is the canonical single-predictor fixture:
// y = 3.0 - 5.0 * X1
func LinearModel() model.FittedModel {
	return model.FittedModel{
		Kind: model.KindLinear,
		State: map[string]any{
			"predictors":   []string{"X1"},
			"coefficients": []float64{-5.0},
			"intercept":    3.0,
		},
	}
}

// BinomialModel is a two-predictor logistic regression with labels no/yes
func BinomialModel() model.FittedModel {
	return model.FittedModel{
		Kind: model.KindGLM,
		State: map[string]any{
			"family":       "binomial",
			"predictors":   []string{"X1", "X2"},
			"coefficients": []float64{1.2, -0.7},
			"intercept":    -0.4,
			"classes":      []string{"no", "yes"},
		},
	}
}

// FactorGLM is a binomial fit with one numeric and one factor predictor
func FactorGLM() model.FittedModel {
	return model.FittedModel{
		Kind: model.KindGLM,
		State: map[string]any{
			"family":       "binomial",
			"predictors":   []string{"X1", "Color"},
			"coefficients": []float64{1.5},
			"intercept":    -0.2,
			"classes":      []string{"no", "yes"},
			"factor_levels": map[string]any{
				"Color": map[string]any{"red": 0.3, "green": -0.2, "blue": 0.0},
			},
		},
	}
}

// MultinomialModel is a three-class fit over two predictors, class A as
// the reference class
func MultinomialModel() model.FittedModel {
	return model.FittedModel{
		Kind: model.KindGLM,
		State: map[string]any{
			"family":     "multinomial",
			"predictors": []string{"X1", "X2"},
			"classes":    []string{"A", "B", "C"},
			"class_coefficients": [][]float64{
				{0.0, 0.0},
				{0.8, -0.3},
				{-0.5, 0.9},
			},
			"class_intercepts": []float64{0.0, 0.2, -0.1},
		},
	}
}

// GLMNetModel is a gaussian elastic-net path over three strengths
func GLMNetModel() model.FittedModel {
	return model.FittedModel{
		Kind: model.KindGLMNet,
		State: map[string]any{
			"family":      "gaussian",
			"predictors":  []string{"X1", "X2"},
			"lambda_path": []float64{0.1, 0.05, 0.01},
			"coefficient_path": [][]float64{
				{0.0, 0.0},
				{-1.0, 0.5},
				{-2.5, 1.75},
			},
			"intercept_path": []float64{1.5, 1.2, 1.0},
		},
	}
}

// GBMModel is a two-tree bernoulli boosted ensemble over one predictor
func GBMModel() model.FittedModel {
	return model.FittedModel{
		Kind: model.KindGBM,
		State: map[string]any{
			"family":     "binomial",
			"predictors": []string{"X1"},
			"classes":    []string{"no", "yes"},
			"init":       0.1,
			"shrinkage":  0.5,
			"trees": []any{
				stumpTree("X1", 0.5, -1.0, 1.0),
				stumpTree("X1", 1.5, -0.5, 0.75),
			},
		},
	}
}

// ForestRegressionModel averages three stumps over one predictor
func ForestRegressionModel() model.FittedModel {
	return model.FittedModel{
		Kind: model.KindForest,
		State: map[string]any{
			"predictors": []string{"X1"},
			"trees": []any{
				stumpTree("X1", 0.5, 1.0, 3.0),
				stumpTree("X1", 1.0, 2.0, 4.0),
				stumpTree("X1", 1.5, 1.5, 2.5),
			},
		},
	}
}

// ForestClassificationModel votes among classes A/B/C with three stumps;
// leaf values are class indexes
func ForestClassificationModel() model.FittedModel {
	return model.FittedModel{
		Kind: model.KindForest,
		State: map[string]any{
			"predictors": []string{"X1"},
			"classes":    []string{"A", "B", "C"},
			"trees": []any{
				stumpTree("X1", 0.5, 0.0, 1.0),
				stumpTree("X1", 1.0, 1.0, 2.0),
				stumpTree("X1", 1.5, 1.0, 2.0),
			},
		},
	}
}

// stumpTree builds a one-split node table in the neutral state layout
func stumpTree(feature string, threshold, leftLeaf, rightLeaf float64) map[string]any {
	return map[string]any{
		"nodes": []any{
			map[string]any{
				"node_id":         0.0,
				"split_feature":   feature,
				"split_threshold": threshold,
				"left_child":      1.0,
				"right_child":     2.0,
			},
			map[string]any{"node_id": 1.0, "leaf_value": leftLeaf},
			map[string]any{"node_id": 2.0, "leaf_value": rightLeaf},
		},
	}
}
