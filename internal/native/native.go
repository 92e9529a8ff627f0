// Package native scores extracted parameters directly, without going
// through a document. It is the reference the validation bridge compares
// compiled documents against: both sides consume the same parameters, so
// any disagreement points at the produced expression tree.
package native

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"gopfa/domain/core"
	"gopfa/domain/model"
	"gopfa/internal/produce"
)

// Score computes the prediction the compiled document is expected to make
// for one input row.
func Score(params *model.ExtractedParams, opts produce.Options, input map[string]any) (any, error) {
	if opts.PredType == "" {
		opts.PredType = produce.PredResponse
	}
	switch params.Kind {
	case model.KindLinear, model.KindGLM, model.KindGLMNet:
		if params.Family == model.FamilyMultinomial {
			return scoreMultinomial(params, opts, input)
		}
		return scoreRegression(params, opts, input)
	case model.KindGBM:
		return scoreGBM(params, opts, input)
	case model.KindForest:
		return scoreForest(params, opts, input)
	default:
		return nil, core.NewUnsupportedFamilyError(string(params.Kind))
	}
}

func scoreRegression(params *model.ExtractedParams, opts produce.Options, input map[string]any) (any, error) {
	lp, err := linearPredictor(params, input)
	if err != nil {
		return nil, err
	}
	if opts.PredType == produce.PredLink {
		return lp, nil
	}
	switch params.Family {
	case model.FamilyGaussian, "":
		return lp, nil
	case model.FamilyBinomial:
		prob := inverseLink(params.Link, lp)
		switch opts.PredType {
		case produce.PredResponse, produce.PredProbability:
			return prob, nil
		case produce.PredClass:
			positive := params.Classes[1]
			if prob >= opts.Cutoff(positive) {
				return positive, nil
			}
			return params.Classes[0], nil
		}
	case model.FamilyPoisson, model.FamilyCox:
		return math.Exp(lp), nil
	}
	return nil, core.NewUnsupportedFamilyError(string(params.Family))
}

func scoreMultinomial(params *model.ExtractedParams, opts produce.Options, input map[string]any) (any, error) {
	lps := make([]float64, len(params.Classes))
	for k := range params.Classes {
		row := params.ClassCoefficients[k]
		lp := params.ClassIntercepts[k]
		for i, p := range params.Predictors {
			x, err := numericInput(input, p)
			if err != nil {
				return nil, err
			}
			lp += row[i] * x
		}
		lps[k] = lp
	}
	if opts.PredType == produce.PredLink {
		return classKeyed(params.Classes, lps), nil
	}
	probs := softmax(lps)
	if opts.PredType == produce.PredClass {
		return pickClass(probs, params.Classes, opts), nil
	}
	return classKeyed(params.Classes, probs), nil
}

func scoreGBM(params *model.ExtractedParams, opts produce.Options, input map[string]any) (any, error) {
	score := params.BaseOffset
	for _, tree := range params.Trees {
		leaf, err := walk(tree, input)
		if err != nil {
			return nil, err
		}
		score += leaf
	}
	if opts.PredType == produce.PredLink {
		return score, nil
	}
	switch params.Family {
	case model.FamilyGaussian, "":
		return score, nil
	case model.FamilyBinomial:
		prob := logistic(score)
		switch opts.PredType {
		case produce.PredResponse, produce.PredProbability:
			return prob, nil
		case produce.PredClass:
			positive := params.Classes[1]
			if prob >= opts.Cutoff(positive) {
				return positive, nil
			}
			return params.Classes[0], nil
		}
	case model.FamilyPoisson:
		return math.Exp(score), nil
	}
	return nil, core.NewUnsupportedFamilyError(string(params.Family))
}

func scoreForest(params *model.ExtractedParams, opts produce.Options, input map[string]any) (any, error) {
	leaves := make([]float64, len(params.Trees))
	for i, tree := range params.Trees {
		leaf, err := walk(tree, input)
		if err != nil {
			return nil, err
		}
		leaves[i] = leaf
	}
	if params.Aggregation == model.AggregationMean {
		return floats.Sum(leaves) / float64(len(leaves)), nil
	}
	counts := make([]float64, len(params.Classes))
	for _, leaf := range leaves {
		k := int(leaf)
		if k < 0 || k >= len(counts) {
			return nil, core.NewUnsupportedModelStateError("trees")
		}
		counts[k]++
	}
	if opts.PredType == produce.PredClass {
		return pickClass(counts, params.Classes, opts), nil
	}
	fractions := make([]float64, len(counts))
	for k, c := range counts {
		fractions[k] = c / float64(len(params.Trees))
	}
	return classKeyed(params.Classes, fractions), nil
}

// pickClass applies the cutoff-ratio decision rule: the winning class
// maximizes score/cutoff, ties broken toward the lowest class index.
func pickClass(scores []float64, classes []string, opts produce.Options) string {
	best := 0
	bestRatio := scores[0] / opts.Cutoff(classes[0])
	for k := 1; k < len(scores); k++ {
		ratio := scores[k] / opts.Cutoff(classes[k])
		if ratio > bestRatio {
			best, bestRatio = k, ratio
		}
	}
	return classes[best]
}

func linearPredictor(params *model.ExtractedParams, input map[string]any) (float64, error) {
	xs := make([]float64, 0, len(params.Coefficients))
	lp := params.Intercept
	for _, p := range params.Predictors {
		if levels, isFactor := params.FactorLevels[p]; isFactor {
			raw, ok := input[p]
			if !ok {
				return 0, core.NewUnsupportedModelStateError(p)
			}
			level, ok := raw.(string)
			if !ok {
				return 0, core.NewUnsupportedModelStateError(p)
			}
			lp += levels[level]
			continue
		}
		x, err := numericInput(input, p)
		if err != nil {
			return 0, err
		}
		xs = append(xs, x)
	}
	return lp + floats.Dot(params.Coefficients, xs), nil
}

func walk(tree model.Tree, input map[string]any) (float64, error) {
	i := 0
	for {
		node := tree.Nodes[i]
		if node.Leaf {
			return node.Value, nil
		}
		x, err := numericInput(input, node.Feature)
		if err != nil {
			return 0, err
		}
		if x < node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}

func inverseLink(link model.Link, lp float64) float64 {
	switch link {
	case model.LinkProbit:
		return distuv.Normal{Mu: 0, Sigma: 1}.CDF(lp)
	case model.LinkCloglog:
		return 1 - math.Exp(-math.Exp(lp))
	case model.LinkLog:
		return math.Exp(lp)
	default:
		return logistic(lp)
	}
}

func logistic(lp float64) float64 {
	return 1 / (1 + math.Exp(-lp))
}

func softmax(lps []float64) []float64 {
	max := floats.Max(lps)
	out := make([]float64, len(lps))
	var z float64
	for i, lp := range lps {
		out[i] = math.Exp(lp - max)
		z += out[i]
	}
	for i := range out {
		out[i] /= z
	}
	return out
}

func classKeyed(classes []string, values []float64) map[string]any {
	out := make(map[string]any, len(classes))
	for k, c := range classes {
		out[c] = values[k]
	}
	return out
}

func numericInput(input map[string]any, name string) (float64, error) {
	raw, ok := input[name]
	if !ok {
		return 0, core.NewUnsupportedModelStateError(name)
	}
	switch x := raw.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	default:
		return 0, core.NewUnsupportedModelStateError(fmt.Sprintf("%s: %T", name, raw))
	}
}
