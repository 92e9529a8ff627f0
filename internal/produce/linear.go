package produce

import (
	"fmt"

	"gopfa/domain/avro"
	"gopfa/domain/core"
	"gopfa/domain/expr"
	"gopfa/domain/model"
	"gopfa/domain/pfa"
)

// linearModelType is the cell schema model.reg.linear consumes: a scalar
// offset and the coefficient vector in predictor order.
func linearModelType() (avro.Record, error) {
	coeff, err := avro.NewArray(avro.Double())
	if err != nil {
		return avro.Record{}, err
	}
	return avro.NewRecord("LinearModel", []avro.Field{
		{Name: "const", Type: avro.Double()},
		{Name: "coeff", Type: coeff},
	})
}

// linearCells builds the model cell and, when the model has factor
// predictors, the per-level contribution pool.
func linearCells(params *model.ExtractedParams) (map[string]pfa.Cell, map[string]pfa.Pool, error) {
	modelType, err := linearModelType()
	if err != nil {
		return nil, nil, err
	}
	coeffs := make([]any, len(params.Coefficients))
	for i, c := range params.Coefficients {
		coeffs[i] = c
	}
	cell, err := pfa.NewCell(modelCell, modelType, map[string]any{
		"const": params.Intercept,
		"coeff": coeffs,
	})
	if err != nil {
		return nil, nil, err
	}
	cells := map[string]pfa.Cell{modelCell: cell}

	if len(params.FactorLevels) == 0 {
		return cells, nil, nil
	}
	levelMap, err := avro.NewMap(avro.Double())
	if err != nil {
		return nil, nil, err
	}
	init := make(map[string]any, len(params.FactorLevels))
	for pred, levels := range params.FactorLevels {
		entry := make(map[string]any, len(levels))
		for level, coef := range levels {
			entry[level] = coef
		}
		init[pred] = entry
	}
	pool, err := pfa.NewPool(factorPool, levelMap, init)
	if err != nil {
		return nil, nil, err
	}
	return cells, map[string]pfa.Pool{factorPool: pool}, nil
}

// produceLinear emits a gaussian least-squares scorer: the action computes
// intercept + sum(coefficient_i * input.field_i) through the model cell.
func produceLinear(params *model.ExtractedParams, opts Options) (*Fragment, error) {
	switch opts.predType() {
	case PredResponse, PredLink:
	default:
		return nil, core.NewUnsupportedFamilyError(
			fmt.Sprintf("%s has no %s transform", params.Family, opts.predType()))
	}
	input, err := inputRecord(params)
	if err != nil {
		return nil, err
	}
	cells, pools, err := linearCells(params)
	if err != nil {
		return nil, err
	}
	lp, err := linearPredictor(params, modelCell)
	if err != nil {
		return nil, err
	}
	return &Fragment{
		Input:  input,
		Output: avro.Double(),
		Cells:  cells,
		Pools:  pools,
		Action: []expr.Expr{lp},
	}, nil
}

// produceGLM emits a generalized linear scorer for the single-vector
// families: gaussian, binomial, poisson, and cox. The linear predictor is
// shared; pred_type picks the transform and output shape.
func produceGLM(params *model.ExtractedParams, opts Options) (*Fragment, error) {
	input, err := inputRecord(params)
	if err != nil {
		return nil, err
	}
	cells, pools, err := linearCells(params)
	if err != nil {
		return nil, err
	}
	lp, err := linearPredictor(params, modelCell)
	if err != nil {
		return nil, err
	}

	action, output, err := glmTransform(params, opts, lp)
	if err != nil {
		return nil, err
	}
	return &Fragment{
		Input:  input,
		Output: output,
		Cells:  cells,
		Pools:  pools,
		Action: []expr.Expr{action},
	}, nil
}

func glmTransform(params *model.ExtractedParams, opts Options, lp expr.Expr) (expr.Expr, avro.Type, error) {
	switch params.Family {
	case model.FamilyGaussian, model.FamilyBinomial, model.FamilyPoisson, model.FamilyCox:
	default:
		return nil, nil, core.NewUnsupportedFamilyError(string(params.Family))
	}
	pred := opts.predType()
	if pred == PredLink {
		return lp, avro.Double(), nil
	}
	switch params.Family {
	case model.FamilyGaussian:
		if pred != PredResponse {
			break
		}
		return lp, avro.Double(), nil
	case model.FamilyBinomial:
		prob, err := inverseLink(params.Link, lp)
		if err != nil {
			return nil, nil, err
		}
		switch pred {
		case PredResponse, PredProbability:
			return prob, avro.Double(), nil
		case PredClass:
			// Binary decision: predicted probability of the second
			// (positive) class against its cutoff.
			positive, negative := params.Classes[1], params.Classes[0]
			test, err := expr.NewCall(">=", prob, expr.DoubleLit(opts.Cutoff(positive)))
			if err != nil {
				return nil, nil, err
			}
			decision, err := expr.NewIf(test, expr.StringLit(positive), expr.StringLit(negative))
			if err != nil {
				return nil, nil, err
			}
			return decision, avro.String(), nil
		}
	case model.FamilyPoisson, model.FamilyCox:
		// Rate or relative hazard: exp of the linear predictor,
		// continuous output only.
		if pred != PredResponse {
			break
		}
		rate, err := expr.NewCall("m.exp", lp)
		if err != nil {
			return nil, nil, err
		}
		return rate, avro.Double(), nil
	}
	return nil, nil, core.NewUnsupportedFamilyError(
		fmt.Sprintf("%s has no %s transform", params.Family, pred))
}
