package produce

import (
	"fmt"

	"gopfa/domain/avro"
	"gopfa/domain/core"
	"gopfa/domain/expr"
	"gopfa/domain/model"
)

// produceGBM emits a gradient-boosted scorer. The action folds over the
// tree sequence as nested split-test dispatch, sums base_offset plus the
// learning-rate-scaled tree outputs (leaves arrive pre-scaled from
// extraction), and applies the family's inverse link exactly as the GLM
// producer does.
func produceGBM(params *model.ExtractedParams, opts Options) (*Fragment, error) {
	input, err := inputRecord(params)
	if err != nil {
		return nil, err
	}
	terms := make([]expr.Expr, 0, len(params.Trees)+1)
	terms = append(terms, expr.DoubleLit(params.BaseOffset))
	for _, tree := range params.Trees {
		t, err := treeExpr(tree, 0)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	score, err := foldSum(terms)
	if err != nil {
		return nil, err
	}

	pred := opts.predType()
	if pred == PredLink {
		return &Fragment{Input: input, Output: avro.Double(), Action: []expr.Expr{score}}, nil
	}
	switch params.Family {
	case model.FamilyGaussian:
		if pred != PredResponse {
			break
		}
		return &Fragment{Input: input, Output: avro.Double(), Action: []expr.Expr{score}}, nil

	case model.FamilyBinomial:
		prob, err := inverseLink(model.LinkLogit, score)
		if err != nil {
			return nil, err
		}
		switch pred {
		case PredResponse, PredProbability:
			return &Fragment{Input: input, Output: avro.Double(), Action: []expr.Expr{prob}}, nil
		case PredClass:
			if len(params.Classes) != 2 {
				return nil, core.NewUnsupportedFamilyError("binomial class prediction requires class labels")
			}
			positive, negative := params.Classes[1], params.Classes[0]
			test, err := expr.NewCall(">=", prob, expr.DoubleLit(opts.Cutoff(positive)))
			if err != nil {
				return nil, err
			}
			decision, err := expr.NewIf(test, expr.StringLit(positive), expr.StringLit(negative))
			if err != nil {
				return nil, err
			}
			return &Fragment{Input: input, Output: avro.String(), Action: []expr.Expr{decision}}, nil
		}

	case model.FamilyPoisson:
		if pred != PredResponse {
			break
		}
		rate, err := expr.NewCall("m.exp", score)
		if err != nil {
			return nil, err
		}
		return &Fragment{Input: input, Output: avro.Double(), Action: []expr.Expr{rate}}, nil
	}
	return nil, core.NewUnsupportedFamilyError(
		fmt.Sprintf("%s has no %s transform", params.Family, pred))
}
