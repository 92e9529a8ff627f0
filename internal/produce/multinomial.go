package produce

import (
	"fmt"

	"gopfa/domain/avro"
	"gopfa/domain/core"
	"gopfa/domain/expr"
	"gopfa/domain/model"
	"gopfa/domain/pfa"
)

// produceMultinomial emits a reference-class-relative multinomial scorer.
// One linear predictor per class (the reference class's row is all zero by
// extraction), soft-max for probabilities, and the cutoff-ratio rule for
// class decisions: argmax over probability_k / cutoff_k, never plain
// argmax over probability.
func produceMultinomial(params *model.ExtractedParams, opts Options) (*Fragment, error) {
	if len(params.Classes) < 2 {
		return nil, core.NewUnsupportedFamilyError("multinomial model requires at least two classes")
	}
	input, err := inputRecord(params)
	if err != nil {
		return nil, err
	}
	labelsType, err := avro.NewArray(avro.String())
	if err != nil {
		return nil, err
	}
	labels := make([]any, len(params.Classes))
	for i, c := range params.Classes {
		labels[i] = c
	}
	classes, err := pfa.NewCell(classesCell, labelsType, labels)
	if err != nil {
		return nil, err
	}
	cells := map[string]pfa.Cell{classesCell: classes}

	lps := make([]expr.Expr, len(params.Classes))
	for k := range params.Classes {
		lp, err := explicitPredictor(params.Predictors, params.ClassCoefficients[k], params.ClassIntercepts[k])
		if err != nil {
			return nil, err
		}
		lps[k] = lp
	}
	lpArr, err := expr.NewArrayLit(avro.Double(), lps...)
	if err != nil {
		return nil, err
	}

	switch opts.predType() {
	case PredLink:
		action, output, err := classKeyedMap(params.Classes, lps)
		if err != nil {
			return nil, err
		}
		return &Fragment{Input: input, Output: output, Cells: cells, Action: action}, nil

	case PredResponse, PredProbability:
		probs, err := expr.NewCall("m.link.softmax", lpArr)
		if err != nil {
			return nil, err
		}
		bind, err := expr.NewLet(expr.Binding{Name: "probs", Value: probs})
		if err != nil {
			return nil, err
		}
		elems := make([]expr.Expr, len(params.Classes))
		for k := range params.Classes {
			e, err := expr.NewCall("attr", expr.VarRef{Name: "probs"}, expr.IntLit(k))
			if err != nil {
				return nil, err
			}
			elems[k] = e
		}
		action, output, err := classKeyedMap(params.Classes, elems)
		if err != nil {
			return nil, err
		}
		return &Fragment{Input: input, Output: output, Cells: cells, Action: append([]expr.Expr{bind}, action...)}, nil

	case PredClass:
		probs, err := expr.NewCall("m.link.softmax", lpArr)
		if err != nil {
			return nil, err
		}
		bind, err := expr.NewLet(expr.Binding{Name: "probs", Value: probs})
		if err != nil {
			return nil, err
		}
		scores := make([]expr.Expr, len(params.Classes))
		for k := range params.Classes {
			s, err := expr.NewCall("attr", expr.VarRef{Name: "probs"}, expr.IntLit(k))
			if err != nil {
				return nil, err
			}
			scores[k] = s
		}
		decision, err := classDecision(scores, params.Classes, opts)
		if err != nil {
			return nil, err
		}
		return &Fragment{
			Input:  input,
			Output: avro.String(),
			Cells:  cells,
			Action: []expr.Expr{bind, decision},
		}, nil

	default:
		return nil, core.NewUnsupportedFamilyError(
			fmt.Sprintf("multinomial has no %s transform", opts.predType()))
	}
}

// classKeyedMap wraps per-class score expressions into a class-keyed map
// output: {"new": {label_k: score_k}, "type": {"type":"map","values":"double"}}
func classKeyedMap(classes []string, scores []expr.Expr) ([]expr.Expr, avro.Type, error) {
	entries := make([]expr.MapEntry, len(classes))
	for k, c := range classes {
		entries[k] = expr.MapEntry{Key: c, Value: scores[k]}
	}
	out, err := expr.NewMapLit(avro.Double(), entries...)
	if err != nil {
		return nil, nil, err
	}
	mapType, err := avro.NewMap(avro.Double())
	if err != nil {
		return nil, nil, err
	}
	return []expr.Expr{out}, mapType, nil
}
