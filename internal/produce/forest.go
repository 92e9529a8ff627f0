package produce

import (
	"fmt"

	"gopfa/domain/avro"
	"gopfa/domain/core"
	"gopfa/domain/expr"
	"gopfa/domain/model"
	"gopfa/domain/pfa"
)

// produceForest emits a random-forest scorer. Every member tree's leaf
// prediction is evaluated into one array, then aggregated: arithmetic mean
// for regression, per-class vote counts with the cutoff-ratio decision
// rule for classification.
func produceForest(params *model.ExtractedParams, opts Options) (*Fragment, error) {
	input, err := inputRecord(params)
	if err != nil {
		return nil, err
	}
	preds := make([]expr.Expr, 0, len(params.Trees))
	for _, tree := range params.Trees {
		t, err := treeExpr(tree, 0)
		if err != nil {
			return nil, err
		}
		preds = append(preds, t)
	}
	predArr, err := expr.NewArrayLit(avro.Double(), preds...)
	if err != nil {
		return nil, err
	}

	if params.Aggregation == model.AggregationMean {
		switch opts.predType() {
		case PredResponse, PredLink:
		default:
			return nil, core.NewUnsupportedFamilyError(
				fmt.Sprintf("regression forest has no %s transform", opts.predType()))
		}
		mean, err := expr.NewCall("a.mean", predArr)
		if err != nil {
			return nil, err
		}
		return &Fragment{Input: input, Output: avro.Double(), Action: []expr.Expr{mean}}, nil
	}

	// Classification: member leaves hold class indexes. Bind the member
	// predictions once, then count votes per class.
	bind, err := expr.NewLet(expr.Binding{Name: "preds", Value: predArr})
	if err != nil {
		return nil, err
	}
	counts := make([]expr.Expr, len(params.Classes))
	for k := range params.Classes {
		count, err := voteCount(len(params.Trees), k)
		if err != nil {
			return nil, err
		}
		counts[k] = count
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

	switch opts.predType() {
	case PredResponse, PredProbability:
		// Vote fractions, class-keyed.
		total := float64(len(params.Trees))
		fractions := make([]expr.Expr, len(counts))
		for k, count := range counts {
			f, err := expr.NewCall("/", count, expr.DoubleLit(total))
			if err != nil {
				return nil, err
			}
			fractions[k] = f
		}
		action, output, err := classKeyedMap(params.Classes, fractions)
		if err != nil {
			return nil, err
		}
		return &Fragment{Input: input, Output: output, Cells: cells, Action: append([]expr.Expr{bind}, action...)}, nil

	case PredClass:
		decision, err := classDecision(counts, params.Classes, opts)
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
			fmt.Sprintf("classification forest has no %s transform", opts.predType()))
	}
}

// voteCount sums an indicator over the bound member predictions:
// sum_i if (preds[i] == class) 1 else 0
func voteCount(trees int, class int) (expr.Expr, error) {
	terms := make([]expr.Expr, 0, trees)
	for i := 0; i < trees; i++ {
		member, err := expr.NewCall("attr", expr.VarRef{Name: "preds"}, expr.IntLit(i))
		if err != nil {
			return nil, err
		}
		test, err := expr.NewCall("==", member, expr.DoubleLit(float64(class)))
		if err != nil {
			return nil, err
		}
		vote, err := expr.NewIf(test, expr.DoubleLit(1), expr.DoubleLit(0))
		if err != nil {
			return nil, err
		}
		terms = append(terms, vote)
	}
	return foldSum(terms)
}
