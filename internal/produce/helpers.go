package produce

import (
	"fmt"

	"gopfa/domain/avro"
	"gopfa/domain/core"
	"gopfa/domain/expr"
	"gopfa/domain/model"
)

// inputRecord derives the input schema from the ordered predictor list:
// double fields for numeric predictors, string fields for factors.
func inputRecord(params *model.ExtractedParams) (avro.Record, error) {
	fields := make([]avro.Field, 0, len(params.Predictors))
	for _, p := range params.Predictors {
		t := avro.Double()
		if _, isFactor := params.FactorLevels[p]; isFactor {
			t = avro.String()
		}
		fields = append(fields, avro.Field{Name: p, Type: t})
	}
	return avro.NewRecord("Input", fields)
}

// inputField is attr(input, name)
func inputField(name string) (expr.Expr, error) {
	return expr.NewCall("attr", expr.VarRef{Name: expr.Input}, expr.StringLit(name))
}

// numericDatum builds the new-array of the numeric input fields in
// predictor order, the datum model.reg.linear consumes.
func numericDatum(params *model.ExtractedParams) (expr.Expr, error) {
	items := make([]expr.Expr, 0, len(params.Predictors))
	for _, p := range params.Predictors {
		if _, isFactor := params.FactorLevels[p]; isFactor {
			continue
		}
		f, err := inputField(p)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return expr.NewArrayLit(avro.Double(), items...)
}

// foldSum folds expressions into a left-nested binary "+" chain
func foldSum(terms []expr.Expr) (expr.Expr, error) {
	if len(terms) == 0 {
		return expr.DoubleLit(0), nil
	}
	acc := terms[0]
	for _, t := range terms[1:] {
		sum, err := expr.NewCall("+", acc, t)
		if err != nil {
			return nil, err
		}
		acc = sum
	}
	return acc, nil
}

// linearPredictor emits the model's linear predictor: the weighted sum of
// the numeric predictors through the model cell, plus one pool lookup per
// factor predictor.
func linearPredictor(params *model.ExtractedParams, modelCell string) (expr.Expr, error) {
	datum, err := numericDatum(params)
	if err != nil {
		return nil, err
	}
	cell, err := expr.NewCellRef(modelCell)
	if err != nil {
		return nil, err
	}
	lp, err := expr.NewCall("model.reg.linear", datum, cell)
	if err != nil {
		return nil, err
	}
	terms := []expr.Expr{lp}
	for _, p := range params.Predictors {
		if _, isFactor := params.FactorLevels[p]; !isFactor {
			continue
		}
		level, err := inputField(p)
		if err != nil {
			return nil, err
		}
		lookup, err := expr.NewPoolRef(factorPool, expr.StringLit(p), level)
		if err != nil {
			return nil, err
		}
		terms = append(terms, lookup)
	}
	return foldSum(terms)
}

// explicitPredictor emits intercept + sum(coefficient_i * attr(input, p_i))
// with the coefficients inlined as literals. Used where per-class
// coefficient rows make a single model cell awkward.
func explicitPredictor(predictors []string, coefficients []float64, intercept float64) (expr.Expr, error) {
	terms := []expr.Expr{expr.DoubleLit(intercept)}
	for i, p := range predictors {
		f, err := inputField(p)
		if err != nil {
			return nil, err
		}
		prod, err := expr.NewCall("*", expr.DoubleLit(coefficients[i]), f)
		if err != nil {
			return nil, err
		}
		terms = append(terms, prod)
	}
	return foldSum(terms)
}

// inverseLink wraps the linear predictor in the response transform for the
// model's link tag.
func inverseLink(link model.Link, lp expr.Expr) (expr.Expr, error) {
	switch link {
	case model.LinkIdentity:
		return lp, nil
	case model.LinkLogit:
		return expr.NewCall("m.link.logit", lp)
	case model.LinkProbit:
		return expr.NewCall("m.link.probit", lp)
	case model.LinkCloglog:
		return expr.NewCall("m.link.cloglog", lp)
	case model.LinkLog:
		return expr.NewCall("m.exp", lp)
	default:
		return nil, core.NewUnsupportedFamilyError(fmt.Sprintf("link %q", link))
	}
}

// treeExpr compiles one flat node table into nested split-test dispatch:
// if (input.feature < threshold) left else right, bottoming out at leaf
// values.
func treeExpr(tree model.Tree, at int) (expr.Expr, error) {
	node := tree.Nodes[at]
	if node.Leaf {
		return expr.DoubleLit(node.Value), nil
	}
	field, err := inputField(node.Feature)
	if err != nil {
		return nil, err
	}
	test, err := expr.NewCall("<", field, expr.DoubleLit(node.Threshold))
	if err != nil {
		return nil, err
	}
	left, err := treeExpr(tree, node.Left)
	if err != nil {
		return nil, err
	}
	right, err := treeExpr(tree, node.Right)
	if err != nil {
		return nil, err
	}
	return expr.NewIf(test, left, right)
}

// classDecision emits attr(classes_cell, a.argmax(ratios)): the class
// whose score-to-cutoff ratio is highest, ties resolved to the lowest
// class index because a.argmax keeps the first maximum.
func classDecision(scores []expr.Expr, classes []string, opts Options) (expr.Expr, error) {
	ratios := make([]expr.Expr, 0, len(scores))
	for i, s := range scores {
		r, err := expr.NewCall("/", s, expr.DoubleLit(opts.Cutoff(classes[i])))
		if err != nil {
			return nil, err
		}
		ratios = append(ratios, r)
	}
	ratioArr, err := expr.NewArrayLit(avro.Double(), ratios...)
	if err != nil {
		return nil, err
	}
	idx, err := expr.NewCall("a.argmax", ratioArr)
	if err != nil {
		return nil, err
	}
	labels, err := expr.NewCellRef(classesCell)
	if err != nil {
		return nil, err
	}
	return expr.NewCall("attr", labels, idx)
}

// Shared cell and pool names
const (
	modelCell   = "model"
	classesCell = "classes"
	factorPool  = "factors"
)
