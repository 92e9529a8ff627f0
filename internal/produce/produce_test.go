package produce

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopfa/domain/avro"
	"gopfa/domain/core"
	"gopfa/domain/expr"
	"gopfa/domain/model"
	"gopfa/domain/pfa"
	"gopfa/internal/extract"
	"gopfa/internal/testkit"
)

func produceFromFixture(t *testing.T, m model.FittedModel, opts Options) *Fragment {
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
	frag, err := Produce(params, opts)
	require.NoError(t, err)
	return frag
}

func evalFragment(t *testing.T, frag *Fragment, input any) any {
	t.Helper()
	out, err := testkit.EvalAction(frag.Action, frag.Cells, frag.Pools, input)
	require.NoError(t, err)
	return out
}

func TestLinear_SpecScenario(t *testing.T) {
	// intercept 3.0, coefficient -5.0, input X1 = 0.5 => 0.5
	frag := produceFromFixture(t, testkit.LinearModel(), Options{})
	assert.True(t, avro.Equal(frag.Output, avro.Double()))

	out := evalFragment(t, frag, map[string]any{"X1": 0.5})
	assert.InDelta(t, 0.5, out.(float64), 1e-12)
}

func TestLinear_RejectsClassPredType(t *testing.T) {
	params, err := extract.Linear(testkit.LinearModel())
	require.NoError(t, err)
	frag, err := Produce(params, Options{PredType: PredClass})
	assert.Nil(t, frag)
	assert.ErrorIs(t, err, core.ErrUnsupportedFamily)
}

func TestGLMBinomial_ResponseAndClass(t *testing.T) {
	input := map[string]any{"X1": 1.0, "X2": 2.0}
	lp := -0.4 + 1.2*1.0 - 0.7*2.0
	wantProb := 1 / (1 + math.Exp(-lp))

	resp := produceFromFixture(t, testkit.BinomialModel(), Options{})
	assert.InDelta(t, wantProb, evalFragment(t, resp, input).(float64), 1e-12)

	link := produceFromFixture(t, testkit.BinomialModel(), Options{PredType: PredLink})
	assert.InDelta(t, lp, evalFragment(t, link, input).(float64), 1e-12)

	cls := produceFromFixture(t, testkit.BinomialModel(), Options{PredType: PredClass})
	assert.True(t, avro.Equal(cls.Output, avro.String()))
	assert.Equal(t, "no", evalFragment(t, cls, input))

	lenient := produceFromFixture(t, testkit.BinomialModel(), Options{
		PredType: PredClass,
		Cutoffs:  map[string]float64{"yes": 0.3},
	})
	assert.Equal(t, "yes", evalFragment(t, lenient, input))
}

func TestGLM_FactorPredictorsUsePool(t *testing.T) {
	frag := produceFromFixture(t, testkit.FactorGLM(), Options{PredType: PredLink})
	require.Contains(t, frag.Pools, "factors")

	rec, ok := frag.Input.(avro.Record)
	require.True(t, ok)
	colorType, ok := rec.Field("Color")
	require.True(t, ok)
	assert.True(t, avro.Equal(colorType, avro.String()))

	// lp = -0.2 + 1.5*X1 + levels[Color]
	out := evalFragment(t, frag, map[string]any{"X1": 2.0, "Color": "red"})
	assert.InDelta(t, -0.2+3.0+0.3, out.(float64), 1e-12)
	out = evalFragment(t, frag, map[string]any{"X1": 2.0, "Color": "green"})
	assert.InDelta(t, -0.2+3.0-0.2, out.(float64), 1e-12)
}

func TestMultinomial_SoftmaxResponse(t *testing.T) {
	frag := produceFromFixture(t, testkit.MultinomialModel(), Options{})
	out := evalFragment(t, frag, map[string]any{"X1": 0.5, "X2": -1.0}).(map[string]any)

	lpA := 0.0
	lpB := 0.2 + 0.8*0.5 - 0.3*-1.0
	lpC := -0.1 - 0.5*0.5 + 0.9*-1.0
	z := math.Exp(lpA) + math.Exp(lpB) + math.Exp(lpC)

	assert.InDelta(t, math.Exp(lpA)/z, out["A"].(float64), 1e-12)
	assert.InDelta(t, math.Exp(lpB)/z, out["B"].(float64), 1e-12)
	assert.InDelta(t, math.Exp(lpC)/z, out["C"].(float64), 1e-12)
	assert.InDelta(t, 1.0, out["A"].(float64)+out["B"].(float64)+out["C"].(float64), 1e-12)
}

func TestCutoffRatioRule_SpecScenario(t *testing.T) {
	// probabilities {A:0.1 B:0.3 C:0.6}, cutoffs {A:0.1 B:0.2 C:0.7}
	// ratios {1.0, 1.5, 0.857...} => B, not the naive argmax C
	classes := []string{"A", "B", "C"}
	scores := []expr.Expr{expr.DoubleLit(0.1), expr.DoubleLit(0.3), expr.DoubleLit(0.6)}
	opts := Options{Cutoffs: map[string]float64{"A": 0.1, "B": 0.2, "C": 0.7}}

	decision, err := classDecision(scores, classes, opts)
	require.NoError(t, err)

	labelsType, _ := avro.NewArray(avro.String())
	cell, _ := pfa.NewCell(classesCell, labelsType, []any{"A", "B", "C"})
	out, err := testkit.EvalAction([]expr.Expr{decision}, map[string]pfa.Cell{classesCell: cell}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "B", out)
}

func TestCutoffRatioRule_TieBreaksToLowestIndex(t *testing.T) {
	classes := []string{"A", "B"}
	scores := []expr.Expr{expr.DoubleLit(0.5), expr.DoubleLit(0.5)}
	decision, err := classDecision(scores, classes, Options{})
	require.NoError(t, err)

	labelsType, _ := avro.NewArray(avro.String())
	cell, _ := pfa.NewCell(classesCell, labelsType, []any{"A", "B"})
	out, err := testkit.EvalAction([]expr.Expr{decision}, map[string]pfa.Cell{classesCell: cell}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "A", out)
}

func TestGBM_BinomialResponse(t *testing.T) {
	input := map[string]any{"X1": 1.0}
	// tree 1: right leaf 1.0, tree 2: left leaf -0.5, shrinkage 0.5
	score := 0.1 + 0.5*1.0 + 0.5*-0.5
	wantProb := 1 / (1 + math.Exp(-score))

	link := produceFromFixture(t, testkit.GBMModel(), Options{PredType: PredLink})
	assert.InDelta(t, score, evalFragment(t, link, input).(float64), 1e-12)

	resp := produceFromFixture(t, testkit.GBMModel(), Options{})
	assert.InDelta(t, wantProb, evalFragment(t, resp, input).(float64), 1e-12)

	cls := produceFromFixture(t, testkit.GBMModel(), Options{PredType: PredClass})
	assert.Equal(t, "yes", evalFragment(t, cls, input))
}

func TestForest_RegressionMean(t *testing.T) {
	frag := produceFromFixture(t, testkit.ForestRegressionModel(), Options{})
	out := evalFragment(t, frag, map[string]any{"X1": 0.75})
	assert.InDelta(t, (3.0+2.0+1.5)/3.0, out.(float64), 1e-12)
}

func TestForest_ClassificationVotes(t *testing.T) {
	input := map[string]any{"X1": 0.75}

	cls := produceFromFixture(t, testkit.ForestClassificationModel(), Options{PredType: PredClass})
	assert.Equal(t, "B", evalFragment(t, cls, input))

	resp := produceFromFixture(t, testkit.ForestClassificationModel(), Options{})
	fractions := evalFragment(t, resp, input).(map[string]any)
	assert.InDelta(t, 0.0, fractions["A"].(float64), 1e-12)
	assert.InDelta(t, 1.0, fractions["B"].(float64), 1e-12)
	assert.InDelta(t, 0.0, fractions["C"].(float64), 1e-12)
}

func TestForest_CutoffsSteerTheVote(t *testing.T) {
	// X1 = 0.25: tree leaves A, B, B => votes {A:1 B:2 C:0}. A cutoff of
	// 0.2 on A against 0.5 on B gives ratios {5, 4, 0} => A wins.
	input := map[string]any{"X1": 0.25}
	frag := produceFromFixture(t, testkit.ForestClassificationModel(), Options{
		PredType: PredClass,
		Cutoffs:  map[string]float64{"A": 0.2},
	})
	assert.Equal(t, "A", evalFragment(t, frag, input))
}

func TestProduce_InvalidCutoffs(t *testing.T) {
	params, err := extract.GLM(testkit.BinomialModel())
	require.NoError(t, err)

	_, err = Produce(params, Options{PredType: PredClass, Cutoffs: map[string]float64{"bogus": 0.5}})
	assert.ErrorIs(t, err, core.ErrInvalidCutoffs)

	_, err = Produce(params, Options{PredType: PredClass, Cutoffs: map[string]float64{"yes": 0.0}})
	assert.ErrorIs(t, err, core.ErrInvalidCutoffs)
}

func TestProduce_UnsupportedFamily(t *testing.T) {
	params := &model.ExtractedParams{
		Kind:         model.KindGLM,
		Family:       model.Family("tweedie"),
		Predictors:   []string{"X1"},
		Coefficients: []float64{1.0},
	}
	frag, err := Produce(params, Options{})
	assert.Nil(t, frag)
	assert.ErrorIs(t, err, core.ErrUnsupportedFamily)
}
