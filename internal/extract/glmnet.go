package extract

import (
	"fmt"

	"gopfa/domain/core"
	"gopfa/domain/model"
)

// LambdaBest requests the least-regularized end of the fitted path, the
// point the path terminated at. Chosen as the deterministic stand-in for
// cross-validated selection, which needs data the state does not carry.
const LambdaBest = -1.0

// GLMNet extracts one coefficient set from an elastic-net regularization
// path at the requested strength. Policy for a non-exact match: the
// smallest fitted λ that is >= the requested value, ties resolved to the
// smaller path index; a request above the whole path takes the largest λ.
func GLMNet(m model.FittedModel, requested float64) (*model.ExtractedParams, error) {
	family, link, err := familyAndLink(m.State)
	if err != nil {
		return nil, err
	}
	predictors, err := stateStrings(m.State, "predictors")
	if err != nil {
		return nil, err
	}
	path, err := stateFloats(m.State, "lambda_path")
	if err != nil {
		return nil, err
	}
	if len(path) == 0 {
		return nil, core.NewUnsupportedModelStateError("lambda_path")
	}
	idx := selectLambda(path, requested)

	if family == model.FamilyMultinomial {
		return glmnetMultinomial(m.State, family, link, predictors, path, idx)
	}

	coefPath, ok := toFloatMatrix(m.State["coefficient_path"])
	if !ok {
		return nil, core.NewUnsupportedModelStateError("coefficient_path")
	}
	intercepts, err := stateFloats(m.State, "intercept_path")
	if err != nil {
		return nil, err
	}
	if err := alignCheck("coefficient_path", len(path), len(coefPath)); err != nil {
		return nil, err
	}
	if err := alignCheck("intercept_path", len(path), len(intercepts)); err != nil {
		return nil, err
	}
	if err := alignCheck("coefficient_path entry", len(predictors), len(coefPath[idx])); err != nil {
		return nil, err
	}

	params := &model.ExtractedParams{
		Kind:         model.KindGLMNet,
		Family:       family,
		Link:         link,
		Predictors:   predictors,
		Coefficients: coefPath[idx],
		Intercept:    intercepts[idx],
		Lambda:       path[idx],
	}
	if family == model.FamilyBinomial {
		classes, err := stateStrings(m.State, "classes")
		if err != nil {
			return nil, err
		}
		if len(classes) != 2 {
			return nil, fmt.Errorf("%w: binomial model requires exactly 2 classes, got %d",
				core.ErrUnsupportedModelState, len(classes))
		}
		params.Classes = classes
	}
	return params, nil
}

func glmnetMultinomial(state map[string]any, family model.Family, link model.Link,
	predictors []string, path []float64, idx int) (*model.ExtractedParams, error) {

	classes, err := stateStrings(state, "classes")
	if err != nil {
		return nil, err
	}
	rawSets, err := stateSlice(state, "class_coefficient_path")
	if err != nil {
		return nil, err
	}
	if err := alignCheck("class_coefficient_path", len(path), len(rawSets)); err != nil {
		return nil, err
	}
	coefs, ok := toFloatMatrix(rawSets[idx])
	if !ok {
		return nil, core.NewUnsupportedModelStateError("class_coefficient_path")
	}
	interceptSets, ok := toFloatMatrix(state["class_intercept_path"])
	if !ok {
		return nil, core.NewUnsupportedModelStateError("class_intercept_path")
	}
	if err := alignCheck("class_intercept_path", len(path), len(interceptSets)); err != nil {
		return nil, err
	}
	if err := alignCheck("class coefficient set", len(classes), len(coefs)); err != nil {
		return nil, err
	}
	for i, row := range coefs {
		if err := alignCheck(fmt.Sprintf("class coefficient row %d", i), len(predictors), len(row)); err != nil {
			return nil, err
		}
	}
	return &model.ExtractedParams{
		Kind:              model.KindGLMNet,
		Family:            family,
		Link:              link,
		Predictors:        predictors,
		Classes:           classes,
		ClassCoefficients: coefs,
		ClassIntercepts:   interceptSets[idx],
		Lambda:            path[idx],
	}, nil
}

// selectLambda picks the path index for a requested regularization
// strength. LambdaBest takes the smallest λ in the path.
func selectLambda(path []float64, requested float64) int {
	if requested == LambdaBest {
		best := 0
		for i, l := range path {
			if l < path[best] {
				best = i
			}
		}
		return best
	}
	chosen := -1
	for i, l := range path {
		if l < requested {
			continue
		}
		if chosen == -1 || l < path[chosen] {
			chosen = i
		}
	}
	if chosen == -1 {
		// Requested strength exceeds the whole path; take the largest λ.
		chosen = 0
		for i, l := range path {
			if l > path[chosen] {
				chosen = i
			}
		}
	}
	return chosen
}
