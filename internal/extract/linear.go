package extract

import (
	"fmt"

	"gopfa/domain/core"
	"gopfa/domain/model"
)

// Linear extracts an ordinary least-squares fit: an ordered coefficient
// vector aligned to the predictor list plus a scalar intercept. The
// response family is always gaussian with the identity link.
func Linear(m model.FittedModel) (*model.ExtractedParams, error) {
	predictors, coefficients, intercept, factors, err := linearCore(m.State)
	if err != nil {
		return nil, err
	}
	return &model.ExtractedParams{
		Kind:         model.KindLinear,
		Family:       model.FamilyGaussian,
		Link:         model.LinkIdentity,
		Predictors:   predictors,
		Coefficients: coefficients,
		Intercept:    intercept,
		FactorLevels: factors,
	}, nil
}

// GLM extracts a generalized linear fit. Beyond the linear shape it reads
// the response-family tag, the link tag, and (for binomial/multinomial)
// the class labels. Multinomial fits carry one reference-class-relative
// coefficient row per class instead of a single vector.
func GLM(m model.FittedModel) (*model.ExtractedParams, error) {
	family, link, err := familyAndLink(m.State)
	if err != nil {
		return nil, err
	}
	if family == model.FamilyMultinomial {
		return multinomialGLM(m.State, family, link)
	}

	predictors, coefficients, intercept, factors, err := linearCore(m.State)
	if err != nil {
		return nil, err
	}
	params := &model.ExtractedParams{
		Kind:         model.KindGLM,
		Family:       family,
		Link:         link,
		Predictors:   predictors,
		Coefficients: coefficients,
		Intercept:    intercept,
		FactorLevels: factors,
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

func multinomialGLM(state map[string]any, family model.Family, link model.Link) (*model.ExtractedParams, error) {
	predictors, err := stateStrings(state, "predictors")
	if err != nil {
		return nil, err
	}
	classes, err := stateStrings(state, "classes")
	if err != nil {
		return nil, err
	}
	rawCoefs, ok := state["class_coefficients"]
	if !ok {
		return nil, core.NewUnsupportedModelStateError("class_coefficients")
	}
	coefs, ok := toFloatMatrix(rawCoefs)
	if !ok {
		return nil, core.NewUnsupportedModelStateError("class_coefficients")
	}
	intercepts, err := stateFloats(state, "class_intercepts")
	if err != nil {
		return nil, err
	}
	if err := alignCheck("class_coefficients", len(classes), len(coefs)); err != nil {
		return nil, err
	}
	if err := alignCheck("class_intercepts", len(classes), len(intercepts)); err != nil {
		return nil, err
	}
	for i, row := range coefs {
		if err := alignCheck(fmt.Sprintf("class_coefficients[%d]", i), len(predictors), len(row)); err != nil {
			return nil, err
		}
	}
	return &model.ExtractedParams{
		Kind:              model.KindGLM,
		Family:            family,
		Link:              link,
		Predictors:        predictors,
		Classes:           classes,
		ClassCoefficients: coefs,
		ClassIntercepts:   intercepts,
	}, nil
}

func linearCore(state map[string]any) ([]string, []float64, float64, map[string]map[string]float64, error) {
	predictors, err := stateStrings(state, "predictors")
	if err != nil {
		return nil, nil, 0, nil, err
	}
	coefficients, err := stateFloats(state, "coefficients")
	if err != nil {
		return nil, nil, 0, nil, err
	}
	intercept, err := stateFloat(state, "intercept")
	if err != nil {
		return nil, nil, 0, nil, err
	}
	factors, err := factorLevels(state)
	if err != nil {
		return nil, nil, 0, nil, err
	}
	// Factor predictors contribute through level tables, not the numeric
	// coefficient vector; alignment counts only the numeric predictors.
	numeric := 0
	for _, p := range predictors {
		if _, isFactor := factors[p]; !isFactor {
			numeric++
		}
	}
	if err := alignCheck("coefficients", numeric, len(coefficients)); err != nil {
		return nil, nil, 0, nil, err
	}
	return predictors, coefficients, intercept, factors, nil
}

func factorLevels(state map[string]any) (map[string]map[string]float64, error) {
	raw, ok := state["factor_levels"]
	if !ok {
		return nil, nil
	}
	rawMap, ok := stateMap(raw)
	if !ok {
		return nil, core.NewUnsupportedModelStateError("factor_levels")
	}
	out := make(map[string]map[string]float64, len(rawMap))
	for pred, rawLevels := range rawMap {
		switch lv := rawLevels.(type) {
		case map[string]float64:
			levels := make(map[string]float64, len(lv))
			for k, v := range lv {
				levels[k] = v
			}
			out[pred] = levels
		case map[string]any:
			levels := make(map[string]float64, len(lv))
			for k, v := range lv {
				f, ok := toFloat(v)
				if !ok {
					return nil, core.NewUnsupportedModelStateError("factor_levels." + pred)
				}
				levels[k] = f
			}
			out[pred] = levels
		default:
			return nil, core.NewUnsupportedModelStateError("factor_levels." + pred)
		}
	}
	return out, nil
}

func familyAndLink(state map[string]any) (model.Family, model.Link, error) {
	famStr, err := stateString(state, "family")
	if err != nil {
		return "", "", err
	}
	family := model.Family(famStr)
	var link model.Link
	switch family {
	case model.FamilyGaussian:
		link = model.LinkIdentity
	case model.FamilyBinomial, model.FamilyMultinomial:
		link = model.LinkLogit
	case model.FamilyPoisson, model.FamilyCox:
		link = model.LinkLog
	default:
		// Unknown families pass through; the producer decides whether a
		// transform exists for them.
		link = model.LinkIdentity
	}
	if s, ok := state["link"].(string); ok {
		link = model.Link(s)
	}
	return family, link, nil
}
