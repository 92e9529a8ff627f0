// Package produce turns extracted model parameters into PFA document
// fragments: a typed input schema, a typed output schema, constant storage,
// and the action expression tree that reproduces the model's scoring
// function. One producer per model kind; dispatch is explicit over the
// closed kind set.
package produce

import (
	"fmt"

	"gopfa/domain/avro"
	"gopfa/domain/core"
	"gopfa/domain/expr"
	"gopfa/domain/model"
	"gopfa/domain/pfa"
)

// PredType selects the transform and output shape of the emitted action
type PredType string

const (
	PredResponse    PredType = "response"
	PredLink        PredType = "link"
	PredProbability PredType = "probability"
	PredClass       PredType = "class"
)

// DefaultCutoff is the per-class decision threshold used when the caller
// supplies none. With uniform cutoffs the ratio rule degenerates to plain
// argmax, matching the usual majority vote.
const DefaultCutoff = 0.5

// Options alters the emitted action. The zero value is usable: pred_type
// defaults to response and cutoffs default to DefaultCutoff per class.
type Options struct {
	PredType PredType
	Cutoffs  map[string]float64
}

func (o Options) predType() PredType {
	if o.PredType == "" {
		return PredResponse
	}
	return o.PredType
}

// Cutoff returns the decision threshold for one class label
func (o Options) Cutoff(class string) float64 {
	if c, ok := o.Cutoffs[class]; ok {
		return c
	}
	return DefaultCutoff
}

// Fragment is one producer's output, merged into a document by the
// assembler.
type Fragment struct {
	Input  avro.Type
	Output avro.Type
	Cells  map[string]pfa.Cell
	Pools  map[string]pfa.Pool
	Action []expr.Expr
}

// Produce dispatches to the family producer for the extracted parameters
func Produce(params *model.ExtractedParams, opts Options) (*Fragment, error) {
	if err := validateCutoffs(opts.Cutoffs, params.Classes); err != nil {
		return nil, err
	}
	switch params.Kind {
	case model.KindLinear:
		return produceLinear(params, opts)
	case model.KindGLM, model.KindGLMNet:
		if params.Family == model.FamilyMultinomial {
			return produceMultinomial(params, opts)
		}
		return produceGLM(params, opts)
	case model.KindGBM:
		return produceGBM(params, opts)
	case model.KindForest:
		return produceForest(params, opts)
	default:
		return nil, core.NewUnsupportedFamilyError(string(params.Kind))
	}
}

// validateCutoffs rejects cutoffs naming classes absent from the model's
// class set and non-positive values; the ratio rule divides by them.
func validateCutoffs(cutoffs map[string]float64, classes []string) error {
	if len(cutoffs) == 0 {
		return nil
	}
	known := make(map[string]bool, len(classes))
	for _, c := range classes {
		known[c] = true
	}
	for label, value := range cutoffs {
		if !known[label] {
			return core.NewInvalidCutoffsError(fmt.Sprintf("class %q is not in the model's class set", label))
		}
		if value <= 0 {
			return core.NewInvalidCutoffsError(fmt.Sprintf("cutoff for class %q must be positive, got %g", label, value))
		}
	}
	return nil
}
