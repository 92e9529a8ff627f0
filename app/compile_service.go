package app

import (
	"gopfa/domain/core"
	"gopfa/domain/model"
	"gopfa/domain/pfa"
	"gopfa/internal"
	"gopfa/internal/assemble"
	"gopfa/internal/codec"
	apperrors "gopfa/internal/errors"
	"gopfa/internal/extract"
	"gopfa/internal/produce"
)

// LambdaBest selects the smallest regularization strength on an elastic-net
// path, which carries the least-penalized coefficients.
const LambdaBest = extract.LambdaBest

// CompileOptions shapes one compilation.
type CompileOptions struct {
	PredType produce.PredType
	Cutoffs  map[string]float64

	// Lambda picks the elastic-net path entry; ignored for other kinds.
	Lambda float64

	Name     string
	Version  int
	Doc      string
	Metadata map[string]string
}

// CompileResult is the output of one compilation: the document itself plus
// the extracted parameters it was produced from, kept so the validation
// bridge can score the same parameters natively.
type CompileResult struct {
	Document *pfa.Document
	Params   *model.ExtractedParams
}

// CompileService drives the extract, produce, assemble pipeline.
type CompileService struct {
	logger *internal.Logger
}

func NewCompileService(logger *internal.Logger) *CompileService {
	return &CompileService{logger: logger}
}

// Compile turns a fitted model into a complete document.
func (s *CompileService) Compile(fitted model.FittedModel, opts CompileOptions) (*CompileResult, error) {
	params, err := s.extractParams(fitted, opts)
	if err != nil {
		return nil, apperrors.WithCode(apperrors.CodeExtractionFailed, err)
	}
	s.logger.Debug("extracted %s model with %d predictors", params.Kind, len(params.Predictors))

	frag, err := produce.Produce(params, produce.Options{
		PredType: opts.PredType,
		Cutoffs:  opts.Cutoffs,
	})
	if err != nil {
		return nil, apperrors.WithCode(apperrors.CodeProductionFailed, err)
	}

	doc, err := assemble.Assemble(frag, assemble.Meta{
		Name:     core.DocumentName(opts.Name),
		Version:  opts.Version,
		Doc:      opts.Doc,
		Metadata: s.documentMetadata(params, opts),
	})
	if err != nil {
		return nil, apperrors.WithCode(apperrors.CodeAssemblyFailed, err)
	}
	s.logger.Info("compiled %s model into document %s", params.Kind, doc.Name)
	return &CompileResult{Document: doc, Params: params}, nil
}

// CompileToText compiles and serializes in one step.
func (s *CompileService) CompileToText(fitted model.FittedModel, opts CompileOptions) (string, error) {
	result, err := s.Compile(fitted, opts)
	if err != nil {
		return "", err
	}
	text, err := codec.Write(result.Document)
	if err != nil {
		return "", apperrors.WithCode(apperrors.CodeSerialization, err)
	}
	return text, nil
}

func (s *CompileService) extractParams(fitted model.FittedModel, opts CompileOptions) (*model.ExtractedParams, error) {
	switch fitted.Kind {
	case model.KindLinear:
		return extract.Linear(fitted)
	case model.KindGLM:
		return extract.GLM(fitted)
	case model.KindGLMNet:
		lambda := opts.Lambda
		if lambda == 0 {
			lambda = LambdaBest
		}
		return extract.GLMNet(fitted, lambda)
	case model.KindGBM:
		return extract.GBM(fitted)
	case model.KindForest:
		return extract.Forest(fitted)
	default:
		return nil, apperrors.InvalidInput("unrecognized model kind: " + string(fitted.Kind))
	}
}

// documentMetadata tags the document with its provenance; caller-supplied
// entries win over the generated ones.
func (s *CompileService) documentMetadata(params *model.ExtractedParams, opts CompileOptions) map[string]string {
	meta := map[string]string{
		"model_kind": string(params.Kind),
		"pred_type":  string(producePredType(opts.PredType)),
	}
	if params.Family != "" {
		meta["family"] = string(params.Family)
	}
	for k, v := range opts.Metadata {
		meta[k] = v
	}
	return meta
}

func producePredType(p produce.PredType) produce.PredType {
	if p == "" {
		return produce.PredResponse
	}
	return p
}
