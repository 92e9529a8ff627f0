package app

import (
	"context"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"gopfa/domain/core"
	"gopfa/domain/model"
	"gopfa/domain/pfa"
	"gopfa/internal"
	"gopfa/internal/config"
	apperrors "gopfa/internal/errors"
	"gopfa/internal/native"
	"gopfa/internal/produce"
	"gopfa/ports"
)

// Comparison is one input row scored both ways.
type Comparison struct {
	Input    map[string]any
	Expected any
	Actual   any
	// Deviation is relative for numeric outputs, the worst per-class
	// deviation for map outputs, and 0 or 1 for class labels.
	Deviation float64
}

// ValidationReport summarizes how a compiled document scored on an external
// engine against the native expectation.
type ValidationReport struct {
	Samples       int
	Mismatches    int
	MaxDeviation  float64
	MeanDeviation float64
	Comparisons   []Comparison
}

// ValidateService checks compiled documents against an external scoring
// engine. A document passes when every sampled input scores within the
// configured relative tolerance of the native computation.
type ValidateService struct {
	engine ports.ScoringEngine
	rng    ports.RNGPort
	logger *internal.Logger
	cfg    config.ValidationConfig
}

func NewValidateService(engine ports.ScoringEngine, rngPort ports.RNGPort, logger *internal.Logger, cfg config.ValidationConfig) *ValidateService {
	return &ValidateService{engine: engine, rng: rngPort, logger: logger, cfg: cfg}
}

// Validate scores every input on the engine and natively, in parallel, and
// reports the deviations. Mismatches beyond tolerance return the report
// together with a validation error; engine or cancellation failures return
// no report, leaving the document unvalidated rather than misjudged.
func (s *ValidateService) Validate(ctx context.Context, doc *pfa.Document, params *model.ExtractedParams, opts produce.Options, inputs []map[string]any) (*ValidationReport, error) {
	if len(inputs) == 0 {
		return nil, apperrors.InvalidInput("validation requires at least one input row")
	}

	comparisons := make([]Comparison, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			expected, err := native.Score(params, opts, input)
			if err != nil {
				return err
			}
			actual, err := s.engine.Evaluate(ctx, doc, input)
			if err != nil {
				return err
			}
			dev, err := deviation(expected, actual)
			if err != nil {
				return err
			}
			comparisons[i] = Comparison{Input: input, Expected: expected, Actual: actual, Deviation: dev}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.WithCode(apperrors.CodeScoringEngine, err)
	}

	report := &ValidationReport{Samples: len(inputs), Comparisons: comparisons}
	devs := make([]float64, len(comparisons))
	for i, c := range comparisons {
		devs[i] = c.Deviation
		if c.Deviation > s.cfg.Tolerance {
			report.Mismatches++
		}
	}
	report.MaxDeviation, _ = stats.Max(devs)
	report.MeanDeviation, _ = stats.Mean(devs)

	if report.Mismatches > 0 {
		worst := worstComparison(comparisons)
		s.logger.Warn("document %s failed validation: %d/%d rows beyond tolerance %g",
			doc.Name, report.Mismatches, report.Samples, s.cfg.Tolerance)
		return report, apperrors.WithCode(apperrors.CodeValidation,
			core.NewValidationMismatchError(worst.Input, worst.Expected, worst.Actual, worst.Deviation))
	}
	s.logger.Info("document %s validated on %d rows, max deviation %.3g",
		doc.Name, report.Samples, report.MaxDeviation)
	return report, nil
}

// ValidateSampled draws deterministic random inputs for the model's schema
// and validates on those.
func (s *ValidateService) ValidateSampled(ctx context.Context, doc *pfa.Document, params *model.ExtractedParams, opts produce.Options, seed int64) (*ValidationReport, error) {
	stream := s.rng.SeededStream(string(doc.Name), seed)
	inputs := SampleInputs(params, s.cfg.SampleLimit, stream)
	return s.Validate(ctx, doc, params, opts, inputs)
}

func worstComparison(comparisons []Comparison) Comparison {
	worst := comparisons[0]
	for _, c := range comparisons[1:] {
		if c.Deviation > worst.Deviation {
			worst = c
		}
	}
	return worst
}

// deviation measures the disagreement between the native expectation and
// the engine's answer, normalized so one tolerance covers every output
// shape.
func deviation(expected, actual any) (float64, error) {
	switch e := expected.(type) {
	case float64:
		a, ok := toFloat(actual)
		if !ok {
			return 0, fmt.Errorf("engine returned %T, want a number", actual)
		}
		return relative(e, a), nil
	case string:
		a, ok := actual.(string)
		if !ok {
			return 0, fmt.Errorf("engine returned %T, want a class label", actual)
		}
		if a == e {
			return 0, nil
		}
		return 1, nil
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok {
			return 0, fmt.Errorf("engine returned %T, want per-class values", actual)
		}
		if len(a) != len(e) {
			return 0, fmt.Errorf("engine returned %d classes, want %d", len(a), len(e))
		}
		worst := 0.0
		for k, ev := range e {
			av, ok := toFloat(a[k])
			if !ok {
				return 0, fmt.Errorf("engine missing class %q", k)
			}
			if d := relative(ev.(float64), av); d > worst {
				worst = d
			}
		}
		return worst, nil
	default:
		return 0, fmt.Errorf("unexpected native result %T", expected)
	}
}

// relative is |a-e| scaled by the magnitude of the expectation, floored so
// near-zero expectations degrade to an absolute comparison.
func relative(expected, actual float64) float64 {
	denom := math.Abs(expected)
	if denom < 1 {
		denom = 1
	}
	return math.Abs(actual-expected) / denom
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
