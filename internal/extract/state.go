// Package extract pulls canonical parameters out of fitted-model state.
// Each supported model kind has one extraction routine; all of them
// normalize library-specific layouts into the neutral
// model.ExtractedParams form the producers consume.
package extract

import (
	"fmt"

	"gopfa/domain/core"
)

// Fitted state arrives either as typed Go values (library callers) or as
// generic JSON-decoded values (CLI callers reading a state file). The
// readers below accept both and fail with ErrUnsupportedModelState when a
// required field is absent or unusable, e.g. when a model object was
// stripped of its post-fit state before being handed in.

func stateFloat(state map[string]any, key string) (float64, error) {
	v, ok := state[key]
	if !ok {
		return 0, core.NewUnsupportedModelStateError(key)
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, core.NewUnsupportedModelStateError(key)
	}
	return f, nil
}

func stateFloatDefault(state map[string]any, key string, def float64) float64 {
	if f, ok := toFloat(state[key]); ok {
		return f
	}
	return def
}

func stateString(state map[string]any, key string) (string, error) {
	s, ok := state[key].(string)
	if !ok {
		return "", core.NewUnsupportedModelStateError(key)
	}
	return s, nil
}

func stateFloats(state map[string]any, key string) ([]float64, error) {
	v, ok := state[key]
	if !ok {
		return nil, core.NewUnsupportedModelStateError(key)
	}
	fs, ok := toFloats(v)
	if !ok {
		return nil, core.NewUnsupportedModelStateError(key)
	}
	return fs, nil
}

func stateStrings(state map[string]any, key string) ([]string, error) {
	v, ok := state[key]
	if !ok {
		return nil, core.NewUnsupportedModelStateError(key)
	}
	switch sv := v.(type) {
	case []string:
		out := make([]string, len(sv))
		copy(out, sv)
		return out, nil
	case []any:
		out := make([]string, 0, len(sv))
		for _, e := range sv {
			s, ok := e.(string)
			if !ok {
				return nil, core.NewUnsupportedModelStateError(key)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, core.NewUnsupportedModelStateError(key)
	}
}

func stateSlice(state map[string]any, key string) ([]any, error) {
	v, ok := state[key]
	if !ok {
		return nil, core.NewUnsupportedModelStateError(key)
	}
	s, ok := v.([]any)
	if !ok {
		return nil, core.NewUnsupportedModelStateError(key)
	}
	return s, nil
}

func stateMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func toFloat(v any) (float64, bool) {
	switch fv := v.(type) {
	case float64:
		return fv, true
	case float32:
		return float64(fv), true
	case int:
		return float64(fv), true
	case int64:
		return float64(fv), true
	}
	return 0, false
}

func toFloats(v any) ([]float64, bool) {
	switch sv := v.(type) {
	case []float64:
		out := make([]float64, len(sv))
		copy(out, sv)
		return out, true
	case []any:
		out := make([]float64, 0, len(sv))
		for _, e := range sv {
			f, ok := toFloat(e)
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
		return out, true
	}
	return nil, false
}

func toFloatMatrix(v any) ([][]float64, bool) {
	switch mv := v.(type) {
	case [][]float64:
		out := make([][]float64, len(mv))
		for i, row := range mv {
			out[i] = append([]float64(nil), row...)
		}
		return out, true
	case []any:
		out := make([][]float64, 0, len(mv))
		for _, rv := range mv {
			row, ok := toFloats(rv)
			if !ok {
				return nil, false
			}
			out = append(out, row)
		}
		return out, true
	}
	return nil, false
}

func alignCheck(key string, want, got int) error {
	if want != got {
		return fmt.Errorf("%w: %s has %d entries, expected %d",
			core.ErrUnsupportedModelState, key, got, want)
	}
	return nil
}
