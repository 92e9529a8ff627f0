package app

import (
	"math/rand"
	"sort"

	"gopfa/domain/model"
)

// SampleInputs draws n input rows matching the model's schema: numeric
// predictors from a centered normal spread wide enough to cross typical
// split thresholds, factor predictors uniformly over their known levels.
func SampleInputs(params *model.ExtractedParams, n int, rng *rand.Rand) []map[string]any {
	factorLevels := make(map[string][]string, len(params.FactorLevels))
	for pred, levels := range params.FactorLevels {
		names := make([]string, 0, len(levels))
		for level := range levels {
			names = append(names, level)
		}
		sort.Strings(names)
		factorLevels[pred] = names
	}

	rows := make([]map[string]any, n)
	for i := range rows {
		row := make(map[string]any, len(params.Predictors))
		for _, p := range params.Predictors {
			if levels, ok := factorLevels[p]; ok {
				row[p] = levels[rng.Intn(len(levels))]
				continue
			}
			row[p] = rng.NormFloat64() * 3
		}
		rows[i] = row
	}
	return rows
}
