package model

// Aggregation is how a forest combines member predictions
type Aggregation string

const (
	AggregationMean Aggregation = "mean"
	AggregationVote Aggregation = "majority_vote"
)

// Node is one row of a tree's flat node table. Leaves carry Value; internal
// nodes test Feature < Threshold and descend to the Left or Right index.
type Node struct {
	Feature   string
	Threshold float64
	Left      int
	Right     int
	Leaf      bool
	Value     float64
}

// Tree is a flat node table; index 0 is the root
type Tree struct {
	Nodes []Node
}

// ExtractedParams is the neutral intermediate form between a fitting
// library's internal layout and the producers. Created by extraction,
// consumed once, then discarded: no field refers back to the fitted model.
type ExtractedParams struct {
	Kind   Kind
	Family Family
	Link   Link

	// Linear / GLM shape: Coefficients aligned to Predictors
	Predictors   []string
	Coefficients []float64
	Intercept    float64

	// Factor predictors: predictor -> level -> contribution
	FactorLevels map[string]map[string]float64

	// Multinomial shape: one coefficient row per class, reference-relative.
	// The reference class has an all-zero row by construction.
	Classes           []string
	ClassCoefficients [][]float64
	ClassIntercepts   []float64

	// Elastic net: the regularization strength the coefficients were read at
	Lambda float64

	// Ensembles
	Trees       []Tree
	BaseOffset  float64
	Aggregation Aggregation
}

// IsClassification reports whether the extracted model predicts classes
func (p *ExtractedParams) IsClassification() bool {
	return len(p.Classes) > 0
}
