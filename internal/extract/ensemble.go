package extract

import (
	"fmt"
	"sort"

	"gopfa/domain/core"
	"gopfa/domain/model"
)

// GBM extracts a gradient-boosted ensemble: the ordered tree sequence with
// leaf values pre-scaled by the learning rate, the base offset, and the
// distribution family driving the final inverse link.
func GBM(m model.FittedModel) (*model.ExtractedParams, error) {
	family, link, err := familyAndLink(m.State)
	if err != nil {
		return nil, err
	}
	predictors, err := stateStrings(m.State, "predictors")
	if err != nil {
		return nil, err
	}
	base, err := stateFloat(m.State, "init")
	if err != nil {
		return nil, err
	}
	shrinkage := stateFloatDefault(m.State, "shrinkage", 1.0)
	trees, err := treeTables(m.State, shrinkage)
	if err != nil {
		return nil, err
	}
	params := &model.ExtractedParams{
		Kind:       model.KindGBM,
		Family:     family,
		Link:       link,
		Predictors: predictors,
		Trees:      trees,
		BaseOffset: base,
	}
	if _, ok := m.State["classes"]; ok {
		classes, err := stateStrings(m.State, "classes")
		if err != nil {
			return nil, err
		}
		params.Classes = classes
	}
	return params, nil
}

// Forest extracts a random-forest ensemble. Classification forests carry
// the class-label order (leaf values index into it) and aggregate by vote;
// regression forests aggregate by mean.
func Forest(m model.FittedModel) (*model.ExtractedParams, error) {
	predictors, err := stateStrings(m.State, "predictors")
	if err != nil {
		return nil, err
	}
	trees, err := treeTables(m.State, 1.0)
	if err != nil {
		return nil, err
	}
	params := &model.ExtractedParams{
		Kind:        model.KindForest,
		Predictors:  predictors,
		Trees:       trees,
		Aggregation: model.AggregationMean,
		Family:      model.FamilyGaussian,
		Link:        model.LinkIdentity,
	}
	if _, ok := m.State["classes"]; ok {
		classes, err := stateStrings(m.State, "classes")
		if err != nil {
			return nil, err
		}
		params.Classes = classes
		params.Aggregation = model.AggregationVote
		params.Family = model.FamilyMultinomial
	}
	return params, nil
}

// treeTables reads the ordered tree sequence from state. Each tree is a
// node table; node ids need not be dense, children are resolved to slice
// positions here so producers can walk by index.
func treeTables(state map[string]any, leafScale float64) ([]model.Tree, error) {
	rawTrees, err := stateSlice(state, "trees")
	if err != nil {
		return nil, err
	}
	if len(rawTrees) == 0 {
		return nil, core.NewUnsupportedModelStateError("trees")
	}
	out := make([]model.Tree, 0, len(rawTrees))
	for ti, rt := range rawTrees {
		tm, ok := stateMap(rt)
		if !ok {
			return nil, core.NewUnsupportedModelStateError(fmt.Sprintf("trees[%d]", ti))
		}
		tree, err := treeTable(tm, ti, leafScale)
		if err != nil {
			return nil, err
		}
		out = append(out, tree)
	}
	return out, nil
}

type rawNode struct {
	id   int
	node model.Node
	left int
	rght int
}

func treeTable(tm map[string]any, ti int, leafScale float64) (model.Tree, error) {
	rawNodes, ok := tm["nodes"].([]any)
	if !ok || len(rawNodes) == 0 {
		return model.Tree{}, core.NewUnsupportedModelStateError(fmt.Sprintf("trees[%d].nodes", ti))
	}
	nodes := make([]rawNode, 0, len(rawNodes))
	for ni, rn := range rawNodes {
		nm, ok := stateMap(rn)
		if !ok {
			return model.Tree{}, core.NewUnsupportedModelStateError(fmt.Sprintf("trees[%d].nodes[%d]", ti, ni))
		}
		id, ok := toFloat(nm["node_id"])
		if !ok {
			return model.Tree{}, core.NewUnsupportedModelStateError(fmt.Sprintf("trees[%d].nodes[%d].node_id", ti, ni))
		}
		left := int(stateFloatDefault(nm, "left_child", -1))
		right := int(stateFloatDefault(nm, "right_child", -1))
		n := model.Node{
			Threshold: stateFloatDefault(nm, "split_threshold", 0),
			Value:     stateFloatDefault(nm, "leaf_value", 0) * leafScale,
			Leaf:      left < 0 && right < 0,
		}
		if !n.Leaf {
			if left < 0 || right < 0 {
				return model.Tree{}, fmt.Errorf("%w: trees[%d].nodes[%d] has only one child",
					core.ErrUnsupportedModelState, ti, ni)
			}
			feature, ok := nm["split_feature"].(string)
			if !ok {
				return model.Tree{}, core.NewUnsupportedModelStateError(fmt.Sprintf("trees[%d].nodes[%d].split_feature", ti, ni))
			}
			n.Feature = feature
		}
		nodes = append(nodes, rawNode{id: int(id), node: n, left: left, rght: right})
	}

	// Root is the smallest node id; children rewritten to slice positions.
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].id < nodes[j].id })
	index := make(map[int]int, len(nodes))
	for pos, n := range nodes {
		if _, dup := index[n.id]; dup {
			return model.Tree{}, fmt.Errorf("%w: trees[%d] has duplicate node_id %d",
				core.ErrUnsupportedModelState, ti, n.id)
		}
		index[n.id] = pos
	}
	table := make([]model.Node, len(nodes))
	for pos, n := range nodes {
		table[pos] = n.node
		if n.node.Leaf {
			table[pos].Left, table[pos].Right = -1, -1
			continue
		}
		li, ok := index[n.left]
		if !ok {
			return model.Tree{}, fmt.Errorf("%w: trees[%d] references missing node_id %d",
				core.ErrUnsupportedModelState, ti, n.left)
		}
		ri, ok := index[n.rght]
		if !ok {
			return model.Tree{}, fmt.Errorf("%w: trees[%d] references missing node_id %d",
				core.ErrUnsupportedModelState, ti, n.rght)
		}
		table[pos].Left, table[pos].Right = li, ri
	}
	return model.Tree{Nodes: table}, nil
}
