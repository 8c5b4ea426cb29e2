package aggregates

import (
	"time"

	"github.com/jgchk/romulus-sub005/domain/core/entities"
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	"github.com/jgchk/romulus-sub005/domain/events"
)

// EdgeRef identifies one directed edge
type EdgeRef struct {
	Kind valueobjects.EdgeKind `json:"kind"`
	From valueobjects.NodeID   `json:"from"`
	To   valueobjects.NodeID   `json:"to"`
}

// MergeResult lists what a merge added to the receiving tree
type MergeResult struct {
	AddedNodes []valueobjects.NodeID `json:"addedNodes"`
	AddedEdges []EdgeRef             `json:"addedEdges"`
}

// IsEmpty reports whether the merge changed nothing
func (r MergeResult) IsEmpty() bool {
	return len(r.AddedNodes) == 0 && len(r.AddedEdges) == 0
}

// MergeFrom folds what source added relative to base into t. Nothing is
// ever removed: nodes and edges deleted in source stay in t. base and source
// are read only.
//
// When the domain config asks for it, the merged tree is validated and a
// cycle rolls the whole merge back and is returned as *CycleError.
func (t *Tree) MergeFrom(sourceTreeID valueobjects.TreeID, base, source entities.Snapshot) (MergeResult, error) {
	baseIndex, err := base.Index()
	if err != nil {
		return MergeResult{}, err
	}
	sourceIndex, err := source.Index()
	if err != nil {
		return MergeResult{}, err
	}

	saved := t.saveState()
	result := MergeResult{AddedNodes: []valueobjects.NodeID{}, AddedEdges: []EdgeRef{}}

	// Nodes go in bare first so edges below never reference a missing node.
	for _, d := range source.Clone().Nodes {
		if _, inBase := baseIndex[d.ID]; inBase {
			continue
		}
		if _, inCurrent := t.nodes[d.ID]; inCurrent {
			continue
		}
		node, err := entities.NewNode(d.ID, d.Name)
		if err != nil {
			t.restoreState(saved)
			return MergeResult{}, err
		}
		t.nodes[d.ID] = &nodeRecord{node: node, status: entities.StatusCreated}
		result.AddedNodes = append(result.AddedNodes, d.ID)
	}
	sortIDs(result.AddedNodes)

	for _, id := range t.liveIDs() {
		sourceNode, ok := sourceIndex[id]
		if !ok {
			continue
		}
		rec := t.nodes[id]
		baseNode := baseIndex[id]

		for _, kind := range t.policy.Kinds() {
			for _, target := range sourceNode.Edges(kind) {
				if baseNode != nil && baseNode.HasEdge(kind, target) {
					continue
				}
				if rec.node.HasEdge(kind, target) || t.live(target) == nil {
					continue
				}
				t.touch(rec)
				rec.node.AddEdge(kind, target)
				result.AddedEdges = append(result.AddedEdges, EdgeRef{Kind: kind, From: id, To: target})
			}
		}
	}

	if t.cfg.ValidateAfterMerge {
		if cycle := newCycleDetector(t.hierarchy(nil)).any(t.liveIDs()); cycle != nil {
			cycleErr := t.cycleError(cycle, nil)
			t.restoreState(saved)
			return MergeResult{}, cycleErr
		}
	}

	t.record(events.NewTreesMerged(t.id, t.version+1, sourceTreeID, source.Clone(), base.Clone(), time.Now()))
	return result, nil
}
