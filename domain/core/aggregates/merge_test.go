package aggregates

import (
	"testing"

	"github.com/jgchk/romulus-sub005/domain/config"
	"github.com/jgchk/romulus-sub005/domain/core/entities"
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	"github.com/jgchk/romulus-sub005/domain/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// divergent returns base, source and current trees that all start from base
func divergent(t *testing.T, policy EdgePolicy, baseNodes ...*entities.Node) (entities.Snapshot, *Tree, *Tree) {
	t.Helper()
	base := NewTree("base", policy)
	insertAll(t, base, baseNodes...)

	source, err := TreeFromSnapshot("source", policy, nil, base.Snapshot(), 0)
	require.NoError(t, err)
	current, err := TreeFromSnapshot("current", policy, nil, base.Snapshot(), 0)
	require.NoError(t, err)
	return base.Snapshot(), source, current
}

func TestMergeFrom_AddsSourceNodes(t *testing.T) {
	base, source, current := divergent(t, MediaTypePolicy, node(t, "X"))
	insertAll(t, source, node(t, "Y", "X"))
	insertAll(t, current, node(t, "Z"))

	result, err := current.MergeFrom("source", base, source.Snapshot())
	require.NoError(t, err)

	assert.ElementsMatch(t, []valueobjects.NodeID{"X", "Y", "Z"}, nodeIDs(current))
	assert.Equal(t, []valueobjects.NodeID{"X"}, current.GetParents("Y"))
	assert.Empty(t, current.GetParents("Z"))
	assert.Equal(t, []valueobjects.NodeID{"Y"}, result.AddedNodes)
	assert.Equal(t, []EdgeRef{{Kind: valueobjects.EdgeParent, From: "Y", To: "X"}}, result.AddedEdges)
	assert.Equal(t, entities.StatusCreated, current.Status("Y"))
}

func TestMergeFrom_Idempotent(t *testing.T) {
	base, source, current := divergent(t, GenrePolicy, node(t, "A"), node(t, "B", "A"))
	insertAll(t, source, node(t, "C", "B"))
	d, _ := source.Get("A")
	d.AddEdge(valueobjects.EdgeInfluences, "B")
	require.NoError(t, source.Update(d))

	_, err := current.MergeFrom("source", base, source.Snapshot())
	require.NoError(t, err)
	once := current.Snapshot()

	second, err := current.MergeFrom("source", base, source.Snapshot())
	require.NoError(t, err)

	assert.Equal(t, once, current.Snapshot())
	assert.True(t, second.IsEmpty())
}

func TestMergeFrom_NeverRemoves(t *testing.T) {
	base, source, current := divergent(t, MediaTypePolicy,
		node(t, "X"), node(t, "Y", "X"), node(t, "W", "X"))
	require.NoError(t, source.Delete("Y"))
	w, _ := source.Get("W")
	w.SetEdges(valueobjects.EdgeParent)
	require.NoError(t, source.Update(w))
	source.CommitSession()

	_, err := current.MergeFrom("source", base, source.Snapshot())
	require.NoError(t, err)

	assert.True(t, current.Has("Y"))
	assert.Equal(t, []valueobjects.NodeID{"X"}, current.GetParents("Y"))
	assert.Equal(t, []valueobjects.NodeID{"X"}, current.GetParents("W"))
}

func TestMergeFrom_SkipsEdgesCurrentAlreadyHasOrRemoved(t *testing.T) {
	base, source, current := divergent(t, MediaTypePolicy, node(t, "P"), node(t, "Q"), node(t, "C", "P"))

	// current drops an edge that base had; source keeps it
	c, _ := current.Get("C")
	c.SetEdges(valueobjects.EdgeParent, "Q")
	require.NoError(t, current.Update(c))

	result, err := current.MergeFrom("source", base, source.Snapshot())
	require.NoError(t, err)

	assert.Equal(t, []valueobjects.NodeID{"Q"}, current.GetParents("C"))
	assert.Empty(t, result.AddedEdges)
}

func TestMergeFrom_DoesNotMutateInputs(t *testing.T) {
	base, source, current := divergent(t, MediaTypePolicy, node(t, "X"))
	insertAll(t, source, node(t, "Y", "X"))
	sourceSnap := source.Snapshot()
	baseCopy, sourceCopy := base.Clone(), sourceSnap.Clone()

	_, err := current.MergeFrom("source", base, sourceSnap)
	require.NoError(t, err)
	insertAll(t, current, node(t, "Z", "Y"))

	assert.Equal(t, baseCopy, base)
	assert.Equal(t, sourceCopy, sourceSnap)
}

func TestMergeFrom_CycleRollsBack(t *testing.T) {
	base, source, current := divergent(t, MediaTypePolicy, node(t, "A"), node(t, "B"))
	require.NoError(t, source.AddParent("B", "A"))
	require.NoError(t, current.AddParent("A", "B"))
	current.MarkEventsAsCommitted()
	before := current.Snapshot()
	version := current.Version()

	_, err := current.MergeFrom("source", base, source.Snapshot())

	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, cycle.Path[0], cycle.Path[len(cycle.Path)-1])
	assert.Equal(t, before, current.Snapshot())
	assert.Equal(t, version, current.Version())
	assert.Empty(t, current.GetUncommittedEvents())
}

func TestMergeFrom_CycleAcceptedWhenValidationDisabled(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	cfg.ValidateAfterMerge = false

	base := entities.NewSnapshot([]*entities.Node{node(t, "A"), node(t, "B")})
	current, err := TreeFromSnapshot("current", MediaTypePolicy, cfg, base, 0)
	require.NoError(t, err)
	require.NoError(t, current.AddParent("A", "B"))
	source := entities.NewSnapshot([]*entities.Node{node(t, "A"), node(t, "B", "A")})

	_, err = current.MergeFrom("source", base, source)
	require.NoError(t, err)

	var cycle *CycleError
	assert.ErrorAs(t, current.Validate(), &cycle)
}

func TestMergeFrom_RecordsEvent(t *testing.T) {
	base, source, current := divergent(t, MediaTypePolicy, node(t, "X"))
	insertAll(t, source, node(t, "Y", "X"))

	_, err := current.MergeFrom("source", base, source.Snapshot())
	require.NoError(t, err)

	evts := current.GetUncommittedEvents()
	require.Len(t, evts, 1)
	merged, ok := evts[0].(events.TreesMerged)
	require.True(t, ok)
	assert.Equal(t, valueobjects.TreeID("source"), merged.SourceTreeID)
	assert.Equal(t, base, merged.Base)
	assert.Equal(t, source.Snapshot(), merged.Source)
}

func TestMergeFrom_UnrelatedTreesUnion(t *testing.T) {
	current := NewTree("current", MediaTypePolicy)
	insertAll(t, current, node(t, "A"))
	source := entities.NewSnapshot([]*entities.Node{node(t, "A"), node(t, "B", "A")})

	_, err := current.MergeFrom("source", entities.Snapshot{}, source)
	require.NoError(t, err)

	assert.Equal(t, []valueobjects.NodeID{"A"}, current.GetParents("B"))
}

func nodeIDs(tree *Tree) []valueobjects.NodeID {
	var ids []valueobjects.NodeID
	for _, n := range tree.Nodes() {
		ids = append(ids, n.ID())
	}
	return ids
}
