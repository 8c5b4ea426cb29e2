package aggregates

import (
	"fmt"
	"sort"
	"time"

	"github.com/jgchk/romulus-sub005/domain/config"
	"github.com/jgchk/romulus-sub005/domain/core/entities"
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	"github.com/jgchk/romulus-sub005/domain/events"
	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
)

// nodeRecord is one slot of the tree's node index. before holds the node as
// it was when the session first touched it; nil for nodes created in-session.
type nodeRecord struct {
	node   *entities.Node
	status entities.NodeStatus
	before *entities.NodeData
}

// Tree is an in-memory index of taxonomy nodes and the owner of the
// acyclicity invariant: the union of the policy's hierarchical edges over
// live nodes never contains a cycle after a successful write.
//
// A Tree is not safe for concurrent use. Callers load it, mutate it and save
// it within one command; persistence makes that cycle atomic.
type Tree struct {
	id      valueobjects.TreeID
	policy  EdgePolicy
	cfg     *config.DomainConfig
	nodes   map[valueobjects.NodeID]*nodeRecord
	version int
	events  []events.TreeEvent
}

// NewTree creates an empty tree with the default domain configuration
func NewTree(id valueobjects.TreeID, policy EdgePolicy) *Tree {
	return NewTreeWithConfig(id, policy, config.DefaultDomainConfig())
}

// NewTreeWithConfig creates an empty tree with custom domain configuration
func NewTreeWithConfig(id valueobjects.TreeID, policy EdgePolicy, cfg *config.DomainConfig) *Tree {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &Tree{
		id:     id,
		policy: policy,
		cfg:    cfg,
		nodes:  make(map[valueobjects.NodeID]*nodeRecord),
	}
}

// TreeFromSnapshot rebuilds a tree from a persisted snapshot. The result has
// a clean session and no uncommitted events; it is rejected if the snapshot
// violates the invariant or references unknown nodes.
func TreeFromSnapshot(id valueobjects.TreeID, policy EdgePolicy, cfg *config.DomainConfig, snapshot entities.Snapshot, version int) (*Tree, error) {
	t := NewTreeWithConfig(id, policy, cfg)
	index, err := snapshot.Index()
	if err != nil {
		return nil, err
	}
	for nodeID, node := range index {
		t.nodes[nodeID] = &nodeRecord{node: node}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.version = version
	return t, nil
}

// ID returns the tree identifier
func (t *Tree) ID() valueobjects.TreeID {
	return t.id
}

// Policy returns the tree's edge policy
func (t *Tree) Policy() EdgePolicy {
	return t.policy
}

// Version counts the events ever applied to this tree
func (t *Tree) Version() int {
	return t.version
}

// Len returns the number of live nodes
func (t *Tree) Len() int {
	n := 0
	for _, rec := range t.nodes {
		if rec.status != entities.StatusDeleted {
			n++
		}
	}
	return n
}

// Has reports whether id is a live node
func (t *Tree) Has(id valueobjects.NodeID) bool {
	return t.live(id) != nil
}

// Get returns a copy of a live node
func (t *Tree) Get(id valueobjects.NodeID) (*entities.Node, bool) {
	rec := t.live(id)
	if rec == nil {
		return nil, false
	}
	return rec.node.Clone(), true
}

// Status returns the session status of id, including deleted nodes
func (t *Tree) Status(id valueobjects.NodeID) entities.NodeStatus {
	if rec, ok := t.nodes[id]; ok {
		return rec.status
	}
	return entities.StatusUnchanged
}

// Nodes returns copies of all live nodes ordered by id
func (t *Tree) Nodes() []*entities.Node {
	out := make([]*entities.Node, 0, len(t.nodes))
	for _, id := range t.liveIDs() {
		out = append(out, t.nodes[id].node.Clone())
	}
	return out
}

// Insert adds a new node. Edges it already carries are validated and
// cycle-checked like any other edge-bearing write.
func (t *Tree) Insert(node *entities.Node) error {
	if node == nil {
		return pkgerrors.NewValidationError("node cannot be nil")
	}
	if _, exists := t.nodes[node.ID()]; exists {
		return pkgerrors.NewConflictError(fmt.Sprintf("node %q already exists in tree", node.ID()))
	}
	if t.Len() >= t.cfg.MaxNodesPerTree {
		return pkgerrors.NewValidationError("maximum nodes reached")
	}
	if err := t.checkCandidate(node); err != nil {
		return err
	}

	stored := node.Clone()
	t.nodes[node.ID()] = &nodeRecord{node: stored, status: entities.StatusCreated}

	now := time.Now()
	t.record(events.NewNodeAdded(t.id, t.version+1, stored.ID(), stored.Name(), now))
	bare, _ := entities.NewNode(stored.ID(), stored.Name())
	t.recordEdgeChanges(bare, stored, now)
	return nil
}

// Update replaces a live node. The candidate edges are checked before
// anything is committed: on a cycle the stored tree is left exactly as it was
// and a *CycleError is returned.
func (t *Tree) Update(node *entities.Node) error {
	if node == nil {
		return pkgerrors.NewValidationError("node cannot be nil")
	}
	rec := t.live(node.ID())
	if rec == nil {
		return &pkgerrors.NodeNotFoundError{TreeID: t.id.String(), NodeID: node.ID().String()}
	}
	if err := t.checkCandidate(node); err != nil {
		return err
	}

	previous := rec.node
	if sameNode(previous, node) {
		return nil
	}
	t.touch(rec)
	rec.node = node.Clone()
	t.recordEdgeChanges(previous, rec.node, time.Now())
	return nil
}

// AddParent attaches parentID as a parent of childID
func (t *Tree) AddParent(childID, parentID valueobjects.NodeID) error {
	rec := t.live(childID)
	if rec == nil {
		return &pkgerrors.NodeNotFoundError{TreeID: t.id.String(), NodeID: childID.String()}
	}
	if t.live(parentID) == nil && parentID != childID {
		return &pkgerrors.NodeNotFoundError{TreeID: t.id.String(), NodeID: parentID.String()}
	}
	if rec.node.HasEdge(valueobjects.EdgeParent, parentID) {
		return nil
	}
	candidate := rec.node.Clone()
	candidate.AddEdge(valueobjects.EdgeParent, parentID)
	return t.Update(candidate)
}

// Delete removes a node. Its children are attached directly to its former
// parents first, and its id is scrubbed from every other node's edge sets.
// The record stays in the index with status deleted until CommitSession.
func (t *Tree) Delete(id valueobjects.NodeID) error {
	rec := t.live(id)
	if rec == nil {
		return &pkgerrors.NodeNotFoundError{TreeID: t.id.String(), NodeID: id.String()}
	}

	grandparents := rec.node.Edges(valueobjects.EdgeParent)
	for _, otherID := range t.liveIDs() {
		if otherID == id {
			continue
		}
		other := t.nodes[otherID]
		if !t.references(other.node, id) {
			continue
		}
		t.touch(other)
		if other.node.RemoveEdge(valueobjects.EdgeParent, id) {
			for _, gp := range grandparents {
				other.node.AddEdge(valueobjects.EdgeParent, gp)
			}
		}
		other.node.RemoveEdge(valueobjects.EdgeDerivedFrom, id)
		other.node.RemoveEdge(valueobjects.EdgeInfluences, id)
	}

	if rec.status != entities.StatusCreated && rec.before == nil {
		before := rec.node.Data()
		rec.before = &before
	}
	rec.status = entities.StatusDeleted
	t.record(events.NewNodeRemoved(t.id, t.version+1, id, time.Now()))
	return nil
}

// GetChildren returns the live nodes that list id as a parent. This is a
// linear scan; no reverse index is kept.
func (t *Tree) GetChildren(id valueobjects.NodeID) []valueobjects.NodeID {
	var children []valueobjects.NodeID
	for _, otherID := range t.liveIDs() {
		if t.nodes[otherID].node.HasEdge(valueobjects.EdgeParent, id) {
			children = append(children, otherID)
		}
	}
	return children
}

// GetParents returns the node's parents, or nothing if id is absent
func (t *Tree) GetParents(id valueobjects.NodeID) []valueobjects.NodeID {
	return t.edgesOf(id, valueobjects.EdgeParent)
}

// GetDerivedFrom returns the node's derivation sources
func (t *Tree) GetDerivedFrom(id valueobjects.NodeID) []valueobjects.NodeID {
	return t.edgesOf(id, valueobjects.EdgeDerivedFrom)
}

// GetInfluences returns the node's influences
func (t *Tree) GetInfluences(id valueobjects.NodeID) []valueobjects.NodeID {
	return t.edgesOf(id, valueobjects.EdgeInfluences)
}

// Validate checks the whole tree: no live node points at a missing or
// deleted node, and the hierarchical edges are acyclic.
func (t *Tree) Validate() error {
	ids := t.liveIDs()
	for _, id := range ids {
		node := t.nodes[id].node
		for _, kind := range valueobjects.AllEdgeKinds {
			for _, target := range node.Edges(kind) {
				if !t.policy.Allows(kind) {
					return pkgerrors.NewValidationError(fmt.Sprintf("%s edges are not supported by %s trees", kind, t.policy.Name))
				}
				if t.live(target) == nil {
					return &pkgerrors.NodeNotFoundError{TreeID: t.id.String(), NodeID: target.String()}
				}
			}
		}
	}
	if cycle := newCycleDetector(t.hierarchy(nil)).any(ids); cycle != nil {
		return t.cycleError(cycle, nil)
	}
	return nil
}

// Snapshot returns the live nodes in serializable form
func (t *Tree) Snapshot() entities.Snapshot {
	return entities.NewSnapshot(t.Nodes())
}

// Changes returns the before/after state of every node touched in the
// current session, ordered by id, for the audit trail.
func (t *Tree) Changes() []events.NodeChange {
	ids := make([]valueobjects.NodeID, 0)
	for id, rec := range t.nodes {
		if rec.status != entities.StatusUnchanged {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)

	changes := make([]events.NodeChange, 0, len(ids))
	for _, id := range ids {
		rec := t.nodes[id]
		change := events.NodeChange{NodeID: id, Status: rec.status, Before: rec.before}
		if rec.status != entities.StatusDeleted {
			after := rec.node.Data()
			change.After = &after
		}
		changes = append(changes, change)
	}
	return changes
}

// CommitSession ends the in-memory session: deleted records are purged and
// statuses are cleared.
func (t *Tree) CommitSession() {
	for id, rec := range t.nodes {
		if rec.status == entities.StatusDeleted {
			delete(t.nodes, id)
			continue
		}
		rec.status = entities.StatusUnchanged
		rec.before = nil
	}
}

// GetUncommittedEvents returns all uncommitted tree events
func (t *Tree) GetUncommittedEvents() []events.TreeEvent {
	out := make([]events.TreeEvent, len(t.events))
	copy(out, t.events)
	return out
}

// MarkEventsAsCommitted clears all uncommitted events
func (t *Tree) MarkEventsAsCommitted() {
	t.events = nil
}

// Private helper methods

func (t *Tree) live(id valueobjects.NodeID) *nodeRecord {
	rec, ok := t.nodes[id]
	if !ok || rec.status == entities.StatusDeleted {
		return nil
	}
	return rec
}

func (t *Tree) liveIDs() []valueobjects.NodeID {
	ids := make([]valueobjects.NodeID, 0, len(t.nodes))
	for id, rec := range t.nodes {
		if rec.status != entities.StatusDeleted {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)
	return ids
}

func (t *Tree) edgesOf(id valueobjects.NodeID, kind valueobjects.EdgeKind) []valueobjects.NodeID {
	rec, ok := t.nodes[id]
	if !ok {
		return []valueobjects.NodeID{}
	}
	return rec.node.Edges(kind)
}

func (t *Tree) references(node *entities.Node, id valueobjects.NodeID) bool {
	for _, kind := range valueobjects.AllEdgeKinds {
		if node.HasEdge(kind, id) {
			return true
		}
	}
	return false
}

// touch captures the pre-session state of rec and flags it updated
func (t *Tree) touch(rec *nodeRecord) {
	if rec.status == entities.StatusCreated {
		return
	}
	if rec.before == nil {
		before := rec.node.Data()
		rec.before = &before
	}
	rec.status = entities.StatusUpdated
}

// checkCandidate validates the edges of a prospective node and runs the
// cycle detector against the tree as it would be with candidate in place.
func (t *Tree) checkCandidate(candidate *entities.Node) error {
	if len(candidate.Name()) > t.cfg.MaxNodeNameLength {
		return pkgerrors.NewValidationError(fmt.Sprintf("node name exceeds %d characters", t.cfg.MaxNodeNameLength))
	}
	edgeCount := 0
	for _, kind := range valueobjects.AllEdgeKinds {
		targets := candidate.Edges(kind)
		if len(targets) == 0 {
			continue
		}
		if !t.policy.Allows(kind) {
			return pkgerrors.NewValidationError(fmt.Sprintf("%s edges are not supported by %s trees", kind, t.policy.Name))
		}
		edgeCount += len(targets)
		for _, target := range targets {
			if target == candidate.ID() {
				if !t.policy.IsHierarchical(kind) {
					return pkgerrors.NewValidationError(fmt.Sprintf("node %q cannot reference itself as %s", target, kind))
				}
				continue
			}
			if t.live(target) == nil {
				return &pkgerrors.NodeNotFoundError{TreeID: t.id.String(), NodeID: target.String()}
			}
		}
	}
	if edgeCount > t.cfg.MaxEdgesPerNode {
		return pkgerrors.NewValidationError(fmt.Sprintf("node %q exceeds %d edges", candidate.ID(), t.cfg.MaxEdgesPerNode))
	}

	// Only edges leaving the candidate changed, so any new cycle passes
	// through it and a search from the candidate is enough.
	if cycle := newCycleDetector(t.hierarchy(candidate)).from(candidate.ID()); cycle != nil {
		return t.cycleError(cycle, candidate)
	}
	return nil
}

// hierarchy walks hierarchical edges between live nodes, reading overlay in
// place of the stored node with the same id.
func (t *Tree) hierarchy(overlay *entities.Node) successors {
	return func(id valueobjects.NodeID) []valueobjects.NodeID {
		var node *entities.Node
		switch {
		case overlay != nil && id == overlay.ID():
			node = overlay
		default:
			rec := t.live(id)
			if rec == nil {
				return nil
			}
			node = rec.node
		}

		var out []valueobjects.NodeID
		for _, kind := range t.policy.Hierarchical {
			for _, target := range node.Edges(kind) {
				if t.live(target) != nil || (overlay != nil && target == overlay.ID()) {
					out = append(out, target)
				}
			}
		}
		return out
	}
}

func (t *Tree) cycleError(cycle []valueobjects.NodeID, overlay *entities.Node) *CycleError {
	names := make([]string, len(cycle))
	for i, id := range cycle {
		switch {
		case overlay != nil && id == overlay.ID():
			names[i] = overlay.Name()
		case t.nodes[id] != nil:
			names[i] = t.nodes[id].node.Name()
		default:
			names[i] = id.String()
		}
	}
	return &CycleError{Path: names, IDs: cycle}
}

// recordEdgeChanges emits the events describing the move from previous to
// next. Pure parent additions use the narrow ParentEdgeAdded vocabulary;
// anything else is captured as a full NodeUpdated.
func (t *Tree) recordEdgeChanges(previous, next *entities.Node, now time.Time) {
	oldParents := previous.EdgeSet(valueobjects.EdgeParent)
	newParents := next.EdgeSet(valueobjects.EdgeParent)

	onlyParentsAdded := previous.Name() == next.Name() &&
		previous.EdgeSet(valueobjects.EdgeDerivedFrom).Equals(next.EdgeSet(valueobjects.EdgeDerivedFrom)) &&
		previous.EdgeSet(valueobjects.EdgeInfluences).Equals(next.EdgeSet(valueobjects.EdgeInfluences))
	for id := range oldParents {
		if !newParents.Has(id) {
			onlyParentsAdded = false
		}
	}

	if !onlyParentsAdded {
		t.record(events.NewNodeUpdated(t.id, t.version+1, next.Data(), now))
		return
	}
	for _, parent := range newParents.Sorted() {
		if !oldParents.Has(parent) {
			t.record(events.NewParentEdgeAdded(t.id, t.version+1, parent, next.ID(), now))
		}
	}
}

func (t *Tree) record(event events.TreeEvent) {
	t.version++
	t.events = append(t.events, event)
}

// treeState captures everything a failed multi-step operation must restore
type treeState struct {
	nodes   map[valueobjects.NodeID]*nodeRecord
	version int
	events  int
}

func (t *Tree) saveState() treeState {
	nodes := make(map[valueobjects.NodeID]*nodeRecord, len(t.nodes))
	for id, rec := range t.nodes {
		nodes[id] = &nodeRecord{node: rec.node.Clone(), status: rec.status, before: rec.before}
	}
	return treeState{nodes: nodes, version: t.version, events: len(t.events)}
}

func (t *Tree) restoreState(s treeState) {
	t.nodes = s.nodes
	t.version = s.version
	t.events = t.events[:s.events]
}

func sameNode(a, b *entities.Node) bool {
	if a.Name() != b.Name() {
		return false
	}
	for _, kind := range valueobjects.AllEdgeKinds {
		if !a.EdgeSet(kind).Equals(b.EdgeSet(kind)) {
			return false
		}
	}
	return true
}

func sortIDs(ids []valueobjects.NodeID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
