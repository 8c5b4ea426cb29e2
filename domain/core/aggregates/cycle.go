package aggregates

import (
	"net/http"
	"sort"
	"strings"

	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
)

// CycleError reports a prospective write that would close a cycle over the
// hierarchical edges. Path holds display names in traversal order and starts
// and ends with the same node.
type CycleError struct {
	Path []string
	IDs  []valueobjects.NodeID
}

func (e *CycleError) Error() string {
	return "cycle detected: " + strings.Join(e.Path, " → ")
}

// StatusCode maps the cycle outcome onto HTTP for the error handler
func (e *CycleError) StatusCode() int {
	return http.StatusUnprocessableEntity
}

// Details exposes the cycle path in error responses
func (e *CycleError) Details() map[string]interface{} {
	return map[string]interface{}{"cycle": e.Path, "node_ids": e.IDs}
}

// successors yields the hierarchical edge targets of a node
type successors func(id valueobjects.NodeID) []valueobjects.NodeID

// cycleDetector runs depth-first searches with an explicit stack. Its state
// belongs to one detection pass and is discarded afterwards.
type cycleDetector struct {
	next successors
	done map[valueobjects.NodeID]bool
}

func newCycleDetector(next successors) *cycleDetector {
	return &cycleDetector{next: next, done: make(map[valueobjects.NodeID]bool)}
}

type dfsFrame struct {
	id      valueobjects.NodeID
	targets []valueobjects.NodeID
	pos     int
}

// from searches from start and returns the first cycle found as ids, with the
// repeated node at both ends, or nil.
func (d *cycleDetector) from(start valueobjects.NodeID) []valueobjects.NodeID {
	if d.done[start] {
		return nil
	}

	path := []valueobjects.NodeID{start}
	onPath := map[valueobjects.NodeID]int{start: 0}
	stack := []dfsFrame{{id: start, targets: d.next(start)}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.pos >= len(top.targets) {
			d.done[top.id] = true
			delete(onPath, top.id)
			path = path[:len(path)-1]
			stack = stack[:len(stack)-1]
			continue
		}

		target := top.targets[top.pos]
		top.pos++

		if idx, ok := onPath[target]; ok {
			cycle := make([]valueobjects.NodeID, 0, len(path)-idx+1)
			cycle = append(cycle, path[idx:]...)
			return append(cycle, target)
		}
		if d.done[target] {
			continue
		}

		onPath[target] = len(path)
		path = append(path, target)
		stack = append(stack, dfsFrame{id: target, targets: d.next(target)})
	}
	return nil
}

// any searches from every id in ascending order and stops at the first cycle
func (d *cycleDetector) any(ids []valueobjects.NodeID) []valueobjects.NodeID {
	sorted := append([]valueobjects.NodeID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for _, id := range sorted {
		if cycle := d.from(id); cycle != nil {
			return cycle
		}
	}
	return nil
}
