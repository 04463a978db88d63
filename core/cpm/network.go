// Package cpm implements the Critical Path Method over a typed task graph:
// a Kahn topological sort, the forward pass (early dates) and the backward
// pass (late dates, total float and criticality).
//
// A Network is an arena of Node records indexed by position; the task id
// to index map is built once and shared by clones, so every compression run
// works on its own copy of the nodes while reusing the topology.
package cpm

import (
	"sort"

	"github.com/kilianp07/crunch/core/model"
)

// Network is the arena of task nodes plus the immutable graph topology.
type Network struct {
	Nodes []Node

	index  map[string]int
	preds  [][]link
	succs  [][]link
	order  []int
	cyclic bool
}

// NewNetwork builds the arena from the baseline tasks. Relationships that
// reference unknown tasks, and self links, are dropped.
func NewNetwork(tasks []model.Task, rels []model.Relationship) *Network {
	n := &Network{
		Nodes: make([]Node, len(tasks)),
		index: make(map[string]int, len(tasks)),
		preds: make([][]link, len(tasks)),
		succs: make([][]link, len(tasks)),
	}
	for i, t := range tasks {
		d := t.OrigDays()
		n.Nodes[i] = Node{
			ID:           t.ID,
			DisciplineID: t.DisciplineID,
			Hours:        t.Hours,
			OrigDays:     d,
			Days:         d,
		}
		n.index[t.ID] = i
	}
	for _, r := range rels {
		from, ok := n.index[r.From]
		if !ok {
			continue
		}
		to, ok := n.index[r.To]
		if !ok || from == to {
			continue
		}
		n.succs[from] = append(n.succs[from], link{node: to, typ: r.Type, lag: r.Lag})
		n.preds[to] = append(n.preds[to], link{node: from, typ: r.Type, lag: r.Lag})
	}
	n.order, n.cyclic = topoSort(n.preds, n.succs)
	return n
}

// Clone returns a network with copied nodes sharing the same topology.
func (n *Network) Clone() *Network {
	cp := *n
	cp.Nodes = append([]Node(nil), n.Nodes...)
	return &cp
}

// Cyclic reports whether the topological sort could not order every task.
// The residual tasks are appended to the order in input order, so early
// dates computed for them are not reliable.
func (n *Network) Cyclic() bool { return n.cyclic }

// Order returns node indexes in topological order.
func (n *Network) Order() []int { return n.order }

// Len returns the number of tasks.
func (n *Network) Len() int { return len(n.Nodes) }

// topoSort runs Kahn's algorithm. The queue is seeded in input order so the
// result is deterministic. Nodes left with a positive in-degree belong to a
// cycle (or hang off one) and are appended at the end.
func topoSort(preds, succs [][]link) ([]int, bool) {
	inDegree := make([]int, len(preds))
	for i := range preds {
		inDegree[i] = len(preds[i])
	}
	queue := make([]int, 0, len(preds))
	for i, d := range inDegree {
		if d == 0 {
			queue = append(queue, i)
		}
	}
	order := make([]int, 0, len(preds))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)
		for _, s := range succs[node] {
			inDegree[s.node]--
			if inDegree[s.node] == 0 {
				queue = append(queue, s.node)
			}
		}
	}
	if len(order) == len(preds) {
		return order, false
	}
	seen := make([]bool, len(preds))
	for _, i := range order {
		seen[i] = true
	}
	for i := range preds {
		if !seen[i] {
			order = append(order, i)
		}
	}
	return order, true
}

// CriticalPath returns the ids of critical tasks in topological order.
func (n *Network) CriticalPath() []string {
	var ids []string
	for _, i := range n.order {
		if n.Nodes[i].IsCritical {
			ids = append(ids, n.Nodes[i].ID)
		}
	}
	return ids
}

// Waves groups tasks by early start, critical tasks first within a wave.
func (n *Network) Waves() []Wave {
	groups := make(map[int][]int)
	for _, i := range n.order {
		es := n.Nodes[i].ES
		groups[es] = append(groups[es], i)
	}
	starts := make([]int, 0, len(groups))
	for es := range groups {
		starts = append(starts, es)
	}
	sort.Ints(starts)

	waves := make([]Wave, len(starts))
	for k, es := range starts {
		idx := groups[es]
		sort.SliceStable(idx, func(a, b int) bool {
			return n.Nodes[idx[a]].IsCritical && !n.Nodes[idx[b]].IsCritical
		})
		w := Wave{Start: es, TaskIDs: make([]string, len(idx))}
		for j, i := range idx {
			w.TaskIDs[j] = n.Nodes[i].ID
			if n.Nodes[i].IsCritical {
				w.IsCritical = true
			}
		}
		waves[k] = w
	}
	return waves
}
