package router

import (
	"container/heap"

	"fpgaroute/device"
)

// RouteLegalizer turns a net's raw, possibly multi-driver or cyclic,
// rnode usage into a single-source DAG rooted at the net's source
//: for every rnode with more than one recorded
// parent, a shortest-path search from the source picks the one parent
// to keep, and the rest are pruned.
type RouteLegalizer struct {
	// dist/prev are scratch state reused across Legalize calls, keyed by
	// rnode identity for the duration of a single call only.
	dist map[*device.RNode]float64
	prev map[*device.RNode]*device.RNode
}

// NewRouteLegalizer creates an empty legalizer.
func NewRouteLegalizer() *RouteLegalizer {
	return &RouteLegalizer{
		dist: make(map[*device.RNode]float64),
		prev: make(map[*device.RNode]*device.RNode),
	}
}

type legalizeEntry struct {
	rnode *device.RNode
	dist  float64
	index int
}

type legalizeQueue []*legalizeEntry

func (q legalizeQueue) Len() int            { return len(q) }
func (q legalizeQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q legalizeQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i]; q[i].index, q[j].index = i, j }
func (q *legalizeQueue) Push(x any) {
	e := x.(*legalizeEntry)
	e.index = len(*q)
	*q = append(*q, e)
}
func (q *legalizeQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

// Legalize rebuilds net's route-derived parent graph as a single-source
// tree. It is a no-op when the net has no multi-driven rnode (the common
// case after a conflict-free iteration).
func (rl *RouteLegalizer) Legalize(net *NetWrapper) {
	conflicted := false
	for _, c := range net.Connections {
		for _, r := range c.Route {
			if r.ParentCount() > 1 {
				conflicted = true
				break
			}
		}
	}
	if !conflicted {
		return
	}

	nodes := rl.collectNodes(net)
	source := rl.findSource(net)
	if source == nil {
		return
	}

	rl.dijkstra(source, nodes)

	for r := range nodes {
		if r == source {
			continue
		}
		want := rl.prev[r]
		for _, p := range r.Parents() {
			if p != want {
				r.RemoveParent(p)
			}
		}
	}

	rl.rebuildRoutes(net)
}

func (rl *RouteLegalizer) collectNodes(net *NetWrapper) map[*device.RNode]struct{} {
	nodes := make(map[*device.RNode]struct{})
	for _, c := range net.Connections {
		for _, r := range c.Route {
			nodes[r] = struct{}{}
		}
	}
	return nodes
}

func (rl *RouteLegalizer) findSource(net *NetWrapper) *device.RNode {
	for _, c := range net.Connections {
		if len(c.Route) > 0 {
			return c.Route[0]
		}
	}
	return nil
}

// dijkstra runs a delay-weighted shortest-path search from source over
// the parent/child adjacency already recorded on the rnodes (edges are
// directed from parent to child, the same direction routing claimed
// them in), restricted to nodes, with edge weight delay(next) +
// extra_long(cur, next).
func (rl *RouteLegalizer) dijkstra(source *device.RNode, nodes map[*device.RNode]struct{}) {
	for r := range rl.dist {
		delete(rl.dist, r)
	}
	for r := range rl.prev {
		delete(rl.prev, r)
	}

	rl.dist[source] = 0
	pq := &legalizeQueue{}
	heap.Init(pq)
	heap.Push(pq, &legalizeEntry{rnode: source, dist: 0})

	visited := make(map[*device.RNode]bool)
	for pq.Len() > 0 {
		top := heap.Pop(pq).(*legalizeEntry)
		cur := top.rnode
		if visited[cur] {
			continue
		}
		visited[cur] = true

		for child := range rl.childrenOf(cur, nodes) {
			nd := rl.dist[cur] + float64(child.Delay) + float64(extraDelay(cur, child))
			if d, ok := rl.dist[child]; !ok || nd < d {
				rl.dist[child] = nd
				rl.prev[child] = cur
				heap.Push(pq, &legalizeEntry{rnode: child, dist: nd})
			}
		}
	}
}

// childrenOf derives cur's children within nodes from the reverse of
// each candidate's recorded parent set, since RNode stores parents, not
// children, for routing claims.
func (rl *RouteLegalizer) childrenOf(cur *device.RNode, nodes map[*device.RNode]struct{}) map[*device.RNode]struct{} {
	out := make(map[*device.RNode]struct{})
	for r := range nodes {
		for _, p := range r.Parents() {
			if p == cur {
				out[r] = struct{}{}
			}
		}
	}
	return out
}

// rebuildRoutes re-derives each connection's Route slice by walking
// Prev-equivalents (the surviving single parent) from sink back to
// source, after pruning.
func (rl *RouteLegalizer) rebuildRoutes(net *NetWrapper) {
	for _, c := range net.Connections {
		if len(c.Route) == 0 {
			continue
		}
		sink := c.Route[len(c.Route)-1]
		src := c.Route[0]
		var rev []*device.RNode
		cur := sink
		for cur != nil {
			rev = append(rev, cur)
			if cur == src {
				break
			}
			parents := cur.Parents()
			if len(parents) != 1 {
				break
			}
			cur = parents[0]
		}
		out := make([]*device.RNode, len(rev))
		for i, r := range rev {
			out[len(rev)-1-i] = r
		}
		c.Route = out
	}
}
