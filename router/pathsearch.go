package router

import (
	"container/heap"

	"fpgaroute/config"
	"fpgaroute/device"
)

// pqEntry is one priority-queue slot: the rnode plus the sequence number
// used as a deterministic tie-breaker on equal total cost.
type pqEntry struct {
	rnode *device.RNode
	cost  float64
	seq   uint64
	index int
}

// priorityQueue is a container/heap-based min-heap on (cost, seq).
type priorityQueue []*pqEntry

func (q priorityQueue) Len() int { return len(q) }
func (q priorityQueue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	return q[i].seq < q[j].seq
}
func (q priorityQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index, q[j].index = i, j
}
func (q *priorityQueue) Push(x any) {
	e := x.(*pqEntry)
	e.index = len(*q)
	*q = append(*q, e)
}
func (q *priorityQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

// PathSearch is an A*-ish priority search: a priority queue keyed on
// total_cost, from one source rnode to a marked
// sink rnode, over a RoutingGraph, emitting a back-pointer chain.
type PathSearch struct {
	graph *device.RoutingGraph
	cost  *CostModel
	cfg   *config.Config

	// touched collects every rnode whose per-search state (Visited,
	// Prev, UpstreamCost, LowerBoundTotal) this search has mutated, so
	// it alone needs resetting afterward, not the whole graph.
	touched []*device.RNode
}

// NewPathSearch creates a search bound to graph and cost.
func NewPathSearch(graph *device.RoutingGraph, cost *CostModel) *PathSearch {
	return &PathSearch{graph: graph, cost: cost, cfg: config.Get()}
}

// Route runs PathSearch for a single connection. On success it populates
// conn.Route with the simple path from conn.SourceNode to conn.SinkNode
// and returns true; on exhaustion it calls conn.MarkUnrouted and returns
// false.
func (s *PathSearch) Route(conn *Connection) bool {
	if conn.Direct {
		// Intra-site connection: PathSearch must not be invoked.
		conn.Route = []*device.RNode{conn.SourceNode, conn.SinkNode}
		conn.unrouted = false
		return true
	}

	sink := conn.SinkNode
	sink.IsTarget = true
	defer func() { sink.IsTarget = false }()

	s.graph.SetCurrentNet(device.NetID(conn.Net.ID))
	s.touched = s.touched[:0]
	defer s.resetTouched()

	pq := &priorityQueue{}
	heap.Init(pq)
	var seq uint64

	src := conn.SourceNode
	s.track(src)
	heap.Push(pq, &pqEntry{rnode: src, cost: 0, seq: seq})
	seq++

	var found bool
	for pq.Len() > 0 {
		top := heap.Pop(pq).(*pqEntry)
		cur := top.rnode
		if cur.Visited {
			continue
		}
		cur.Visited = true

		if cur == sink {
			found = true
			break
		}

		for _, child := range s.graph.Children(cur) {
			if !s.admit(conn, child) {
				continue
			}
			if child.Visited {
				continue
			}
			if !child.HasLowerBound {
				s.track(child)
			}

			res := s.cost.Relax(cur, child, sink, conn.SourceKey(), conn.Net, conn.Criticality)
			if child.HasLowerBound && res.Total >= child.LowerBoundTotal {
				continue
			}
			child.Prev = cur
			child.UpstreamCost = res.Upstream
			child.LowerBoundTotal = res.Total
			child.HasLowerBound = true
			heap.Push(pq, &pqEntry{rnode: child, cost: res.Total, seq: seq})
			seq++
		}
	}

	if !found {
		conn.MarkUnrouted()
		return false
	}
	conn.Route = tracePath(src, sink)
	conn.unrouted = false
	return true
}

// track registers r as touched by this search, resetting any stale
// per-search state left over from a previous connection's search.
func (s *PathSearch) track(r *device.RNode) {
	r.ResetSearchState()
	s.touched = append(s.touched, r)
}

func (s *PathSearch) resetTouched() {
	for _, r := range s.touched {
		r.ResetSearchState()
	}
}

// admit applies the per-child expansion rules.
func (s *PathSearch) admit(conn *Connection, child *device.RNode) bool {
	if child.Type == device.TypePinfeedI && child != conn.SinkNode {
		if !conn.CrossesSLR {
			return false
		}
	}
	if child.Type == device.TypeWire && s.cfg.MaskCrossRCLK && child.MaskedCrossRCLK() {
		return false
	}
	if child.Type == device.TypePinbounce {
		sink := conn.SinkNode
		if abs(child.Node.Y-sink.Node.Y) > 1 || child.Node.X != sink.Node.X {
			return false
		}
	}
	if s.cfg.UseBoundingBox {
		if !conn.BBox.Contains(child.Node.X, child.Node.Y) {
			return false
		}
	}
	return true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// tracePath walks back through Prev from sink to source, then reverses.
func tracePath(src, sink *device.RNode) []*device.RNode {
	var rev []*device.RNode
	cur := sink
	for cur != nil {
		rev = append(rev, cur)
		if cur == src {
			break
		}
		cur = cur.Prev
	}
	out := make([]*device.RNode, len(rev))
	for i, r := range rev {
		out[len(rev)-1-i] = r
	}
	return out
}
