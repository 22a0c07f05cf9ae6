package router

import (
	"log"
	"sort"

	"fpgaroute/config"
	"fpgaroute/device"
)

// Status is the final post-loop state.
type Status int

const (
	StatusConverged Status = iota
	StatusUnroutablesRemaining
	StatusConflictsRemaining
)

func (s Status) String() string {
	switch s {
	case StatusConverged:
		return "converged"
	case StatusUnroutablesRemaining:
		return "unroutables remaining"
	case StatusConflictsRemaining:
		return "conflicts remaining"
	default:
		return "unknown"
	}
}

// Report summarizes one iteration, and the loop overall.
type Report struct {
	Iterations     int
	OverusedNodes  int
	RoutedThisIter int
	WorstDelayPs   int
	Status         Status
}

// TimingGraph is the narrow slice of the timing-graph external
// collaborator RouterLoop needs, defined at the consumer so package
// external's implementation needs no dependency on
// this package's other types beyond Connection, which it receives by
// pointer.
type TimingGraph interface {
	SetRouteDelay(connID string, ps int)
	ArrivalRequireTimes() (maxDelayPs int, criticalConn string)
	Criticality(conns []*Connection, max, exponent float64, maxDelayPs int)
	PatchUpDelay(conns []*Connection)
}

// OutputPinSwapper finds a legal alternative output pin for a net whose
// source pin cannot be routed.
type OutputPinSwapper interface {
	SwapOutputPin(net *NetWrapper) (ok bool)
}

// RouterLoop is the iterative rip-up/reroute orchestrator.
type RouterLoop struct {
	cfg      *config.Config
	graph    *device.RoutingGraph
	cost     *CostModel
	search   *PathSearch
	legal    *RouteLegalizer
	timing   TimingGraph // nil disables timing-driven mode regardless of config
	swap     OutputPinSwapper
	preserve *device.Preservation

	nets      []*NetWrapper
	protected map[device.NetID]struct{}

	presentFactor float64
	minReroute    float64

	report Report
}

// NewRouterLoop wires the components together. timing and swap may be
// nil when the corresponding feature is unused.
func NewRouterLoop(graph *device.RoutingGraph, preserve *device.Preservation, nets []*NetWrapper, timing TimingGraph, swap OutputPinSwapper) *RouterLoop {
	cost := NewCostModel()
	return &RouterLoop{
		cfg:       config.Get(),
		graph:     graph,
		cost:      cost,
		search:    NewPathSearch(graph, cost),
		legal:     NewRouteLegalizer(),
		timing:    timing,
		swap:      swap,
		preserve:  preserve,
		nets:      nets,
		protected: make(map[device.NetID]struct{}),
	}
}

// SetProtectedNets marks nets the soft-preserve rip-up must never
// touch (clock and static nets).
func (rl *RouterLoop) SetProtectedNets(nets ...device.NetID) {
	for _, n := range nets {
		rl.protected[n] = struct{}{}
	}
}

// Route runs the negotiated-congestion loop to completion or until
// max_iterations.
func (rl *RouterLoop) Route() Report {
	rl.initializeRouting()
	timingDriven := rl.cfg.TimingDriven && rl.timing != nil

	for iter := 1; iter <= rl.cfg.MaxIterations; iter++ {
		if timingDriven {
			rl.computeMinRerouteCriticality()
		}

		routedThisIter := 0
		for _, conn := range rl.sortedConnections() {
			if rl.shouldRoute(conn, iter) {
				rl.routeConnection(conn)
				routedThisIter++
			}
		}

		rl.legalizeAll()

		if timingDriven {
			rl.updateTiming()
		}
		rl.updateCostFactors(iter)

		overused := rl.collectOverused()
		unroutedCount := rl.countUnrouted()

		rl.report = Report{
			Iterations:     iter,
			OverusedNodes:  len(overused),
			RoutedThisIter: routedThisIter,
			WorstDelayPs:   rl.worstDelay(),
		}
		log.Printf("[route] iter=%d overused=%d routed=%d unrouted=%d", iter, len(overused), routedThisIter, unroutedCount)

		if len(overused) == 0 && unroutedCount == 0 {
			rl.report.Status = StatusConverged
			return rl.report
		}

		if iter == 1 {
			rl.handleUnroutableFirstPass(unroutedCount)
		}
		if (iter == 1 && rl.cfg.SoftPreserve) || iter == 2 {
			rl.unrouteReservedNets()
		}
	}

	if rl.countUnrouted() > 0 {
		rl.report.Status = StatusUnroutablesRemaining
	} else {
		rl.report.Status = StatusConflictsRemaining
	}
	return rl.report
}

// LastReport returns the most recent per-iteration report.
func (rl *RouterLoop) LastReport() Report { return rl.report }

func (rl *RouterLoop) initializeRouting() {
	rl.presentFactor = rl.cfg.InitialPresentFactor
	rl.cost.SetPresentFactor(rl.presentFactor)
	rl.minReroute = rl.cfg.MinRerouteCriticality
}

// sortedConnections orders connections by descending fanout, ascending
// HPWL.
func (rl *RouterLoop) sortedConnections() []*Connection {
	var all []*Connection
	for _, n := range rl.nets {
		all = append(all, n.Connections...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		fi, fj := all[i].Net.Fanout(), all[j].Net.Fanout()
		if fi != fj {
			return fi > fj
		}
		return all[i].HPWL < all[j].HPWL
	})
	return all
}

// shouldRoute decides whether conn needs (re)routing this iteration.
func (rl *RouterLoop) shouldRoute(conn *Connection, iter int) bool {
	if iter == 1 {
		return true
	}
	congested := conn.Congested()
	route := conn.Criticality > rl.minReroute || congested || conn.Unrouted()
	if route && congested && rl.cfg.UseBoundingBox {
		conn.BBox = conn.BBox.Enlarge(rl.cfg.EnlargeBBoxH, rl.cfg.EnlargeBBoxV)
	}
	return route
}

// routeConnection rips up the connection's current claim (if any),
// searches a new path, and records occupancy/parent bookkeeping.
func (rl *RouterLoop) routeConnection(conn *Connection) {
	rl.ripUp(conn)
	if rl.search.Route(conn) {
		rl.claim(conn)
	}
}

func (rl *RouterLoop) ripUp(conn *Connection) {
	src := conn.SourceKey()
	for _, r := range conn.Route {
		r.RemoveUser(src)
	}
}

func (rl *RouterLoop) claim(conn *Connection) {
	src := conn.SourceKey()
	for i, r := range conn.Route {
		r.AddUser(src)
		if i > 0 {
			r.AddParent(conn.Route[i-1])
		}
	}
}

func (rl *RouterLoop) legalizeAll() {
	for _, n := range rl.nets {
		rl.legal.Legalize(n)
	}
}

// computeMinRerouteCriticality raises the criticality floor until at
// most reroute_percentage percent of all connections qualify for a
// timing-driven rip-up; min_reroute_criticality is the lower bound.
func (rl *RouterLoop) computeMinRerouteCriticality() {
	rl.minReroute = rl.cfg.MinRerouteCriticality

	var crits []float64
	for _, n := range rl.nets {
		for _, c := range n.Connections {
			if c.Criticality > rl.minReroute {
				crits = append(crits, c.Criticality)
			}
		}
	}
	total := 0
	for _, n := range rl.nets {
		total += len(n.Connections)
	}
	budget := int(rl.cfg.ReroutePercentage * float64(total) / 100)
	if budget <= 0 || len(crits) <= budget {
		return
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(crits)))
	rl.minReroute = crits[budget]
}

func (rl *RouterLoop) updateTiming() {
	var conns []*Connection
	for _, n := range rl.nets {
		for _, c := range n.Connections {
			if len(c.Route) > 0 {
				delay := 0
				for _, r := range c.Route {
					delay += int(r.Delay)
				}
				rl.timing.SetRouteDelay(c.ID, delay)
				conns = append(conns, c)
			}
		}
	}
	maxDelay, _ := rl.timing.ArrivalRequireTimes()
	rl.timing.Criticality(conns, MaxCriticality, rl.cfg.CriticalityExponent, maxDelay)
	rl.timing.PatchUpDelay(conns)
}

// updateCostFactors grows the present factor and restamps every
// claimed rnode's present/historical costs.
func (rl *RouterLoop) updateCostFactors(iter int) {
	if iter == 1 {
		rl.presentFactor = rl.cfg.InitialPresentFactor
	} else {
		rl.presentFactor *= rl.cfg.PresentMultiplier
	}
	rl.cost.SetPresentFactor(rl.presentFactor)

	for _, n := range rl.nets {
		for _, c := range n.Connections {
			for _, r := range c.Route {
				if over := r.Overuse(); over == 0 {
					r.PresentCost = 1 + rl.presentFactor
				} else {
					r.PresentCost = 1 + float64(over+1)*rl.presentFactor
					r.HistoricalCost += float64(over) * rl.cfg.HistoricalFactor
				}
			}
		}
	}
}

func (rl *RouterLoop) collectOverused() []*device.RNode {
	seen := map[*device.RNode]struct{}{}
	var out []*device.RNode
	for _, n := range rl.nets {
		for _, c := range n.Connections {
			for _, r := range c.Route {
				if _, ok := seen[r]; ok {
					continue
				}
				seen[r] = struct{}{}
				if r.Overuse() > 0 {
					out = append(out, r)
				}
			}
		}
	}
	return out
}

func (rl *RouterLoop) countUnrouted() int {
	n := 0
	for _, net := range rl.nets {
		for _, c := range net.Connections {
			if c.Unrouted() {
				n++
			}
		}
	}
	return n
}

func (rl *RouterLoop) worstDelay() int {
	worst := 0
	for _, net := range rl.nets {
		for _, c := range net.Connections {
			d := 0
			for _, r := range c.Route {
				d += int(r.Delay)
			}
			if d > worst {
				worst = d
			}
		}
	}
	return worst
}

// handleUnroutableFirstPass tries swap_output_pin on nets with unrouted
// connections, iteration 1 only.
func (rl *RouterLoop) handleUnroutableFirstPass(unroutedCount int) {
	if unroutedCount == 0 || rl.swap == nil {
		return
	}
	tried := map[*NetWrapper]struct{}{}
	for _, net := range rl.nets {
		if _, done := tried[net]; done {
			continue
		}
		hasUnrouted := false
		for _, c := range net.Connections {
			if c.Unrouted() {
				hasUnrouted = true
				break
			}
		}
		if !hasUnrouted {
			continue
		}
		tried[net] = struct{}{}
		if rl.swap.SwapOutputPin(net) {
			net.SourceChanged = true
			log.Printf("[route] swapped output pin on net %s", net.Name)
		} else {
			log.Printf("[route] no alternative output pin for net %s", net.Name)
		}
	}
}

// unrouteReservedNets collects preserved nets touching an
// uphill-of-sink or downhill-of-source node of an unrouted connection
// (excluding protected clock/static nets) and releases their nodes from
// preservation, so later searches may use them. The released nets are
// not added to the loop's nets and are not rerouted by it. Any
// release invalidates the graph's memoized child lists, since the freed
// nodes were filtered out of lists computed while still reserved.
func (rl *RouterLoop) unrouteReservedNets() {
	dev := rl.graph.Device()
	var touched []device.NodeID
	for _, net := range rl.nets {
		for _, c := range net.Connections {
			if !c.Unrouted() {
				continue
			}
			if c.SourceNode != nil {
				id := c.SourceNode.Node.ID
				touched = append(touched, id)
				touched = append(touched, dev.Downhill(id)...)
			}
			if c.SinkNode != nil {
				id := c.SinkNode.Node.ID
				touched = append(touched, id)
				touched = append(touched, dev.Uphill(id)...)
			}
		}
	}
	if len(touched) == 0 {
		return
	}
	released := false
	for net := range rl.preserve.NetsTouching(touched) {
		if _, spared := rl.protected[net]; spared {
			continue
		}
		rl.preserve.Release(net)
		released = true
		log.Printf("[route] released preserved net %s for rip-up", net)
	}
	if released {
		rl.graph.InvalidateAllChildren()
	}
}
