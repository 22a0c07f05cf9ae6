package router

import (
	"log"

	"fpgaroute/config"
	"fpgaroute/device"
)

// ClockRouter routes one clock net outside the negotiated-congestion
// loop and returns the device nodes it claimed; the claimed nodes
// extend the preserved set.
type ClockRouter interface {
	RouteClock(netName string, symmetric bool) []device.NodeID
}

// StaticRouter routes one static (VCC/GND) distribution net around the
// unavailable node set and returns, per sink site pin, the node list
// it claimed.
type StaticRouter interface {
	RouteStatic(netName string, unavailable map[device.NodeID]struct{}) map[string][]device.NodeID
}

// PIP is one programmable interconnect point activated for a net: the
// (from, to) node pair of a real device PIP.
type PIP struct {
	From, To device.NodeID
}

// Scheduler is the phase glue: clocks -> static
// nets -> preroute estimation -> signal-net routing -> legalization ->
// PIP emission. ECO operators run outside of it, before a (re)route.
type Scheduler struct {
	cfg      *config.Config
	dev      device.DeviceGraph
	graph    *device.RoutingGraph
	preserve *device.Preservation

	ClockNets  []string
	StaticNets []string
	Nets       []*NetWrapper

	Clocks  ClockRouter
	Statics StaticRouter
	Timing  TimingGraph
	Swap    OutputPinSwapper

	// reserved tracks every node handed to Preservation by the clock
	// and static phases, so the static router's unavailable set can be
	// built without walking the whole preservation map.
	reserved map[device.NodeID]struct{}
}

// NewScheduler wires the phases over a shared graph/preservation pair.
// Clocks, Statics, Timing and Swap may be left nil when the
// corresponding phase or feature is unused.
func NewScheduler(dev device.DeviceGraph, graph *device.RoutingGraph, preserve *device.Preservation) *Scheduler {
	return &Scheduler{
		cfg:      config.Get(),
		dev:      dev,
		graph:    graph,
		preserve: preserve,
		reserved: make(map[device.NodeID]struct{}),
	}
}

// Result is the outcome of one full Run: the router loop's final report
// plus the per-net PIP lists ready for checkpoint emission.
type Result struct {
	Report Report
	PIPs   map[string][]PIP
}

// Run executes the full routing schedule and returns the loop report
// and the emitted PIPs. Running again on a converged design changes no
// rnode claims: every connection is already uncongested and routed, so
// should_route declines all of them after iteration 1 re-confirms the
// existing claims.
func (s *Scheduler) Run() Result {
	s.routeClocks()
	s.routeStatics()
	s.prerouteEstimation()

	loop := NewRouterLoop(s.graph, s.preserve, s.Nets, s.Timing, s.Swap)
	for _, name := range s.ClockNets {
		loop.SetProtectedNets(device.NetID(name))
	}
	for _, name := range s.StaticNets {
		loop.SetProtectedNets(device.NetID(name))
	}
	report := loop.Route()

	pips, conflicts := s.emitPIPs()
	if conflicts > 0 {
		log.Printf("[sched] %d PIPs claimed by more than one net", conflicts)
		if report.Status == StatusConverged {
			report.Status = StatusConflictsRemaining
		}
	}
	return Result{Report: report, PIPs: pips}
}

// routeClocks hands each clock net to the external clock router and
// reserves whatever it claimed, before any signal net is considered.
func (s *Scheduler) routeClocks() {
	if s.Clocks == nil {
		return
	}
	for _, name := range s.ClockNets {
		nodes := s.Clocks.RouteClock(name, s.cfg.SymmetricClock)
		s.reserve(device.NetID(name), nodes)
		log.Printf("[sched] clock net %s reserved %d nodes", name, len(nodes))
	}
}

// routeStatics routes VCC/GND distribution around everything the clock
// phase already claimed.
func (s *Scheduler) routeStatics() {
	if s.Statics == nil {
		return
	}
	for _, name := range s.StaticNets {
		perSink := s.Statics.RouteStatic(name, s.reserved)
		total := 0
		for _, nodes := range perSink {
			s.reserve(device.NetID(name), nodes)
			total += len(nodes)
		}
		log.Printf("[sched] static net %s reserved %d nodes across %d sinks", name, total, len(perSink))
	}
}

func (s *Scheduler) reserve(net device.NetID, nodes []device.NodeID) {
	if len(nodes) == 0 {
		return
	}
	s.preserve.Reserve(net, nodes...)
	for _, n := range nodes {
		s.reserved[n] = struct{}{}
	}
}

// prerouteEstimation computes each net's centre/HPWL and each
// connection's HPWL and initial bounding box (endpoint box widened by
// bounding_box_extension INT tiles).
func (s *Scheduler) prerouteEstimation() {
	ext := s.cfg.BoundingBoxExtension
	for _, net := range s.Nets {
		net.RecenterFromNodes()
		for _, c := range net.Connections {
			if c.SourceNode == nil || c.SinkNode == nil {
				continue
			}
			sx, sy := c.SourceNode.Node.X, c.SourceNode.Node.Y
			tx, ty := c.SinkNode.Node.X, c.SinkNode.Node.Y
			c.HPWL = float64(abs(sx-tx) + abs(sy-ty))
			c.BBox = BBox{
				XMin: min(sx, tx) - ext, XMax: max(sx, tx) + ext,
				YMin: min(sy, ty) - ext, YMax: max(sy, ty) + ext,
			}
		}
	}
}

// emitPIPs materializes, per net, the deduplicated PIP list of its
// routed connections, and counts PIPs claimed by more than one net
// Adjacent route pairs that are not a real device PIP (the intra-site
// source->sink hop of a Direct connection) are not emitted.
func (s *Scheduler) emitPIPs() (map[string][]PIP, int) {
	out := make(map[string][]PIP)
	owner := make(map[PIP]string)
	conflicts := 0

	for _, net := range s.Nets {
		seen := make(map[PIP]struct{})
		for _, c := range net.Connections {
			for i := 1; i < len(c.Route); i++ {
				a, b := c.Route[i-1].Node.ID, c.Route[i].Node.ID
				if !s.dev.PIP(a, b) {
					continue
				}
				p := PIP{From: a, To: b}
				if _, dup := seen[p]; dup {
					continue
				}
				seen[p] = struct{}{}
				if prev, claimed := owner[p]; claimed && prev != net.Name {
					conflicts++
					continue
				}
				owner[p] = net.Name
				out[net.Name] = append(out[net.Name], p)
			}
		}
	}
	return out, conflicts
}
