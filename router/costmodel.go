package router

import (
	"math"

	"fpgaroute/config"
	"fpgaroute/device"
)

// CostModel computes the present/historical-congestion and
// timing-weighted path costs.
type CostModel struct {
	cfg *config.Config

	// presentFactor is RouterLoop's current present_factor, refreshed
	// once per iteration by update_cost_factors.
	// It is iteration state, not a fixed config value, so it lives here
	// rather than in config.Config.
	presentFactor float64
}

// NewCostModel creates a cost model bound to the active configuration.
func NewCostModel() *CostModel {
	return &CostModel{cfg: config.Get(), presentFactor: config.Get().InitialPresentFactor}
}

// SetPresentFactor installs the present_factor for the current iteration.
func (m *CostModel) SetPresentFactor(pf float64) {
	m.presentFactor = pf
}

// PresentFactor returns the present_factor currently in effect.
func (m *CostModel) PresentFactor() float64 {
	return m.presentFactor
}

// ShareFactor computes sf(rnode, source): a rnode already used by other
// connections of the same net is cheaper, encouraging fan-out reuse.
func (m *CostModel) ShareFactor(r *device.RNode, src device.SourceKey, criticality float64) float64 {
	usersFromSameSource := 0
	if r.HasUser(src) {
		usersFromSameSource = r.Occupancy()
	}
	shareWeight := math.Pow(1-criticality, m.cfg.ShareExponent)
	return 1 + shareWeight*float64(usersFromSameSource)
}

// NodeCost computes node_cost for r as seen from a search originating at
// src:
//
//	node_cost = base * historical * present_for_this_connection / sf + bias
//
// present_for_this_connection recomputes from this connection's own
// view of overuse when its net already claims the rnode, instead of
// using the globally stamped present_cost, so that a net routing
// through a node it already owns does not pay for its own occupancy.
func (m *CostModel) NodeCost(r *device.RNode, src device.SourceKey, net *NetWrapper, criticality float64) float64 {
	const base = 1.0
	sf := m.ShareFactor(r, src, criticality)

	var presentForThis float64
	if r.HasUser(src) {
		if over := r.Overuse(); over > 0 {
			presentForThis = 1 + float64(over+1)*m.presentFactor
		} else {
			presentForThis = 1
		}
	} else {
		presentForThis = r.PresentCost
	}

	nodeCost := base * r.HistoricalCost * presentForThis / sf

	var bias float64
	if net != nil && net.Fanout() > 0 && net.HPWL > 0 {
		bias = 0.5 * base * (math.Abs(float64(r.Node.X)-net.XCenter) + math.Abs(float64(r.Node.Y)-net.YCenter)) /
			(float64(net.Fanout()) * net.HPWL)
	}
	return nodeCost + bias
}

// extraDelay returns the +45ps long-after-long penalty when both parent
// and child are long wires, else 0.
func extraDelay(parent, child *device.RNode) int16 {
	if isLong(parent) && isLong(child) {
		return 45
	}
	return 0
}

func isLong(r *device.RNode) bool {
	switch r.Node.Intent {
	case device.IntentVLong, device.IntentHLong:
		return true
	default:
		return false
	}
}

// RelaxResult is the pair of costs produced by relaxing an edge: the
// accumulated upstream cost, and the total lower-bound
// cost used to order the priority queue.
type RelaxResult struct {
	Upstream float64
	Total    float64
}

// Relax computes the path cost of extending the search from parent to
// child, toward sink, for a connection with criticality crit.
func (m *CostModel) Relax(parent, child, sink *device.RNode, src device.SourceKey, net *NetWrapper, crit float64) RelaxResult {
	sf := m.ShareFactor(child, src, crit)
	nodeCost := m.NodeCost(child, src, net, crit)

	wl := m.cfg.WirelengthWeight
	tw := m.cfg.TimingWeight

	upstream := parent.UpstreamCost +
		(1-crit)*nodeCost +
		(1-crit)*(1-wl)*float64(child.Node.Length)/sf +
		crit*(1-tw)*float64(int(child.Delay)+int(extraDelay(parent, child)))/100

	dx := math.Abs(float64(sink.Node.X - child.Node.X))
	dy := math.Abs(float64(sink.Node.Y - child.Node.Y))
	distToSink := dx + dy

	total := upstream +
		(1-crit)*wl*distToSink/sf +
		crit*tw*(dx*0.32+dy*0.16)

	return RelaxResult{Upstream: upstream, Total: total}
}
