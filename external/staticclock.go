package external

import "fpgaroute/device"

// TrunkClockRouter is an in-memory router.ClockRouter fixture: each
// clock net's trunk is a precomputed node list handed back verbatim.
// The symmetric flag selects an alternate trunk when one is present
type TrunkClockRouter struct {
	Trunks    map[string][]device.NodeID
	Symmetric map[string][]device.NodeID
}

// RouteClock returns the configured trunk for netName.
func (r *TrunkClockRouter) RouteClock(netName string, symmetric bool) []device.NodeID {
	if symmetric {
		if alt, ok := r.Symmetric[netName]; ok {
			return alt
		}
	}
	return r.Trunks[netName]
}

// TableStaticRouter is an in-memory router.StaticRouter fixture: a
// precomputed per-sink node-list table per static net. A sink whose
// node list touches the unavailable set is dropped from the result,
// mirroring a real static-net router's obligation to route around
// already-claimed resources.
type TableStaticRouter struct {
	// Pins maps net name -> site pin name -> claimed nodes.
	Pins map[string]map[string][]device.NodeID
}

// RouteStatic returns the per-sink claims for netName, excluding sinks
// blocked by unavailable.
func (r *TableStaticRouter) RouteStatic(netName string, unavailable map[device.NodeID]struct{}) map[string][]device.NodeID {
	out := make(map[string][]device.NodeID)
	for spi, nodes := range r.Pins[netName] {
		blocked := false
		for _, n := range nodes {
			if _, bad := unavailable[n]; bad {
				blocked = true
				break
			}
		}
		if !blocked {
			out[spi] = nodes
		}
	}
	return out
}
