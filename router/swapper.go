package router

import "fpgaroute/device"

// AltSourceSwapper is the in-core OutputPinSwapper: a table of legal
// alternative source rnodes per net, populated by the caller from the
// netlist's alternative output site pins. Swapping re-homes every
// connection of the net onto
// the alternative source; a net with no entry reports "no alternative".
type AltSourceSwapper struct {
	Alternatives map[device.NetID]*device.RNode
}

// SwapOutputPin replaces net's source rnode with its registered
// alternative on all connections and consumes the entry, so a second
// failure on the same net cannot ping-pong back.
func (s *AltSourceSwapper) SwapOutputPin(net *NetWrapper) bool {
	alt, ok := s.Alternatives[net.ID]
	if !ok || alt == nil {
		return false
	}
	delete(s.Alternatives, net.ID)
	for _, c := range net.Connections {
		c.SourceNode = alt
		c.MarkUnrouted()
	}
	net.RecenterFromNodes()
	return true
}
