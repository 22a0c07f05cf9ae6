package eco

import (
	"fmt"
	"log"

	"fpgaroute/design"
)

// Disconnector runs the disconnect operator,
// accumulating deferred site-pin removals and optionally notifying a
// Listener of what it did.
type Disconnector struct {
	Design   *design.Design
	Removals DeferredRemovals
	OnEvent  Listener
}

// NewDisconnector creates a disconnector writing into removals (created
// fresh with NewDeferredRemovals if the caller has no existing batch to
// append to).
func NewDisconnector(d *design.Design, removals DeferredRemovals) *Disconnector {
	return &Disconnector{Design: d, Removals: removals}
}

// Disconnect detaches every pin named in pinRefs from its logical net,
// collecting the site pins it physically freed into deferredRemovals
//. It is idempotent: a pin already detached is
// silently skipped.
func (dc *Disconnector) Disconnect(pinRefs ...string) error {
	for _, ref := range pinRefs {
		p := dc.Design.FindPin(ref)
		if p == nil {
			return fmt.Errorf("eco: disconnect %q: %w", ref, ErrInvalidInput)
		}
		net := p.Net
		if net == nil {
			continue
		}
		for _, leaf := range affectedLeafPins(p) {
			for _, spi := range sitePinsForLeaf(leaf) {
				if spi.Net != nil {
					dc.Removals.Add(spi.Net, spi)
				}
			}
		}
		detachFromNet(net, p)
		log.Printf("[eco] disconnected %s from net %s", ref, net.Name)
		notify(dc.OnEvent, Event{Type: EvPinDisconnected, Net: net.Name, Pin: ref})
	}
	return nil
}

// detachFromNet removes p's role (source or sink) from net and clears
// the pin's own net pointer.
func detachFromNet(net *design.Net, p *design.Pin) {
	if net.Source == p {
		net.Source = nil
	}
	net.RemoveSink(p)
	p.Net = nil
}

// affectedLeafPins computes the set of
// leaf pins electrically implicated by disconnecting p.
//
//  - A leaf input pin disconnects just itself.
//  - A leaf output pin disconnects every leaf sink reachable downstream
//  through the hierarchy (its net's fan-out).
//  - A hierarchical port follows the "internal" net inside the port's
//  cell: if that side carries a source, the outer disconnect is
//  really severing a sink relationship, so the affected set is the
//  upstream leaves (the outer net's source chain); otherwise it is
//  the downstream leaves.
func affectedLeafPins(p *design.Pin) []*design.Pin {
	if !p.IsHierPort {
		if p.Dir == design.DirInput {
			return []*design.Pin{p}
		}
		// Output leaf: disconnecting the source breaks the whole net,
		// so the site pin backing p itself is affected along with every
		// downstream sink's.
		return append([]*design.Pin{p}, downstreamLeaves(p)...)
	}
	if p.Cell == nil {
		return nil
	}
	internal := p.Cell.InternalNet[p.Name]
	if internal != nil && internal.Source != nil {
		return upstreamLeaves(p)
	}
	return downstreamLeaves(p)
}

// downstreamLeaves walks p's net's sinks, expanding any hierarchical
// port sink into the leaves of its internal net, until only leaf pins
// remain.
func downstreamLeaves(p *design.Pin) []*design.Pin {
	net := p.Net
	if net == nil {
		return nil
	}
	var out []*design.Pin
	seen := map[*design.Pin]struct{}{}
	var walk func(n *design.Net)
	walk = func(n *design.Net) {
		for sink := range n.Sinks {
			if _, ok := seen[sink]; ok {
				continue
			}
			seen[sink] = struct{}{}
			if sink.IsHierPort && sink.Cell != nil {
				if inner := sink.Cell.InternalNet[sink.Name]; inner != nil {
					walk(inner)
					continue
				}
			}
			out = append(out, sink)
		}
	}
	walk(net)
	return out
}

// upstreamLeaves walks back through p's net's source chain, expanding a
// hierarchical-port source into the leaves feeding its internal net's
// source, until a leaf output pin is reached.
func upstreamLeaves(p *design.Pin) []*design.Pin {
	net := p.Net
	var out []*design.Pin
	seen := map[*design.Net]struct{}{}
	for net != nil {
		if _, ok := seen[net]; ok {
			break
		}
		seen[net] = struct{}{}
		src := net.Source
		if src == nil {
			break
		}
		if src.IsHierPort && src.Cell != nil {
			if inner := src.Cell.InternalNet[src.Name]; inner != nil {
				net = inner
				continue
			}
		}
		out = append(out, src)
		break
	}
	return out
}

// sitePinsForLeaf returns the physical site pins currently bound to
// leaf's placement, found by scanning its site's intra-site wires for
// the one carrying its BEL pin. A leaf
// with no placement, or whose BEL pin reaches no site boundary, has no
// site pins yet.
func sitePinsForLeaf(leaf *design.Pin) []*design.SitePinInst {
	c := leaf.Cell
	if c == nil || c.Site == nil || leaf.BELPin == "" {
		return nil
	}
	var out []*design.SitePinInst
	for _, w := range c.Site.SiteWires {
		if _, ok := w.BELPins[leaf.BELPin]; ok && w.SitePin != nil {
			out = append(out, w.SitePin)
		}
	}
	return out
}
