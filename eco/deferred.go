package eco

import "fpgaroute/design"

// DeferredRemovals is the mapping Net -> set<SitePinInst>: every ECO
// operator threads the same instance through by reference so physical
// side-effects batch instead
// of firing mid-mutation. Callers may call Disconnect many times before
// materializing the removals, or reuse a collected site pin when
// Connect re-homes it onto a different net.
type DeferredRemovals map[*design.PhysicalNet]map[*design.SitePinInst]struct{}

// NewDeferredRemovals creates an empty removals set.
func NewDeferredRemovals() DeferredRemovals {
	return make(DeferredRemovals)
}

// Add records spi as pending removal from net.
func (d DeferredRemovals) Add(net *design.PhysicalNet, spi *design.SitePinInst) {
	if net == nil || spi == nil {
		return
	}
	set, ok := d[net]
	if !ok {
		set = make(map[*design.SitePinInst]struct{})
		d[net] = set
	}
	set[spi] = struct{}{}
}

// Remove undoes a pending removal, used when a later operator re-homes
// a site pin that an earlier disconnect had deferred.
func (d DeferredRemovals) Remove(net *design.PhysicalNet, spi *design.SitePinInst) {
	if set, ok := d[net]; ok {
		delete(set, spi)
		if len(set) == 0 {
			delete(d, net)
		}
	}
}

// Has reports whether spi is currently pending removal from net.
func (d DeferredRemovals) Has(net *design.PhysicalNet, spi *design.SitePinInst) bool {
	set, ok := d[net]
	if !ok {
		return false
	}
	_, ok = set[spi]
	return ok
}

// Pins returns the site pins pending removal from net, for inspection
// or materialization by a caller.
func (d DeferredRemovals) Pins(net *design.PhysicalNet) []*design.SitePinInst {
	set := d[net]
	out := make([]*design.SitePinInst, 0, len(set))
	for spi := range set {
		out = append(out, spi)
	}
	return out
}

// Count returns the total number of pending removals across all nets.
func (d DeferredRemovals) Count() int {
	n := 0
	for _, set := range d {
		n += len(set)
	}
	return n
}

// Materialize actually removes every pending site pin from its physical
// net and clears the map. Callers batch Disconnect/Connect calls and
// call this once per ECO transaction.
func (d DeferredRemovals) Materialize() {
	for net, set := range d {
		for spi := range set {
			net.RemoveSitePin(spi)
		}
		delete(d, net)
	}
}
