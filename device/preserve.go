package device

import (
	"sync"

	"github.com/bfix/gospel/data"
)

// NetID identifies a net for reservation/ownership purposes. It is a
// plain string so this package stays independent of the higher-level
// netlist model in package design; callers derive it from whatever net
// identity they use (name, interned index, ...).
type NetID string

// Preservation maps physical nodes to the net that currently owns them
//. A node owned by a preserved
// net is invisible as a child during graph expansion unless the
// preserved net is the one currently being routed, or it has been
// released by a soft-preserve rip-up.
//
// Membership checks happen on the hot path of RoutingGraph.Children,
// so a SaltedBloomFilter gates the exact map lookup: a filter miss short-circuits to "not preserved" without
// touching the map at all.
type Preservation struct {
	mu     sync.RWMutex
	owner  map[NodeID]NetID
	filter *data.SaltedBloomFilter
	salt   uint32
	count  int
}

// NewPreservation creates an empty preservation map.
func NewPreservation() *Preservation {
	p := &Preservation{owner: make(map[NodeID]NetID)}
	p.rebuildFilter()
	return p
}

func (p *Preservation) rebuildFilter() {
	n := len(p.owner) + 2
	fpr := 1.0 / float64(n)
	p.filter = data.NewSaltedBloomFilter(p.salt, n, fpr)
	for id := range p.owner {
		p.filter.Add([]byte(id.Tile + "/" + id.Wire))
	}
}

// Reserve marks nodes as owned by net. Called when a net is declared
// preserved.
func (p *Preservation) Reserve(net NetID, nodes ...NodeID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range nodes {
		p.owner[n] = net
	}
	p.rebuildFilter()
}

// Release frees every node owned by net.
func (p *Preservation) Release(net NetID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for n, owner := range p.owner {
		if owner == net {
			delete(p.owner, n)
		}
	}
	p.rebuildFilter()
}

// OwnerOf returns the net that owns n, and whether it is owned at all.
func (p *Preservation) OwnerOf(n NodeID) (NetID, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	// bloom filter: cheap, exact-no-negative pre-check.
	if p.filter != nil && !p.filter.Contains([]byte(n.Tile+"/"+n.Wire)) {
		return "", false
	}
	owner, ok := p.owner[n]
	return owner, ok
}

// Visible reports whether n should be visible as a child while routing
// currentNet: visible if unreserved, or reserved by currentNet itself.
func (p *Preservation) Visible(n NodeID, currentNet NetID) bool {
	owner, reserved := p.OwnerOf(n)
	return !reserved || owner == currentNet
}

// NetsTouching returns the set of distinct preserved nets owning any of
// the given nodes, used by unroute_reserved_nets
// to find candidates for rip-up.
func (p *Preservation) NetsTouching(nodes []NodeID) map[NetID]struct{} {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[NetID]struct{})
	for _, n := range nodes {
		if owner, ok := p.owner[n]; ok {
			out[owner] = struct{}{}
		}
	}
	return out
}
