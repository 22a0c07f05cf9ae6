package eco

import (
	"fmt"
	"log"

	"fpgaroute/design"
)

// CellEditor runs the cell/net structural operators: remove_cell,
// create_cell, create_net.
type CellEditor struct {
	Design   *design.Design
	Removals DeferredRemovals
	OnEvent  Listener
}

// NewCellEditor creates a cell editor writing into removals.
func NewCellEditor(d *design.Design, removals DeferredRemovals) *CellEditor {
	return &CellEditor{Design: d, Removals: removals}
}

// RemoveCell detaches every
// port of instPath's instance from its net, unplace every non-constant
// leaf descendant (routing its incident site pins into deferred
// removals), then remove the instance from its parent.
func (ce *CellEditor) RemoveCell(instPath string) error {
	c := ce.Design.FindCell(instPath)
	if c == nil {
		return fmt.Errorf("eco: remove_cell %q: %w", instPath, ErrInvalidInput)
	}
	if c.Parent == nil {
		return fmt.Errorf("eco: remove_cell %q: %w: cannot remove the top-level instance", instPath, ErrInvalidInput)
	}

	for _, p := range c.Pins {
		if p.Net != nil {
			detachFromNet(p.Net, p)
		}
	}

	ce.unplaceLeaves(c)

	delete(c.Parent.Children, c.Name)
	log.Printf("[eco] removed cell instance %s", instPath)
	notify(ce.OnEvent, Event{Type: EvCellRemoved, Pin: instPath})
	return nil
}

// unplaceLeaves recursively detaches every non-constant leaf
// descendant of c from its physical site, deferring its site pins for
// removal, then clears its placement.
func (ce *CellEditor) unplaceLeaves(c *design.CellInst) {
	if c.IsLeaf {
		if c.IsConst {
			return
		}
		for _, p := range c.Pins {
			for _, spi := range sitePinsForLeaf(p) {
				if spi.Net != nil {
					ce.Removals.Add(spi.Net, spi)
				}
			}
		}
		c.Site = nil
		return
	}
	for _, child := range c.Children {
		ce.unplaceLeaves(child)
	}
}

// CreateCell adds a new,
// unplaced leaf (or hierarchical) instance under parentPath.
func (ce *CellEditor) CreateCell(parentPath, name string, pinNames map[string]design.Direction, isLeaf bool) (*design.CellInst, error) {
	parent := ce.Design.FindCell(parentPath)
	if parent == nil {
		return nil, fmt.Errorf("eco: create_cell: parent %q: %w", parentPath, ErrInvalidInput)
	}
	if _, exists := parent.Children[name]; exists {
		return nil, fmt.Errorf("eco: create_cell: %q already exists under %q: %w", name, parentPath, ErrInvalidInput)
	}
	c := &design.CellInst{
		Name:     name,
		Parent:   parent,
		Children: map[string]*design.CellInst{},
		Pins:     map[string]*design.Pin{},
		IsLeaf:   isLeaf,
	}
	for pn, dir := range pinNames {
		c.Pins[pn] = &design.Pin{Name: pn, Dir: dir, Cell: c}
	}
	parent.Children[name] = c
	log.Printf("[eco] created cell instance %s/%s", parentPath, name)
	notify(ce.OnEvent, Event{Type: EvCellCreated, Pin: c.Path()})
	return c, nil
}

// CreateNet is a dual
// constructor materializing a new logical net and its physical net
// shell, the same "net not found -> materialize" path resolvePhysicalNet
// takes for Connect, exposed as a standalone operator for callers that
// need the net to exist before issuing connect requests.
func (ce *CellEditor) CreateNet(name string, kind design.NetKind) (*design.Net, error) {
	if _, exists := ce.Design.Nets[name]; exists {
		return nil, fmt.Errorf("eco: create_net: %q already exists: %w", name, ErrInvalidInput)
	}
	net := &design.Net{Name: name, Kind: kind, Sinks: map[*design.Pin]struct{}{}}
	ce.Design.Nets[name] = net

	if kind == design.NetGND {
		net.PhysNet = ce.Design.GND
	} else if kind == design.NetVCC {
		net.PhysNet = ce.Design.VCC
	} else {
		pn := &design.PhysicalNet{Name: name, Kind: kind, SitePins: map[*design.SitePinInst]struct{}{}}
		ce.Design.PhysNets[name] = pn
		net.PhysNet = pn
	}
	log.Printf("[eco] created net %s", name)
	return net, nil
}
