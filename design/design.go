// Package design holds the in-memory logical/physical data model that the
// router and the ECO core both operate on: cells, pins, nets, site
// instances and site-pin instances, plus the hierarchy that ties
// leaf cell pins back to their enclosing module instances.
//
// This is not a checkpoint/EDIF reader but the structure such a
// reader would populate.
package design

import "fmt"

// Direction of a logical or physical pin.
type Direction int

const (
	DirUnknown Direction = iota
	DirInput
	DirOutput
)

func (d Direction) String() string {
	switch d {
	case DirInput:
		return "IN"
	case DirOutput:
		return "OUT"
	default:
		return "?"
	}
}

// NetKind classifies a logical net.
type NetKind int

const (
	NetSignal NetKind = iota
	NetGND
	NetVCC
	NetClock
)

// Pin is a logical pin on a cell instance (leaf or hierarchical port).
type Pin struct {
	Name       string
	Dir        Direction
	Cell       *CellInst
	Net        *Net
	IsHierPort bool // true if this pin is a hierarchical module port, not a leaf pin

	// BELPin is the BEL pin name this logical pin maps to on its cell's
	// placed site. Distinct pins of the
	// same leaf cell (e.g. a flop's D and Q) have distinct BEL pins
	// sharing one Cell.Site.
	BELPin string
}

func (p *Pin) String() string {
	if p == nil {
		return "(nil pin)"
	}
	return fmt.Sprintf("%s/%s", p.Cell.Path(), p.Name)
}

// CellInst is an instance in the hierarchical netlist. Leaf cells place
// onto a SiteInst; hierarchical cells contain child instances and have an
// "internal" net per port used to relate outer and inner connectivity.
type CellInst struct {
	Name     string
	Parent   *CellInst // nil for the top-level instance
	Children map[string]*CellInst
	Pins     map[string]*Pin
	IsLeaf   bool
	IsConst  bool // GND/VCC tie cell; never unplaced by remove_cell

	// Site is this instance's physical placement, only meaningful for
	// leaf cells. Per-pin BEL pin names live on Pin.BELPin.
	Site *SiteInst

	// InternalNet maps a hierarchical port name to the net used inside
	// this instance's body for that port.
	InternalNet map[string]*Net
}

// Path returns the slash-separated hierarchical instance path, starting
// at the top-level instance.
func (c *CellInst) Path() string {
	if c == nil {
		return "(nil)"
	}
	if c.Parent == nil {
		return c.Name
	}
	return c.Parent.Path() + "/" + c.Name
}

// Pin looks up (or is nil if absent) a pin by name.
func (c *CellInst) Pin(name string) *Pin {
	if c == nil {
		return nil
	}
	return c.Pins[name]
}

// Net is a logical net: a source pin (at most one) and a set of sinks.
type Net struct {
	Name   string
	Kind   NetKind
	Source *Pin
	Sinks  map[*Pin]struct{}

	// PhysNet is the physical net alias this logical net currently
	// routes through, if materialized.
	PhysNet *PhysicalNet
}

func (n *Net) IsStatic() bool {
	return n.Kind == NetGND || n.Kind == NetVCC
}

// AddSink registers a sink pin on the net.
func (n *Net) AddSink(p *Pin) {
	if n.Sinks == nil {
		n.Sinks = make(map[*Pin]struct{})
	}
	n.Sinks[p] = struct{}{}
}

func (n *Net) RemoveSink(p *Pin) {
	delete(n.Sinks, p)
}

// SiteInst is a physical placement location instance.
type SiteInst struct {
	Name     string
	SitePins map[string]*SitePinInst
	// Intra-site routing: the site's wire segments keyed by sitewire name
	// (e.g. "MUX", "_O"), each listing the BEL pins it connects, used by
	// the exit/entry site-pin search in eco.CreateExitSitePin /
	// eco.RouteOutSitePinSource.
	SiteWires map[string]*SiteWire
}

// WireOf returns the intra-site wire that reaches spi at the site
// boundary, if any.
func (s *SiteInst) WireOf(spi *SitePinInst) *SiteWire {
	for _, w := range s.SiteWires {
		if w.SitePin == spi {
			return w
		}
	}
	return nil
}

// SiteWire models one intra-site net segment: the set of BEL pins and
// site pins it currently electrically connects, and whether a
// reconfigurable site-PIP (a mux-select bit, e.g. an OUTMUX) sits on it.
type SiteWire struct {
	Name        string
	BELPins     map[string]struct{}
	SitePin     *SitePinInst // non-nil if this wire reaches the site boundary directly
	SitePIPFrom string       // upstream BEL pin if this wire is gated by a reconfigurable site-PIP
	Net         *PhysicalNet
	UsedNet     bool // true once marked USED_NET: source sitewire blocked after a static-net migration
}

// SitePinInst (SPI) is a logical-to-physical pin binding: the physical
// pin of a SiteInst, bound to exactly one physical net at a time.
type SitePinInst struct {
	Name string
	Dir  Direction
	Site *SiteInst
	Net  *PhysicalNet
}

func (s *SitePinInst) String() string {
	if s == nil {
		return "(nil spi)"
	}
	return fmt.Sprintf("%s %s.%s", s.Dir, s.Site.Name, s.Name)
}

// PhysicalNet is the physical-routing-domain counterpart of a logical Net:
// a set of site pins plus (eventually) a set of PIPs/nodes it occupies.
type PhysicalNet struct {
	Name      string
	Kind      NetKind
	SitePins  map[*SitePinInst]struct{}
	Preserved bool
	Routed    bool
}

func (pn *PhysicalNet) AddSitePin(sp *SitePinInst) {
	if pn.SitePins == nil {
		pn.SitePins = make(map[*SitePinInst]struct{})
	}
	pn.SitePins[sp] = struct{}{}
	sp.Net = pn
}

func (pn *PhysicalNet) RemoveSitePin(sp *SitePinInst) {
	delete(pn.SitePins, sp)
	if sp.Net == pn {
		sp.Net = nil
	}
}

// Design is the top-level container: the hierarchical netlist plus the
// physical placement state.
type Design struct {
	Top       *CellInst
	Nets      map[string]*Net
	SiteInsts map[string]*SiteInst
	PhysNets  map[string]*PhysicalNet

	// GND/VCC are the design's two static physical nets.
	GND *PhysicalNet
	VCC *PhysicalNet

	nextSuffix int
}

// NewDesign creates an empty design with the two static nets materialized.
func NewDesign(topName string) *Design {
	d := &Design{
		Top:       &CellInst{Name: topName, Children: map[string]*CellInst{}, Pins: map[string]*Pin{}},
		Nets:      map[string]*Net{},
		SiteInsts: map[string]*SiteInst{},
		PhysNets:  map[string]*PhysicalNet{},
	}
	d.GND = &PhysicalNet{Name: "GND", Kind: NetGND, SitePins: map[*SitePinInst]struct{}{}}
	d.VCC = &PhysicalNet{Name: "VCC", Kind: NetVCC, SitePins: map[*SitePinInst]struct{}{}}
	d.PhysNets["GND"] = d.GND
	d.PhysNets["VCC"] = d.VCC
	return d
}

// UniqueSuffix returns a suffix guaranteed not to collide with existing
// names, used when materializing connections through hierarchy.
func (d *Design) UniqueSuffix() string {
	d.nextSuffix++
	return fmt.Sprintf("_eco%d", d.nextSuffix)
}

// FindCell resolves a hierarchical instance path ("a/b/c") to a CellInst.
func (d *Design) FindCell(path string) *CellInst {
	cur := d.Top
	if path == d.Top.Name {
		return d.Top
	}
	segs := splitPath(path)
	for i, seg := range segs {
		if i == 0 && seg == d.Top.Name {
			continue
		}
		next, ok := cur.Children[seg]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// FindPin resolves a hierarchical pin reference "path/pinName".
func (d *Design) FindPin(ref string) *Pin {
	cellPath, pinName, ok := splitPinRef(ref)
	if !ok {
		return nil
	}
	c := d.FindCell(cellPath)
	if c == nil {
		return nil
	}
	return c.Pin(pinName)
}

func splitPath(path string) []string {
	var segs []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			segs = append(segs, path[start:i])
			start = i + 1
		}
	}
	segs = append(segs, path[start:])
	return segs
}

func splitPinRef(ref string) (cellPath, pin string, ok bool) {
	idx := -1
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == '/' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", "", false
	}
	return ref[:idx], ref[idx+1:], true
}
