package eco

import (
	"fmt"
	"log"
	"sort"

	"fpgaroute/config"
	"fpgaroute/design"
)

// Connector runs the connect operator.
type Connector struct {
	Design   *design.Design
	Removals DeferredRemovals
	OnEvent  Listener
}

// NewConnector creates a connector writing into removals.
func NewConnector(d *design.Design, removals DeferredRemovals) *Connector {
	return &Connector{Design: d, Removals: removals}
}

// Request is one (net, pins) batch to connect.
type Request struct {
	Net  *design.Net
	Pins []*design.Pin
}

// Connect attaches every pin in each request to its net, legalizing
// sources, physical-net aliasing, and per-leaf site-pin routing.
// Requests are processed in the order given; within a request, pins
// are partitioned output-first so the new source is
// attached before sinks are resolved against it.
func (cn *Connector) Connect(reqs []Request) error {
	for _, req := range reqs {
		if err := cn.connectOne(req); err != nil {
			return err
		}
	}
	return nil
}

func (cn *Connector) connectOne(req Request) error {
	net := req.Net
	if net == nil {
		return fmt.Errorf("eco: connect: %w: nil net", ErrInvalidInput)
	}

	var outs, ins []*design.Pin
	for _, p := range req.Pins {
		switch p.Dir {
		case design.DirOutput:
			outs = append(outs, p)
		case design.DirInput:
			ins = append(ins, p)
		default:
			return fmt.Errorf("eco: connect %s: %w: pin %s has no direction", net.Name, ErrInvalidInput, p)
		}
	}
	if len(outs) > 1 {
		return fmt.Errorf("eco: connect %s: %w: %d candidate sources requested, at most one allowed",
			net.Name, ErrPolicyRefusal, len(outs))
	}

	if len(outs) == 1 {
		if err := cn.attachSource(net, outs[0]); err != nil {
			return err
		}
	}

	physNet, err := cn.resolvePhysicalNet(net)
	if err != nil {
		return err
	}

	// Deterministic order over leaf pins: name order, the same stable
	// ordering discipline used everywhere ECO iterates a set.
	leaves := cn.expandLeaves(append(append([]*design.Pin{}, outs...), ins...))
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].String() < leaves[j].String() })

	for _, leaf := range leaves {
		if leaf.Dir == design.DirOutput {
			if err := cn.connectOutputLeaf(leaf, physNet); err != nil {
				return err
			}
		} else {
			if err := cn.connectInputLeaf(leaf, physNet, net); err != nil {
				return err
			}
		}
	}

	for _, p := range ins {
		if p.Net != nil && p.Net != net {
			detachFromNet(p.Net, p)
		}
		net.AddSink(p)
		p.Net = net
	}
	return nil
}

// attachSource demotes any existing source, materializes the
// hierarchy crossing if needed, and attaches the new port.
func (cn *Connector) attachSource(net *design.Net, newSrc *design.Pin) error {
	if net.Source != nil && net.Source != newSrc {
		old := net.Source
		log.Printf("[eco] demoting existing source %s of net %s", old, net.Name)
		for _, spi := range sitePinsForLeaf(old) {
			if spi.Net != nil {
				cn.Removals.Add(spi.Net, spi)
			}
		}
		old.Net = nil
		notify(cn.OnEvent, Event{Type: EvSourceDemoted, Net: net.Name, Pin: old.String()})
	}
	pin := cn.materializeThroughHierarchy(net, newSrc)
	net.Source = pin
	pin.Net = net
	return nil
}

// materializeThroughHierarchy bridges a single level of hierarchy when
// the new pin's enclosing instance is not the one the net already
// lives in, inserting a hierarchical port wired through a freshly
// named internal net.
//
// Only one level of hierarchy
// is bridged per call. Deeper crossings are handled by bridging
// repeatedly as Connect is invoked net-by-net.
func (cn *Connector) materializeThroughHierarchy(net *design.Net, pin *design.Pin) *design.Pin {
	home := netHomeCell(net, pin)
	if home == nil || pin.Cell.Parent == home {
		return pin
	}
	suffix := cn.Design.UniqueSuffix()
	bridgeNet := &design.Net{Name: net.Name + suffix, Kind: net.Kind, Sinks: map[*design.Pin]struct{}{}}
	cn.Design.Nets[bridgeNet.Name] = bridgeNet
	pin.Net = bridgeNet
	bridgeNet.Source = pin

	portName := "eco_port" + suffix
	port := &design.Pin{Name: portName, Dir: design.DirOutput, Cell: home, IsHierPort: true}
	if home.Pins == nil {
		home.Pins = map[string]*design.Pin{}
	}
	home.Pins[portName] = port
	if home.InternalNet == nil {
		home.InternalNet = map[string]*design.Net{}
	}
	home.InternalNet[portName] = bridgeNet
	bridgeNet.AddSink(port)
	return port
}

// netHomeCell picks the instance a net is considered to "live in":
// the parent of its existing source or any existing sink, falling back
// to the new pin's own parent when the net has no prior connectivity.
func netHomeCell(net *design.Net, pin *design.Pin) *design.CellInst {
	if net.Source != nil {
		return net.Source.Cell.Parent
	}
	for sink := range net.Sinks {
		return sink.Cell.Parent
	}
	return pin.Cell.Parent
}

// resolvePhysicalNet locates or materializes the physical net: constants
// map to the design's static nets; otherwise the net's own alias, else
// a freshly created physical net. When the logical net has just become
// static, the prior physical alias is migrated.
func (cn *Connector) resolvePhysicalNet(net *design.Net) (*design.PhysicalNet, error) {
	if net.IsStatic() {
		var static *design.PhysicalNet
		if net.Kind == design.NetGND {
			static = cn.Design.GND
		} else {
			static = cn.Design.VCC
		}
		if net.PhysNet != nil && net.PhysNet != static {
			cn.migrateToStatic(net.PhysNet, static)
		}
		net.PhysNet = static
		return static, nil
	}
	if net.PhysNet != nil {
		return net.PhysNet, nil
	}
	pn := &design.PhysicalNet{Name: net.Name, Kind: net.Kind, SitePins: map[*design.SitePinInst]struct{}{}}
	cn.Design.PhysNets[net.Name] = pn
	net.PhysNet = pn
	return pn, nil
}

// migrateToStatic propagates the static net type onto old, unroutes it,
// and marks every output site pin's sitewire USED_NET before deferring
// those pins for removal.
func (cn *Connector) migrateToStatic(old, static *design.PhysicalNet) {
	old.Kind = static.Kind
	old.Routed = false
	for spi := range old.SitePins {
		if spi.Dir != design.DirOutput {
			continue
		}
		if w := spi.Site.WireOf(spi); w != nil {
			w.UsedNet = true
		}
		cn.Removals.Add(old, spi)
	}
	notify(cn.OnEvent, Event{Type: EvNetMigrated, Net: old.Name, Msg: "migrated to " + static.Name})
}

// expandLeaves flattens pins (possibly hierarchical ports) down to the
// leaf cell pins the per-leaf routing pass iterates over.
func (cn *Connector) expandLeaves(pins []*design.Pin) []*design.Pin {
	var out []*design.Pin
	seen := map[*design.Pin]struct{}{}
	var walk func(p *design.Pin)
	walk = func(p *design.Pin) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		if !p.IsHierPort || p.Cell == nil {
			out = append(out, p)
			return
		}
		inner := p.Cell.InternalNet[p.Name]
		if inner == nil {
			out = append(out, p)
			return
		}
		if p.Dir == design.DirOutput {
			if inner.Source != nil {
				walk(inner.Source)
			}
			return
		}
		for s := range inner.Sinks {
			walk(s)
		}
	}
	for _, p := range pins {
		walk(p)
	}
	return out
}

// connectOutputLeaf re-homes or synthesizes the site pins of an
// output leaf.
func (cn *Connector) connectOutputLeaf(leaf *design.Pin, physNet *design.PhysicalNet) error {
	spis := sitePinsForLeaf(leaf)
	if len(spis) > 0 {
		for _, spi := range spis {
			old := spi.Net
			if old == physNet {
				// Already on the right physical net: cancel any pending
				// removal left over from an earlier disconnect.
				cn.Removals.Remove(physNet, spi)
				continue
			}
			if old != nil {
				cn.Removals.Remove(old, spi)
				old.RemoveSitePin(spi)
				if old.Routed && len(old.SitePins) == 0 {
					old.Routed = false
				}
			}
			for existing := range physNet.SitePins {
				if existing.Dir == design.DirOutput && existing != spi {
					physNet.RemoveSitePin(existing)
					cn.Removals.Add(physNet, existing)
				}
			}
			cn.Removals.Remove(physNet, spi)
			physNet.AddSitePin(spi)
			if w := spi.Site.WireOf(spi); w != nil {
				w.Net = physNet
			}
		}
		return nil
	}
	spi, err := RouteOutSitePinSource(leaf)
	if err != nil {
		return err
	}
	physNet.AddSitePin(spi)
	return nil
}

// connectInputLeaf re-homes or synthesizes the site pins of an input
// leaf.
func (cn *Connector) connectInputLeaf(leaf *design.Pin, physNet *design.PhysicalNet, logicalNet *design.Net) error {
	spis := sitePinsForLeaf(leaf)
	for _, spi := range spis {
		old := spi.Net
		if old == physNet {
			// Already on the right physical net: cancel any pending
			// removal left over from an earlier disconnect of this pin.
			cn.Removals.Remove(physNet, spi)
			continue
		}
		if old == nil {
			continue
		}
		if err := cn.checkSharedSitePin(spi, old, leaf, logicalNet); err != nil {
			return err
		}
		if w := spi.Site.WireOf(spi); w != nil {
			w.Net = physNet
		}
		old.RemoveSitePin(spi)
		if len(old.SitePins) == 0 {
			old.Routed = false
		}
		physNet.AddSitePin(spi)
	}
	if len(spis) > 0 {
		return nil
	}

	if leaf.Cell != nil && physNet != nil {
		if sameSiteAsAnySource(leaf, physNet) {
			return nil // intra-site only; no exit site pin needed.
		}
	}
	spi, err := CreateExitSitePin(leaf)
	if err != nil {
		return err
	}
	physNet.AddSitePin(spi)
	return nil
}

// checkSharedSitePin verifies every logical pin currently serviced
// by spi resolves to the same parent net as newNet; a different parent
// net is a hard error unless the instance is whitelisted, in which case
// it is a warning.
func (cn *Connector) checkSharedSitePin(spi *design.SitePinInst, old *design.PhysicalNet, leaf *design.Pin, newNet *design.Net) error {
	for _, servicedPin := range pinsBoundTo(cn.Design, spi) {
		if servicedPin == leaf || servicedPin.Net == newNet {
			continue
		}
		instName := ""
		if servicedPin.Cell != nil {
			instName = servicedPin.Cell.Path()
		}
		if config.AllowsSharedSitePin(instName) {
			log.Printf("[eco] warning: shared site pin %s also serves %s on a different net (allowed by prefix)", spi, servicedPin)
			notify(cn.OnEvent, Event{Type: EvSharedSPIWarning, Net: newNet.Name, Pin: leaf.String(), Msg: instName})
			continue
		}
		return fmt.Errorf("eco: connect %s: %w: site pin %s already services %s on net %s",
			newNet.Name, ErrPolicyRefusal, spi, servicedPin, old.Name)
	}
	return nil
}

// pinsBoundTo walks the full design hierarchy's leaf pins and returns
// those currently bound to spi through intra-site routing, the
// fan-in index the shared-site-pin check needs.
func pinsBoundTo(d *design.Design, spi *design.SitePinInst) []*design.Pin {
	var out []*design.Pin
	var walk func(c *design.CellInst)
	walk = func(c *design.CellInst) {
		if c.IsLeaf {
			for _, p := range c.Pins {
				for _, bound := range sitePinsForLeaf(p) {
					if bound == spi {
						out = append(out, p)
					}
				}
			}
			return
		}
		for _, child := range c.Children {
			walk(child)
		}
	}
	walk(d.Top)
	return out
}

func sameSiteAsAnySource(leaf *design.Pin, physNet *design.PhysicalNet) bool {
	if leaf.Cell == nil || leaf.Cell.Site == nil {
		return false
	}
	for spi := range physNet.SitePins {
		if spi.Dir == design.DirOutput && spi.Site == leaf.Cell.Site {
			return true
		}
	}
	return false
}
