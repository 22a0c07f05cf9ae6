package eco

import "fpgaroute/design"

// newSite creates a SiteInst with the given site pins (by name/dir) and
// one sitewire per BEL pin wired straight out to the matching site pin,
// a minimal but faithful stand-in for the intra-site routing the real
// device database would report.
func newSite(name string, pins map[string]design.Direction, belToSitePin map[string]string) *design.SiteInst {
	s := &design.SiteInst{Name: name, SitePins: map[string]*design.SitePinInst{}, SiteWires: map[string]*design.SiteWire{}}
	for pn, dir := range pins {
		s.SitePins[pn] = &design.SitePinInst{Name: pn, Dir: dir, Site: s}
	}
	for bel, sp := range belToSitePin {
		spi := s.SitePins[sp]
		s.SiteWires[bel] = &design.SiteWire{Name: bel, BELPins: map[string]struct{}{bel: {}}, SitePin: spi}
	}
	return s
}

func leafCell(parent *design.CellInst, name string, pins map[string]design.Direction, site *design.SiteInst, belOf map[string]string) *design.CellInst {
	c := &design.CellInst{Name: name, Parent: parent, Children: map[string]*design.CellInst{}, Pins: map[string]*design.Pin{}, IsLeaf: true, Site: site}
	for pn, dir := range pins {
		c.Pins[pn] = &design.Pin{Name: pn, Dir: dir, Cell: c, BELPin: belOf[pn]}
	}
	if parent != nil {
		parent.Children[name] = c
	}
	return c
}

// newFixtureDesign builds a small design exercising the ECO
// scenario shapes: an internally-driven net (no site pins), a 2-pin
// input net with one site pin on the far end, a multi-sink output net
// with several site pins, and a GND-driven input.
func newFixtureDesign() (*design.Design, map[string]*design.CellInst) {
	d := design.NewDesign("top")
	cells := map[string]*design.CellInst{}

	// Scenario 1: purely internal net (no driver, and its only sink is
	// unplaced, so disconnect leaves deferredRemovals empty).
	muxcySite := newSite("SLICE_X10Y200", map[string]design.Direction{}, map[string]string{})
	muxcy := leafCell(d.Top, "parity_muxcy_CARRY4_CARRY8", map[string]design.Direction{"S1": design.DirInput}, nil, nil)
	_ = muxcySite
	cells["muxcy"] = muxcy
	internalNet := &design.Net{Name: "internal_s1", Kind: design.NetSignal, Sinks: map[*design.Pin]struct{}{}}
	internalNet.AddSink(muxcy.Pins["S1"])
	muxcy.Pins["S1"].Net = internalNet
	d.Nets[internalNet.Name] = internalNet

	// Scenario 2: externally-routed 2-pin net: flop.D fed by a site pin
	// IN SLICE_X13Y237.E_I.
	flopSite := newSite("SLICE_X13Y237",
		map[string]design.Direction{"E_I": design.DirInput},
		map[string]string{"D": "E_I"})
	flop := leafCell(d.Top, "t_state1_flop", map[string]design.Direction{"D": design.DirInput, "Q": design.DirOutput}, flopSite, map[string]string{"D": "D"})
	cells["flop"] = flop
	net2 := &design.Net{Name: "net2", Kind: design.NetSignal, Sinks: map[*design.Pin]struct{}{}}
	net2.AddSink(flop.Pins["D"])
	flop.Pins["D"].Net = net2
	pn2 := &design.PhysicalNet{Name: "net2", SitePins: map[*design.SitePinInst]struct{}{}}
	pn2.AddSitePin(flopSite.SitePins["E_I"])
	d.Nets[net2.Name] = net2
	net2.PhysNet = pn2
	d.PhysNets[pn2.Name] = pn2

	// Scenario 3: externally-routed multi-pin output: alu_mux_sel0_flop.Q
	// drives SLICE_X16Y239.EQ, which fans out to two sink site pins.
	srcSite := newSite("SLICE_X16Y239", map[string]design.Direction{"EQ": design.DirOutput}, map[string]string{"Q": "EQ"})
	srcFlop := leafCell(d.Top, "alu_mux_sel0_flop", map[string]design.Direction{"Q": design.DirOutput}, srcSite, map[string]string{"Q": "Q"})
	cells["srcFlop"] = srcFlop

	sink1Site := newSite("SLICE_X15Y235", map[string]design.Direction{"G6": design.DirInput}, map[string]string{"I0": "G6"})
	sink1 := leafCell(d.Top, "lut_sink1", map[string]design.Direction{"I0": design.DirInput}, sink1Site, map[string]string{"I0": "I0"})
	cells["sink1"] = sink1

	sink2Site := newSite("SLICE_X16Y239", map[string]design.Direction{"B6": design.DirInput}, map[string]string{"I1": "B6"})
	sink2 := leafCell(d.Top, "lut_sink2", map[string]design.Direction{"I1": design.DirInput}, sink2Site, map[string]string{"I1": "I1"})
	cells["sink2"] = sink2

	net3 := &design.Net{Name: "net3", Kind: design.NetSignal, Sinks: map[*design.Pin]struct{}{}}
	net3.Source = srcFlop.Pins["Q"]
	srcFlop.Pins["Q"].Net = net3
	net3.AddSink(sink1.Pins["I0"])
	sink1.Pins["I0"].Net = net3
	net3.AddSink(sink2.Pins["I1"])
	sink2.Pins["I1"].Net = net3
	pn3 := &design.PhysicalNet{Name: "net3", SitePins: map[*design.SitePinInst]struct{}{}}
	pn3.AddSitePin(srcSite.SitePins["EQ"])
	pn3.AddSitePin(sink1Site.SitePins["G6"])
	pn3.AddSitePin(sink2Site.SitePins["B6"])
	d.Nets[net3.Name] = net3
	net3.PhysNet = pn3
	d.PhysNets[pn3.Name] = pn3

	// Scenario 4: GND-driven input.
	gndSinkSite := newSite("SLICE_X13Y237", map[string]design.Direction{"G1": design.DirInput}, map[string]string{"I0": "G1"})
	gndSink := leafCell(d.Top, "pc_vector_mux_lut", map[string]design.Direction{"I0": design.DirInput}, gndSinkSite, map[string]string{"I0": "I0"})
	cells["gndSink"] = gndSink
	gndNet := &design.Net{Name: "GND", Kind: design.NetGND, Sinks: map[*design.Pin]struct{}{}}
	gndNet.AddSink(gndSink.Pins["I0"])
	gndSink.Pins["I0"].Net = gndNet
	gndNet.PhysNet = d.GND
	d.Nets["GND"] = gndNet
	d.GND.AddSitePin(gndSinkSite.SitePins["G1"])

	return d, cells
}
