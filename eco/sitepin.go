package eco

import (
	"fmt"
	"sort"

	"fpgaroute/config"
	"fpgaroute/design"
)

// watchdog bounds an intra-site wire walk to cfg.WatchdogSteps, the
// safety net for any device-walk that could otherwise loop on a
// malformed site.
func watchdog(steps int) (check func() error) {
	n := 0
	return func() error {
		n++
		if n > steps {
			return fmt.Errorf("eco: %w: intra-site walk exceeded %d steps", ErrStructuralInconsistency, steps)
		}
		return nil
	}
}

// CreateExitSitePin follows intra-site wires from leaf's BEL pin to a
// candidate site pin, synthesizing one when the current
// intra-site routing does not already reach the site boundary.
func CreateExitSitePin(leaf *design.Pin) (*design.SitePinInst, error) {
	if leaf.Cell == nil || leaf.Cell.Site == nil {
		return nil, fmt.Errorf("eco: create_exit_site_pin %s: %w", leaf, ErrMissingPhysicalCell)
	}
	site := leaf.Cell.Site
	tick := watchdog(config.Get().WatchdogSteps)

	cur := leaf.BELPin
	for {
		if err := tick(); err != nil {
			return nil, err
		}
		w := findWireByBELPin(site, cur)
		if w == nil {
			break
		}
		if w.SitePin != nil && w.SitePin.Net == nil {
			return w.SitePin, nil
		}
		if w.SitePIPFrom != "" {
			// Unroute the reconfigurable site-PIP upstream, preserving
			// whatever net already occupies its input sitewire, and
			// retry from the upstream BEL pin.
			cur = w.SitePIPFrom
			w.SitePIPFrom = ""
			continue
		}
		break
	}

	// No reachable site pin: synthesize one on the first idle site pin
	// of this site, matching leaf's direction.
	return firstIdleSitePin(site, leaf.Dir)
}

// RouteOutSitePinSource chooses the first free corresponding site pin
// for an output leaf, handling the LUT5/LUT6 OUTMUX special case.
func RouteOutSitePinSource(leaf *design.Pin) (*design.SitePinInst, error) {
	if leaf.Cell == nil || leaf.Cell.Site == nil {
		return nil, fmt.Errorf("eco: route_out_site_pin_source %s: %w", leaf, ErrMissingPhysicalCell)
	}
	site := leaf.Cell.Site

	if isO5OutmuxBlocked(site, leaf.BELPin) {
		if err := resolveO5OutmuxConflict(site); err != nil {
			return nil, err
		}
	}

	return firstIdleSitePin(site, design.DirOutput)
}

// isO5OutmuxBlocked reports the LUT5/LUT6 sharing hazard: an O5
// output whose only site pin is the MUX output
// currently occupied by the O6 path.
func isO5OutmuxBlocked(site *design.SiteInst, belPin string) bool {
	if belPin != "O5" {
		return false
	}
	mux, ok := site.SiteWires["MUX"]
	return ok && mux.SitePin != nil && mux.SitePin.Net != nil
}

// resolveO5OutmuxConflict unroutes the OUTMUX site-PIP, moves the O6
// consumer from the MUX-shared pin to the dedicated "_O" pin, and
// reconfigures OUTMUX to select D5 so O5 can route out via MUX.
func resolveO5OutmuxConflict(site *design.SiteInst) error {
	mux, ok := site.SiteWires["MUX"]
	if !ok || mux.SitePin == nil {
		return fmt.Errorf("eco: %w: site %s has no occupied MUX wire to resolve", ErrStructuralInconsistency, site.Name)
	}
	oWire, ok := site.SiteWires["_O"]
	if !ok || oWire.SitePin == nil {
		return fmt.Errorf("eco: %w: site %s has no dedicated _O site pin for O6/O5 sharing", ErrStructuralInconsistency, site.Name)
	}
	// Move O6's net onto its dedicated _O exit, freeing the MUX-shared
	// site pin for O5, then reconfigure OUTMUX to select D5.
	if o6 := mux.SitePin.Net; o6 != nil {
		o6.RemoveSitePin(mux.SitePin)
		o6.AddSitePin(oWire.SitePin)
	}
	oWire.Net = mux.Net
	mux.Net = nil
	mux.SitePIPFrom = "D5"
	return nil
}

// firstIdleSitePin returns the first site pin of dir that is bound to no
// physical net yet, in deterministic name order.
func firstIdleSitePin(site *design.SiteInst, dir design.Direction) (*design.SitePinInst, error) {
	var names []string
	for name, spi := range site.SitePins {
		if spi.Dir == dir && spi.Net == nil {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("eco: %w: no idle %s site pin on site %s", ErrStructuralInconsistency, dir, site.Name)
	}
	sort.Strings(names)
	return site.SitePins[names[0]], nil
}

// findWireByBELPin looks up the sitewire that lists belPin among its
// BEL pins.
func findWireByBELPin(site *design.SiteInst, belPin string) *design.SiteWire {
	for _, w := range site.SiteWires {
		if _, ok := w.BELPins[belPin]; ok {
			return w
		}
	}
	return nil
}
