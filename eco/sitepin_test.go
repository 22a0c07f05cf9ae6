package eco

import (
	"errors"
	"testing"

	"fpgaroute/design"
)

func TestCreateExitSitePinUsesExistingIntraSiteRoute(t *testing.T) {
	site := newSite("SLICE_X0Y0",
		map[string]design.Direction{"E_I": design.DirInput},
		map[string]string{"D": "E_I"})
	leaf := leafCell(nil, "flop", map[string]design.Direction{"D": design.DirInput}, site, map[string]string{"D": "D"})

	spi, err := CreateExitSitePin(leaf.Pins["D"])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spi != site.SitePins["E_I"] {
		t.Fatalf("expected the directly wired site pin, got %v", spi)
	}
}

func TestCreateExitSitePinUnroutesBlockingSitePIP(t *testing.T) {
	site := newSite("SLICE_X0Y1",
		map[string]design.Direction{"A_I": design.DirInput, "B_I": design.DirInput},
		map[string]string{})
	occupied := &design.PhysicalNet{Name: "busy", SitePins: map[*design.SitePinInst]struct{}{}}
	// The BEL pin's own wire reaches a site pin that is already taken,
	// gated by a reconfigurable site-PIP fed from BEL pin "UP".
	site.SiteWires["D"] = &design.SiteWire{
		Name:        "D",
		BELPins:     map[string]struct{}{"D": {}},
		SitePin:     site.SitePins["A_I"],
		SitePIPFrom: "UP",
	}
	occupied.AddSitePin(site.SitePins["A_I"])
	// Upstream of the site-PIP, an idle site pin is reachable.
	site.SiteWires["UP"] = &design.SiteWire{
		Name:    "UP",
		BELPins: map[string]struct{}{"UP": {}},
		SitePin: site.SitePins["B_I"],
	}
	leaf := leafCell(nil, "lut", map[string]design.Direction{"D": design.DirInput}, site, map[string]string{"D": "D"})

	spi, err := CreateExitSitePin(leaf.Pins["D"])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spi != site.SitePins["B_I"] {
		t.Fatalf("expected the upstream idle site pin, got %v", spi)
	}
	if site.SiteWires["D"].SitePIPFrom != "" {
		t.Fatalf("expected the blocking site-PIP unrouted")
	}
}

func TestCreateExitSitePinFallsBackToFirstIdlePin(t *testing.T) {
	// No intra-site wire carries the BEL pin at all: the helper must
	// synthesize an exit on the alphabetically first idle pin of the
	// right direction.
	site := newSite("SLICE_X0Y2",
		map[string]design.Direction{
			"C_I": design.DirInput,
			"A_I": design.DirInput,
			"EQ":  design.DirOutput,
		},
		map[string]string{})
	leaf := leafCell(nil, "lut", map[string]design.Direction{"I0": design.DirInput}, site, map[string]string{"I0": "I0"})

	spi, err := CreateExitSitePin(leaf.Pins["I0"])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spi != site.SitePins["A_I"] {
		t.Fatalf("expected deterministic first idle input pin A_I, got %v", spi)
	}
}

func TestCreateExitSitePinRequiresPlacement(t *testing.T) {
	leaf := leafCell(nil, "unplaced", map[string]design.Direction{"D": design.DirInput}, nil, map[string]string{"D": "D"})
	_, err := CreateExitSitePin(leaf.Pins["D"])
	if !errors.Is(err, ErrMissingPhysicalCell) {
		t.Fatalf("expected ErrMissingPhysicalCell, got %v", err)
	}
}

func TestRouteOutSitePinSourceNoIdlePin(t *testing.T) {
	site := newSite("SLICE_X0Y3",
		map[string]design.Direction{"EQ": design.DirOutput},
		map[string]string{})
	taken := &design.PhysicalNet{Name: "taken", SitePins: map[*design.SitePinInst]struct{}{}}
	taken.AddSitePin(site.SitePins["EQ"])
	leaf := leafCell(nil, "flop", map[string]design.Direction{"Q": design.DirOutput}, site, map[string]string{"Q": "Q"})

	_, err := RouteOutSitePinSource(leaf.Pins["Q"])
	if !errors.Is(err, ErrStructuralInconsistency) {
		t.Fatalf("expected ErrStructuralInconsistency when no output pin is idle, got %v", err)
	}
}

func TestWatchdogTrips(t *testing.T) {
	tick := watchdog(3)
	for i := 0; i < 3; i++ {
		if err := tick(); err != nil {
			t.Fatalf("step %d: unexpected trip: %v", i, err)
		}
	}
	err := tick()
	if !errors.Is(err, ErrStructuralInconsistency) {
		t.Fatalf("expected the watchdog to trip with ErrStructuralInconsistency, got %v", err)
	}
}
