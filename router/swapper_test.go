package router

import (
	"testing"

	"fpgaroute/config"
	"fpgaroute/device"
)

func TestSwapOutputPinRescuesUnroutableNet(t *testing.T) {
	// The primary source is a dead end; the alternative output reaches
	// the sink. Iteration 1's unroutable handler must swap and a later
	// iteration must then route through the alternative.
	dev, ids := mkChain(3)
	deadEnd := device.NodeID{Tile: "DE", Wire: "W"}
	dev.xy[deadEnd] = [2]int{0, 5}

	preserve := device.NewPreservation()
	graph := device.NewRoutingGraph(dev, preserve, nil, nil)

	badSrc := graph.Intern(deadEnd, device.TypePinfeedO)
	goodSrc := graph.Intern(ids[0], device.TypePinfeedO)
	sink := graph.Intern(ids[2], device.TypePinfeedI)

	net := &NetWrapper{ID: "swp", Name: "swp"}
	conn := &Connection{ID: "swp/sink", Net: net, SourceNode: badSrc, SinkNode: sink, BBox: BBox{-10, 10, -10, 10}}
	net.Connections = []*Connection{conn}
	net.RecenterFromNodes()

	save := *config.Get()
	defer func() { *config.Get() = save }()
	config.Get().MaxIterations = 4
	config.Get().TimingDriven = false

	swap := &AltSourceSwapper{Alternatives: map[device.NetID]*device.RNode{"swp": goodSrc}}
	rl := NewRouterLoop(graph, preserve, []*NetWrapper{net}, nil, swap)
	report := rl.Route()

	if report.Status != StatusConverged {
		t.Fatalf("expected the swap to rescue the net, got %v", report.Status)
	}
	if conn.SourceNode != goodSrc {
		t.Fatalf("expected the connection re-homed onto the alternative source")
	}
	if !net.SourceChanged {
		t.Fatalf("expected the net flagged as source-changed")
	}
}

func TestSwapOutputPinNoAlternative(t *testing.T) {
	swap := &AltSourceSwapper{Alternatives: map[device.NetID]*device.RNode{}}
	net := &NetWrapper{ID: "none", Name: "none"}
	if swap.SwapOutputPin(net) {
		t.Fatalf("expected no alternative to be reported for an unknown net")
	}
}

func TestSwapOutputPinConsumesAlternative(t *testing.T) {
	dev, ids := mkChain(2)
	preserve := device.NewPreservation()
	graph := device.NewRoutingGraph(dev, preserve, nil, nil)
	alt := graph.Intern(ids[0], device.TypePinfeedO)

	swap := &AltSourceSwapper{Alternatives: map[device.NetID]*device.RNode{"once": alt}}
	net := &NetWrapper{ID: "once", Name: "once"}
	sink := graph.Intern(ids[1], device.TypePinfeedI)
	net.Connections = []*Connection{{ID: "once/sink", Net: net, SourceNode: alt, SinkNode: sink}}

	if !swap.SwapOutputPin(net) {
		t.Fatalf("expected the first swap to succeed")
	}
	if swap.SwapOutputPin(net) {
		t.Fatalf("expected the alternative consumed after one use")
	}
}
