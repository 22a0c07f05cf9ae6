package router

import (
	"testing"

	"fpgaroute/device"
)

// TestLegalizePrunesExtraParent builds a net with one rnode recorded as
// driven by two different upstream rnodes (the state RouterLoop leaves
// behind after two connections of the same net independently claimed a
// shared node from different directions) and checks that Legalize
// reduces it to a single parent reachable from the net's source.
func TestLegalizePrunesExtraParent(t *testing.T) {
	dev, ids := mkChain(4)
	preserve := device.NewPreservation()
	graph := device.NewRoutingGraph(dev, preserve, nil, nil)

	a := graph.Intern(ids[0], device.TypePinfeedO)
	b := graph.Intern(ids[1], device.TypeWire)
	c := graph.Intern(ids[2], device.TypeWire)
	d := graph.Intern(ids[3], device.TypePinfeedI)

	// A rogue node feeding into c from outside the chain, simulating a
	// second, conflicting claim on c.
	rogueID := device.NodeID{Tile: "ZZ", Wire: "W"}
	dev.xy[rogueID] = [2]int{-1, 0}
	rogue := graph.Intern(rogueID, device.TypePinfeedO)

	b.AddParent(a)
	c.AddParent(b)
	c.AddParent(rogue)
	d.AddParent(c)

	net := &NetWrapper{ID: "netA", Name: "netA"}
	conn := &Connection{ID: "netA/d", Net: net, SourceNode: a, SinkNode: d, Route: []*device.RNode{a, b, c, d}}
	net.Connections = []*Connection{conn}

	legal := NewRouteLegalizer()
	legal.Legalize(net)

	if c.ParentCount() != 1 {
		t.Fatalf("expected exactly one surviving parent on c, got %d", c.ParentCount())
	}
	if c.Parents()[0] != b {
		t.Fatalf("expected b to survive as c's parent since it is reachable from the source")
	}
	if len(conn.Route) != 4 || conn.Route[0] != a || conn.Route[3] != d {
		t.Fatalf("expected the route to be rebuilt as a-b-c-d, got %v", conn.Route)
	}
}

func TestLegalizeNoOpWithoutConflict(t *testing.T) {
	dev, ids := mkChain(3)
	preserve := device.NewPreservation()
	graph := device.NewRoutingGraph(dev, preserve, nil, nil)

	a := graph.Intern(ids[0], device.TypePinfeedO)
	b := graph.Intern(ids[1], device.TypeWire)
	c := graph.Intern(ids[2], device.TypePinfeedI)
	b.AddParent(a)
	c.AddParent(b)

	net := &NetWrapper{ID: "netB", Name: "netB"}
	conn := &Connection{ID: "netB/c", Net: net, SourceNode: a, SinkNode: c, Route: []*device.RNode{a, b, c}}
	net.Connections = []*Connection{conn}

	legal := NewRouteLegalizer()
	legal.Legalize(net)

	if len(conn.Route) != 3 {
		t.Fatalf("expected route unchanged when there is no conflict, got %v", conn.Route)
	}
}
