package router

import (
	"testing"

	"fpgaroute/device"
)

// chainDevice is a straight-line device graph A->B->C->D with unit tile
// spacing, enough to exercise PathSearch end to end without a real
// device backend.
type chainDevice struct {
	down map[device.NodeID][]device.NodeID
	xy   map[device.NodeID][2]int
}

func (c *chainDevice) Uphill(n device.NodeID) []device.NodeID   { return nil }
func (c *chainDevice) Downhill(n device.NodeID) []device.NodeID { return c.down[n] }
func (c *chainDevice) AllWires(n device.NodeID) []device.NodeID { return nil }
func (c *chainDevice) PIP(a, b device.NodeID) bool              { return true }
func (c *chainDevice) IntentCode(n device.NodeID) device.IntentCode {
	return device.IntentSingle
}
func (c *chainDevice) Length(n device.NodeID) int { return 1 }
func (c *chainDevice) TileXY(n device.NodeID) (int, int) {
	xy := c.xy[n]
	return xy[0], xy[1]
}
func (c *chainDevice) IsRouteThru(a, b device.NodeID) bool { return false }

func mkChain(n int) (*chainDevice, []device.NodeID) {
	ids := make([]device.NodeID, n)
	for i := 0; i < n; i++ {
		ids[i] = device.NodeID{Tile: string(rune('A' + i)), Wire: "W"}
	}
	dev := &chainDevice{down: map[device.NodeID][]device.NodeID{}, xy: map[device.NodeID][2]int{}}
	for i := 0; i < n; i++ {
		dev.xy[ids[i]] = [2]int{i, 0}
		if i+1 < n {
			dev.down[ids[i]] = []device.NodeID{ids[i+1]}
		}
	}
	return dev, ids
}

func TestPathSearchFindsChain(t *testing.T) {
	dev, ids := mkChain(4)
	preserve := device.NewPreservation()
	graph := device.NewRoutingGraph(dev, preserve, nil, nil)
	cost := NewCostModel()
	search := NewPathSearch(graph, cost)

	src := graph.Intern(ids[0], device.TypePinfeedO)
	sink := graph.Intern(ids[3], device.TypePinfeedI)

	net := &NetWrapper{ID: "netA", Name: "netA"}
	conn := &Connection{ID: "netA/sink", Net: net, SourceNode: src, SinkNode: sink, BBox: BBox{0, 10, -10, 10}}
	net.Connections = []*Connection{conn}

	if !search.Route(conn) {
		t.Fatalf("expected connection to route")
	}
	if len(conn.Route) != 4 {
		t.Fatalf("expected a 4-hop route, got %d: %v", len(conn.Route), conn.Route)
	}
	if conn.Route[0] != src || conn.Route[len(conn.Route)-1] != sink {
		t.Fatalf("expected route to start at source and end at sink")
	}
}

func TestPathSearchUnroutableWithoutPath(t *testing.T) {
	dev, ids := mkChain(2)
	preserve := device.NewPreservation()
	graph := device.NewRoutingGraph(dev, preserve, nil, nil)
	cost := NewCostModel()
	search := NewPathSearch(graph, cost)

	src := graph.Intern(ids[0], device.TypePinfeedO)
	// A sink with no incoming edge from src: make a disconnected node.
	orphan := device.NodeID{Tile: "ZZ", Wire: "W"}
	dev.xy[orphan] = [2]int{99, 99}
	sink := graph.Intern(orphan, device.TypePinfeedI)

	net := &NetWrapper{ID: "netB", Name: "netB"}
	conn := &Connection{ID: "netB/sink", Net: net, SourceNode: src, SinkNode: sink, BBox: BBox{0, 100, -100, 100}}
	net.Connections = []*Connection{conn}

	if search.Route(conn) {
		t.Fatalf("expected connection with no path to fail to route")
	}
	if !conn.Unrouted() {
		t.Fatalf("expected connection to be marked unrouted")
	}
}

func TestPathSearchResetsStateBetweenSearches(t *testing.T) {
	dev, ids := mkChain(3)
	preserve := device.NewPreservation()
	graph := device.NewRoutingGraph(dev, preserve, nil, nil)
	cost := NewCostModel()
	search := NewPathSearch(graph, cost)

	src := graph.Intern(ids[0], device.TypePinfeedO)
	sink := graph.Intern(ids[2], device.TypePinfeedI)

	net := &NetWrapper{ID: "netC", Name: "netC"}
	connA := &Connection{ID: "netC/a", Net: net, SourceNode: src, SinkNode: sink, BBox: BBox{0, 10, -10, 10}}
	net.Connections = []*Connection{connA}

	if !search.Route(connA) {
		t.Fatalf("first search expected to succeed")
	}
	if sink.Visited || sink.Prev != nil {
		t.Fatalf("expected per-search state cleared after Route returns")
	}

	connB := &Connection{ID: "netC/b", Net: net, SourceNode: src, SinkNode: sink, BBox: BBox{0, 10, -10, 10}}
	if !search.Route(connB) {
		t.Fatalf("second search over the same nodes expected to succeed")
	}
}
