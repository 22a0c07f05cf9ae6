package device

import "testing"

// fakeGraph is a tiny, deterministic DeviceGraph used only to exercise
// RoutingGraph's caching and preservation filtering.
type fakeGraph struct {
	down map[NodeID][]NodeID
	xy   map[NodeID][2]int
}

func (f *fakeGraph) Uphill(n NodeID) []NodeID   { return nil }
func (f *fakeGraph) Downhill(n NodeID) []NodeID { return f.down[n] }
func (f *fakeGraph) AllWires(n NodeID) []NodeID { return nil }
func (f *fakeGraph) PIP(a, b NodeID) bool       { return true }
func (f *fakeGraph) IntentCode(n NodeID) IntentCode {
	return IntentSingle
}
func (f *fakeGraph) Length(n NodeID) int { return 1 }
func (f *fakeGraph) TileXY(n NodeID) (int, int) {
	xy := f.xy[n]
	return xy[0], xy[1]
}
func (f *fakeGraph) IsRouteThru(a, b NodeID) bool { return false }

func mkGraph() *fakeGraph {
	a := NodeID{Tile: "T0", Wire: "A"}
	b := NodeID{Tile: "T1", Wire: "B"}
	c := NodeID{Tile: "T2", Wire: "C"}
	return &fakeGraph{
		down: map[NodeID][]NodeID{
			a: {b},
			b: {c},
		},
		xy: map[NodeID][2]int{
			a: {0, 0}, b: {1, 0}, c: {2, 0},
		},
	}
}

func TestChildrenMemoized(t *testing.T) {
	dev := mkGraph()
	preserve := NewPreservation()
	g := NewRoutingGraph(dev, preserve, nil, nil)
	a := g.Intern(NodeID{Tile: "T0", Wire: "A"}, TypeWire)

	first := g.Children(a)
	dev.down[a.Node.ID] = nil // mutate underlying device; cache should not see it
	second := g.Children(a)

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected memoized single child, got %d then %d", len(first), len(second))
	}
	if first[0] != second[0] {
		t.Fatalf("expected same interned rnode across calls")
	}
}

func TestPreservedNodeHiddenUnlessOwnNet(t *testing.T) {
	dev := mkGraph()
	preserve := NewPreservation()
	g := NewRoutingGraph(dev, preserve, nil, nil)
	a := g.Intern(NodeID{Tile: "T0", Wire: "A"}, TypeWire)
	b := NodeID{Tile: "T1", Wire: "B"}

	preserve.Reserve(NetID("netX"), b)
	if kids := g.Children(a); len(kids) != 0 {
		t.Fatalf("expected preserved node to be hidden, got %d children", len(kids))
	}

	g2 := NewRoutingGraph(dev, preserve, nil, nil)
	g2.SetCurrentNet("netX")
	a2 := g2.Intern(NodeID{Tile: "T0", Wire: "A"}, TypeWire)
	if kids := g2.Children(a2); len(kids) != 1 {
		t.Fatalf("expected preserved node visible to owning net, got %d children", len(kids))
	}
}

func TestInternIsIdempotent(t *testing.T) {
	dev := mkGraph()
	preserve := NewPreservation()
	g := NewRoutingGraph(dev, preserve, nil, nil)
	id := NodeID{Tile: "T0", Wire: "A"}
	r1 := g.Intern(id, TypeWire)
	r2 := g.Intern(id, TypeWire)
	if r1 != r2 {
		t.Fatalf("expected a single interned rnode per NodeID")
	}
	if r1.ID != 0 {
		t.Fatalf("expected first rnode id to be 0, got %d", r1.ID)
	}
}
