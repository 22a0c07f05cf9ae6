package external

import (
	"fmt"

	"fpgaroute/device"
)

// GridDevice is a small deterministic DeviceGraph fixture: a regular
// mesh of single-length wire nodes, one per (tile, "OUT") and
// (tile, "IN") pair, connected to its four grid neighbors. It stands
// in for a real device database in tests and in cmd/fpgaroute's
// fixture dev mode.
type GridDevice struct {
	Width, Height int
	adj           map[device.NodeID][]device.NodeID
}

// NewGridDevice builds a width x height mesh of tiles named "X<c>Y<r>",
// each exposing a single OUT node wired downhill to its four neighbors'
// IN nodes, and an IN node wired uphill from its neighbors' OUT nodes.
func NewGridDevice(width, height int) *GridDevice {
	g := &GridDevice{Width: width, Height: height, adj: map[device.NodeID][]device.NodeID{}}
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			out := g.outNode(x, y)
			for _, d := range [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					continue
				}
				in := g.inNode(nx, ny)
				g.adj[out] = append(g.adj[out], in)
				g.adj[in] = append(g.adj[in], g.outNode(nx, ny))
			}
		}
	}
	return g
}

func tileName(x, y int) string { return fmt.Sprintf("X%dY%d", x, y) }

func (g *GridDevice) outNode(x, y int) device.NodeID {
	return device.NodeID{Tile: tileName(x, y), Wire: "OUT"}
}

func (g *GridDevice) inNode(x, y int) device.NodeID {
	return device.NodeID{Tile: tileName(x, y), Wire: "IN"}
}

// Uphill returns every node with an edge into n.
func (g *GridDevice) Uphill(n device.NodeID) []device.NodeID {
	var out []device.NodeID
	for src, children := range g.adj {
		for _, c := range children {
			if c == n {
				out = append(out, src)
			}
		}
	}
	return out
}

// Downhill returns n's adjacency list.
func (g *GridDevice) Downhill(n device.NodeID) []device.NodeID {
	return g.adj[n]
}

// AllWires returns every node sharing n's tile.
func (g *GridDevice) AllWires(n device.NodeID) []device.NodeID {
	return []device.NodeID{
		{Tile: n.Tile, Wire: "IN"},
		{Tile: n.Tile, Wire: "OUT"},
	}
}

// PIP reports whether b is directly downhill of a.
func (g *GridDevice) PIP(a, b device.NodeID) bool {
	for _, c := range g.adj[a] {
		if c == b {
			return true
		}
	}
	return false
}

// IntentCode always reports a generic single-length wire for this
// fixture; it has no PINBOUNCE/PINFEED nodes to classify.
func (g *GridDevice) IntentCode(device.NodeID) device.IntentCode {
	return device.IntentSingle
}

// Length is always 1: every edge in the mesh is a single-tile hop.
func (g *GridDevice) Length(device.NodeID) int { return 1 }

// TileXY parses the "X<c>Y<r>" tile name back into coordinates.
func (g *GridDevice) TileXY(n device.NodeID) (x, y int) {
	fmt.Sscanf(n.Tile, "X%dY%d", &x, &y)
	return
}

// IsRouteThru is always false: the mesh fixture has no BEL route-throughs.
func (g *GridDevice) IsRouteThru(a, b device.NodeID) bool { return false }
