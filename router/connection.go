// Package router implements the negotiated-congestion rip-up-and-reroute
// engine: the cost model, the A* path search, the iterate/legalize
// loop, and the per-net/per-connection bookkeeping they share.
package router

import "fpgaroute/device"

// BBox is an inclusive INT-tile bounding box.
type BBox struct {
	XMin, XMax, YMin, YMax int
}

// Contains reports whether (x,y) falls within the box.
func (b BBox) Contains(x, y int) bool {
	return x >= b.XMin && x <= b.XMax && y >= b.YMin && y <= b.YMax
}

// Enlarge grows the box by dh horizontally and dv vertically.
func (b BBox) Enlarge(dh, dv int) BBox {
	return BBox{
		XMin: b.XMin - dh, XMax: b.XMax + dh,
		YMin: b.YMin - dv, YMax: b.YMax + dv,
	}
}

func unionBBox(a, b BBox) BBox {
	return BBox{
		XMin: min(a.XMin, b.XMin), XMax: max(a.XMax, b.XMax),
		YMin: min(a.YMin, b.YMin), YMax: max(a.YMax, b.YMax),
	}
}

// MaxCriticality caps a connection's criticality.
const MaxCriticality = 0.99

// Connection is a single (net, sink) routing target.
// Connections are created once per (net, sink) at route-target
// determination and destroyed only on repartitioning.
type Connection struct {
	ID         string
	SourcePin  string
	SinkPin    string
	SourceNode *device.RNode
	SinkNode   *device.RNode

	Net *NetWrapper

	Route       []*device.RNode
	HPWL        float64
	BBox        BBox
	Criticality float64
	Direct      bool // intra-site / no-search-needed connection
	CrossesSLR  bool

	unrouted bool
}

// Unrouted reports whether the connection currently lacks a route.
func (c *Connection) Unrouted() bool {
	return c.unrouted || len(c.Route) == 0
}

// MarkUnrouted flags the connection as lacking a route.
func (c *Connection) MarkUnrouted() {
	c.unrouted = true
	c.Route = nil
}

// SourceKey is the sharing/occupancy identity of this connection: all
// sinks of the same net share one source key.
func (c *Connection) SourceKey() device.SourceKey {
	return device.SourceKey(c.Net.ID)
}

// Congested reports whether any rnode on the connection's current route
// is overused.
func (c *Connection) Congested() bool {
	for _, r := range c.Route {
		if r.Overuse() > 0 {
			return true
		}
	}
	return false
}

// NetWrapper is the per-net routing state: the
// sink connections, geometric centre and bounding box of the net.
type NetWrapper struct {
	ID            device.NetID
	Name          string
	Connections   []*Connection
	XCenter       float64
	YCenter       float64
	HPWL          float64
	SourceChanged bool

	fanout int
}

// Fanout returns the number of sink connections of the net.
func (n *NetWrapper) Fanout() int {
	return len(n.Connections)
}

// RecenterFromNodes recomputes XCenter/YCenter/HPWL from the current
// source/sink node positions of all connections.
func (n *NetWrapper) RecenterFromNodes() {
	if len(n.Connections) == 0 {
		return
	}
	xmin, xmax := n.Connections[0].SourceNode.Node.X, n.Connections[0].SourceNode.Node.X
	ymin, ymax := n.Connections[0].SourceNode.Node.Y, n.Connections[0].SourceNode.Node.Y
	var sumX, sumY float64
	count := 0
	for _, c := range n.Connections {
		for _, node := range []*device.RNode{c.SourceNode, c.SinkNode} {
			if node == nil {
				continue
			}
			x, y := node.Node.X, node.Node.Y
			xmin, xmax = min(xmin, x), max(xmax, x)
			ymin, ymax = min(ymin, y), max(ymax, y)
			sumX += float64(x)
			sumY += float64(y)
			count++
		}
	}
	if count > 0 {
		n.XCenter = sumX / float64(count)
		n.YCenter = sumY / float64(count)
	}
	n.HPWL = float64((xmax - xmin) + (ymax - ymin))
	if n.HPWL <= 0 {
		n.HPWL = 1
	}
}
