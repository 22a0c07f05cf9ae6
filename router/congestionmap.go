package router

import (
	"io"

	"github.com/ajstarks/svgo"

	"fpgaroute/device"
)

// congestionCell is one rendered tile: its occupancy and whether any
// rnode at that tile is currently overused.
type congestionCell struct {
	x, y     int
	occAvg   float64
	overused bool
}

// RenderCongestion draws a tile-grid heatmap of current rnode occupancy
// to w as SVG, one cell per occupied tile, colored from green
// (uncongested) to red (overused). This is debug tooling only,
// intended for a developer inspecting
// why an iteration failed to converge, not an end-user viewer.
func RenderCongestion(w io.Writer, nets []*NetWrapper, cellPx int) {
	cells := accumulate(nets)
	if len(cells) == 0 {
		return
	}

	maxX, maxY := 0, 0
	for _, c := range cells {
		if c.x > maxX {
			maxX = c.x
		}
		if c.y > maxY {
			maxY = c.y
		}
	}

	canvas := svg.New(w)
	width, height := (maxX+1)*cellPx, (maxY+1)*cellPx
	canvas.Start(width, height)
	canvas.Title("routing congestion")
	canvas.Rect(0, 0, width, height, "fill:white")

	for _, c := range cells {
		px, py := c.x*cellPx, (maxY-c.y)*cellPx
		color := heatColor(c.occAvg, c.overused)
		canvas.Rect(px, py, cellPx, cellPx, "fill:"+color+";stroke:#888;stroke-width:0.5")
	}

	canvas.End()
}

func accumulate(nets []*NetWrapper) map[[2]int]*congestionCell {
	cells := make(map[[2]int]*congestionCell)
	seen := make(map[*device.RNode]struct{})

	add := func(r *device.RNode) {
		if _, ok := seen[r]; ok {
			return
		}
		seen[r] = struct{}{}
		key := [2]int{r.Node.X, r.Node.Y}
		cell, ok := cells[key]
		if !ok {
			cell = &congestionCell{x: r.Node.X, y: r.Node.Y}
			cells[key] = cell
		}
		occ := float64(r.Occupancy())
		if occ > cell.occAvg {
			cell.occAvg = occ
		}
		if r.Overuse() > 0 {
			cell.overused = true
		}
	}

	for _, n := range nets {
		for _, c := range n.Connections {
			for _, r := range c.Route {
				add(r)
			}
		}
	}
	return cells
}

// heatColor maps occupancy to a green-yellow-red scale; any overused
// cell renders solid red regardless of its raw occupancy count.
func heatColor(occ float64, overused bool) string {
	switch {
	case overused:
		return "#d62728"
	case occ >= 1:
		return "#ffbf00"
	default:
		return "#2ca02c"
	}
}
