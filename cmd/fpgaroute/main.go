package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"fpgaroute/config"
	"fpgaroute/device"
	"fpgaroute/external"
	"fpgaroute/router"
)

func main() {
	var (
		cfgFile string
		width   int
		height  int
		numNets int
		svgFile string
		iters   int
	)
	flag.StringVar(&cfgFile, "c", "", "configuration file (JSON)")
	flag.IntVar(&width, "w", 32, "fixture device width (tiles)")
	flag.IntVar(&height, "l", 32, "fixture device height (tiles)")
	flag.IntVar(&numNets, "n", 200, "number of fixture nets")
	flag.StringVar(&svgFile, "svg", "", "write congestion heatmap SVG to file")
	flag.IntVar(&iters, "i", 0, "override max routing iterations")
	flag.Parse()

	if cfgFile != "" {
		if err := config.ReadFile(cfgFile); err != nil {
			log.Fatal(err)
		}
	}
	if iters > 0 {
		config.Get().MaxIterations = iters
	}

	log.Println("Building fixture device...")
	dev := external.NewGridDevice(width, height)
	delay := &external.IntentDelay{Dev: dev}
	if !config.Get().UseUTurnNodes {
		// Boundary U-turn rescue disabled: corner OUT nodes, which only
		// ever serve a turn-around through the device edge, keep their
		// mask-sentinel delay and stay out of the search.
		delay.Mask = cornerMask(width, height)
	}
	preserve := device.NewPreservation()
	graph := device.NewRoutingGraph(dev, preserve, delay, nil)

	log.Printf("Generating %d nets...", numNets)
	nets := fixtureNets(graph, width, height, numNets)

	sched := router.NewScheduler(dev, graph, preserve)
	sched.Nets = nets
	if config.Get().TimingDriven {
		sched.Timing = external.NewSlackTiming()
	}

	done := make(chan router.Result, 1)
	go func() { done <- sched.Run() }()

	sigCh := make(chan os.Signal, 5)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var res router.Result
	select {
	case res = <-done:
	case sig := <-sigCh:
		log.Printf("Interrupted (%s) - routing abandoned.", sig)
		os.Exit(1)
	}

	rep := res.Report
	log.Printf("Routing finished: %s", rep.Status)
	log.Printf("  * Iterations: %d", rep.Iterations)
	log.Printf("  * Overused rnodes: %d", rep.OverusedNodes)
	log.Printf("  * Worst delay: %d ps", rep.WorstDelayPs)
	log.Printf("  * RNodes created: %d", graph.NodeCount())
	totalPIPs := 0
	for _, pips := range res.PIPs {
		totalPIPs += len(pips)
	}
	log.Printf("  * PIPs emitted: %d across %d nets", totalPIPs, len(res.PIPs))

	if svgFile != "" {
		f, err := os.Create(svgFile)
		if err != nil {
			log.Fatal(err)
		}
		router.RenderCongestion(f, nets, 8)
		f.Close()
		log.Printf("Congestion heatmap written to %s", svgFile)
	}

	if rep.Status != router.StatusConverged {
		os.Exit(2)
	}
}

// cornerMask flags the four corner tiles' OUT nodes: in the mesh
// fixture a route can only pass through a corner by turning around at
// the device edge, which is exactly the hazard the cross-RCLK mask
// exists for.
func cornerMask(width, height int) map[device.NodeID]struct{} {
	mask := make(map[device.NodeID]struct{})
	for _, xy := range [][2]int{{0, 0}, {width - 1, 0}, {0, height - 1}, {width - 1, height - 1}} {
		mask[device.NodeID{Tile: fmt.Sprintf("X%dY%d", xy[0], xy[1]), Wire: "OUT"}] = struct{}{}
	}
	return mask
}

// fixtureNets spreads n two-pin nets over the mesh with a deterministic
// stride, each sourcing at one tile's OUT node and sinking at another
// tile's IN node a few tiles away.
func fixtureNets(graph *device.RoutingGraph, width, height, n int) []*router.NetWrapper {
	var nets []*router.NetWrapper
	for i := 0; i < n; i++ {
		sx, sy := (i*7)%width, (i*13)%height
		tx, ty := (sx+3+i%5)%width, (sy+2+i%3)%height
		if sx == tx && sy == ty {
			tx = (tx + 1) % width
		}
		src := graph.Intern(device.NodeID{Tile: fmt.Sprintf("X%dY%d", sx, sy), Wire: "OUT"}, device.TypePinfeedO)
		sink := graph.Intern(device.NodeID{Tile: fmt.Sprintf("X%dY%d", tx, ty), Wire: "IN"}, device.TypePinfeedI)

		name := fmt.Sprintf("net_%d", i)
		net := &router.NetWrapper{ID: device.NetID(name), Name: name}
		conn := &router.Connection{
			ID:         name + "/sink",
			Net:        net,
			SourceNode: src,
			SinkNode:   sink,
		}
		net.Connections = []*router.Connection{conn}
		nets = append(nets, net)
	}
	return nets
}
