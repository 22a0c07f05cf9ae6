package external

import (
	"math"

	"fpgaroute/router"
)

// SlackTiming is a deterministic in-memory timing-graph fixture
// satisfying router.TimingGraph. It treats every
// connection as its own timing path: arrival time is the routed delay,
// the required time is the worst routed delay across the design, and
// criticality is the normalised delay raised to the configured
// exponent. A production deployment wires a real STA here instead.
type SlackTiming struct {
	delays map[string]int // connection ID -> routed delay, ps
}

// NewSlackTiming creates an empty timing fixture.
func NewSlackTiming() *SlackTiming {
	return &SlackTiming{delays: make(map[string]int)}
}

// SetRouteDelay records the routed delay of one connection.
func (t *SlackTiming) SetRouteDelay(connID string, ps int) {
	t.delays[connID] = ps
}

// ArrivalRequireTimes returns the worst routed delay and the
// connection carrying it.
func (t *SlackTiming) ArrivalRequireTimes() (int, string) {
	worst, critical := 0, ""
	for id, d := range t.delays {
		if d > worst || (d == worst && id < critical) {
			worst, critical = d, id
		}
	}
	return worst, critical
}

// Criticality updates each connection's criticality in place:
// (delay/max_delay)^exponent, capped at max.
func (t *SlackTiming) Criticality(conns []*router.Connection, max, exponent float64, maxDelayPs int) {
	if maxDelayPs <= 0 {
		for _, c := range conns {
			c.Criticality = 0
		}
		return
	}
	for _, c := range conns {
		crit := math.Pow(float64(t.delays[c.ID])/float64(maxDelayPs), exponent)
		if crit > max {
			crit = max
		}
		c.Criticality = crit
	}
}

// PatchUpDelay re-derives the recorded delays from each connection's
// current route, called after route legalization rewrites node lists
func (t *SlackTiming) PatchUpDelay(conns []*router.Connection) {
	for _, c := range conns {
		d := 0
		for _, r := range c.Route {
			d += int(r.Delay)
		}
		t.delays[c.ID] = d
	}
}
