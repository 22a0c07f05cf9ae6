// Package external holds the collaborators the routing core treats as
// out of scope. It declares the device-database and delay-estimator
// interfaces; the timing-graph and static-net/clock-router interfaces
// are declared by package router (TimingGraph, StaticRouter,
// ClockRouter). It provides small deterministic in-memory fixtures of
// all five, used by tests and by cmd/fpgaroute. None of these fixtures
// reads a real checkpoint/EDIF file or models a real device; a production deployment wires these
// interfaces to its own reader/STA/placer instead.
package external

import "fpgaroute/device"

// DeviceGraph mirrors device.DeviceGraph: the read-only device database
// API. Declared again here,
// at the boundary package, so a caller wiring up an external reader
// only needs to depend on package external, not on package device's
// internals.
type DeviceGraph interface {
	Uphill(n device.NodeID) []device.NodeID
	Downhill(n device.NodeID) []device.NodeID
	AllWires(n device.NodeID) []device.NodeID
	PIP(a, b device.NodeID) bool
	IntentCode(n device.NodeID) device.IntentCode
	Length(n device.NodeID) int
	TileXY(n device.NodeID) (x, y int)
	IsRouteThru(a, b device.NodeID) bool
}
