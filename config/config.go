// Package config holds the router/ECO engine's tunables.
//
// A flat, JSON-tagged Config struct with a
// package-level default instance: one struct, no layered overrides, no
// environment-variable binding magic.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config collects every tunable recognized by the router and ECO core
type Config struct {
	// Router loop
	MaxIterations         int     `json:"maxIterations"`
	InitialPresentFactor  float64 `json:"initialPresentFactor"`
	PresentMultiplier     float64 `json:"presentMultiplier"`
	HistoricalFactor      float64 `json:"historicalFactor"`
	WirelengthWeight      float64 `json:"wlWeight"`
	TimingWeight          float64 `json:"timingWeight"`
	CriticalityExponent   float64 `json:"criticalityExponent"`
	MinRerouteCriticality float64 `json:"minRerouteCriticality"`
	ReroutePercentage     float64 `json:"reroutePercentage"`
	ShareExponent         float64 `json:"shareExponent"`

	// Bounding box
	BoundingBoxExtension int  `json:"boundingBoxExtension"`
	EnlargeBBoxH         int  `json:"enlargeBboxH"`
	EnlargeBBoxV         int  `json:"enlargeBboxV"`
	UseBoundingBox       bool `json:"useBoundingBox"`

	// Masking / search behavior
	MaskCrossRCLK  bool `json:"maskCrossRclk"`
	UseUTurnNodes  bool `json:"useUTurnNodes"`
	TimingDriven   bool `json:"timingDriven"`
	SoftPreserve   bool `json:"softPreserve"`
	SymmetricClock bool `json:"symmetricClkRouting"`

	// ECO escape hatch.
	WarnIfCellInstStartsWith []string `json:"warnIfCellInstStartsWith"`

	// Watchdog step cap for bounded device-walks.
	WatchdogSteps int `json:"watchdogSteps"`
}

// cfg is the package-local configuration, populated with defaults.
var cfg = &Config{
	MaxIterations:         100,
	InitialPresentFactor:  0.5,
	PresentMultiplier:     2.0,
	HistoricalFactor:      1.0,
	WirelengthWeight:      0.8,
	TimingWeight:          0.35,
	CriticalityExponent:   2.0,
	MinRerouteCriticality: 0.85,
	ReroutePercentage:     3.0,
	ShareExponent:         2.0,
	BoundingBoxExtension:  3,
	EnlargeBBoxH:          1,
	EnlargeBBoxV:          1,
	UseBoundingBox:        true,
	MaskCrossRCLK:         true,
	UseUTurnNodes:         false,
	TimingDriven:          true,
	SoftPreserve:          false,
	SymmetricClock:        false,
	WatchdogSteps:         10000,
}

// Get returns the active configuration.
func Get() *Config {
	return cfg
}

// Set installs c as the active configuration. Numeric fields of c that
// are not positive, and an empty WarnIfCellInstStartsWith, keep their
// current value; the boolean switches are always copied from c, so a
// false in c turns the matching switch off.
func Set(c *Config) {
	if c == nil {
		return
	}
	if c.MaxIterations > 0 {
		cfg.MaxIterations = c.MaxIterations
	}
	if c.InitialPresentFactor > 0 {
		cfg.InitialPresentFactor = c.InitialPresentFactor
	}
	if c.PresentMultiplier > 0 {
		cfg.PresentMultiplier = c.PresentMultiplier
	}
	if c.HistoricalFactor > 0 {
		cfg.HistoricalFactor = c.HistoricalFactor
	}
	if c.WirelengthWeight > 0 {
		cfg.WirelengthWeight = c.WirelengthWeight
	}
	if c.TimingWeight > 0 {
		cfg.TimingWeight = c.TimingWeight
	}
	if c.CriticalityExponent > 0 {
		cfg.CriticalityExponent = c.CriticalityExponent
	}
	if c.MinRerouteCriticality > 0 {
		cfg.MinRerouteCriticality = c.MinRerouteCriticality
	}
	if c.ReroutePercentage > 0 {
		cfg.ReroutePercentage = c.ReroutePercentage
	}
	if c.ShareExponent > 0 {
		cfg.ShareExponent = c.ShareExponent
	}
	if c.BoundingBoxExtension > 0 {
		cfg.BoundingBoxExtension = c.BoundingBoxExtension
	}
	if c.EnlargeBBoxH > 0 {
		cfg.EnlargeBBoxH = c.EnlargeBBoxH
	}
	if c.EnlargeBBoxV > 0 {
		cfg.EnlargeBBoxV = c.EnlargeBBoxV
	}
	if c.WatchdogSteps > 0 {
		cfg.WatchdogSteps = c.WatchdogSteps
	}
	cfg.UseBoundingBox = c.UseBoundingBox
	cfg.MaskCrossRCLK = c.MaskCrossRCLK
	cfg.UseUTurnNodes = c.UseUTurnNodes
	cfg.TimingDriven = c.TimingDriven
	cfg.SoftPreserve = c.SoftPreserve
	cfg.SymmetricClock = c.SymmetricClock
	if len(c.WarnIfCellInstStartsWith) > 0 {
		cfg.WarnIfCellInstStartsWith = c.WarnIfCellInstStartsWith
	}
}

// ReadFile loads configuration from a JSON file and installs it.
func ReadFile(fn string) error {
	data, err := os.ReadFile(fn)
	if err != nil {
		return fmt.Errorf("config: read %q: %w", fn, err)
	}
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("config: parse %q: %w", fn, err)
	}
	Set(&c)
	return nil
}

// AllowsSharedSitePin reports whether instName is whitelisted for the
// shared-site-pin conflict pragma.
func AllowsSharedSitePin(instName string) bool {
	for _, prefix := range cfg.WarnIfCellInstStartsWith {
		if len(instName) >= len(prefix) && instName[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
