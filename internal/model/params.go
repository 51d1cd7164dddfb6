package model

import (
	"fmt"
	"strings"
)

// Params holds the fixed geometry of the cutting machine. Every engine
// component receives it explicitly so the engine can run at any scale.
type Params struct {
	PlateWidth  int `json:"plate_width" toml:"plate_width"`   // mm along X
	PlateHeight int `json:"plate_height" toml:"plate_height"` // mm along Y
	MinXX       int `json:"min_xx" toml:"min_xx"`             // minimum width of a 1st-level cut
	MaxXX       int `json:"max_xx" toml:"max_xx"`             // maximum width of a 1st-level cut
	MinYY       int `json:"min_yy" toml:"min_yy"`             // minimum height of a row
	MinWaste    int `json:"min_waste" toml:"min_waste"`       // smallest allowed waste piece
	PlateCount  int `json:"plate_count" toml:"plate_count"`   // plate budget of a run
}

// DefaultParams returns the float glass cutting geometry.
func DefaultParams() Params {
	return Params{
		PlateWidth:  6000,
		PlateHeight: 3210,
		MinXX:       100,
		MaxXX:       3500,
		MinYY:       100,
		MinWaste:    20,
		PlateCount:  100,
	}
}

// Validate checks that the geometry is self-consistent.
func (p Params) Validate() error {
	switch {
	case p.PlateWidth <= 0 || p.PlateHeight <= 0:
		return fmt.Errorf("plate size must be positive, got %dx%d", p.PlateWidth, p.PlateHeight)
	case p.MinWaste <= 0:
		return fmt.Errorf("min waste must be positive, got %d", p.MinWaste)
	case p.MinXX < p.MinWaste || p.MinYY < p.MinWaste:
		return fmt.Errorf("min cut sizes (%d, %d) must be at least min waste %d", p.MinXX, p.MinYY, p.MinWaste)
	case p.MinXX > p.PlateWidth || p.MinYY > p.PlateHeight:
		return fmt.Errorf("min cut sizes (%d, %d) exceed the plate %dx%d", p.MinXX, p.MinYY, p.PlateWidth, p.PlateHeight)
	case p.MaxXX < 2*p.MinXX:
		return fmt.Errorf("max cut width %d must be at least twice min cut width %d", p.MaxXX, p.MinXX)
	case p.PlateCount <= 0:
		return fmt.Errorf("plate count must be positive, got %d", p.PlateCount)
	}
	return nil
}

// Mode selects the algorithm used by one layer of the packing engine.
type Mode int

const (
	ModeApproximate Mode = iota // Greedy / candidate-limited search
	ModeExact                   // Full dynamic program
	ModeDiagnose                // Run both, report divergence, keep exact
)

func (m Mode) String() string {
	switch m {
	case ModeExact:
		return "exact"
	case ModeDiagnose:
		return "diagnose"
	default:
		return "approximate"
	}
}

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "approximate", "approx", "a":
		return ModeApproximate, nil
	case "exact", "e":
		return ModeExact, nil
	case "diagnose", "diag", "d":
		return ModeDiagnose, nil
	default:
		return ModeApproximate, fmt.Errorf("unknown packing mode %q", s)
	}
}

// MarshalText lets modes appear by name in TOML and JSON.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses a mode name.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Options selects the per-layer algorithms and run behaviour.
type Options struct {
	RowMode     Mode `json:"row_packing" toml:"row_packing"`
	CutMode     Mode `json:"cut_packing" toml:"cut_packing"`
	PlateMode   Mode `json:"plate_packing" toml:"plate_packing"`
	EarlyCancel bool `json:"early_cancel" toml:"early_cancel"`
	TraceFronts bool `json:"trace_packing_fronts" toml:"trace_packing_fronts"`
}

// DefaultOptions returns the production setting: approximate everywhere,
// reuse of unchanged plates enabled.
func DefaultOptions() Options {
	return Options{
		RowMode:     ModeApproximate,
		CutMode:     ModeApproximate,
		PlateMode:   ModeApproximate,
		EarlyCancel: true,
	}
}
