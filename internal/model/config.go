package model

// Config is the persisted run configuration: machine geometry plus the
// packing options. Values come from DefaultConfig and are overridden by the
// config file, then by command-line flags.
type Config struct {
	Params  Params  `json:"params" toml:"params"`
	Options Options `json:"options" toml:"options"`

	// Output preferences
	LabelPDF bool   `json:"label_pdf" toml:"label_pdf"` // Write QR item labels next to the solution
	Units    string `json:"units" toml:"units"`         // Unit name printed on drawings
}

// DefaultConfig returns a Config populated with the production defaults.
func DefaultConfig() Config {
	return Config{
		Params:   DefaultParams(),
		Options:  DefaultOptions(),
		LabelPDF: false,
		Units:    "mm",
	}
}
