package model

// Version constants for the persisted layout.
const (
	// LayoutVersion is the persisted store layout version.
	LayoutVersion = "1"

	// EngineVersion is the ontoreg engine version.
	EngineVersion = "0.1.0"
)
