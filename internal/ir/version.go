package ir

// Version constants for the board schema and engine.
const (
	// SchemaVersion is the board document schema version.
	SchemaVersion = "1"

	// EngineVersion is the ggraph engine version.
	EngineVersion = "0.1.0"
)
