package ir

// Version constants for generated artifacts and the tool itself.
const (
	// ToolVersion is the mdxprep version recorded in run history.
	ToolVersion = "0.3.0"

	// TableLayoutVersion identifies the textual layout of generated tables.
	// Bump it whenever the artifact format changes so cached tables are
	// regenerated.
	TableLayoutVersion = "1"
)
