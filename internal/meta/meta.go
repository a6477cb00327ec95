package meta

const (
	// CLIName is the binary name used across help text, env var
	// prefixes and default paths.
	CLIName = "forfeit"
)
