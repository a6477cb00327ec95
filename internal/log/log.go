package log

import "log/slog"

// Empty type to represent the _type_ Logger. Genesis is to support a key in a Context
type Key struct{}

// LoggerKey is a global instance of the Key type
var LoggerKey = Key{}

// LevelTrace sits below slog's debug level so tick-by-tick noise can be
// enabled separately from ordinary debugging.
const LevelTrace = slog.LevelDebug - 4

// ConfigLevelStringToSlogLevel maps the configured log-level string onto a
// slog level. Unknown values fall back to info.
func ConfigLevelStringToSlogLevel(level string) slog.Level {
	switch level {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
