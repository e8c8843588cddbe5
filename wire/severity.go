package wire

import "go.uber.org/zap/zapcore"

// Renderer log severity bands. The renderer reports a numeric severity;
// the thresholds below are fixed by its protocol and map the range onto
// coarse levels: error up to 9999, warning up to 19999, info up to 29999,
// everything above is debug.
const (
	severityError   = 9999
	severityWarning = 19999
	severityInfo    = 29999
)

// LevelFromSeverity maps a renderer log severity onto a zap level.
func LevelFromSeverity(severity int) zapcore.Level {
	switch {
	case severity <= severityError:
		return zapcore.ErrorLevel
	case severity <= severityWarning:
		return zapcore.WarnLevel
	case severity <= severityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}
