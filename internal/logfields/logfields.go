package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyPhase      = "phase"
	KeyUnit       = "unit"
	KeySafeName   = "safe_name"
	KeyPath       = "path"
	KeyTool       = "tool"
	KeyUnits      = "units"
	KeyDurationMS = "duration_ms"
	KeyOutcome    = "outcome"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Phase(name string) slog.Attr     { return slog.String(KeyPhase, name) }
func Unit(name string) slog.Attr      { return slog.String(KeyUnit, name) }
func SafeName(n string) slog.Attr     { return slog.String(KeySafeName, n) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Tool(t string) slog.Attr         { return slog.String(KeyTool, t) }
func Units(n int) slog.Attr           { return slog.Int(KeyUnits, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
