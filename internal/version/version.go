// Package version exposes build metadata stamped via -ldflags.
package version

import "runtime"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the full version line printed by `seline version`.
func String() string {
	return "seline " + Version + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}

// UserAgent is sent on outbound API requests.
func UserAgent() string {
	return "seline/" + Version
}
