// Package version carries build metadata stamped via -ldflags.
package version

import "runtime"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String is the long form printed by the version command.
func String() string {
	return "mockinterview " + Version + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}

// UserAgent identifies this build to the interview service.
func UserAgent() string {
	return "mockinterview/" + Version
}
