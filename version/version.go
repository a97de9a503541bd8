// Package version holds build-time identifiers, set via -ldflags at
// release time and consumed by cmd/imaginize's root and version commands.
package version

import "runtime"

var (
	// GitRelease is the tagged release this binary was built from.
	GitRelease = "dev"
	// GitCommit is the commit hash this binary was built from.
	GitCommit = "unknown"
	// GitCommitDate is the commit timestamp this binary was built from.
	GitCommitDate = "unknown"
)

// GoInfo reports the Go toolchain version used to build this binary.
var GoInfo = runtime.Version()
