// Package version provides version information for tfjsconv.
package version

import "runtime"

// Version is the application version, set via ldflags at build time.
var Version = "dev"

// String returns the version line shown by the version command.
func String() string {
	return "tfjsconv " + Version + " (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
}
