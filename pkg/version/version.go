// Package version carries build identification set at link time.
package version

// Version is the semantic version of the binary, set via ldflags.
var Version = "dev"

// Commit is the Git hash the binary was built from, set via ldflags.
var Commit = "<unknown>"

// Date is the build timestamp, set via ldflags.
var Date = "<unknown>"
