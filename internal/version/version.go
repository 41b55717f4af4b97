// Package version holds the exporter release version.
package version

// Version is the exporter version, overridable at build time with
// -ldflags "-X .../internal/version.Version=...".
var Version = "0.1.0"
