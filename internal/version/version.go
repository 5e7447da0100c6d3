// Package version carries the build metadata stamped into the activity
// binary at link time (-ldflags "-X ...").
package version

var (
	// Version is the release tag of the activity pipeline build.
	Version = "dev"
	// GitSHA is the git commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)
