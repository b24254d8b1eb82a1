package buildinfo

// Set with -ldflags at build time, for example:
//
//	-X 'github.com/m3rciful/postbot/core/buildinfo.Version=v0.3.0'
//	-X 'github.com/m3rciful/postbot/core/buildinfo.Commit=1f2e3d4'
//	-X 'github.com/m3rciful/postbot/core/buildinfo.Date=2026-10-01T09:00:00Z'
var (
	// Version reports the release tag of the build.
	Version = "dev"
	// Commit reports the source revision of the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)
