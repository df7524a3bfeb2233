package version

// Set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String returns the version with commit and build date.
func String() string {
	return Version + " (" + Commit + ", " + Date + ")"
}
