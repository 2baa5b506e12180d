package config

// Build metadata is stamped by the linker at release time:
//
//	go build -ldflags "-X cardcast/internal/config.version=$(git describe --tags) \
//	    -X cardcast/internal/config.commit=$(git rev-parse --short HEAD) \
//	    -X cardcast/internal/config.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Binaries built without ldflags (go run, tests, local builds) carry the
// fallback values below; the startup log and /health surface whichever values
// are present.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo snapshots the linker-stamped variables into a BuildInfo value.
// The loader calls it once while assembling Config.
func NewBuildInfo() BuildInfo {
	return BuildInfo{Version: version, Commit: commit, BuildTime: buildTime}
}
