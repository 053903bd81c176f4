package buildconfig

// Set via -ldflags "-X github.com/Harshitk-cp/tenantctl/internal/buildconfig.version=..."
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = ""
)

func Version() string {
	return version
}

func Commit() string {
	return commit
}

// Info returns the build metadata reported by /health and logged at start-up.
func Info() map[string]string {
	info := map[string]string{
		"version": version,
		"commit":  commit,
	}
	if buildTime != "" {
		info["build_time"] = buildTime
	}
	return info
}
