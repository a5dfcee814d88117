package buildconfig

import "runtime"

// Injected via -ldflags "-X github.com/Harshitk-cp/orgbrain/internal/buildconfig.version=..."
var (
	version = "dev"
	commit  = "unknown"
)

func Version() string {
	return version
}

func Commit() string {
	return commit
}

// Info is reported by /stats and the version command.
func Info() map[string]string {
	return map[string]string{
		"version":    version,
		"commit":     commit,
		"go_version": runtime.Version(),
	}
}
