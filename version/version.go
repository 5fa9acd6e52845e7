package version

import (
	"runtime/debug"
)

// version set at build-time
var version = "main"

const shortCommitLen = 7

// BuildInfo describes the binary as stamped by the go toolchain.
type BuildInfo struct {
	Version   string
	Commit    string
	Timestamp string
	Modified  bool
}

// Info reads the vcs settings embedded in the running binary. Fields the
// toolchain did not record are "unknown".
func Info() BuildInfo {
	info := BuildInfo{
		Version:   Version(),
		Commit:    "unknown",
		Timestamp: "unknown",
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = s.Value[:min(len(s.Value), shortCommitLen)]
		case "vcs.time":
			info.Timestamp = s.Value
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}

	return info
}

// Version returns the version
func Version() string {
	if version == "" {
		return "main"
	}
	return version
}
