// Package version reports the version of the busdi library and the
// runtime it runs on. Connection client properties carry both.
//
// Version is "dev" unless set at build time:
//
//	go build -ldflags "-X github.com/kbukum/busdi/version.Version=1.2.0"
//
// When busdi is a dependency of the running binary, the module version
// recorded in the build info wins.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// ModulePath is the import path of this module.
const ModulePath = "github.com/kbukum/busdi"

// Version is set at build time using -ldflags.
var Version = "dev"

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Info represents version information.
type Info struct {
	Version   string `json:"version"`
	Revision  string `json:"revision,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the library version information.
func Get() Info {
	info := Info{
		Version:   Version,
		GoVersion: runtime.Version(),
		Platform:  Platform(),
	}

	bi, ok := readBuildInfo()
	if !ok {
		return info
	}
	if Version == "dev" {
		if bi.Main.Path == ModulePath && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, dep := range bi.Deps {
			if dep.Path == ModulePath && dep.Version != "" {
				info.Version = dep.Version
			}
		}
	}
	if bi.Main.Path == ModulePath {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				info.Revision = s.Value[:7]
			}
		}
	}
	return info
}

// Library returns the library version.
func Library() string {
	return Get().Version
}

// Platform describes the runtime, e.g. "go1.26.0 linux/amd64".
func Platform() string {
	return fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// String returns the version with its revision, if known.
func (i Info) String() string {
	if i.Revision != "" {
		return i.Version + "+" + i.Revision
	}
	return i.Version
}
