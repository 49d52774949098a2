// Package version reports the build version of the code squad binaries.
//
// A version.txt placed next to this file before building takes precedence
// over the module version recorded by the go tool.
package version

import (
	"embed"
	"runtime/debug"
	"strings"
)

//go:embed version.*
var versions embed.FS

// Version is the build version, resolved once at start up
var Version = resolve()

func resolve() string {
	if b, err := versions.ReadFile("version.txt"); err == nil {
		if v := strings.TrimSpace(string(b)); v != "" {
			return v
		}
	}
	inf, ok := debug.ReadBuildInfo()
	if !ok || inf.Main.Version == "" {
		return "(devel)"
	}
	return inf.Main.Version
}
