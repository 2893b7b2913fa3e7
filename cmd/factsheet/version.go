package main

import (
	"fmt"
	"io"
	"runtime/debug"
)

func printVersion(w io.Writer) {
	version, goVersion, revision, dirty := getBuildInfo()
	_, _ = fmt.Fprintf(w, "factsheet %s\n", version)
	_, _ = fmt.Fprintf(w, "  Go version: %s\n", goVersion)
	_, _ = fmt.Fprintf(w, "  Revision:   %s\n", revision)
	if dirty {
		_, _ = fmt.Fprintf(w, "  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}
