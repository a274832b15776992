// Package buildinfo exposes version data injected at link time:
//
//	go build -ldflags "-X github.com/dmitrijs2005/mcpforge/internal/buildinfo.Version=v1.2.0"
package buildinfo

import (
	"fmt"
	"io"
)

const notAvailable = "N/A"

var (
	Version = notAvailable
	Date    = notAvailable
	Commit  = notAvailable
)

func value(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

// PrintBuildData writes the build version, date and commit to w.
func PrintBuildData(w io.Writer) {
	_, _ = fmt.Fprintf(w, "Build version: %s\n", value(Version))
	_, _ = fmt.Fprintf(w, "Build date: %s\n", value(Date))
	_, _ = fmt.Fprintf(w, "Build commit: %s\n", value(Commit))
}
