// Package buildinfo carries version metadata stamped at link time:
//
//	-X 'github.com/m3rciful/kilobot/core/buildinfo.Version=v1.2.3'
//	-X 'github.com/m3rciful/kilobot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/kilobot/core/buildinfo.Date=2025-08-30T12:00:00Z'
package buildinfo

import "fmt"

var (
	// Version is the release tag of the binary.
	Version = "dev"
	// Commit is the source revision the binary was built from.
	Commit = "local"
	// Date is the RFC3339 build timestamp; empty for local builds.
	Date = ""
)

// Info is a snapshot of the stamped values.
type Info struct {
	Version string
	Commit  string
	Date    string
}

// Current returns the stamped values with an "unknown" date for local builds.
func Current() Info {
	date := Date
	if date == "" {
		date = "unknown"
	}
	return Info{Version: Version, Commit: Commit, Date: date}
}

// String renders the line printed by "kilobot version".
func (i Info) String() string {
	return fmt.Sprintf("kilobot %s (commit %s, built %s)", i.Version, i.Commit, i.Date)
}
