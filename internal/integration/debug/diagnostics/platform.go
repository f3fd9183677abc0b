package diagnostics

import (
	"regexp"
	"strings"
)

// VersionArg asks LLDB to print its version.
const VersionArg = "-v"

// CapabilityProbeArgs make LLDB create a debugger from Python and print
// "True" followed by "OK".
var CapabilityProbeArgs = []string{
	"-b",
	"-O", "script import sys, io, lldb",
	"-O", "script print(lldb.SBDebugger.Create().IsValid())",
	"-O", `script print("OK")`,
}

// CapabilityPattern matches the capability probe's confirmation lines,
// allowing other output before and between them.
var CapabilityPattern = regexp.MustCompile(`(?ms)^True\r?$.*^OK\r?$`)

// Platform holds the per-OS probing parameters.
type Platform struct {
	// Candidates are the executable names tried in order.
	Candidates []string

	// VersionPattern extracts the version as its first group.
	VersionPattern *regexp.Regexp

	// MinimumVersion is the oldest tested version.
	MinimumVersion string
}

var (
	lldbVersionPattern  = regexp.MustCompile(`(?m)^lldb version ([0-9.]+)`)
	appleVersionPattern = regexp.MustCompile(`(?m)^lldb-([0-9.]+)`)
)

// PlatformFor returns the probing parameters for goos.
func PlatformFor(goos string) Platform {
	switch {
	case strings.Contains(goos, "linux"):
		// Linux distributions tend to ship versioned binaries only.
		return Platform{
			Candidates: []string{"lldb", "lldb-10.0", "lldb-9.0", "lldb-8.0", "lldb-7.0",
				"lldb-6.0", "lldb-5.0", "lldb-4.0", "lldb-3.9"},
			VersionPattern: lldbVersionPattern,
			MinimumVersion: "3.9.1",
		}
	case goos == "windows":
		return Platform{
			Candidates:     []string{"lldb"},
			VersionPattern: lldbVersionPattern,
			MinimumVersion: "4.0.0",
		}
	case goos == "darwin":
		return Platform{
			Candidates:     []string{"lldb"},
			VersionPattern: appleVersionPattern,
			MinimumVersion: "360.1.68",
		}
	default:
		return Platform{
			Candidates:     []string{"lldb"},
			VersionPattern: lldbVersionPattern,
			MinimumVersion: "3.9.1",
		}
	}
}

// candidates returns the probe order: the configured executable first when
// it is not the default name, then the platform list.
func (p Platform) candidates(configured, defaultName string) []string {
	names := make([]string, 0, len(p.Candidates)+1)
	if configured != defaultName {
		names = append(names, configured)
	}
	return append(names, p.Candidates...)
}
