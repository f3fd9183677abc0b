package diagnostics

import "fmt"

// InstallInstructionsURL is offered when no usable LLDB is found.
const InstallInstructionsURL = "https://github.com/vadimcn/vscode-lldb/wiki/Installing-LLDB"

// Status is the outcome of a diagnostics run. Values are ordered by
// severity; anything below Failed counts as usable.
type Status int

const (
	// Succeeded means a usable LLDB was found and passed every check.
	Succeeded Status = iota
	// Warning means LLDB works but is older than the tested minimum.
	Warning
	// Failed means a check failed or the run could not complete.
	Failed
	// NotFound means no candidate answered the version query.
	NotFound
)

// String returns a short status name.
func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Warning:
		return "warning"
	case Failed:
		return "failed"
	case NotFound:
		return "not-found"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Message returns the user-facing summary for s.
func (s Status) Message() string {
	switch s {
	case Succeeded:
		return "LLDB self-test completed successfully."
	case Warning:
		return "LLDB self-test completed with warnings. Please check the LLDB output for details."
	case NotFound:
		return "Could not find LLDB on your system."
	default:
		return "LLDB self-test has failed!"
	}
}

// Result is the outcome of one diagnostics run.
type Result struct {
	Status Status

	// Path is the candidate that answered the version query.
	Path string

	// Version is the version that candidate reported.
	Version string

	// SuggestedPath is set when Path differs from the configured
	// executable.
	SuggestedPath string

	// Warning is set when Version is below the tested minimum.
	Warning *VersionWarning

	// Err is the failure that produced a Failed status, if any.
	Err error
}

// OK reports whether the run found a usable LLDB.
func (r Result) OK() bool {
	return r.Status < Failed
}

// VersionWarning reports an LLDB older than the minimum tested version.
type VersionWarning struct {
	Detected string
	Minimum  string
}

func (w *VersionWarning) String() string {
	return fmt.Sprintf("Warning: The version of your LLDB was detected as %s, which had never been tested with this extension. "+
		"Please consider upgrading to least version %s.", w.Detected, w.Minimum)
}
