package debug

import (
	"fmt"

	"github.com/dshills/lldbhost/internal/integration/process"
)

// RunDiagnosticsAction is the action offered with every startup failure.
const RunDiagnosticsAction = "Run diagnostics"

// Remedy is what to tell the user after a failed launch.
type Remedy struct {
	Message string
	Action  string
}

// AnalyzeStartupError chooses the message for a launch error by its kind.
func AnalyzeStartupError(err error) Remedy {
	var msg string
	switch process.KindOf(err) {
	case process.KindNotFound:
		path, _ := process.NotFoundPath(err)
		msg = fmt.Sprintf("Could not start debugging because executable '%s' was not found.", path)
	case process.KindTimeout, process.KindHandshake:
		msg = err.Error()
	default:
		msg = "Could not start debugging."
	}
	return Remedy{Message: msg, Action: RunDiagnosticsAction}
}
