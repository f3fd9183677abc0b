// Package debug launches LLDB backends for debug sessions and connects
// them to the content bridge.
//
// # Architecture
//
//	config.Adapter ──▶ adapters.Registry ──▶ process.Supervisor
//	                                            │ handshake
//	                                            ▼
//	                    Launcher ──▶ bridge (launching "name")
//	                                            │
//	Session (control channel) ──▶ bridge (started, displayHtml, terminated)
//
// Launcher picks the backend flavor from configuration, starts it and
// waits for the "Listening on port <n>" handshake. Launch additionally
// records the backend with the bridge under the session name, before the
// session exists.
//
// Session connects to the backend's port, initializes the control
// channel and reports the session's start, custom events and end to the
// bridge.
//
// # Startup failures
//
// AnalyzeStartupError turns a launch error into a user-facing message
// based on its kind (see process.KindOf) and always offers to run
// diagnostics.
//
// # Usage
//
//	launcher := debug.NewLauncher(cfg.LLDB, supervisor, queue)
//	handle, err := launcher.Launch(ctx, "my program", nil)
//	if err != nil {
//	    remedy := launcher.ReportStartupError(err)
//	    fmt.Println(remedy.Message)
//	    return
//	}
//	session, err := debug.ConnectSession(ctx, handle.Port(), "my program", queue)
package debug
