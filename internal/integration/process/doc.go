// Package process launches and supervises debugger backend processes.
//
// A backend is started with Supervisor.Spawn, which expands the configured
// environment overrides, starts the child with stdin closed and both output
// streams captured, and attaches exit tracking. Supervisor.Launch
// additionally performs the handshake: it scans stdout for the
// "Listening on port N" line and records N on the returned Handle.
//
//	sup := process.NewSupervisor(process.WithSink(out))
//	defer sup.Shutdown(5 * time.Second)
//
//	h, err := sup.Launch(ctx, process.Command{
//	    Executable: "codelldb",
//	    Args:       []string{"--lldb=/opt/lldb"},
//	}, 5*time.Second)
//	if err != nil {
//	    switch process.KindOf(err) {
//	    case process.KindNotFound:
//	        ...
//	    }
//	}
//	fmt.Println(h.Port())
//
// # Output
//
// Everything the backend writes is forwarded to the Sink whether or not the
// handshake succeeds. WaitPattern is the matcher behind the handshake and is
// also used directly for probing binaries.
//
// # Termination
//
// Handle.Terminate is idempotent. Owners that want the backend to shut down
// on its own first use ScheduleTermination, which kills the process after a
// grace period unless it exits or the schedule is cancelled.
//
// A Handle reports its exit when the process itself exits. Descendants that
// inherited its output can keep the streams open for at most a short delay
// afterwards; anything they write later is dropped.
//
// # Thread Safety
//
// Supervisor and Handle are safe for concurrent use. The liveness state of a
// Handle is written once, by its wait goroutine.
package process
