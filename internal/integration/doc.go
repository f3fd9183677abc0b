// Package integration holds the pieces of lldbhost that talk to external
// processes.
//
// Subpackages:
//
//   - process: spawning backends, output handshakes, exit tracking and
//     deferred termination
//   - debug: launching LLDB backends for debug sessions
//   - debug/adapters: command lines for the supported backend flavors
//   - debug/dap: the control channel client
//   - debug/diagnostics: the LLDB self-test
//   - debug/bridge: session content republished to the host
//
// This package provides the retry helper shared by them.
package integration
