// Package bridge republishes content pushed by LLDB sessions to a host that
// renders virtual documents.
//
// A backend is recorded as launching under its session name before the host
// knows the session's identity. When the host reports the session as
// started, the first pending launch with that name becomes the session's
// backend. From then on the session's displayHtml events fill a per-session
// content cache, and the host is told which documents changed. Documents
// live under the "debugger" scheme with the session ID as authority:
//
//	debugger://3f2a.../disassembly.html
//
// Content queries are answered from the cache when possible and otherwise
// forwarded to the session as a provideContent request.
//
// Bridge itself is not safe for concurrent use. Queue runs every Bridge
// operation on a single goroutine, in the order they were posted.
package bridge
