// Package config holds the adapter host configuration.
//
// Configuration is an explicit struct with defaults, read once from a TOML
// or YAML file (chosen by extension) and then overridden from LLDBHOST_*
// environment variables:
//
//	# lldbhost.toml
//	[lldb]
//	executable = "/usr/bin/lldb-10"
//	useCodeLLDB = false
//	extensionPath = "/opt/vscode-lldb"
//	handshakeTimeout = "5s"
//	terminateGrace = "1500ms"
//
//	[lldb.executableEnv]
//	PYTHONPATH = "${env:HOME}/lldb-python"
//
//	[log]
//	level = "debug"
//	file = "/tmp/lldbhost.log"
//
// The optional adapter parameters (logLevel, loggers, logFile,
// reverseDebugging, suppressMissingSourceFiles, evaluationTimeout, ptvsd)
// are pointers or nil slices so that "not set" is distinguishable from a
// zero value; only set parameters are passed to the adapter.
//
// FileStore persists a corrected executable path back to the file and
// Watcher reloads the file when it changes on disk.
package config
