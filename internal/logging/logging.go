// Package logging configures the process-wide logrus logger.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	writerMu  sync.Mutex
	logWriter *lumberjack.Logger
)

// LineFormatter renders entries as
// [2026-10-17 20:14:04] [debug] [launcher.go:52] message | key=value.
type LineFormatter struct{}

// Format renders a single log entry.
func (f *LineFormatter) Format(entry *log.Entry) ([]byte, error) {
	buffer := entry.Buffer
	if buffer == nil {
		buffer = &bytes.Buffer{}
	}

	level := entry.Level.String()
	if level == "warning" {
		level = "warn"
	}

	fmt.Fprintf(buffer, "[%s] [%-5s]", entry.Time.Format("2006-01-02 15:04:05"), level)
	if entry.Caller != nil {
		fmt.Fprintf(buffer, " [%s:%d]", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}
	buffer.WriteString(" ")
	buffer.WriteString(strings.TrimRight(entry.Message, "\r\n"))

	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buffer.WriteString(" |")
		for i, k := range keys {
			if i > 0 {
				buffer.WriteString(",")
			}
			fmt.Fprintf(buffer, " %s=%v", k, entry.Data[k])
		}
	}
	buffer.WriteString("\n")
	return buffer.Bytes(), nil
}

// Options configures Setup.
type Options struct {
	// Level is a logrus level name ("debug", "info", "warn", "error").
	Level string

	// File, when set, sends output to a rotating log file instead of stderr.
	File string

	// MaxSizeMB is the rotation threshold for File. Zero means 10.
	MaxSizeMB int

	// ReportCaller adds file:line to each entry.
	ReportCaller bool
}

// Setup configures the standard logrus logger. It may be called again to
// switch destinations; a previously opened log file is closed.
func Setup(opts Options) error {
	level := log.InfoLevel
	if opts.Level != "" {
		parsed, err := log.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("logging: %w", err)
		}
		level = parsed
	}

	log.SetLevel(level)
	log.SetFormatter(&LineFormatter{})
	log.SetReportCaller(opts.ReportCaller)

	writerMu.Lock()
	defer writerMu.Unlock()

	if logWriter != nil {
		_ = logWriter.Close()
		logWriter = nil
	}

	if opts.File == "" {
		log.SetOutput(os.Stderr)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return fmt.Errorf("logging: failed to create log directory: %w", err)
	}
	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	logWriter = &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    maxSize,
		MaxBackups: 3,
	}
	log.SetOutput(logWriter)
	return nil
}

// Close releases the rotating log file, if any.
func Close() error {
	writerMu.Lock()
	defer writerMu.Unlock()

	if logWriter == nil {
		return nil
	}
	err := logWriter.Close()
	logWriter = nil
	log.SetOutput(os.Stderr)
	return err
}

// Component returns a logger tagged with the component name. Constructors
// that accept a nil logger use this as their default.
func Component(name string) log.FieldLogger {
	return log.WithField("component", name)
}

// Discard returns a logger that drops everything; intended for tests.
func Discard() log.FieldLogger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}
