package config

import (
	"errors"
	"fmt"
)

// Errors returned by configuration operations.
var (
	// ErrUnsupportedFormat indicates a file extension other than .toml, .yaml or .yml.
	ErrUnsupportedFormat = errors.New("unsupported config format")

	// ErrNoConfigFile indicates an operation that needs a file path was given none.
	ErrNoConfigFile = errors.New("no config file")
)

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	// Path is the file path that failed to parse.
	Path string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError reports a setting with an invalid value.
type ValidationError struct {
	// Field is the dotted setting path.
	Field string
	// Message describes what is wrong with the value.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// EnvError reports an environment override that could not be parsed.
type EnvError struct {
	// Variable is the environment variable name.
	Variable string
	// Value is the raw value.
	Value string
	// Err is the parse error.
	Err error
}

// Error implements the error interface.
func (e *EnvError) Error() string {
	return fmt.Sprintf("environment %s=%q: %v", e.Variable, e.Value, e.Err)
}

// Unwrap returns the underlying error.
func (e *EnvError) Unwrap() error {
	return e.Err
}
