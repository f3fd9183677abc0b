package process

import (
	"os"
	"regexp"
	"sort"
	"strings"
)

// darwinSystemPath is put in front of PATH on macOS so LLDB picks up the
// system Python rather than a Homebrew one.
const darwinSystemPath = "/usr/bin"

// variablePattern matches ${kind:name} and the untyped ${name}.
var variablePattern = regexp.MustCompile(`\$\{(?:([^:}]*):)?([^}]*)\}`)

// Resolver resolves one ${kind:name} reference. It returns ok=false for
// kinds it does not support.
type Resolver func(kind, name string) (value string, ok bool)

// EnvResolver resolves ${env:NAME} against lookup. Unset variables expand
// to the empty string.
func EnvResolver(lookup func(string) (string, bool)) Resolver {
	return func(kind, name string) (string, bool) {
		if kind != "env" {
			return "", false
		}
		v, _ := lookup(name)
		return v, true
	}
}

// ExpandVariables substitutes every ${kind:name} reference in value. The
// first reference resolve rejects aborts the expansion with a
// ConfigurationError naming variable.
func ExpandVariables(variable, value string, resolve Resolver) (string, error) {
	var failure *ConfigurationError
	expanded := variablePattern.ReplaceAllStringFunc(value, func(ref string) string {
		if failure != nil {
			return ref
		}
		m := variablePattern.FindStringSubmatch(ref)
		kind, name := m[1], m[2]
		if v, ok := resolve(kind, name); ok {
			return v
		}
		failure = &ConfigurationError{Variable: variable, VariableKind: kind, Value: value}
		return ref
	})
	if failure != nil {
		return "", failure
	}
	return expanded, nil
}

// BuildEnvironment returns base (in os.Environ form) with overrides applied.
// Override values are expanded with ${env:NAME} resolved against base. On
// darwin PATH is always the system path followed by base's PATH, whatever
// the overrides say.
func BuildEnvironment(base []string, overrides map[string]string, goos string) ([]string, error) {
	env := make(map[string]string, len(base)+len(overrides))
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	lookup := func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}
	resolve := EnvResolver(lookup)

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	expanded := make(map[string]string, len(overrides))
	for _, k := range keys {
		v, err := ExpandVariables(k, overrides[k], resolve)
		if err != nil {
			return nil, err
		}
		expanded[k] = v
	}
	basePath := env["PATH"]
	for k, v := range expanded {
		env[k] = v
	}

	if goos == "darwin" {
		if basePath == "" {
			env["PATH"] = darwinSystemPath
		} else {
			env["PATH"] = darwinSystemPath + string(os.PathListSeparator) + basePath
		}
	}

	result := make([]string, 0, len(env))
	for k, v := range env {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result, nil
}
