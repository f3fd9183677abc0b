package bridge

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURI(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"relative", "main.html", "debugger://s1/main.html"},
		{"absolute path", "/tmp/main.html", "debugger://s1/tmp/main.html"},
		{"own scheme no authority", "debugger:///main.html", "debugger://s1/main.html"},
		{"own scheme other session", "debugger://s0/main.html", "debugger://s1/main.html"},
		{"own scheme opaque", "debugger:main.html", "debugger://s1/main.html"},
		{"query kept", "regs.html?frame=2", "debugger://s1/regs.html?frame=2"},
		{"fragment kept", "main.html#pc", "debugger://s1/main.html#pc"},
		{"foreign scheme", "https://example.com/a.png", "https://example.com/a.png"},
		{"empty", "", "debugger://s1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURI(tt.raw, "s1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeURI_Invalid(t *testing.T) {
	_, err := NormalizeURI("%zz", "s1")
	assert.Error(t, err)
}

func TestOwnerOf(t *testing.T) {
	id, key, err := ownerOf("debugger://s1/a.html")
	require.NoError(t, err)
	assert.Equal(t, "s1", id)
	assert.Equal(t, "debugger://s1/a.html", key)

	_, _, err = ownerOf("https://example.com/a.html")
	assert.ErrorIs(t, err, ErrForeignScheme)
}

func TestNormalizeURI_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	prefixes := gen.OneConstOf("", "/", "debugger:", "debugger:/", "debugger:///", "debugger://old/", "https://example.com/")
	segments := gen.SliceOf(gen.AlphaString())

	properties.Property("idempotent", prop.ForAll(
		func(prefix string, segs []string, sessionID string) bool {
			once, err := NormalizeURI(prefix+strings.Join(segs, "/"), sessionID)
			if err != nil {
				return false
			}
			twice, err := NormalizeURI(once, sessionID)
			return err == nil && once == twice
		},
		prefixes, segments, gen.Identifier(),
	))

	properties.Property("owned by the session", prop.ForAll(
		func(prefix string, segs []string, sessionID string) bool {
			if strings.HasPrefix(prefix, "https:") {
				return true
			}
			got, err := NormalizeURI(prefix+strings.Join(segs, "/"), sessionID)
			if err != nil {
				return false
			}
			id, _, err := ownerOf(got)
			return err == nil && id == sessionID
		},
		prefixes, segments, gen.Identifier(),
	))

	properties.TestingRun(t)
}
