package formatter

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/pgrename/internal/classgraph"
	"github.com/gnolang/pgrename/internal/proguard"
)

func TestFormat(t *testing.T) {
	t.Parallel()

	src := map[string][]string{
		"app.pro": {
			"-keep class com.app.Main",
			"-keep class {",
			"    -keepnames class com.app.Gone",
		},
	}

	tests := []struct {
		name     string
		diag     Diagnostic
		expected string
	}{
		{
			name: "token",
			diag: Diagnostic{
				Severity: SeverityError,
				Title:    "syntax error",
				File:     "app.pro",
				Line:     2,
				Column:   13,
				Length:   1,
				Message:  "expected class name",
			},
			expected: `error: syntax error
 --> app.pro:2:13
  |
2 | -keep class {
  |             ^
  = expected class name

`,
		},
		{
			name: "whole line with note",
			diag: Diagnostic{
				Severity: SeverityWarning,
				Title:    "unresolved class",
				File:     "app.pro",
				Line:     3,
				Message:  "com.app.Gone is not in the class container",
				Note:     "check the class name",
			},
			expected: `warning: unresolved class
 --> app.pro:3
  |
3 | -keepnames class com.app.Gone
  | ^^^^^^^^^^^^^^^^^^^^^^^^^^^^^
  = com.app.Gone is not in the class container
  = note: check the class name

`,
		},
		{
			name: "missing source",
			diag: Diagnostic{
				Severity: SeverityWarning,
				Title:    "ignored directive",
				File:     "other.pro",
				Line:     12,
				Message:  "unsupported directive -optimizations",
			},
			expected: `warning: ignored directive
  --> other.pro:12
   |
   | unsupported directive -optimizations

`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Format([]Diagnostic{tt.diag}, src))
		})
	}
}

func TestFromError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Diagnostic
		ok   bool
	}{
		{
			name: "syntax",
			err:  fmt.Errorf("parse rules: %w", &proguard.SyntaxError{File: "a.pro", Line: 4, Col: 7, Token: "extends", Msg: "unexpected"}),
			want: Diagnostic{Severity: SeverityError, Title: "syntax error", File: "a.pro", Line: 4, Column: 7, Length: 7, Message: "unexpected"},
			ok:   true,
		},
		{
			name: "unresolved in file",
			err:  &classgraph.UnresolvedReferenceError{Ref: "com.a.B", From: "rules/a.pro:9"},
			want: Diagnostic{
				Severity: SeverityWarning,
				Title:    "unresolved class",
				File:     "rules/a.pro",
				Line:     9,
				Message:  "com.a.B is not in the class container",
				Note:     "the rule still applies to every other class it names",
			},
			ok: true,
		},
		{
			name: "unresolved inline",
			err:  &classgraph.UnresolvedReferenceError{Ref: "com.a.B", From: "line 2"},
			want: Diagnostic{
				Severity: SeverityWarning,
				Title:    "unresolved class",
				Line:     2,
				Message:  "com.a.B is not in the class container",
				Note:     "the rule still applies to every other class it names",
			},
			ok: true,
		},
		{name: "no location", err: &classgraph.UnresolvedReferenceError{Ref: "LA;"}},
		{name: "other", err: os.ErrNotExist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := FromError(tt.err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromWarning(t *testing.T) {
	t.Parallel()

	d := FromWarning(proguard.Warning{File: "a.pro", Line: 3, Msg: "unsupported directive -optimizations"})
	assert.Equal(t, Diagnostic{
		Severity: SeverityWarning,
		Title:    "ignored directive",
		File:     "a.pro",
		Line:     3,
		Message:  "unsupported directive -optimizations",
	}, d)
}

func TestSources(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "a.pro")
	require.NoError(t, os.WriteFile(path, []byte("-dontobfuscate\n\t-keep class A\n"), 0o644))

	src := Sources([]Diagnostic{{File: path}, {File: path}, {File: filepath.Join(dir, "missing.pro")}, {}})
	assert.Equal(t, map[string][]string{path: {"-dontobfuscate", "\t-keep class A"}}, src)
}

func TestTabsExpand(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "        -keep", expandTabs("\t-keep"))
	assert.Equal(t, 8, calculateVisualColumn("\t-keep", 2))
	assert.Equal(t, "\t ", findCommonIndent([]string{"\t  a", "", "\t b"}))
}
