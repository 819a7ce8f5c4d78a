package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const markedSource = "package q\n\nconst getUser = `--sql 0b8f3c52-6d1e-4c0a-9a57-2f4f1e7c9d10\nSELECT id FROM users WHERE id = $1`\n"

func TestLintSourceAcceptsMarkedQuery(t *testing.T) {
	l := newLinter()
	require.NoError(t, l.lintSource("a.go", []byte(markedSource)))
	require.Empty(t, l.report())
}

func TestLintSourceFlagsMissingMarker(t *testing.T) {
	src := "package q\n\nconst listUsers = `SELECT id FROM users`\n"
	l := newLinter()
	require.NoError(t, l.lintSource("b.go", []byte(src)))

	got := l.report()
	require.Len(t, got, 1)
	require.Equal(t, "listUsers", got[0].name)
	require.Equal(t, 3, got[0].line)
}

func TestLintSourceIgnoresPlainStrings(t *testing.T) {
	src := "package q\n\nconst greeting = \"hello there\"\n"
	l := newLinter()
	require.NoError(t, l.lintSource("c.go", []byte(src)))
	require.Empty(t, l.report())
}

func TestReportFlagsDuplicateMarkersAcrossFiles(t *testing.T) {
	l := newLinter()
	require.NoError(t, l.lintSource("a.go", []byte(markedSource)))
	other := strings.Replace(markedSource, "getUser", "getUserAgain", 1)
	require.NoError(t, l.lintSource("b.go", []byte(other)))

	got := l.report()
	require.Len(t, got, 1)
	require.Equal(t, "b.go", got[0].file)
	require.Equal(t, "getUserAgain", got[0].name)
	require.Contains(t, got[0].message, "a.go:3")
}
