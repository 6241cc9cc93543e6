package runner_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/smog/pkg/runner"
)

func TestRunFileSuccess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ok.lox")
	require.NoError(t, os.WriteFile(path, []byte("print 1 + 1;"), 0o644))

	var stdout, stderr bytes.Buffer
	code := runner.RunFile(path, &stdout, &stderr)
	assert.Equal(t, runner.ExitOK, code)
	assert.Equal(t, "2\n", stdout.String())
}

func TestRunFileCompileError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.lox")
	require.NoError(t, os.WriteFile(path, []byte("var = 1;"), 0o644))

	var stdout, stderr bytes.Buffer
	code := runner.RunFile(path, &stdout, &stderr)
	assert.Equal(t, runner.ExitCompileError, code)
}

func TestRunFileRuntimeError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boom.lox")
	require.NoError(t, os.WriteFile(path, []byte("print nope;"), 0o644))

	var stdout, stderr bytes.Buffer
	code := runner.RunFile(path, &stdout, &stderr)
	assert.Equal(t, runner.ExitRuntimeError, code)
	assert.Contains(t, stderr.String(), "Undefined variable")
}

func TestRunFileMissingPath(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runner.RunFile(filepath.Join(t.TempDir(), "missing.lox"), &stdout, &stderr)
	assert.Equal(t, runner.ExitIOError, code)
}

func TestEnumerateTestsFiltersByExtensionAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.lox", "a.lox", "readme.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(""), 0o644))
	}

	scripts, err := runner.EnumerateTests(dir)
	require.NoError(t, err)
	require.Len(t, scripts, 2)
	assert.Equal(t, "a.lox", scripts[0].Name)
	assert.Equal(t, 1, scripts[0].Index)
	assert.Equal(t, "b.lox", scripts[1].Name)
	assert.Equal(t, 2, scripts[1].Index)
}

func TestPrintTestsFormatsIndexAndTotal(t *testing.T) {
	var buf bytes.Buffer
	runner.PrintTests(&buf, []runner.TestScript{
		{Index: 1, Name: "a.lox"},
		{Index: 2, Name: "b.lox"},
	})
	assert.Equal(t, "1: a.lox\n2: b.lox\ntotal: 2\n", buf.String())
}
