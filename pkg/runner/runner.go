// Package runner implements the three smog CLI surfaces: running a source
// file to completion, driving the interactive prompt, and enumerating a
// directory of .lox test scripts. It is the only package that touches the
// filesystem or a terminal; pkg/vm stays free of both.
package runner

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chzyer/readline"

	"github.com/kristofer/smog/pkg/vm"
)

// Exit codes, following the BSD sysexits.h convention.
const (
	ExitOK            = 0
	ExitUsage         = 64
	ExitCompileError  = 65
	ExitRuntimeError  = 70
	ExitIOError       = 74
)

// RunFile reads path, interprets it to completion on a fresh VM, and
// returns the process exit code matching the outcome.
func RunFile(path string, stdout, stderr io.Writer) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "Could not read file \"%s\".\n", path)
		return ExitIOError
	}

	m := vm.New()
	m.Stdout = stdout
	m.Stderr = stderr

	result, err := m.Interpret(string(src))
	switch result {
	case vm.InterpretOK:
		return ExitOK
	case vm.InterpretCompileError:
		return ExitCompileError
	case vm.InterpretRuntimeError:
		if err != nil {
			fmt.Fprintln(stderr, err.Error())
		}
		return ExitRuntimeError
	default:
		return ExitUsage
	}
}

// RunREPL drives the interactive prompt: one VM persists across lines (so
// globals and classes accumulate), each line is interpreted independently,
// and a line beginning with 'q' exits. Line editing and history are
// provided by chzyer/readline rather than a bare bufio.Scanner.
func RunREPL(stdout, stderr io.Writer) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "> ",
		HistoryFile: historyFilePath(),
		Stdout:      stdout,
		Stderr:      stderr,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	m := vm.New()
	m.Stdout = stdout
	m.Stderr = stderr

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF (Ctrl-D) or readline.ErrInterrupt (Ctrl-C)
			return nil
		}
		if strings.HasPrefix(strings.TrimSpace(line), "q") {
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, err := m.Interpret(line); err != nil {
			fmt.Fprintln(stderr, err.Error())
		}
	}
}

func historyFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".smog_history")
}

// TestScript is one enumerated .lox file under a test directory.
type TestScript struct {
	Index int
	Name  string
	Path  string
}

// EnumerateTests reads dir (non-recursively; it does not descend into
// subdirectories) and returns every regular file whose name ends in .lox,
// sorted by name and numbered from 1.
func EnumerateTests(dir string) ([]TestScript, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".lox") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	scripts := make([]TestScript, len(names))
	for i, name := range names {
		scripts[i] = TestScript{Index: i + 1, Name: name, Path: filepath.Join(dir, name)}
	}
	return scripts, nil
}

// PrintTests writes each enumerated script as "<index>: <name>" followed
// by a total line.
func PrintTests(w io.Writer, scripts []TestScript) {
	for _, s := range scripts {
		fmt.Fprintf(w, "%d: %s\n", s.Index, s.Name)
	}
	fmt.Fprintf(w, "total: %d\n", len(scripts))
}
