// Command smog is the CLI driver for the smog language: bare invocation
// enters the interactive prompt, a single path argument interprets that
// file, and the "test" subcommand enumerates a directory of .lox scripts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kristofer/smog/pkg/runner"
	"github.com/kristofer/smog/pkg/vm"
)

var (
	flagTrace     bool
	flagPrintCode bool
	flagGCStress  bool
	flagGCLog     bool
)

func main() {
	os.Exit(run())
}

func run() int {
	root := &cobra.Command{
		Use:          "smog [path]",
		Short:        "smog runs the smog scripting language",
		Long:         "smog compiles and runs smog source: a dynamically-typed, class-based scripting language with a single-pass bytecode compiler and a stack-based virtual machine.",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyDebugFlags()
			if len(args) == 0 {
				return runner.RunREPL(os.Stdout, os.Stderr)
			}
			exitCode = runner.RunFile(args[0], os.Stdout, os.Stderr)
			return nil
		},
	}

	root.PersistentFlags().BoolVar(&flagTrace, "trace", false, "trace each instruction's execution and the value stack")
	root.PersistentFlags().BoolVar(&flagPrintCode, "print-code", false, "disassemble each completed chunk")
	root.PersistentFlags().BoolVar(&flagGCStress, "gc-stress", false, "force a garbage collection on every allocation")
	root.PersistentFlags().BoolVar(&flagGCLog, "gc-log", false, "trace allocate/mark/blacken/free during collection")

	root.AddCommand(newTestCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if exitCode == 0 {
			exitCode = runner.ExitUsage
		}
	}
	return exitCode
}

// exitCode is set by the RunE handlers below; cobra itself has no notion
// of a process exit code distinct from "command failed".
var exitCode int

func newTestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test <dir>",
		Short: "enumerate .lox scripts under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scripts, err := runner.EnumerateTests(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Could not read directory \"%s\".\n", args[0])
				exitCode = runner.ExitIOError
				return nil
			}
			runner.PrintTests(os.Stdout, scripts)
			return nil
		},
	}
}

func applyDebugFlags() {
	vm.SetTraceExecution(flagTrace)
	vm.SetPrintCode(flagPrintCode)
	vm.SetGCStress(flagGCStress)
	vm.SetGCLog(flagGCLog)
}
