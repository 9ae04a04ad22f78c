// Command lumen is the CLI driver for the lumen language: it compiles
// and runs a source file, or drops into a REPL when given none.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/lumen/internal/config"
	"github.com/funvibe/lumen/internal/logsink"
	"github.com/funvibe/lumen/internal/vm"
)

const (
	exitOK      = 0
	exitCompile = 65
	exitRuntime = 70
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("lumen", flag.ContinueOnError)
	std := fs.Bool("std", false, "raise a runtime error reading an undefined instance property instead of returning nil")
	stressGC := fs.Bool("stress-gc", false, "run a full garbage collection before every instruction")
	logGC := fs.Bool("log-gc", false, "log every garbage collection to stderr")
	traceExecution := fs.Bool("trace-execution", false, "log every instruction executed to stderr")
	printCode := fs.Bool("print-code", false, "disassemble compiled chunks to stderr before running them")
	if err := fs.Parse(args); err != nil {
		return exitCompile
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cliFlags := config.Flags{
		Std:            *std,
		StressGC:       *stressGC,
		LogGC:          *logGC,
		TraceExecution: *traceExecution,
		PrintCode:      *printCode,
	}

	cwd, _ := os.Getwd()
	project, err := config.Load(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lumen: error reading lumen.yaml: %v\n", err)
	}
	flags := config.Merge(cliFlags, set, project.Flags)

	rest := fs.Args()
	if len(rest) == 0 {
		return runREPL(flags)
	}
	return runFile(rest[0], flags)
}

// newVM constructs a VM and wires its diagnostics to a log sink
// prefixed with this run's session id (the first 8 hex digits of
// vm.SessionID), so --log-gc/--trace-execution lines from concurrent
// runs can be told apart in an aggregated log stream.
func newVM(flags config.Flags) *vm.VM {
	machine := vm.New(os.Stdout)
	sessionTag := machine.SessionID.String()[:8]
	sink := logsink.NewTextSink(os.Stderr, sessionTag)

	machine.Std = flags.Std
	machine.StressGC = flags.StressGC
	if flags.LogGC {
		machine.OnGC = func(stats vm.GCStats) {
			sink.Info("gc: collected %d objects, %s -> %s, next at %s",
				stats.ObjectsFreed,
				logsink.FormatBytes(stats.BytesBefore),
				logsink.FormatBytes(stats.BytesAfter),
				logsink.FormatBytes(stats.NextGC))
		}
	}
	dbg := &vm.Debugger{Enabled: flags.TraceExecution, Output: func(line string) {
		sink.Debug("%s", line)
	}}
	dbg.Attach(machine)
	return machine
}

func runFile(path string, flags config.Flags) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lumen: can't read file '%s': %v\n", path, err)
		return exitCompile
	}

	machine := newVM(flags)
	fn, compileErr := vm.Compile(string(source), machine.Heap(), filepath.Base(path))
	if compileErr != nil {
		fmt.Fprintln(os.Stderr, compileErr.Error())
		return exitCompile
	}
	if flags.PrintCode {
		fmt.Fprint(os.Stderr, vm.Disassemble(fn.Chunk, filepath.Base(path), machine.Heap()))
	}
	if err := machine.Interpret(fn); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return exitRuntime
	}
	return exitOK
}

// prompt renders the REPL's "> " prompt, colorizing it when stdout is
// a terminal (go-isatty) the same way internal/logsink colorizes
// level tags when its writer is one.
func prompt() string {
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return "\x1b[36m> \x1b[0m"
	}
	return "> "
}

func runREPL(flags config.Flags) int {
	machine := newVM(flags)
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print(prompt())
	for scanner.Scan() {
		line := scanner.Text()
		fn, compileErr := vm.Compile(line, machine.Heap(), "<repl>")
		if compileErr != nil {
			fmt.Fprintln(os.Stderr, compileErr.Error())
			fmt.Print(prompt())
			continue
		}
		if flags.PrintCode {
			fmt.Fprint(os.Stderr, vm.Disassemble(fn.Chunk, "<repl>", machine.Heap()))
		}
		if err := machine.Interpret(fn); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		fmt.Print(prompt())
	}
	fmt.Println()
	return exitOK
}
