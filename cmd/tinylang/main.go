// Command tinylang compiles and runs tinylang source, either from a file
// argument or interactively from stdin.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/kr/pretty"
	"github.com/sirupsen/logrus"

	"tinylang/compiler"
	"tinylang/vm"
)

var log = logrus.New()

func main() {
	debug := flag.Bool("debug", false, "print disassembled bytecode before running")
	cpuprofile := flag.String("cpuprofile", "", "write a CPU profile to file")
	verbose := flag.Bool("verbose", false, "log each program's instruction count at debug level")
	flag.Parse()

	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatalf("could not create CPU profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("could not start CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
	}

	if flag.NArg() < 1 {
		repl(*debug)
		return
	}

	sourceFile := flag.Arg(0)
	source, err := os.ReadFile(sourceFile)
	if err != nil {
		log.Fatalf("reading %s: %v", sourceFile, err)
	}

	if !runSource(string(source), sourceFile, *debug) {
		os.Exit(1)
	}
}

// repl implements the read-eval-print loop: a `>>> ` prompt, one line of
// input per iteration, a lowercase `q` to quit, and empty lines skipped.
func repl(debug bool) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(">>> ")
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		if line == "q" {
			return
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		runSource(line, "<repl>", debug)
	}
}

// runSource compiles and executes source, reporting errors to stderr and
// the return value (if any) to stdout. It reports success via its bool
// result so both the REPL (which keeps going) and batch mode (which
// exits non-zero) can react appropriately.
func runSource(source, filename string, debug bool) bool {
	program, err := compiler.Compile(source, filename)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return false
	}

	if debug {
		fmt.Print(vm.Disassemble(program))
		pretty.Println(program.Instructions)
	}

	log.WithField("instructions", len(program.Instructions)).Debug("running program")

	m := vm.New(program)
	if err := m.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
		return false
	}

	if rv := m.ReturnValue(); rv != nil {
		fmt.Println(rv.String())
	}
	return true
}
