// Command vm executes a program image, directly or under the debugger.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/regvm/regvm/config"
	"github.com/regvm/regvm/debugger"
	"github.com/regvm/regvm/loader"
	"github.com/regvm/regvm/vm"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var Version = "dev"

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		debugMode   = flag.Bool("debug", false, "Start in debugger mode")
		tuiMode     = flag.Bool("tui", false, "Use TUI (Text User Interface) debugger")
		guiMode     = flag.Bool("gui", false, "Use GUI (Graphical User Interface) debugger")
		tickLimit   = flag.Uint64("tick-limit", 0, "Maximum instructions before abort (0 = from config)")
		enableTrace = flag.Bool("trace", false, "Enable execution trace")
		traceFile   = flag.String("trace-file", "", "Trace output file (default from config)")
		configPath  = flag.String("config", "", "Config file path (default: platform config dir)")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("vm %s\n", Version)
		os.Exit(0)
	}
	if *showHelp || flag.NArg() == 0 {
		printHelp()
		os.Exit(0)
	}

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	machine, err := loader.LoadMachine(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	machine.TickLimit = cfg.Execution.TickLimit
	if *tickLimit > 0 {
		machine.TickLimit = *tickLimit
	}

	if *enableTrace || cfg.Execution.Trace {
		tracePath := cfg.Execution.TraceFile
		if *traceFile != "" {
			tracePath = *traceFile
		}

		traceWriter, err := os.Create(tracePath) // #nosec G304 -- user-specified trace output path
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating trace file: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			if err := traceWriter.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close trace file: %v\n", err)
			}
		}()

		machine.Trace = vm.NewExecutionTrace(traceWriter)
	}

	if *debugMode || *tuiMode || *guiMode {
		dbg := debugger.NewDebugger(machine, cfg.Debugger.HistorySize, cfg.Debugger.BytesPerLine)
		dbg.NumberFormat = cfg.Debugger.NumberFormat

		switch {
		case *guiMode:
			if err := debugger.RunGUI(dbg); err != nil {
				fmt.Fprintf(os.Stderr, "GUI error: %v\n", err)
				os.Exit(1)
			}
		case *tuiMode:
			if err := debugger.RunTUI(dbg); err != nil {
				fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
				os.Exit(1)
			}
		default:
			fmt.Println("Debugger - Type 'help' for commands")
			fmt.Printf("Program loaded: %s\n", flag.Arg(0))
			fmt.Println()

			if err := debugger.RunCLI(dbg); err != nil {
				fmt.Fprintf(os.Stderr, "Debugger error: %v\n", err)
				os.Exit(1)
			}
		}
		return
	}

	if err := machine.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "\nRuntime error at PC=0x%02X: %v\n", machine.PC, err)
		os.Exit(1)
	}

	os.Exit(int(machine.ExitCode))
}

func printHelp() {
	fmt.Printf(`vm %s - virtual machine for the 8-bit register machine

Usage: vm [options] <image-file>

Options:
  -help            Show this help message
  -version         Show version information
  -debug           Start in debugger mode (CLI)
  -tui             Start in TUI debugger mode
  -gui             Start in GUI debugger mode
  -tick-limit N    Abort after N instructions (default: unlimited)
  -trace           Enable execution trace
  -trace-file FILE Trace output file (default: trace.log)
  -config FILE     Config file path

The image is loaded at address 0 of the 256-byte memory and executed from
there. On HALT the process exit code is the machine's exit-code register.
`, Version)
}
