// Command asm assembles keyword source into a flat byte image.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/regvm/regvm/config"
	"github.com/regvm/regvm/encoder"
	"github.com/regvm/regvm/parser"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var Version = "dev"

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		output      = flag.String("o", "", "Output binary path (default from config, normally out.bin)")
		configPath  = flag.String("config", "", "Config file path (default: platform config dir)")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("asm %s\n", Version)
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

	outPath := cfg.Assembler.Output
	if *output != "" {
		outPath = *output
	}

	srcPath := flag.Arg(0)
	source, err := os.ReadFile(srcPath) // #nosec G304 -- user-specified source path
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to read input file: %v\n", err)
		os.Exit(1)
	}

	timer := time.Now()

	program, err := parser.Parse(string(source))
	if err != nil {
		var perr *parser.Error
		if errors.As(err, &perr) {
			perr.Report(os.Stderr, string(source))
		} else {
			fmt.Fprintf(os.Stderr, "Parse error: %v\n", err)
		}
		os.Exit(1)
	}

	image, err := encoder.Encode(program.Ops)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Encode error: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, image, 0644); err != nil { // #nosec G306 -- program image is not sensitive
		fmt.Fprintf(os.Stderr, "Unable to create output file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Compilation successful! %d bytes -> %s  TIME: %.4f seconds\n",
		len(image), outPath, time.Since(timer).Seconds())
}

func printHelp() {
	fmt.Printf(`asm %s - assembler for the 8-bit register machine

Usage: asm [options] <source-file>

Options:
  -help            Show this help message
  -version         Show version information
  -o FILE          Output binary path (default: out.bin, or [assembler].output
                   from the config file)
  -config FILE     Config file path

The source language is keyword-oriented and case-insensitive, with '#'
line comments:

  mov 65 to a        # immediates, registers n x y z a b c i
  mov 7 to $ y       # $ dereferences: memory at the value of y
  add 1 to x         sub 1 from x
  and a with 15      or a with b       xor a with a
  shl x              shr x             print a
  label as top       jmp to top        jmp if x < 3 to top
  halt               # exit code is register c
`, Version)
}
